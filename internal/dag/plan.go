package dag

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/vk/stagechain/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// Plan is a validated, immutable execution graph. It is produced by Compile or
// Builder.Build and can be executed any number of times.
type Plan struct {
	// stages holds the accepted stages sorted by identifier.
	stages []Stage
	// index maps a stage identifier to its position in stages.
	index map[int]int
	// dependents lists, per position, the positions of stages that depend on
	// it. A stage listing the same dependency twice appears twice.
	dependents [][]int
	// built is set only by Compile. The zero Plan is not runnable.
	built bool

	// mu guards armed.
	mu sync.Mutex
	// armed is the runner set wired at build time, consumed by the first
	// execution. Later executions wire a fresh set.
	armed []*runner
}

func newPlan(stages []Stage) *Plan {
	p := &Plan{
		stages:     stages,
		index:      make(map[int]int, len(stages)),
		dependents: make([][]int, len(stages)),
		built:      true,
	}
	for pos, s := range stages {
		p.index[s.ID] = pos
	}
	for pos, s := range stages {
		for _, d := range s.DependsOn {
			dep := p.index[d]
			p.dependents[dep] = append(p.dependents[dep], pos)
		}
	}
	return p
}

// Len returns the number of stages in the plan.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.stages)
}

// IDs returns the stage identifiers in ascending order.
func (p *Plan) IDs() []int {
	if p == nil {
		return nil
	}
	ids := make([]int, len(p.stages))
	for i, s := range p.stages {
		ids[i] = s.ID
	}
	return ids
}

// Stage returns a copy of the stage with the given identifier.
func (p *Plan) Stage(id int) (Stage, bool) {
	if p == nil {
		return Stage{}, false
	}
	pos, ok := p.index[id]
	if !ok {
		return Stage{}, false
	}
	return p.stages[pos].clone(), true
}

// DependenciesOf returns the identifiers the given stage waits for, in
// declaration order.
func (p *Plan) DependenciesOf(id int) ([]int, error) {
	s, ok := p.Stage(id)
	if !ok {
		return nil, fmt.Errorf("dag: stage %d not found", id)
	}
	return s.DependsOn, nil
}

// DependentsOf returns the identifiers of stages that wait for the given
// stage, in ascending order.
func (p *Plan) DependentsOf(id int) ([]int, error) {
	if p == nil {
		return nil, fmt.Errorf("dag: stage %d not found", id)
	}
	pos, ok := p.index[id]
	if !ok {
		return nil, fmt.Errorf("dag: stage %d not found", id)
	}
	ids := make([]int, len(p.dependents[pos]))
	for i, q := range p.dependents[pos] {
		ids[i] = p.stages[q].ID
	}
	return ids, nil
}

// wire creates one runner per stage and connects every runner to the ready
// latches of its dependents.
func (p *Plan) wire() []*runner {
	runners := make([]*runner, len(p.stages))
	for pos, s := range p.stages {
		runners[pos] = newRunner(pos, s)
	}
	for _, r := range runners {
		for _, d := range r.stage.DependsOn {
			dep := runners[p.index[d]]
			dep.dependents = append(dep.dependents, r.ready)
		}
	}
	return runners
}

// take hands out the pre-wired runner set once, then fresh sets.
func (p *Plan) take() []*runner {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.armed != nil {
		runners := p.armed
		p.armed = nil
		return runners
	}
	return p.wire()
}

// RunAll executes the plan and blocks until every stage has finished.
func (p *Plan) RunAll(ctx context.Context, opts ...RunOption) error {
	return p.Start(ctx, opts...).Wait()
}

// Start launches one goroutine per stage and returns immediately. A nil or
// unbuilt plan yields an execution that has already finished with
// ErrNotBuilt.
func (p *Plan) Start(ctx context.Context, opts ...RunOption) *Execution {
	cfg := newRunConfig(opts)
	runID := uuid.NewString()

	if p == nil || !p.built {
		ctxlog.FromContext(ctx).Error("Execution requested before a successful build.", "run_id", runID)
		return finishedExecution(runID, ErrNotBuilt)
	}

	runners := p.take()
	x := newExecution(runID, p, len(runners))

	ctx, logger := ctxlog.With(ctx, "run_id", runID)
	logger.Info("🚀 Starting execution.", "stages", len(runners), "fault_policy", cfg.policy.String())

	order := make([]*runner, len(runners))
	copy(order, runners)
	if cfg.shuffle {
		rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15))
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	var g errgroup.Group
	for _, r := range order {
		logger.Debug("Launching stage runner.", "stage", r.stage.ID)
		g.Go(func() error {
			return r.run(ctx, x, cfg)
		})
	}

	go func() {
		if err := g.Wait(); err != nil {
			logger.Debug("First fault of the execution.", "error", err)
		}
		x.finish()
		if err := x.Err(); err != nil {
			logger.Error("🏁 Execution finished with errors.", "error", err)
			return
		}
		logger.Info("🏁 Execution finished.")
	}()

	return x
}
