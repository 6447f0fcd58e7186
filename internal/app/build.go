package app

import (
	"context"
	"fmt"

	"github.com/vk/stagechain/internal/config"
	"github.com/vk/stagechain/internal/ctxlog"
	"github.com/vk/stagechain/internal/dag"
	"github.com/vk/stagechain/internal/registry"
)

// buildPlan resolves every stage's action and compiles the chain. A chain
// where every stage carries an id goes through the manual builder; a chain
// where none does is numbered by declaration order.
func (a *App) buildPlan(ctx context.Context, chain *config.Chain) (*dag.Plan, error) {
	logger := ctxlog.FromContext(ctx)

	withID := 0
	for _, s := range chain.Stages {
		if s.HasID() {
			withID++
		}
	}
	if withID > 0 && withID < len(chain.Stages) {
		return nil, fmt.Errorf("%w: %d of %d stages declare an id", dag.ErrMixedModes, withID, len(chain.Stages))
	}

	opts := []dag.CompileOption{dag.WithLogger(logger)}
	if a.config.SparseIDs {
		opts = append(opts, dag.WithSparseIDs())
	}

	var b *dag.Builder
	if withID > 0 {
		b = dag.NewBuilder(opts...)
	} else {
		b = dag.NewSequentialBuilder(opts...)
	}

	env := registry.Env{Out: a.outW}
	for _, s := range chain.Stages {
		work, err := a.registry.Instantiate(ctx, s, env)
		if err != nil {
			return nil, err
		}
		if s.HasID() {
			b.DeclareStage(dag.Stage{ID: *s.ID, Name: s.Name, Work: work, DependsOn: s.DependsOn})
		} else {
			b.AppendNamed(s.Name, work, s.DependsOn...)
		}
	}

	plan, err := b.Build()
	if err != nil {
		return nil, err
	}
	logger.Debug("Plan compiled.", "stages", plan.Len(), "explicit_ids", withID > 0)
	return plan, nil
}
