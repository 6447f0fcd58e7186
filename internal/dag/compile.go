package dag

import (
	"cmp"
	"log/slog"
	"slices"
)

// maxListedMissing bounds BuildError.Missing; the full gap size is kept in
// BuildError.MissingCount.
const maxListedMissing = 100

// CompileOption configures plan construction.
type CompileOption func(*compileConfig)

type compileConfig struct {
	sparseIDs bool
	logger    *slog.Logger
}

func newCompileConfig(opts []CompileOption) compileConfig {
	cfg := compileConfig{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithSparseIDs drops the requirement that identifiers form a contiguous
// range. Uniqueness, reference and cycle checks still apply.
func WithSparseIDs() CompileOption {
	return func(cfg *compileConfig) {
		cfg.sparseIDs = true
	}
}

// WithLogger sets the logger used for build diagnostics. It defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) CompileOption {
	return func(cfg *compileConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Compile validates a set of stage declarations and returns a frozen plan.
// Stages without work are dropped before validation. On failure the returned
// error is a *BuildError describing every problem found.
func Compile(stages []Stage, opts ...CompileOption) (*Plan, error) {
	cfg := newCompileConfig(opts)
	logger := cfg.logger
	logger.Debug("Compile: Starting plan construction.", "declared", len(stages))

	accepted := make([]Stage, 0, len(stages))
	for _, s := range stages {
		if s.Work == nil {
			logger.Debug("Compile: Dropping stage without work.", "stage", s.ID)
			continue
		}
		accepted = append(accepted, s.clone())
	}

	if err := validate(accepted, cfg.sparseIDs); err != nil {
		logger.Debug("Compile: Validation failed.", "error", err)
		return nil, err
	}
	logger.Debug("Compile: Validation passed.", "stages", len(accepted))

	slices.SortStableFunc(accepted, func(a, b Stage) int { return cmp.Compare(a.ID, b.ID) })
	p := newPlan(accepted)

	if cycle := p.findCycle(); cycle != nil {
		err := &BuildError{Cycle: cycle}
		logger.Debug("Compile: Cycle detected.", "error", err)
		return nil, err
	}
	logger.Debug("Compile: Cycle detection passed.")

	p.armed = p.wire()
	logger.Debug("Compile: Plan construction successful.", "stages", p.Len())
	return p, nil
}

// validate runs the sequence, uniqueness and reference checks and reports
// all of their findings together.
func validate(stages []Stage, sparse bool) error {
	if len(stages) == 0 {
		return nil
	}

	counts := make(map[int]int, len(stages))
	for _, s := range stages {
		counts[s.ID]++
	}

	berr := &BuildError{}
	if !sparse {
		berr.Missing, berr.MissingCount = findGaps(counts)
	}

	for id, n := range counts {
		if n > 1 {
			berr.Duplicates = append(berr.Duplicates, Duplicate{ID: id, Count: n})
		}
	}
	slices.SortFunc(berr.Duplicates, func(a, b Duplicate) int { return cmp.Compare(a.ID, b.ID) })

	for _, s := range stages {
		for _, d := range s.DependsOn {
			if counts[d] == 0 {
				berr.Unknown = append(berr.Unknown, DanglingRef{Stage: s.ID, Dependency: d})
			}
		}
	}

	if berr.empty() {
		return nil
	}
	return berr
}

// findGaps walks the holes between consecutive declared identifiers. It lists
// at most maxListedMissing of them and counts all of them.
func findGaps(counts map[int]int) ([]int, uint64) {
	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var missing []int
	var total uint64
	for i := 1; i < len(ids); i++ {
		a, b := ids[i-1], ids[i]
		// Unsigned arithmetic keeps the gap exact across the whole int range.
		total += uint64(b) - uint64(a) - 1
		for id := a + 1; id < b && len(missing) < maxListedMissing; id++ {
			missing = append(missing, id)
		}
	}
	return missing, total
}

// findCycle walks dependency edges depth-first in identifier order and
// returns the first cycle it meets, or nil.
func (p *Plan) findCycle() []int {
	const (
		unvisited = iota
		visiting
		visited
	)
	state := make([]int, len(p.stages))
	var path []int
	var cycle []int

	var visit func(pos int) bool
	visit = func(pos int) bool {
		state[pos] = visiting
		path = append(path, pos)

		deps := slices.Clone(p.stages[pos].DependsOn)
		slices.Sort(deps)
		for _, d := range deps {
			next := p.index[d]
			switch state[next] {
			case unvisited:
				if visit(next) {
					return true
				}
			case visiting:
				start := slices.Index(path, next)
				for _, q := range path[start:] {
					cycle = append(cycle, p.stages[q].ID)
				}
				cycle = append(cycle, d)
				return true
			}
		}

		path = path[:len(path)-1]
		state[pos] = visited
		return false
	}

	for pos := range p.stages {
		if state[pos] == unvisited && visit(pos) {
			return cycle
		}
	}
	return nil
}
