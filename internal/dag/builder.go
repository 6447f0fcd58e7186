package dag

import (
	"context"
	"fmt"
	"log/slog"
)

type declareMode int

const (
	manualMode declareMode = iota
	sequentialMode
)

// Builder accumulates stage declarations and compiles them into a Plan. A
// Builder is not safe for concurrent use.
type Builder struct {
	mode   declareMode
	opts   []CompileOption
	logger *slog.Logger

	stages []Stage
	// misuse counts declarations made with the method of the other mode.
	misuse int
	// plan is set by the first successful Build.
	plan *Plan
}

// NewBuilder returns a builder for stages with caller-assigned identifiers.
func NewBuilder(opts ...CompileOption) *Builder {
	return newBuilder(manualMode, opts)
}

// NewSequentialBuilder returns a builder that assigns identifiers from the
// declaration position. Dependencies passed to Append are positions.
func NewSequentialBuilder(opts ...CompileOption) *Builder {
	return newBuilder(sequentialMode, opts)
}

func newBuilder(mode declareMode, opts []CompileOption) *Builder {
	return &Builder{
		mode:   mode,
		opts:   opts,
		logger: newCompileConfig(opts).logger,
	}
}

// Declare adds a stage with the given identifier. Nil work is ignored.
func (b *Builder) Declare(id int, work Work, dependsOn ...int) *Builder {
	return b.DeclareStage(Stage{ID: id, Work: work, DependsOn: dependsOn})
}

// DeclareStage adds a fully described stage. Nil work is ignored.
func (b *Builder) DeclareStage(s Stage) *Builder {
	if !b.accepting(s.Work) {
		return b
	}
	if b.mode != manualMode {
		b.logger.Warn("Declare called on a sequential builder.", "stage", s.ID)
		b.misuse++
		return b
	}
	b.stages = append(b.stages, s.clone())
	return b
}

// Append adds a stage whose identifier is its position among the accepted
// stages. Nil work is ignored and does not consume a position.
func (b *Builder) Append(work Work, dependsOn ...int) *Builder {
	return b.AppendNamed("", work, dependsOn...)
}

// AppendNamed is Append with a stage name.
func (b *Builder) AppendNamed(name string, work Work, dependsOn ...int) *Builder {
	if !b.accepting(work) {
		return b
	}
	if b.mode != sequentialMode {
		b.logger.Warn("Append called on a manual builder.", "position", len(b.stages))
		b.misuse++
		return b
	}
	b.stages = append(b.stages, Stage{
		ID:        len(b.stages),
		Name:      name,
		Work:      work,
		DependsOn: append([]int(nil), dependsOn...),
	})
	return b
}

func (b *Builder) accepting(work Work) bool {
	if work == nil {
		return false
	}
	if b.plan != nil {
		b.logger.Warn("Declaration after build ignored.")
		return false
	}
	return true
}

// Build validates the declarations and wires the plan. Once it succeeds,
// further calls return the same plan without re-validating. A failed build
// leaves the builder unbuilt.
func (b *Builder) Build() (*Plan, error) {
	if b.plan != nil {
		return b.plan, nil
	}
	if b.misuse > 0 {
		return nil, fmt.Errorf("%w: %d declarations used the wrong method for this builder", ErrMixedModes, b.misuse)
	}
	p, err := Compile(b.stages, b.opts...)
	if err != nil {
		return nil, err
	}
	b.plan = p
	return p, nil
}

// Built reports whether Build has succeeded.
func (b *Builder) Built() bool {
	return b.plan != nil
}

// RunAll executes the built plan. It returns ErrNotBuilt without running
// anything if Build has not succeeded.
func (b *Builder) RunAll(ctx context.Context, opts ...RunOption) error {
	if b.plan == nil {
		return ErrNotBuilt
	}
	return b.plan.RunAll(ctx, opts...)
}
