package dag

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/vk/stagechain/internal/ctxlog"
	"github.com/vk/stagechain/internal/latch"
)

// runner executes a single stage. It is wired for exactly one execution.
type runner struct {
	// pos is the stage position within the plan.
	pos   int
	stage Stage
	// ready opens once every dependency has signaled.
	ready *latch.Latch
	// dependents holds the ready latches of the stages waiting on this one,
	// one entry per dependency edge.
	dependents []*latch.Latch
}

func newRunner(pos int, s Stage) *runner {
	return &runner{
		pos:   pos,
		stage: s,
		ready: latch.New(len(s.DependsOn)),
	}
}

// run waits for the dependencies, executes the work and notifies the
// dependents. The returned error is the stage fault, if any.
func (r *runner) run(ctx context.Context, x *Execution, cfg runConfig) error {
	attrs := []any{"stage", r.stage.ID}
	if r.stage.Name != "" {
		attrs = append(attrs, "stage_name", r.stage.Name)
	}
	ctx, logger := ctxlog.With(ctx, attrs...)

	logger.Debug("Waiting for dependencies.", "pending", r.ready.Count())
	if err := r.ready.Wait(ctx); err != nil {
		logger.Warn("Stage abandoned while waiting for dependencies.", "error", err)
		ev := x.abandon(r.pos, err)
		cfg.hooks.finish(ctx, ev)
		return nil
	}

	if cause := r.ready.Err(); cause != nil {
		logger.Warn("Skipping stage due to upstream failure.", "error", cause)
		ev := x.skip(r.pos, fmt.Errorf("%w: %w", ErrDependencyFailed, cause))
		cfg.hooks.finish(ctx, ev)
		r.signal(ctx, cause)
		return nil
	}

	logger.Info("▶️ Running stage")
	start := x.begin(r.pos)
	cfg.hooks.start(ctx, start)

	err := r.execute(ctx)
	if err != nil {
		fault := &StageFault{ID: r.stage.ID, Name: r.stage.Name, Err: err}
		logger.Error("Stage failed.", "error", err)
		ev := x.fail(r.pos, fault)
		cfg.hooks.finish(ctx, ev)
		if cfg.policy == FaultHang {
			logger.Warn("Dependents will wait until the execution is cancelled.", "dependents", len(r.dependents))
			return fault
		}
		r.signal(ctx, fault)
		return fault
	}

	ev := x.succeed(r.pos)
	logger.Info("✅ Stage finished", "duration", ev.Duration.Round(time.Millisecond))
	cfg.hooks.finish(ctx, ev)
	r.signal(ctx, nil)
	return nil
}

// execute runs the work, converting a panic into a *StagePanicError.
func (r *runner) execute(ctx context.Context) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &StagePanicError{ID: r.stage.ID, Value: v, Stack: debug.Stack()}
		}
	}()
	return r.stage.Work(ctx)
}

// signal decrements every dependent latch, attaching cause when non-nil.
func (r *runner) signal(ctx context.Context, cause error) {
	if len(r.dependents) == 0 {
		return
	}
	ctxlog.FromContext(ctx).Debug("Signaling dependents.", "count", len(r.dependents))
	for _, l := range r.dependents {
		if cause != nil {
			l.SignalError(cause)
			continue
		}
		l.Signal()
	}
}
