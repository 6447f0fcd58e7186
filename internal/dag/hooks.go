package dag

import (
	"context"
	"time"
)

// StageEvent describes a stage lifecycle transition.
type StageEvent struct {
	RunID     string
	ID        int
	Name      string
	Status    Status
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// HookFunc is invoked for lifecycle notifications. Hooks run on the stage's
// runner goroutine and must be safe for concurrent use.
type HookFunc func(context.Context, StageEvent)

// Hooks aggregates optional lifecycle callbacks.
type Hooks struct {
	// OnStart fires right before a stage's work begins.
	OnStart HookFunc
	// OnFinish fires once per stage with its terminal status.
	OnFinish HookFunc
}

// Merge combines two hook sets, running the receiver first.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnStart:  chainHooks(h.OnStart, other.OnStart),
		OnFinish: chainHooks(h.OnFinish, other.OnFinish),
	}
}

func (h Hooks) start(ctx context.Context, ev StageEvent) {
	if h.OnStart != nil {
		h.OnStart(ctx, ev)
	}
}

func (h Hooks) finish(ctx context.Context, ev StageEvent) {
	if h.OnFinish != nil {
		h.OnFinish(ctx, ev)
	}
}

func chainHooks(first, second HookFunc) HookFunc {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	default:
		return func(ctx context.Context, ev StageEvent) {
			first(ctx, ev)
			second(ctx, ev)
		}
	}
}
