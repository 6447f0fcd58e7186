package sleep

import (
	"context"
	"time"

	"github.com/vk/stagechain/internal/ctxlog"
	"github.com/vk/stagechain/internal/dag"
	"github.com/vk/stagechain/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// NewSleep is the factory for the 'sleep' action. The stage waits for the
// given duration and returns early with the context error if cancelled.
func NewSleep(args registry.Args, _ registry.Env) (dag.Work, error) {
	if err := args.Allow("duration"); err != nil {
		return nil, err
	}
	d, err := args.Duration("duration")
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		ctxlog.FromContext(ctx).Debug("Sleeping.", "duration", d)
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, nil
}

// Register registers the action with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("sleep", NewSleep)
}
