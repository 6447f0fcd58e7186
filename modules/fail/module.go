// Package fail provides an action that always fails. It is useful to try out
// fault policies from a chain file.
package fail

import (
	"context"
	"errors"

	"github.com/vk/stagechain/internal/dag"
	"github.com/vk/stagechain/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// NewFail is the factory for the 'fail' action.
func NewFail(args registry.Args, _ registry.Env) (dag.Work, error) {
	if err := args.Allow("message", "panic"); err != nil {
		return nil, err
	}
	msg, err := args.OptionalString("message", "stage failed")
	if err != nil {
		return nil, err
	}
	doPanic, err := args.Bool("panic", false)
	if err != nil {
		return nil, err
	}

	return func(context.Context) error {
		if doPanic {
			panic(msg)
		}
		return errors.New(msg)
	}, nil
}

// Register registers the action with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("fail", NewFail)
}
