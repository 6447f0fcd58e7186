package print

import (
	"context"
	"fmt"

	"github.com/vk/stagechain/internal/ctxlog"
	"github.com/vk/stagechain/internal/dag"
	"github.com/vk/stagechain/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the print action.
type Input struct {
	Message string
	Prefix  string
}

// NewPrint is the factory for the 'print' action.
func NewPrint(args registry.Args, env registry.Env) (dag.Work, error) {
	if err := args.Allow("message", "prefix"); err != nil {
		return nil, err
	}
	var in Input
	var err error
	if in.Message, err = args.String("message"); err != nil {
		return nil, err
	}
	if in.Prefix, err = args.OptionalString("prefix", ""); err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		ctxlog.FromContext(ctx).Info("Printing message")
		_, err := fmt.Fprintf(env.Out, "%s%s\n", in.Prefix, in.Message)
		return err
	}, nil
}

// Register registers the action with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("print", NewPrint)
}
