// Package exec provides an action that runs an external command.
package exec

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/vk/stagechain/internal/ctxlog"
	"github.com/vk/stagechain/internal/dag"
	"github.com/vk/stagechain/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the exec action.
type Input struct {
	Command string
	Args    []string
	Dir     string
}

// NewExec is the factory for the 'exec' action. The command's stdout and
// stderr go to the app output; a non-zero exit status fails the stage.
func NewExec(args registry.Args, env registry.Env) (dag.Work, error) {
	if err := args.Allow("command", "args", "dir"); err != nil {
		return nil, err
	}
	var in Input
	var err error
	if in.Command, err = args.String("command"); err != nil {
		return nil, err
	}
	if in.Args, err = args.StringList("args"); err != nil {
		return nil, err
	}
	if in.Dir, err = args.OptionalString("dir", ""); err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		logger := ctxlog.FromContext(ctx)
		logger.Info("Running command", "command", in.Command, "args", in.Args)

		cmd := exec.CommandContext(ctx, in.Command, in.Args...)
		cmd.Dir = in.Dir
		cmd.Stdout = env.Out
		cmd.Stderr = env.Out
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("command %q: %w", in.Command, err)
		}

		logger.Debug("Command finished.", "command", in.Command)
		return nil
	}, nil
}

// Register registers the action with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("exec", NewExec)
}
