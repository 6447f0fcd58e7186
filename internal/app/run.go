package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/vk/stagechain/internal/ctxlog"
	"github.com/vk/stagechain/internal/dag"
)

// Run loads the chain, compiles it and executes it to completion.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if err := a.startHealthcheckServer(ctx); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.closeHealthcheckServer(ctx))
	}()

	chain, err := a.loader.Load(ctx, a.config.ChainPath)
	if err != nil {
		return fmt.Errorf("failed to load chain: %w", err)
	}
	if len(chain.Stages) == 0 {
		return fmt.Errorf("no stages found in %s", a.config.ChainPath)
	}
	a.logger.Debug("Chain loaded.", "stages", len(chain.Stages))

	plan, err := a.buildPlan(ctx, chain)
	if err != nil {
		return fmt.Errorf("failed to build plan: %w", err)
	}

	if a.config.DOTPath != "" {
		if err := a.exportDOT(plan); err != nil {
			return err
		}
	}

	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	x := plan.Start(ctx,
		dag.WithFaultPolicy(a.config.faultPolicy()),
		dag.WithHooks(a.metrics.Hooks()),
	)
	runErr := x.Wait()

	summary := make(map[dag.Status]int)
	for _, r := range x.Reports() {
		summary[r.Status]++
	}
	a.logger.Info("Execution summary.",
		"run_id", x.ID(),
		string(dag.StatusSucceeded), summary[dag.StatusSucceeded],
		string(dag.StatusFailed), summary[dag.StatusFailed],
		string(dag.StatusSkipped), summary[dag.StatusSkipped],
		string(dag.StatusAbandoned), summary[dag.StatusAbandoned],
	)

	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// exportDOT writes the plan graph to the configured path, or to the app
// output when the path is "-".
func (a *App) exportDOT(plan *dag.Plan) error {
	if a.config.DOTPath == "-" {
		return plan.ExportDOT(a.outW)
	}
	f, err := os.Create(a.config.DOTPath)
	if err != nil {
		return fmt.Errorf("failed to create DOT file: %w", err)
	}
	if err := plan.ExportDOT(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to export plan: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to export plan: %w", err)
	}
	a.logger.Debug("Plan exported.", "path", a.config.DOTPath)
	return nil
}
