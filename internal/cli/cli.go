package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/stagechain/internal/app"
	"github.com/vk/stagechain/internal/dag"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("stagechain", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
StageChain - Runs a chain of stages concurrently, respecting their dependencies.

Usage:
  stagechain [options] [CHAIN_PATH]

Arguments:
  CHAIN_PATH
    Path to a .hcl/.yaml/.yml file or a directory containing them.

Options:
`)
		flagSet.PrintDefaults()
	}

	chainFlag := flagSet.String("chain", "", "Path to the chain file or directory.")
	cFlag := flagSet.String("c", "", "Path to the chain file or directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	onFaultFlag := flagSet.String("on-fault", "propagate", "What dependents of a failed stage do. Options: 'propagate' or 'hang'.")
	sparseFlag := flagSet.Bool("sparse-ids", false, "Accept stage ids that do not form a contiguous range.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Cancel the execution after this duration. 0 is no timeout.")
	dotFlag := flagSet.String("dot", "", "Write the plan in Graphviz DOT format to this path ('-' for stdout).")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *chainFlag != "" {
		path = *chainFlag
	} else if *cFlag != "" {
		path = *cFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Chain path determined.", "path", path)

	if path == "" {
		slog.Debug("No chain path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	policy, err := dag.ParseFaultPolicy(*onFaultFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: "invalid on-fault: must be 'propagate' or 'hang'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ChainPath:       path,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		FaultPolicy:     policy.String(),
		SparseIDs:       *sparseFlag,
		Timeout:         *timeoutFlag,
		DOTPath:         *dotFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
