package dag

import (
	"fmt"
	"strings"
)

// FaultPolicy decides what a failed stage does to the stages waiting on it.
type FaultPolicy int

const (
	// FaultPropagate releases the dependents of a failed stage with the
	// failure attached. They skip their work and pass the failure on.
	FaultPropagate FaultPolicy = iota
	// FaultHang leaves the dependents of a failed stage blocked until the
	// execution context is cancelled.
	FaultHang
)

func (p FaultPolicy) String() string {
	switch p {
	case FaultPropagate:
		return "propagate"
	case FaultHang:
		return "hang"
	default:
		return fmt.Sprintf("FaultPolicy(%d)", int(p))
	}
}

// ParseFaultPolicy converts a policy name ("propagate" or "hang").
func ParseFaultPolicy(s string) (FaultPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "propagate", "":
		return FaultPropagate, nil
	case "hang":
		return FaultHang, nil
	default:
		return FaultPropagate, fmt.Errorf("dag: unknown fault policy %q", s)
	}
}

// RunOption configures a single execution.
type RunOption func(*runConfig)

type runConfig struct {
	policy  FaultPolicy
	hooks   Hooks
	shuffle bool
	seed    uint64
}

func newRunConfig(opts []RunOption) runConfig {
	var cfg runConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithFaultPolicy selects how stage failures affect dependents.
func WithFaultPolicy(policy FaultPolicy) RunOption {
	return func(cfg *runConfig) {
		cfg.policy = policy
	}
}

// WithHooks registers lifecycle callbacks. Multiple calls are merged in order.
func WithHooks(h Hooks) RunOption {
	return func(cfg *runConfig) {
		cfg.hooks = cfg.hooks.Merge(h)
	}
}

// WithShuffledLaunch starts the runner goroutines in a pseudo-random order
// derived from seed.
func WithShuffledLaunch(seed uint64) RunOption {
	return func(cfg *runConfig) {
		cfg.shuffle = true
		cfg.seed = seed
	}
}
