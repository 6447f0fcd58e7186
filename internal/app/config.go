package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/stagechain/internal/dag"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ChainPath string // .hcl, .yaml or .yml files, or a directory of them

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// FaultPolicy is "propagate" (default) or "hang".
	FaultPolicy string
	// SparseIDs accepts identifiers that do not form a contiguous range.
	SparseIDs bool
	// Timeout cancels the execution after the given duration. Zero disables it.
	Timeout time.Duration
	// DOTPath receives the plan in Graphviz format before execution. "-"
	// writes it to the app output.
	DOTPath string
}

// NewConfig validates cfg and returns a copy ready for NewApp.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ChainPath == "" {
		return nil, errors.New("ChainPath is a required configuration field and cannot be empty")
	}
	if _, err := dag.ParseFaultPolicy(cfg.FaultPolicy); err != nil {
		return nil, err
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %s", cfg.Timeout)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck port %d is out of range", cfg.HealthcheckPort)
	}
	return &cfg, nil
}

func (c *Config) faultPolicy() dag.FaultPolicy {
	p, _ := dag.ParseFaultPolicy(c.FaultPolicy)
	return p
}
