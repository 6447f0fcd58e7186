package app

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vk/stagechain/internal/config"
	"github.com/vk/stagechain/internal/metrics"
	"github.com/vk/stagechain/internal/registry"
	"github.com/vk/stagechain/modules/exec"
	"github.com/vk/stagechain/modules/fail"
	"github.com/vk/stagechain/modules/http_request"
	"github.com/vk/stagechain/modules/print"
	"github.com/vk/stagechain/modules/sleep"
	"github.com/vk/stagechain/modules/socketio"
)

// coreModules is the definitive list of all modules that are compiled into
// the stagechain binary.
var coreModules = []registry.Module{
	&print.Module{},
	&sleep.Module{},
	&exec.Module{},
	&fail.Module{},
	&http_request.Module{},
	&socketio.Module{},
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   config.Loader
	registry *registry.Registry

	promRegistry *prometheus.Registry
	metrics      *metrics.Collector
	httpServer   *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own logger, registry and metrics. When no
// modules are given, the core modules are registered.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "actions", reg.Names())

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &App{
		outW:         outW,
		logger:       logger,
		config:       cfg,
		loader:       loader,
		registry:     reg,
		promRegistry: promRegistry,
		metrics:      metrics.New(promRegistry),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Gatherer exposes the application's metrics. This is primarily for testing.
func (a *App) Gatherer() prometheus.Gatherer {
	return a.promRegistry
}
