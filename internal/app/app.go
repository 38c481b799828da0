package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/starmeasgo/internal/config"
	"github.com/vk/starmeasgo/internal/ctxlog"
	"github.com/vk/starmeasgo/internal/forced"
	"github.com/vk/starmeasgo/internal/plugin"
	"github.com/vk/starmeasgo/internal/plugins"
)

// RegisterFunc publishes a plugin set into a registry.
type RegisterFunc func(*plugin.Registry)

// App encapsulates the application's dependencies, configuration, and
// lifecycle. Its pipeline is built and validated at construction and frozen
// afterwards.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	registry  *plugin.Registry
	config    *config.Model
	converter config.Converter
	pipeline  *Pipeline
}

// New is the constructor for the main application. It loads configuration,
// registers plugins, and builds the full measurement pipeline, panicking on
// any configuration error: a pipeline that cannot be built must never be
// handed to a caller half-constructed.
func New(outW io.Writer, appConfig *Config, loader config.Loader, registrars ...RegisterFunc) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfgModel, converter, err := loader.Load(ctx, appConfig.PipelinePath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	reg := plugin.NewRegistry()
	if len(registrars) == 0 {
		registrars = []RegisterFunc{plugins.RegisterAll, forced.RegisterPlugins}
	}
	for _, register := range registrars {
		register(reg)
	}
	logger.Debug("All measurement plugins registered.", "count", len(reg.Names()))

	pipeline, err := buildPipeline(ctx, cfgModel.Pipeline, reg, converter)
	if err != nil {
		// A mismatch between configuration and the registered plugin set is
		// fatal at startup.
		panic(err)
	}
	logger.Debug("Pipeline built and validated.",
		"plugins", len(pipeline.Task.PluginNames()),
		"fields", len(pipeline.Schema.Names()),
	)

	return &App{
		outW:      outW,
		logger:    logger,
		registry:  reg,
		config:    cfgModel,
		converter: converter,
		pipeline:  pipeline,
	}
}

// Registry returns the application's plugin registry. This is primarily for
// testing.
func (a *App) Registry() *plugin.Registry {
	return a.registry
}

// Pipeline returns the built pipeline. This is primarily for testing.
func (a *App) Pipeline() *Pipeline {
	return a.pipeline
}
