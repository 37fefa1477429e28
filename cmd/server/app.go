package main

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/isdmx/execbox/api"
	"github.com/isdmx/execbox/config"
	"github.com/isdmx/execbox/execution"
	"github.com/isdmx/execbox/logger"
	"github.com/isdmx/execbox/mcpserver"
	"github.com/isdmx/execbox/sandbox"
	"github.com/isdmx/execbox/store"
)

// storeDialTimeout bounds connecting to the primary store at startup
const storeDialTimeout = 10 * time.Second

// coreModule wires everything needed to accept and run executions
var coreModule = fx.Options(
	fx.Provide(
		// Config
		config.New,

		// Logger with configuration
		logger.NewFromConfig,

		// Sandbox
		sandbox.NewProfiles,
		newEngine,
		sandbox.NewRunner,

		// Records
		newStore,
		newRepository,

		// Coordinator
		newService,
	),

	// Use the application logger for fx logs
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),
)

func newEngine(lc fx.Lifecycle, cfg *config.Config) (sandbox.Engine, error) {
	engine, err := sandbox.NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return engine.Close()
		},
	})
	return engine, nil
}

func newStore(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config) (*store.FallbackStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeDialTimeout)
	defer cancel()

	s, err := store.NewFromConfig(ctx, log, cfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return s.Close()
		},
	})
	return s, nil
}

func newRepository(s *store.FallbackStore) *execution.Repository {
	return execution.NewRepository(s)
}

func newService(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, runner sandbox.Runner, profiles *sandbox.Profiles, repo *execution.Repository) *execution.Service {
	svc := execution.NewServiceFromConfig(log, cfg, runner, profiles, repo)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("waiting for in-flight executions")
			return svc.Shutdown(ctx)
		},
	})
	return svc
}

// serviceCoordinators exposes the service to the HTTP and MCP boundaries
func serviceCoordinators(svc *execution.Service) (api.Coordinator, mcpserver.Coordinator) {
	return svc, svc
}
