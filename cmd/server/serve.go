package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/isdmx/execbox/api"
	"github.com/isdmx/execbox/config"
	"github.com/isdmx/execbox/mcpserver"
	"github.com/isdmx/execbox/sandbox"
)

// warmupTimeout bounds pulling every profile image
const warmupTimeout = 10 * time.Minute

// serveModule adds the transports on top of coreModule
var serveModule = fx.Options(
	coreModule,

	fx.Provide(
		serviceCoordinators,
		api.NewHandler,
		mcpserver.New,
	),

	fx.Invoke(warmupImages, startTransport),
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the execution service",
	Args:  cobra.NoArgs,
	Run: func(*cobra.Command, []string) {
		app := fx.New(
			serveModule,

			// Leave in-flight executions time to record their outcome
			fx.StopTimeout(time.Minute),
		)

		// Start the application
		app.Run()
	},
}

func warmupImages(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, engine sandbox.Engine, profiles *sandbox.Profiles) {
	if !cfg.Sandbox.PullImages {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				pullCtx, pullCancel := context.WithTimeout(ctx, warmupTimeout)
				defer pullCancel()

				if err := sandbox.Warmup(pullCtx, log.Named("warmup"), engine, profiles); err != nil {
					log.Warn("image warm-up incomplete, images are pulled on first use", zap.Error(err))
					return
				}
				log.Info("image warm-up complete")
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func startTransport(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, log *zap.Logger, handler *api.Handler, server *mcpserver.MCPServer) error {
	switch cfg.Server.Transport {
	case "stdio":
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				// Use fx to run this as a background task
				go func() {
					if err := server.ServeStdio(); err != nil {
						log.Error("MCP stdio server stopped", zap.Error(err))
					}
					_ = shutdowner.Shutdown()
				}()
				return nil
			},
		})
	case "http":
		router := api.NewRouter(log, handler, api.WithMount("/mcp", server.HTTPHandler()))
		httpServer := api.NewServer(log, fmt.Sprintf(":%d", cfg.Server.HTTPPort), router)
		lc.Append(fx.Hook{
			OnStart: httpServer.Start,
			OnStop:  httpServer.Stop,
		})
	default:
		return fmt.Errorf("unsupported transport: %s", cfg.Server.Transport)
	}
	return nil
}
