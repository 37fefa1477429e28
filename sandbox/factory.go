package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"github.com/isdmx/execbox/config"
)

// NewEngine connects to the Docker engine named by the environment or by
// sandbox.docker_host.
func NewEngine(cfg *config.Config) (Engine, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.Sandbox.DockerHost != "" {
		opts = append(opts, client.WithHost(cfg.Sandbox.DockerHost))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return cli, nil
}

// NewRunner creates the container runner from the application configuration
func NewRunner(logger *zap.Logger, cfg *config.Config, profiles *Profiles, engine Engine) Runner {
	runnerConfig := Config{
		MemoryMB:       cfg.Sandbox.MemoryMB,
		CPUCores:       cfg.Sandbox.CPUCores,
		ScratchSizeMB:  cfg.Sandbox.ScratchSizeMB,
		CleanupTimeout: cfg.GetCleanupTimeout(),
	}

	return NewDockerRunner(logger, &runnerConfig, engine, WithDockerProfiles(profiles))
}

// Warmup pulls every profile image so first executions do not pay for it.
// The pull stream must be drained or the engine abandons the download.
func Warmup(ctx context.Context, logger *zap.Logger, engine Engine, profiles *Profiles) error {
	var errs []error
	for _, ref := range profiles.Images() {
		logger.Info("pulling image", zap.String("image", ref))

		out, err := engine.ImagePull(ctx, ref, image.PullOptions{})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to pull %s: %w", ref, err))
			continue
		}

		_, err = io.Copy(io.Discard, out)
		out.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read pull stream for %s: %w", ref, err))
		}
	}
	return errors.Join(errs...)
}
