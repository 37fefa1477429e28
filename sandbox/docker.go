// Package sandbox provides secure code execution capabilities.
//
// The DockerRunner drives one container per execution through the Docker
// engine API: create with network, filesystem and resource limits, start,
// race exit against the deadline, collect logs, and always tear down.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/araddon/dateparse"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"go.uber.org/zap"

	"github.com/isdmx/execbox/logger"
)

// Engine is the subset of the Docker engine API the runner needs.
// *client.Client satisfies it.
type Engine interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	Close() error
}

// ErrTimeout marks executions that hit their deadline.
var ErrTimeout = errors.New("execution timed out")

// TimeoutError reports the deadline an execution exceeded
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Timeout%time.Second == 0 {
		return fmt.Sprintf("Execution timed out after %d seconds", int(e.Timeout/time.Second))
	}
	return fmt.Sprintf("Execution timed out after %s", e.Timeout)
}

// Is reports ErrTimeout as the sentinel for every TimeoutError
func (*TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Container labels and limits
const (
	LabelExecutionID = "execbox.execution-id"
	MaxLogBytes      = 1 << 20
	bytesPerMB       = 1024 * 1024
)

// Config holds the container limits applied to every execution
type Config struct {
	MemoryMB       int
	CPUCores       float64
	ScratchSizeMB  int
	CleanupTimeout time.Duration
}

// DockerRunner implements Runner using the Docker engine API
type DockerRunner struct {
	logger   *zap.Logger
	config   *Config
	profiles *Profiles
	engine   Engine
}

// DockerRunnerOption defines a functional option for DockerRunner
type DockerRunnerOption func(*DockerRunner)

// WithDockerProfiles sets the language profile table for DockerRunner
func WithDockerProfiles(profiles *Profiles) DockerRunnerOption {
	return func(d *DockerRunner) {
		d.profiles = profiles
	}
}

// NewDockerRunner creates a new DockerRunner on top of engine
func NewDockerRunner(logger *zap.Logger, config *Config, engine Engine, opts ...DockerRunnerOption) *DockerRunner {
	runner := &DockerRunner{
		logger:   logger,
		config:   config,
		profiles: DefaultProfiles(),
		engine:   engine,
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

type exitResult struct {
	output Output
	err    error
}

// Run executes req in a fresh container and returns its demultiplexed output.
// The container is stopped and removed before Run returns, whatever the outcome.
func (d *DockerRunner) Run(ctx context.Context, req RunRequest) (Output, error) {
	log := logger.ForExecution(d.logger, req.ExecutionID, req.Language)

	profile, ok := d.profiles.Lookup(req.Language)
	if !ok {
		return Output{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, req.Language)
	}

	resp, err := d.engine.ContainerCreate(ctx,
		d.containerConfig(profile, req),
		d.hostConfig(),
		nil, nil,
		containerName(req.ExecutionID))
	if err != nil {
		return Output{}, fmt.Errorf("failed to create container: %w", err)
	}
	for _, warning := range resp.Warnings {
		log.Warn("container create warning", zap.String("warning", warning))
	}

	containerID := resp.ID
	defer d.cleanup(ctx, log, containerID)

	if err := d.engine.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return Output{}, fmt.Errorf("failed to start container: %w", err)
	}
	log.Debug("container started",
		zap.String("container_id", shortID(containerID)),
		zap.String("image", profile.Image),
		zap.Duration("timeout", req.Timeout))

	return d.await(ctx, log, containerID, req.Timeout)
}

// await races container exit against the deadline. The losing side is
// cancelled; its result channel is buffered so it never blocks.
func (d *DockerRunner) await(ctx context.Context, log *zap.Logger, containerID string, timeout time.Duration) (Output, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	exited := make(chan exitResult, 1)
	go func() {
		output, err := d.collect(runCtx, log, containerID)
		exited <- exitResult{output: output, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-exited:
		return res.output, res.err
	case <-timer.C:
		log.Warn("execution timed out", zap.Duration("timeout", timeout))
		return Output{}, &TimeoutError{Timeout: timeout}
	case <-ctx.Done():
		return Output{}, fmt.Errorf("execution aborted: %w", ctx.Err())
	}
}

// collect waits for the container to stop and decodes its logs.
func (d *DockerRunner) collect(ctx context.Context, log *zap.Logger, containerID string) (Output, error) {
	waitCh, errCh := d.engine.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)

	var exitCode int
	select {
	case resp := <-waitCh:
		if resp.Error != nil {
			return Output{}, fmt.Errorf("container wait failed: %s", resp.Error.Message)
		}
		exitCode = int(resp.StatusCode)
	case err := <-errCh:
		return Output{}, fmt.Errorf("container wait failed: %w", err)
	}

	d.logExit(ctx, log, containerID, exitCode)

	logs, err := d.engine.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		log.Warn("failed to read container logs", zap.Error(err))
		return Demultiplex(nil, exitCode), nil
	}
	defer logs.Close()

	buf, err := io.ReadAll(io.LimitReader(logs, MaxLogBytes+1))
	if err != nil {
		log.Warn("container log stream ended early", zap.Error(err), zap.Int("bytes", len(buf)))
	}
	if len(buf) > MaxLogBytes {
		log.Warn("container output truncated", zap.Int("limit_bytes", MaxLogBytes))
		buf = buf[:MaxLogBytes]
	}

	return Demultiplex(buf, exitCode), nil
}

func (d *DockerRunner) logExit(ctx context.Context, log *zap.Logger, containerID string, exitCode int) {
	fields := []zap.Field{zap.Int("exit_code", exitCode)}

	inspect, err := d.engine.ContainerInspect(ctx, containerID)
	if err == nil && inspect.ContainerJSONBase != nil && inspect.State != nil {
		started, startErr := dateparse.ParseAny(inspect.State.StartedAt)
		finished, finishErr := dateparse.ParseAny(inspect.State.FinishedAt)
		if startErr == nil && finishErr == nil {
			fields = append(fields, zap.Duration("run_time", finished.Sub(started)))
		}
		if inspect.State.OOMKilled {
			fields = append(fields, zap.Bool("oom_killed", true))
		}
	} else if err != nil {
		log.Debug("failed to inspect container", zap.Error(err))
	}

	log.Info("container exited", fields...)
}

// cleanup stops the container without grace and force-removes it. Failures
// are logged only.
func (d *DockerRunner) cleanup(parent context.Context, log *zap.Logger, containerID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.config.CleanupTimeout)
	defer cancel()

	grace := 0
	if err := d.engine.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &grace}); err != nil {
		log.Warn("failed to stop container", zap.String("container_id", shortID(containerID)), zap.Error(err))
	}

	if err := d.engine.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		log.Error("failed to remove container", zap.String("container_id", shortID(containerID)), zap.Error(err))
		return
	}

	log.Debug("container removed", zap.String("container_id", shortID(containerID)))
}

func (*DockerRunner) containerConfig(profile Profile, req RunRequest) *container.Config {
	return &container.Config{
		Image:           profile.Image,
		Cmd:             BuildCommand(profile, req.Code, req.Input),
		WorkingDir:      ScratchDir,
		AttachStdout:    true,
		AttachStderr:    true,
		Tty:             false,
		NetworkDisabled: true,
		Labels: map[string]string{
			LabelExecutionID: req.ExecutionID,
		},
	}
}

func (d *DockerRunner) hostConfig() *container.HostConfig {
	return &container.HostConfig{
		NetworkMode:    "none",
		ReadonlyRootfs: true,
		Tmpfs: map[string]string{
			ScratchDir: fmt.Sprintf("rw,exec,size=%dm", d.config.ScratchSizeMB),
		},
		Resources: container.Resources{
			Memory:   int64(d.config.MemoryMB) * bytesPerMB,
			NanoCPUs: int64(d.config.CPUCores * 1e9),
		},
	}
}

func containerName(executionID string) string {
	return "execbox-" + executionID
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
