package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/execbox/config"
)

func TestNewRunner(t *testing.T) {
	cfg := &config.Config{
		Sandbox: config.SandboxConfig{
			MemoryMB:          256,
			CPUCores:          1,
			ScratchSizeMB:     32,
			CleanupTimeoutSec: 5,
		},
	}
	engine := &MockEngine{}
	profiles := DefaultProfiles()

	runner := NewRunner(zaptest.NewLogger(t), cfg, profiles, engine)

	docker, ok := runner.(*DockerRunner)
	require.True(t, ok)
	assert.Equal(t, 256, docker.config.MemoryMB)
	assert.InDelta(t, 1.0, docker.config.CPUCores, 0.0001)
	assert.Equal(t, 32, docker.config.ScratchSizeMB)
	assert.Equal(t, 5*time.Second, docker.config.CleanupTimeout)
	assert.Same(t, profiles, docker.profiles)
}

func TestNewEngine(t *testing.T) {
	cfg := &config.Config{Sandbox: config.SandboxConfig{DockerHost: "tcp://127.0.0.1:2375"}}

	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	require.NotNil(t, engine)
	assert.NoError(t, engine.Close())
}

func TestWarmup(t *testing.T) {
	t.Run("PullsEachImageOnce", func(t *testing.T) {
		engine := &MockEngine{}
		err := Warmup(context.Background(), zaptest.NewLogger(t), engine, DefaultProfiles())
		require.NoError(t, err)
		assert.ElementsMatch(t, DefaultProfiles().Images(), engine.pulled)
	})

	t.Run("CollectsFailures", func(t *testing.T) {
		engine := &MockEngine{pullErrs: map[string]error{"gcc:13": errors.New("rate limited")}}
		err := Warmup(context.Background(), zaptest.NewLogger(t), engine, DefaultProfiles())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to pull gcc:13")
		assert.Len(t, engine.pulled, 3)
	})
}
