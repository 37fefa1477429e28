// Package sandbox provides secure code execution capabilities.
//
// The sandbox package implements the execution engine for running untrusted
// code in isolated containers. Each execution gets its own container with no
// network, a read-only root filesystem apart from a tmpfs scratch directory,
// a memory ceiling and a fractional CPU quota. The runner races container
// exit against a wall-clock deadline and always stops and removes the
// container before returning.
//
// Container output is read from the engine's multiplexed log stream and
// split into stdout and stderr by Demultiplex.
//
// Usage:
//
//	engine, err := sandbox.NewEngine(cfg)
//	runner := sandbox.NewRunner(logger, cfg, sandbox.DefaultProfiles(), engine)
//	output, err := runner.Run(ctx, sandbox.RunRequest{
//	    ExecutionID: id,
//	    Language:    "python",
//	    Code:        "print('Hello, World!')",
//	    Timeout:     10 * time.Second,
//	})
package sandbox
