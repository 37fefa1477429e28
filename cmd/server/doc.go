// Package main is the entry point for the execbox code execution service.
//
// execbox runs untrusted programs (JavaScript, Python, Java, C++ and C) in
// short-lived, network-less Docker containers with memory and CPU ceilings
// and a hard wall-clock deadline. Executions are submitted asynchronously and
// polled by id over HTTP or through MCP tools.
//
// Commands:
//
//	execbox serve                          run the service (HTTP or MCP stdio)
//	execbox run --language python main.py  execute one file and print its output
//
// The application uses Uber's fx framework for dependency injection and lifecycle
// management, with zap for structured logging and viper for configuration.
package main
