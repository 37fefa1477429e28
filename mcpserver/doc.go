// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package exposes the execution service as two MCP tools built
// with the mark3labs/mcp-go library: execute_code submits a program and
// returns its execution id, and get_execution_status returns the execution
// record.
//
// The server is reachable over stdio or mounted on the HTTP router at /mcp,
// as selected by server.transport.
//
// Usage:
//
//	server, err := mcpserver.New(config, logger, service)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or router.Mount("/mcp", server.HTTPHandler())
package mcpserver
