// Package api exposes the execution service over HTTP.
//
// Routes:
//
//	POST /api/execute       submit code, returns 202 with the execution id
//	GET  /api/status/{id}   poll an execution record
//	GET  /api/languages     list supported language profiles
//	GET  /healthz           liveness
package api
