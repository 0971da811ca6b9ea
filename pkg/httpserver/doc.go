// Package httpserver runs an http.Handler with graceful shutdown.
//
// Run blocks until the context is canceled or SIGINT/SIGTERM arrives, then
// drains in-flight requests within the shutdown timeout. Health exposes
// liveness and readiness probes built from named dependency checks.
package httpserver
