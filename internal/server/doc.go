// Package server provides the HTTP server for the adcbridge plotter and API.
//
// This package is internal to adcbridge and handles all HTTP concerns:
//
//   - Plotter page: Serves the embedded HTML/JS plotter at "/"
//   - REST API: JSON snapshot of source and subscriber state at "/api/status"
//   - Real-time stream: Mounts the websocket handler at the configured path
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the adcbridge library should not need to interact with this
// package directly. The server is started automatically by [adcbridge.Bridge.Start].
package server
