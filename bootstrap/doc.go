// Package bootstrap turns configuration into a running obsquery service.
//
// NewApp loads config, builds the zap logger, opens the search index and the
// document store (retrying remote backends), and wires the query pipeline.
// Start serves the HTTP API; WaitForShutdown blocks until SIGINT, SIGTERM or
// a fatal server error, after which Shutdown stops the API, drains
// background goroutines and closes both backends.
//
// The query and load subcommands call InitComponents directly and never
// start the HTTP server.
package bootstrap
