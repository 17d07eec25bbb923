// Package main is the entry point for the obsquery service and CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"obsquery/bootstrap"
	"obsquery/cmd"
	_ "obsquery/docs"
)

// run initializes and starts the obsquery HTTP service.
func run() error {
	ctx := context.Background()

	// Create and initialize application
	app, err := bootstrap.NewApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	// Start all services
	if err := app.Start(ctx); err != nil {
		app.Shutdown()
		return fmt.Errorf("failed to start application: %w", err)
	}

	// Wait for shutdown signal
	app.WaitForShutdown()

	// Graceful shutdown
	app.Shutdown()

	return nil
}

// main is the entry point.
func main() {
	os.Exit(cmd.Execute(run))
}
