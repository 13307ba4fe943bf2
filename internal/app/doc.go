// Package app wires the StatTwin HTTP server: configuration, logging,
// OpenTelemetry, the services and their handlers, and graceful shutdown.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, STATTWIN_* environment)
//	2. Initialize the slog logger
//	3. Resolve and create the working directories
//	4. Initialize OpenTelemetry and the business metrics
//	5. Build the preprocessing pipeline, league registry and services
//	6. Load the configured player table
//	7. Set up middleware, routes and the HTTP server
//
// A dataset that fails to load does not stop startup. The server comes up
// and /api/health/ready answers 503 until POST /api/v1/dataset/reload
// succeeds.
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return app.Run()
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM, then drains in-flight requests within
// the configured shutdown timeout and flushes the telemetry providers.
//
// # Error Handling
//
// All initialization errors are returned to the caller. The package never
// calls os.Exit.
package app
