// Package app provides application initialization and lifecycle
// management for the rates API serve mode. It wires the extraction
// pipeline, the in-memory payload store and the HTTP surface, and
// handles graceful shutdown.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Initialize logging and observability
//	2. Wire the fetch client, PDF extractor and orchestrator
//	3. Set up HTTP handlers and middleware
//	4. Configure the HTTP server and the refresh schedule
//	5. Seed the store with the newest publication on Start
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// # Graceful Shutdown
//
// The package handles SIGINT and SIGTERM signals to ensure:
//
//	- Active requests are completed
//	- A running scheduled refresh finishes or is abandoned at the
//	  shutdown deadline
//	- Final metrics are flushed
//
// # Error Handling
//
// All initialization errors are returned to the caller for proper
// handling. The app does not call os.Exit() directly, allowing
// the main function to control the exit process.
package app
