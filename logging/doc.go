// Package logging provides a minimal logging interface and adapters for planmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the orchestration core uses for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - PlannerLogger with conversation/organization scoped helpers
//
// The design intentionally keeps the interface minimal so callers can plug
// any structured logger while the core stays decoupled from a concrete
// logging backend.
package logging
