// Package workflow provides the generic graph-based step executor that
// drives every planmesh agent.
//
// A workflow is built once at process start from named steps (nodes), static
// transitions (edges) and conditional transitions (routers), compiled into an
// immutable Definition, and then invoked once per user turn. Each invocation
// threads a single mutable state value from the entry step to the End
// sentinel.
//
// Cycles are permitted through conditional edges, so every Definition carries
// a hard iteration ceiling; exceeding it aborts the invocation with
// ErrIterationLimit instead of spinning on a buggy router.
package workflow
