package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/planmesh/planmesh/logging"
)

// End is the terminal sentinel. Routing to End halts the invocation and
// returns the state accumulated so far.
const End = "__end__"

// DefaultMaxIterations bounds the number of steps one invocation may execute.
// Conditional edges may form cycles, so the ceiling is what turns a buggy
// router into an error instead of an infinite loop.
const DefaultMaxIterations = 25

var (
	// ErrIterationLimit is returned when an invocation exceeds the step ceiling.
	ErrIterationLimit = fmt.Errorf("workflow iteration limit exceeded")
)

// NodeFunc is a single state-transforming step. It must tolerate missing
// optional state fields (degrade to defaults) but propagates failures from
// its own side effects; the executor performs no implicit retry.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// RouterFunc resolves the next step name from the post-step state. Returning
// End terminates the invocation.
type RouterFunc[S any] func(state S) string

// StepError wraps a failure raised by a named step. The invocation aborts
// and no partial state is committed by callers that persist only on success.
type StepError struct {
	Step string
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

// Unwrap exposes the underlying step failure for errors.Is/As.
func (e *StepError) Unwrap() error { return e.Err }

// StepObserver receives a notification after every executed step. Used to
// feed metrics without coupling the executor to an instrumentation backend.
type StepObserver func(step string, duration time.Duration, err error)

// Builder accumulates nodes and edges for one workflow definition.
// It is not safe for concurrent use; build definitions at process start.
type Builder[S any] struct {
	name          string
	nodes         map[string]NodeFunc[S]
	edges         map[string]string
	routers       map[string]RouterFunc[S]
	entry         string
	maxIterations int
	logger        logging.Logger
	observer      StepObserver
}

// NewBuilder creates an empty builder for a named workflow.
func NewBuilder[S any](name string) *Builder[S] {
	return &Builder[S]{
		name:          name,
		nodes:         make(map[string]NodeFunc[S]),
		edges:         make(map[string]string),
		routers:       make(map[string]RouterFunc[S]),
		maxIterations: DefaultMaxIterations,
		logger:        logging.NoOpLogger{},
	}
}

// AddNode registers a named step.
func (b *Builder[S]) AddNode(name string, fn NodeFunc[S]) *Builder[S] {
	b.nodes[name] = fn
	return b
}

// AddEdge registers the single static transition out of a step.
func (b *Builder[S]) AddEdge(from, to string) *Builder[S] {
	b.edges[from] = to
	return b
}

// AddConditionalEdge registers a routing function evaluated against the
// post-step state. A step with a router must not also have a static edge.
func (b *Builder[S]) AddConditionalEdge(from string, router RouterFunc[S]) *Builder[S] {
	b.routers[from] = router
	return b
}

// SetEntryPoint names the step every invocation starts from.
func (b *Builder[S]) SetEntryPoint(name string) *Builder[S] {
	b.entry = name
	return b
}

// WithMaxIterations overrides the step ceiling for this definition.
func (b *Builder[S]) WithMaxIterations(n int) *Builder[S] {
	if n > 0 {
		b.maxIterations = n
	}
	return b
}

// WithLogger attaches a logger used during invocations.
func (b *Builder[S]) WithLogger(l logging.Logger) *Builder[S] {
	if l != nil {
		b.logger = l
	}
	return b
}

// WithStepObserver attaches a per-step observer (metrics hook).
func (b *Builder[S]) WithStepObserver(obs StepObserver) *Builder[S] {
	b.observer = obs
	return b
}

// Compile validates the accumulated graph and freezes it into an immutable
// Definition. Validation rules:
//   - an entry point is set and registered
//   - every static edge leaves a registered node toward a registered node or End
//   - no node carries both a static edge and a router
//   - every node has some way out (static edge or router)
func (b *Builder[S]) Compile() (*Definition[S], error) {
	if b.entry == "" {
		return nil, fmt.Errorf("workflow %s: no entry point set", b.name)
	}
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, fmt.Errorf("workflow %s: entry point %q is not a registered node", b.name, b.entry)
	}
	for from, to := range b.edges {
		if _, ok := b.nodes[from]; !ok {
			return nil, fmt.Errorf("workflow %s: edge from unknown node %q", b.name, from)
		}
		if _, ok := b.routers[from]; ok {
			return nil, fmt.Errorf("workflow %s: node %q has both a static and a conditional edge", b.name, from)
		}
		if to != End {
			if _, ok := b.nodes[to]; !ok {
				return nil, fmt.Errorf("workflow %s: edge from %q to unknown node %q", b.name, from, to)
			}
		}
	}
	for from := range b.routers {
		if _, ok := b.nodes[from]; !ok {
			return nil, fmt.Errorf("workflow %s: conditional edge from unknown node %q", b.name, from)
		}
	}
	for name := range b.nodes {
		_, hasEdge := b.edges[name]
		_, hasRouter := b.routers[name]
		if !hasEdge && !hasRouter {
			return nil, fmt.Errorf("workflow %s: node %q has no outgoing edge", b.name, name)
		}
	}

	return &Definition[S]{
		name:          b.name,
		nodes:         b.nodes,
		edges:         b.edges,
		routers:       b.routers,
		entry:         b.entry,
		maxIterations: b.maxIterations,
		logger:        b.logger,
		observer:      b.observer,
	}, nil
}

// MustCompile is Compile panicking on error; intended for definitions built
// from static tables at process start.
func MustCompile[S any](b *Builder[S]) *Definition[S] {
	d, err := b.Compile()
	if err != nil {
		panic(err)
	}
	return d
}

// Definition is an immutable, compiled workflow. It owns no mutable state
// and is safe to share across conversations and goroutines.
type Definition[S any] struct {
	name          string
	nodes         map[string]NodeFunc[S]
	edges         map[string]string
	routers       map[string]RouterFunc[S]
	entry         string
	maxIterations int
	logger        logging.Logger
	observer      StepObserver
}

// Name returns the workflow's name.
func (d *Definition[S]) Name() string { return d.name }

// EntryPoint returns the step every invocation starts from.
func (d *Definition[S]) EntryPoint() string { return d.entry }

// HasNode reports whether a step with the given name is registered.
func (d *Definition[S]) HasNode(name string) bool {
	_, ok := d.nodes[name]
	return ok
}

// InvokeOptions tunes a single invocation.
type InvokeOptions struct {
	// StartAt forces the invocation to begin at the named step instead of
	// the definition's entry point, bypassing default routing for exactly
	// one transition. Used by debug tooling and supervisor overrides.
	StartAt string
}

// WithStartAt returns an invoke option forcing the first step.
func WithStartAt(step string) func(o *InvokeOptions) {
	return func(o *InvokeOptions) { o.StartAt = step }
}

// Invoke executes a single pass over the state, from the entry step (or the
// override) to End. Routing: a conditional edge, when registered, is
// evaluated against the post-step state; otherwise the single static edge is
// followed. Any step failure aborts the invocation and is returned wrapped
// in a StepError alongside the state as it stood before the failing step.
//
// Given identical state and identical step outputs, Invoke is deterministic:
// the same step sequence and final state result every time.
func (d *Definition[S]) Invoke(ctx context.Context, state S, optFns ...func(o *InvokeOptions)) (S, error) {
	var opts InvokeOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	current := d.entry
	if opts.StartAt != "" {
		if !d.HasNode(opts.StartAt) {
			return state, fmt.Errorf("workflow %s: override step %q is not a registered node", d.name, opts.StartAt)
		}
		current = opts.StartAt
	}

	for i := 0; i < d.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		fn, ok := d.nodes[current]
		if !ok {
			return state, fmt.Errorf("workflow %s: routed to unknown step %q", d.name, current)
		}

		start := time.Now()
		next, err := fn(ctx, state)
		dur := time.Since(start)
		if d.observer != nil {
			d.observer(current, dur, err)
		}
		if err != nil {
			d.logger.Error("workflow step failed", "workflow", d.name, "step", current, "error", err)
			return state, &StepError{Step: current, Err: err}
		}
		state = next
		d.logger.Debug("workflow step completed", "workflow", d.name, "step", current, "duration_ms", dur.Milliseconds())

		if router, ok := d.routers[current]; ok {
			current = router(state)
		} else {
			current = d.edges[current]
		}
		if current == End {
			return state, nil
		}
	}

	return state, fmt.Errorf("workflow %s: %w after %d steps", d.name, ErrIterationLimit, d.maxIterations)
}
