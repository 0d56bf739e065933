package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/logging"
	"github.com/planmesh/planmesh/memory"
	"github.com/planmesh/planmesh/model"
	"github.com/planmesh/planmesh/workflow"
)

// Deps carries the process-wide collaborators injected into every workflow
// definition at construction. No step reaches for a global: the model
// client, memory store and logger all arrive here.
type Deps struct {
	Model         model.Model
	Memory        core.MemoryStore
	Logger        logging.Logger
	MaxIterations int
	MaxMemory     int
	MemoryTTL     time.Duration
	// Observer receives per-step timings; the factory wires metrics here.
	Observer workflow.StepObserver
}

func (d *Deps) normalize() {
	if d.Model == nil {
		d.Model = model.NewMockModel("planmesh-mock")
	}
	if d.Memory == nil {
		d.Memory = memory.NewInMemoryStore()
	}
	if d.Logger == nil {
		d.Logger = logging.NoOpLogger{}
	}
	if d.MaxIterations <= 0 {
		d.MaxIterations = workflow.DefaultMaxIterations
	}
	if d.MaxMemory <= 0 {
		d.MaxMemory = memory.DefaultMaxItems
	}
	if d.MemoryTTL <= 0 {
		d.MemoryTTL = memory.DefaultCacheTTL
	}
}

// generateReply calls the model with the conversation so far and appends the
// reply as the turn's single assistant message. Model failures propagate so
// the executor aborts the invocation; the caller's last durable state stays
// authoritative.
func (d Deps) generateReply(ctx context.Context, h *core.Header, instructions, prompt string) error {
	start := time.Now()
	resp, err := d.Model.Generate(ctx, model.Request{
		Instructions: instructions,
		History:      h.Transcript(),
		Prompt:       prompt,
	})
	dur := time.Since(start)
	if err != nil {
		d.Logger.Error("model call failed", "model", d.Model.Info().Name, "duration_ms", dur.Milliseconds(), "error", err)
		return fmt.Errorf("generate reply: %w", err)
	}
	d.Logger.Debug("model call completed", "model", d.Model.Info().Name, "duration_ms", dur.Milliseconds())
	h.AppendMessage(core.RoleAssistant, resp.Text)
	return nil
}

// recorder returns the turn-scoped memory view installed by the binding, or
// a view over the shared store keyed by an empty conversation when invoked
// outside a turn (tests driving definitions directly).
func (d Deps) recorder(ctx context.Context, h *core.Header) *memory.Conversation {
	if rec := recorderFrom(ctx); rec != nil {
		return rec
	}
	return memory.NewConversation(d.Memory, "", h.OrganizationID, func(o *memory.Options) {
		o.Logger = d.Logger
	})
}

type turnCtxKey struct{}

func withRecorder(ctx context.Context, rec *memory.Conversation) context.Context {
	return context.WithValue(ctx, turnCtxKey{}, rec)
}

func recorderFrom(ctx context.Context) *memory.Conversation {
	rec, _ := ctx.Value(turnCtxKey{}).(*memory.Conversation)
	return rec
}

// statePtr constrains a binding to pointer state types that expose the
// shared header.
type statePtr[T any] interface {
	*T
	core.State
}

// runnable is the type-erased view of one agent type's binding: the factory
// and the façade operate on state blobs, the binding translates to and from
// the typed variant.
type runnable interface {
	AgentType() Type
	InitialState(organizationID int64) (json.RawMessage, error)
	Invoke(ctx context.Context, conversationID string, blob json.RawMessage, override string) (json.RawMessage, error)
	AppendUserMessage(blob json.RawMessage, content string) (json.RawMessage, error)
	Header(blob json.RawMessage) (core.Header, error)
	EntryPoint() string
}

// binding pairs one typed state variant with its compiled definition.
type binding[T any, P statePtr[T]] struct {
	agentType Type
	def       *workflow.Definition[P]
	initial   func(organizationID int64) P
	deps      Deps
}

func newBinding[T any, P statePtr[T]](agentType Type, deps Deps, def *workflow.Definition[P], initial func(organizationID int64) P) *binding[T, P] {
	return &binding[T, P]{agentType: agentType, def: def, initial: initial, deps: deps}
}

// AgentType implements runnable.
func (b *binding[T, P]) AgentType() Type { return b.agentType }

// EntryPoint implements runnable.
func (b *binding[T, P]) EntryPoint() string { return b.def.EntryPoint() }

// InitialState implements runnable, producing the default state blob for a
// new conversation stamped with its organization.
func (b *binding[T, P]) InitialState(organizationID int64) (json.RawMessage, error) {
	return b.encode(b.initial(organizationID))
}

// Invoke implements runnable: decode, run one workflow pass, re-encode. The
// turn-scoped memory view is installed into the context so steps can track
// facts without the definition holding per-conversation state.
func (b *binding[T, P]) Invoke(ctx context.Context, conversationID string, blob json.RawMessage, override string) (json.RawMessage, error) {
	state, err := b.decode(blob)
	if err != nil {
		return nil, err
	}

	rec := memory.NewConversation(b.deps.Memory, conversationID, state.Head().OrganizationID, func(o *memory.Options) {
		o.MaxItems = b.deps.MaxMemory
		o.CacheTTL = b.deps.MemoryTTL
		o.Logger = b.deps.Logger
	})
	ctx = withRecorder(ctx, rec)

	var optFns []func(o *workflow.InvokeOptions)
	if override != "" {
		optFns = append(optFns, workflow.WithStartAt(override))
	}

	out, err := b.def.Invoke(ctx, state, optFns...)
	if err != nil {
		return nil, err
	}
	return b.encode(out)
}

// AppendUserMessage implements runnable.
func (b *binding[T, P]) AppendUserMessage(blob json.RawMessage, content string) (json.RawMessage, error) {
	state, err := b.decode(blob)
	if err != nil {
		return nil, err
	}
	state.Head().AppendMessage(core.RoleUser, content)
	return b.encode(state)
}

// Header implements runnable, returning a copy of the shared header.
func (b *binding[T, P]) Header(blob json.RawMessage) (core.Header, error) {
	state, err := b.decode(blob)
	if err != nil {
		return core.Header{}, err
	}
	return *state.Head(), nil
}

func (b *binding[T, P]) decode(blob json.RawMessage) (P, error) {
	var state T
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("decode %s state: %w", b.agentType, err)
	}
	return P(&state), nil
}

func (b *binding[T, P]) encode(state P) (json.RawMessage, error) {
	blob, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode %s state: %w", b.agentType, err)
	}
	return blob, nil
}
