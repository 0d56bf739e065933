// Package planmesh provides a high-level façade over the agent factory,
// subscription gating and durable conversation state, enabling rapid
// construction of multi-agent planning assistants. Most applications
// interact with this package by:
//  1. Creating a PlanMesh via New() (optionally overriding the default in-memory services)
//  2. Driving conversations with RunTurn, one user message per call
//  3. Reading back transcripts and accumulated context between turns
//
// All defaults are safe for local development and testing; production
// deployments typically supply Postgres-backed stores, a real model client
// and a structured logger.
package planmesh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/planmesh/planmesh/agent"
	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/gate"
	"github.com/planmesh/planmesh/logging"
	"github.com/planmesh/planmesh/memory"
	"github.com/planmesh/planmesh/model"
	"github.com/planmesh/planmesh/observability"
	"github.com/planmesh/planmesh/statestore"
	"github.com/planmesh/planmesh/workflow"
)

// Options configures the PlanMesh instance.
type Options struct {
	// StateStore persists conversation state. Defaults to in-memory.
	StateStore core.StateStore
	// MemoryStore persists contextual memory. Defaults to in-memory.
	MemoryStore core.MemoryStore
	// Model generates assistant replies. Defaults to a mock model.
	Model model.Model
	// Resolver maps organizations to subscriptions. Defaults to a static
	// resolver granting every organization an active enterprise plan, which
	// keeps local development unrestricted.
	Resolver core.SubscriptionResolver
	// Logger receives structured events. Defaults to a no-op logger.
	Logger logging.Logger
	// Metrics, when set, instruments turns, steps, model calls and denials.
	Metrics *observability.Metrics

	// MaxIterations caps workflow transitions per invocation.
	MaxIterations int
	// MaxMemoryItems bounds retained memory records per conversation and type.
	MaxMemoryItems int
	// MemoryCacheTTL bounds staleness of the per-turn memory snapshot.
	MemoryCacheTTL time.Duration
	// GateOptions customizes tier allowlists, features and limits.
	GateOptions []func(o *gate.Options)
}

// PlanMesh coordinates agents, gating, state and memory behind one handle.
// Turns on the same conversation are serialized; distinct conversations run
// concurrently.
type PlanMesh struct {
	factory     *agent.Factory
	gate        *gate.Gate
	stateStore  core.StateStore
	memoryStore core.MemoryStore
	logger      logging.Logger
	metrics     *observability.Metrics

	maxMemoryItems int
	memoryCacheTTL time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs a PlanMesh with in-memory defaults, applying any overrides.
func New(optFns ...func(o *Options)) *PlanMesh {
	opts := Options{
		MaxIterations:  workflow.DefaultMaxIterations,
		MaxMemoryItems: memory.DefaultMaxItems,
		MemoryCacheTTL: memory.DefaultCacheTTL,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.StateStore == nil {
		opts.StateStore = statestore.NewInMemoryStore()
	}
	if opts.MemoryStore == nil {
		opts.MemoryStore = memory.NewInMemoryStore()
	}
	if opts.Model == nil {
		opts.Model = model.NewMockModel("planmesh-mock")
	}
	if opts.Resolver == nil {
		opts.Resolver = &gate.StaticResolver{
			Default: core.Subscription{Tier: core.TierEnterprise, Status: core.SubscriptionActive},
		}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	mdl := opts.Model
	var observer workflow.StepObserver
	if opts.Metrics != nil {
		mdl = &instrumentedModel{inner: mdl, metrics: opts.Metrics}
		observer = opts.Metrics.ObserveStep
	}

	g := gate.New(opts.Resolver, append([]func(o *gate.Options){func(o *gate.Options) {
		o.Logger = opts.Logger
	}}, opts.GateOptions...)...)

	factory := agent.NewFactory(g, opts.StateStore, agent.Deps{
		Model:         mdl,
		Memory:        opts.MemoryStore,
		Logger:        opts.Logger,
		MaxIterations: opts.MaxIterations,
		MaxMemory:     opts.MaxMemoryItems,
		MemoryTTL:     opts.MemoryCacheTTL,
		Observer:      observer,
	})

	return &PlanMesh{
		factory:        factory,
		gate:           g,
		stateStore:     opts.StateStore,
		memoryStore:    opts.MemoryStore,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		maxMemoryItems: opts.MaxMemoryItems,
		memoryCacheTTL: opts.MemoryCacheTTL,
		locks:          map[string]*sync.Mutex{},
	}
}

// TurnOptions configures a single RunTurn call.
type TurnOptions struct {
	// Override starts the workflow at the named step for this turn only.
	Override string
}

// WithOverride starts the turn's workflow at the given step.
func WithOverride(step string) func(o *TurnOptions) {
	return func(o *TurnOptions) { o.Override = step }
}

// TurnResult describes one completed turn.
type TurnResult struct {
	// Reply is the assistant message produced by the turn.
	Reply string
	// Phase is the workflow phase the conversation ended the turn in.
	Phase string
	// Version is the stored state version after the turn was persisted.
	Version int64
}

// CreateAgent validates access and returns a conversation-bound agent,
// creating its durable state on first use. Most callers use RunTurn instead.
func (m *PlanMesh) CreateAgent(ctx context.Context, agentType, conversationID string, organizationID int64) (*agent.Agent, error) {
	a, err := m.factory.CreateAgent(ctx, agentType, conversationID, organizationID)
	if err != nil {
		m.recordDenial(agentType, err)
		return nil, err
	}
	return a, nil
}

// RunTurn executes one full conversational turn: load or create the
// conversation, append the user message, run the agent's workflow and
// persist the result. Turns on the same conversation are serialized by a
// per-conversation lock, so the optimistic version check only trips when an
// external writer races this process.
func (m *PlanMesh) RunTurn(ctx context.Context, agentType, conversationID string, organizationID int64, message string, optFns ...func(o *TurnOptions)) (*TurnResult, error) {
	opts := TurnOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	lock := m.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	if m.metrics != nil {
		m.metrics.ActiveConversations.Inc()
		defer m.metrics.ActiveConversations.Dec()
	}

	result, err := m.runTurn(ctx, agentType, conversationID, organizationID, message, opts)
	if m.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		m.metrics.TurnsTotal.WithLabelValues(agentType, outcome).Inc()
	}
	return result, err
}

func (m *PlanMesh) runTurn(ctx context.Context, agentType, conversationID string, organizationID int64, message string, opts TurnOptions) (*TurnResult, error) {
	a, err := m.factory.CreateAgent(ctx, agentType, conversationID, organizationID)
	if err != nil {
		m.recordDenial(agentType, err)
		return nil, err
	}

	if message != "" {
		if err := a.AppendUserMessage(message); err != nil {
			return nil, err
		}
	}

	var invokeFns []func(o *agent.InvokeOptions)
	if opts.Override != "" {
		invokeFns = append(invokeFns, agent.WithOverride(opts.Override))
	}
	if err := a.Invoke(ctx, invokeFns...); err != nil {
		return nil, err
	}
	if err := a.Save(ctx); err != nil {
		return nil, err
	}

	h, err := a.Header()
	if err != nil {
		return nil, err
	}
	reply, _ := h.LastAssistantMessage()
	m.logger.Info("turn completed",
		"agent_type", agentType,
		"conversation_id", conversationID,
		"organization_id", organizationID,
		"phase", h.CurrentPhase,
		"version", a.Version(),
	)
	return &TurnResult{Reply: reply, Phase: h.CurrentPhase, Version: a.Version()}, nil
}

// Transcript returns the conversation's non-ephemeral messages in order.
func (m *PlanMesh) Transcript(ctx context.Context, conversationID string) ([]core.Message, error) {
	stored, err := m.stateStore.Load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	a, err := m.factory.CreateAgent(ctx, stored.AgentType, conversationID, stored.OrganizationID)
	if err != nil {
		return nil, err
	}
	h, err := a.Header()
	if err != nil {
		return nil, err
	}
	return h.Transcript(), nil
}

// ContextSummary renders the conversation's accumulated memory as a short
// plain-text digest suitable for prompts and debugging.
func (m *PlanMesh) ContextSummary(ctx context.Context, conversationID string) (string, error) {
	stored, err := m.stateStore.Load(ctx, conversationID)
	if err != nil {
		return "", err
	}
	conv := memory.NewConversation(m.memoryStore, conversationID, stored.OrganizationID, func(o *memory.Options) {
		o.MaxItems = m.maxMemoryItems
		o.CacheTTL = m.memoryCacheTTL
		o.Logger = m.logger
	})
	return conv.ContextSummary(ctx)
}

// DeleteConversation removes the conversation's state and all of its memory.
// Deleting an unknown conversation is a no-op.
func (m *PlanMesh) DeleteConversation(ctx context.Context, conversationID string) error {
	lock := m.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.stateStore.Delete(ctx, conversationID); err != nil {
		return err
	}
	return m.memoryStore.DeleteConversation(ctx, conversationID)
}

// AgentTypes lists the agent types this instance can build.
func (m *PlanMesh) AgentTypes() []agent.Type {
	return m.factory.Types()
}

func (m *PlanMesh) lockFor(conversationID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[conversationID] = lock
	}
	return lock
}

func (m *PlanMesh) recordDenial(agentType string, err error) {
	if m.metrics == nil {
		return
	}
	var denied *core.FeatureNotAvailableError
	if errors.As(err, &denied) {
		m.metrics.AccessDenials.WithLabelValues(agentType, string(denied.Tier)).Inc()
	}
}

// instrumentedModel counts model invocations by provider and outcome.
type instrumentedModel struct {
	inner   model.Model
	metrics *observability.Metrics
}

func (m *instrumentedModel) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	resp, err := m.inner.Generate(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.metrics.ModelCalls.WithLabelValues(m.inner.Info().Provider, outcome).Inc()
	return resp, err
}

func (m *instrumentedModel) Info() model.Info { return m.inner.Info() }
