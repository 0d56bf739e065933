package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/gate"
	"github.com/planmesh/planmesh/logging"
)

// Factory builds conversation-bound agents. It owns the compiled workflow
// definitions (built once at construction) and pairs them with subscription
// gating and durable state.
type Factory struct {
	gate     *gate.Gate
	store    core.StateStore
	bindings map[Type]runnable
	logger   logging.Logger
}

// NewFactory compiles every agent type's workflow against the shared deps.
func NewFactory(g *gate.Gate, store core.StateStore, deps Deps) *Factory {
	deps.normalize()
	bindings := map[Type]runnable{
		TypeCoordinator:             newBinding[CoordinatorState](TypeCoordinator, deps, newCoordinatorDefinition(deps), newCoordinatorState),
		TypeResourcePlanning:        newBinding[ResourcePlanningState](TypeResourcePlanning, deps, newResourcePlanningDefinition(deps), newResourcePlanningState),
		TypeFinancial:               newBinding[FinancialState](TypeFinancial, deps, newFinancialDefinition(deps), newFinancialState),
		TypeStakeholderManagement:   newBinding[StakeholderState](TypeStakeholderManagement, deps, newStakeholderDefinition(deps), newStakeholderState),
		TypeMarketingCommunications: newBinding[MarketingState](TypeMarketingCommunications, deps, newMarketingDefinition(deps), newMarketingState),
		TypeProjectManagement:       newBinding[ProjectState](TypeProjectManagement, deps, newProjectDefinition(deps), newProjectState),
		TypeAnalytics:               newBinding[AnalyticsState](TypeAnalytics, deps, newAnalyticsDefinition(deps), newAnalyticsState),
		TypeComplianceSecurity:      newBinding[ComplianceState](TypeComplianceSecurity, deps, newComplianceDefinition(deps), newComplianceState),
	}
	return &Factory{gate: g, store: store, bindings: bindings, logger: deps.Logger}
}

// Types lists every agent type the factory can build.
func (f *Factory) Types() []Type { return AllTypes() }

// EntryPoint reports the first workflow step for an agent type, or an
// UnsupportedAgentTypeError for unknown names.
func (f *Factory) EntryPoint(rawType string) (string, error) {
	t, err := ParseType(rawType)
	if err != nil {
		return "", err
	}
	return f.bindings[t].EntryPoint(), nil
}

// CreateAgent validates the type name, checks the organization's
// subscription, then loads the conversation's state or creates it. Creation
// is at most once: when a concurrent caller wins the insert race the loser
// reloads and both observe the same stored state.
func (f *Factory) CreateAgent(ctx context.Context, rawType, conversationID string, organizationID int64) (*Agent, error) {
	t, err := ParseType(rawType)
	if err != nil {
		return nil, err
	}
	if err := f.gate.RequireAgentAccess(ctx, organizationID, string(t)); err != nil {
		return nil, err
	}
	b := f.bindings[t]

	stored, err := f.store.Load(ctx, conversationID)
	if errors.Is(err, core.ErrConversationNotFound) {
		stored, err = f.createState(ctx, b, conversationID, organizationID)
	}
	if err != nil {
		return nil, err
	}

	if stored.AgentType != string(t) {
		return nil, fmt.Errorf("conversation %s holds %s state, requested %s: %w",
			conversationID, stored.AgentType, t, core.ErrStateMismatch)
	}

	return &Agent{binding: b, store: f.store, stored: stored, logger: f.logger}, nil
}

func (f *Factory) createState(ctx context.Context, b runnable, conversationID string, organizationID int64) (*core.StoredState, error) {
	blob, err := b.InitialState(organizationID)
	if err != nil {
		return nil, err
	}
	stored := &core.StoredState{
		ConversationID: conversationID,
		OrganizationID: organizationID,
		AgentType:      string(b.AgentType()),
		State:          blob,
	}
	err = f.store.Create(ctx, stored)
	if errors.Is(err, core.ErrConversationExists) {
		f.logger.Debug("lost create race, reloading", "conversation_id", conversationID)
		return f.store.Load(ctx, conversationID)
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Agent is a conversation-bound handle: one agent type, one conversation,
// one in-memory copy of the stored state. It is not safe for concurrent
// use; callers serialize turns per conversation.
type Agent struct {
	binding runnable
	store   core.StateStore
	stored  *core.StoredState
	logger  logging.Logger
}

// InvokeOptions configures a single Invoke.
type InvokeOptions struct {
	// Override starts the workflow at the named step instead of its entry
	// point, for this invocation only.
	Override string
}

// WithOverride starts the next invocation at the given step.
func WithOverride(step string) func(o *InvokeOptions) {
	return func(o *InvokeOptions) { o.Override = step }
}

// Type reports the agent type bound to this handle.
func (a *Agent) Type() Type { return a.binding.AgentType() }

// Version reports the optimistic concurrency version of the loaded state.
func (a *Agent) Version() int64 { return a.stored.Version }

// ConversationID reports the bound conversation.
func (a *Agent) ConversationID() string { return a.stored.ConversationID }

// AppendUserMessage adds a user message to the in-memory state. It does not
// persist; call Save after the turn completes.
func (a *Agent) AppendUserMessage(content string) error {
	blob, err := a.binding.AppendUserMessage(a.stored.State, content)
	if err != nil {
		return err
	}
	a.stored.State = blob
	return nil
}

// Invoke runs one workflow pass over the in-memory state. On error the
// in-memory state is left untouched.
func (a *Agent) Invoke(ctx context.Context, optFns ...func(o *InvokeOptions)) error {
	opts := InvokeOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	blob, err := a.binding.Invoke(ctx, a.stored.ConversationID, a.stored.State, opts.Override)
	if err != nil {
		return err
	}
	a.stored.State = blob
	return nil
}

// Header returns a copy of the shared conversation header.
func (a *Agent) Header() (core.Header, error) {
	return a.binding.Header(a.stored.State)
}

// LastAssistantMessage returns the newest assistant reply, if any.
func (a *Agent) LastAssistantMessage() (string, bool) {
	h, err := a.binding.Header(a.stored.State)
	if err != nil {
		return "", false
	}
	return h.LastAssistantMessage()
}

// Save persists the in-memory state with an optimistic version check and
// adopts the bumped version on success.
func (a *Agent) Save(ctx context.Context) error {
	if err := a.store.Update(ctx, a.stored); err != nil {
		return err
	}
	return nil
}
