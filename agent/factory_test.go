package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/gate"
	"github.com/planmesh/planmesh/memory"
	"github.com/planmesh/planmesh/model"
	"github.com/planmesh/planmesh/statestore"
)

func newTestFactory(t *testing.T, resolver core.SubscriptionResolver) (*Factory, *statestore.InMemoryStore) {
	t.Helper()
	if resolver == nil {
		resolver = &gate.StaticResolver{
			Default: core.Subscription{Tier: core.TierEnterprise, Status: core.SubscriptionActive},
		}
	}
	store := statestore.NewInMemoryStore()
	deps := Deps{
		Model:  model.NewMockModel("test-model"),
		Memory: memory.NewInMemoryStore(),
	}
	return NewFactory(gate.New(resolver), store, deps), store
}

func TestFactoryCreateAgentNewConversation(t *testing.T) {
	f, _ := newTestFactory(t, nil)

	a, err := f.CreateAgent(context.Background(), "coordinator", "conv-1", 42)
	require.NoError(t, err)
	assert.Equal(t, TypeCoordinator, a.Type())
	assert.Equal(t, int64(1), a.Version())

	h, err := a.Header()
	require.NoError(t, err)
	assert.Equal(t, int64(42), h.OrganizationID)
	assert.Equal(t, core.PhaseCreated, h.CurrentPhase)
	assert.Empty(t, h.Messages)
}

func TestFactoryCreateAgentUnsupportedType(t *testing.T) {
	f, _ := newTestFactory(t, nil)

	_, err := f.CreateAgent(context.Background(), "fortune_teller", "conv-1", 42)
	var unsupported *core.UnsupportedAgentTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "fortune_teller", unsupported.Name)
}

func TestFactoryCreateAgentDeniedByTier(t *testing.T) {
	resolver := &gate.StaticResolver{
		Default: core.Subscription{Tier: core.TierFree, Status: core.SubscriptionActive},
	}
	f, _ := newTestFactory(t, resolver)

	_, err := f.CreateAgent(context.Background(), "analytics", "conv-1", 42)
	var denied *core.FeatureNotAvailableError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "analytics", denied.Capability)
	assert.Equal(t, core.TierFree, denied.Tier)
}

func TestFactoryCreateAgentInactiveSubscriptionDowngrades(t *testing.T) {
	resolver := &gate.StaticResolver{
		Default: core.Subscription{Tier: core.TierEnterprise, Status: core.SubscriptionInactive},
	}
	f, _ := newTestFactory(t, resolver)

	_, err := f.CreateAgent(context.Background(), "financial", "conv-1", 42)
	var denied *core.FeatureNotAvailableError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, core.TierFree, denied.Tier)

	// Free-tier agents stay reachable.
	_, err = f.CreateAgent(context.Background(), "coordinator", "conv-2", 42)
	require.NoError(t, err)
}

func TestFactoryCreateAgentExistingConversationLoadsState(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	ctx := context.Background()

	a, err := f.CreateAgent(ctx, "coordinator", "conv-1", 42)
	require.NoError(t, err)
	require.NoError(t, a.AppendUserMessage("plan a conference"))
	require.NoError(t, a.Save(ctx))

	again, err := f.CreateAgent(ctx, "coordinator", "conv-1", 42)
	require.NoError(t, err)
	h, err := again.Header()
	require.NoError(t, err)
	require.Len(t, h.Messages, 1)
	assert.Equal(t, "plan a conference", h.Messages[0].Content)
	assert.Equal(t, int64(2), again.Version())
}

func TestFactoryCreateAgentTypeMismatch(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	ctx := context.Background()

	_, err := f.CreateAgent(ctx, "coordinator", "conv-1", 42)
	require.NoError(t, err)

	_, err = f.CreateAgent(ctx, "financial", "conv-1", 42)
	assert.ErrorIs(t, err, core.ErrStateMismatch)
}

func TestFactoryCreateAgentConcurrentAtMostOnce(t *testing.T) {
	f, store := newTestFactory(t, nil)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.CreateAgent(ctx, "coordinator", "conv-race", 42)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "worker %d", i)
	}
	stored, err := store.Load(ctx, "conv-race")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
}

func TestAgentInvokeProducesReplyAndAdvancesPhase(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	ctx := context.Background()

	for _, raw := range AllTypes() {
		t.Run(string(raw), func(t *testing.T) {
			conv := fmt.Sprintf("conv-%s", raw)
			a, err := f.CreateAgent(ctx, string(raw), conv, 42)
			require.NoError(t, err)
			require.NoError(t, a.AppendUserMessage("let's get started"))
			require.NoError(t, a.Invoke(ctx))

			reply, ok := a.LastAssistantMessage()
			assert.True(t, ok)
			assert.NotEmpty(t, reply)

			h, err := a.Header()
			require.NoError(t, err)
			assert.Equal(t, "compose_reply", h.CurrentPhase)
		})
	}
}

func TestAgentSaveBumpsVersionAndPersists(t *testing.T) {
	f, store := newTestFactory(t, nil)
	ctx := context.Background()

	a, err := f.CreateAgent(ctx, "resource_planning", "conv-1", 42)
	require.NoError(t, err)
	require.NoError(t, a.AppendUserMessage("we need a venue for 200 people"))
	require.NoError(t, a.Invoke(ctx))
	require.NoError(t, a.Save(ctx))
	assert.Equal(t, int64(2), a.Version())

	stored, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, "resource_planning", stored.AgentType)
}

func TestAgentSaveStaleVersionConflicts(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	ctx := context.Background()

	first, err := f.CreateAgent(ctx, "coordinator", "conv-1", 42)
	require.NoError(t, err)
	second, err := f.CreateAgent(ctx, "coordinator", "conv-1", 42)
	require.NoError(t, err)

	require.NoError(t, first.AppendUserMessage("hello"))
	require.NoError(t, first.Save(ctx))

	require.NoError(t, second.AppendUserMessage("stale write"))
	assert.ErrorIs(t, second.Save(ctx), core.ErrVersionConflict)
}

func TestAgentInvokeWithOverrideSkipsEarlierSteps(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	ctx := context.Background()

	a, err := f.CreateAgent(ctx, "analytics", "conv-1", 42)
	require.NoError(t, err)
	require.NoError(t, a.AppendUserMessage("report please"))
	require.NoError(t, a.Invoke(ctx, WithOverride("generate_report")))

	h, err := a.Header()
	require.NoError(t, err)
	assert.Equal(t, "compose_reply", h.CurrentPhase)
}

func TestAgentInvokeUnknownOverrideFails(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	ctx := context.Background()

	a, err := f.CreateAgent(ctx, "analytics", "conv-1", 42)
	require.NoError(t, err)
	err = a.Invoke(ctx, WithOverride("no_such_step"))
	assert.Error(t, err)

	// Failed invocations leave the in-memory state untouched.
	h, hdrErr := a.Header()
	require.NoError(t, hdrErr)
	assert.Equal(t, core.PhaseCreated, h.CurrentPhase)
}

func TestFactoryEntryPoint(t *testing.T) {
	f, _ := newTestFactory(t, nil)

	entry, err := f.EntryPoint("coordinator")
	require.NoError(t, err)
	assert.Equal(t, "understand_request", entry)

	_, err = f.EntryPoint("nope")
	var unsupported *core.UnsupportedAgentTypeError
	assert.ErrorAs(t, err, &unsupported)
}
