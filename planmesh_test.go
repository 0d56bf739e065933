package planmesh

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/gate"
	"github.com/planmesh/planmesh/model"
)

func TestRunTurnProducesReplyAndPersists(t *testing.T) {
	mdl := model.NewMockModel("test")
	mesh := New(func(o *Options) { o.Model = mdl })
	ctx := context.Background()

	res, err := mesh.RunTurn(ctx, "coordinator", "conv-1", 42, "plan a conference for 200 people")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Reply)
	assert.Equal(t, "compose_reply", res.Phase)
	assert.Equal(t, int64(2), res.Version)

	transcript, err := mesh.Transcript(ctx, "conv-1")
	require.NoError(t, err)
	require.NotEmpty(t, transcript)
	assert.Equal(t, core.RoleUser, transcript[0].Role)
	assert.Equal(t, "plan a conference for 200 people", transcript[0].Content)
	assert.Equal(t, core.RoleAssistant, transcript[len(transcript)-1].Role)
}

func TestRunTurnSecondTurnSeesContext(t *testing.T) {
	mesh := New()
	ctx := context.Background()

	first, err := mesh.RunTurn(ctx, "coordinator", "conv-1", 42, "we need a venue")
	require.NoError(t, err)

	second, err := mesh.RunTurn(ctx, "coordinator", "conv-1", 42, "budget is 25k")
	require.NoError(t, err)
	assert.Greater(t, second.Version, first.Version)

	transcript, err := mesh.Transcript(ctx, "conv-1")
	require.NoError(t, err)
	// Two user messages plus one assistant reply per turn.
	assert.Len(t, transcript, 4)
}

func TestRunTurnDeniedByTier(t *testing.T) {
	mesh := New(func(o *Options) {
		o.Resolver = &gate.StaticResolver{
			Default: core.Subscription{Tier: core.TierFree, Status: core.SubscriptionActive},
		}
	})

	_, err := mesh.RunTurn(context.Background(), "analytics", "conv-1", 42, "hi")
	var denied *core.FeatureNotAvailableError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "analytics", denied.Capability)

	// Denied turns must not create conversation state.
	_, err = mesh.Transcript(context.Background(), "conv-1")
	assert.ErrorIs(t, err, core.ErrConversationNotFound)
}

func TestRunTurnAgentTypeMismatch(t *testing.T) {
	mesh := New()
	ctx := context.Background()

	_, err := mesh.RunTurn(ctx, "coordinator", "conv-1", 42, "hello")
	require.NoError(t, err)

	_, err = mesh.RunTurn(ctx, "financial", "conv-1", 42, "hello again")
	assert.ErrorIs(t, err, core.ErrStateMismatch)
}

func TestRunTurnOverrideStartsMidWorkflow(t *testing.T) {
	mesh := New()

	res, err := mesh.RunTurn(context.Background(), "analytics", "conv-1", 42, "status?",
		WithOverride("generate_report"))
	require.NoError(t, err)
	assert.Equal(t, "compose_reply", res.Phase)
}

func TestRunTurnConcurrentSameConversationSerializes(t *testing.T) {
	mesh := New()
	ctx := context.Background()

	const turns = 8
	var wg sync.WaitGroup
	errs := make([]error, turns)
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = mesh.RunTurn(ctx, "coordinator", "conv-1", 42, fmt.Sprintf("message %d", i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "turn %d", i)
	}
	transcript, err := mesh.Transcript(ctx, "conv-1")
	require.NoError(t, err)
	assert.Len(t, transcript, 2*turns)
}

func TestContextSummaryReflectsTrackedMemory(t *testing.T) {
	mesh := New()
	ctx := context.Background()

	_, err := mesh.RunTurn(ctx, "coordinator", "conv-1", 42, "we prefer weekday events")
	require.NoError(t, err)

	summary, err := mesh.ContextSummary(ctx, "conv-1")
	require.NoError(t, err)
	assert.NotEmpty(t, summary)
}

func TestDeleteConversationRemovesStateAndMemory(t *testing.T) {
	mesh := New()
	ctx := context.Background()

	_, err := mesh.RunTurn(ctx, "resource_planning", "conv-1", 42, "find a venue")
	require.NoError(t, err)

	require.NoError(t, mesh.DeleteConversation(ctx, "conv-1"))
	_, err = mesh.Transcript(ctx, "conv-1")
	assert.ErrorIs(t, err, core.ErrConversationNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, mesh.DeleteConversation(ctx, "conv-1"))
}

func TestAgentTypesListsAll(t *testing.T) {
	mesh := New()
	assert.Len(t, mesh.AgentTypes(), 8)
}
