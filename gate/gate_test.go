package gate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmesh/planmesh/core"
)

func newTestGate(orgs map[int64]core.Subscription) *Gate {
	return New(&StaticResolver{
		Default:       core.Subscription{Tier: core.TierFree, Status: core.SubscriptionActive},
		Organizations: orgs,
	})
}

func TestEffectiveTier(t *testing.T) {
	tests := []struct {
		name string
		sub  core.Subscription
		want core.Tier
	}{
		{"active enterprise", core.Subscription{Tier: core.TierEnterprise, Status: core.SubscriptionActive}, core.TierEnterprise},
		{"inactive enterprise downgrades", core.Subscription{Tier: core.TierEnterprise, Status: core.SubscriptionInactive}, core.TierFree},
		{"inactive professional downgrades", core.Subscription{Tier: core.TierProfessional, Status: core.SubscriptionInactive}, core.TierFree},
		{"unknown tier coerced to free", core.Subscription{Tier: core.Tier("trial"), Status: core.SubscriptionActive}, core.TierFree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveTier(tt.sub))
		})
	}
}

func TestGate_CanAccessAgent(t *testing.T) {
	g := newTestGate(nil)

	assert.True(t, g.CanAccessAgent(core.TierFree, "coordinator"))
	assert.False(t, g.CanAccessAgent(core.TierFree, "analytics"))
	assert.True(t, g.CanAccessAgent(core.TierProfessional, "financial"))
	assert.False(t, g.CanAccessAgent(core.TierProfessional, "compliance_security"))
	assert.True(t, g.CanAccessAgent(core.TierEnterprise, "compliance_security"))
}

func TestGate_AllowlistMonotonicity(t *testing.T) {
	g := newTestGate(nil)
	ordering := []core.Tier{core.TierFree, core.TierProfessional, core.TierEnterprise}
	allowlists := DefaultAgentAllowlists()

	for i := 0; i+1 < len(ordering); i++ {
		lower, higher := ordering[i], ordering[i+1]
		for _, agentType := range allowlists[lower] {
			assert.Truef(t, g.CanAccessAgent(higher, agentType),
				"agent %q accessible on %s must be accessible on %s", agentType, lower, higher)
		}
	}
}

func TestGate_CanAccessFeature(t *testing.T) {
	g := newTestGate(nil)

	assert.True(t, g.CanAccessFeature(core.TierFree, "basic_recommendations"))
	assert.False(t, g.CanAccessFeature(core.TierFree, "export_reports"))
	assert.True(t, g.CanAccessFeature(core.TierEnterprise, "priority_support"))
	// Unknown feature names are denied, not an error.
	assert.False(t, g.CanAccessFeature(core.TierEnterprise, "time_travel"))
}

func TestGate_WithinLimit(t *testing.T) {
	g := newTestGate(nil)

	assert.True(t, g.WithinLimit(core.TierFree, "conversations_per_month", 10))
	assert.False(t, g.WithinLimit(core.TierFree, "conversations_per_month", 11))
	assert.True(t, g.WithinLimit(core.TierEnterprise, "conversations_per_month", 1_000_000))
	assert.False(t, g.WithinLimit(core.TierFree, "unknown_resource", 0))
}

func TestGate_RequireAgentAccess_Denied(t *testing.T) {
	g := newTestGate(map[int64]core.Subscription{
		42: {Tier: core.TierFree, Status: core.SubscriptionActive},
	})

	err := g.RequireAgentAccess(context.Background(), 42, "analytics")

	require.Error(t, err)
	var denied *core.FeatureNotAvailableError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "analytics", denied.Capability)
	assert.Equal(t, core.TierFree, denied.Tier)
}

func TestGate_RequireAgentAccess_InactiveDowngrade(t *testing.T) {
	g := newTestGate(map[int64]core.Subscription{
		7: {Tier: core.TierEnterprise, Status: core.SubscriptionInactive},
	})

	err := g.RequireAgentAccess(context.Background(), 7, "financial")

	require.Error(t, err)
	var denied *core.FeatureNotAvailableError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, core.TierFree, denied.Tier)
}

func TestGate_RequireAgentAccess_Allowed(t *testing.T) {
	g := newTestGate(map[int64]core.Subscription{
		7: {Tier: core.TierEnterprise, Status: core.SubscriptionActive},
	})

	assert.NoError(t, g.RequireAgentAccess(context.Background(), 7, "analytics"))
}

func TestGate_RequireWithinLimit(t *testing.T) {
	g := newTestGate(map[int64]core.Subscription{
		9: {Tier: core.TierFree, Status: core.SubscriptionActive},
	})

	assert.NoError(t, g.RequireWithinLimit(context.Background(), 9, "memory_items", 50))

	err := g.RequireWithinLimit(context.Background(), 9, "memory_items", 51)
	require.Error(t, err)
	var denied *core.FeatureNotAvailableError
	assert.ErrorAs(t, err, &denied)
}
