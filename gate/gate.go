// Package gate implements subscription-tier authorization for agent types,
// named features and usage quotas. All checks are pure lookups over static
// per-tier tables; the gate owns no state beyond a per-instance table set and
// is cheap enough to construct per request.
package gate

import (
	"context"
	"fmt"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/logging"
)

// Unlimited marks a usage quota without a ceiling.
const Unlimited int64 = -1

// Options configures a Gate. Zero values fall back to the default tier
// tables, which keep the privilege ordering free < professional < enterprise
// strictly monotonic.
type Options struct {
	// AgentAllowlists maps each tier to the agent types it may use.
	AgentAllowlists map[core.Tier][]string
	// Features maps each tier to its enabled feature names. Unknown feature
	// names are denied, not an error.
	Features map[core.Tier]map[string]bool
	// Limits maps each tier to numeric usage quotas by resource type.
	// Unlimited (-1) always passes.
	Limits map[core.Tier]map[string]int64
	// Logger records denial decisions at debug level.
	Logger logging.Logger
}

// Gate authorizes capabilities against an organization's effective tier.
type Gate struct {
	resolver   core.SubscriptionResolver
	allowlists map[core.Tier]map[string]bool
	features   map[core.Tier]map[string]bool
	limits     map[core.Tier]map[string]int64
	logger     logging.Logger
}

// New constructs a Gate bound to a subscription resolver.
func New(resolver core.SubscriptionResolver, optFns ...func(o *Options)) *Gate {
	opts := Options{
		AgentAllowlists: DefaultAgentAllowlists(),
		Features:        DefaultFeatures(),
		Limits:          DefaultLimits(),
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	allow := make(map[core.Tier]map[string]bool, len(opts.AgentAllowlists))
	for tier, agents := range opts.AgentAllowlists {
		set := make(map[string]bool, len(agents))
		for _, a := range agents {
			set[a] = true
		}
		allow[tier] = set
	}

	return &Gate{
		resolver:   resolver,
		allowlists: allow,
		features:   opts.Features,
		limits:     opts.Limits,
		logger:     opts.Logger,
	}
}

// DefaultAgentAllowlists returns the built-in tier-to-agent tables. Each tier
// is a superset of the one below it.
func DefaultAgentAllowlists() map[core.Tier][]string {
	free := []string{"coordinator", "resource_planning"}
	professional := append(append([]string{}, free...),
		"financial", "stakeholder_management", "marketing_communications", "project_management")
	enterprise := append(append([]string{}, professional...),
		"analytics", "compliance_security")
	return map[core.Tier][]string{
		core.TierFree:         free,
		core.TierProfessional: professional,
		core.TierEnterprise:   enterprise,
	}
}

// DefaultFeatures returns the built-in per-tier feature maps.
func DefaultFeatures() map[core.Tier]map[string]bool {
	return map[core.Tier]map[string]bool{
		core.TierFree: {
			"basic_recommendations": true,
		},
		core.TierProfessional: {
			"basic_recommendations":    true,
			"advanced_recommendations": true,
			"export_reports":           true,
		},
		core.TierEnterprise: {
			"basic_recommendations":    true,
			"advanced_recommendations": true,
			"export_reports":           true,
			"priority_support":         true,
			"custom_workflows":         true,
		},
	}
}

// DefaultLimits returns the built-in per-tier usage quotas.
func DefaultLimits() map[core.Tier]map[string]int64 {
	return map[core.Tier]map[string]int64{
		core.TierFree: {
			"conversations_per_month": 10,
			"memory_items":            50,
		},
		core.TierProfessional: {
			"conversations_per_month": 200,
			"memory_items":            200,
		},
		core.TierEnterprise: {
			"conversations_per_month": Unlimited,
			"memory_items":            Unlimited,
		},
	}
}

// EffectiveTier applies the downgrade rule: an inactive subscription is
// treated as the lowest tier regardless of its nominal plan.
func EffectiveTier(sub core.Subscription) core.Tier {
	if sub.Status != core.SubscriptionActive {
		return core.TierFree
	}
	if sub.Tier.Rank() == 0 {
		return core.TierFree
	}
	return sub.Tier
}

// CanAccessAgent reports whether the tier's allow-list includes the agent type.
func (g *Gate) CanAccessAgent(tier core.Tier, agentType string) bool {
	return g.allowlists[tier][agentType]
}

// CanAccessFeature reports whether the tier enables the named feature.
// Unknown feature names are treated as denied.
func (g *Gate) CanAccessFeature(tier core.Tier, feature string) bool {
	return g.features[tier][feature]
}

// WithinLimit reports whether currentCount fits the tier's quota for the
// resource type. Unlimited always passes; an unknown resource type denies.
func (g *Gate) WithinLimit(tier core.Tier, resourceType string, currentCount int64) bool {
	limits, ok := g.limits[tier]
	if !ok {
		return false
	}
	limit, ok := limits[resourceType]
	if !ok {
		return false
	}
	if limit == Unlimited {
		return true
	}
	return currentCount <= limit
}

// RequireAgentAccess resolves the organization's subscription and fails with
// a FeatureNotAvailableError when the effective tier excludes the agent type.
func (g *Gate) RequireAgentAccess(ctx context.Context, organizationID int64, agentType string) error {
	tier, err := g.resolveTier(ctx, organizationID)
	if err != nil {
		return err
	}
	if !g.CanAccessAgent(tier, agentType) {
		g.logger.Debug("agent access denied", "organization_id", organizationID, "agent_type", agentType, "tier", string(tier))
		return &core.FeatureNotAvailableError{Capability: agentType, Tier: tier}
	}
	return nil
}

// RequireFeature fails with a FeatureNotAvailableError when the effective
// tier does not enable the named feature.
func (g *Gate) RequireFeature(ctx context.Context, organizationID int64, feature string) error {
	tier, err := g.resolveTier(ctx, organizationID)
	if err != nil {
		return err
	}
	if !g.CanAccessFeature(tier, feature) {
		g.logger.Debug("feature access denied", "organization_id", organizationID, "feature", feature, "tier", string(tier))
		return &core.FeatureNotAvailableError{Capability: feature, Tier: tier}
	}
	return nil
}

// RequireWithinLimit fails with a FeatureNotAvailableError when currentCount
// exceeds the effective tier's quota for the resource type.
func (g *Gate) RequireWithinLimit(ctx context.Context, organizationID int64, resourceType string, currentCount int64) error {
	tier, err := g.resolveTier(ctx, organizationID)
	if err != nil {
		return err
	}
	if !g.WithinLimit(tier, resourceType, currentCount) {
		g.logger.Debug("usage limit exceeded", "organization_id", organizationID, "resource", resourceType, "count", currentCount, "tier", string(tier))
		return &core.FeatureNotAvailableError{Capability: resourceType, Tier: tier}
	}
	return nil
}

func (g *Gate) resolveTier(ctx context.Context, organizationID int64) (core.Tier, error) {
	sub, err := g.resolver.Resolve(ctx, organizationID)
	if err != nil {
		return "", fmt.Errorf("resolve subscription for organization %d: %w", organizationID, err)
	}
	return EffectiveTier(sub), nil
}

// StaticResolver is a fixed in-memory SubscriptionResolver keyed by
// organization id. Organizations without an entry resolve to the default.
// Useful for tests and deployments without a billing backend.
type StaticResolver struct {
	Default       core.Subscription
	Organizations map[int64]core.Subscription
}

// Resolve implements core.SubscriptionResolver.
func (r *StaticResolver) Resolve(_ context.Context, organizationID int64) (core.Subscription, error) {
	if sub, ok := r.Organizations[organizationID]; ok {
		return sub, nil
	}
	return r.Default, nil
}
