package core

import "context"

// Tier is a named subscription level controlling which agent types and
// features an organization can reach.
type Tier string

const (
	// TierFree is the lowest tier; inactive subscriptions are treated as free.
	TierFree Tier = "free"
	// TierProfessional is the mid tier.
	TierProfessional Tier = "professional"
	// TierEnterprise is the highest tier.
	TierEnterprise Tier = "enterprise"
)

// Rank orders tiers by privilege (free < professional < enterprise).
// Unknown tiers rank below free so that a corrupt value never grants access.
func (t Tier) Rank() int {
	switch t {
	case TierFree:
		return 1
	case TierProfessional:
		return 2
	case TierEnterprise:
		return 3
	default:
		return 0
	}
}

// SubscriptionStatus reports whether an organization's subscription is current.
type SubscriptionStatus string

const (
	// SubscriptionActive marks a paid-up subscription.
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionInactive marks a lapsed subscription; the effective tier
	// downgrades to free regardless of the nominal plan.
	SubscriptionInactive SubscriptionStatus = "inactive"
)

// Subscription is the read-only billing view consumed by the feature gate.
// It is resolved per request from an external organization record and is
// never persisted by this core.
type Subscription struct {
	Tier   Tier
	Status SubscriptionStatus
}

// SubscriptionResolver looks up the subscription for an organization.
// Implementations typically wrap the billing system; this core only depends
// on the interface.
type SubscriptionResolver interface {
	Resolve(ctx context.Context, organizationID int64) (Subscription, error)
}
