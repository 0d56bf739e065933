package core

import "fmt"

var (
	// ErrConversationNotFound is returned when no state record exists for a
	// conversation id.
	ErrConversationNotFound = fmt.Errorf("conversation state not found")

	// ErrConversationExists is returned by StateStore.Create when a record
	// already exists, guaranteeing at-most-once initialization.
	ErrConversationExists = fmt.Errorf("conversation state already exists")

	// ErrVersionConflict is returned by StateStore.Update when the presented
	// version is stale; the caller must reload and retry the whole turn.
	ErrVersionConflict = fmt.Errorf("conversation state version conflict")

	// ErrStateMismatch is returned when a stored state blob was written by a
	// different agent type than the one requested.
	ErrStateMismatch = fmt.Errorf("stored state belongs to a different agent type")
)

// FeatureNotAvailableError reports that a capability is excluded from the
// organization's effective subscription tier. Denial is an expected, frequent
// outcome, so it travels as a typed error value rather than a panic.
type FeatureNotAvailableError struct {
	Capability string
	Tier       Tier
}

// Error implements the error interface.
func (e *FeatureNotAvailableError) Error() string {
	return fmt.Sprintf("feature %q is not available on the %s tier", e.Capability, e.Tier)
}

// UnsupportedAgentTypeError reports a request for an agent type outside the
// closed set of registered workflow definitions. This is a programmer or
// configuration error, never retried.
type UnsupportedAgentTypeError struct {
	Name string
}

// Error implements the error interface.
func (e *UnsupportedAgentTypeError) Error() string {
	return fmt.Sprintf("unsupported agent type %q", e.Name)
}
