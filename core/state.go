package core

import (
	"github.com/google/uuid"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem marks instructions and internal notes.
	RoleSystem Role = "system"
	// RoleUser marks end-user turns.
	RoleUser Role = "user"
	// RoleAssistant marks replies produced by a workflow.
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation transcript.
//
// Ephemeral messages participate in routing and prompting during one
// invocation but are excluded from the persisted transcript view.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Ephemeral bool   `json:"ephemeral,omitempty"`
}

// Header is the portion of conversation state shared by every agent type.
// Agent-specific state variants embed it by composition; the payload fields
// around it differ per workflow definition.
//
// Invariants:
//   - Messages is append-only within an invocation (monotonically non-shrinking)
//   - OrganizationID, once set, is never changed
type Header struct {
	Messages       []Message `json:"messages"`
	CurrentPhase   string    `json:"current_phase"`
	NextSteps      []string  `json:"next_steps,omitempty"`
	OrganizationID int64     `json:"organization_id"`
}

// NewHeader constructs a header stamped with the owning organization.
func NewHeader(organizationID int64) Header {
	return Header{
		Messages:       []Message{},
		CurrentPhase:   PhaseCreated,
		OrganizationID: organizationID,
	}
}

// PhaseCreated is the resumption marker of a conversation no step has
// completed yet.
const PhaseCreated = "created"

// Head returns the header itself so that every state variant embedding
// Header satisfies the state accessor used by workflow bindings.
func (h *Header) Head() *Header { return h }

// AppendMessage appends a persistent message to the transcript.
func (h *Header) AppendMessage(role Role, content string) {
	h.Messages = append(h.Messages, Message{Role: role, Content: content})
}

// AppendEphemeral appends a message excluded from transcript persistence.
func (h *Header) AppendEphemeral(role Role, content string) {
	h.Messages = append(h.Messages, Message{Role: role, Content: content, Ephemeral: true})
}

// LastUserMessage returns the content of the most recent user message.
func (h *Header) LastUserMessage() (string, bool) {
	for i := len(h.Messages) - 1; i >= 0; i-- {
		if h.Messages[i].Role == RoleUser {
			return h.Messages[i].Content, true
		}
	}
	return "", false
}

// LastAssistantMessage returns the content of the most recent assistant message.
func (h *Header) LastAssistantMessage() (string, bool) {
	for i := len(h.Messages) - 1; i >= 0; i-- {
		if h.Messages[i].Role == RoleAssistant {
			return h.Messages[i].Content, true
		}
	}
	return "", false
}

// Transcript returns the persistable view of the conversation: every
// non-ephemeral message in append order. The returned slice is a copy.
func (h *Header) Transcript() []Message {
	out := make([]Message, 0, len(h.Messages))
	for _, m := range h.Messages {
		if m.Ephemeral {
			continue
		}
		out = append(out, m)
	}
	return out
}

// State is implemented by every agent-specific conversation state variant.
// Variants share the Header by embedding and expose it through Head.
type State interface {
	Head() *Header
}

// NewID returns a new globally unique identifier.
func NewID() string { return uuid.NewString() }
