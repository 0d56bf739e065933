package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHeader(t *testing.T) {
	h := NewHeader(42)

	assert.Equal(t, int64(42), h.OrganizationID)
	assert.Equal(t, PhaseCreated, h.CurrentPhase)
	assert.Empty(t, h.Messages)
}

func TestHeader_AppendMessage(t *testing.T) {
	h := NewHeader(1)
	h.AppendMessage(RoleUser, "hello")
	h.AppendMessage(RoleAssistant, "hi there")

	require.Len(t, h.Messages, 2)
	assert.Equal(t, RoleUser, h.Messages[0].Role)
	assert.Equal(t, "hi there", h.Messages[1].Content)
	assert.False(t, h.Messages[1].Ephemeral)
}

func TestHeader_Transcript_ExcludesEphemeral(t *testing.T) {
	h := NewHeader(1)
	h.AppendMessage(RoleUser, "plan a launch event")
	h.AppendEphemeral(RoleSystem, "routing note")
	h.AppendMessage(RoleAssistant, "on it")

	transcript := h.Transcript()

	require.Len(t, transcript, 2)
	assert.Equal(t, "plan a launch event", transcript[0].Content)
	assert.Equal(t, "on it", transcript[1].Content)
}

func TestHeader_LastMessages(t *testing.T) {
	h := NewHeader(1)

	_, ok := h.LastUserMessage()
	assert.False(t, ok)
	_, ok = h.LastAssistantMessage()
	assert.False(t, ok)

	h.AppendMessage(RoleUser, "first")
	h.AppendMessage(RoleAssistant, "reply one")
	h.AppendMessage(RoleUser, "second")
	h.AppendMessage(RoleAssistant, "reply two")

	user, ok := h.LastUserMessage()
	require.True(t, ok)
	assert.Equal(t, "second", user)

	assistant, ok := h.LastAssistantMessage()
	require.True(t, ok)
	assert.Equal(t, "reply two", assistant)
}

func TestHeader_SerializationRoundTrip(t *testing.T) {
	h := NewHeader(7)
	h.AppendMessage(RoleUser, "hello")
	h.AppendEphemeral(RoleSystem, "note")
	h.CurrentPhase = "gather_requirements"
	h.NextSteps = []string{"compose_reply"}

	first, err := json.Marshal(&h)
	require.NoError(t, err)

	var decoded Header
	require.NoError(t, json.Unmarshal(first, &decoded))

	second, err := json.Marshal(&decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, h, decoded)
}

func TestTier_Rank(t *testing.T) {
	assert.Less(t, TierFree.Rank(), TierProfessional.Rank())
	assert.Less(t, TierProfessional.Rank(), TierEnterprise.Rank())
	assert.Less(t, Tier("bogus").Rank(), TierFree.Rank())
}
