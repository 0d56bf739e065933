package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModelDeterministicResponses(t *testing.T) {
	m := NewMockModel("unit")
	m.AddResponse("known prompt", "canned answer")

	resp, err := m.Generate(context.Background(), Request{Prompt: "known prompt"})
	require.NoError(t, err)
	assert.Equal(t, "canned answer", resp.Text)

	resp, err = m.Generate(context.Background(), Request{Prompt: "anything else"})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: anything else", resp.Text)

	assert.Equal(t, 2, m.Calls())
	assert.Equal(t, Info{Name: "unit", Provider: "mock"}, m.Info())
}

func TestMockModelFailWith(t *testing.T) {
	m := NewMockModel("unit")
	boom := errors.New("upstream unavailable")
	m.FailWith(boom)

	_, err := m.Generate(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, m.Calls())
}
