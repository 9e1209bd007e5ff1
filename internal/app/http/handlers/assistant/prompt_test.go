package assistant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopwhiz/go_backend/internal/domain/conversation"
)

func TestInteractionConfigsExhaustive(t *testing.T) {
	require.NoError(t, validateInteractionConfigs())
	for _, it := range allInteractionTypes {
		assert.True(t, it.valid(), "missing config for %s", it)
	}
}

func TestConfigForUnknownType(t *testing.T) {
	_, err := configFor(InteractionType("bogus"))
	assert.Error(t, err)
}

func TestSeverityOrder(t *testing.T) {
	assert.True(t, SeverityNone < SeverityFilter)
	assert.True(t, SeverityFilter < SeverityRetry)
	assert.True(t, SeverityRetry < SeverityFail)
}

func TestComposeLayersInOrder(t *testing.T) {
	ic := interactionConfigs[InteractionChat]
	mem := &memoryState{
		summary: "customer wants shoes",
		turns: []conversation.Turn{
			{Sender: conversation.SenderUser, Content: "hi"},
			{Sender: conversation.SenderAI, Content: "hello"},
		},
	}
	p := compose(ic,
		[]string{"The customer has visited the store before."},
		mem,
		[]string{"Product ID: 1\nTitle: Red Shoes"},
		"do you have red shoes")

	assert.Equal(t, ic.systemPrompt, p.system)

	ctxIdx := strings.Index(p.user, "Customer context:")
	sumIdx := strings.Index(p.user, "Conversation summary:")
	histIdx := strings.Index(p.user, "Conversation history:")
	prodIdx := strings.Index(p.user, productBlockMarker)
	inputIdx := strings.Index(p.user, "Customer message: do you have red shoes")

	require.GreaterOrEqual(t, ctxIdx, 0)
	require.Greater(t, sumIdx, ctxIdx)
	require.Greater(t, histIdx, sumIdx)
	require.Greater(t, prodIdx, histIdx)
	require.Greater(t, inputIdx, prodIdx)

	assert.Contains(t, p.user, "Customer: hi")
	assert.Contains(t, p.user, "Assistant: hello")
}

func TestComposeOmitsEmptyBlocks(t *testing.T) {
	p := compose(interactionConfigs[InteractionChat], nil, &memoryState{}, nil, "hello")
	assert.NotContains(t, p.user, "Customer context:")
	assert.NotContains(t, p.user, "Conversation summary:")
	assert.NotContains(t, p.user, "Conversation history:")
	assert.NotContains(t, p.user, productBlockMarker)
	assert.Equal(t, "Customer message: hello", p.user)
}

func TestGreetingConfigsArePlainCompletions(t *testing.T) {
	assert.Empty(t, interactionConfigs[InteractionGreeting].schema)
	assert.Empty(t, interactionConfigs[InteractionEmbedGreeting].schema)
	assert.NotEmpty(t, interactionConfigs[InteractionChat].schema)
	assert.NotEmpty(t, interactionConfigs[InteractionHints].schema)
}
