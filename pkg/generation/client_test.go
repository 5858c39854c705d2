package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportedModels(t *testing.T) {
	assert.Len(t, SupportedModels, 7)
	assert.True(t, IsSupportedModel("gemini-1.5-pro"))
	assert.True(t, IsSupportedModel("gemini-2.5-flash-preview-04-17"))
	assert.False(t, IsSupportedModel("gpt-4"))

	m, ok := LookupModel("gemini-2.0-flash-lite")
	require.True(t, ok)
	assert.Equal(t, "Gemini 2.0 Flash-Lite", m.Name)
}

func TestNextModelWraps(t *testing.T) {
	assert.Equal(t, "gemini-2.5-flash-preview-04-17", NextModel("gemini-2.5-pro-preview-03-25").ID)
	assert.Equal(t, "gemini-2.5-pro-preview-03-25", NextModel("gemini-1.5-pro").ID)
	assert.Equal(t, "gemini-2.5-pro-preview-03-25", NextModel("unknown").ID)
}

func TestEchoClient(t *testing.T) {
	c := &EchoClient{}
	text, err := c.Generate(context.Background(), Request{Model: "gemini-1.5-pro", SystemPrompt: "sys", UserText: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "[echo gemini-1.5-pro] (sys) hi", text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Generate(ctx, Request{UserText: "hi"})
	assert.ErrorIs(t, err, context.Canceled)
}
