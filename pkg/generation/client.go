package generation

import (
	"context"
	"fmt"
	"strings"
)

// ErrorPlaceholder is written into the transcript in place of a reply when generation fails.
const ErrorPlaceholder = "Error: Failed to generate response. Please check your API key and model selection."

// Request carries everything needed for one generation call. History is not sent.
type Request struct {
	APIKey          string
	Model           string
	Temperature     float64
	TopP            float64
	MaxOutputTokens int
	// SystemPrompt is optional.
	SystemPrompt string
	UserText     string
}

// Client produces the reply text for a request.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Model struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// SupportedModels are the models offered in the model selector, newest first.
var SupportedModels = []Model{
	{ID: "gemini-2.5-pro-preview-03-25", Name: "Gemini 2.5 Pro Preview"},
	{ID: "gemini-2.5-flash-preview-04-17", Name: "Gemini 2.5 Flash Preview"},
	{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash"},
	{ID: "gemini-2.0-flash-lite", Name: "Gemini 2.0 Flash-Lite"},
	{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash"},
	{ID: "gemini-1.5-flash-8b", Name: "Gemini 1.5 Flash-8B"},
	{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro"},
}

func IsSupportedModel(id string) bool {
	_, ok := LookupModel(id)
	return ok
}

func LookupModel(id string) (Model, bool) {
	for _, m := range SupportedModels {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// NextModel returns the model after id in SupportedModels, wrapping around.
// Unknown ids start over at the first model.
func NextModel(id string) Model {
	for i, m := range SupportedModels {
		if m.ID == id {
			return SupportedModels[(i+1)%len(SupportedModels)]
		}
	}
	return SupportedModels[0]
}

// EchoClient answers without any network access.
type EchoClient struct {
	Prefix string
}

var _ Client = (*EchoClient)(nil)

func (e *EchoClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	prefix := e.Prefix
	if prefix == "" {
		prefix = "echo"
	}
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "[%s %s]", prefix, req.Model)
	if req.SystemPrompt != "" {
		_, _ = fmt.Fprintf(&sb, " (%s)", req.SystemPrompt)
	}
	sb.WriteString(" ")
	sb.WriteString(req.UserText)
	return sb.String(), nil
}
