package generation

import (
	"context"
	"math"
	"strings"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// contentGenerator is the part of *genai.GenerativeModel the client calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type modelFactory func(ctx context.Context, req Request, cfg genai.GenerationConfig) (contentGenerator, func() error, error)

// GeminiClient calls the hosted Gemini API. A fresh SDK client is built per call
// from the request's API key.
type GeminiClient struct {
	baseURL  string
	newModel modelFactory
}

var _ Client = (*GeminiClient)(nil)

type GeminiOption func(*GeminiClient)

// WithBaseURL points the client at a different endpoint.
func WithBaseURL(url string) GeminiOption {
	return func(c *GeminiClient) {
		c.baseURL = url
	}
}

func NewGeminiClient(options ...GeminiOption) *GeminiClient {
	ret := &GeminiClient{}
	ret.newModel = ret.sdkModel
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (c *GeminiClient) sdkModel(ctx context.Context, req Request, cfg genai.GenerationConfig) (contentGenerator, func() error, error) {
	opts := []option.ClientOption{option.WithAPIKey(req.APIKey)}
	if c.baseURL != "" {
		opts = append(opts, option.WithEndpoint(c.baseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create gemini client")
	}
	model := client.GenerativeModel(req.Model)
	model.GenerationConfig = cfg
	return model, client.Close, nil
}

// generationConfig converts the run settings into the SDK's float32/int32 fields.
func generationConfig(req Request) genai.GenerationConfig {
	temperature := float32(req.Temperature)
	topP := float32(req.TopP)

	mt := req.MaxOutputTokens
	var maxTokens int32
	if mt < 0 {
		log.Warn().Int("requested_max_tokens", mt).Msg("Negative MaxOutputTokens provided; clamping to 0")
		maxTokens = 0
	} else if mt > int(math.MaxInt32) {
		log.Warn().Int("requested_max_tokens", mt).Int("clamped_to", int(math.MaxInt32)).Msg("MaxOutputTokens exceeds int32; clamping")
		maxTokens = math.MaxInt32
	} else {
		mt64 := int64(mt)
		maxTokens = int32(mt64) // #nosec G115
	}

	return genai.GenerationConfig{
		Temperature:     &temperature,
		TopP:            &topP,
		MaxOutputTokens: &maxTokens,
	}
}

// Generate sends the system prompt (if any) as a priming call and then the user
// text as a second call. Only the second call's reply is returned.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if req.APIKey == "" {
		return "", errors.New("missing gemini API key")
	}
	if req.Model == "" {
		return "", errors.New("no model specified")
	}

	model, closeFn, err := c.newModel(ctx, req, generationConfig(req))
	if err != nil {
		return "", err
	}
	defer func() {
		if closeFn == nil {
			return
		}
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("failed to close gemini client")
		}
	}()

	startTime := time.Now()
	log.Debug().
		Str("model", req.Model).
		Bool("system_prompt", req.SystemPrompt != "").
		Int("user_text_len", len(req.UserText)).
		Msg("Gemini generation started")

	if req.SystemPrompt != "" {
		if _, err := model.GenerateContent(ctx, genai.Text(req.SystemPrompt)); err != nil {
			log.Error().Err(err).Str("model", req.Model).Msg("Gemini system prompt call failed")
			return "", errors.Wrap(err, "failed to send system prompt")
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.UserText))
	if err != nil {
		log.Error().Err(err).Str("model", req.Model).Msg("Gemini generation failed")
		return "", errors.Wrap(err, "failed to generate content")
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}

	e := log.Debug().
		Str("model", req.Model).
		Int("final_text_len", len(text)).
		Dur("duration", time.Since(startTime))
	if resp.UsageMetadata != nil {
		e = e.Int32("input_tokens", resp.UsageMetadata.PromptTokenCount).
			Int32("output_tokens", resp.UsageMetadata.CandidatesTokenCount)
	}
	e.Msg("Gemini generation completed")

	return text, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return "", errors.Errorf("gemini returned an empty candidate (finish reason %s)", finishReason(candidate))
	}

	var sb strings.Builder
	for _, p := range candidate.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), nil
}

func finishReason(c *genai.Candidate) string {
	if c == nil {
		return "unknown"
	}
	return c.FinishReason.String()
}
