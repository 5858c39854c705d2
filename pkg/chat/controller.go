// Package chat drives a send from the input box to the transcript:
// user message, generation call, assistant message.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/gemchat/pkg/conversation"
	"github.com/go-go-golems/gemchat/pkg/events"
	"github.com/go-go-golems/gemchat/pkg/generation"
	"github.com/go-go-golems/gemchat/pkg/tokens"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyMessage        = errors.New("message is empty")
	ErrNoConversation      = errors.New("no conversation selected")
	ErrUnknownConversation = errors.New("conversation not found")
	ErrMissingAPIKey       = errors.New("no API key set")
	ErrTokenCounterMissing = errors.New("no token counter configured")
)

type Controller struct {
	store   *conversation.Store
	client  generation.Client
	sink    events.EventSink
	counter *tokens.Counter

	mu sync.Mutex
	// outstanding generation calls per conversation
	loading map[string]int
}

type Option func(*Controller)

func WithEventSink(sink events.EventSink) Option {
	return func(c *Controller) {
		c.sink = sink
	}
}

func WithTokenCounter(counter *tokens.Counter) Option {
	return func(c *Controller) {
		c.counter = counter
	}
}

func NewController(store *conversation.Store, client generation.Client, options ...Option) *Controller {
	ret := &Controller{
		store:   store,
		client:  client,
		sink:    events.NullSink{},
		loading: map[string]int{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (c *Controller) Store() *conversation.Store {
	return c.store
}

// Send posts text to the current conversation.
func (c *Controller) Send(ctx context.Context, text string) (conversation.Message, error) {
	id := c.store.CurrentConversationID()
	if id == "" {
		return conversation.Message{}, ErrNoConversation
	}
	msg, err := c.SendTo(ctx, id, text)
	if errors.Is(err, ErrUnknownConversation) {
		return msg, ErrNoConversation
	}
	return msg, err
}

// SendTo appends the user message, calls the generation client and appends its
// reply. A failed call still produces an assistant message carrying
// generation.ErrorPlaceholder, and no error is returned for it.
func (c *Controller) SendTo(ctx context.Context, conversationID string, text string) (conversation.Message, error) {
	pending, err := c.Begin(conversationID, text)
	if err != nil {
		return conversation.Message{}, err
	}
	return pending.Complete(ctx), nil
}

// PendingReply is a send whose user message is already in the transcript and
// whose reply has not been generated yet.
type PendingReply struct {
	c              *Controller
	conversationID string
	req            generation.Request
	metadata       events.EventMetadata
	once           sync.Once
	reply          conversation.Message
}

func (p *PendingReply) ConversationID() string {
	return p.conversationID
}

// Begin validates the send, appends the user message and marks the conversation
// as loading. The UI calls Complete off its event loop.
func (c *Controller) Begin(conversationID string, text string) (*PendingReply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	conv, ok := c.store.Conversation(conversationID)
	if !ok {
		return nil, ErrUnknownConversation
	}
	apiKey := c.store.APIKey()
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c.startLoading(conversationID)
	c.store.AddMessage(conversationID, conversation.NewMessage(conversation.RoleUser, text))

	settings := conv.RunSettings
	metadata := events.NewEventMetadata(conversationID, settings.Model)
	metadata.Temperature = &settings.Temperature
	metadata.TopP = &settings.TopP
	metadata.MaxTokens = &settings.MaxOutputTokens

	return &PendingReply{
		c:              c,
		conversationID: conversationID,
		req: generation.Request{
			APIKey:          apiKey,
			Model:           settings.Model,
			Temperature:     settings.Temperature,
			TopP:            settings.TopP,
			MaxOutputTokens: settings.MaxOutputTokens,
			SystemPrompt:    conv.SystemPrompt,
			UserText:        text,
		},
		metadata: metadata,
	}, nil
}

// Complete runs the generation call once and appends the assistant message.
func (p *PendingReply) Complete(ctx context.Context) conversation.Message {
	p.once.Do(func() {
		p.reply = p.c.complete(ctx, p)
	})
	return p.reply
}

func (c *Controller) complete(ctx context.Context, p *PendingReply) conversation.Message {
	defer c.stopLoading(p.conversationID)

	metadata := p.metadata
	c.publish(events.NewStartEvent(metadata))

	startTime := time.Now()
	reply, err := c.client.Generate(ctx, p.req)
	metadata.SetDuration(startTime)
	if err != nil {
		log.Error().Err(err).
			Str("conversation_id", p.conversationID).
			Str("model", p.req.Model).
			Msg("generation failed")
		c.publish(events.NewErrorEvent(metadata, err))
		reply = generation.ErrorPlaceholder
	} else {
		c.publish(events.NewFinalEvent(metadata, reply))
	}

	message := conversation.NewMessage(conversation.RoleAssistant, reply)
	c.store.AddMessage(p.conversationID, message)
	return message
}

func (c *Controller) publish(ev events.Event) {
	if err := c.sink.PublishEvent(ev); err != nil {
		log.Warn().Err(err).Str("event_type", string(ev.Type())).Msg("failed to publish chat event")
	}
}

func (c *Controller) startLoading(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading[conversationID]++
}

func (c *Controller) stopLoading(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading[conversationID]--
	if c.loading[conversationID] <= 0 {
		delete(c.loading, conversationID)
	}
}

// IsLoading reports whether a reply is outstanding for the conversation. The flag
// is advisory: it does not stop a second send.
func (c *Controller) IsLoading(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading[conversationID] > 0
}

func (c *Controller) SaveSystemPrompt(conversationID string, prompt string) {
	c.store.SetSystemPrompt(conversationID, prompt)
}

// SelectModel is what the run-settings model selector does: patch the current
// conversation and make the model the global default.
func (c *Controller) SelectModel(model string) {
	if id := c.store.CurrentConversationID(); id != "" {
		c.store.UpdateRunSettings(id, conversation.RunSettingsPatch{Model: &model})
	}
	c.store.SetSelectedModel(model)
}

// TokenCount estimates the tokens used by the conversation's transcript.
func (c *Controller) TokenCount(conversationID string) (int, error) {
	if c.counter == nil {
		return 0, ErrTokenCounterMissing
	}
	conv, ok := c.store.Conversation(conversationID)
	if !ok {
		return 0, ErrUnknownConversation
	}
	return c.counter.CountConversation(conv)
}
