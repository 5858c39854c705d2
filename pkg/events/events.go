package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TopicChat carries the generation lifecycle of every conversation.
const TopicChat = "chat"

type EventType string

const (
	EventTypeStart EventType = "start"
	EventTypeFinal EventType = "final"
	EventTypeError EventType = "error"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

// EventMetadata identifies one generation call.
type EventMetadata struct {
	ID             uuid.UUID `json:"message_id" yaml:"message_id"`
	ConversationID string    `json:"conversation_id" yaml:"conversation_id"`
	Model          string    `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature    *float64  `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP           *float64  `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	MaxTokens      *int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	DurationMs     *int64    `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
}

func NewEventMetadata(conversationID string, model string) EventMetadata {
	return EventMetadata{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Model:          model,
	}
}

// SetDuration records the time elapsed since start.
func (em *EventMetadata) SetDuration(start time.Time) {
	d := time.Since(start).Milliseconds()
	em.DurationMs = &d
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	e.Str("conversation_id", em.ConversationID)
	if em.Model != "" {
		e.Str("model", em.Model)
	}
	if em.Temperature != nil {
		e.Float64("temperature", *em.Temperature)
	}
	if em.TopP != nil {
		e.Float64("top_p", *em.TopP)
	}
	if em.MaxTokens != nil {
		e.Int("max_tokens", *em.MaxTokens)
	}
	if em.DurationMs != nil {
		e.Int64("duration_ms", *em.DurationMs)
	}
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta"`

	// set when the event was decoded by NewEventFromJson
	payload []byte
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

var _ Event = &EventImpl{}

type EventStart struct {
	EventImpl
}

func NewStartEvent(metadata EventMetadata) *EventStart {
	return &EventStart{
		EventImpl: EventImpl{Type_: EventTypeStart, Metadata_: metadata},
	}
}

type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(metadata EventMetadata, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{Type_: EventTypeFinal, Metadata_: metadata},
		Text:      text,
	}
}

func (e EventFinal) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Int("text_len", len(e.Text))
}

type EventError struct {
	EventImpl
	ErrorString string `json:"error"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	ret := &EventError{
		EventImpl: EventImpl{Type_: EventTypeError, Metadata_: metadata},
	}
	if err != nil {
		ret.ErrorString = err.Error()
	}
	return ret
}

func (e EventError) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("error", e.ErrorString)
}

// NewEventFromJson decodes a payload published on the bus into its typed event.
func NewEventFromJson(b []byte) (Event, error) {
	var hdr struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(b, &hdr); err != nil {
		return nil, errors.Wrap(err, "failed to decode event header")
	}

	var ret interface {
		Event
		setPayload([]byte)
	}
	switch hdr.Type {
	case EventTypeStart:
		ret = &EventStart{}
	case EventTypeFinal:
		ret = &EventFinal{}
	case EventTypeError:
		ret = &EventError{}
	default:
		return nil, errors.Errorf("unknown event type %q", hdr.Type)
	}
	if err := json.Unmarshal(b, ret); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s event", hdr.Type)
	}
	ret.setPayload(b)
	return ret, nil
}

func (e *EventImpl) setPayload(b []byte) {
	e.payload = b
}
