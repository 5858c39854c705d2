package conversation

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is a single immutable entry in a conversation transcript.
type Message struct {
	ID      string `json:"id" yaml:"id" jsonschema:"required"`
	Content string `json:"content" yaml:"content" jsonschema:"required"`
	Role    Role   `json:"role" yaml:"role" jsonschema:"required,enum=user,enum=assistant,enum=system"`
	// Timestamp is the creation instant in milliseconds since the unix epoch.
	Timestamp int64 `json:"timestamp" yaml:"timestamp"`
}

type MessageOption func(*Message)

func WithTime(t time.Time) MessageOption {
	return func(message *Message) {
		message.Timestamp = t.UnixMilli()
	}
}

func WithID(id string) MessageOption {
	return func(message *Message) {
		message.ID = id
	}
}

func NewMessage(role Role, content string, options ...MessageOption) Message {
	ret := Message{
		ID:        NewID(),
		Content:   content,
		Role:      role,
		Timestamp: time.Now().UnixMilli(),
	}

	for _, option := range options {
		option(&ret)
	}

	return ret
}

func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

func (m Message) String() string {
	return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Content, "\n"))
}
