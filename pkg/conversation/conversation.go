package conversation

import (
	"github.com/huandu/go-clone"
)

const DefaultTitle = "New Conversation"

// sidebar labels show at most this many characters of the opening message
const displayTitleLength = 30

// Conversation is one chat thread. Messages are append-only and never reordered.
type Conversation struct {
	ID       string    `json:"id" yaml:"id" jsonschema:"required"`
	Title    string    `json:"title" yaml:"title"`
	Messages []Message `json:"messages" yaml:"messages" jsonschema:"required"`
	// LastUpdated is the instant of the last mutation in milliseconds since the unix epoch.
	LastUpdated  int64       `json:"lastUpdated" yaml:"lastUpdated"`
	RunSettings  RunSettings `json:"runSettings" yaml:"runSettings"`
	SystemPrompt string      `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"`
}

// DisplayTitle is the label shown in conversation lists: the start of the first
// message, or the title while the conversation is still empty.
func (c *Conversation) DisplayTitle() string {
	if len(c.Messages) == 0 || c.Messages[0].Content == "" {
		if c.Title == "" {
			return DefaultTitle
		}
		return c.Title
	}
	runes := []rune(c.Messages[0].Content)
	if len(runes) > displayTitleLength {
		runes = runes[:displayTitleLength]
	}
	return string(runes)
}

// LastMessage returns the most recent message, if any.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Session is the full persisted application state.
type Session struct {
	Conversations []*Conversation `json:"conversations" yaml:"conversations" jsonschema:"required"`
	// CurrentConversationID is a weak reference into Conversations. It is not validated.
	CurrentConversationID *string `json:"currentConversationId" yaml:"currentConversationId" jsonschema:"oneof_type=string;null"`
	APIKey                string  `json:"apiKey" yaml:"apiKey"`
	SelectedModel         string  `json:"selectedModel" yaml:"selectedModel"`
}

func NewSession() *Session {
	return &Session{
		Conversations: []*Conversation{},
		SelectedModel: DefaultModel,
	}
}

func (s *Session) Clone() *Session {
	return clone.Clone(s).(*Session)
}

func (s *Session) Find(id string) (*Conversation, bool) {
	for _, c := range s.Conversations {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Current resolves CurrentConversationID. A dangling id resolves to nothing.
func (s *Session) Current() (*Conversation, bool) {
	if s.CurrentConversationID == nil {
		return nil, false
	}
	return s.Find(*s.CurrentConversationID)
}

func (s *Session) CurrentID() string {
	if s.CurrentConversationID == nil {
		return ""
	}
	return *s.CurrentConversationID
}
