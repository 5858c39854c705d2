package conversation

import (
	"encoding/json"

	"github.com/go-go-golems/gemchat/pkg/kv"
	"github.com/pkg/errors"
)

// StateKey is the slot the whole session is written into.
const StateKey = "chatState"

// Older documents predate runSettings on conversations, hence the pointer.
type persistedConversation struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Messages     []Message    `json:"messages"`
	LastUpdated  int64        `json:"lastUpdated"`
	RunSettings  *RunSettings `json:"runSettings"`
	SystemPrompt string       `json:"systemPrompt,omitempty"`
}

type persistedSession struct {
	Conversations         []*persistedConversation `json:"conversations"`
	CurrentConversationID *string                  `json:"currentConversationId"`
	APIKey                string                   `json:"apiKey"`
	SelectedModel         string                   `json:"selectedModel"`
}

// CorruptStateError is returned when the persisted document does not parse.
type CorruptStateError struct {
	Err error
}

func (e *CorruptStateError) Error() string {
	return "failed to parse persisted chat state: " + e.Err.Error()
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

// Marshal serializes the full session.
func Marshal(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("session is nil")
	}
	return json.Marshal(s)
}

// Unmarshal parses a persisted session. Conversations stored without run settings
// get DefaultRunSettings; the migration only reaches storage with the next write.
func Unmarshal(b []byte) (*Session, error) {
	var ps persistedSession
	if err := json.Unmarshal(b, &ps); err != nil {
		return nil, &CorruptStateError{Err: err}
	}

	ret := &Session{
		Conversations:         make([]*Conversation, 0, len(ps.Conversations)),
		CurrentConversationID: ps.CurrentConversationID,
		APIKey:                ps.APIKey,
		SelectedModel:         ps.SelectedModel,
	}
	for i, pc := range ps.Conversations {
		if pc == nil {
			return nil, &CorruptStateError{Err: errors.Errorf("conversation %d is null", i)}
		}
		c := &Conversation{
			ID:           pc.ID,
			Title:        pc.Title,
			Messages:     pc.Messages,
			LastUpdated:  pc.LastUpdated,
			SystemPrompt: pc.SystemPrompt,
		}
		if c.Messages == nil {
			c.Messages = []Message{}
		}
		if pc.RunSettings != nil {
			c.RunSettings = *pc.RunSettings
		} else {
			c.RunSettings = DefaultRunSettings()
		}
		ret.Conversations = append(ret.Conversations, c)
	}

	return ret, nil
}

// Load restores the session from its slot. A missing slot yields an empty session;
// a slot that does not parse is an error.
func Load(store kv.Store) (*Session, error) {
	raw, found, err := store.Get(StateKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return NewSession(), nil
	}
	return Unmarshal([]byte(raw))
}

// Save writes the full session into its slot.
func Save(store kv.Store, s *Session) error {
	b, err := Marshal(s)
	if err != nil {
		return err
	}
	return store.Set(StateKey, string(b))
}
