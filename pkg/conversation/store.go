package conversation

import (
	"sync"
	"time"

	"github.com/go-go-golems/gemchat/pkg/kv"
	"github.com/huandu/go-clone"
	"github.com/rs/zerolog/log"
)

// Store owns the authoritative in-memory Session and mirrors it into a kv slot.
//
// Every mutation runs under one lock together with the write of the full session,
// so the persisted slot reflects a mutation before the call returns. Mutations never
// fail: an id that matches no conversation is silently ignored, and a failing write
// is logged and kept for LastPersistError without undoing the in-memory change.
type Store struct {
	mu        sync.Mutex
	session   *Session
	slots     kv.Store
	now       func() time.Time
	persistFn func(kv.Store, *Session) error
	lastErr   error
}

type StoreOption func(*Store)

// WithClock replaces the time source used for LastUpdated.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore wraps an already loaded session. A nil session starts empty.
func NewStore(slots kv.Store, session *Session, options ...StoreOption) *Store {
	if session == nil {
		session = NewSession()
	}
	ret := &Store{
		session:   session,
		slots:     slots,
		now:       time.Now,
		persistFn: Save,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// OpenStore loads the session from slots and wraps it.
func OpenStore(slots kv.Store, options ...StoreOption) (*Store, error) {
	session, err := Load(slots)
	if err != nil {
		return nil, err
	}
	return NewStore(slots, session, options...), nil
}

func (s *Store) persistLocked() {
	if s.slots == nil {
		return
	}
	err := s.persistFn(s.slots, s.session)
	s.lastErr = err
	if err != nil {
		log.Error().Err(err).Msg("failed to persist chat state")
	}
}

// LastPersistError returns the outcome of the most recent write.
func (s *Store) LastPersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.APIKey = key
	s.persistLocked()
}

// SetSelectedModel replaces the global model and, if a conversation is current,
// that conversation's model. Other conversations keep theirs.
func (s *Store) SetSelectedModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.SelectedModel = model
	if c, ok := s.session.Current(); ok {
		c.RunSettings.Model = model
	}
	s.persistLocked()
}

func (s *Store) UpdateRunSettings(conversationID string, patch RunSettingsPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.session.Find(conversationID)
	if !ok {
		log.Debug().Str("conversation_id", conversationID).Msg("update run settings: unknown conversation")
		return
	}
	c.RunSettings = patch.Apply(c.RunSettings)
	s.persistLocked()
}

// CreateConversation appends an empty conversation, makes it current and returns its id.
func (s *Store) CreateConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &Conversation{
		ID:          NewID(),
		Title:       DefaultTitle,
		Messages:    []Message{},
		LastUpdated: s.now().UnixMilli(),
		RunSettings: DefaultRunSettings(),
	}
	s.session.Conversations = append(s.session.Conversations, c)
	id := c.ID
	s.session.CurrentConversationID = &id
	s.persistLocked()

	log.Debug().Str("conversation_id", id).Int("conversation_count", len(s.session.Conversations)).Msg("conversation created")
	return id
}

// SetCurrentConversation does not check that the id exists.
func (s *Store) SetCurrentConversation(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := conversationID
	s.session.CurrentConversationID = &id
	s.persistLocked()
}

func (s *Store) AddMessage(conversationID string, message Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.session.Find(conversationID)
	if !ok {
		log.Debug().Str("conversation_id", conversationID).Msg("add message: unknown conversation")
		return
	}
	c.Messages = append(c.Messages, message)
	if now := s.now().UnixMilli(); now > c.LastUpdated {
		c.LastUpdated = now
	}
	s.persistLocked()

	log.Trace().
		Str("conversation_id", conversationID).
		Str("message_id", message.ID).
		Str("role", string(message.Role)).
		Int("message_count", len(c.Messages)).
		Msg("message appended")
}

func (s *Store) SetSystemPrompt(conversationID string, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.session.Find(conversationID)
	if !ok {
		return
	}
	c.SystemPrompt = prompt
	s.persistLocked()
}

// DeleteConversation removes a conversation. Deleting the current one selects the
// first remaining conversation, or nothing.
func (s *Store) DeleteConversation(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]*Conversation, 0, len(s.session.Conversations))
	for _, c := range s.session.Conversations {
		if c.ID != conversationID {
			kept = append(kept, c)
		}
	}
	s.session.Conversations = kept

	if s.session.CurrentID() == conversationID && s.session.CurrentConversationID != nil {
		if len(kept) > 0 {
			id := kept[0].ID
			s.session.CurrentConversationID = &id
		} else {
			s.session.CurrentConversationID = nil
		}
	}
	s.persistLocked()
}

// Replace swaps in a whole session, e.g. from an import.
func (s *Store) Replace(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session == nil {
		session = NewSession()
	}
	s.session = session.Clone()
	s.persistLocked()
}

// Snapshot returns a deep copy of the session.
func (s *Store) Snapshot() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

func (s *Store) Conversation(conversationID string) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.session.Find(conversationID)
	if !ok {
		return nil, false
	}
	return cloneConversation(c), true
}

func (s *Store) CurrentConversation() (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.session.Current()
	if !ok {
		return nil, false
	}
	return cloneConversation(c), true
}

func (s *Store) CurrentConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.CurrentID()
}

func (s *Store) APIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.APIKey
}

func (s *Store) SelectedModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.SelectedModel
}

// Conversations returns copies of all conversations in creation order.
func (s *Store) Conversations() []*Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make([]*Conversation, 0, len(s.session.Conversations))
	for _, c := range s.session.Conversations {
		ret = append(ret, cloneConversation(c))
	}
	return ret
}

func cloneConversation(c *Conversation) *Conversation {
	return clone.Clone(c).(*Conversation)
}
