package conversation

import (
	"sync"
	"testing"
	"time"

	"github.com/go-go-golems/gemchat/pkg/kv"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	kv.Store
	fail bool
}

func (f *failingStore) Set(key, value string) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Store.Set(key, value)
}

func newTestStore(t *testing.T) (*Store, kv.Store) {
	t.Helper()
	slots := kv.NewMemoryStore()
	s, err := OpenStore(slots)
	require.NoError(t, err)
	return s, slots
}

func persisted(t *testing.T, slots kv.Store) *Session {
	t.Helper()
	session, err := Load(slots)
	require.NoError(t, err)
	return session
}

func TestCreateConversationBecomesCurrent(t *testing.T) {
	s, slots := newTestStore(t)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := s.CreateConversation()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		assert.Equal(t, id, s.CurrentConversationID())
	}

	session := persisted(t, slots)
	require.Len(t, session.Conversations, 50)
	assert.Equal(t, s.CurrentConversationID(), session.CurrentID())

	c := session.Conversations[0]
	assert.Equal(t, DefaultTitle, c.Title)
	assert.Empty(t, c.Messages)
	assert.Equal(t, DefaultRunSettings(), c.RunSettings)
}

func TestConversationIDsSortInCreationOrder(t *testing.T) {
	s, _ := newTestStore(t)

	var ids []string
	for i := 0; i < 20; i++ {
		ids = append(ids, s.CreateConversation())
	}
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
}

func TestDeleteNonCurrentKeepsCurrent(t *testing.T) {
	s, _ := newTestStore(t)
	c1 := s.CreateConversation()
	c2 := s.CreateConversation()
	c3 := s.CreateConversation()

	s.DeleteConversation(c1)
	assert.Equal(t, c3, s.CurrentConversationID())

	s.DeleteConversation(c2)
	assert.Equal(t, c3, s.CurrentConversationID())
	assert.Len(t, s.Conversations(), 1)
}

func TestDeleteCurrentSelectsFirstRemaining(t *testing.T) {
	s, slots := newTestStore(t)
	c1 := s.CreateConversation()
	c2 := s.CreateConversation()
	require.Equal(t, c2, s.CurrentConversationID())

	s.DeleteConversation(c2)
	assert.Equal(t, c1, s.CurrentConversationID())

	s.DeleteConversation(c1)
	assert.Nil(t, s.Snapshot().CurrentConversationID)
	assert.Nil(t, persisted(t, slots).CurrentConversationID)
	assert.Empty(t, s.Conversations())
}

func TestDeleteUnknownConversation(t *testing.T) {
	s, _ := newTestStore(t)
	c1 := s.CreateConversation()

	s.DeleteConversation("missing")
	assert.Equal(t, c1, s.CurrentConversationID())
	assert.Len(t, s.Conversations(), 1)
}

func TestAddMessageAppendsAndAdvancesLastUpdated(t *testing.T) {
	clock := time.UnixMilli(1_700_000_000_000)
	s := NewStore(kv.NewMemoryStore(), nil, WithClock(func() time.Time { return clock }))
	id := s.CreateConversation()

	first := NewMessage(RoleUser, "hi")
	s.AddMessage(id, first)
	c, ok := s.Conversation(id)
	require.True(t, ok)
	require.Len(t, c.Messages, 1)
	assert.Equal(t, first, c.Messages[0])
	previous := c.LastUpdated

	// a clock that goes backwards must not move lastUpdated back
	clock = clock.Add(-time.Hour)
	second := NewMessage(RoleAssistant, "hello")
	s.AddMessage(id, second)
	c, _ = s.Conversation(id)
	require.Len(t, c.Messages, 2)
	assert.Equal(t, second, c.Messages[1])
	assert.GreaterOrEqual(t, c.LastUpdated, previous)

	clock = clock.Add(2 * time.Hour)
	s.AddMessage(id, NewMessage(RoleUser, "again"))
	c, _ = s.Conversation(id)
	assert.Equal(t, clock.UnixMilli(), c.LastUpdated)
}

func TestUnknownIDsLeaveStateUnchanged(t *testing.T) {
	s, slots := newTestStore(t)
	id := s.CreateConversation()
	s.AddMessage(id, NewMessage(RoleUser, "hi"))
	before := s.Snapshot()
	beforeRaw, _, err := slots.Get(StateKey)
	require.NoError(t, err)

	temperature := 0.1
	s.AddMessage("missing", NewMessage(RoleUser, "lost"))
	s.UpdateRunSettings("missing", RunSettingsPatch{Temperature: &temperature})
	s.SetSystemPrompt("missing", "be brief")

	assert.Equal(t, before, s.Snapshot())
	afterRaw, _, err := slots.Get(StateKey)
	require.NoError(t, err)
	assert.Equal(t, beforeRaw, afterRaw)
}

func TestSelectedModelScenario(t *testing.T) {
	s, slots := newTestStore(t)

	c1 := s.CreateConversation()
	assert.Equal(t, c1, s.CurrentConversationID())

	s.AddMessage(c1, NewMessage(RoleUser, "hi"))
	c, _ := s.Conversation(c1)
	assert.Len(t, c.Messages, 1)

	s.SetSelectedModel("gemini-2.0-flash")
	c, _ = s.Conversation(c1)
	assert.Equal(t, "gemini-2.0-flash", c.RunSettings.Model)
	assert.Equal(t, "gemini-2.0-flash", s.SelectedModel())

	session := persisted(t, slots)
	assert.Equal(t, "gemini-2.0-flash", session.SelectedModel)
	assert.Equal(t, "gemini-2.0-flash", session.Conversations[0].RunSettings.Model)
}

func TestSetSelectedModelOnlyTouchesCurrent(t *testing.T) {
	s, _ := newTestStore(t)
	c1 := s.CreateConversation()
	c2 := s.CreateConversation()

	s.SetSelectedModel("gemini-1.5-flash")

	first, _ := s.Conversation(c1)
	second, _ := s.Conversation(c2)
	assert.Equal(t, DefaultModel, first.RunSettings.Model)
	assert.Equal(t, "gemini-1.5-flash", second.RunSettings.Model)
}

func TestSetCurrentConversationDoesNotSyncSelectedModel(t *testing.T) {
	s, _ := newTestStore(t)
	c1 := s.CreateConversation()
	s.CreateConversation()
	s.SetSelectedModel("gemini-2.0-flash-lite")

	s.SetCurrentConversation(c1)
	assert.Equal(t, c1, s.CurrentConversationID())
	assert.Equal(t, "gemini-2.0-flash-lite", s.SelectedModel())

	// dangling ids are accepted as is
	s.SetCurrentConversation("nowhere")
	assert.Equal(t, "nowhere", s.CurrentConversationID())
	_, ok := s.CurrentConversation()
	assert.False(t, ok)

	// no current conversation: only the global changes
	s.SetSelectedModel("gemini-1.5-flash")
	first, _ := s.Conversation(c1)
	assert.Equal(t, DefaultModel, first.RunSettings.Model)
}

func TestUpdateRunSettingsMergesPatch(t *testing.T) {
	s, _ := newTestStore(t)
	c1 := s.CreateConversation()

	temperature := 0.3
	s.UpdateRunSettings(c1, RunSettingsPatch{Temperature: &temperature})

	c, _ := s.Conversation(c1)
	expected := DefaultRunSettings()
	expected.Temperature = 0.3
	assert.Equal(t, expected, c.RunSettings)

	maxTokens := 512
	model := "gemini-1.5-flash-8b"
	s.UpdateRunSettings(c1, RunSettingsPatch{MaxOutputTokens: &maxTokens, Model: &model})
	c, _ = s.Conversation(c1)
	assert.Equal(t, 0.3, c.RunSettings.Temperature)
	assert.Equal(t, 0.8, c.RunSettings.TopP)
	assert.Equal(t, 512, c.RunSettings.MaxOutputTokens)
	assert.Equal(t, model, c.RunSettings.Model)
	// the global model is left alone
	assert.Equal(t, DefaultModel, s.SelectedModel())
}

func TestSetAPIKeyAndSystemPromptPersist(t *testing.T) {
	s, slots := newTestStore(t)
	id := s.CreateConversation()

	s.SetAPIKey("secret")
	s.SetSystemPrompt(id, "You are terse.")

	session := persisted(t, slots)
	assert.Equal(t, "secret", session.APIKey)
	assert.Equal(t, "You are terse.", session.Conversations[0].SystemPrompt)

	reopened, err := OpenStore(slots)
	require.NoError(t, err)
	assert.Equal(t, "secret", reopened.APIKey())
	c, ok := reopened.CurrentConversation()
	require.True(t, ok)
	assert.Equal(t, "You are terse.", c.SystemPrompt)
}

func TestReadersReturnCopies(t *testing.T) {
	s, _ := newTestStore(t)
	id := s.CreateConversation()
	s.AddMessage(id, NewMessage(RoleUser, "hi"))

	c, _ := s.Conversation(id)
	c.Messages[0].Content = "changed"
	c.RunSettings.Model = "changed"

	snapshot := s.Snapshot()
	snapshot.Conversations[0].Title = "changed"

	fresh, _ := s.Conversation(id)
	assert.Equal(t, "hi", fresh.Messages[0].Content)
	assert.Equal(t, DefaultModel, fresh.RunSettings.Model)
	assert.Equal(t, DefaultTitle, fresh.Title)
}

func TestPersistFailureKeepsMutation(t *testing.T) {
	slots := &failingStore{Store: kv.NewMemoryStore()}
	s := NewStore(slots, nil)

	id := s.CreateConversation()
	require.NoError(t, s.LastPersistError())

	slots.fail = true
	s.AddMessage(id, NewMessage(RoleUser, "hi"))
	assert.Error(t, s.LastPersistError())
	c, _ := s.Conversation(id)
	assert.Len(t, c.Messages, 1)

	slots.fail = false
	s.SetAPIKey("key")
	assert.NoError(t, s.LastPersistError())
	assert.Len(t, persisted(t, slots).Conversations[0].Messages, 1)
}

func TestConcurrentAppends(t *testing.T) {
	s, slots := newTestStore(t)
	id := s.CreateConversation()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddMessage(id, NewMessage(RoleUser, "hi"))
		}()
	}
	wg.Wait()

	c, _ := s.Conversation(id)
	assert.Len(t, c.Messages, 20)
	assert.Len(t, persisted(t, slots).Conversations[0].Messages, 20)
}

func TestReplace(t *testing.T) {
	s, slots := newTestStore(t)
	s.CreateConversation()

	imported := NewSession()
	imported.APIKey = "imported"
	s.Replace(imported)

	assert.Empty(t, s.Conversations())
	assert.Equal(t, "imported", persisted(t, slots).APIKey)
}
