package ui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/gemchat/pkg/chat"
	"github.com/go-go-golems/gemchat/pkg/conversation"
	"github.com/go-go-golems/gemchat/pkg/generation"
	"github.com/go-go-golems/gemchat/pkg/kv"
	"github.com/go-go-golems/gemchat/pkg/prefs"
	"github.com/go-go-golems/gemchat/pkg/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store *conversation.Store
	prefs *prefs.Prefs
	m     model
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	slots := kv.NewMemoryStore()
	store := conversation.NewStore(slots, nil)
	counter, err := tokens.NewCounter(tokens.DefaultEncoding)
	require.NoError(t, err)
	controller := chat.NewController(store, &generation.EchoClient{}, chat.WithTokenCounter(counter))
	p := prefs.New(slots)

	env := &testEnv{store: store, prefs: p, m: InitialModel(context.Background(), controller, p)}
	env.update(t, tea.WindowSizeMsg{Width: 140, Height: 40})
	return env
}

func (e *testEnv) update(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := e.m.Update(msg)
	m, ok := next.(model)
	require.True(t, ok)
	e.m = m
	return cmd
}

func (e *testEnv) press(t *testing.T, keyType tea.KeyType) tea.Cmd {
	t.Helper()
	return e.update(t, tea.KeyMsg{Type: keyType})
}

// runReplies executes cmd and feeds every reply it produces back into the model.
func (e *testEnv) runReplies(t *testing.T, cmd tea.Cmd) int {
	t.Helper()
	if cmd == nil {
		return 0
	}
	n := 0
	switch msg := cmd().(type) {
	case replyMsg:
		e.update(t, msg)
		n++
	case tea.BatchMsg:
		for _, c := range msg {
			n += e.runReplies(t, c)
		}
	}
	return n
}

func TestInitialModelUsesPrefs(t *testing.T) {
	slots := kv.NewMemoryStore()
	p := prefs.New(slots)
	require.NoError(t, p.SetTheme(prefs.ThemeDark))
	require.NoError(t, p.SetSystemPromptInputExpanded(true))
	controller := chat.NewController(conversation.NewStore(slots, nil), &generation.EchoClient{})

	m := InitialModel(context.Background(), controller, p)
	assert.Equal(t, prefs.ThemeDark, m.theme)
	assert.True(t, m.expanded)
	assert.Equal(t, modeMessage, m.mode)
	assert.Contains(t, m.View(), "no API key")
}

func TestSendFromInputBox(t *testing.T) {
	env := newTestEnv(t)
	env.store.SetAPIKey("key")
	env.press(t, tea.KeyCtrlN)
	id := env.store.CurrentConversationID()
	require.NotEmpty(t, id)

	env.m.textArea.SetValue("hello gemini")
	cmd := env.press(t, tea.KeyTab)

	// the user message is visible before the reply arrives
	conv, _ := env.store.Conversation(id)
	require.Len(t, conv.Messages, 1)
	assert.Contains(t, env.m.View(), "Thinking...")
	assert.False(t, env.m.keyMap.SubmitMessage.Enabled())
	assert.Empty(t, env.m.textArea.Value())

	assert.Equal(t, 1, env.runReplies(t, cmd))
	conv, _ = env.store.Conversation(id)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, conversation.RoleAssistant, conv.Messages[1].Role)
	assert.Contains(t, conv.Messages[1].Content, "hello gemini")
	assert.True(t, env.m.keyMap.SubmitMessage.Enabled())
	assert.NotContains(t, env.m.View(), "Thinking...")
}

func TestSendWithoutAPIKeyShowsHint(t *testing.T) {
	env := newTestEnv(t)
	env.press(t, tea.KeyCtrlN)

	env.m.textArea.SetValue("hi")
	cmd := env.press(t, tea.KeyTab)
	assert.Equal(t, 0, env.runReplies(t, cmd))
	require.Error(t, env.m.err)
	assert.Contains(t, env.m.err.Error(), "ctrl+k")

	conv, _ := env.store.CurrentConversation()
	assert.Empty(t, conv.Messages)
}

func TestEnterAPIKeyAndSystemPrompt(t *testing.T) {
	env := newTestEnv(t)
	env.press(t, tea.KeyCtrlN)

	env.press(t, tea.KeyCtrlK)
	assert.Equal(t, modeAPIKey, env.m.mode)
	env.m.textArea.SetValue("  secret  ")
	env.press(t, tea.KeyTab)
	assert.Equal(t, "secret", env.store.APIKey())
	assert.Equal(t, modeMessage, env.m.mode)

	env.press(t, tea.KeyCtrlS)
	assert.Equal(t, modeSystemPrompt, env.m.mode)
	env.m.textArea.SetValue("Answer in haiku.")
	env.press(t, tea.KeyTab)
	conv, _ := env.store.CurrentConversation()
	assert.Equal(t, "Answer in haiku.", conv.SystemPrompt)

	env.press(t, tea.KeyCtrlK)
	env.press(t, tea.KeyEscape)
	assert.Equal(t, modeMessage, env.m.mode)
	assert.Equal(t, "secret", env.store.APIKey())
}

func TestConversationNavigation(t *testing.T) {
	env := newTestEnv(t)
	env.press(t, tea.KeyCtrlN)
	first := env.store.CurrentConversationID()
	env.press(t, tea.KeyCtrlN)
	second := env.store.CurrentConversationID()
	require.NotEqual(t, first, second)

	env.press(t, tea.KeyCtrlUp)
	assert.Equal(t, first, env.store.CurrentConversationID())
	env.press(t, tea.KeyCtrlUp)
	assert.Equal(t, first, env.store.CurrentConversationID())
	env.press(t, tea.KeyCtrlDown)
	assert.Equal(t, second, env.store.CurrentConversationID())

	env.press(t, tea.KeyCtrlX)
	assert.Equal(t, first, env.store.CurrentConversationID())
	assert.Len(t, env.store.Conversations(), 1)

	env.press(t, tea.KeyCtrlX)
	assert.Empty(t, env.store.Conversations())
	assert.Contains(t, env.m.View(), "No conversation selected")
}

func TestCycleModel(t *testing.T) {
	env := newTestEnv(t)
	env.press(t, tea.KeyCtrlN)

	env.press(t, tea.KeyCtrlO)
	conv, _ := env.store.CurrentConversation()
	expected := generation.NextModel(conversation.DefaultModel).ID
	assert.Equal(t, expected, conv.RunSettings.Model)
	assert.Equal(t, expected, env.store.SelectedModel())
	assert.Contains(t, env.m.View(), "Gemini 2.5 Pro Preview")
}

func TestToggleThemeAndExpand(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, tea.KeyCtrlT)
	assert.Equal(t, prefs.ThemeDark, env.prefs.Theme())
	assert.Equal(t, prefs.ThemeDark, env.m.theme)

	env.press(t, tea.KeyCtrlE)
	assert.True(t, env.prefs.SystemPromptInputExpanded())
	assert.Equal(t, expandedInputHeight, env.m.inputHeight())

	env.press(t, tea.KeyCtrlE)
	assert.False(t, env.prefs.SystemPromptInputExpanded())
	assert.Equal(t, collapsedInputHeight, env.m.inputHeight())
}

func TestRunSettingsPanelShowsTokenCount(t *testing.T) {
	env := newTestEnv(t)
	env.press(t, tea.KeyCtrlN)
	view := env.m.View()
	assert.Contains(t, view, "0 / 1,048,576")
	assert.Contains(t, view, "Temperature")
	assert.Contains(t, view, "Gemini 1.5 Pro")
}

func TestQuit(t *testing.T) {
	env := newTestEnv(t)
	cmd := env.press(t, tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestAdjustRunSettings(t *testing.T) {
	env := newTestEnv(t)
	other := env.store.CreateConversation()
	env.press(t, tea.KeyCtrlN)
	assert.Contains(t, env.m.View(), "> Temperature")

	env.press(t, tea.KeyCtrlLeft)
	conv, _ := env.store.CurrentConversation()
	assert.InDelta(t, 0.9, conv.RunSettings.Temperature, 1e-9)

	// clamped at the slider maximum
	env.press(t, tea.KeyCtrlRight)
	env.press(t, tea.KeyCtrlRight)
	conv, _ = env.store.CurrentConversation()
	assert.InDelta(t, 1.0, conv.RunSettings.Temperature, 1e-9)

	env.press(t, tea.KeyCtrlR)
	env.press(t, tea.KeyCtrlRight)
	conv, _ = env.store.CurrentConversation()
	assert.InDelta(t, 0.9, conv.RunSettings.TopP, 1e-9)

	env.press(t, tea.KeyCtrlR)
	env.press(t, tea.KeyCtrlLeft)
	conv, _ = env.store.CurrentConversation()
	assert.Equal(t, 2048-outputTokensStep, conv.RunSettings.MaxOutputTokens)
	env.press(t, tea.KeyCtrlRight)
	env.press(t, tea.KeyCtrlRight)
	conv, _ = env.store.CurrentConversation()
	assert.Equal(t, maxOutputTokens, conv.RunSettings.MaxOutputTokens)

	untouched, ok := env.store.Conversation(other)
	require.True(t, ok)
	assert.Equal(t, conversation.DefaultRunSettings(), untouched.RunSettings)
}

func TestAdjustWithoutConversation(t *testing.T) {
	env := newTestEnv(t)
	env.press(t, tea.KeyCtrlRight)
	assert.Equal(t, "No conversation selected", env.m.status)
}

func TestAdjustPanelWidths(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		env.press(t, tea.KeyCtrlR)
	}
	assert.Equal(t, fieldSidebarWidth, env.m.setting)

	env.press(t, tea.KeyCtrlRight)
	assert.Equal(t, prefs.DefaultSidebarWidth+panelWidthStep, env.prefs.SidebarWidth())

	env.press(t, tea.KeyCtrlR)
	env.press(t, tea.KeyCtrlLeft)
	assert.Equal(t, prefs.DefaultRunSettingsWidth-panelWidthStep, env.prefs.RunSettingsWidth())

	require.NoError(t, env.prefs.SetRunSettingsWidth(prefs.MinPanelWidth))
	env.press(t, tea.KeyCtrlLeft)
	assert.Equal(t, prefs.MinPanelWidth, env.prefs.RunSettingsWidth())

	// the cursor wraps back to the first field
	env.press(t, tea.KeyCtrlR)
	assert.Equal(t, fieldTemperature, env.m.setting)
}

func TestSidebarShowsLastMessagePreview(t *testing.T) {
	env := newTestEnv(t)
	env.press(t, tea.KeyCtrlN)
	id := env.store.CurrentConversationID()
	env.store.AddMessage(id, conversation.NewMessage(conversation.RoleUser, "first question"))
	env.store.AddMessage(id, conversation.NewMessage(conversation.RoleAssistant, "an answer"))
	// the transcript keeps the line break, the sidebar preview folds it
	env.store.AddMessage(id, conversation.NewMessage(conversation.RoleUser, "latest\nreply"))

	env.update(t, tea.WindowSizeMsg{Width: 140, Height: 40})
	assert.Contains(t, env.m.View(), "latest reply")
}
