package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/gemchat/pkg/chat"
	"github.com/go-go-golems/gemchat/pkg/conversation"
	"github.com/go-go-golems/gemchat/pkg/generation"
	"github.com/go-go-golems/gemchat/pkg/prefs"
	"github.com/go-go-golems/gemchat/pkg/tokens"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// what the input box is currently editing
type inputMode string

const (
	modeMessage      inputMode = "message"
	modeAPIKey       inputMode = "api-key"
	modeSystemPrompt inputMode = "system-prompt"
)

const (
	collapsedInputHeight = 3
	expandedInputHeight  = 10
	minTranscriptWidth   = 20
)

// replyMsg is delivered once a generation call started from the input box returns.
type replyMsg struct {
	ConversationID string
	Message        conversation.Message
}

type model struct {
	ctx        context.Context
	controller *chat.Controller
	store      *conversation.Store
	prefs      *prefs.Prefs

	viewport viewport.Model
	textArea textarea.Model
	help     help.Model
	keyMap   KeyMap

	theme         prefs.Theme
	style         *Style
	renderer      *glamour.TermRenderer
	rendererWidth int

	mode     inputMode
	expanded bool
	setting  settingField
	status   string
	err      error

	width  int
	height int
}

func InitialModel(ctx context.Context, controller *chat.Controller, p *prefs.Prefs) model {
	ret := model{
		ctx:        ctx,
		controller: controller,
		store:      controller.Store(),
		prefs:      p,
		viewport:   viewport.New(0, 0),
		help:       help.New(),
		keyMap:     DefaultKeyMap,
		theme:      p.Theme(),
		mode:       modeMessage,
		expanded:   p.SystemPromptInputExpanded(),
	}
	ret.style = StylesFor(ret.theme)

	ret.textArea = textarea.New()
	ret.textArea.ShowLineNumbers = false
	ret.textArea.CharLimit = 0
	ret.textArea.Focus()
	ret.resetInput()

	ret.updateKeyBindings()
	ret.viewport.SetContent(ret.messageView())
	ret.viewport.GotoBottom()

	return ret
}

// Run starts the full screen chat UI and blocks until the user quits.
func Run(ctx context.Context, controller *chat.Controller, p *prefs.Prefs, options ...tea.ProgramOption) error {
	options = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, options...)
	program := tea.NewProgram(InitialModel(ctx, controller, p), options...)
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.recomputeSize()

		case key.Matches(msg, m.keyMap.SubmitMessage):
			cmds = append(cmds, m.submit())

		case key.Matches(msg, m.keyMap.CancelInput):
			m.mode = modeMessage
			m.err = nil
			m.resetInput()

		case key.Matches(msg, m.keyMap.NewConversation):
			m.store.CreateConversation()
			m.status = "New conversation"
			m.mode = modeMessage
			m.resetInput()

		case key.Matches(msg, m.keyMap.DeleteConversation):
			if id := m.store.CurrentConversationID(); id != "" {
				m.store.DeleteConversation(id)
				m.status = "Conversation deleted"
			}

		case key.Matches(msg, m.keyMap.PrevConversation):
			m.switchConversation(-1)

		case key.Matches(msg, m.keyMap.NextConversation):
			m.switchConversation(1)

		case key.Matches(msg, m.keyMap.CycleModel):
			next := generation.NextModel(m.currentModel())
			m.controller.SelectModel(next.ID)
			m.status = "Model: " + next.Name

		case key.Matches(msg, m.keyMap.EditAPIKey):
			m.mode = modeAPIKey
			m.resetInput()

		case key.Matches(msg, m.keyMap.EditSystemPrompt):
			if conv, ok := m.store.CurrentConversation(); ok {
				m.mode = modeSystemPrompt
				m.resetInput()
				m.textArea.SetValue(conv.SystemPrompt)
			}

		case key.Matches(msg, m.keyMap.ToggleExpand):
			m.expanded = !m.expanded
			if err := m.prefs.SetSystemPromptInputExpanded(m.expanded); err != nil {
				m.err = err
			}
			m.recomputeSize()

		case key.Matches(msg, m.keyMap.ToggleTheme):
			theme, err := m.prefs.ToggleTheme()
			if err != nil {
				m.err = err
			}
			m.theme = theme
			m.style = StylesFor(theme)
			m.renderer = nil

		case key.Matches(msg, m.keyMap.NextSetting):
			m.nextSetting()

		case key.Matches(msg, m.keyMap.DecreaseSetting):
			m.adjustSetting(-1)

		case key.Matches(msg, m.keyMap.IncreaseSetting):
			m.adjustSetting(1)

		case key.Matches(msg, m.keyMap.ScrollUp), key.Matches(msg, m.keyMap.ScrollDown):
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd

		default:
			m.textArea, cmd = m.textArea.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case replyMsg:
		log.Debug().Str("conversation_id", msg.ConversationID).Msg("reply received")
		if msg.ConversationID == m.store.CurrentConversationID() {
			m.status = ""
		}

	default:
	}

	m.updateKeyBindings()
	m.recomputeSize()

	return m, tea.Batch(cmds...)
}

func (m *model) resetInput() {
	m.textArea.Reset()
	switch m.mode {
	case modeAPIKey:
		m.textArea.Placeholder = "Paste your Gemini API key and press tab"
	case modeSystemPrompt:
		m.textArea.Placeholder = "System instructions for this conversation"
	case modeMessage:
		m.textArea.Placeholder = "Type something..."
	}
}

func (m *model) currentModel() string {
	if conv, ok := m.store.CurrentConversation(); ok {
		return conv.RunSettings.Model
	}
	return m.store.SelectedModel()
}

func (m *model) switchConversation(delta int) {
	conversations := m.store.Conversations()
	if len(conversations) == 0 {
		return
	}
	current := m.store.CurrentConversationID()
	idx := -1
	for i, c := range conversations {
		if c.ID == current {
			idx = i
			break
		}
	}
	next := idx + delta
	if idx == -1 {
		next = 0
	}
	if next < 0 || next >= len(conversations) {
		return
	}
	m.store.SetCurrentConversation(conversations[next].ID)
	m.status = ""
}

func (m *model) updateKeyBindings() {
	loading := m.controller.IsLoading(m.store.CurrentConversationID())
	m.keyMap.SubmitMessage.SetEnabled(m.mode != modeMessage || !loading)
	m.keyMap.CancelInput.SetEnabled(m.mode != modeMessage || m.err != nil)
	_, hasCurrent := m.store.CurrentConversation()
	m.keyMap.DeleteConversation.SetEnabled(hasCurrent)
	m.keyMap.EditSystemPrompt.SetEnabled(hasCurrent)
}

// submit acts on the input box according to the current mode. Sending a message
// appends the user message right away and returns the command that waits for the reply.
func (m *model) submit() tea.Cmd {
	text := m.textArea.Value()
	m.err = nil

	switch m.mode {
	case modeAPIKey:
		m.store.SetAPIKey(strings.TrimSpace(text))
		m.status = "API key saved"
		m.mode = modeMessage
		m.resetInput()
		return nil

	case modeSystemPrompt:
		m.controller.SaveSystemPrompt(m.store.CurrentConversationID(), text)
		m.status = "System prompt saved"
		m.mode = modeMessage
		m.resetInput()
		return nil

	case modeMessage:
	}

	id := m.store.CurrentConversationID()
	if _, ok := m.store.CurrentConversation(); !ok {
		m.err = errors.New("no conversation selected, press ctrl+n to start one")
		return nil
	}
	pending, err := m.controller.Begin(id, text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return nil
	case errors.Is(err, chat.ErrMissingAPIKey):
		m.err = errors.New("no API key set, press ctrl+k to enter one")
		return nil
	case err != nil:
		m.err = err
		return nil
	}

	m.resetInput()
	ctx := m.ctx
	return func() tea.Msg {
		message := pending.Complete(ctx)
		return replyMsg{ConversationID: pending.ConversationID(), Message: message}
	}
}

func (m *model) inputHeight() int {
	if m.expanded {
		return expandedInputHeight
	}
	return collapsedInputHeight
}

func (m *model) panelWidths() (sidebar int, settings int, transcript int) {
	sidebar = m.prefs.SidebarWidth()
	settings = m.prefs.RunSettingsWidth()
	transcript = m.width - sidebar - settings
	if transcript < minTranscriptWidth {
		// not enough room for the side panels
		return 0, 0, m.width
	}
	return sidebar, settings, transcript
}

func (m *model) recomputeSize() {
	_, _, transcriptWidth := m.panelWidths()

	frameW := m.style.FocusedInput.GetHorizontalFrameSize()
	m.textArea.SetWidth(max(transcriptWidth-frameW, 1))
	m.textArea.SetHeight(m.inputHeight())

	fixed := lipgloss.Height(m.headerView()) +
		lipgloss.Height(m.inputView()) +
		lipgloss.Height(m.statusView()) +
		lipgloss.Height(m.help.View(m.keyMap))

	m.viewport.Width = transcriptWidth
	m.viewport.Height = max(m.height-fixed, 0)
	m.viewport.SetContent(m.messageView())
	m.viewport.GotoBottom()
}

func (m model) headerView() string {
	title := m.style.Header.Render("gemchat")
	if m.store.APIKey() == "" {
		return title + " " + m.style.Hint.Render("(no API key, press ctrl+k)")
	}
	return title
}

func (m model) roleLabel(role conversation.Role) string {
	switch role {
	case conversation.RoleUser:
		return m.style.UserLabel.Render("You")
	case conversation.RoleAssistant:
		return m.style.AssistantLabel.Render("Gemini")
	case conversation.RoleSystem:
		return m.style.SystemLabel.Render("System")
	default:
		return string(role)
	}
}

func (m *model) renderMarkdown(content string, width int) string {
	if m.renderer == nil || m.rendererWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(string(m.theme)),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			log.Warn().Err(err).Msg("failed to create markdown renderer")
			return wordwrap.String(content, width)
		}
		m.renderer = r
		m.rendererWidth = width
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return wordwrap.String(content, width)
	}
	return strings.Trim(out, "\n")
}

func (m *model) messageView() string {
	conv, ok := m.store.CurrentConversation()
	if !ok {
		return m.style.Hint.Render("No conversation selected. Press ctrl+n to start one.")
	}

	width := max(m.viewport.Width-2, minTranscriptWidth)
	var sb strings.Builder
	if len(conv.Messages) == 0 {
		sb.WriteString(m.style.Hint.Render("Start a conversation with Gemini"))
		sb.WriteString("\n")
	}
	for _, message := range conv.Messages {
		sb.WriteString(m.roleLabel(message.Role))
		sb.WriteString("\n")
		if message.Role == conversation.RoleAssistant {
			sb.WriteString(m.renderMarkdown(message.Content, width))
		} else {
			sb.WriteString(wordwrap.String(message.Content, width))
		}
		sb.WriteString("\n\n")
	}
	if m.controller.IsLoading(conv.ID) {
		sb.WriteString(m.style.Thinking.Render("Thinking..."))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m model) sidebarView(width int, height int) string {
	inner := width - m.style.Panel.GetHorizontalFrameSize()
	lines := []string{m.style.PanelTitle.Render("Conversations")}
	current := m.store.CurrentConversationID()
	for _, c := range m.store.Conversations() {
		label := truncate.StringWithTail(c.DisplayTitle(), uint(max(inner-2, 1)), "…")
		if c.ID == current {
			lines = append(lines, m.style.Selected.Render("> "+label))
			if last, ok := c.LastMessage(); ok {
				preview := strings.Join(strings.Fields(last.Content), " ")
				preview = truncate.StringWithTail(preview, uint(max(inner-4, 1)), "…")
				lines = append(lines, m.style.Hint.Render("    "+preview))
			}
		} else {
			lines = append(lines, m.style.Conversation.Render("  "+label))
		}
	}
	return m.style.Panel.
		Width(inner).
		Height(max(height-m.style.Panel.GetVerticalFrameSize(), 0)).
		Render(strings.Join(lines, "\n"))
}

func (m model) settingsView(width int, height int) string {
	inner := width - m.style.Panel.GetHorizontalFrameSize()
	lines := []string{m.style.PanelTitle.Render("Run settings")}

	conv, ok := m.store.CurrentConversation()
	if !ok {
		lines = append(lines, m.style.Hint.Render("No conversation"))
	} else {
		s := conv.RunSettings
		modelName := s.Model
		if mdl, ok := generation.LookupModel(s.Model); ok {
			modelName = mdl.Name
		}
		tokenCount := "-"
		if n, err := m.controller.TokenCount(conv.ID); err == nil {
			tokenCount = tokens.FormatUsage(n)
		}
		lines = append(lines,
			"Model",
			"  "+modelName,
			"Token count",
			"  "+tokenCount,
			m.settingLine(fieldTemperature, fmt.Sprintf("%.2f", s.Temperature)),
			m.settingLine(fieldTopP, fmt.Sprintf("%.2f", s.TopP)),
			m.settingLine(fieldMaxOutputTokens, fmt.Sprintf("%d", s.MaxOutputTokens)),
			"",
			"System instructions",
		)
		if conv.SystemPrompt == "" {
			lines = append(lines, m.style.Hint.Render("  (none, ctrl+s)"))
		} else {
			lines = append(lines, wordwrap.String(conv.SystemPrompt, max(inner, 1)))
		}
	}
	lines = append(lines,
		"",
		m.settingLine(fieldSidebarWidth, fmt.Sprintf("%d", m.prefs.SidebarWidth())),
		m.settingLine(fieldRunSettingsWidth, fmt.Sprintf("%d", m.prefs.RunSettingsWidth())),
	)

	return m.style.Panel.
		Width(inner).
		Height(max(height-m.style.Panel.GetVerticalFrameSize(), 0)).
		Render(strings.Join(lines, "\n"))
}

func (m model) inputView() string {
	label := ""
	switch m.mode {
	case modeAPIKey:
		label = m.style.Hint.Render("API key") + "\n"
	case modeSystemPrompt:
		label = m.style.Hint.Render("System prompt") + "\n"
	case modeMessage:
	}
	return label + m.style.FocusedInput.Render(m.textArea.View())
}

func (m model) statusView() string {
	if m.err != nil {
		return m.style.Error.Render(m.err.Error())
	}
	return m.style.Hint.Render(m.status)
}

func (m model) View() string {
	sidebarWidth, settingsWidth, _ := m.panelWidths()

	center := lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.inputView())
	row := center
	if sidebarWidth > 0 {
		h := lipgloss.Height(center)
		row = lipgloss.JoinHorizontal(lipgloss.Top,
			m.sidebarView(sidebarWidth, h),
			center,
			m.settingsView(settingsWidth, h),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		row,
		m.statusView(),
		m.help.View(m.keyMap),
	)
}
