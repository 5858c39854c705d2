package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	SubmitMessage key.Binding
	CancelInput   key.Binding

	NewConversation    key.Binding
	DeleteConversation key.Binding
	PrevConversation   key.Binding
	NextConversation   key.Binding

	CycleModel       key.Binding
	EditAPIKey       key.Binding
	EditSystemPrompt key.Binding
	ToggleExpand     key.Binding
	ToggleTheme      key.Binding

	NextSetting     key.Binding
	DecreaseSetting key.Binding
	IncreaseSetting key.Binding

	ScrollUp   key.Binding
	ScrollDown key.Binding

	Help key.Binding
	Quit key.Binding
}

var DefaultKeyMap = KeyMap{
	SubmitMessage: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "send")),
	CancelInput:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),

	NewConversation:    key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
	DeleteConversation: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "delete chat")),
	PrevConversation:   key.NewBinding(key.WithKeys("ctrl+up"), key.WithHelp("ctrl+↑", "previous chat")),
	NextConversation:   key.NewBinding(key.WithKeys("ctrl+down"), key.WithHelp("ctrl+↓", "next chat")),

	CycleModel:       key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "next model")),
	EditAPIKey:       key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "api key")),
	EditSystemPrompt: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "system prompt")),
	ToggleExpand:     key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "expand input")),
	ToggleTheme:      key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "theme")),

	NextSetting:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "next setting")),
	DecreaseSetting: key.NewBinding(key.WithKeys("ctrl+left"), key.WithHelp("ctrl+←", "decrease")),
	IncreaseSetting: key.NewBinding(key.WithKeys("ctrl+right"), key.WithHelp("ctrl+→", "increase")),

	ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
	ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "scroll down")),

	Help: key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
	Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.SubmitMessage, k.NewConversation, k.CycleModel, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.SubmitMessage, k.CancelInput, k.ScrollUp, k.ScrollDown},
		{k.NewConversation, k.DeleteConversation, k.PrevConversation, k.NextConversation},
		{k.CycleModel, k.EditAPIKey, k.EditSystemPrompt},
		{k.NextSetting, k.DecreaseSetting, k.IncreaseSetting},
		{k.ToggleExpand, k.ToggleTheme, k.Help, k.Quit},
	}
}
