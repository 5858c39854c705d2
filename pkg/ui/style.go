package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/gemchat/pkg/prefs"
)

type Style struct {
	Header         lipgloss.Style
	Panel          lipgloss.Style
	PanelTitle     lipgloss.Style
	Conversation   lipgloss.Style
	Selected       lipgloss.Style
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	Thinking       lipgloss.Style
	Hint           lipgloss.Style
	Error          lipgloss.Style
	FocusedInput   lipgloss.Style
}

type palette struct {
	Border    string
	Accent    string
	Selected  string
	Muted     string
	Error     string
	Assistant string
}

var lightPalette = palette{
	Border:    "#CCCCCC",
	Accent:    "#1A73E8",
	Selected:  "#FFB6C1", // light pink
	Muted:     "#888888",
	Error:     "#D93025",
	Assistant: "#188038",
}

var darkPalette = palette{
	Border:    "#444444",
	Accent:    "#8AB4F8",
	Selected:  "#DD7090", // desaturated pink
	Muted:     "#9AA0A6",
	Error:     "#F28B82",
	Assistant: "#81C995",
}

func StylesFor(theme prefs.Theme) *Style {
	p := lightPalette
	if theme == prefs.ThemeDark {
		p = darkPalette
	}

	return &Style{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Accent)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.Border)).
			Padding(0, 1),
		PanelTitle:     lipgloss.NewStyle().Bold(true),
		Conversation:   lipgloss.NewStyle(),
		Selected:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Selected)),
		UserLabel:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Accent)),
		AssistantLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Assistant)),
		SystemLabel:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Muted)),
		Thinking:       lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(p.Muted)),
		Hint:           lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
		Error:          lipgloss.NewStyle().Foreground(lipgloss.Color(p.Error)),
		FocusedInput: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(p.Selected)),
	}
}
