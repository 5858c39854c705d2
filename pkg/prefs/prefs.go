// Package prefs holds the cosmetic UI settings. They live in their own slots and
// are independent of the chat session.
package prefs

import (
	"strconv"

	"github.com/go-go-golems/gemchat/pkg/kv"
	"github.com/rs/zerolog/log"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

const (
	KeyTheme                     = "theme"
	KeySidebarWidth              = "sidebarWidth"
	KeyRunSettingsWidth          = "runSettingsWidth"
	KeySystemPromptInputExpanded = "systemPromptInputExpanded"
)

const (
	DefaultTheme            = ThemeLight
	DefaultSidebarWidth     = 30
	DefaultRunSettingsWidth = 34
	MinPanelWidth           = 10
)

// Prefs reads and writes the preference slots directly; nothing is cached.
type Prefs struct {
	slots kv.Store
}

func New(slots kv.Store) *Prefs {
	return &Prefs{slots: slots}
}

func (p *Prefs) get(key string) (string, bool) {
	v, ok, err := p.slots.Get(key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to read preference")
		return "", false
	}
	return v, ok
}

func (p *Prefs) set(key string, value string) error {
	if err := p.slots.Set(key, value); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to write preference")
		return err
	}
	return nil
}

func (p *Prefs) Theme() Theme {
	v, _ := p.get(KeyTheme)
	switch Theme(v) {
	case ThemeDark:
		return ThemeDark
	case ThemeLight:
		return ThemeLight
	default:
		return DefaultTheme
	}
}

func (p *Prefs) SetTheme(theme Theme) error {
	return p.set(KeyTheme, string(theme))
}

// ToggleTheme flips between light and dark and returns the new theme.
func (p *Prefs) ToggleTheme() (Theme, error) {
	next := ThemeDark
	if p.Theme() == ThemeDark {
		next = ThemeLight
	}
	return next, p.SetTheme(next)
}

func (p *Prefs) width(key string, def int) int {
	v, ok := p.get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < MinPanelWidth {
		return def
	}
	return n
}

func (p *Prefs) SidebarWidth() int {
	return p.width(KeySidebarWidth, DefaultSidebarWidth)
}

func (p *Prefs) SetSidebarWidth(w int) error {
	return p.set(KeySidebarWidth, strconv.Itoa(w))
}

func (p *Prefs) RunSettingsWidth() int {
	return p.width(KeyRunSettingsWidth, DefaultRunSettingsWidth)
}

func (p *Prefs) SetRunSettingsWidth(w int) error {
	return p.set(KeyRunSettingsWidth, strconv.Itoa(w))
}

func (p *Prefs) SystemPromptInputExpanded() bool {
	v, ok := p.get(KeySystemPromptInputExpanded)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func (p *Prefs) SetSystemPromptInputExpanded(expanded bool) error {
	return p.set(KeySystemPromptInputExpanded, strconv.FormatBool(expanded))
}
