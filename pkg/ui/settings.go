package ui

import (
	"fmt"
	"math"

	"github.com/go-go-golems/gemchat/pkg/conversation"
	"github.com/go-go-golems/gemchat/pkg/prefs"
)

// settingField is the entry of the run-settings panel that ctrl+left/right adjusts.
type settingField int

const (
	fieldTemperature settingField = iota
	fieldTopP
	fieldMaxOutputTokens
	fieldSidebarWidth
	fieldRunSettingsWidth
	settingFieldCount
)

// slider ranges of the run-settings panel
const (
	temperatureStep  = 0.1
	maxTemperature   = 1.0
	topPStep         = 0.1
	maxTopP          = 1.0
	outputTokensStep = 128
	minOutputTokens  = 1
	maxOutputTokens  = 2048
	panelWidthStep   = 2
	maxPanelWidth    = 80
)

func (f settingField) String() string {
	switch f {
	case fieldTemperature:
		return "Temperature"
	case fieldTopP:
		return "Top P"
	case fieldMaxOutputTokens:
		return "Output length"
	case fieldSidebarWidth:
		return "Sidebar width"
	case fieldRunSettingsWidth:
		return "Panel width"
	default:
		return fmt.Sprintf("setting(%d)", int(f))
	}
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// stepFloat moves v by delta steps and rounds to the step so repeated presses
// do not accumulate float error.
func stepFloat(v float64, step float64, delta int, hi float64) float64 {
	n := math.Round(v/step) + float64(delta)
	return clampFloat(math.Round(n*step*100)/100, 0, hi)
}

// runSettingsPatch returns the patch that moves field by delta steps, or false for
// fields that are not run settings.
func runSettingsPatch(field settingField, s conversation.RunSettings, delta int) (conversation.RunSettingsPatch, bool) {
	switch field {
	case fieldTemperature:
		v := stepFloat(s.Temperature, temperatureStep, delta, maxTemperature)
		return conversation.RunSettingsPatch{Temperature: &v}, true
	case fieldTopP:
		v := stepFloat(s.TopP, topPStep, delta, maxTopP)
		return conversation.RunSettingsPatch{TopP: &v}, true
	case fieldMaxOutputTokens:
		v := clampInt(s.MaxOutputTokens+delta*outputTokensStep, minOutputTokens, maxOutputTokens)
		return conversation.RunSettingsPatch{MaxOutputTokens: &v}, true
	default:
		return conversation.RunSettingsPatch{}, false
	}
}

func (m *model) nextSetting() {
	m.setting = (m.setting + 1) % settingFieldCount
	m.status = "Adjusting " + m.setting.String()
}

// adjustSetting applies delta steps to the focused entry of the run-settings panel.
func (m *model) adjustSetting(delta int) {
	var err error
	switch m.setting {
	case fieldSidebarWidth:
		w := clampInt(m.prefs.SidebarWidth()+delta*panelWidthStep, prefs.MinPanelWidth, maxPanelWidth)
		err = m.prefs.SetSidebarWidth(w)
		m.status = fmt.Sprintf("%s: %d", m.setting, w)
	case fieldRunSettingsWidth:
		w := clampInt(m.prefs.RunSettingsWidth()+delta*panelWidthStep, prefs.MinPanelWidth, maxPanelWidth)
		err = m.prefs.SetRunSettingsWidth(w)
		m.status = fmt.Sprintf("%s: %d", m.setting, w)
	default:
		conv, ok := m.store.CurrentConversation()
		if !ok {
			m.status = "No conversation selected"
			return
		}
		patch, ok := runSettingsPatch(m.setting, conv.RunSettings, delta)
		if !ok {
			return
		}
		m.store.UpdateRunSettings(conv.ID, patch)
		m.status = ""
	}
	if err != nil {
		m.err = err
	}
}

func (m model) settingLine(field settingField, value string) string {
	line := fmt.Sprintf("%-14s %s", field.String(), value)
	if field == m.setting {
		return m.style.Selected.Render("> " + line)
	}
	return "  " + line
}
