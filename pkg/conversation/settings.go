package conversation

const DefaultModel = "gemini-1.5-pro"

// RunSettings are the generation parameters attached to a conversation.
// Values are not validated; the UI constrains the ranges.
type RunSettings struct {
	Temperature     float64 `json:"temperature" yaml:"temperature"`
	TopP            float64 `json:"topP" yaml:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens" yaml:"maxOutputTokens"`
	Model           string  `json:"model" yaml:"model"`
}

func DefaultRunSettings() RunSettings {
	return RunSettings{
		Temperature:     1.0,
		TopP:            0.8,
		MaxOutputTokens: 2048,
		Model:           DefaultModel,
	}
}

// RunSettingsPatch is a partial RunSettings. Nil fields are left untouched by Apply.
type RunSettingsPatch struct {
	Temperature     *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty" yaml:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty" yaml:"maxOutputTokens,omitempty"`
	Model           *string  `json:"model,omitempty" yaml:"model,omitempty"`
}

func (p RunSettingsPatch) IsEmpty() bool {
	return p.Temperature == nil && p.TopP == nil && p.MaxOutputTokens == nil && p.Model == nil
}

// Apply returns s with the non-nil fields of p merged in.
func (p RunSettingsPatch) Apply(s RunSettings) RunSettings {
	if p.Temperature != nil {
		s.Temperature = *p.Temperature
	}
	if p.TopP != nil {
		s.TopP = *p.TopP
	}
	if p.MaxOutputTokens != nil {
		s.MaxOutputTokens = *p.MaxOutputTokens
	}
	if p.Model != nil {
		s.Model = *p.Model
	}
	return s
}
