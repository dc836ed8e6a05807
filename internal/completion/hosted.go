package completion

import (
	"github.com/nikhilbhutani/livehint/internal/config"
	"github.com/nikhilbhutani/livehint/internal/prompt"
)

// Settings configure a hosted model provider.
type Settings struct {
	APIKey    string
	Model     string
	MaxTokens int
	Prompt    *prompt.Template
	BaseURL   string // empty selects the vendor default
}

func (s Settings) withDefaults(model string) Settings {
	if s.Model == "" {
		s.Model = model
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = 150
	}
	if s.Prompt == nil {
		s.Prompt = prompt.MustParse(config.DefaultPromptTemplate)
	}
	return s
}
