package completion

import (
	"fmt"
	"log/slog"

	"github.com/nikhilbhutani/livehint/internal/config"
	"github.com/nikhilbhutani/livehint/internal/prompt"
)

// New builds the provider named by cfg.Provider. Hosted providers are wrapped
// in a CachedProvider when store is non-nil.
func New(cfg config.CompletionConfig, store Store) (Provider, error) {
	if cfg.Provider == "" || cfg.Provider == "keyword" {
		return newKeyword(cfg)
	}

	tmpl, err := prompt.Parse(cfg.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("completion prompt: %w", err)
	}
	s := Settings{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Prompt:    tmpl,
	}

	var (
		p     Provider
		model string
	)
	switch cfg.Provider {
	case "openai":
		s.APIKey = cfg.OpenAIKey
		op := NewOpenAIProvider(s)
		p, model = op, op.model
	case "anthropic":
		s.APIKey = cfg.AnthropicKey
		ap := NewAnthropicProvider(s)
		p, model = ap, ap.model
	case "ollama":
		s.BaseURL = cfg.OllamaURL
		olp := NewOllamaProvider(s)
		p, model = olp, olp.model
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}

	slog.Info("completion provider configured", "provider", p.Name(), "model", model)
	if store != nil {
		scope := CacheScope{Model: model, MaxTokens: cfg.MaxTokens, Prompt: tmpl.String()}
		return NewCachedProvider(p, store, scope, cfg.CacheTTL), nil
	}
	return p, nil
}

func newKeyword(cfg config.CompletionConfig) (Provider, error) {
	if cfg.KeywordsFile == "" {
		return NewKeywordMatcher(nil, ""), nil
	}
	rs, err := LoadRules(cfg.KeywordsFile)
	if err != nil {
		return nil, err
	}
	slog.Info("keyword rules loaded", "file", cfg.KeywordsFile, "rules", len(rs.Rules))
	return NewKeywordMatcher(rs.Rules, rs.Fallback), nil
}
