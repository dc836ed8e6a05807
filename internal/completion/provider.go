// Package completion turns a transcript into a recommendation. A Provider is
// either the built-in keyword matcher or a hosted language model.
package completion

import (
	"context"
	"errors"
)

var (
	// ErrMissingKey is returned by hosted providers configured without an API key.
	ErrMissingKey = errors.New("API key not configured")
	// ErrEmptyResponse is returned when a model produced no text.
	ErrEmptyResponse = errors.New("model returned no text")
)

// Provider produces a recommendation for a transcript.
type Provider interface {
	Complete(ctx context.Context, text string) (*Result, error)
	Name() string
}

// Result is a single recommendation plus usage accounting.
type Result struct {
	Text         string  `json:"text"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	LatencyMs    int64   `json:"latency_ms"`
	Cached       bool    `json:"cached"`
}
