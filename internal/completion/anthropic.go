package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nikhilbhutani/livehint/internal/prompt"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

type AnthropicProvider struct {
	client    anthropic.Client
	hasKey    bool
	model     string
	maxTokens int
	prompt    *prompt.Template
}

func NewAnthropicProvider(s Settings) *AnthropicProvider {
	s = s.withDefaults(defaultAnthropicModel)
	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithMaxRetries(0),
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	return &AnthropicProvider{
		client:    anthropic.NewClient(opts...),
		hasKey:    s.APIKey != "",
		model:     s.Model,
		maxTokens: s.MaxTokens,
		prompt:    s.Prompt,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Complete relays the first text block of the reply.
func (p *AnthropicProvider) Complete(ctx context.Context, text string) (*Result, error) {
	if !p.hasKey {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingKey)
	}
	content, err := p.prompt.Text(text)
	if err != nil {
		return nil, fmt.Errorf("anthropic prompt: %w", err)
	}

	start := time.Now()
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(content)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic chat: %w", err)
	}

	var (
		out   string
		found bool
	)
	for _, block := range resp.Content {
		if block.Type == "text" {
			out, found = block.Text, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("anthropic chat: %w", ErrEmptyResponse)
	}

	inputTokens := int(resp.Usage.InputTokens)
	outputTokens := int(resp.Usage.OutputTokens)
	model := string(resp.Model)
	if model == "" {
		model = p.model
	}
	return &Result{
		Text:         out,
		Provider:     "anthropic",
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		CostUSD:      CalculateCost(p.model, inputTokens, outputTokens),
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}
