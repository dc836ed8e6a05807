package completion

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nikhilbhutani/livehint/internal/prompt"
)

const defaultOpenAIModel = openai.GPT4oMini

type OpenAIProvider struct {
	client    *openai.Client
	hasKey    bool
	model     string
	maxTokens int
	prompt    *prompt.Template
}

func NewOpenAIProvider(s Settings) *OpenAIProvider {
	s = s.withDefaults(defaultOpenAIModel)
	cfg := openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(cfg),
		hasKey:    s.APIKey != "",
		model:     s.Model,
		maxTokens: s.MaxTokens,
		prompt:    s.Prompt,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Complete sends the rendered prompt as a single user message and relays the
// first choice verbatim.
func (p *OpenAIProvider) Complete(ctx context.Context, text string) (*Result, error) {
	if !p.hasKey {
		return nil, fmt.Errorf("openai: %w", ErrMissingKey)
	}
	content, err := p.prompt.Text(text)
	if err != nil {
		return nil, fmt.Errorf("openai prompt: %w", err)
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat: %w", ErrEmptyResponse)
	}

	model := resp.Model
	if model == "" {
		model = p.model
	}
	return &Result{
		Text:         resp.Choices[0].Message.Content,
		Provider:     "openai",
		Model:        model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		CostUSD:      CalculateCost(p.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}
