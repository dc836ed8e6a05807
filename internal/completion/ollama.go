package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nikhilbhutani/livehint/internal/prompt"
)

const defaultOllamaModel = "llama3"

type OllamaProvider struct {
	baseURL    string
	model      string
	maxTokens  int
	prompt     *prompt.Template
	httpClient *http.Client
}

// NewOllamaProvider talks to a local Ollama server. Settings.BaseURL is the
// server root, e.g. http://localhost:11434.
func NewOllamaProvider(s Settings) *OllamaProvider {
	s = s.withDefaults(defaultOllamaModel)
	return &OllamaProvider{
		baseURL:   strings.TrimRight(s.BaseURL, "/"),
		model:     s.Model,
		maxTokens: s.MaxTokens,
		prompt:    s.Prompt,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaGenerateReq struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

type ollamaGenerateResp struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

func (p *OllamaProvider) Complete(ctx context.Context, text string) (*Result, error) {
	content, err := p.prompt.Text(text)
	if err != nil {
		return nil, fmt.Errorf("ollama prompt: %w", err)
	}

	start := time.Now()
	body, _ := json.Marshal(ollamaGenerateReq{
		Model:   p.model,
		Prompt:  content,
		Stream:  false,
		Options: &ollamaOptions{NumPredict: p.maxTokens},
	})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ollama generate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var oResp ollamaGenerateResp
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return nil, fmt.Errorf("ollama decode: %w", err)
	}
	if oResp.Error != "" {
		return nil, fmt.Errorf("ollama generate: %s", oResp.Error)
	}

	return &Result{
		Text:         oResp.Response,
		Provider:     "ollama",
		Model:        p.model,
		InputTokens:  oResp.PromptEvalCount,
		OutputTokens: oResp.EvalCount,
		TotalTokens:  oResp.PromptEvalCount + oResp.EvalCount,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}
