package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nikhilbhutani/livehint/internal/prompt"
)

func testSettings(key, baseURL string) Settings {
	return Settings{
		APIKey:    key,
		Model:     "test-model",
		MaxTokens: 42,
		Prompt:    prompt.MustParse("Recommend: {{text}}"),
		BaseURL:   baseURL,
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-model" || req.MaxTokens != 42 {
			t.Errorf("request = %+v", req)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "Recommend: history" {
			t.Errorf("messages = %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "model": "test-model",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": "  Read about Rome.  "}, "finish_reason": "stop"},
				{"index": 1, "message": {"role": "assistant", "content": "ignored"}, "finish_reason": "stop"}
			],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(testSettings("sk-test", srv.URL+"/v1"))
	res, err := p.Complete(context.Background(), "history")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Text != "  Read about Rome.  " {
		t.Errorf("Text = %q, want first choice verbatim", res.Text)
	}
	if res.TotalTokens != 17 || res.Provider != "openai" {
		t.Errorf("result = %+v", res)
	}
}

func TestOpenAIMissingKey(t *testing.T) {
	p := NewOpenAIProvider(Settings{})
	_, err := p.Complete(context.Background(), "history")
	if !errors.Is(err, ErrMissingKey) {
		t.Errorf("error = %v, want ErrMissingKey", err)
	}
}

func TestOpenAIUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"message": "upstream exploded", "type": "server_error"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(testSettings("sk-test", srv.URL+"/v1"))
	_, err := p.Complete(context.Background(), "history")
	if err == nil || !strings.Contains(err.Error(), "upstream exploded") {
		t.Errorf("error = %v", err)
	}
}

func TestOpenAINoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "x", "choices": []}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(testSettings("sk-test", srv.URL+"/v1"))
	if _, err := p.Complete(context.Background(), "history"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("error = %v, want ErrEmptyResponse", err)
	}
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "ak-test" {
			t.Errorf("X-Api-Key = %q", got)
		}
		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-model" || req.MaxTokens != 42 {
			t.Errorf("request = %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "test-model",
			"content": [
				{"type": "text", "text": "Try a documentary."},
				{"type": "text", "text": "ignored"}
			],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(testSettings("ak-test", srv.URL+"/"))
	res, err := p.Complete(context.Background(), "history")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Text != "Try a documentary." {
		t.Errorf("Text = %q", res.Text)
	}
	if res.TotalTokens != 14 || res.Provider != "anthropic" {
		t.Errorf("result = %+v", res)
	}
}

func TestAnthropicMissingKey(t *testing.T) {
	p := NewAnthropicProvider(Settings{})
	if _, err := p.Complete(context.Background(), "history"); !errors.Is(err, ErrMissingKey) {
		t.Errorf("error = %v, want ErrMissingKey", err)
	}
}

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req ollamaGenerateReq
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream || req.Prompt != "Recommend: science" || req.Options.NumPredict != 42 {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{"model": "test-model", "response": "Visit a museum.", "done": true, "prompt_eval_count": 8, "eval_count": 3}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(testSettings("", srv.URL+"/"))
	res, err := p.Complete(context.Background(), "science")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Text != "Visit a museum." || res.TotalTokens != 11 || res.CostUSD != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestOllamaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(testSettings("", srv.URL))
	_, err := p.Complete(context.Background(), "science")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v", err)
	}
}
