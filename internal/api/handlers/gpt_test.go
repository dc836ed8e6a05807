package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nikhilbhutani/livehint/internal/completion"
)

// stubProvider answers every call with a fixed result or error.
type stubProvider struct {
	text  string
	err   error
	calls int
	got   string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(_ context.Context, text string) (*completion.Result, error) {
	p.calls++
	p.got = text
	if p.err != nil {
		return nil, p.err
	}
	return &completion.Result{Text: p.text, Provider: "stub"}, nil
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/gpt", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRecommendHistory(t *testing.T) {
	h := NewGPTHandler(completion.NewKeywordMatcher(nil, ""), nil)
	rec := post(h.Recommend, `{"text":"history"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	want := `{"recommendation":"History is the study of past events, particularly in human affairs."}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRecommendPassesTextVerbatim(t *testing.T) {
	p := &stubProvider{text: "ok"}
	post(NewGPTHandler(p, nil).Recommend, `{"text":"  Tell me about POLITICS  "}`)
	if p.got != "  Tell me about POLITICS  " {
		t.Errorf("provider got %q", p.got)
	}
}

func TestRecommendFailures(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		providerErr error
		details     string
		wantCalls   int
	}{
		{"malformed json", `{"text":`, nil, "invalid request body", 0},
		{"missing text", `{}`, nil, "text is required", 0},
		{"null text", `{"text":null}`, nil, "text is required", 0},
		{"wrong type", `{"text":42}`, nil, "invalid request body", 0},
		{"provider error", `{"text":"history"}`, errors.New("openai: API key not configured"), "API key not configured", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProvider{err: tt.providerErr}
			rec := post(NewGPTHandler(p, nil).Recommend, tt.body)

			if rec.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want 500", rec.Code)
			}
			var body struct {
				Error   string `json:"error"`
				Details string `json:"details"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != FailureMessage {
				t.Errorf("error = %q", body.Error)
			}
			if !strings.Contains(body.Details, tt.details) {
				t.Errorf("details = %q, want %q", body.Details, tt.details)
			}
			if p.calls != tt.wantCalls {
				t.Errorf("provider calls = %d, want %d", p.calls, tt.wantCalls)
			}
		})
	}
}
