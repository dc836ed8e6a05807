package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestRecommendSuccess(t *testing.T) {
	var got recommendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/gpt" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("missing X-Request-Id")
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"recommendation":"History is the study of past events, particularly in human affairs."}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", Token: "tok"})
	rec, err := c.Recommend(context.Background(), "history ")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if got.Text != "history " {
		t.Errorf("sent text = %q", got.Text)
	}
	if rec != "History is the study of past events, particularly in human affairs." {
		t.Errorf("recommendation = %q", rec)
	}
}

func TestRecommendBlankTextMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	for _, text := range []string{"", "   "} {
		if _, err := c.Recommend(context.Background(), text); !errors.Is(err, ErrEmptyText) {
			t.Errorf("Recommend(%q) error = %v, want ErrEmptyText", text, err)
		}
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server hit %d times, want 0", n)
	}
}

func TestRecommendServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to fetch GPT response","details":"openai: api key is not set"}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Recommend(context.Background(), "science")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 500") || !strings.Contains(err.Error(), "api key is not set") {
		t.Errorf("error = %v", err)
	}
}

func TestRecommendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	if _, err := NewClient(Config{BaseURL: url}).Recommend(context.Background(), "science"); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestRecommendCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(Config{BaseURL: srv.URL}).Recommend(ctx, "science")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
