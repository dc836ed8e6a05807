package completion

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nikhilbhutani/livehint/internal/cache"
)

// memStore is an in-memory Store that round-trips values through JSON the way
// the Redis cache does.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (s *memStore) Get(_ context.Context, key string, dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return s.getErr
	}
	b, ok := s.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(b, dest)
}

func (s *memStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[key] = b
	s.lastTTL = ttl
	return nil
}

// countingProvider records calls and answers with a fixed text.
type countingProvider struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *countingProvider) Name() string { return "fake" }

func (p *countingProvider) Complete(_ context.Context, text string) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &Result{Text: "about " + text, Provider: "fake", Model: "m", CostUSD: 0.01}, nil
}

func TestCachedProviderHit(t *testing.T) {
	next := &countingProvider{}
	store := newMemStore()
	p := NewCachedProvider(next, store, CacheScope{Model: "m"}, time.Minute)

	first, err := p.Complete(context.Background(), "history")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if first.Cached {
		t.Error("first call should not be cached")
	}
	second, err := p.Complete(context.Background(), "history")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !second.Cached || second.Text != "about history" || second.CostUSD != 0 {
		t.Errorf("second = %+v", second)
	}
	if next.calls != 1 {
		t.Errorf("provider called %d times, want 1", next.calls)
	}
	if store.lastTTL != time.Minute {
		t.Errorf("ttl = %v", store.lastTTL)
	}
	if p.Name() != "fake" {
		t.Errorf("Name = %q", p.Name())
	}
}

func TestCachedProviderDistinctText(t *testing.T) {
	next := &countingProvider{}
	p := NewCachedProvider(next, newMemStore(), CacheScope{Model: "m"}, time.Minute)
	p.Complete(context.Background(), "history")
	res, _ := p.Complete(context.Background(), "science")
	if res.Text != "about science" || next.calls != 2 {
		t.Errorf("res = %+v, calls = %d", res, next.calls)
	}
}

func TestCachedProviderStoreFailureFallsThrough(t *testing.T) {
	next := &countingProvider{}
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	p := NewCachedProvider(next, store, CacheScope{Model: "m"}, time.Minute)

	res, err := p.Complete(context.Background(), "history")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Text != "about history" || res.Cached {
		t.Errorf("res = %+v", res)
	}
}

func TestCachedProviderErrorsAreNotCached(t *testing.T) {
	next := &countingProvider{err: errors.New("rate limited")}
	store := newMemStore()
	p := NewCachedProvider(next, store, CacheScope{Model: "m"}, time.Minute)

	if _, err := p.Complete(context.Background(), "history"); err == nil {
		t.Fatal("expected error")
	}
	if len(store.data) != 0 {
		t.Errorf("store has %d entries, want 0", len(store.data))
	}
}

func TestCacheKey(t *testing.T) {
	scope := CacheScope{Model: "gpt-4o-mini", MaxTokens: 150, Prompt: "Advise: {{text}}"}
	a := CacheKey("openai", scope, "history")
	if a != CacheKey("openai", scope, "history") {
		t.Error("key not deterministic")
	}

	tests := []struct {
		name     string
		provider string
		mutate   func(*CacheScope)
	}{
		{"model", "openai", func(s *CacheScope) { s.Model = "gpt-4o" }},
		{"provider", "anthropic", func(*CacheScope) {}},
		{"max tokens", "openai", func(s *CacheScope) { s.MaxTokens = 64 }},
		{"prompt", "openai", func(s *CacheScope) { s.Prompt = "Summarize: {{text}}" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := scope
			tt.mutate(&other)
			if CacheKey(tt.provider, other, "history") == a {
				t.Errorf("key must change with %s", tt.name)
			}
		})
	}
}

func TestCachedProviderMissesAfterPromptChange(t *testing.T) {
	next := &countingProvider{}
	store := newMemStore()
	old := NewCachedProvider(next, store, CacheScope{Model: "m", Prompt: "Advise: {{text}}"}, time.Minute)
	changed := NewCachedProvider(next, store, CacheScope{Model: "m", Prompt: "Summarize: {{text}}"}, time.Minute)

	if _, err := old.Complete(context.Background(), "history"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	res, err := changed.Complete(context.Background(), "history")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Cached {
		t.Error("result cached under the old prompt was served")
	}
	if next.calls != 2 {
		t.Errorf("provider calls = %d, want 2", next.calls)
	}
}
