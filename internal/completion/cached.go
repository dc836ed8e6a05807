package completion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nikhilbhutani/livehint/internal/cache"
)

// Store is the subset of cache.Cache used by CachedProvider.
type Store interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CacheScope is everything besides the transcript that shapes a completion.
type CacheScope struct {
	Model     string
	MaxTokens int
	Prompt    string
}

// CachedProvider serves repeated transcripts from a Store. Store failures
// fall through to the wrapped provider.
type CachedProvider struct {
	next  Provider
	store Store
	scope CacheScope
	ttl   time.Duration
}

func NewCachedProvider(next Provider, store Store, scope CacheScope, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, store: store, scope: scope, ttl: ttl}
}

func (c *CachedProvider) Name() string { return c.next.Name() }

func (c *CachedProvider) Complete(ctx context.Context, text string) (*Result, error) {
	start := time.Now()
	key := CacheKey(c.next.Name(), c.scope, text)

	var hit Result
	err := c.store.Get(ctx, key, &hit)
	switch {
	case err == nil:
		hit.Cached = true
		hit.CostUSD = 0
		hit.LatencyMs = time.Since(start).Milliseconds()
		return &hit, nil
	case errors.Is(err, cache.ErrMiss):
	default:
		slog.Warn("completion cache read failed", "provider", c.next.Name(), "error", err)
	}

	res, err := c.next.Complete(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, res, c.ttl); err != nil {
		slog.Warn("completion cache write failed", "provider", c.next.Name(), "error", err)
	}
	return res, nil
}

// CacheKey identifies a completion by provider, model, token limit, prompt
// template and transcript.
func CacheKey(provider string, scope CacheScope, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d\x00%s\x00%s", scope.MaxTokens, scope.Prompt, text)
	return "livehint:completion:" + provider + ":" + scope.Model + ":" + hex.EncodeToString(h.Sum(nil))
}
