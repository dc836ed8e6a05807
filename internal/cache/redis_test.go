package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/livehint/internal/config"
)

// These tests need a live Redis and run only when LIVEHINT_TEST_REDIS is set
// to its address.
func testCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("LIVEHINT_TEST_REDIS")
	if addr == "" {
		t.Skip("LIVEHINT_TEST_REDIS not set")
	}
	c, err := Connect(context.Background(), config.RedisConfig{Addr: addr})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestConnectUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Connect(ctx, config.RedisConfig{Addr: "127.0.0.1:1"}); err == nil {
		t.Error("expected ping error")
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	key := "livehint:test:" + uuid.NewString()

	type entry struct {
		Text string `json:"text"`
	}
	if err := c.Set(ctx, key, entry{Text: "History is the study of past events."}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got entry
	if err := c.Get(ctx, key, &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Text != "History is the study of past events." {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestGetMiss(t *testing.T) {
	c := testCache(t)
	var dest string
	err := c.Get(context.Background(), "livehint:test:"+uuid.NewString(), &dest)
	if !errors.Is(err, ErrMiss) {
		t.Errorf("Get error = %v, want ErrMiss", err)
	}
}
