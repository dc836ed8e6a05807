// Package recommend is the client side of the completion backend: it sends a
// finalized transcript to POST /api/gpt and returns the recommendation.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// LoadingText is displayed while a request is in flight.
	LoadingText = "Loading..."
	// ErrorText is displayed after any failed request.
	ErrorText = "An error occurred while fetching the recommendation."

	recommendPath = "/api/gpt"
)

// ErrEmptyText is returned for blank input; no request is made.
var ErrEmptyText = errors.New("recommend: text is empty")

// Config holds the backend location and transport settings.
type Config struct {
	BaseURL string
	// Token, when set, is sent as a bearer token.
	Token string
	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration
}

// Client talks to the completion backend.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a Client for the backend at cfg.BaseURL.
func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type recommendRequest struct {
	Text string `json:"text"`
}

type recommendResponse struct {
	Recommendation string `json:"recommendation"`
	Error          string `json:"error,omitempty"`
	Details        string `json:"details,omitempty"`
}

// Recommend issues exactly one request carrying text and returns the
// backend's recommendation. Transport errors and non-2xx responses are
// returned as errors; there is no retry.
func (c *Client) Recommend(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	body, err := json.Marshal(recommendRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+recommendPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("recommend request: %w", err)
	}
	reqID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-Id", reqID)
	if c.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("recommend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out recommendResponse
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = json.Unmarshal(respBody, &out)
		return "", fmt.Errorf("recommend failed (status %d): %s", resp.StatusCode, describe(out, respBody))
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	slog.Debug("recommendation received",
		"request_id", reqID,
		"latency_ms", time.Since(start).Milliseconds(),
		"chars", len(out.Recommendation),
	)
	return out.Recommendation, nil
}

func describe(out recommendResponse, raw []byte) string {
	switch {
	case out.Details != "":
		return out.Error + ": " + out.Details
	case out.Error != "":
		return out.Error
	default:
		return string(raw)
	}
}
