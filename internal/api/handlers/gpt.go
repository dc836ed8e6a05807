package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/livehint/internal/completion"
	"github.com/nikhilbhutani/livehint/internal/observe"
)

const (
	maxBodyBytes = 1 << 20

	// FailureMessage is the fixed error field of every failed /api/gpt call.
	FailureMessage = "Failed to fetch GPT response"
)

type GPTHandler struct {
	provider completion.Provider
	metrics  *observe.Metrics
}

// NewGPTHandler serves recommendations from provider. metrics may be nil.
func NewGPTHandler(provider completion.Provider, metrics *observe.Metrics) *GPTHandler {
	return &GPTHandler{provider: provider, metrics: metrics}
}

type gptRequest struct {
	Text *string `json:"text"`
}

type gptResponse struct {
	Recommendation string `json:"recommendation"`
}

type gptError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Recommend handles POST /api/gpt. Every failure, including a malformed body
// or a missing text field, is a 500 with the fixed error message.
func (h *GPTHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	reqID := chimiddleware.GetReqID(r.Context())

	var req gptRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.fail(w, reqID, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Text == nil {
		h.fail(w, reqID, errors.New("text is required"))
		return
	}
	slog.Info("received text", "request_id", reqID, "chars", len(*req.Text))

	start := time.Now()
	res, err := h.provider.Complete(r.Context(), *req.Text)
	if h.metrics != nil {
		sample := observe.Completion{Provider: h.provider.Name(), Err: err, Duration: time.Since(start)}
		if res != nil {
			sample.InputTokens, sample.OutputTokens = res.InputTokens, res.OutputTokens
			sample.CostUSD, sample.Cached = res.CostUSD, res.Cached
		}
		h.metrics.RecordCompletion(r.Context(), sample)
	}
	if err != nil {
		h.fail(w, reqID, err)
		return
	}

	slog.Info("recommendation ready",
		"request_id", reqID,
		"provider", res.Provider,
		"model", res.Model,
		"tokens", res.TotalTokens,
		"cost_usd", res.CostUSD,
		"cached", res.Cached,
		"latency_ms", res.LatencyMs,
	)
	writeJSON(w, http.StatusOK, gptResponse{Recommendation: res.Text})
}

func (h *GPTHandler) fail(w http.ResponseWriter, reqID string, err error) {
	slog.Error("error fetching GPT response", "request_id", reqID, "error", err)
	writeJSON(w, http.StatusInternalServerError, gptError{Error: FailureMessage, Details: err.Error()})
}
