// Package observe holds the OpenTelemetry metric instruments for the
// completion backend. Tests should build Metrics from their own
// MeterProvider with NewMetrics.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/nikhilbhutani/livehint"

type Metrics struct {
	// CompletionDuration tracks provider latency. Attributes: provider, status.
	CompletionDuration metric.Float64Histogram

	// CompletionRequests counts /api/gpt completions. Attributes: provider, status.
	CompletionRequests metric.Int64Counter

	// CompletionTokens counts tokens. Attributes: provider, direction (input|output).
	CompletionTokens metric.Int64Counter

	// CompletionCost accumulates estimated spend in USD. Attribute: provider.
	CompletionCost metric.Float64Counter

	// CacheHits counts completions served from the cache. Attribute: provider.
	CacheHits metric.Int64Counter

	// HTTPRequestDuration tracks request handling time. Attributes: method, route, status.
	HTTPRequestDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CompletionDuration, err = m.Float64Histogram("livehint.completion.duration",
		metric.WithDescription("Latency of completion providers."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CompletionRequests, err = m.Int64Counter("livehint.completion.requests",
		metric.WithDescription("Completions by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.CompletionTokens, err = m.Int64Counter("livehint.completion.tokens",
		metric.WithDescription("Tokens consumed by provider and direction."),
	); err != nil {
		return nil, err
	}
	if met.CompletionCost, err = m.Float64Counter("livehint.completion.cost",
		metric.WithDescription("Estimated completion cost."),
		metric.WithUnit("USD"),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("livehint.completion.cache_hits",
		metric.WithDescription("Completions served from the cache."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("livehint.http.request.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// Completion describes one finished provider call.
type Completion struct {
	Provider     string
	Err          error
	Duration     time.Duration
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Cached       bool
}

// RecordCompletion records every completion instrument for c.
func (m *Metrics) RecordCompletion(ctx context.Context, c Completion) {
	status := "ok"
	if c.Err != nil {
		status = "error"
	}
	provider := attribute.String("provider", c.Provider)
	withStatus := metric.WithAttributes(provider, attribute.String("status", status))

	m.CompletionRequests.Add(ctx, 1, withStatus)
	m.CompletionDuration.Record(ctx, c.Duration.Seconds(), withStatus)
	if c.Err != nil {
		return
	}
	if c.Cached {
		m.CacheHits.Add(ctx, 1, metric.WithAttributes(provider))
	}
	if c.InputTokens > 0 {
		m.CompletionTokens.Add(ctx, int64(c.InputTokens),
			metric.WithAttributes(provider, attribute.String("direction", "input")))
	}
	if c.OutputTokens > 0 {
		m.CompletionTokens.Add(ctx, int64(c.OutputTokens),
			metric.WithAttributes(provider, attribute.String("direction", "output")))
	}
	if c.CostUSD > 0 {
		m.CompletionCost.Add(ctx, c.CostUSD, metric.WithAttributes(provider))
	}
}
