package observe

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Provider is the process-wide metrics pipeline.
type Provider struct {
	mp      *sdkmetric.MeterProvider
	handler http.Handler
}

// InitProvider builds a MeterProvider that exports to a private Prometheus
// registry and installs it as the global OTel meter provider.
func InitProvider(serviceName string) (*Provider, error) {
	if serviceName == "" {
		serviceName = "livehint"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exp, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdkmetric.WithReader(exp),
	)
	otel.SetMeterProvider(mp)

	return &Provider{
		mp:      mp,
		handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, nil
}

// Metrics creates the instruments on this provider.
func (p *Provider) Metrics() (*Metrics, error) {
	return NewMetrics(p.mp)
}

// Handler serves the Prometheus scrape endpoint.
func (p *Provider) Handler() http.Handler { return p.handler }

func (p *Provider) Shutdown(ctx context.Context) error {
	return p.mp.Shutdown(ctx)
}
