package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const metricExportInterval = 30 * time.Second

// Metrics are the OTLP instruments shared by the HTTP layer and the rate
// limiters.
type Metrics struct {
	RequestsTotal       metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	RateLimitRejections metric.Int64Counter
}

// InitMetrics installs an OTLP gRPC meter provider and creates the
// instruments on it.
func InitMetrics(ctx context.Context, serviceName, version, endpoint string) (*sdkmetric.MeterProvider, *Metrics, error) {
	res, err := serviceResource(ctx, serviceName, version)
	if err != nil {
		return nil, nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, exporterDialTimeout)
	defer cancel()
	exporter, err := otlpmetricgrpc.New(dialCtx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithDialOption(collectorDialOptions()...),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricExportInterval))),
	)
	otel.SetMeterProvider(mp)

	m, err := newMetrics(mp.Meter(serviceName))
	if err != nil {
		return nil, nil, err
	}
	return mp, m, nil
}

// NewNoopMetrics creates the instruments on the global meter provider, which
// discards measurements until a real provider is installed.
func NewNoopMetrics(serviceName string) (*Metrics, error) {
	return newMetrics(otel.GetMeterProvider().Meter(serviceName))
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.RequestsTotal, err = meter.Int64Counter("meetspace.http.requests",
		metric.WithDescription("HTTP requests served"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}
	if m.RequestDuration, err = meter.Float64Histogram("meetspace.http.request.duration",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	if m.RateLimitRejections, err = meter.Int64Counter("meetspace.ratelimit.rejections",
		metric.WithDescription("Requests rejected by the per-workspace rate limit"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("create rate limit counter: %w", err)
	}
	return &m, nil
}
