package metrics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	storeRequests    metric.Int64Counter
	storeDuration    metric.Float64Histogram
	rateLimitAllowed metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)

	return provider, nil
}

// New registers the store and rate limit instruments. Instrument errors are
// joined so one bad name does not hide the others.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(serviceName(cfg))

	var errs []error
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}

	m := &Metrics{
		storeRequests:    counter("leadbilling_store_requests_total", "Lead store calls by operation and status."),
		rateLimitAllowed: counter("leadbilling_rate_limit_allowed_total", "Generation requests let through the guard."),
		rateLimitDenied:  counter("leadbilling_rate_limit_denied_total", "Generation requests refused by rate or lock."),
	}
	storeDuration, err := meter.Float64Histogram("leadbilling_store_request_duration_ms", metric.WithUnit("ms"))
	errs = append(errs, err)
	m.storeDuration = storeDuration

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordStoreRequest records one call to the lead store. A zero status
// means the request never got a response.
func (m *Metrics) RecordStoreRequest(ctx context.Context, operation string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	op := attribute.String("operation", strings.TrimSpace(operation))
	code, class := "none", "transport_error"
	if status > 0 {
		code, class = strconv.Itoa(status), statusClass(status)
	}
	m.storeRequests.Add(ctx, 1, metric.WithAttributes(FilterAttributes(op, attribute.String("status_code", code))...))
	m.storeDuration.Record(ctx, float64(duration.Microseconds())/1000,
		metric.WithAttributes(FilterAttributes(op, attribute.String("status_class", class))...))
}

// RecordGuardDecision counts one pass through the generation guard. An
// empty reason means the request was let through.
func (m *Metrics) RecordGuardDecision(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	endpointAttr := attribute.String("endpoint", strings.TrimSpace(endpoint))
	reason = strings.TrimSpace(reason)
	if reason == "" {
		m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(FilterAttributes(endpointAttr)...))
		return
	}
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(FilterAttributes(endpointAttr, attribute.String("reason", reason))...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

func serviceName(cfg Config) string {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		return "leadbilling"
	}
	return name
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":     {},
	"method":       {},
	"status_code":  {},
	"status_class": {},
	"operation":    {},
	"reason":       {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Partner and lead ids never make it past this filter.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
