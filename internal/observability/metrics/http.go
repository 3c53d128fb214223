package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics records per-route request latency, volume and concurrency.
type HTTPMetrics struct {
	requestDuration metric.Float64Histogram
	requests        metric.Int64Counter
	inFlight        metric.Int64UpDownCounter
}

func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	meter := provider.Meter(serviceName(cfg) + "/http")

	requestDuration, err := meter.Float64Histogram("http.server.duration_ms",
		metric.WithUnit("ms"),
		metric.WithDescription("Request latency by route and status class."),
	)
	if err != nil {
		return nil, err
	}
	requests, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Requests by route, method and status code."),
	)
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("http.server.in_flight")
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{requestDuration: requestDuration, requests: requests, inFlight: inFlight}, nil
}

// statusClass collapses a status code to 2xx, 4xx and so on.
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// GinMiddleware uses the matched route template, never the raw path, so
// partner ids and periods do not become label values.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		route := strings.TrimSpace(c.FullPath())
		if route == "" {
			route = "unmatched"
		}
		ctx := c.Request.Context()
		routeAttr := attribute.String("endpoint", route)
		methodAttr := attribute.String("method", c.Request.Method)

		m.inFlight.Add(ctx, 1, metric.WithAttributes(FilterAttributes(routeAttr)...))
		start := time.Now()
		defer func() {
			m.inFlight.Add(ctx, -1, metric.WithAttributes(FilterAttributes(routeAttr)...))

			status := c.Writer.Status()
			m.requests.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
				routeAttr,
				methodAttr,
				attribute.String("status_code", strconv.Itoa(status)),
			)...))
			m.requestDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, metric.WithAttributes(FilterAttributes(
				routeAttr,
				methodAttr,
				attribute.String("status_class", statusClass(status)),
			)...))
		}()
		c.Next()
	}
}
