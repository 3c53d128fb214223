package metrics

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("operation", "list_invoices"),
		attribute.String("partner_id", "p-1"),
		attribute.String("status_code", "200"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "partner_id" {
			t.Fatalf("expected partner_id to be dropped")
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordStoreRequest(context.Background(), "get_invoice", 200, time.Millisecond)
	m.RecordGuardDecision(context.Background(), "/api/invoices", "locked")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	m.RecordStoreRequest(context.Background(), "generate_invoice", 201, 5*time.Millisecond)
	m.RecordGuardDecision(context.Background(), "/api/partners/:id/periods/:year/:month/invoices", "")
	m.RecordStoreRequest(context.Background(), "list_partner_leads", 0, time.Second)
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{200: "2xx", 201: "2xx", 409: "4xx", 502: "5xx", 0: "unknown", 700: "unknown"}
	for status, want := range cases {
		if got := statusClass(status); got != want {
			t.Fatalf("statusClass(%d) = %q, want %q", status, got, want)
		}
	}
}

func TestFilterAttributesKeepsHTTPLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("endpoint", "/api/invoices/:id"),
		attribute.String("method", "POST"),
		attribute.String("status_class", "2xx"),
		attribute.String("invoice_id", "inv-1"),
	)
	if len(attrs) != 3 {
		t.Fatalf("expected 3 attributes, got %d", len(attrs))
	}
}
