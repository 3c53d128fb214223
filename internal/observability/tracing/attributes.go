package tracing

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

const (
	AttrPartnerID      = attribute.Key("leadbilling.partner_id")
	AttrPeriod         = attribute.Key("leadbilling.period")
	AttrInvoiceID      = attribute.Key("leadbilling.invoice_id")
	AttrStoreOperation = attribute.Key("leadbilling.store.operation")
)

// Lead customer data and payment details never go on spans.
var sensitiveAttributeKeys = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"payment_reference",
	"customer",
	"email",
	"phone",
}

type storeOperationKey struct{}

// WithStoreOperation names the store call made with ctx. The outbound
// transport uses it as the client span name.
func WithStoreOperation(ctx context.Context, operation string) context.Context {
	operation = strings.TrimSpace(operation)
	if ctx == nil || operation == "" {
		return ctx
	}
	return context.WithValue(ctx, storeOperationKey{}, operation)
}

func storeOperationFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(storeOperationKey{}).(string)
	return value
}

// RouteAttributes derives domain attributes from the matched route and its
// params. Unknown routes yield nothing.
func RouteAttributes(route string, param func(string) string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	switch {
	case strings.HasPrefix(route, "/api/partners/:id"):
		attrs = append(attrs, AttrPartnerID.String(param("id")))
		if year, month := param("year"), param("month"); year != "" && month != "" {
			attrs = append(attrs, AttrPeriod.String(year+"-"+leftPad(month)))
		}
	case strings.HasPrefix(route, "/api/invoices/:id"):
		attrs = append(attrs, AttrInvoiceID.String(param("id")))
	case strings.HasPrefix(route, "/api/leads/:id/partners/:partnerId"):
		attrs = append(attrs, AttrPartnerID.String(param("partnerId")))
	}
	return attrs
}

func leftPad(month string) string {
	if len(month) == 1 {
		return "0" + month
	}
	return month
}

// SafeAttributes drops attributes with sensitive keys.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if isSensitiveKey(string(attr.Key)) {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

// SafeError replaces an error with a type-only error so span events never
// carry store messages or customer data.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%T", err)
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, needle := range sensitiveAttributeKeys {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}
