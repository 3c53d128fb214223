package correlation

import (
	"context"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
	obscontext "github.com/smallbiznis/leadbilling/internal/observability/context"
)

// HeaderName carries the correlation id to the external store.
const HeaderName = "X-Correlation-Id"

// ExtractCorrelationID fetches a correlation ID from the context if present.
func ExtractCorrelationID(ctx context.Context) string {
	return obscontext.CorrelationIDFromContext(ctx)
}

// ContextWithCorrelationID sets the correlation ID onto the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return obscontext.WithCorrelationID(ctx, strings.TrimSpace(id))
}

// EnsureCorrelationID guarantees a correlation ID on the context, generating one when missing.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	cid := ExtractCorrelationID(ctx)
	if cid == "" {
		cid = ulid.Make().String()
	}
	return ContextWithCorrelationID(ctx, cid), cid
}

// InjectHeader copies the correlation ID from ctx onto an outbound request,
// generating one if the caller never set it.
func InjectHeader(ctx context.Context, header http.Header) context.Context {
	ctx, cid := EnsureCorrelationID(ctx)
	header.Set(HeaderName, cid)
	return ctx
}
