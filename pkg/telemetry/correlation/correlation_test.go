package correlation

import (
	"context"
	"net/http"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCorrelationIDGeneratesULID(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())
	_, err := ulid.Parse(cid)
	require.NoError(t, err)
	assert.Equal(t, cid, ExtractCorrelationID(ctx))
}

func TestEnsureCorrelationIDKeepsExisting(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "corr-1")
	_, cid := EnsureCorrelationID(ctx)
	assert.Equal(t, "corr-1", cid)
}

func TestInjectHeader(t *testing.T) {
	header := http.Header{}
	ctx := ContextWithCorrelationID(context.Background(), "corr-2")
	InjectHeader(ctx, header)
	assert.Equal(t, "corr-2", header.Get(HeaderName))
}
