package leadapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/smallbiznis/leadbilling/internal/config"
	"github.com/smallbiznis/leadbilling/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(config.LeadAPIConfig{BaseURL: srv.URL + "/api", Token: "svc-token", TimeoutSeconds: 5}, zap.NewNop(), nil)
	require.NoError(t, err)
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(config.LeadAPIConfig{}, zap.NewNop(), nil)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestDoUnwrapsNamedEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/partners/p1/leads", r.URL.Path)
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(correlation.HeaderName))
		_, _ = io.WriteString(w, `{"success":true,"data":{"leads":[{"id":"l1"},{"id":"l2"}]}}`)
	})

	var out []map[string]string
	err := client.Do(context.Background(), Request{Operation: "partner.leads", Method: http.MethodGet, Path: "/partners/p1/leads"}, &out, "leads")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "l2", out[1]["id"])
}

func TestDoFallsBackToRawBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"i1"}]`)
	})

	var out []map[string]string
	err := client.Do(context.Background(), Request{Operation: "invoice.list", Method: http.MethodGet, Path: "/invoices"}, &out, "invoices")
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestDoSendsQueryAndBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "p1", r.URL.Query().Get("partnerId"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "moving", body["serviceType"])
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"invoice":{"_id":"inv1"}}}`)
	})

	var out map[string]string
	err := client.Do(context.Background(), Request{
		Operation: "invoice.generate",
		Method:    http.MethodPost,
		Path:      "/invoices/generate",
		Query:     url.Values{"partnerId": {"p1"}},
		Body:      map[string]string{"serviceType": "moving"},
	}, &out, "invoice")
	require.NoError(t, err)
	assert.Equal(t, "inv1", out["_id"])
}

func TestDoForwardsCallerAuthorization(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})

	ctx := WithAuthorization(context.Background(), "Bearer user-token")
	require.NoError(t, client.Do(ctx, Request{Operation: "invoice.paid", Method: http.MethodPatch, Path: "/invoices/i1/paid"}, nil))
}

func TestDoSurfacesStoreMessage(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "message", body: `{"message":"Lead already invoiced"}`, want: "Lead already invoiced"},
		{name: "error string", body: `{"error":"Partner not found"}`, want: "Partner not found"},
		{name: "error object", body: `{"error":{"message":"Invalid period"}}`, want: "Invalid period"},
		{name: "not json", body: `oops`, want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, tc.body)
			})

			err := client.Do(context.Background(), Request{Operation: "invoice.generate", Method: http.MethodPost, Path: "/invoices/generate"}, nil)
			storeErr, ok := AsStoreError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, storeErr.Status)
			assert.Equal(t, tc.want, storeErr.Message)
			assert.False(t, errors.Is(err, ErrUnavailable))
		})
	}
}

func TestServerErrorsAreUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.Do(context.Background(), Request{Operation: "invoice.list", Method: http.MethodGet, Path: "/invoices"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	err := client.Do(context.Background(), Request{Operation: "invoice.get", Method: http.MethodGet, Path: "/invoices/x"}, nil)
	assert.True(t, IsNotFound(err))
}

func TestStreamReturnsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "de", r.URL.Query().Get("language"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="INV-001.pdf"`)
		_, _ = io.WriteString(w, "%PDF-1.4")
	})

	stream, err := client.Stream(context.Background(), Request{
		Operation: "invoice.download",
		Method:    http.MethodGet,
		Path:      "/invoices/i1/download",
		Query:     url.Values{"language": {"de"}},
	})
	require.NoError(t, err)
	defer stream.Body.Close()

	body, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))
	assert.Equal(t, "application/pdf", stream.ContentType)
	assert.Equal(t, "INV-001.pdf", stream.Filename)
}

func TestCallerKeyDiffersPerCredential(t *testing.T) {
	assert.Empty(t, CallerKey(context.Background()))

	a := CallerKey(WithAuthorization(context.Background(), "Bearer a"))
	b := CallerKey(WithAuthorization(context.Background(), "Bearer b"))
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, CallerKey(WithAuthorization(context.Background(), "Bearer a")))
}
