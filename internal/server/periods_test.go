package server

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	invoicedomain "github.com/smallbiznis/leadbilling/internal/invoice/domain"
	reconciliationdomain "github.com/smallbiznis/leadbilling/internal/reconciliation/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, body []byte) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Error
}

func TestGetPeriodViewParsesPeriodAndFilter(t *testing.T) {
	ts := newTestServer(t)
	ts.reconciliation.view = reconciliationdomain.PeriodView{PartnerID: "p1", LeadCount: 3}

	resp := ts.do(http.MethodGet, "/api/partners/p1/periods/2024/3?filter=range&from=2024-03-01&to=2024-03-31", "", map[string]string{
		"Authorization": "Bearer operator",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	assert.Equal(t, "p1", ts.reconciliation.lastPartner)
	assert.Equal(t, reconciliationdomain.Period{Month: 3, Year: 2024}, ts.reconciliation.lastPeriod)
	assert.Equal(t, reconciliationdomain.FilterRange, ts.reconciliation.lastFilter.Type)
	require.NotNil(t, ts.reconciliation.lastFilter.From)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), *ts.reconciliation.lastFilter.To)
	assert.NotEmpty(t, ts.reconciliation.callerKey)

	var body struct {
		Data reconciliationdomain.PeriodView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Data.LeadCount)
}

func TestGetPeriodViewDefaultsToAll(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/api/partners/p1/periods/2024/12", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, reconciliationdomain.FilterAll, ts.reconciliation.lastFilter.Type)
	assert.Empty(t, ts.reconciliation.callerKey)
}

func TestGetPeriodViewRejectsBadPeriod(t *testing.T) {
	ts := newTestServer(t)

	for _, target := range []string{"/api/partners/p1/periods/2024/13", "/api/partners/p1/periods/abc/1", "/api/partners/p1/periods/2024/0"} {
		resp := ts.do(http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code, target)
	}
	assert.Zero(t, ts.reconciliation.viewCalls)
}

func TestGetPeriodViewRejectsBadDate(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/api/partners/p1/periods/2024/3?filter=day&date=yesterday", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, "validation_error", payload.Type)
	assert.Equal(t, "date", payload.Errors[0].Field)
}

func TestGenerateInvoiceCreates(t *testing.T) {
	ts := newTestServer(t)
	ts.reconciliation.invoice = invoicedomain.Invoice{ID: "inv-9", InvoiceNumber: "INV-2024-009"}

	resp := ts.do(http.MethodPost, "/api/partners/p1/periods/2024/3/invoices", `{"service_type":"moving","lead_ids":["l1","l2"]}`, nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	assert.Equal(t, reconciliationdomain.GenerateRequest{
		PartnerID:   "p1",
		Period:      reconciliationdomain.Period{Month: 3, Year: 2024},
		ServiceType: "moving",
		LeadIDs:     []string{"l1", "l2"},
	}, ts.reconciliation.lastGen)
	assert.Contains(t, resp.Body.String(), "INV-2024-009")
}

func TestGenerateInvoiceEmptySelectionIsLocalized(t *testing.T) {
	ts := newTestServer(t)
	ts.reconciliation.err = reconciliationdomain.ErrEmptySelection

	resp := ts.do(http.MethodPost, "/api/partners/p1/periods/2024/3/invoices", `{"lead_ids":[]}`, map[string]string{
		"Accept-Language": "de-DE,de;q=0.9",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "de", resp.Header().Get("Content-Language"))

	payload := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, "empty_selection", payload.Type)
	assert.Equal(t, "Bitte wählen Sie mindestens einen Lead aus.", payload.Message)
}

func TestGenerateInvoiceRateLimitedSetsRetryAfter(t *testing.T) {
	ts := newTestServer(t)
	ts.reconciliation.err = &reconciliationdomain.RateLimitedError{RetryAfter: 1500 * time.Millisecond}

	resp := ts.do(http.MethodPost, "/api/partners/p1/periods/2024/3/invoices", `{"lead_ids":["l1"]}`, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "2", resp.Header().Get("Retry-After"))
}

func TestGenerateInvoiceRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodPost, "/api/partners/p1/periods/2024/3/invoices", `{"lead_ids":"l1"`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, ts.reconciliation.lastGen.PartnerID)
}
