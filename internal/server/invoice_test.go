package server

import (
	"io"
	"net/http"
	"strings"
	"testing"

	invoicedomain "github.com/smallbiznis/leadbilling/internal/invoice/domain"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListInvoicesParsesDates(t *testing.T) {
	ts := newTestServer(t)
	ts.invoices.invoice = invoicedomain.Invoice{ID: "inv-1"}

	resp := ts.do(http.MethodGet, "/api/invoices?partner_id=p1&start_date=2024-03-01&end_date=2024-03-31&service_type=moving", "", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	req := ts.invoices.lastList
	assert.Equal(t, "p1", req.PartnerID)
	assert.Equal(t, "moving", req.ServiceType)
	require.NotNil(t, req.StartDate)
	require.NotNil(t, req.EndDate)
	assert.Equal(t, "2024-03-01T00:00:00Z", req.StartDate.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, "2024-03-31T23:59:59.999Z", req.EndDate.Format("2006-01-02T15:04:05.000Z07:00"))
}

func TestListInvoicesRejectsBadDate(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/api/invoices?start_date=march", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetInvoiceNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.invoices.err = invoicedomain.ErrNotFound

	resp := ts.do(http.MethodGet, "/api/invoices/inv-404", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "inv-404", ts.invoices.lastID)
}

func TestDownloadInvoiceStreamsDocument(t *testing.T) {
	ts := newTestServer(t)
	ts.invoices.doc = invoicedomain.Document{
		Body:          io.NopCloser(strings.NewReader("%PDF-1.7")),
		ContentType:   "application/pdf",
		ContentLength: 8,
		Filename:      "invoice-inv-2024-001.pdf",
	}

	resp := ts.do(http.MethodGet, "/api/invoices/inv-1/download", "", map[string]string{"Accept-Language": "de"})
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, "de", ts.invoices.lastLanguage)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=invoice-inv-2024-001.pdf`, resp.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.7", resp.Body.String())
}

func TestDownloadInvoiceExplicitLanguageWins(t *testing.T) {
	ts := newTestServer(t)
	ts.invoices.doc = invoicedomain.Document{Body: io.NopCloser(strings.NewReader("x")), ContentType: "application/pdf", Filename: "invoice.pdf"}

	resp := ts.do(http.MethodGet, "/api/invoices/inv-1/download?language=en", "", map[string]string{"Accept-Language": "de"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "en", ts.invoices.lastLanguage)
}

func TestMarkInvoicePaid(t *testing.T) {
	ts := newTestServer(t)
	ts.invoices.invoice = invoicedomain.Invoice{ID: "inv-1", Status: invoicedomain.StatusPaid}

	resp := ts.do(http.MethodPost, "/api/invoices/inv-1/mark-paid", `{"payment_method":"bank_transfer","payment_reference":" REF-1 "}`, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, invoicedomain.PaymentDetails{Method: "bank_transfer", Reference: "REF-1"}, ts.invoices.lastDetails)
	assert.Contains(t, resp.Body.String(), `"status":"paid"`)
}

func TestMarkInvoicePaidWithoutBody(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodPost, "/api/invoices/inv-1/mark-paid", "", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, invoicedomain.PaymentDetails{}, ts.invoices.lastDetails)
}

func TestMarkInvoiceUnpaidSurfacesStoreFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.invoices.err = &leadapi.StoreError{Operation: "invoice.mark_unpaid", Status: http.StatusBadRequest, Message: "Invoice is cancelled"}

	resp := ts.do(http.MethodPost, "/api/invoices/inv-1/mark-unpaid", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, 1, ts.invoices.unpaidCalls)

	payload := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, "store_rejected", payload.Type)
	assert.Equal(t, "Failed to update invoice status: Invoice is cancelled", payload.Message)
}
