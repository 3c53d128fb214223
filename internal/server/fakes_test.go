package server

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/leadbilling/internal/audit/domain"
	"github.com/smallbiznis/leadbilling/internal/config"
	"github.com/smallbiznis/leadbilling/internal/i18n"
	invoicedomain "github.com/smallbiznis/leadbilling/internal/invoice/domain"
	leaddomain "github.com/smallbiznis/leadbilling/internal/lead/domain"
	partnerdomain "github.com/smallbiznis/leadbilling/internal/partner/domain"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
	reconciliationdomain "github.com/smallbiznis/leadbilling/internal/reconciliation/domain"
	settingsdomain "github.com/smallbiznis/leadbilling/internal/settings/domain"
)

type fakeReconciliation struct {
	view        reconciliationdomain.PeriodView
	invoice     invoicedomain.Invoice
	err         error
	viewCalls   int
	lastPartner string
	lastPeriod  reconciliationdomain.Period
	lastFilter  reconciliationdomain.DateFilter
	lastGen     reconciliationdomain.GenerateRequest
	callerKey   string
}

func (f *fakeReconciliation) LoadPeriod(ctx context.Context, partnerID string, period reconciliationdomain.Period) (reconciliationdomain.PeriodSnapshot, error) {
	return reconciliationdomain.PeriodSnapshot{}, f.err
}

func (f *fakeReconciliation) View(ctx context.Context, partnerID string, period reconciliationdomain.Period, filter reconciliationdomain.DateFilter) (reconciliationdomain.PeriodView, error) {
	f.viewCalls++
	f.lastPartner = partnerID
	f.lastPeriod = period
	f.lastFilter = filter
	f.callerKey = leadapi.CallerKey(ctx)
	return f.view, f.err
}

func (f *fakeReconciliation) GenerateInvoice(ctx context.Context, req reconciliationdomain.GenerateRequest) (invoicedomain.Invoice, error) {
	f.lastGen = req
	return f.invoice, f.err
}

type fakeInvoiceService struct {
	invoice      invoicedomain.Invoice
	doc          invoicedomain.Document
	err          error
	lastList     invoicedomain.ListInvoiceRequest
	lastID       string
	lastLanguage string
	lastDetails  invoicedomain.PaymentDetails
	unpaidCalls  int
}

func (f *fakeInvoiceService) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) ([]invoicedomain.Invoice, error) {
	f.lastList = req
	if f.err != nil {
		return nil, f.err
	}
	return []invoicedomain.Invoice{f.invoice}, nil
}

func (f *fakeInvoiceService) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	f.lastID = id
	return f.invoice, f.err
}

func (f *fakeInvoiceService) Create(ctx context.Context, draft invoicedomain.Draft) (invoicedomain.Invoice, error) {
	return f.invoice, f.err
}

func (f *fakeInvoiceService) MarkPaid(ctx context.Context, id string, details invoicedomain.PaymentDetails) (invoicedomain.Invoice, error) {
	f.lastID = id
	f.lastDetails = details
	return f.invoice, f.err
}

func (f *fakeInvoiceService) MarkUnpaid(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	f.lastID = id
	f.unpaidCalls++
	return f.invoice, f.err
}

func (f *fakeInvoiceService) Download(ctx context.Context, id, language string) (invoicedomain.Document, error) {
	f.lastID = id
	f.lastLanguage = language
	return f.doc, f.err
}

type fakeLeadService struct {
	lead    leaddomain.Lead
	err     error
	lastReq leaddomain.RejectCancellationRequest
}

func (f *fakeLeadService) ListByPartner(ctx context.Context, partnerID string) ([]leaddomain.Lead, error) {
	return nil, f.err
}

func (f *fakeLeadService) RejectCancellation(ctx context.Context, req leaddomain.RejectCancellationRequest) (leaddomain.Lead, error) {
	f.lastReq = req
	return f.lead, f.err
}

type fakeSettingsService struct {
	settings settingsdomain.Settings
	err      error
	lastReq  settingsdomain.UpdateSettingsRequest
}

func (f *fakeSettingsService) Get(ctx context.Context) (settingsdomain.Settings, error) {
	return f.settings, f.err
}

func (f *fakeSettingsService) Update(ctx context.Context, req settingsdomain.UpdateSettingsRequest) (settingsdomain.Settings, error) {
	f.lastReq = req
	return f.settings, f.err
}

type fakePartnerService struct {
	resp    partnerdomain.ListPartnerResponse
	err     error
	lastReq partnerdomain.ListPartnerRequest
}

func (f *fakePartnerService) List(ctx context.Context, req partnerdomain.ListPartnerRequest) (partnerdomain.ListPartnerResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

type fakeAuditService struct {
	resp    auditdomain.ListAuditLogResponse
	err     error
	lastReq auditdomain.ListAuditLogRequest
}

func (f *fakeAuditService) Record(ctx context.Context, entry auditdomain.Entry) error {
	return nil
}

func (f *fakeAuditService) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

type testServer struct {
	router         *gin.Engine
	reconciliation *fakeReconciliation
	invoices       *fakeInvoiceService
	leads          *fakeLeadService
	settings       *fakeSettingsService
	partners       *fakePartnerService
	audit          *fakeAuditService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	translator := i18n.New()
	router := gin.New()
	router.Use(Language(translator))
	router.Use(ErrorHandlingMiddleware(translator))

	ts := &testServer{
		router:         router,
		reconciliation: &fakeReconciliation{},
		invoices:       &fakeInvoiceService{},
		leads:          &fakeLeadService{},
		settings:       &fakeSettingsService{},
		partners:       &fakePartnerService{},
		audit:          &fakeAuditService{},
	}
	NewServer(ServerParams{
		Gin:               router,
		Billing:           config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		Translator:        translator,
		AuditSvc:          ts.audit,
		PartnerSvc:        ts.partners,
		LeadSvc:           ts.leads,
		InvoiceSvc:        ts.invoices,
		SettingsSvc:       ts.settings,
		ReconciliationSvc: ts.reconciliation,
	})
	return ts
}

func (ts *testServer) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp := httptest.NewRecorder()
	ts.router.ServeHTTP(resp, req)
	return resp
}
