package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/leadbilling/internal/audit/domain"
	"github.com/smallbiznis/leadbilling/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/leadbilling/internal/observability/metrics"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultLanguage = "en"

var supportedLanguages = map[string]struct{}{
	"en": {},
	"de": {},
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Repo     domain.Repository
	AuditSvc auditdomain.Service               `optional:"true"`
	Metrics  *obsmetrics.ReconciliationMetrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	repo     domain.Repository
	auditSvc auditdomain.Service
	metrics  *obsmetrics.ReconciliationMetrics
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("invoice.service"),
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) ([]domain.Invoice, error) {
	if req.StartDate != nil && req.EndDate != nil && req.StartDate.After(*req.EndDate) {
		return nil, domain.ErrInvalidRange
	}
	return s.repo.List(ctx, domain.ListFilter{
		PartnerID:   strings.TrimSpace(req.PartnerID),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		ServiceType: strings.TrimSpace(req.ServiceType),
	})
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Invoice{}, domain.ErrInvalidID
	}
	invoice, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Invoice{}, mapNotFound(err)
	}
	return invoice, nil
}

// Create submits the draft in a single call. Failures are returned as is so
// the store's message reaches the operator.
func (s *Service) Create(ctx context.Context, draft domain.Draft) (domain.Invoice, error) {
	if strings.TrimSpace(draft.PartnerID) == "" {
		return domain.Invoice{}, domain.ErrInvalidPartner
	}
	if len(draft.Items) == 0 || draft.BillingPeriod.EndDate.Before(draft.BillingPeriod.StartDate) {
		return domain.Invoice{}, domain.ErrInvalidDraft
	}

	invoice, err := s.repo.Generate(ctx, draft)
	if err != nil {
		return domain.Invoice{}, err
	}

	s.record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionInvoiceGenerated,
		TargetType: auditdomain.TargetInvoice,
		TargetID:   invoice.ID,
		PartnerID:  draft.PartnerID,
		Metadata: map[string]any{
			"invoice_number": invoice.InvoiceNumber,
			"service_type":   draft.ServiceType,
			"lead_ids":       draft.LeadIDs(),
			"subtotal":       draft.Subtotal.StringFixed(2),
			"tax":            draft.Tax.StringFixed(2),
			"total":          draft.Total.StringFixed(2),
			"period_start":   leadapi.FormatTime(draft.BillingPeriod.StartDate),
			"period_end":     leadapi.FormatTime(draft.BillingPeriod.EndDate),
		},
	})

	s.log.Info("invoice generated",
		zap.String("invoice_id", invoice.ID),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("partner_id", draft.PartnerID),
		zap.String("total", draft.Total.StringFixed(2)),
	)
	return invoice, nil
}

// MarkPaid does not check the current status; the store decides.
func (s *Service) MarkPaid(ctx context.Context, id string, details domain.PaymentDetails) (domain.Invoice, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Invoice{}, domain.ErrInvalidID
	}
	details.Method = strings.TrimSpace(details.Method)
	details.Reference = strings.TrimSpace(details.Reference)

	invoice, err := s.repo.MarkPaid(ctx, id, details)
	s.metrics.IncTransition(obsmetrics.TransitionMarkPaid, err)
	if err != nil {
		return domain.Invoice{}, mapNotFound(err)
	}

	metadata := map[string]any{}
	if details.Method != "" {
		metadata["payment_method"] = details.Method
	}
	if details.Reference != "" {
		metadata["payment_reference"] = details.Reference
	}
	s.record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionInvoiceMarkedPaid,
		TargetType: auditdomain.TargetInvoice,
		TargetID:   id,
		PartnerID:  invoice.PartnerID,
		Metadata:   metadata,
	})
	return invoice, nil
}

func (s *Service) MarkUnpaid(ctx context.Context, id string) (domain.Invoice, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Invoice{}, domain.ErrInvalidID
	}

	invoice, err := s.repo.MarkUnpaid(ctx, id)
	s.metrics.IncTransition(obsmetrics.TransitionMarkUnpaid, err)
	if err != nil {
		return domain.Invoice{}, mapNotFound(err)
	}

	s.record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionInvoiceMarkedUnpaid,
		TargetType: auditdomain.TargetInvoice,
		TargetID:   id,
		PartnerID:  invoice.PartnerID,
	})
	return invoice, nil
}

func (s *Service) Download(ctx context.Context, id, language string) (domain.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Document{}, domain.ErrInvalidID
	}
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = defaultLanguage
	}
	if _, ok := supportedLanguages[language]; !ok {
		return domain.Document{}, domain.ErrInvalidLanguage
	}

	doc, err := s.repo.Download(ctx, id, language)
	if err != nil {
		return domain.Document{}, mapNotFound(err)
	}
	if doc.ContentType == "" {
		doc.ContentType = "application/pdf"
	}
	if doc.Filename == "" {
		doc.Filename = s.filename(ctx, id)
	}
	return doc, nil
}

// filename names the PDF after the invoice number, falling back to the id.
func (s *Service) filename(ctx context.Context, id string) string {
	name := id
	if invoice, err := s.repo.Get(ctx, id); err == nil && invoice.InvoiceNumber != "" {
		name = invoice.InvoiceNumber
	} else if err != nil {
		s.log.Debug("invoice number lookup failed", zap.String("invoice_id", id), zap.Error(err))
	}
	return "invoice-" + slug.Make(name) + ".pdf"
}

func (s *Service) record(ctx context.Context, entry auditdomain.Entry) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(ctx, entry); err != nil {
		s.log.Warn("audit invoice action failed",
			zap.String("action", entry.Action),
			zap.String("invoice_id", entry.TargetID),
			zap.Error(err),
		)
	}
}

// mapNotFound keeps the store error wrapped so its message survives.
func mapNotFound(err error) error {
	if leadapi.IsNotFound(err) {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return err
}
