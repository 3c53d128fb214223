package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leadbilling/internal/clock"
	"github.com/smallbiznis/leadbilling/internal/config"
	invoicedomain "github.com/smallbiznis/leadbilling/internal/invoice/domain"
	leaddomain "github.com/smallbiznis/leadbilling/internal/lead/domain"
	obsmetrics "github.com/smallbiznis/leadbilling/internal/observability/metrics"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
	"github.com/smallbiznis/leadbilling/internal/ratelimit"
	"github.com/smallbiznis/leadbilling/internal/reconciliation/domain"
	"github.com/smallbiznis/leadbilling/internal/reconciliation/engine"
	settingsdomain "github.com/smallbiznis/leadbilling/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Billing     *config.BillingConfigHolder
	LeadSvc     leaddomain.Service
	InvoiceSvc  invoicedomain.Service
	SettingsSvc settingsdomain.Service            `optional:"true"`
	Guard       *ratelimit.InvoiceGenerationGuard `optional:"true"`
	Metrics     *obsmetrics.ReconciliationMetrics `optional:"true"`
	Clock       clock.Clock                       `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	billing     *config.BillingConfigHolder
	leadSvc     leaddomain.Service
	invoiceSvc  invoicedomain.Service
	settingsSvc settingsdomain.Service
	guard       *ratelimit.InvoiceGenerationGuard
	metrics     *obsmetrics.ReconciliationMetrics
	clock       clock.Clock

	loads singleflight.Group
}

func New(p Params) domain.Service {
	svcClock := p.Clock
	if svcClock == nil {
		svcClock = clock.SystemClock{}
	}
	return &Service{
		log:         p.Log.Named("reconciliation.service"),
		billing:     p.Billing,
		leadSvc:     p.LeadSvc,
		invoiceSvc:  p.InvoiceSvc,
		settingsSvc: p.SettingsSvc,
		guard:       p.Guard,
		metrics:     p.Metrics,
		clock:       svcClock,
	}
}

// LoadPeriod fetches the partner's leads and the period's invoices. Identical
// loads already in flight for the same caller are shared.
func (s *Service) LoadPeriod(ctx context.Context, partnerID string, period domain.Period) (domain.PeriodSnapshot, error) {
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return domain.PeriodSnapshot{}, domain.ErrInvalidPartner
	}
	rng, err := engine.RangeFor(period, s.billing.Get().Location())
	if err != nil {
		return domain.PeriodSnapshot{}, err
	}

	key := strings.Join([]string{partnerID, period.String(), leadapi.CallerKey(ctx)}, "|")
	start := time.Now()
	ch := s.loads.DoChan(key, func() (any, error) {
		// Detached so one caller giving up does not fail the others.
		return s.fetch(context.WithoutCancel(ctx), partnerID, period, rng)
	})

	select {
	case <-ctx.Done():
		return domain.PeriodSnapshot{}, ctx.Err()
	case res := <-ch:
		s.metrics.ObservePeriodLoad(time.Since(start), res.Err, res.Shared)
		if res.Err != nil {
			return domain.PeriodSnapshot{}, res.Err
		}
		return res.Val.(domain.PeriodSnapshot), nil
	}
}

func (s *Service) fetch(ctx context.Context, partnerID string, period domain.Period, rng domain.DateRange) (domain.PeriodSnapshot, error) {
	var (
		leads    []leaddomain.Lead
		invoices []invoicedomain.Invoice
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leads, err = s.leadSvc.ListByPartner(gctx, partnerID)
		return err
	})
	g.Go(func() error {
		var err error
		invoices, err = s.invoiceSvc.List(gctx, invoicedomain.ListInvoiceRequest{
			PartnerID: partnerID,
			StartDate: &rng.Start,
			EndDate:   &rng.End,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Warn("partner period load failed",
			zap.String("partner_id", partnerID),
			zap.String("period", period.String()),
			zap.Error(err),
		)
		return domain.PeriodSnapshot{}, err
	}

	return domain.PeriodSnapshot{
		PartnerID: partnerID,
		Period:    period,
		Range:     rng,
		Leads:     leads,
		Invoices:  invoices,
		LoadedAt:  s.clock.Now(),
	}, nil
}

func (s *Service) View(ctx context.Context, partnerID string, period domain.Period, filter domain.DateFilter) (domain.PeriodView, error) {
	cfg := s.billing.Get()
	loc := cfg.Location()
	if filter.Type == "" {
		filter.Type = domain.FilterAll
	}
	if _, _, err := engine.FilterWindow(filter, loc); err != nil {
		return domain.PeriodView{}, err
	}

	snapshot, err := s.LoadPeriod(ctx, partnerID, period)
	if err != nil {
		return domain.PeriodView{}, err
	}

	buckets := s.classify(snapshot, cfg)
	filtered, err := engine.FilterBuckets(buckets, filter, loc)
	if err != nil {
		return domain.PeriodView{}, err
	}

	return domain.PeriodView{
		PartnerID:    snapshot.PartnerID,
		Period:       snapshot.Period,
		Range:        snapshot.Range,
		Filter:       filter,
		Buckets:      filtered,
		Totals:       engine.Totals(filtered, decimal.NewFromFloat(cfg.FallbackLeadPrice)),
		LeadCount:    len(snapshot.Leads),
		InvoiceCount: len(snapshot.Invoices),
		LoadedAt:     snapshot.LoadedAt,
	}, nil
}

func (s *Service) classify(snapshot domain.PeriodSnapshot, cfg config.BillingConfig) domain.Buckets {
	items := engine.Flatten(snapshot.Leads, snapshot.PartnerID, snapshot.Range, engine.FlattenOptions{
		StrictTimestamps: cfg.StrictTimestamps,
	})
	buckets := engine.Classify(items, engine.BuildMembershipIndex(snapshot.Invoices))

	s.metrics.AddClassified(obsmetrics.BucketUnpaid, len(buckets.Unpaid))
	s.metrics.AddClassified(obsmetrics.BucketInvoiced, len(buckets.Invoiced))
	s.metrics.AddClassified(obsmetrics.BucketPaid, len(buckets.Paid))
	s.metrics.AddClassified(obsmetrics.BucketExcluded, len(buckets.Excluded))
	return buckets
}

// GenerateInvoice bills every current unpaid row of the selected leads in a
// single store call. Nothing is retried.
func (s *Service) GenerateInvoice(ctx context.Context, req domain.GenerateRequest) (invoicedomain.Invoice, error) {
	partnerID := strings.TrimSpace(req.PartnerID)
	if partnerID == "" {
		return invoicedomain.Invoice{}, domain.ErrInvalidPartner
	}
	if err := req.Period.Validate(); err != nil {
		return invoicedomain.Invoice{}, err
	}
	serviceType := strings.TrimSpace(req.ServiceType)
	if serviceType != "" && !leaddomain.ServiceType(serviceType).Valid() {
		return invoicedomain.Invoice{}, domain.ErrInvalidServiceType
	}
	leadIDs := normalizeLeadIDs(req.LeadIDs)
	if len(leadIDs) == 0 {
		s.metrics.IncGeneration(obsmetrics.GenerationResultEmptySelection)
		return invoicedomain.Invoice{}, domain.ErrEmptySelection
	}

	limit, err := s.guard.Allow(ctx, partnerID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if !limit.Allowed {
		s.metrics.IncGeneration(obsmetrics.GenerationResultRateLimited)
		return invoicedomain.Invoice{}, &domain.RateLimitedError{RetryAfter: limit.RetryAfter}
	}
	release, acquired := s.guard.Acquire(ctx, partnerID, req.Period.String())
	if !acquired {
		s.metrics.IncGeneration(obsmetrics.GenerationResultLocked)
		return invoicedomain.Invoice{}, domain.ErrGenerationInProgress
	}
	defer release()

	cfg := s.billing.Get()
	rng, err := engine.RangeFor(req.Period, cfg.Location())
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	// Always a fresh read so a just-created invoice is seen.
	snapshot, err := s.fetch(ctx, partnerID, req.Period, rng)
	if err != nil {
		s.metrics.IncGeneration(obsmetrics.GenerationResultLoadError)
		return invoicedomain.Invoice{}, err
	}

	buckets := s.classify(snapshot, cfg)
	selected, missing := selectUnpaid(buckets.Unpaid, leadIDs)
	if len(missing) > 0 {
		s.metrics.IncGeneration(obsmetrics.GenerationResultNotBillable)
		return invoicedomain.Invoice{}, &domain.NotBillableError{LeadIDs: missing}
	}
	if serviceType == "" {
		serviceType = string(selected[0].ServiceType)
	}

	rules := domain.Rules{
		TaxRate:           decimal.NewFromFloat(cfg.TaxRate),
		FallbackLeadPrice: decimal.NewFromFloat(cfg.FallbackLeadPrice),
	}
	draft, err := engine.BuildDraft(partnerID, serviceType, rng, selected, rules)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	s.warnOnTaxMismatch(ctx, rules.TaxRate)

	created, err := s.invoiceSvc.Create(ctx, draft)
	if err != nil {
		s.metrics.IncGeneration(obsmetrics.GenerationResultStoreError)
		s.log.Warn("invoice generation rejected",
			zap.String("partner_id", partnerID),
			zap.String("period", req.Period.String()),
			zap.Int("items", len(draft.Items)),
			zap.Error(err),
		)
		return invoicedomain.Invoice{}, err
	}

	s.metrics.IncGeneration(obsmetrics.GenerationResultCreated)
	s.metrics.AddGeneratedAmount(draft.Total.InexactFloat64())
	s.log.Info("invoice generated",
		zap.String("partner_id", partnerID),
		zap.String("period", req.Period.String()),
		zap.String("invoice_id", created.ID),
		zap.String("total", draft.Total.StringFixed(2)),
	)
	return created, nil
}

// warnOnTaxMismatch flags a settings tax rate that differs from the one used
// for generation. The generation rate is kept.
func (s *Service) warnOnTaxMismatch(ctx context.Context, rate decimal.Decimal) {
	if s.settingsSvc == nil {
		return
	}
	settings, err := s.settingsSvc.Get(ctx)
	if err != nil {
		s.log.Debug("settings unavailable for tax check", zap.Error(err))
		return
	}
	if !settings.TaxFraction().Equal(rate) {
		s.log.Warn("settings tax rate differs from invoice generation tax rate",
			zap.String("settings_tax_rate", settings.TaxFraction().String()),
			zap.String("generation_tax_rate", rate.String()),
		)
	}
}

func normalizeLeadIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// selectUnpaid returns every unpaid row for the given lead ids, in bucket
// order, and the ids that have none.
func selectUnpaid(unpaid []domain.AssignmentItem, leadIDs []string) ([]domain.AssignmentItem, []string) {
	wanted := make(map[string]bool, len(leadIDs))
	for _, id := range leadIDs {
		wanted[id] = false
	}

	selected := make([]domain.AssignmentItem, 0, len(leadIDs))
	for _, item := range unpaid {
		if _, ok := wanted[item.LeadID]; !ok {
			continue
		}
		wanted[item.LeadID] = true
		selected = append(selected, item)
	}

	var missing []string
	for _, id := range leadIDs {
		if !wanted[id] {
			missing = append(missing, id)
		}
	}
	return selected, missing
}
