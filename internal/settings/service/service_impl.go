package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/leadbilling/internal/audit/domain"
	"github.com/smallbiznis/leadbilling/internal/cache"
	"github.com/smallbiznis/leadbilling/internal/clock"
	"github.com/smallbiznis/leadbilling/internal/config"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
	"github.com/smallbiznis/leadbilling/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const cacheKey = "settings"

var maxTaxRate = decimal.NewFromInt(100)

type Params struct {
	fx.In

	Log      *zap.Logger
	Repo     domain.Repository
	Billing  *config.BillingConfigHolder
	Clock    clock.Clock         `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	repo     domain.Repository
	billing  *config.BillingConfigHolder
	cache    cache.Cache[string, domain.Settings]
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	now := clock.SystemClock{}.Now
	if p.Clock != nil {
		now = p.Clock.Now
	}
	return &Service{
		log:      p.Log.Named("settings.service"),
		repo:     p.Repo,
		billing:  p.Billing,
		cache:    cache.NewTTLCacheWithClock[string, domain.Settings](now),
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Settings, error) {
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached, nil
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		if stale, ok := s.cache.GetStale(cacheKey); ok && errors.Is(err, leadapi.ErrUnavailable) {
			s.log.Warn("serving last known settings, store unavailable", zap.Error(err))
			return stale, nil
		}
		return domain.Settings{}, err
	}
	s.store(settings)
	return settings, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateSettingsRequest) (domain.Settings, error) {
	if req.TaxRate == nil && req.Currency == nil && req.BasicLeadPrice == nil && req.ExclusiveLeadPrice == nil {
		return domain.Settings{}, domain.ErrEmptyUpdate
	}

	current, err := s.repo.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	next := current
	changed := []string{}
	if req.TaxRate != nil {
		if req.TaxRate.IsNegative() || req.TaxRate.GreaterThanOrEqual(maxTaxRate) {
			return domain.Settings{}, domain.ErrInvalidTaxRate
		}
		next.TaxRate = *req.TaxRate
		changed = append(changed, "tax_rate")
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if len(currency) != 3 {
			return domain.Settings{}, domain.ErrInvalidCurrency
		}
		next.Currency = currency
		changed = append(changed, "currency")
	}
	if req.BasicLeadPrice != nil {
		if req.BasicLeadPrice.IsNegative() {
			return domain.Settings{}, domain.ErrInvalidPrice
		}
		next.BasicLeadPrice = *req.BasicLeadPrice
		changed = append(changed, "basic_lead_price")
	}
	if req.ExclusiveLeadPrice != nil {
		if req.ExclusiveLeadPrice.IsNegative() {
			return domain.Settings{}, domain.ErrInvalidPrice
		}
		next.ExclusiveLeadPrice = *req.ExclusiveLeadPrice
		changed = append(changed, "exclusive_lead_price")
	}

	s.cache.Delete(cacheKey)
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return domain.Settings{}, err
	}
	s.store(updated)

	if s.auditSvc != nil {
		if err := s.auditSvc.Record(ctx, auditdomain.Entry{
			Action:     auditdomain.ActionSettingsUpdated,
			TargetType: auditdomain.TargetSettings,
			TargetID:   cacheKey,
			Metadata: map[string]any{
				"fields":   changed,
				"tax_rate": updated.TaxRate.String(),
				"currency": updated.Currency,
			},
		}); err != nil {
			s.log.Warn("audit settings update failed", zap.Error(err))
		}
	}

	s.log.Info("settings updated", zap.Strings("fields", changed))
	return updated, nil
}

func (s *Service) store(settings domain.Settings) {
	ttl := s.billing.Get().SettingsCacheTTL()
	if ttl <= 0 {
		return
	}
	s.cache.Set(cacheKey, settings, ttl)
}
