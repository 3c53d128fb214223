package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/leadbilling/internal/partner/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxPageSize = 100

var serviceTypes = map[string]struct{}{
	"moving":   {},
	"cleaning": {},
	"security": {},
}

type Params struct {
	fx.In

	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		log:  p.Log.Named("partner.service"),
		repo: p.Repo,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListPartnerRequest) (domain.ListPartnerResponse, error) {
	if req.Page < 0 || req.Limit < 0 || req.Limit > maxPageSize {
		return domain.ListPartnerResponse{}, domain.ErrInvalidPage
	}
	if req.Month < 0 || req.Month > 12 || req.Year < 0 || (req.Month > 0 && req.Year == 0) {
		return domain.ListPartnerResponse{}, domain.ErrInvalidPeriod
	}

	serviceType := strings.ToLower(strings.TrimSpace(req.ServiceType))
	if serviceType != "" {
		if _, ok := serviceTypes[serviceType]; !ok {
			return domain.ListPartnerResponse{}, domain.ErrInvalidServiceType
		}
	}

	partners, page, err := s.repo.List(ctx, domain.ListFilter{
		Page:        req.Page,
		Limit:       req.Limit,
		ServiceType: serviceType,
		Search:      strings.TrimSpace(req.Search),
		Month:       req.Month,
		Year:        req.Year,
	})
	if err != nil {
		return domain.ListPartnerResponse{}, err
	}

	if req.BillableOnly {
		kept := partners[:0]
		for _, partner := range partners {
			if partner.Status.Billable() {
				kept = append(kept, partner)
			}
		}
		s.log.Debug("filtered non billable partners",
			zap.Int("fetched", len(partners)),
			zap.Int("kept", len(kept)),
		)
		partners = kept
	}

	return domain.ListPartnerResponse{Partners: partners, Pagination: page}, nil
}
