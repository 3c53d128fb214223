package service

import (
	"context"
	"fmt"
	"strings"

	auditdomain "github.com/smallbiznis/leadbilling/internal/audit/domain"
	"github.com/smallbiznis/leadbilling/internal/lead/domain"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("lead.service"),
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

// ListByPartner returns every lead ever assigned to the partner. The store
// applies no status or date filter.
func (s *Service) ListByPartner(ctx context.Context, partnerID string) ([]domain.Lead, error) {
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return nil, domain.ErrInvalidPartner
	}

	leads, err := s.repo.ListByPartner(ctx, partnerID)
	if err != nil {
		if leadapi.IsNotFound(err) {
			return nil, domain.ErrPartnerUnknown
		}
		return nil, err
	}
	return leads, nil
}

func (s *Service) RejectCancellation(ctx context.Context, req domain.RejectCancellationRequest) (domain.Lead, error) {
	leadID := strings.TrimSpace(req.LeadID)
	if leadID == "" {
		return domain.Lead{}, domain.ErrInvalidLead
	}
	partnerID := strings.TrimSpace(req.PartnerID)
	if partnerID == "" {
		return domain.Lead{}, domain.ErrInvalidPartner
	}
	reason := strings.TrimSpace(req.Reason)

	lead, err := s.repo.RejectCancellation(ctx, leadID, partnerID, reason)
	if err != nil {
		if leadapi.IsNotFound(err) {
			return domain.Lead{}, fmt.Errorf("%w: %w", domain.ErrNotFound, err)
		}
		return domain.Lead{}, err
	}

	if s.auditSvc != nil {
		metadata := map[string]any{}
		if reason != "" {
			metadata["reason"] = reason
		}
		if err := s.auditSvc.Record(ctx, auditdomain.Entry{
			Action:     auditdomain.ActionCancellationRejected,
			TargetType: auditdomain.TargetLead,
			TargetID:   leadID,
			PartnerID:  partnerID,
			Metadata:   metadata,
		}); err != nil {
			s.log.Warn("audit cancellation rejection failed", zap.String("lead_id", leadID), zap.Error(err))
		}
	}

	s.log.Info("lead cancellation rejected",
		zap.String("lead_id", leadID),
		zap.String("partner_id", partnerID),
	)
	return lead, nil
}
