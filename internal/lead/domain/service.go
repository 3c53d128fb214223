package domain

import (
	"context"
	"errors"
)

type RejectCancellationRequest struct {
	LeadID    string
	PartnerID string
	Reason    string
}

type Service interface {
	ListByPartner(ctx context.Context, partnerID string) ([]Lead, error)
	RejectCancellation(ctx context.Context, req RejectCancellationRequest) (Lead, error)
}

var (
	ErrInvalidLead    = errors.New("invalid_lead")
	ErrInvalidPartner = errors.New("invalid_partner")
	ErrNotFound       = errors.New("lead_not_found")
	ErrPartnerUnknown = errors.New("partner_not_found")
)
