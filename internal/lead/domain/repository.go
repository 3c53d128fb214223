package domain

import "context"

type Repository interface {
	ListByPartner(ctx context.Context, partnerID string) ([]Lead, error)
	RejectCancellation(ctx context.Context, leadID, partnerID, reason string) (Lead, error)
}
