package domain

import (
	"context"
	"time"
)

type ListFilter struct {
	PartnerID   string
	StartDate   *time.Time
	EndDate     *time.Time
	ServiceType string
}

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
	Get(ctx context.Context, id string) (Invoice, error)
	Generate(ctx context.Context, draft Draft) (Invoice, error)
	MarkPaid(ctx context.Context, id string, details PaymentDetails) (Invoice, error)
	MarkUnpaid(ctx context.Context, id string) (Invoice, error)
	Download(ctx context.Context, id, language string) (Document, error)
}
