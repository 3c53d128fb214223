package domain

import (
	"context"
	"errors"
	"time"
)

type ListInvoiceRequest struct {
	PartnerID   string
	StartDate   *time.Time
	EndDate     *time.Time
	ServiceType string
}

type Service interface {
	List(ctx context.Context, req ListInvoiceRequest) ([]Invoice, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	Create(ctx context.Context, draft Draft) (Invoice, error)
	MarkPaid(ctx context.Context, id string, details PaymentDetails) (Invoice, error)
	MarkUnpaid(ctx context.Context, id string) (Invoice, error)
	Download(ctx context.Context, id, language string) (Document, error)
}

var (
	ErrInvalidID       = errors.New("invalid_invoice_id")
	ErrInvalidPartner  = errors.New("invalid_partner")
	ErrInvalidRange    = errors.New("invalid_date_range")
	ErrInvalidDraft    = errors.New("invalid_invoice_draft")
	ErrInvalidLanguage = errors.New("invalid_language")
	ErrNotFound        = errors.New("invoice_not_found")
)
