package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	invoicedomain "github.com/smallbiznis/leadbilling/internal/invoice/domain"
)

type GenerateRequest struct {
	PartnerID   string
	Period      Period
	ServiceType string
	LeadIDs     []string
}

type Service interface {
	LoadPeriod(ctx context.Context, partnerID string, period Period) (PeriodSnapshot, error)
	View(ctx context.Context, partnerID string, period Period, filter DateFilter) (PeriodView, error)
	GenerateInvoice(ctx context.Context, req GenerateRequest) (invoicedomain.Invoice, error)
}

var (
	ErrInvalidPeriod         = errors.New("invalid_billing_period")
	ErrInvalidPartner        = errors.New("invalid_partner")
	ErrInvalidFilter         = errors.New("invalid_date_filter")
	ErrInvalidServiceType    = errors.New("invalid_service_type")
	ErrEmptySelection        = errors.New("empty_selection")
	ErrLeadNotBillable       = errors.New("lead_not_billable")
	ErrGenerationInProgress  = errors.New("invoice_generation_in_progress")
	ErrGenerationRateLimited = errors.New("invoice_generation_rate_limited")
)

// NotBillableError lists selected leads that are not in the unpaid bucket.
type NotBillableError struct {
	LeadIDs []string
}

func (e *NotBillableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrLeadNotBillable, strings.Join(e.LeadIDs, ", "))
}

func (e *NotBillableError) Is(target error) bool {
	return target == ErrLeadNotBillable
}

// RateLimitedError carries the wait before the partner may generate again.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return ErrGenerationRateLimited.Error()
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrGenerationRateLimited
}
