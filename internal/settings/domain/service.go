package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// UpdateSettingsRequest carries a partial update; nil fields keep their value.
type UpdateSettingsRequest struct {
	TaxRate            *decimal.Decimal
	Currency           *string
	BasicLeadPrice     *decimal.Decimal
	ExclusiveLeadPrice *decimal.Decimal
}

type Service interface {
	Get(ctx context.Context) (Settings, error)
	Update(ctx context.Context, req UpdateSettingsRequest) (Settings, error)
}

var (
	ErrInvalidTaxRate  = errors.New("invalid_tax_rate")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrInvalidPrice    = errors.New("invalid_lead_price")
	ErrEmptyUpdate     = errors.New("empty_settings_update")
)
