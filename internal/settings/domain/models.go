package domain

import "github.com/shopspring/decimal"

// Settings is the pricing configuration kept by the settings store.
// TaxRate is a percentage (19 means 19%).
type Settings struct {
	TaxRate            decimal.Decimal `json:"tax_rate"`
	Currency           string          `json:"currency"`
	BasicLeadPrice     decimal.Decimal `json:"basic_lead_price"`
	ExclusiveLeadPrice decimal.Decimal `json:"exclusive_lead_price"`
}

// TaxFraction converts TaxRate to a multiplier (0.19 for 19%).
func (s Settings) TaxFraction() decimal.Decimal {
	return s.TaxRate.Div(decimal.NewFromInt(100))
}
