package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/leadbilling/internal/invoice/domain"
	"github.com/smallbiznis/leadbilling/internal/reconciliation/domain"
)

// BuildDraft prices the selected items and computes
// tax = round(subtotal * rate, 2) and total = subtotal + tax.
func BuildDraft(partnerID, serviceType string, rng domain.DateRange, selected []domain.AssignmentItem, rules domain.Rules) (invoicedomain.Draft, error) {
	if len(selected) == 0 {
		return invoicedomain.Draft{}, domain.ErrEmptySelection
	}
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return invoicedomain.Draft{}, domain.ErrInvalidPartner
	}

	items := make([]invoicedomain.LineItem, 0, len(selected))
	subtotal := decimal.Zero
	for _, item := range selected {
		amount := item.Price(rules.FallbackLeadPrice)
		subtotal = subtotal.Add(amount)
		items = append(items, invoicedomain.LineItem{
			LeadID:      item.LeadID,
			Description: fmt.Sprintf("%s Lead - %s", serviceType, item.LeadID),
			Amount:      amount,
		})
	}

	tax := subtotal.Mul(rules.TaxRate).Round(2)
	return invoicedomain.Draft{
		PartnerID:   partnerID,
		ServiceType: serviceType,
		BillingPeriod: invoicedomain.BillingPeriod{
			StartDate: rng.Start,
			EndDate:   rng.End,
		},
		Items:    items,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}, nil
}

// Totals sums count and amount per bucket using fallback for unpriced items.
func Totals(buckets domain.Buckets, fallback decimal.Decimal) domain.Totals {
	return domain.Totals{
		Unpaid:   sum(buckets.Unpaid, fallback),
		Invoiced: sum(buckets.Invoiced, fallback),
		Paid:     sum(buckets.Paid, fallback),
		Excluded: sum(buckets.Excluded, fallback),
	}
}

func sum(items []domain.AssignmentItem, fallback decimal.Decimal) domain.BucketTotals {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price(fallback))
	}
	return domain.BucketTotals{Count: len(items), Amount: total}
}
