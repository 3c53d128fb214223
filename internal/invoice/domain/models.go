// Package domain describes invoices as the external invoice store keeps them.
package domain

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

type BillingPeriod struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type LineItem struct {
	LeadID      string          `json:"lead_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type Invoice struct {
	ID               string          `json:"id"`
	InvoiceNumber    string          `json:"invoice_number"`
	PartnerID        string          `json:"partner_id"`
	PartnerName      string          `json:"partner_name,omitempty"`
	ServiceType      string          `json:"service_type"`
	BillingPeriod    BillingPeriod   `json:"billing_period"`
	Items            []LineItem      `json:"items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	Status           Status          `json:"status"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	CreatedAt        *time.Time      `json:"created_at,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
}

// Draft is an invoice payload that has not been submitted yet.
type Draft struct {
	PartnerID     string          `json:"partner_id"`
	ServiceType   string          `json:"service_type"`
	BillingPeriod BillingPeriod   `json:"billing_period"`
	Items         []LineItem      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
}

// LeadIDs lists the lead id of every item in order.
func (d Draft) LeadIDs() []string {
	ids := make([]string, 0, len(d.Items))
	for _, item := range d.Items {
		ids = append(ids, item.LeadID)
	}
	return ids
}

type PaymentDetails struct {
	Method    string
	Reference string
}

// Document is a rendered invoice. Body must be closed by the caller.
type Document struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	Filename      string
}
