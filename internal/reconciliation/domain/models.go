// Package domain holds the derived, never persisted, reconciliation view of
// a partner's leads against the invoices of one billing period.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/leadbilling/internal/invoice/domain"
	leaddomain "github.com/smallbiznis/leadbilling/internal/lead/domain"
)

// Period is a calendar month.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 || p.Year <= 0 {
		return ErrInvalidPeriod
	}
	return nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// DateRange is an inclusive instant range.
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

type Bucket string

const (
	BucketUnpaid   Bucket = "unpaid"
	BucketInvoiced Bucket = "invoiced"
	BucketPaid     Bucket = "paid"
	BucketExcluded Bucket = "excluded"
)

// AssignmentItem is one (lead, assignment) pair. The same lead shows up
// once per qualifying assignment.
type AssignmentItem struct {
	LeadID           string                      `json:"lead_id"`
	LeadNumber       string                      `json:"lead_number,omitempty"`
	ServiceType      leaddomain.ServiceType      `json:"service_type"`
	CustomerName     string                      `json:"customer_name,omitempty"`
	LeadCreatedAt    *time.Time                  `json:"lead_created_at,omitempty"`
	PartnerID        string                      `json:"partner_id"`
	AssignmentIndex  int                         `json:"assignment_index"`
	AssignmentStatus leaddomain.AssignmentStatus `json:"assignment_status"`
	AssignedAt       *time.Time                  `json:"assigned_at,omitempty"`
	AcceptedAt       *time.Time                  `json:"accepted_at,omitempty"`
	LeadPrice        *decimal.Decimal            `json:"lead_price,omitempty"`
	InvoiceID        string                      `json:"invoice_id,omitempty"`
	InvoiceNumber    string                      `json:"invoice_number,omitempty"`
	InvoiceStatus    invoicedomain.Status        `json:"invoice_status,omitempty"`
}

// EffectiveDate drives the date filter: acceptedAt, else the lead's creation.
func (i AssignmentItem) EffectiveDate() *time.Time {
	if i.AcceptedAt != nil {
		return i.AcceptedAt
	}
	return i.LeadCreatedAt
}

// Price is the recorded lead price or fallback when none was recorded.
func (i AssignmentItem) Price(fallback decimal.Decimal) decimal.Decimal {
	if i.LeadPrice != nil {
		return *i.LeadPrice
	}
	return fallback
}

// Membership records the invoice a lead was billed on.
type Membership struct {
	InvoiceID     string
	InvoiceNumber string
	Status        invoicedomain.Status
}

// MembershipIndex maps lead id to the first invoice that lists it.
type MembershipIndex map[string]Membership

type Buckets struct {
	Unpaid   []AssignmentItem `json:"unpaid"`
	Invoiced []AssignmentItem `json:"invoiced"`
	Paid     []AssignmentItem `json:"paid"`
	Excluded []AssignmentItem `json:"awaiting_cancellation_decision"`
}

type FilterType string

const (
	FilterAll   FilterType = "all"
	FilterDay   FilterType = "day"
	FilterRange FilterType = "range"
	FilterWeek  FilterType = "week"
	FilterMonth FilterType = "month"
	FilterYear  FilterType = "year"
)

// DateFilter narrows the unpaid and invoiced buckets. Only the fields of the
// active Type are read; Month and Year fall back to Date when zero.
type DateFilter struct {
	Type  FilterType `json:"type"`
	Date  *time.Time `json:"date,omitempty"`
	From  *time.Time `json:"from,omitempty"`
	To    *time.Time `json:"to,omitempty"`
	Month int        `json:"month,omitempty"`
	Year  int        `json:"year,omitempty"`
}

// Rules are the pricing inputs of a draft.
type Rules struct {
	TaxRate           decimal.Decimal
	FallbackLeadPrice decimal.Decimal
}

// PeriodSnapshot is the raw data fetched for one partner period.
type PeriodSnapshot struct {
	PartnerID string
	Period    Period
	Range     DateRange
	Leads     []leaddomain.Lead
	Invoices  []invoicedomain.Invoice
	LoadedAt  time.Time
}

type BucketTotals struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type Totals struct {
	Unpaid   BucketTotals `json:"unpaid"`
	Invoiced BucketTotals `json:"invoiced"`
	Paid     BucketTotals `json:"paid"`
	Excluded BucketTotals `json:"awaiting_cancellation_decision"`
}

type PeriodView struct {
	PartnerID    string     `json:"partner_id"`
	Period       Period     `json:"period"`
	Range        DateRange  `json:"billing_period"`
	Filter       DateFilter `json:"filter"`
	Buckets      Buckets    `json:"buckets"`
	Totals       Totals     `json:"totals"`
	LeadCount    int        `json:"lead_count"`
	InvoiceCount int        `json:"invoice_count"`
	LoadedAt     time.Time  `json:"loaded_at"`
}
