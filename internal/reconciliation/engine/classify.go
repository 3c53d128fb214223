// Package engine turns fetched leads and invoices into billing buckets and
// invoice drafts. Every function here is pure and leaves its inputs intact.
package engine

import (
	"strings"
	"time"

	invoicedomain "github.com/smallbiznis/leadbilling/internal/invoice/domain"
	leaddomain "github.com/smallbiznis/leadbilling/internal/lead/domain"
	"github.com/smallbiznis/leadbilling/internal/reconciliation/domain"
)

// RangeFor converts a calendar month into [first 00:00:00.000, last 23:59:59.999] in loc.
func RangeFor(period domain.Period, loc *time.Location) (domain.DateRange, error) {
	if err := period.Validate(); err != nil {
		return domain.DateRange{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(period.Year, time.Month(period.Month), 1, 0, 0, 0, 0, loc)
	return domain.DateRange{
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Millisecond),
	}, nil
}

type FlattenOptions struct {
	// StrictTimestamps drops assignments with neither acceptedAt nor assignedAt
	// instead of counting them as in period.
	StrictTimestamps bool
}

// Flatten emits one item per billable assignment of partnerID whose
// effective timestamp lies in rng, in lead then assignment order.
func Flatten(leads []leaddomain.Lead, partnerID string, rng domain.DateRange, opts FlattenOptions) []domain.AssignmentItem {
	partnerID = strings.TrimSpace(partnerID)
	items := make([]domain.AssignmentItem, 0, len(leads))
	for _, lead := range leads {
		for idx, assignment := range lead.PartnerAssignments {
			if assignment.PartnerID != partnerID || !assignment.Status.Billable() {
				continue
			}
			if at := assignment.EffectiveAt(); at != nil {
				if !rng.Contains(*at) {
					continue
				}
			} else if opts.StrictTimestamps {
				continue
			}

			items = append(items, domain.AssignmentItem{
				LeadID:           lead.ID,
				LeadNumber:       lead.LeadNumber,
				ServiceType:      lead.ServiceType,
				CustomerName:     lead.Customer.Name,
				LeadCreatedAt:    lead.CreatedAt,
				PartnerID:        assignment.PartnerID,
				AssignmentIndex:  idx,
				AssignmentStatus: assignment.Status,
				AssignedAt:       assignment.AssignedAt,
				AcceptedAt:       assignment.AcceptedAt,
				LeadPrice:        assignment.LeadPrice,
			})
		}
	}
	return items
}

// BuildMembershipIndex maps every invoiced lead id to its invoice. When a
// lead appears on more than one invoice the first one listed wins.
func BuildMembershipIndex(invoices []invoicedomain.Invoice) domain.MembershipIndex {
	index := make(domain.MembershipIndex)
	for _, inv := range invoices {
		for _, item := range inv.Items {
			if item.LeadID == "" {
				continue
			}
			if _, seen := index[item.LeadID]; seen {
				continue
			}
			index[item.LeadID] = domain.Membership{
				InvoiceID:     inv.ID,
				InvoiceNumber: inv.InvoiceNumber,
				Status:        inv.Status,
			}
		}
	}
	return index
}

// Classify puts every item in exactly one bucket. Paid wins over a pending
// cancellation request; otherwise cancellation requests are held apart.
func Classify(items []domain.AssignmentItem, index domain.MembershipIndex) domain.Buckets {
	buckets := domain.Buckets{
		Unpaid:   []domain.AssignmentItem{},
		Invoiced: []domain.AssignmentItem{},
		Paid:     []domain.AssignmentItem{},
		Excluded: []domain.AssignmentItem{},
	}
	for _, item := range items {
		membership, invoiced := index[item.LeadID]
		if invoiced {
			item.InvoiceID = membership.InvoiceID
			item.InvoiceNumber = membership.InvoiceNumber
			item.InvoiceStatus = membership.Status
		}

		switch BucketOf(item, index) {
		case domain.BucketPaid:
			buckets.Paid = append(buckets.Paid, item)
		case domain.BucketInvoiced:
			buckets.Invoiced = append(buckets.Invoiced, item)
		case domain.BucketUnpaid:
			buckets.Unpaid = append(buckets.Unpaid, item)
		default:
			buckets.Excluded = append(buckets.Excluded, item)
		}
	}
	return buckets
}

func BucketOf(item domain.AssignmentItem, index domain.MembershipIndex) domain.Bucket {
	membership, invoiced := index[item.LeadID]
	if invoiced && membership.Status == invoicedomain.StatusPaid {
		return domain.BucketPaid
	}
	if item.AssignmentStatus == leaddomain.AssignmentCancellationRequested {
		return domain.BucketExcluded
	}
	if invoiced {
		return domain.BucketInvoiced
	}
	return domain.BucketUnpaid
}
