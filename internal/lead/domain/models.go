package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ServiceType string

const (
	ServiceMoving   ServiceType = "moving"
	ServiceCleaning ServiceType = "cleaning"
	ServiceSecurity ServiceType = "security"
)

func (s ServiceType) Valid() bool {
	switch s {
	case ServiceMoving, ServiceCleaning, ServiceSecurity:
		return true
	}
	return false
}

type AssignmentStatus string

const (
	AssignmentPending               AssignmentStatus = "pending"
	AssignmentAccepted              AssignmentStatus = "accepted"
	AssignmentCancellationRequested AssignmentStatus = "cancellationRequested"
	AssignmentCancelled             AssignmentStatus = "cancelled"
	AssignmentRejected              AssignmentStatus = "rejected"
)

// Billable reports whether an assignment in this status can be invoiced.
func (s AssignmentStatus) Billable() bool {
	return s == AssignmentAccepted || s == AssignmentCancellationRequested
}

// PartnerAssignment is one assignment of a lead to a partner. A lead may
// carry several for the same partner after reassignment.
type PartnerAssignment struct {
	PartnerID          string           `json:"partner_id"`
	PartnerName        string           `json:"partner_name,omitempty"`
	Status             AssignmentStatus `json:"status"`
	AssignedAt         *time.Time       `json:"assigned_at,omitempty"`
	AcceptedAt         *time.Time       `json:"accepted_at,omitempty"`
	LeadPrice          *decimal.Decimal `json:"lead_price,omitempty"`
	CancellationReason string           `json:"cancellation_reason,omitempty"`
}

// EffectiveAt is the accepted timestamp, falling back to assigned.
func (a PartnerAssignment) EffectiveAt() *time.Time {
	if a.AcceptedAt != nil {
		return a.AcceptedAt
	}
	return a.AssignedAt
}

type Customer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Lead struct {
	ID                 string              `json:"id"`
	LeadNumber         string              `json:"lead_number,omitempty"`
	ServiceType        ServiceType         `json:"service_type"`
	Customer           Customer            `json:"customer"`
	FormData           map[string]any      `json:"form_data,omitempty"`
	CreatedAt          *time.Time          `json:"created_at,omitempty"`
	PartnerAssignments []PartnerAssignment `json:"partner_assignments"`
}
