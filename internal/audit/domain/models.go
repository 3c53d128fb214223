package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	ActionInvoiceGenerated     = "invoice.generated"
	ActionInvoiceMarkedPaid    = "invoice.marked_paid"
	ActionInvoiceMarkedUnpaid  = "invoice.marked_unpaid"
	ActionCancellationRejected = "lead.cancellation_rejected"
	ActionSettingsUpdated      = "settings.updated"
)

var knownActions = map[string]struct{}{
	ActionInvoiceGenerated:     {},
	ActionInvoiceMarkedPaid:    {},
	ActionInvoiceMarkedUnpaid:  {},
	ActionCancellationRejected: {},
	ActionSettingsUpdated:      {},
}

func KnownAction(action string) bool {
	_, ok := knownActions[action]
	return ok
}

const (
	TargetInvoice  = "invoice"
	TargetLead     = "lead"
	TargetSettings = "settings"
)

type AuditLog struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Action        string            `gorm:"not null" json:"action"`
	TargetType    string            `gorm:"not null" json:"target_type"`
	TargetID      string            `gorm:"not null" json:"target_id"`
	PartnerID     *string           `json:"partner_id,omitempty"`
	RequestID     *string           `json:"request_id,omitempty"`
	CorrelationID *string           `json:"correlation_id,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"not null" json:"metadata,omitempty"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Entry is what callers hand to Record.
type Entry struct {
	Action     string
	TargetType string
	TargetID   string
	PartnerID  string
	Metadata   map[string]any
}
