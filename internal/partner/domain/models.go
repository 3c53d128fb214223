package domain

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusRejected  Status = "rejected"
)

// Billable reports whether partners in this status take part in billing periods.
func (s Status) Billable() bool {
	return s == StatusActive || s == StatusSuspended
}

type Type string

const (
	TypeBasic     Type = "basic"
	TypeExclusive Type = "exclusive"
)

type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Partner struct {
	ID           string     `json:"id"`
	CompanyName  string     `json:"company_name"`
	Status       Status     `json:"status"`
	PartnerType  Type       `json:"partner_type"`
	ServiceTypes []string   `json:"service_types,omitempty"`
	Contact      Contact    `json:"contact"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

type PageInfo struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
