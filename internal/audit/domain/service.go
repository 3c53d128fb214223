package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/leadbilling/pkg/db/pagination"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	// Action is a single action or a comma separated list.
	Action     string
	TargetType string
	TargetID   string
	PartnerID  string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidTarget    = errors.New("invalid_target")
)
