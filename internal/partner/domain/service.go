package domain

import (
	"context"
	"errors"
)

type ListPartnerRequest struct {
	Page         int
	Limit        int
	ServiceType  string
	Search       string
	Month        int
	Year         int
	BillableOnly bool
}

type ListPartnerResponse struct {
	Partners   []Partner `json:"partners"`
	Pagination PageInfo  `json:"pagination"`
}

type Service interface {
	List(context.Context, ListPartnerRequest) (ListPartnerResponse, error)
}

var (
	ErrInvalidPage        = errors.New("invalid_page")
	ErrInvalidServiceType = errors.New("invalid_service_type")
	ErrInvalidPeriod      = errors.New("invalid_period")
	ErrNotFound           = errors.New("partner_not_found")
)
