package domain

import "context"

type ListFilter struct {
	Page        int
	Limit       int
	ServiceType string
	Search      string
	Month       int
	Year        int
}

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Partner, PageInfo, error)
}
