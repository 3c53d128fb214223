package repository

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/smallbiznis/leadbilling/internal/partner/domain"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
)

type repo struct {
	client *leadapi.Client
}

func Provide(client *leadapi.Client) domain.Repository {
	return &repo{client: client}
}

type partnerDTO struct {
	leadapi.ID
	CompanyName   string       `json:"companyName"`
	Status        string       `json:"status"`
	PartnerType   string       `json:"partnerType"`
	ServiceTypes  []string     `json:"serviceTypes"`
	ApprovedAt    leadapi.Time `json:"approvedAt"`
	CreatedAt     leadapi.Time `json:"createdAt"`
	ContactPerson struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	} `json:"contactPerson"`
}

type listResponse struct {
	Partners   []partnerDTO `json:"partners"`
	Pagination struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
		Total int `json:"total"`
		Pages int `json:"pages"`
	} `json:"pagination"`
}

func (r *repo) List(ctx context.Context, filter domain.ListFilter) ([]domain.Partner, domain.PageInfo, error) {
	query := url.Values{}
	setInt(query, "page", filter.Page)
	setInt(query, "limit", filter.Limit)
	setInt(query, "month", filter.Month)
	setInt(query, "year", filter.Year)
	if filter.ServiceType != "" {
		query.Set("serviceType", filter.ServiceType)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}

	var resp listResponse
	err := r.client.Do(ctx, leadapi.Request{
		Operation: "partner.list",
		Method:    http.MethodGet,
		Path:      "/partners",
		Query:     query,
	}, &resp)
	if err != nil {
		return nil, domain.PageInfo{}, err
	}

	partners := make([]domain.Partner, 0, len(resp.Partners))
	for _, dto := range resp.Partners {
		partners = append(partners, dto.toDomain())
	}

	page := domain.PageInfo{
		Page:  resp.Pagination.Page,
		Limit: resp.Pagination.Limit,
		Total: resp.Pagination.Total,
		Pages: resp.Pagination.Pages,
	}
	if page.Total == 0 {
		page.Total = len(partners)
	}
	return partners, page, nil
}

func (d partnerDTO) toDomain() domain.Partner {
	name := d.ContactPerson.FirstName
	if d.ContactPerson.LastName != "" {
		if name != "" {
			name += " "
		}
		name += d.ContactPerson.LastName
	}
	return domain.Partner{
		ID:           d.Value(),
		CompanyName:  d.CompanyName,
		Status:       domain.Status(d.Status),
		PartnerType:  domain.Type(d.PartnerType),
		ServiceTypes: d.ServiceTypes,
		Contact: domain.Contact{
			Name:  name,
			Email: d.ContactPerson.Email,
			Phone: d.ContactPerson.Phone,
		},
		ApprovedAt: d.ApprovedAt.Ptr(),
		CreatedAt:  d.CreatedAt.Ptr(),
	}
}

func setInt(query url.Values, key string, value int) {
	if value > 0 {
		query.Set(key, strconv.Itoa(value))
	}
}
