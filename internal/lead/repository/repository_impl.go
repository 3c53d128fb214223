package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leadbilling/internal/lead/domain"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
)

type repo struct {
	client *leadapi.Client
}

func Provide(client *leadapi.Client) domain.Repository {
	return &repo{client: client}
}

type assignmentDTO struct {
	Partner            leadapi.Ref         `json:"partner"`
	PartnerID          leadapi.Ref         `json:"partnerId"`
	Status             string              `json:"status"`
	AssignedAt         leadapi.Time        `json:"assignedAt"`
	AcceptedAt         leadapi.Time        `json:"acceptedAt"`
	LeadPrice          decimal.NullDecimal `json:"leadPrice"`
	CancellationReason string              `json:"cancellationReason"`
}

type leadDTO struct {
	leadapi.ID
	LeadID             string                           `json:"leadId"`
	ServiceType        string                           `json:"serviceType"`
	User               json.RawMessage                  `json:"user"`
	FormData           map[string]any                   `json:"formData"`
	CreatedAt          leadapi.Time                     `json:"createdAt"`
	PartnerAssignments leadapi.OneOrMany[assignmentDTO] `json:"partnerAssignments"`
}

type userDTO struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (r *repo) ListByPartner(ctx context.Context, partnerID string) ([]domain.Lead, error) {
	var dtos []leadDTO
	err := r.client.Do(ctx, leadapi.Request{
		Operation: "partner.leads",
		Method:    http.MethodGet,
		Path:      "/partners/" + url.PathEscape(partnerID) + "/leads",
	}, &dtos, "leads")
	if err != nil {
		return nil, err
	}

	leads := make([]domain.Lead, 0, len(dtos))
	for _, dto := range dtos {
		leads = append(leads, dto.toDomain())
	}
	return leads, nil
}

func (r *repo) RejectCancellation(ctx context.Context, leadID, partnerID, reason string) (domain.Lead, error) {
	body := map[string]string{"action": "reject"}
	if reason != "" {
		body["reason"] = reason
	}

	var dto leadDTO
	err := r.client.Do(ctx, leadapi.Request{
		Operation: "lead.cancel_reject",
		Method:    http.MethodPut,
		Path:      "/leads/" + url.PathEscape(leadID) + "/partners/" + url.PathEscape(partnerID) + "/cancel",
		Body:      body,
	}, &dto, "lead")
	if err != nil {
		return domain.Lead{}, err
	}
	return dto.toDomain(), nil
}

func (d leadDTO) toDomain() domain.Lead {
	lead := domain.Lead{
		ID:          d.Value(),
		LeadNumber:  d.LeadID,
		ServiceType: domain.ServiceType(strings.ToLower(strings.TrimSpace(d.ServiceType))),
		Customer:    decodeCustomer(d.User),
		FormData:    d.FormData,
		CreatedAt:   d.CreatedAt.Ptr(),
	}

	lead.PartnerAssignments = make([]domain.PartnerAssignment, 0, len(d.PartnerAssignments))
	for _, a := range d.PartnerAssignments {
		partner := a.Partner
		if partner.ID == "" {
			partner = a.PartnerID
		}
		assignment := domain.PartnerAssignment{
			PartnerID:          partner.ID,
			PartnerName:        partner.Name,
			Status:             domain.AssignmentStatus(strings.TrimSpace(a.Status)),
			AssignedAt:         a.AssignedAt.Ptr(),
			AcceptedAt:         a.AcceptedAt.Ptr(),
			CancellationReason: a.CancellationReason,
		}
		if a.LeadPrice.Valid {
			price := a.LeadPrice.Decimal
			assignment.LeadPrice = &price
		}
		lead.PartnerAssignments = append(lead.PartnerAssignments, assignment)
	}
	return lead
}

// decodeCustomer tolerates user being a populated document or a bare id.
func decodeCustomer(raw json.RawMessage) domain.Customer {
	if len(raw) == 0 || raw[0] != '{' {
		return domain.Customer{}
	}
	var user userDTO
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.Customer{}
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = strings.TrimSpace(user.Name)
	}
	return domain.Customer{Name: name, Email: user.Email, Phone: user.Phone}
}
