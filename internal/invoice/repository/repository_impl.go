package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leadbilling/internal/invoice/domain"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
)

type repo struct {
	client *leadapi.Client
}

func Provide(client *leadapi.Client) domain.Repository {
	return &repo{client: client}
}

func (r *repo) List(ctx context.Context, filter domain.ListFilter) ([]domain.Invoice, error) {
	query := url.Values{}
	if filter.PartnerID != "" {
		query.Set("partnerId", filter.PartnerID)
	}
	if filter.StartDate != nil {
		query.Set("startDate", leadapi.FormatTime(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query.Set("endDate", leadapi.FormatTime(*filter.EndDate))
	}
	if filter.ServiceType != "" {
		query.Set("serviceType", filter.ServiceType)
	}

	var dtos []invoiceDTO
	err := r.client.Do(ctx, leadapi.Request{
		Operation: "invoice.list",
		Method:    http.MethodGet,
		Path:      "/invoices",
		Query:     query,
	}, &dtos, "invoices")
	if err != nil {
		return nil, err
	}

	invoices := make([]domain.Invoice, 0, len(dtos))
	for _, dto := range dtos {
		invoices = append(invoices, dto.toDomain())
	}
	return invoices, nil
}

func (r *repo) Get(ctx context.Context, id string) (domain.Invoice, error) {
	return r.single(ctx, leadapi.Request{
		Operation: "invoice.get",
		Method:    http.MethodGet,
		Path:      invoicePath(id),
	})
}

func (r *repo) Generate(ctx context.Context, draft domain.Draft) (domain.Invoice, error) {
	return r.single(ctx, leadapi.Request{
		Operation: "invoice.generate",
		Method:    http.MethodPost,
		Path:      "/invoices/generate",
		Body:      newGenerateRequest(draft),
	})
}

func (r *repo) MarkPaid(ctx context.Context, id string, details domain.PaymentDetails) (domain.Invoice, error) {
	req := leadapi.Request{
		Operation: "invoice.mark_paid",
		Method:    http.MethodPatch,
		Path:      invoicePath(id) + "/paid",
	}
	if details.Method != "" || details.Reference != "" {
		body := map[string]string{}
		if details.Method != "" {
			body["paymentMethod"] = details.Method
		}
		if details.Reference != "" {
			body["paymentReference"] = details.Reference
		}
		req.Body = body
	}
	return r.single(ctx, req)
}

func (r *repo) MarkUnpaid(ctx context.Context, id string) (domain.Invoice, error) {
	return r.single(ctx, leadapi.Request{
		Operation: "invoice.mark_unpaid",
		Method:    http.MethodPut,
		Path:      invoicePath(id) + "/mark-unpaid",
	})
}

func (r *repo) Download(ctx context.Context, id, language string) (domain.Document, error) {
	query := url.Values{}
	if language != "" {
		query.Set("language", language)
	}
	stream, err := r.client.Stream(ctx, leadapi.Request{
		Operation: "invoice.download",
		Method:    http.MethodGet,
		Path:      invoicePath(id) + "/download",
		Query:     query,
	})
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{
		Body:          stream.Body,
		ContentType:   stream.ContentType,
		ContentLength: stream.ContentLength,
		Filename:      stream.Filename,
	}, nil
}

func (r *repo) single(ctx context.Context, req leadapi.Request) (domain.Invoice, error) {
	var dto invoiceDTO
	if err := r.client.Do(ctx, req, &dto, "invoice"); err != nil {
		return domain.Invoice{}, err
	}
	return dto.toDomain(), nil
}

func invoicePath(id string) string {
	return "/invoices/" + url.PathEscape(id)
}

type billingPeriodDTO struct {
	StartDate leadapi.Time `json:"startDate"`
	EndDate   leadapi.Time `json:"endDate"`
}

type lineItemDTO struct {
	LeadID      json.RawMessage `json:"leadId"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type invoiceDTO struct {
	leadapi.ID
	InvoiceNumber    string           `json:"invoiceNumber"`
	Partner          leadapi.Ref      `json:"partner"`
	PartnerID        leadapi.Ref      `json:"partnerId"`
	ServiceType      string           `json:"serviceType"`
	BillingPeriod    billingPeriodDTO `json:"billingPeriod"`
	Items            []lineItemDTO    `json:"items"`
	Subtotal         decimal.Decimal  `json:"subtotal"`
	Tax              decimal.Decimal  `json:"tax"`
	Total            decimal.Decimal  `json:"total"`
	Status           string           `json:"status"`
	PaymentMethod    string           `json:"paymentMethod"`
	PaymentReference string           `json:"paymentReference"`
	CreatedAt        leadapi.Time     `json:"createdAt"`
	PaidAt           leadapi.Time     `json:"paidAt"`
}

func (d invoiceDTO) toDomain() domain.Invoice {
	partner := d.Partner
	if partner.ID == "" {
		partner = d.PartnerID
	}

	items := make([]domain.LineItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.LineItem{
			LeadID:      refID(item.LeadID),
			Description: item.Description,
			Amount:      item.Amount,
		})
	}

	return domain.Invoice{
		ID:            d.Value(),
		InvoiceNumber: d.InvoiceNumber,
		PartnerID:     partner.ID,
		PartnerName:   partner.Name,
		ServiceType:   d.ServiceType,
		BillingPeriod: domain.BillingPeriod{
			StartDate: d.BillingPeriod.StartDate.Time,
			EndDate:   d.BillingPeriod.EndDate.Time,
		},
		Items:            items,
		Subtotal:         d.Subtotal,
		Tax:              d.Tax,
		Total:            d.Total,
		Status:           domain.Status(strings.TrimSpace(d.Status)),
		PaymentMethod:    d.PaymentMethod,
		PaymentReference: d.PaymentReference,
		CreatedAt:        d.CreatedAt.Ptr(),
		PaidAt:           d.PaidAt.Ptr(),
	}
}

// refID reads a line item lead reference, which is either the id or the
// populated lead document.
func refID(raw json.RawMessage) string {
	var ref leadapi.Ref
	if err := json.Unmarshal(raw, &ref); err != nil {
		return ""
	}
	return ref.ID
}

type generateItem struct {
	LeadID      string  `json:"leadId"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type generateRequest struct {
	PartnerID     string `json:"partnerId"`
	ServiceType   string `json:"serviceType"`
	BillingPeriod struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	} `json:"billingPeriod"`
	Items    []generateItem `json:"items"`
	Subtotal float64        `json:"subtotal"`
	Tax      float64        `json:"tax"`
	Total    float64        `json:"total"`
}

func newGenerateRequest(draft domain.Draft) generateRequest {
	req := generateRequest{
		PartnerID:   draft.PartnerID,
		ServiceType: draft.ServiceType,
		Items:       make([]generateItem, 0, len(draft.Items)),
		Subtotal:    draft.Subtotal.InexactFloat64(),
		Tax:         draft.Tax.InexactFloat64(),
		Total:       draft.Total.InexactFloat64(),
	}
	req.BillingPeriod.StartDate = leadapi.FormatTime(draft.BillingPeriod.StartDate)
	req.BillingPeriod.EndDate = leadapi.FormatTime(draft.BillingPeriod.EndDate)
	for _, item := range draft.Items {
		req.Items = append(req.Items, generateItem{
			LeadID:      item.LeadID,
			Description: item.Description,
			Amount:      item.Amount.InexactFloat64(),
		})
	}
	return req
}
