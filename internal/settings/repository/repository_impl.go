package repository

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
	"github.com/smallbiznis/leadbilling/internal/settings/domain"
)

type repo struct {
	client *leadapi.Client
}

func Provide(client *leadapi.Client) domain.Repository {
	return &repo{client: client}
}

type settingsDTO struct {
	TaxRate            decimal.Decimal `json:"taxRate"`
	Currency           string          `json:"currency"`
	BasicLeadPrice     decimal.Decimal `json:"basicLeadPrice"`
	ExclusiveLeadPrice decimal.Decimal `json:"exclusiveLeadPrice"`
}

type settingsBody struct {
	TaxRate            float64 `json:"taxRate"`
	Currency           string  `json:"currency"`
	BasicLeadPrice     float64 `json:"basicLeadPrice"`
	ExclusiveLeadPrice float64 `json:"exclusiveLeadPrice"`
}

func (r *repo) Get(ctx context.Context) (domain.Settings, error) {
	var dto settingsDTO
	err := r.client.Do(ctx, leadapi.Request{
		Operation: "settings.get",
		Method:    http.MethodGet,
		Path:      "/settings",
	}, &dto, "settings")
	if err != nil {
		return domain.Settings{}, err
	}
	return dto.toDomain(), nil
}

func (r *repo) Update(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	var dto settingsDTO
	err := r.client.Do(ctx, leadapi.Request{
		Operation: "settings.update",
		Method:    http.MethodPut,
		Path:      "/settings",
		Body: settingsBody{
			TaxRate:            settings.TaxRate.InexactFloat64(),
			Currency:           settings.Currency,
			BasicLeadPrice:     settings.BasicLeadPrice.InexactFloat64(),
			ExclusiveLeadPrice: settings.ExclusiveLeadPrice.InexactFloat64(),
		},
	}, &dto, "settings")
	if err != nil {
		return domain.Settings{}, err
	}
	return dto.toDomain(), nil
}

func (d settingsDTO) toDomain() domain.Settings {
	return domain.Settings{
		TaxRate:            d.TaxRate,
		Currency:           d.Currency,
		BasicLeadPrice:     d.BasicLeadPrice,
		ExclusiveLeadPrice: d.ExclusiveLeadPrice,
	}
}
