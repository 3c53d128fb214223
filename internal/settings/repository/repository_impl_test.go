package repository

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leadbilling/internal/config"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetAndUpdateSettings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/settings", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"data":{"settings":{"taxRate":19,"currency":"EUR","basicLeadPrice":30,"exclusiveLeadPrice":"55.50"}}}`)
		case http.MethodPut:
			raw, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"taxRate":7,"currency":"CHF","basicLeadPrice":30,"exclusiveLeadPrice":55.5}`, string(raw))
			_, _ = w.Write(raw)
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	}))
	defer srv.Close()

	client, err := leadapi.New(config.LeadAPIConfig{BaseURL: srv.URL}, zap.NewNop(), nil)
	require.NoError(t, err)
	repo := Provide(client)

	current, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, current.ExclusiveLeadPrice.Equal(decimal.RequireFromString("55.5")))

	current.TaxRate = decimal.NewFromInt(7)
	current.Currency = "CHF"
	updated, err := repo.Update(context.Background(), current)
	require.NoError(t, err)
	assert.Equal(t, "CHF", updated.Currency)
	assert.True(t, updated.TaxRate.Equal(decimal.NewFromInt(7)))
}
