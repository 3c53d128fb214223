package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	settingsdomain "github.com/smallbiznis/leadbilling/internal/settings/domain"
)

type updateSettingsRequest struct {
	TaxRate            *decimal.Decimal `json:"tax_rate"`
	Currency           *string          `json:"currency"`
	BasicLeadPrice     *decimal.Decimal `json:"basic_lead_price"`
	ExclusiveLeadPrice *decimal.Decimal `json:"exclusive_lead_price"`
}

func (s *Server) GetSettings(c *gin.Context) {
	current, err := s.settingsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": current})
}

func (s *Server) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	updated, err := s.settingsSvc.Update(c.Request.Context(), settingsdomain.UpdateSettingsRequest{
		TaxRate:            req.TaxRate,
		Currency:           req.Currency,
		BasicLeadPrice:     req.BasicLeadPrice,
		ExclusiveLeadPrice: req.ExclusiveLeadPrice,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}
