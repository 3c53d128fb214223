package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	partnerdomain "github.com/smallbiznis/leadbilling/internal/partner/domain"
)

type listPartnersQuery struct {
	Page         string `form:"page"`
	Limit        string `form:"limit"`
	ServiceType  string `form:"service_type"`
	Search       string `form:"search"`
	Month        string `form:"month"`
	Year         string `form:"year"`
	BillableOnly string `form:"billable_only"`
}

func (s *Server) ListPartners(c *gin.Context) {
	var query listPartnersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	page, err := parseOptionalInt(query.Page)
	if err != nil {
		AbortWithError(c, newValidationError("page", "invalid_page", "invalid page"))
		return
	}
	limit, err := parseOptionalInt(query.Limit)
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}
	month, err := parseOptionalInt(query.Month)
	if err != nil {
		AbortWithError(c, newValidationError("month", "invalid_month", "invalid month"))
		return
	}
	year, err := parseOptionalInt(query.Year)
	if err != nil {
		AbortWithError(c, newValidationError("year", "invalid_year", "invalid year"))
		return
	}
	billableOnly, err := parseOptionalBool(query.BillableOnly)
	if err != nil {
		AbortWithError(c, newValidationError("billable_only", "invalid_billable_only", "invalid billable_only"))
		return
	}

	req := partnerdomain.ListPartnerRequest{
		Page:        page,
		Limit:       limit,
		ServiceType: strings.TrimSpace(query.ServiceType),
		Search:      strings.TrimSpace(query.Search),
		Month:       month,
		Year:        year,
	}
	if billableOnly != nil {
		req.BillableOnly = *billableOnly
	}

	resp, err := s.partnerSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Partners, "pagination": resp.Pagination})
}
