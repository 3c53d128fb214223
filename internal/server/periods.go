package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	reconciliationdomain "github.com/smallbiznis/leadbilling/internal/reconciliation/domain"
)

type periodViewQuery struct {
	Filter      string `form:"filter"`
	Date        string `form:"date"`
	From        string `form:"from"`
	To          string `form:"to"`
	FilterMonth string `form:"filter_month"`
	FilterYear  string `form:"filter_year"`
}

type generateInvoiceRequest struct {
	ServiceType string   `json:"service_type"`
	LeadIDs     []string `json:"lead_ids"`
}

func (s *Server) GetPeriodView(c *gin.Context) {
	period, err := parsePeriod(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query periodViewQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	filter, err := s.parseDateFilter(query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	view, err := s.reconciliationSvc.View(c.Request.Context(), c.Param("id"), period, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) GenerateInvoice(c *gin.Context) {
	period, err := parsePeriod(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req generateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.reconciliationSvc.GenerateInvoice(c.Request.Context(), reconciliationdomain.GenerateRequest{
		PartnerID:   c.Param("id"),
		Period:      period,
		ServiceType: req.ServiceType,
		LeadIDs:     req.LeadIDs,
	})
	if err != nil {
		var limited *reconciliationdomain.RateLimitedError
		if errors.As(err, &limited) && limited.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func parsePeriod(c *gin.Context) (reconciliationdomain.Period, error) {
	year, err := strconv.Atoi(strings.TrimSpace(c.Param("year")))
	if err != nil {
		return reconciliationdomain.Period{}, reconciliationdomain.ErrInvalidPeriod
	}
	month, err := strconv.Atoi(strings.TrimSpace(c.Param("month")))
	if err != nil {
		return reconciliationdomain.Period{}, reconciliationdomain.ErrInvalidPeriod
	}
	period := reconciliationdomain.Period{Month: month, Year: year}
	if err := period.Validate(); err != nil {
		return reconciliationdomain.Period{}, err
	}
	return period, nil
}

func (s *Server) parseDateFilter(query periodViewQuery) (reconciliationdomain.DateFilter, error) {
	loc := s.billing.Get().Location()
	filter := reconciliationdomain.DateFilter{
		Type: reconciliationdomain.FilterType(strings.ToLower(strings.TrimSpace(query.Filter))),
	}
	if filter.Type == "" {
		filter.Type = reconciliationdomain.FilterAll
	}

	var err error
	if filter.Date, err = parseOptionalTime(query.Date, false, loc); err != nil {
		return filter, newValidationError("date", "invalid_date", "invalid date")
	}
	if filter.From, err = parseOptionalTime(query.From, false, loc); err != nil {
		return filter, newValidationError("from", "invalid_from", "invalid from")
	}
	if filter.To, err = parseOptionalTime(query.To, false, loc); err != nil {
		return filter, newValidationError("to", "invalid_to", "invalid to")
	}
	if filter.Month, err = parseOptionalInt(query.FilterMonth); err != nil {
		return filter, newValidationError("filter_month", "invalid_filter_month", "invalid filter_month")
	}
	if filter.Year, err = parseOptionalInt(query.FilterYear); err != nil {
		return filter, newValidationError("filter_year", "invalid_filter_year", "invalid filter_year")
	}
	return filter, nil
}
