package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/leadbilling/internal/i18n"
	invoicedomain "github.com/smallbiznis/leadbilling/internal/invoice/domain"
)

type listInvoicesQuery struct {
	PartnerID   string `form:"partner_id"`
	StartDate   string `form:"start_date"`
	EndDate     string `form:"end_date"`
	ServiceType string `form:"service_type"`
}

type markPaidRequest struct {
	PaymentMethod    string `json:"payment_method"`
	PaymentReference string `json:"payment_reference"`
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query listInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	loc := s.billing.Get().Location()
	startDate, err := parseOptionalTime(query.StartDate, false, loc)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
		return
	}
	endDate, err := parseOptionalTime(query.EndDate, true, loc)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_end_date", "invalid end_date"))
		return
	}

	invoices, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PartnerID:   query.PartnerID,
		StartDate:   startDate,
		EndDate:     endDate,
		ServiceType: query.ServiceType,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	item, err := s.invoiceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) DownloadInvoice(c *gin.Context) {
	lang := strings.TrimSpace(c.Query("language"))
	if lang == "" {
		lang = i18n.Code(languageFrom(c))
	}

	doc, err := s.invoiceSvc.Download(c.Request.Context(), c.Param("id"), lang)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer doc.Body.Close()

	length := doc.ContentLength
	if length <= 0 {
		length = -1
	}
	c.DataFromReader(http.StatusOK, length, doc.ContentType, doc.Body, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}),
	})
}

func (s *Server) MarkInvoicePaid(c *gin.Context) {
	var req markPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.invoiceSvc.MarkPaid(c.Request.Context(), c.Param("id"), invoicedomain.PaymentDetails{
		Method:    strings.TrimSpace(req.PaymentMethod),
		Reference: strings.TrimSpace(req.PaymentReference),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) MarkInvoiceUnpaid(c *gin.Context) {
	item, err := s.invoiceSvc.MarkUnpaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}
