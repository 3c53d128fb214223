package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/leadbilling/internal/audit/domain"
	"github.com/smallbiznis/leadbilling/internal/i18n"
	invoicedomain "github.com/smallbiznis/leadbilling/internal/invoice/domain"
	leaddomain "github.com/smallbiznis/leadbilling/internal/lead/domain"
	partnerdomain "github.com/smallbiznis/leadbilling/internal/partner/domain"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
	reconciliationdomain "github.com/smallbiznis/leadbilling/internal/reconciliation/domain"
	settingsdomain "github.com/smallbiznis/leadbilling/internal/settings/domain"
	"golang.org/x/text/language"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

var defaultTranslator = i18n.New()

func ErrorHandlingMiddleware(translator *i18n.Translator) gin.HandlerFunc {
	if translator == nil {
		translator = defaultTranslator
	}
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err, translator, languageFrom(c))
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error, tr *i18n.Translator, lang language.Tag) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: tr.Message(lang, i18n.MsgInternal),
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: tr.Message(lang, i18n.MsgInvalidRequest),
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: tr.Message(lang, i18n.MsgInvalidRequest),
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	// A rejected mutation keeps the store's wording, 404 included. Only
	// reads collapse to the generic not found below.
	if storeErr, ok := leadapi.AsStoreError(err); ok && isStoreMutation(storeErr.Operation) &&
		storeErr.Status >= http.StatusBadRequest && storeErr.Status < http.StatusInternalServerError {
		return mapStoreError(storeErr, tr, lang)
	}

	var notBillable *reconciliationdomain.NotBillableError
	switch {
	case errors.Is(err, reconciliationdomain.ErrEmptySelection):
		return http.StatusBadRequest, errorPayload{
			Type:    "empty_selection",
			Message: tr.Message(lang, i18n.MsgEmptySelection),
		}
	case errors.As(err, &notBillable):
		details := make([]ValidationError, 0, len(notBillable.LeadIDs))
		for _, id := range notBillable.LeadIDs {
			details = append(details, ValidationError{
				Field:   "lead_ids",
				Code:    reconciliationdomain.ErrLeadNotBillable.Error(),
				Message: id,
			})
		}
		return http.StatusConflict, errorPayload{
			Type:    "lead_not_billable",
			Message: tr.Message(lang, i18n.MsgLeadNotBillable),
			Errors:  details,
		}
	case errors.Is(err, reconciliationdomain.ErrGenerationInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "generation_in_progress",
			Message: tr.Message(lang, i18n.MsgGenerationInProgress),
		}
	case errors.Is(err, reconciliationdomain.ErrGenerationRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: tr.Message(lang, i18n.MsgRateLimited),
		}
	case errors.Is(err, leaddomain.ErrPartnerUnknown),
		errors.Is(err, partnerdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: tr.Message(lang, i18n.MsgPartnerNotFound),
		}
	case errors.Is(err, invoicedomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: tr.Message(lang, i18n.MsgInvoiceNotFound),
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, leaddomain.ErrNotFound),
		leadapi.IsNotFound(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: tr.Message(lang, i18n.MsgNotFound),
		}
	case errors.Is(err, leadapi.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: tr.Message(lang, i18n.MsgFetchFailed),
		}
	}

	if storeErr, ok := leadapi.AsStoreError(err); ok {
		return mapStoreError(storeErr, tr, lang)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, errorPayload{
			Type:    "upstream_unavailable",
			Message: tr.Message(lang, i18n.MsgFetchFailed),
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: tr.Message(lang, i18n.MsgInternal),
	}
}

// mapStoreError keeps the store's wording behind a localized prefix. Client
// errors keep their status; everything else is a bad gateway.
func mapStoreError(storeErr *leadapi.StoreError, tr *i18n.Translator, lang language.Tag) (int, errorPayload) {
	prefix := storePrefix(storeErr.Operation)
	if storeErr.Status >= http.StatusBadRequest && storeErr.Status < http.StatusInternalServerError {
		return storeErr.Status, errorPayload{
			Type:    "store_rejected",
			Message: tr.WithDetail(lang, prefix, storeErr.Message),
		}
	}

	message := tr.Message(lang, i18n.MsgFetchFailed)
	if prefix != i18n.MsgStoreRejected {
		message = tr.WithDetail(lang, prefix, storeErr.Message)
	}
	return http.StatusBadGateway, errorPayload{
		Type:    "upstream_unavailable",
		Message: message,
	}
}

func isStoreMutation(operation string) bool {
	switch operation {
	case "invoice.generate", "invoice.mark_paid", "invoice.mark_unpaid", "lead.cancel_reject", "settings.update":
		return true
	default:
		return false
	}
}

func storePrefix(operation string) i18n.Key {
	switch operation {
	case "invoice.generate":
		return i18n.MsgInvoiceCreateFailed
	case "invoice.mark_paid", "invoice.mark_unpaid":
		return i18n.MsgStatusUpdateFailed
	default:
		return i18n.MsgStoreRejected
	}
}

// classifyErrorForLog feeds error_type and error_code on the request log.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err, defaultTranslator, language.English)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError {
		return "server", code
	}
	return "client", code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, reconciliationdomain.ErrInvalidPeriod),
		errors.Is(err, reconciliationdomain.ErrInvalidPartner),
		errors.Is(err, reconciliationdomain.ErrInvalidFilter),
		errors.Is(err, reconciliationdomain.ErrInvalidServiceType),
		errors.Is(err, partnerdomain.ErrInvalidPage),
		errors.Is(err, partnerdomain.ErrInvalidServiceType),
		errors.Is(err, partnerdomain.ErrInvalidPeriod),
		errors.Is(err, invoicedomain.ErrInvalidID),
		errors.Is(err, invoicedomain.ErrInvalidPartner),
		errors.Is(err, invoicedomain.ErrInvalidRange),
		errors.Is(err, invoicedomain.ErrInvalidDraft),
		errors.Is(err, invoicedomain.ErrInvalidLanguage),
		errors.Is(err, leaddomain.ErrInvalidLead),
		errors.Is(err, leaddomain.ErrInvalidPartner),
		errors.Is(err, settingsdomain.ErrInvalidTaxRate),
		errors.Is(err, settingsdomain.ErrInvalidCurrency),
		errors.Is(err, settingsdomain.ErrInvalidPrice),
		errors.Is(err, settingsdomain.ErrEmptyUpdate),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidTarget):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
