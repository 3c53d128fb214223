// Package i18n negotiates the operator's language and renders the messages
// returned alongside API errors.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

type Key string

const (
	MsgInvalidRequest       Key = "invalid_request"
	MsgNotFound             Key = "not_found"
	MsgPartnerNotFound      Key = "partner_not_found"
	MsgInvoiceNotFound      Key = "invoice_not_found"
	MsgEmptySelection       Key = "empty_selection"
	MsgLeadNotBillable      Key = "lead_not_billable"
	MsgFetchFailed          Key = "fetch_failed"
	MsgInvoiceCreateFailed  Key = "invoice_create_failed"
	MsgStatusUpdateFailed   Key = "status_update_failed"
	MsgStoreRejected        Key = "store_rejected"
	MsgGenerationInProgress Key = "generation_in_progress"
	MsgRateLimited          Key = "rate_limited"
	MsgInternal             Key = "internal_error"
)

var supported = []language.Tag{language.English, language.German}

var messages = map[Key][2]string{
	MsgInvalidRequest:       {"The request is invalid.", "Die Anfrage ist ungültig."},
	MsgNotFound:             {"The requested resource was not found.", "Die angeforderte Ressource wurde nicht gefunden."},
	MsgPartnerNotFound:      {"Partner not found.", "Partner nicht gefunden."},
	MsgInvoiceNotFound:      {"Invoice not found.", "Rechnung nicht gefunden."},
	MsgEmptySelection:       {"Please select at least one lead.", "Bitte wählen Sie mindestens einen Lead aus."},
	MsgLeadNotBillable:      {"Some selected leads can no longer be invoiced.", "Einige ausgewählte Leads können nicht mehr abgerechnet werden."},
	MsgFetchFailed:          {"Data could not be loaded. Please try again.", "Daten konnten nicht geladen werden. Bitte versuchen Sie es erneut."},
	MsgInvoiceCreateFailed:  {"Failed to create invoice", "Rechnung konnte nicht erstellt werden"},
	MsgStatusUpdateFailed:   {"Failed to update invoice status", "Rechnungsstatus konnte nicht aktualisiert werden"},
	MsgStoreRejected:        {"The request was rejected", "Die Anfrage wurde abgelehnt"},
	MsgGenerationInProgress: {"An invoice for this period is already being generated.", "Für diesen Zeitraum wird bereits eine Rechnung erstellt."},
	MsgRateLimited:          {"Too many invoice requests. Please wait a moment.", "Zu viele Rechnungsanfragen. Bitte warten Sie einen Moment."},
	MsgInternal:             {"Something went wrong.", "Etwas ist schiefgelaufen."},
}

// Translator is safe for concurrent use.
type Translator struct {
	matcher  language.Matcher
	printers map[language.Tag]*message.Printer
}

func New() *Translator {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, texts := range messages {
		_ = builder.SetString(language.English, string(key), texts[0])
		_ = builder.SetString(language.German, string(key), texts[1])
	}

	printers := make(map[language.Tag]*message.Printer, len(supported))
	for _, tag := range supported {
		printers[tag] = message.NewPrinter(tag, message.Catalog(builder))
	}

	return &Translator{
		matcher:  language.NewMatcher(supported),
		printers: printers,
	}
}

// Negotiate picks the best supported language for an Accept-Language
// header. Anything unparseable resolves to English.
func (t *Translator) Negotiate(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(strings.TrimSpace(acceptLanguage))
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, index, confidence := t.matcher.Match(tags...)
	if confidence == language.No {
		return language.English
	}
	return supported[index]
}

// Code is the two letter code the invoice store expects.
func Code(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

// Supported reports whether code names a language the store can render.
func Supported(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	tag, err := language.Parse(code)
	if err != nil {
		return false
	}
	for _, s := range supported {
		if Code(s) == Code(tag) {
			return true
		}
	}
	return false
}

func (t *Translator) Message(tag language.Tag, key Key) string {
	printer, ok := t.printers[tag]
	if !ok {
		printer = t.printers[language.English]
	}
	return printer.Sprintf(string(key))
}

// WithDetail appends the store's own wording after a localized prefix.
func (t *Translator) WithDetail(tag language.Tag, key Key, detail string) string {
	prefix := t.Message(tag, key)
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return prefix
	}
	return prefix + ": " + detail
}
