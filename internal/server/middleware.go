package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/leadbilling/internal/i18n"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
	"golang.org/x/text/language"
)

const contextLanguageKey = "language"

// ForwardAuthorization hands the caller's credentials to the store client.
// Authentication itself happens at the store.
func ForwardAuthorization() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
			c.Request = c.Request.WithContext(leadapi.WithAuthorization(c.Request.Context(), header))
		}
		c.Next()
	}
}

// Language negotiates the response language from Accept-Language.
func Language(translator *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := language.English
		if translator != nil {
			tag = translator.Negotiate(c.GetHeader("Accept-Language"))
		}
		c.Set(contextLanguageKey, tag)
		c.Header("Content-Language", i18n.Code(tag))
		c.Next()
	}
}

func languageFrom(c *gin.Context) language.Tag {
	if value, ok := c.Get(contextLanguageKey); ok {
		if tag, ok := value.(language.Tag); ok {
			return tag
		}
	}
	return language.English
}
