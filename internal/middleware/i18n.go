// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/i18n"
)

// I18nMiddleware picks the response language from Accept-Language and
// makes it available both to handlers and to services via the request
// context.
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	if defaultLang == "" {
		defaultLang = i18n.DefaultLang
	}

	return func(c *gin.Context) {
		lang := parseAcceptLanguage(c.GetHeader("Accept-Language"), defaultLang)

		c.Set("lang", lang)
		c.Request = c.Request.WithContext(i18n.WithLang(c.Request.Context(), lang))
		c.Next()
	}
}

// parseAcceptLanguage handles values like "zh-TW,zh;q=0.9,en;q=0.8" by
// looking at the first preference only.
func parseAcceptLanguage(header, defaultLang string) string {
	if header == "" {
		return defaultLang
	}

	first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
	switch first {
	case "zh-TW", "zh-Hant", "zh_TW", "zh":
		return "zh_TW"
	case "en", "en-US", "en-GB":
		return "en"
	default:
		return defaultLang
	}
}
