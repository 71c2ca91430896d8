package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/welldanyogia/webrana-crm-intake/internal/webhook"
)

const defaultOrigin = "http://localhost:3000"

// ParseOrigins splits a comma separated ALLOWED_ORIGINS value.
func ParseOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{defaultOrigin}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// SecureCORS returns CORS middleware for the given origins.
// Wildcard origins are dropped when production is true.
func SecureCORS(origins []string, production bool) echo.MiddlewareFunc {
	if len(origins) == 0 {
		origins = []string{defaultOrigin}
	}

	if production {
		filtered := make([]string, 0, len(origins))
		for _, origin := range origins {
			if origin != "*" {
				filtered = append(filtered, origin)
			}
		}
		origins = filtered
		if len(origins) == 0 {
			origins = []string{defaultOrigin}
		}
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization,
			webhook.TokenHeader, webhook.SendGridValidationHeader, ReviewerTokenHeader, echo.HeaderXRequestID,
		},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
