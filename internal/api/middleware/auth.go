// Package middleware provides HTTP middleware for the intake API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-crm-intake/internal/logger"
)

// APIKeyAuth validates the API key from the Authorization header.
// Health probes and webhook routes are skipped; webhooks authenticate per provider.
func APIKeyAuth(apiKey string, sec *logger.SecurityLogger) echo.MiddlewareFunc {
	if apiKey == "" && sec != nil {
		sec.GetLogger().Warn("API_KEY not set - API is UNSECURED")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()

			if strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/ready") ||
				strings.HasPrefix(path, "/api/webhooks/") {
				return next(c)
			}

			// development mode
			if apiKey == "" {
				return next(c)
			}

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				if sec != nil {
					sec.AuthFailure(c.RealIP(), path, "missing_header")
				}
				return unauthorized("missing authorization header")
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if !secretsEqual(token, apiKey) {
				if sec != nil {
					sec.AuthFailure(c.RealIP(), path, "invalid_api_key")
				}
				return unauthorized("invalid API key")
			}

			return next(c)
		}
	}
}

func secretsEqual(given, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(given), []byte(expected)) == 1
}

func unauthorized(message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
		"error": message,
		"code":  "UNAUTHORIZED",
	})
}
