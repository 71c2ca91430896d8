package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-crm-intake/internal/logger"
)

// ReviewerTokenHeader carries the reviewer's signed identity token.
const ReviewerTokenHeader = "X-Reviewer-Token"

const reviewerContextKey = "reviewer"

// ReviewerClaims identifies the person submitting intake decisions.
type ReviewerClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// GenerateReviewerToken signs an HS256 token for subject valid for ttl.
func GenerateReviewerToken(subject, email, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ReviewerClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ValidateReviewerToken parses and verifies a reviewer token.
func ValidateReviewerToken(tokenString, secret string) (*ReviewerClaims, error) {
	claims := &ReviewerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse reviewer token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("reviewer token is not valid")
	}
	if claims.Subject == "" {
		return nil, errors.New("reviewer token has no subject")
	}
	return claims, nil
}

// ReviewerJWT attaches the reviewer identity from X-Reviewer-Token to the context.
// The header is optional; a present but invalid token is rejected.
func ReviewerJWT(secret string, sec *logger.SecurityLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return next(c)
			}

			raw := c.Request().Header.Get(ReviewerTokenHeader)
			if raw == "" {
				return next(c)
			}

			claims, err := ValidateReviewerToken(raw, secret)
			if err != nil {
				if sec != nil {
					sec.AuthFailure(c.RealIP(), c.Path(), "invalid_reviewer_token")
				}
				return unauthorized("invalid reviewer token")
			}

			c.Set(reviewerContextKey, claims.Subject)
			return next(c)
		}
	}
}

// ReviewerFromContext returns the authenticated reviewer, or "" when none.
func ReviewerFromContext(c echo.Context) string {
	if v, ok := c.Get(reviewerContextKey).(string); ok {
		return v
	}
	return ""
}
