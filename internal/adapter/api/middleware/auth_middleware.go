package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"pairchat/pkg/errors"
)

// ContextUserID is the echo context key holding the authenticated user id.
const ContextUserID = "uid"

type TokenVerifier interface {
	Verify(token string) (int64, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate requires a valid token in either "Authorization: Bearer" or
// "x-access-token".
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := extractToken(c)
		if err != nil {
			return err
		}

		userID, err := m.verifier.Verify(token)
		if err != nil {
			return errors.Unauthorized("Invalid or expired token", err)
		}

		c.Set(ContextUserID, userID)
		return next(c)
	}
}

// Optional sets the user id when a valid token is present and otherwise
// lets the request through anonymously.
func (m *AuthMiddleware) Optional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token, err := extractToken(c); err == nil {
			if userID, err := m.verifier.Verify(token); err == nil {
				c.Set(ContextUserID, userID)
			}
		}
		return next(c)
	}
}

func (m *AuthMiddleware) VerifyToken(token string) (int64, error) {
	userID, err := m.verifier.Verify(token)
	if err != nil {
		return 0, errors.Unauthorized("Invalid or expired token", err)
	}
	return userID, nil
}

func extractToken(c echo.Context) (string, error) {
	if token := c.Request().Header.Get("x-access-token"); token != "" {
		return token, nil
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.Unauthorized("Authorization header is required", nil)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.Unauthorized("Invalid authorization format", nil)
	}
	return parts[1], nil
}

// UserID returns the authenticated user id set by Authenticate or Optional.
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(ContextUserID).(int64)
	return id, ok && id > 0
}
