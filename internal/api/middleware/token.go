package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const tokenKey = "token"

// Token copies the raw token from the Authorization header into the request
// context. The "Bearer " prefix is optional. Nothing is verified here: a
// missing or malformed token is rejected by the user service.
func Token() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(tokenKey, extractToken(c.Request().Header.Get(echo.HeaderAuthorization)))
			return next(c)
		}
	}
}

// TokenFrom returns the token stored by Token, or "" when absent.
func TokenFrom(c echo.Context) string {
	tok, _ := c.Get(tokenKey).(string)
	return tok
}

func extractToken(header string) string {
	header = strings.TrimSpace(header)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return header
}
