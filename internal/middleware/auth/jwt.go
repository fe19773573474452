package auth

import (
	"net/http"
	"time"

	"github.com/agrohub/marketplace/internal/logging"
	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/tokens"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const tokenLookup = "header:Authorization:Bearer ,cookie:" + CookieName

func jwtConfig(iss *tokens.Issuer, optional bool) echojwt.Config {
	return echojwt.Config{
		ContextKey:  "user",
		TokenLookup: tokenLookup,
		ParseTokenFunc: func(c echo.Context, auth string) (any, error) {
			return iss.Parse(auth)
		},
		SuccessHandler: func(c echo.Context) {
			if cl, ok := c.Get("user").(*tokens.AccessClaims); ok {
				Begin(c, sessionFromClaims(cl), "", time.Time{}, false)
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if optional && !hasCredentials(c) {
				return nil
			}
			logging.FromContext(c.Request().Context()).Warn("auth_error", "status", http.StatusUnauthorized, "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing token")
		},
		ContinueOnIgnoredError: optional,
	}
}

func hasCredentials(c echo.Context) bool {
	if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
		return true
	}
	ck, err := c.Cookie(CookieName)
	return err == nil && ck.Value != ""
}

// RequireAuth rejects requests without a valid access token.
func RequireAuth(iss *tokens.Issuer) echo.MiddlewareFunc {
	return echojwt.WithConfig(jwtConfig(iss, false))
}

// OptionalAuth attaches a session when credentials are present and valid, passes anonymous
// requests through, and rejects requests carrying a bad token.
func OptionalAuth(iss *tokens.Issuer) echo.MiddlewareFunc {
	return echojwt.WithConfig(jwtConfig(iss, true))
}

// RequireRole must run after RequireAuth.
func RequireRole(role models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, ok := SessionFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if s.Role != role {
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			return next(c)
		}
	}
}
