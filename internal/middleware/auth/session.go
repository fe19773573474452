package auth

import (
	"net/http"
	"time"

	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/tokens"
	"github.com/labstack/echo/v4"
)

const (
	CookieName = "accessToken"
	sessionKey = "session"
)

// Session is the authenticated caller for one request.
type Session struct {
	UserID string
	Email  string
	Name   string
	Role   models.Role
}

func sessionFromClaims(cl *tokens.AccessClaims) *Session {
	return &Session{
		UserID: cl.Subject,
		Email:  cl.Email,
		Name:   cl.Name,
		Role:   cl.Role,
	}
}

func SessionFrom(c echo.Context) (*Session, bool) {
	s, ok := c.Get(sessionKey).(*Session)
	return s, ok && s != nil
}

// Begin attaches s to the request and, when token is non-empty, sets the access cookie.
func Begin(c echo.Context, s *Session, token string, exp time.Time, secure bool) {
	c.Set(sessionKey, s)
	if token != "" {
		c.SetCookie(createCookie(token, exp, secure))
	}
}

// End drops the session from the request and expires the access cookie.
func End(c echo.Context, secure bool) {
	c.Set(sessionKey, nil)
	c.SetCookie(createCookie("", time.Unix(0, 0), secure))
}

func createCookie(value string, exp time.Time, secure bool) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
	}
	return c
}
