package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/agrohub/marketplace/internal/middleware/auth"
	"github.com/agrohub/marketplace/internal/service"
)

var statusBySentinel = []struct {
	err  error
	code int
}{
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrConflict, http.StatusConflict},
	{service.ErrUnavailable, http.StatusServiceUnavailable},
}

// fail logs err and converts it to an HTTP error. Client errors carry the service message,
// everything else gets the generic message.
func fail(l *slog.Logger, op string, err error, generic string) error {
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			l.Warn(op+"_error", "status", s.code, "error", err)
			return echo.NewHTTPError(s.code, strings.TrimSuffix(err.Error(), ": "+s.err.Error()))
		}
	}
	l.Error(op+"_error", "status", http.StatusInternalServerError, "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, generic)
}

// checkOwner rejects a request that acts on another user's data. Anonymous callers pass.
func checkOwner(c echo.Context, email string) error {
	s, ok := auth.SessionFrom(c)
	if !ok || s.Email == email {
		return nil
	}
	return fmt.Errorf("cannot act on behalf of %s: %w", email, service.ErrForbidden)
}
