package httpserver

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrohub/marketplace/internal/logging"
	"github.com/agrohub/marketplace/internal/middleware/auth"
	"github.com/agrohub/marketplace/internal/report"
	"github.com/agrohub/marketplace/internal/service"
	"github.com/agrohub/marketplace/internal/transport"
)

type UserHTTP struct {
	Svc          *service.UserService
	Analytics    *service.AnalyticsService
	CookieSecure bool
}

func (h *UserHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	u, err := h.Svc.Register(ctx, service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Img:      req.Img,
	})
	if err != nil {
		return fail(l, "register", err, "cannot register user")
	}

	l.Info("user registered", "user_id", u.ID)
	return c.JSON(http.StatusCreated, transport.ProfileFrom(u))
}

func (h *UserHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login", err, "cannot log in")
	}

	auth.Begin(c, &auth.Session{
		UserID: res.User.ID,
		Email:  res.User.Email,
		Name:   res.User.Name,
		Role:   res.User.Role,
	}, res.Token, res.ExpiresAt, h.CookieSecure)

	return c.JSON(http.StatusOK, transport.LoginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      transport.ProfileFrom(res.User),
	})
}

func (h *UserHTTP) Logout(c echo.Context) error {
	auth.End(c, h.CookieSecure)
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *UserHTTP) Profile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.profile")

	email := c.Param("email")
	if err := checkOwner(c, email); err != nil {
		return fail(l, "get_profile", err, "")
	}

	u, err := h.Svc.Profile(ctx, email)
	if err != nil {
		return fail(l, "get_profile", err, "cannot load user")
	}
	return c.JSON(http.StatusOK, transport.ProfileFrom(u))
}

func (h *UserHTTP) Public(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.public")

	u, err := h.Svc.ByID(ctx, c.Param("id"))
	if err != nil {
		return fail(l, "get_public_user", err, "cannot load user")
	}
	return c.JSON(http.StatusOK, transport.PublicUser{Name: u.Name, Role: u.Role, Img: u.Img})
}

func (h *UserHTTP) Sales(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.sales")

	email := c.Param("email")
	if err := checkOwner(c, email); err != nil {
		return fail(l, "get_sales", err, "")
	}

	sales, err := h.Analytics.Sales(ctx, email)
	if err != nil {
		return fail(l, "get_sales", err, "cannot load sales")
	}
	return c.JSON(http.StatusOK, transport.SalesFrom(sales))
}

func (h *UserHTTP) ExportSales(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.sales_export")

	email := c.Param("email")
	if err := checkOwner(c, email); err != nil {
		return fail(l, "export_sales", err, "")
	}

	var buf bytes.Buffer
	if err := h.Analytics.Export(ctx, email, &buf); err != nil {
		return fail(l, "export_sales", err, "cannot export sales")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=sales.xlsx")
	return c.Blob(http.StatusOK, report.ContentType, buf.Bytes())
}
