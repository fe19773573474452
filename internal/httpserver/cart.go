package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/agrohub/marketplace/internal/logging"
	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/service"
	"github.com/agrohub/marketplace/internal/transport"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	email := c.Param("email")
	if err := checkOwner(c, email); err != nil {
		return fail(l, "get_cart", err, "")
	}
	includeStale, _ := strconv.ParseBool(c.QueryParam("include_stale"))

	lines, err := h.Svc.Aggregate(ctx, email)
	if err != nil {
		return fail(l, "get_cart", err, "cannot load cart")
	}

	out := make([]models.CartLine, 0, len(lines))
	stale := 0
	for _, line := range lines {
		if line.Status == models.LineStale {
			stale++
			if !includeStale {
				continue
			}
		}
		out = append(out, line)
	}
	if stale > 0 {
		l.Warn("cart_has_stale_lines", "email", email, "stale", stale)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	var req transport.CartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := checkOwner(c, req.Mail); err != nil {
		return fail(l, "add_to_cart", err, "")
	}

	cart, err := h.Svc.AddToCart(ctx, req.Mail, req.ProdID)
	if err != nil {
		return fail(l, "add_to_cart", err, "cannot add to cart")
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	var req transport.CartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("remove_from_cart_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := checkOwner(c, req.Mail); err != nil {
		return fail(l, "remove_from_cart", err, "")
	}

	cart, err := h.Svc.RemoveFromCart(ctx, req.Mail, req.ProdID)
	if err != nil {
		return fail(l, "remove_from_cart", err, "cannot remove from cart")
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	email := c.Param("email")
	if err := checkOwner(c, email); err != nil {
		return fail(l, "clear_cart", err, "")
	}
	if err := h.Svc.ClearCart(ctx, email); err != nil {
		return fail(l, "clear_cart", err, "cannot clear cart")
	}
	return c.JSON(http.StatusOK, []models.CartEntry{})
}
