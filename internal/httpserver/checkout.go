package httpserver

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrohub/marketplace/internal/logging"
	"github.com/agrohub/marketplace/internal/middleware/auth"
	"github.com/agrohub/marketplace/internal/service"
	"github.com/agrohub/marketplace/internal/transport"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 64 << 10
)

type CheckoutHTTP struct {
	Svc *service.CheckoutService
}

func (h *CheckoutHTTP) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.create_session")

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_checkout_session_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	buyer := req.Mail
	if s, ok := auth.SessionFrom(c); ok {
		if buyer != "" && buyer != s.Email {
			return fail(l, "create_checkout_session", checkOwner(c, buyer), "")
		}
		buyer = s.Email
	}

	id, err := h.Svc.CreateSession(ctx, buyer, req.Lines())
	if err != nil {
		return fail(l, "create_checkout_session", err, "Failed to create checkout session")
	}
	return c.JSON(http.StatusOK, transport.CheckoutResponse{ID: id})
}

func (h *CheckoutHTTP) GetSession(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.get_session")

	sess, err := h.Svc.GetSession(ctx, c.Param("id"))
	if err != nil {
		return fail(l, "get_checkout_session", err, "cannot load checkout session")
	}
	if sess.BuyerEmail != "" {
		if err := checkOwner(c, sess.BuyerEmail); err != nil {
			return fail(l, "get_checkout_session", err, "")
		}
	}
	return c.JSON(http.StatusOK, sess)
}

// Webhook answers 2xx for every verified event it does not need retried, and 5xx when
// settlement failed so the provider delivers the event again.
func (h *CheckoutHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.webhook")

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		l.Warn("webhook_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read body")
	}
	if len(payload) > maxWebhookBody {
		l.Warn("webhook_error", "status", 413, "limit", maxWebhookBody)
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
	}

	report, err := h.Svc.HandleWebhook(ctx, payload, c.Request().Header.Get(signatureHeader))
	if err != nil {
		return fail(l, "webhook", err, "settlement failed")
	}
	if report != nil {
		l.Info("webhook settled", "session_id", report.SessionID, "applied", len(report.Applied), "already_settled", report.AlreadySettled)
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
