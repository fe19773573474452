package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrohub/marketplace/internal/logging"
	"github.com/agrohub/marketplace/internal/metrics"
	"github.com/agrohub/marketplace/internal/middleware/auth"
	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/tokens"
)

type Deps struct {
	CartHandler     *CartHTTP
	CheckoutHandler *CheckoutHTTP
	UserHandler     *UserHTTP
	ProductHandler  *ProductHTTP
	SchemeHandler   *SchemeHTTP

	Tokens  *tokens.Issuer
	Metrics *metrics.ServerMetrics
	Ready   func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		if err := d.Ready(c.Request().Context()); err != nil {
			logging.FromContext(c.Request().Context()).Warn("not_ready", "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	optional := auth.OptionalAuth(d.Tokens)
	required := auth.RequireAuth(d.Tokens)

	cart := e.Group("/cart", optional)
	cart.GET("/user/:email", d.CartHandler.GetCart)
	cart.DELETE("/user/:email", d.CartHandler.ClearCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.POST("/remove", d.CartHandler.RemoveFromCart)
	cart.POST("/create-checkout-session", d.CheckoutHandler.CreateSession)
	cart.GET("/checkout-session/:id", d.CheckoutHandler.GetSession)

	e.POST("/payments/webhook", d.CheckoutHandler.Webhook)

	users := e.Group("/users")
	users.POST("/register", d.UserHandler.Register)
	users.POST("/login", d.UserHandler.Login)
	users.POST("/logout", d.UserHandler.Logout)
	users.GET("/id/:id", d.UserHandler.Public)
	users.GET("/email/:email", d.UserHandler.Profile, optional)
	users.GET("/:email/sales", d.UserHandler.Sales, required)
	users.GET("/:email/sales/export", d.UserHandler.ExportSales, required)

	products := e.Group("/products")
	products.GET("", d.ProductHandler.ListProducts)
	products.GET("/search", d.ProductHandler.SearchProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.POST("", d.ProductHandler.CreateProduct, required, auth.RequireRole(models.RoleFarmer))

	schemes := e.Group("/schemes")
	schemes.GET("", d.SchemeHandler.ListSchemes)
	schemes.POST("", d.SchemeHandler.CreateScheme, required)

	e.POST("/apply", d.SchemeHandler.Apply, optional)
}
