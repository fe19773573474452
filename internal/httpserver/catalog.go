package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrohub/marketplace/internal/logging"
	"github.com/agrohub/marketplace/internal/middleware/auth"
	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/service"
	"github.com/agrohub/marketplace/internal/transport"
	"github.com/agrohub/marketplace/internal/util"
)

type ProductHTTP struct {
	Svc *service.ProductService
}

func (h *ProductHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.create")

	s, ok := auth.SessionFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_product_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.Create(ctx, s.Email, service.ProductInput{
		Name:            req.ProductName,
		PerPackQuantity: req.Quantity,
		Price:           req.Price,
		Description:     req.Description,
		ImageURI:        req.URI,
		Rating:          req.Rating,
		Category:        req.Category,
	})
	if err != nil {
		return fail(l, "create_product", err, "cannot create product")
	}

	l.Info("product created", "product_id", p.ID)
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.get")

	p, err := h.Svc.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(l, "get_product", err, "cannot get product")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.List(ctx, models.ProductFilter{
		Category:    c.QueryParam("category"),
		SellerEmail: c.QueryParam("seller"),
	}, offset, limit)
	if err != nil {
		return fail(l, "list_products", err, "cannot list products")
	}
	if items == nil {
		items = []models.Product{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.Meta(page, offset, limit, total),
	})
}

func (h *ProductHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.search")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.Search(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(l, "search_products", err, "search failed")
	}
	if items == nil {
		items = []models.Product{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.Meta(page, offset, limit, total),
	})
}

type SchemeHTTP struct {
	Svc *service.SchemeService
}

func (h *SchemeHTTP) CreateScheme(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "schemes.create")

	var req transport.CreateSchemeRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_scheme_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	sc, err := h.Svc.Create(ctx, service.SchemeInput(req))
	if err != nil {
		return fail(l, "create_scheme", err, "cannot create scheme")
	}
	return c.JSON(http.StatusCreated, sc)
}

func (h *SchemeHTTP) ListSchemes(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "schemes.list")

	list, err := h.Svc.List(ctx)
	if err != nil {
		return fail(l, "list_schemes", err, "cannot list schemes")
	}
	if list == nil {
		list = []models.Scheme{}
	}
	return c.JSON(http.StatusOK, list)
}

func (h *SchemeHTTP) Apply(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "schemes.apply")

	var req transport.ApplySchemeRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("apply_scheme_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := checkOwner(c, req.Mail); err != nil {
		return fail(l, "apply_scheme", err, "")
	}

	if err := h.Svc.Apply(ctx, req.Mail, req.SchemeID); err != nil {
		return fail(l, "apply_scheme", err, "cannot apply to scheme")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Applied successfully"})
}
