package product

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
)

type HandlerImpl struct {
	productService ProductService
	logger         *slog.Logger
	maxBody        int64
}

// NewHandlerImpl caps multipart bodies at maxBody bytes.
func NewHandlerImpl(productService ProductService, maxBody int64, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{productService: productService, logger: logger, maxBody: maxBody}
}

// ListProducts godoc
// @Summary      List products
// @Tags         Products
// @Produce      json
// @Param        skip           query int    false "Offset" default(0)
// @Param        limit          query int    false "Page size (max 100)" default(50)
// @Param        category_id    query int    false "Category"
// @Param        subcategory_id query int    false "Subcategory"
// @Param        featured       query bool   false "Featured only"
// @Param        best_seller    query bool   false "Best sellers only"
// @Param        new_arrival    query bool   false "New arrivals only"
// @Param        in_stock       query bool   false "Stock state"
// @Param        search         query string false "Case-insensitive match on name"
// @Success      200 {object} types.ListResponse[types.Product]
// @Failure      400 {object} types.Response
// @Router       /products [get]
func (h *HandlerImpl) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProductHandler").Start(r.Context(), "ListProducts", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/products"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "ListProducts"))

	filter, err := parseFilter(r)
	if err != nil {
		api.HandleError(w, r, l, err, "")
		return
	}
	resp, err := h.productService.ListProducts(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, "List failed")
		api.HandleError(w, r, l, err, "Failed to list products")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// ListNewArrivals godoc
// @Summary      List new arrivals
// @Tags         Products
// @Produce      json
// @Param        skip  query int false "Offset" default(0)
// @Param        limit query int false "Page size (max 100)" default(50)
// @Success      200 {object} types.ListResponse[types.Product]
// @Router       /products/new-arrivals [get]
func (h *HandlerImpl) ListNewArrivals(w http.ResponseWriter, r *http.Request) {
	page, err := api.ParsePage(r)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	resp, err := h.productService.ListNewArrivals(r.Context(), page)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to list new arrivals")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// GetProduct godoc
// @Summary      Get a product
// @Tags         Products
// @Produce      json
// @Param        id path int true "Product ID"
// @Success      200 {object} types.Product
// @Failure      404 {object} types.Response
// @Router       /products/{id} [get]
func (h *HandlerImpl) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	p, err := h.productService.GetProduct(r.Context(), id)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to retrieve product")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}

// CreateProduct godoc
// @Summary      Create a product
// @Description  List fields (colors, sizes, highlights) take a JSON array or a comma-separated list.
// @Tags         Products
// @Accept       multipart/form-data
// @Accept       json
// @Produce      json
// @Param        name           formData string true  "Name"
// @Param        price          formData string true  "Price"
// @Param        discount_price formData string false "Discount price"
// @Param        description    formData string false "Description"
// @Param        category_id    formData int    false "Category"
// @Param        subcategory_id formData int    false "Subcategory"
// @Param        colors         formData string false "Colors"
// @Param        sizes          formData string false "Sizes"
// @Param        highlights     formData string false "Highlights"
// @Param        images         formData file   false "Images (repeatable)"
// @Success      201 {object} types.Product
// @Failure      400 {object} types.Response
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /products [post]
func (h *HandlerImpl) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProductHandler").Start(r.Context(), "CreateProduct", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/products"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateProduct"))

	in, files, err := decodeProductInput(w, r, h.maxBody)
	if err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}
	p, err := h.productService.CreateProduct(ctx, in, files)
	if err != nil {
		span.SetStatus(codes.Error, "Create failed")
		api.HandleError(w, r, l, err, "Failed to create product")
		return
	}
	span.SetStatus(codes.Ok, "Product created")
	api.WriteJSONResponse(w, r, http.StatusCreated, p)
}

// UpdateProduct godoc
// @Summary      Update a product
// @Description  Only provided fields change. image_urls replaces the stored image list; uploaded images are appended.
// @Tags         Products
// @Accept       multipart/form-data
// @Accept       json
// @Produce      json
// @Param        id         path     int    true  "Product ID"
// @Param        image_urls formData string false "Images to keep"
// @Param        images     formData file   false "New images (repeatable)"
// @Success      200 {object} types.Product
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /products/{id} [put]
func (h *HandlerImpl) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProductHandler").Start(r.Context(), "UpdateProduct", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/products/{id}"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "UpdateProduct"))

	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, l, err, "")
		return
	}
	in, files, err := decodeProductInput(w, r, h.maxBody)
	if err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}
	p, err := h.productService.UpdateProduct(ctx, id, in, files)
	if err != nil {
		span.SetStatus(codes.Error, "Update failed")
		api.HandleError(w, r, l, err, "Failed to update product")
		return
	}
	span.SetStatus(codes.Ok, "Product updated")
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}

// DeleteProduct godoc
// @Summary      Delete a product
// @Tags         Products
// @Param        id path int true "Product ID"
// @Success      204
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /products/{id} [delete]
func (h *HandlerImpl) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	if err := h.productService.DeleteProduct(r.Context(), id); err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to delete product")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
