package category

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

type HandlerImpl struct {
	categoryService CategoryService
	logger          *slog.Logger
	maxUpload       int64
}

func NewHandlerImpl(categoryService CategoryService, maxUpload int64, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{categoryService: categoryService, logger: logger, maxUpload: maxUpload}
}

// decodeCategoryInput accepts JSON or multipart/form-data with an optional "image" file.
func (h *HandlerImpl) decodeCategoryInput(w http.ResponseWriter, r *http.Request) (types.CategoryInput, *multipart.FileHeader, error) {
	var in types.CategoryInput
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err := api.DecodeJSONBody(w, r, &in)
		return in, nil, err
	}

	if err := api.ParseMultipartForm(w, r, h.maxUpload+1<<20); err != nil {
		return in, nil, err
	}
	in.Name = r.FormValue("name")
	in.Slug = r.FormValue("slug")
	_, fh, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil, nil
	case err != nil:
		return in, nil, types.NewValidationError("image", "could not read uploaded file")
	}
	return in, fh, nil
}

// ListCategories godoc
// @Summary      List categories
// @Description  All categories with their subcategories.
// @Tags         Categories
// @Produce      json
// @Success      200 {array} types.Category
// @Router       /categories [get]
func (h *HandlerImpl) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.ListCategories(r.Context())
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to list categories")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, categories)
}

// GetCategory godoc
// @Summary      Get a category
// @Tags         Categories
// @Produce      json
// @Param        id path int true "Category ID"
// @Success      200 {object} types.Category
// @Failure      404 {object} types.Response
// @Router       /categories/{id} [get]
func (h *HandlerImpl) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	c, err := h.categoryService.GetCategory(r.Context(), id)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to retrieve category")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, c)
}

// CreateCategory godoc
// @Summary      Create a category
// @Tags         Categories
// @Accept       multipart/form-data
// @Accept       json
// @Produce      json
// @Param        name  formData string true  "Name"
// @Param        slug  formData string false "Slug (derived from name when omitted)"
// @Param        image formData file   false "Image"
// @Success      201 {object} types.Category
// @Failure      400 {object} types.Response
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /categories [post]
func (h *HandlerImpl) CreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CategoryHandler").Start(r.Context(), "CreateCategory", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/categories"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateCategory"))

	in, fh, err := h.decodeCategoryInput(w, r)
	if err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}
	c, err := h.categoryService.CreateCategory(ctx, in, fh)
	if err != nil {
		span.SetStatus(codes.Error, "Create failed")
		api.HandleError(w, r, l, err, "Failed to create category")
		return
	}
	span.SetStatus(codes.Ok, "Category created")
	api.WriteJSONResponse(w, r, http.StatusCreated, c)
}

// UpdateCategory godoc
// @Summary      Update a category
// @Tags         Categories
// @Accept       multipart/form-data
// @Accept       json
// @Produce      json
// @Param        id    path     int    true  "Category ID"
// @Param        name  formData string true  "Name"
// @Param        slug  formData string false "Slug"
// @Param        image formData file   false "Replacement image"
// @Success      200 {object} types.Category
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /categories/{id} [put]
func (h *HandlerImpl) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CategoryHandler").Start(r.Context(), "UpdateCategory", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/categories/{id}"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "UpdateCategory"))

	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, l, err, "")
		return
	}
	in, fh, err := h.decodeCategoryInput(w, r)
	if err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}
	c, err := h.categoryService.UpdateCategory(ctx, id, in, fh)
	if err != nil {
		span.SetStatus(codes.Error, "Update failed")
		api.HandleError(w, r, l, err, "Failed to update category")
		return
	}
	span.SetStatus(codes.Ok, "Category updated")
	api.WriteJSONResponse(w, r, http.StatusOK, c)
}

// DeleteCategory godoc
// @Summary      Delete a category
// @Description  Subcategories are removed with it; products keep existing without a category.
// @Tags         Categories
// @Param        id path int true "Category ID"
// @Success      204
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /categories/{id} [delete]
func (h *HandlerImpl) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	if err := h.categoryService.DeleteCategory(r.Context(), id); err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to delete category")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// ListSubCategories godoc
// @Summary      List subcategories
// @Tags         Categories
// @Produce      json
// @Param        category_id query int false "Only subcategories of this category"
// @Success      200 {array} types.SubCategory
// @Router       /categories/subcategory [get]
func (h *HandlerImpl) ListSubCategories(w http.ResponseWriter, r *http.Request) {
	categoryID, err := api.QueryID(r, "category_id")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	subs, err := h.categoryService.ListSubCategories(r.Context(), categoryID)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to list subcategories")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, subs)
}

// CreateSubCategory godoc
// @Summary      Create a subcategory
// @Tags         Categories
// @Accept       json
// @Produce      json
// @Param        body body types.SubCategoryInput true "Subcategory"
// @Success      201 {object} types.SubCategory
// @Failure      400 {object} types.Response
// @Security     BearerAuth
// @Router       /categories/subcategory [post]
func (h *HandlerImpl) CreateSubCategory(w http.ResponseWriter, r *http.Request) {
	var in types.SubCategoryInput
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		api.HandleError(w, r, h.logger, err, "Invalid request body")
		return
	}
	sc, err := h.categoryService.CreateSubCategory(r.Context(), in)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to create subcategory")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, sc)
}

// UpdateSubCategory godoc
// @Summary      Update a subcategory
// @Tags         Categories
// @Accept       json
// @Produce      json
// @Param        id   path int true "Subcategory ID"
// @Param        body body types.SubCategoryInput true "Subcategory"
// @Success      200 {object} types.SubCategory
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /categories/subcategory/{id} [put]
func (h *HandlerImpl) UpdateSubCategory(w http.ResponseWriter, r *http.Request) {
	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	var in types.SubCategoryInput
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		api.HandleError(w, r, h.logger, err, "Invalid request body")
		return
	}
	sc, err := h.categoryService.UpdateSubCategory(r.Context(), id, in)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to update subcategory")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, sc)
}

// DeleteSubCategory godoc
// @Summary      Delete a subcategory
// @Tags         Categories
// @Param        id path int true "Subcategory ID"
// @Success      204
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /categories/subcategory/{id} [delete]
func (h *HandlerImpl) DeleteSubCategory(w http.ResponseWriter, r *http.Request) {
	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	if err := h.categoryService.DeleteSubCategory(r.Context(), id); err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to delete subcategory")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
