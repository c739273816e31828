package coupon

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

type HandlerImpl struct {
	couponService CouponService
	logger        *slog.Logger
}

func NewHandlerImpl(couponService CouponService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{couponService: couponService, logger: logger}
}

// ListCoupons godoc
// @Summary      List coupons
// @Tags         Coupons
// @Produce      json
// @Param        skip  query int false "Offset" default(0)
// @Param        limit query int false "Page size (max 100)" default(50)
// @Success      200 {object} types.ListResponse[types.Coupon]
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /coupons [get]
func (h *HandlerImpl) ListCoupons(w http.ResponseWriter, r *http.Request) {
	page, err := api.ParsePage(r)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	resp, err := h.couponService.ListCoupons(r.Context(), page)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to list coupons")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// GetCoupon godoc
// @Summary      Get a coupon
// @Tags         Coupons
// @Produce      json
// @Param        id path int true "Coupon ID"
// @Success      200 {object} types.Coupon
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /coupons/{id} [get]
func (h *HandlerImpl) GetCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	c, err := h.couponService.GetCoupon(r.Context(), id)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to retrieve coupon")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, c)
}

// CreateCoupon godoc
// @Summary      Create a coupon
// @Tags         Coupons
// @Accept       json
// @Produce      json
// @Param        body body types.CouponRequest true "Coupon"
// @Success      201 {object} types.Coupon
// @Failure      400 {object} types.Response "Validation error or duplicate code"
// @Security     BearerAuth
// @Router       /coupons [post]
func (h *HandlerImpl) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CouponHandler").Start(r.Context(), "CreateCoupon", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/coupons"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateCoupon"))

	var req types.CouponRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}
	c, err := h.couponService.CreateCoupon(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, "Create failed")
		api.HandleError(w, r, l, err, "Failed to create coupon")
		return
	}
	span.SetStatus(codes.Ok, "Coupon created")
	api.WriteJSONResponse(w, r, http.StatusCreated, c)
}

// UpdateCoupon godoc
// @Summary      Replace a coupon
// @Tags         Coupons
// @Accept       json
// @Produce      json
// @Param        id   path int                 true "Coupon ID"
// @Param        body body types.CouponRequest true "Coupon"
// @Success      200 {object} types.Coupon
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /coupons/{id} [put]
func (h *HandlerImpl) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	var req types.CouponRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, h.logger, err, "Invalid request body")
		return
	}
	c, err := h.couponService.UpdateCoupon(r.Context(), id, req)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to update coupon")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, c)
}

// DeleteCoupon godoc
// @Summary      Delete a coupon
// @Tags         Coupons
// @Param        id path int true "Coupon ID"
// @Success      204
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /coupons/{id} [delete]
func (h *HandlerImpl) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	if err := h.couponService.DeleteCoupon(r.Context(), id); err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to delete coupon")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// ValidateCoupon godoc
// @Summary      Check a coupon against a subtotal
// @Tags         Coupons
// @Accept       json
// @Produce      json
// @Param        body body types.ValidateCouponRequest true "Code and subtotal"
// @Success      200 {object} types.CouponQuote
// @Failure      400 {object} types.Response "Unknown, expired, exhausted or below minimum"
// @Security     BearerAuth
// @Router       /coupons/validate [post]
func (h *HandlerImpl) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req types.ValidateCouponRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, h.logger, err, "Invalid request body")
		return
	}
	quote, err := h.couponService.ValidateCoupon(r.Context(), req)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to validate coupon")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, quote)
}
