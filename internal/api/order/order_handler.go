package order

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/api/auth"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

type HandlerImpl struct {
	orderService OrderService
	logger       *slog.Logger
}

func NewHandlerImpl(orderService OrderService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{orderService: orderService, logger: logger}
}

func (h *HandlerImpl) currentUser(w http.ResponseWriter, r *http.Request) (*types.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		api.HandleError(w, r, h.logger, types.ErrUnauthenticated, "")
	}
	return u, ok
}

// Checkout godoc
// @Summary      Place an order from my cart
// @Description  Snapshots the cart, applies an optional coupon, starts tracking at "processing" and empties the cart.
// @Tags         Orders
// @Accept       json
// @Produce      json
// @Param        body body types.CheckoutRequest false "Optional coupon"
// @Success      201 {object} types.Order
// @Failure      400 {object} types.Response "Empty cart or coupon not applicable"
// @Security     BearerAuth
// @Router       /orders [post]
func (h *HandlerImpl) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("OrderHandler").Start(r.Context(), "Checkout", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/orders"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "Checkout"))

	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req types.CheckoutRequest
	// The body is optional.
	if r.ContentLength != 0 {
		if err := api.DecodeJSONBody(w, r, &req); err != nil {
			api.HandleError(w, r, l, err, "Invalid request body")
			return
		}
	}
	o, err := h.orderService.Checkout(ctx, u, req)
	if err != nil {
		span.SetStatus(codes.Error, "Checkout failed")
		api.HandleError(w, r, l, err, "Failed to place order")
		return
	}
	span.SetStatus(codes.Ok, "Order placed")
	api.WriteJSONResponse(w, r, http.StatusCreated, o)
}

// ListMyOrders godoc
// @Summary      List my orders
// @Tags         Orders
// @Produce      json
// @Param        skip  query int false "Offset" default(0)
// @Param        limit query int false "Page size (max 100)" default(50)
// @Success      200 {object} types.ListResponse[types.Order]
// @Security     BearerAuth
// @Router       /orders [get]
func (h *HandlerImpl) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	page, err := api.ParsePage(r)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	resp, err := h.orderService.ListMyOrders(r.Context(), u, page)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to list orders")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// GetOrder godoc
// @Summary      Get an order
// @Description  Visible to its owner, admins and merchants.
// @Tags         Orders
// @Produce      json
// @Param        id path int true "Order ID"
// @Success      200 {object} types.Order
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *HandlerImpl) GetOrder(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	o, err := h.orderService.GetOrder(r.Context(), u, id)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to retrieve order")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, o)
}

// GetTracking godoc
// @Summary      Get the tracking history of an order
// @Tags         Orders
// @Produce      json
// @Param        id path int true "Order ID"
// @Success      200 {object} types.OrderTracking
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /orders/{id}/tracking [get]
func (h *HandlerImpl) GetTracking(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	tracking, err := h.orderService.GetTracking(r.Context(), u, id)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to retrieve tracking")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, tracking)
}

// CancelOrder godoc
// @Summary      Cancel my order
// @Tags         Orders
// @Produce      json
// @Param        id path int true "Order ID"
// @Success      200 {object} types.OrderTracking
// @Failure      400 {object} types.Response "Order already left processing"
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /orders/{id}/cancel [post]
func (h *HandlerImpl) CancelOrder(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	tracking, err := h.orderService.CancelOrder(r.Context(), u, id)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to cancel order")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, tracking)
}

// ListOrders godoc
// @Summary      List all orders for fulfilment
// @Tags         Fulfillment
// @Produce      json
// @Param        status query string false "Only orders in this status"
// @Param        skip   query int    false "Offset" default(0)
// @Param        limit  query int    false "Page size (max 100)" default(50)
// @Success      200 {object} types.ListResponse[types.Order]
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /fulfillment/orders [get]
func (h *HandlerImpl) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := api.ParsePage(r)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	var status *types.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := types.OrderStatus(s)
		status = &st
	}
	resp, err := h.orderService.ListOrders(r.Context(), status, page)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to list orders")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// MerchantQueue godoc
// @Summary      Orders waiting to be shipped
// @Tags         Fulfillment
// @Produce      json
// @Param        skip  query int false "Offset" default(0)
// @Param        limit query int false "Page size (max 100)" default(50)
// @Success      200 {object} types.ListResponse[types.Order]
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /merchant/queue [get]
func (h *HandlerImpl) MerchantQueue(w http.ResponseWriter, r *http.Request) {
	page, err := api.ParsePage(r)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	resp, err := h.orderService.MerchantQueue(r.Context(), page)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to load merchant queue")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// AppendTracking godoc
// @Summary      Record a tracking event
// @Description  Moves the order to the new status. Disallowed transitions are rejected.
// @Tags         Fulfillment
// @Accept       json
// @Produce      json
// @Param        id   path int                   true "Order ID"
// @Param        body body types.TrackingRequest true "New status"
// @Success      201 {object} types.OrderTracking
// @Failure      400 {object} types.Response "Invalid status or transition"
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /orders/{id}/tracking [post]
func (h *HandlerImpl) AppendTracking(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("OrderHandler").Start(r.Context(), "AppendTracking", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/orders/{id}/tracking"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "AppendTracking"))

	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, l, err, "")
		return
	}
	var req types.TrackingRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}
	tracking, err := h.orderService.AppendTracking(ctx, id, req)
	if err != nil {
		span.SetStatus(codes.Error, "Append failed")
		api.HandleError(w, r, l, err, "Failed to update tracking")
		return
	}
	span.SetStatus(codes.Ok, "Tracking appended")
	api.WriteJSONResponse(w, r, http.StatusCreated, tracking)
}
