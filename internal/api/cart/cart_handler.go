package cart

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
	cartService CartService
	logger      *slog.Logger
}

func NewHandlerImpl(cartService CartService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{cartService: cartService, logger: logger}
}

func (h *HandlerImpl) currentUser(w http.ResponseWriter, r *http.Request) (*types.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		api.HandleError(w, r, h.logger, types.ErrUnauthenticated, "")
	}
	return u, ok
}

// GetCart godoc
// @Summary      Get my cart
// @Tags         Cart
// @Produce      json
// @Success      200 {object} types.Cart
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /cart [get]
func (h *HandlerImpl) GetCart(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	cart, err := h.cartService.GetCart(r.Context(), u.ID)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to load cart")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, cart)
}

// AddItem godoc
// @Summary      Add a product to my cart
// @Description  Adding a product already in the cart increases its quantity.
// @Tags         Cart
// @Accept       json
// @Produce      json
// @Param        body body types.AddToCartRequest true "Product and quantity"
// @Success      201 {object} types.CartItem
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /cart [post]
func (h *HandlerImpl) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CartHandler").Start(r.Context(), "AddItem", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/cart"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "AddItem"))

	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req types.AddToCartRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}
	item, err := h.cartService.AddItem(ctx, u.ID, req)
	if err != nil {
		span.SetStatus(codes.Error, "Add failed")
		api.HandleError(w, r, l, err, "Failed to add item to cart")
		return
	}
	span.SetStatus(codes.Ok, "Item added")
	api.WriteJSONResponse(w, r, http.StatusCreated, item)
}

// UpdateItem godoc
// @Summary      Change the quantity of a cart line
// @Tags         Cart
// @Accept       json
// @Produce      json
// @Param        itemID path int true "Cart item ID"
// @Param        body   body types.UpdateCartItemRequest true "New quantity"
// @Success      200 {object} types.CartItem
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /cart/{itemID} [put]
func (h *HandlerImpl) UpdateItem(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	itemID, err := api.URLParamID(r, "itemID")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	var req types.UpdateCartItemRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, h.logger, err, "Invalid request body")
		return
	}
	item, err := h.cartService.UpdateItem(r.Context(), u.ID, itemID, req)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to update cart item")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, item)
}

// RemoveItem godoc
// @Summary      Remove a cart line
// @Tags         Cart
// @Param        itemID path int true "Cart item ID"
// @Success      204
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /cart/{itemID} [delete]
func (h *HandlerImpl) RemoveItem(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	itemID, err := api.URLParamID(r, "itemID")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	if err := h.cartService.RemoveItem(r.Context(), u.ID, itemID); err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to remove cart item")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// ClearCart godoc
// @Summary      Empty my cart
// @Tags         Cart
// @Success      204
// @Security     BearerAuth
// @Router       /cart [delete]
func (h *HandlerImpl) ClearCart(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if err := h.cartService.ClearCart(r.Context(), u.ID); err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to clear cart")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
