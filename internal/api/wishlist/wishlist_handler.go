package wishlist

import (
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/api/auth"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

type HandlerImpl struct {
	wishlistService WishlistService
	logger          *slog.Logger
}

func NewHandlerImpl(wishlistService WishlistService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{wishlistService: wishlistService, logger: logger}
}

func (h *HandlerImpl) currentUser(w http.ResponseWriter, r *http.Request) (*types.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		api.HandleError(w, r, h.logger, types.ErrUnauthenticated, "")
	}
	return u, ok
}

// ListItems godoc
// @Summary      Get my wishlist
// @Tags         Wishlist
// @Produce      json
// @Success      200 {array} types.WishlistItem
// @Security     BearerAuth
// @Router       /wishlist [get]
func (h *HandlerImpl) ListItems(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	items, err := h.wishlistService.ListItems(r.Context(), u.ID)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to load wishlist")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, items)
}

// AddItem godoc
// @Summary      Add a product to my wishlist
// @Tags         Wishlist
// @Accept       json
// @Produce      json
// @Param        body body types.AddToWishlistRequest true "Product"
// @Success      201 {object} types.WishlistItem
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /wishlist [post]
func (h *HandlerImpl) AddItem(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req types.AddToWishlistRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, h.logger, err, "Invalid request body")
		return
	}
	item, err := h.wishlistService.AddItem(r.Context(), u.ID, req)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to add to wishlist")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, item)
}

// RemoveItem godoc
// @Summary      Remove a product from my wishlist
// @Tags         Wishlist
// @Param        productID path int true "Product ID"
// @Success      204
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /wishlist/{productID} [delete]
func (h *HandlerImpl) RemoveItem(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	productID, err := api.URLParamID(r, "productID")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	if err := h.wishlistService.RemoveItem(r.Context(), u.ID, productID); err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to remove from wishlist")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
