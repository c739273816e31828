package wishlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

var _ WishlistService = (*WishlistServiceImpl)(nil)

type WishlistService interface {
	ListItems(ctx context.Context, userID int64) ([]types.WishlistItem, error)
	AddItem(ctx context.Context, userID int64, req types.AddToWishlistRequest) (*types.WishlistItem, error)
	RemoveItem(ctx context.Context, userID, productID int64) error
}

type WishlistServiceImpl struct {
	logger *slog.Logger
	repo   WishlistRepo
}

func NewWishlistService(repo WishlistRepo, logger *slog.Logger) *WishlistServiceImpl {
	return &WishlistServiceImpl{logger: logger, repo: repo}
}

func (s *WishlistServiceImpl) ListItems(ctx context.Context, userID int64) ([]types.WishlistItem, error) {
	ctx, span := otel.Tracer("WishlistService").Start(ctx, "ListItems", trace.WithAttributes(
		attribute.Int64("user.id", userID),
	))
	defer span.End()
	return s.repo.ListItems(ctx, userID)
}

func (s *WishlistServiceImpl) AddItem(ctx context.Context, userID int64, req types.AddToWishlistRequest) (*types.WishlistItem, error) {
	ctx, span := otel.Tracer("WishlistService").Start(ctx, "AddItem", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("product.id", req.ProductID),
	))
	defer span.End()

	if err := api.Validate(req); err != nil {
		return nil, err
	}
	item, err := s.repo.AddItem(ctx, userID, req.ProductID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, api.ErrReferenceMissing) {
			return nil, fmt.Errorf("product %d: %w", req.ProductID, types.ErrNotFound)
		}
		return nil, err
	}
	return item, nil
}

func (s *WishlistServiceImpl) RemoveItem(ctx context.Context, userID, productID int64) error {
	ctx, span := otel.Tracer("WishlistService").Start(ctx, "RemoveItem", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("product.id", productID),
	))
	defer span.End()
	return s.repo.RemoveItem(ctx, userID, productID)
}
