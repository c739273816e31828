package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-shop-backend/app/observability/metrics"
	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

var _ CartService = (*CartServiceImpl)(nil)

type CartService interface {
	GetCart(ctx context.Context, userID int64) (*types.Cart, error)
	AddItem(ctx context.Context, userID int64, req types.AddToCartRequest) (*types.CartItem, error)
	UpdateItem(ctx context.Context, userID, itemID int64, req types.UpdateCartItemRequest) (*types.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

type CartServiceImpl struct {
	logger *slog.Logger
	repo   CartRepo
}

func NewCartService(repo CartRepo, logger *slog.Logger) *CartServiceImpl {
	return &CartServiceImpl{logger: logger, repo: repo}
}

// Subtotal sums unit price times quantity over items.
func Subtotal(items []types.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (s *CartServiceImpl) GetCart(ctx context.Context, userID int64) (*types.Cart, error) {
	ctx, span := otel.Tracer("CartService").Start(ctx, "GetCart", trace.WithAttributes(
		attribute.Int64("user.id", userID),
	))
	defer span.End()

	items, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		return nil, err
	}
	return &types.Cart{Items: items, Subtotal: Subtotal(items)}, nil
}

func (s *CartServiceImpl) AddItem(ctx context.Context, userID int64, req types.AddToCartRequest) (*types.CartItem, error) {
	ctx, span := otel.Tracer("CartService").Start(ctx, "AddItem", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("product.id", req.ProductID),
		attribute.Int("quantity", req.Quantity),
	))
	defer span.End()

	if err := api.Validate(req); err != nil {
		return nil, err
	}
	item, err := s.repo.AddItem(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Add failed")
		if errors.Is(err, api.ErrReferenceMissing) {
			return nil, fmt.Errorf("product %d: %w", req.ProductID, types.ErrNotFound)
		}
		return nil, err
	}
	metrics.RecordCartAddition(ctx, req.Quantity)
	s.logger.DebugContext(ctx, "Cart item added",
		slog.Int64("userID", userID), slog.Int64("productID", req.ProductID), slog.Int("quantity", item.Quantity))
	span.SetStatus(codes.Ok, "Item added")
	return item, nil
}

func (s *CartServiceImpl) UpdateItem(ctx context.Context, userID, itemID int64, req types.UpdateCartItemRequest) (*types.CartItem, error) {
	ctx, span := otel.Tracer("CartService").Start(ctx, "UpdateItem", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("cart_item.id", itemID),
	))
	defer span.End()

	if err := api.Validate(req); err != nil {
		return nil, err
	}
	return s.repo.UpdateQuantity(ctx, userID, itemID, req.Quantity)
}

func (s *CartServiceImpl) RemoveItem(ctx context.Context, userID, itemID int64) error {
	ctx, span := otel.Tracer("CartService").Start(ctx, "RemoveItem", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("cart_item.id", itemID),
	))
	defer span.End()
	return s.repo.RemoveItem(ctx, userID, itemID)
}

func (s *CartServiceImpl) ClearCart(ctx context.Context, userID int64) error {
	ctx, span := otel.Tracer("CartService").Start(ctx, "ClearCart", trace.WithAttributes(
		attribute.Int64("user.id", userID),
	))
	defer span.End()

	n, err := s.repo.Clear(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.DebugContext(ctx, "Cart cleared", slog.Int64("userID", userID), slog.Int64("items", n))
	return nil
}
