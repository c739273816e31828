package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-shop-backend/app/observability/metrics"
	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/api/cart"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

var _ OrderService = (*OrderServiceImpl)(nil)

type OrderService interface {
	Checkout(ctx context.Context, user *types.User, req types.CheckoutRequest) (*types.Order, error)
	ListMyOrders(ctx context.Context, user *types.User, page types.Page) (*types.ListResponse[types.Order], error)
	GetOrder(ctx context.Context, user *types.User, id int64) (*types.Order, error)
	GetTracking(ctx context.Context, user *types.User, id int64) (*types.OrderTracking, error)
	CancelOrder(ctx context.Context, user *types.User, id int64) (*types.OrderTracking, error)

	// Fulfilment side, for admins and merchants.
	ListOrders(ctx context.Context, status *types.OrderStatus, page types.Page) (*types.ListResponse[types.Order], error)
	MerchantQueue(ctx context.Context, page types.Page) (*types.ListResponse[types.Order], error)
	AppendTracking(ctx context.Context, id int64, req types.TrackingRequest) (*types.OrderTracking, error)
}

// CartReader is the part of the cart store checkout reads from.
type CartReader interface {
	ListItems(ctx context.Context, userID int64) ([]types.CartItem, error)
}

type CouponFinder interface {
	GetCouponByCode(ctx context.Context, code string) (*types.Coupon, error)
}

type OrderServiceImpl struct {
	logger  *slog.Logger
	repo    OrderRepo
	carts   CartReader
	coupons CouponFinder
	now     func() time.Time
}

func NewOrderService(repo OrderRepo, carts CartReader, coupons CouponFinder, logger *slog.Logger) *OrderServiceImpl {
	return &OrderServiceImpl{logger: logger, repo: repo, carts: carts, coupons: coupons, now: time.Now}
}

func (s *OrderServiceImpl) Checkout(ctx context.Context, user *types.User, req types.CheckoutRequest) (*types.Order, error) {
	ctx, span := otel.Tracer("OrderService").Start(ctx, "Checkout", trace.WithAttributes(
		attribute.Int64("user.id", user.ID),
		attribute.String("coupon.code", req.CouponCode),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Checkout"), slog.Int64("userID", user.ID))

	if err := api.Validate(req); err != nil {
		return nil, err
	}
	items, err := s.carts.ListItems(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(items) == 0 {
		return nil, types.NewValidationError("cart", "cart is empty")
	}

	o := types.NewOrder{
		UserID:      user.ID,
		Reference:   uuid.New(),
		Subtotal:    cart.Subtotal(items),
		Items:       make([]types.OrderItem, 0, len(items)),
		CartItemIDs: make([]int64, 0, len(items)),
	}
	for _, it := range items {
		productID := it.ProductID
		o.Items = append(o.Items, types.OrderItem{
			ProductID: &productID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
		o.CartItemIDs = append(o.CartItemIDs, it.ID)
	}

	if code := strings.TrimSpace(req.CouponCode); code != "" {
		c, err := s.coupons.GetCouponByCode(ctx, code)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return nil, types.NewValidationError("coupon_code", "coupon does not exist")
			}
			return nil, err
		}
		if err := c.Redeemable(o.Subtotal, s.now()); err != nil {
			var ve *types.ValidationError
			if errors.As(err, &ve) {
				return nil, types.NewValidationError("coupon_code", ve.Fields["code"])
			}
			return nil, err
		}
		o.Discount = c.Discount(o.Subtotal)
		o.CouponCode = &c.Code
	}
	o.Total = o.Subtotal.Sub(o.Discount)

	created, err := s.repo.CreateOrder(ctx, o)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Checkout failed")
		return nil, err
	}
	metrics.RecordOrderPlaced(ctx)
	l.InfoContext(ctx, "Order placed",
		slog.Int64("orderID", created.ID),
		slog.String("reference", created.Reference.String()),
		slog.String("total", created.Total.StringFixed(2)))
	span.SetStatus(codes.Ok, "Order placed")
	return created, nil
}

func (s *OrderServiceImpl) ListMyOrders(ctx context.Context, user *types.User, page types.Page) (*types.ListResponse[types.Order], error) {
	ctx, span := otel.Tracer("OrderService").Start(ctx, "ListMyOrders", trace.WithAttributes(
		attribute.Int64("user.id", user.ID),
	))
	defer span.End()

	orders, err := s.repo.ListOrdersByUser(ctx, user.ID, page)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &types.ListResponse[types.Order]{Items: orders, Skip: page.Skip, Limit: page.Limit}, nil
}

// canView lets owners see their own orders and fulfilment staff see all of them.
func canView(user *types.User, o *types.Order) bool {
	return o.UserID == user.ID || user.Role == types.RoleAdmin || user.Role == types.RoleMerchant
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, user *types.User, id int64) (*types.Order, error) {
	ctx, span := otel.Tracer("OrderService").Start(ctx, "GetOrder", trace.WithAttributes(
		attribute.Int64("order.id", id),
	))
	defer span.End()

	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(user, o) {
		// Someone else's order is reported as missing.
		return nil, fmt.Errorf("order %d: %w", id, types.ErrNotFound)
	}
	return o, nil
}

func (s *OrderServiceImpl) GetTracking(ctx context.Context, user *types.User, id int64) (*types.OrderTracking, error) {
	ctx, span := otel.Tracer("OrderService").Start(ctx, "GetTracking", trace.WithAttributes(
		attribute.Int64("order.id", id),
	))
	defer span.End()

	if _, err := s.GetOrder(ctx, user, id); err != nil {
		return nil, err
	}
	return s.repo.GetTracking(ctx, id)
}

func (s *OrderServiceImpl) CancelOrder(ctx context.Context, user *types.User, id int64) (*types.OrderTracking, error) {
	ctx, span := otel.Tracer("OrderService").Start(ctx, "CancelOrder", trace.WithAttributes(
		attribute.Int64("order.id", id),
	))
	defer span.End()

	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != user.ID {
		return nil, fmt.Errorf("order %d: %w", id, types.ErrNotFound)
	}
	if o.Status != types.OrderProcessing {
		return nil, types.NewConflictError("Only orders still processing can be cancelled.")
	}
	tracking, err := s.repo.AppendTracking(ctx, id, types.OrderCancelled, "Cancelled by customer")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetStatus(codes.Ok, "Order cancelled")
	return tracking, nil
}

func (s *OrderServiceImpl) ListOrders(ctx context.Context, status *types.OrderStatus, page types.Page) (*types.ListResponse[types.Order], error) {
	ctx, span := otel.Tracer("OrderService").Start(ctx, "ListOrders")
	defer span.End()

	if status != nil && !status.Valid() {
		return nil, types.NewValidationError("status", "unknown order status")
	}
	orders, err := s.repo.ListOrders(ctx, status, page)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &types.ListResponse[types.Order]{Items: orders, Skip: page.Skip, Limit: page.Limit}, nil
}

func (s *OrderServiceImpl) MerchantQueue(ctx context.Context, page types.Page) (*types.ListResponse[types.Order], error) {
	processing := types.OrderProcessing
	return s.ListOrders(ctx, &processing, page)
}

func (s *OrderServiceImpl) AppendTracking(ctx context.Context, id int64, req types.TrackingRequest) (*types.OrderTracking, error) {
	ctx, span := otel.Tracer("OrderService").Start(ctx, "AppendTracking", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", string(req.Status)),
	))
	defer span.End()

	if err := api.Validate(req); err != nil {
		return nil, err
	}
	tracking, err := s.repo.AppendTracking(ctx, id, req.Status, strings.TrimSpace(req.Message))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Append failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Tracking appended")
	return tracking, nil
}
