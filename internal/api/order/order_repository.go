package order

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-shop-backend/app/db"
	"github.com/FACorreiaa/go-shop-backend/app/observability/metrics"
	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

var _ OrderRepo = (*PostgresOrderRepo)(nil)

type OrderRepo interface {
	// CreateOrder persists a checkout atomically: order, items, first tracking event,
	// coupon redemption and removal of the ordered cart lines.
	CreateOrder(ctx context.Context, o types.NewOrder) (*types.Order, error)
	GetOrder(ctx context.Context, id int64) (*types.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64, page types.Page) ([]types.Order, error)
	// ListOrders lists every order, optionally only those in status.
	ListOrders(ctx context.Context, status *types.OrderStatus, page types.Page) ([]types.Order, error)
	GetTracking(ctx context.Context, orderID int64) (*types.OrderTracking, error)
	// AppendTracking moves the order to status when the transition is allowed and records it.
	AppendTracking(ctx context.Context, orderID int64, status types.OrderStatus, message string) (*types.OrderTracking, error)
}

var orderColumns = []string{
	"id", "reference", "user_id", "status", "subtotal", "discount", "total", "coupon_code", "created_at", "updated_at",
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type PostgresOrderRepo struct {
	logger *slog.Logger
	db     database.DB
}

func NewPostgresOrderRepo(db database.DB, logger *slog.Logger) *PostgresOrderRepo {
	return &PostgresOrderRepo{logger: logger, db: db}
}

func startSpan(ctx context.Context, name, op, table string) (context.Context, trace.Span) {
	return otel.Tracer("OrderRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", table),
	))
}

func fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

func (r *PostgresOrderRepo) CreateOrder(ctx context.Context, o types.NewOrder) (*types.Order, error) {
	ctx, span := startSpan(ctx, "CreateOrder", "INSERT", "orders")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "orders", "INSERT", time.Now())

	tx, err := r.db.Begin(ctx)
	if err != nil {
		fail(span, err, "Begin failed")
		return nil, fmt.Errorf("beginning checkout transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if o.CouponCode != nil {
		// Guarded increment so concurrent checkouts cannot exceed max_uses.
		tag, err := tx.Exec(ctx, `
			UPDATE coupons SET used_count = used_count + 1
			WHERE code = $1 AND active AND (max_uses IS NULL OR used_count < max_uses)`, *o.CouponCode)
		if err != nil {
			fail(span, err, "Coupon redemption failed")
			return nil, fmt.Errorf("redeeming coupon: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, types.NewValidationError("coupon_code", "coupon is no longer available")
		}
	}

	created := types.Order{
		Reference:  o.Reference,
		UserID:     o.UserID,
		Status:     types.OrderProcessing,
		Subtotal:   o.Subtotal,
		Discount:   o.Discount,
		Total:      o.Total,
		CouponCode: o.CouponCode,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (reference, user_id, status, subtotal, discount, total, coupon_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		o.Reference, o.UserID, types.OrderProcessing, o.Subtotal, o.Discount, o.Total, o.CouponCode,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		fail(span, err, "Order insert failed")
		return nil, api.TranslateDBError(err, "inserting order", "Order already exists.")
	}

	items := psql.Insert("order_items").Columns("order_id", "product_id", "name", "unit_price", "quantity")
	for _, it := range o.Items {
		items = items.Values(created.ID, it.ProductID, it.Name, it.UnitPrice, it.Quantity)
	}
	query, args, err := items.Suffix("RETURNING id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building order items insert: %w", err)
	}
	var itemIDs []int64
	if err := pgxscan.Select(ctx, tx, &itemIDs, query, args...); err != nil {
		fail(span, err, "Order items insert failed")
		return nil, fmt.Errorf("inserting order items: %w", err)
	}
	created.Items = make([]types.OrderItem, len(o.Items))
	for i, it := range o.Items {
		it.ID = itemIDs[i]
		created.Items[i] = it
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO order_tracking (order_id, status, message) VALUES ($1, $2, $3)`,
		created.ID, types.OrderProcessing, "Order placed"); err != nil {
		fail(span, err, "Tracking insert failed")
		return nil, fmt.Errorf("inserting initial tracking event: %w", err)
	}

	// Only the snapshotted quantity leaves the cart; units added to a line after the
	// snapshot stay behind.
	ordered := make([]int32, len(o.CartItemIDs))
	for i := range o.CartItemIDs {
		ordered[i] = int32(o.Items[i].Quantity)
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM cart_items c
		USING unnest($2::bigint[], $3::int[]) AS s(id, qty)
		WHERE c.user_id = $1 AND c.id = s.id AND c.quantity <= s.qty`,
		o.UserID, o.CartItemIDs, ordered); err != nil {
		fail(span, err, "Cart cleanup failed")
		return nil, fmt.Errorf("clearing ordered cart items: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE cart_items c SET quantity = c.quantity - s.qty
		FROM unnest($2::bigint[], $3::int[]) AS s(id, qty)
		WHERE c.user_id = $1 AND c.id = s.id`,
		o.UserID, o.CartItemIDs, ordered); err != nil {
		fail(span, err, "Cart decrement failed")
		return nil, fmt.Errorf("decrementing ordered cart items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		fail(span, err, "Commit failed")
		return nil, fmt.Errorf("committing checkout: %w", err)
	}
	span.SetAttributes(attribute.Int64("order.id", created.ID), attribute.Int("order.items", len(created.Items)))
	span.SetStatus(codes.Ok, "Order created")
	return &created, nil
}

func (r *PostgresOrderRepo) GetOrder(ctx context.Context, id int64) (*types.Order, error) {
	ctx, span := startSpan(ctx, "GetOrder", "SELECT", "orders")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "orders", "SELECT", time.Now())

	var o types.Order
	if err := pgxscan.Get(ctx, r.db, &o,
		`SELECT `+strings.Join(orderColumns, ", ")+` FROM orders WHERE id = $1`, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("order %d: %w", id, types.ErrNotFound)
		}
		fail(span, err, "DB query failed")
		return nil, fmt.Errorf("fetching order: %w", err)
	}

	o.Items = []types.OrderItem{}
	if err := pgxscan.Select(ctx, r.db, &o.Items,
		`SELECT id, product_id, name, unit_price, quantity FROM order_items WHERE order_id = $1 ORDER BY id`, id); err != nil {
		fail(span, err, "DB query failed")
		return nil, fmt.Errorf("fetching order items: %w", err)
	}
	span.SetStatus(codes.Ok, "Order found")
	return &o, nil
}

func (r *PostgresOrderRepo) listOrders(ctx context.Context, name string, where squirrel.Sqlizer, page types.Page) ([]types.Order, error) {
	ctx, span := startSpan(ctx, name, "SELECT", "orders")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "orders", "SELECT", time.Now())

	q := psql.Select(orderColumns...).From("orders")
	if where != nil {
		q = q.Where(where)
	}
	query, args, err := q.OrderBy("created_at DESC", "id DESC").Offset(page.Skip).Limit(page.Limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building order query: %w", err)
	}
	orders := []types.Order{}
	if err := pgxscan.Select(ctx, r.db, &orders, query, args...); err != nil {
		fail(span, err, "DB query failed")
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	span.SetStatus(codes.Ok, "Orders listed")
	return orders, nil
}

func (r *PostgresOrderRepo) ListOrdersByUser(ctx context.Context, userID int64, page types.Page) ([]types.Order, error) {
	return r.listOrders(ctx, "ListOrdersByUser", squirrel.Eq{"user_id": userID}, page)
}

func (r *PostgresOrderRepo) ListOrders(ctx context.Context, status *types.OrderStatus, page types.Page) ([]types.Order, error) {
	var where squirrel.Sqlizer
	if status != nil {
		where = squirrel.Eq{"status": *status}
	}
	return r.listOrders(ctx, "ListOrders", where, page)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func trackingHistory(ctx context.Context, q querier, orderID int64) ([]types.TrackingEvent, error) {
	history := []types.TrackingEvent{}
	if err := pgxscan.Select(ctx, q, &history,
		`SELECT id, order_id, status, message, timestamp FROM order_tracking
		 WHERE order_id = $1 ORDER BY timestamp, id`, orderID); err != nil {
		return nil, fmt.Errorf("fetching tracking history: %w", err)
	}
	return history, nil
}

func (r *PostgresOrderRepo) GetTracking(ctx context.Context, orderID int64) (*types.OrderTracking, error) {
	ctx, span := startSpan(ctx, "GetTracking", "SELECT", "order_tracking")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "order_tracking", "SELECT", time.Now())

	var status types.OrderStatus
	if err := r.db.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status); err != nil {
		fail(span, err, "DB query failed")
		return nil, api.TranslateDBError(err, fmt.Sprintf("order %d", orderID), "")
	}
	history, err := trackingHistory(ctx, r.db, orderID)
	if err != nil {
		fail(span, err, "DB query failed")
		return nil, err
	}
	return &types.OrderTracking{OrderID: orderID, Status: status, History: history}, nil
}

func (r *PostgresOrderRepo) AppendTracking(ctx context.Context, orderID int64, status types.OrderStatus, message string) (*types.OrderTracking, error) {
	ctx, span := startSpan(ctx, "AppendTracking", "INSERT", "order_tracking")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "order_tracking", "INSERT", time.Now())
	span.SetAttributes(attribute.Int64("order.id", orderID), attribute.String("order.status", string(status)))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		fail(span, err, "Begin failed")
		return nil, fmt.Errorf("beginning tracking transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current types.OrderStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&current); err != nil {
		fail(span, err, "Lock failed")
		return nil, api.TranslateDBError(err, fmt.Sprintf("order %d", orderID), "")
	}
	if !types.CanTransition(current, status) {
		return nil, types.NewConflictError(fmt.Sprintf("Cannot move order from %s to %s.", current, status))
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO order_tracking (order_id, status, message) VALUES ($1, $2, $3)`,
		orderID, status, message); err != nil {
		fail(span, err, "Tracking insert failed")
		return nil, fmt.Errorf("inserting tracking event: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, orderID); err != nil {
		fail(span, err, "Status update failed")
		return nil, fmt.Errorf("updating order status: %w", err)
	}
	history, err := trackingHistory(ctx, tx, orderID)
	if err != nil {
		fail(span, err, "DB query failed")
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		fail(span, err, "Commit failed")
		return nil, fmt.Errorf("committing tracking event: %w", err)
	}

	r.logger.InfoContext(ctx, "Order status changed",
		slog.Int64("orderID", orderID), slog.String("from", string(current)), slog.String("to", string(status)))
	span.SetStatus(codes.Ok, "Tracking appended")
	return &types.OrderTracking{OrderID: orderID, Status: status, History: history}, nil
}
