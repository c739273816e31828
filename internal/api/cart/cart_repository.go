package cart

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
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

var _ CartRepo = (*PostgresCartRepo)(nil)

type CartRepo interface {
	ListItems(ctx context.Context, userID int64) ([]types.CartItem, error)
	// AddItem inserts the line or adds quantity to the existing one for the same product.
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*types.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) (*types.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID int64) error
	Clear(ctx context.Context, userID int64) (int64, error)
}

// itemSelect joins the product so each line carries its current effective price.
const itemSelect = `
SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, p.name,
       CASE WHEN p.discount_price IS NOT NULL AND p.discount_price < p.price
            THEN p.discount_price ELSE p.price END AS unit_price,
       p.images[1] AS image
FROM cart_items ci
JOIN products p ON p.id = ci.product_id`

type PostgresCartRepo struct {
	logger *slog.Logger
	db     database.DB
}

func NewPostgresCartRepo(db database.DB, logger *slog.Logger) *PostgresCartRepo {
	return &PostgresCartRepo{logger: logger, db: db}
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return otel.Tracer("CartRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", "cart_items"),
	))
}

func (r *PostgresCartRepo) ListItems(ctx context.Context, userID int64) ([]types.CartItem, error) {
	ctx, span := startSpan(ctx, "ListItems", "SELECT")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "cart_items", "SELECT", time.Now())

	items := []types.CartItem{}
	if err := pgxscan.Select(ctx, r.db, &items, itemSelect+` WHERE ci.user_id = $1 ORDER BY ci.id`, userID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("listing cart items: %w", err)
	}
	span.SetStatus(codes.Ok, "Cart listed")
	return items, nil
}

// getItem reloads one line with its product fields.
func (r *PostgresCartRepo) getItem(ctx context.Context, userID, itemID int64) (*types.CartItem, error) {
	var item types.CartItem
	if err := pgxscan.Get(ctx, r.db, &item, itemSelect+` WHERE ci.id = $1 AND ci.user_id = $2`, itemID, userID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("cart item %d: %w", itemID, types.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching cart item: %w", err)
	}
	return &item, nil
}

func (r *PostgresCartRepo) AddItem(ctx context.Context, userID, productID int64, quantity int) (*types.CartItem, error) {
	ctx, span := startSpan(ctx, "AddItem", "INSERT")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "cart_items", "INSERT", time.Now())

	var itemID int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id`, userID, productID, quantity).Scan(&itemID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Upsert failed")
		return nil, api.TranslateDBError(err, "adding cart item", "Item already in cart.")
	}
	span.SetStatus(codes.Ok, "Item added")
	return r.getItem(ctx, userID, itemID)
}

func (r *PostgresCartRepo) UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) (*types.CartItem, error) {
	ctx, span := startSpan(ctx, "UpdateQuantity", "UPDATE")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "cart_items", "UPDATE", time.Now())

	tag, err := r.db.Exec(ctx,
		`UPDATE cart_items SET quantity = $1 WHERE id = $2 AND user_id = $3`, quantity, itemID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, api.TranslateDBError(err, "updating cart item", "")
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("cart item %d: %w", itemID, types.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "Quantity updated")
	return r.getItem(ctx, userID, itemID)
}

func (r *PostgresCartRepo) RemoveItem(ctx context.Context, userID, itemID int64) error {
	ctx, span := startSpan(ctx, "RemoveItem", "DELETE")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "cart_items", "DELETE", time.Now())

	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return fmt.Errorf("removing cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cart item %d: %w", itemID, types.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "Item removed")
	return nil
}

func (r *PostgresCartRepo) Clear(ctx context.Context, userID int64) (int64, error) {
	ctx, span := startSpan(ctx, "Clear", "DELETE")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "cart_items", "DELETE", time.Now())

	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return 0, fmt.Errorf("clearing cart: %w", err)
	}
	span.SetAttributes(attribute.Int64("rows.deleted", tag.RowsAffected()))
	span.SetStatus(codes.Ok, "Cart cleared")
	return tag.RowsAffected(), nil
}
