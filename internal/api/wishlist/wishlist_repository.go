package wishlist

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

var _ WishlistRepo = (*PostgresWishlistRepo)(nil)

type WishlistRepo interface {
	ListItems(ctx context.Context, userID int64) ([]types.WishlistItem, error)
	// AddItem is idempotent: adding a product twice returns the existing entry.
	AddItem(ctx context.Context, userID, productID int64) (*types.WishlistItem, error)
	RemoveItem(ctx context.Context, userID, productID int64) error
}

type PostgresWishlistRepo struct {
	logger *slog.Logger
	db     database.DB
}

func NewPostgresWishlistRepo(db database.DB, logger *slog.Logger) *PostgresWishlistRepo {
	return &PostgresWishlistRepo{logger: logger, db: db}
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return otel.Tracer("WishlistRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", "wishlist_items"),
	))
}

// wishlistRow flattens the joined product so it can be scanned in one pass.
type wishlistRow struct {
	types.WishlistItem
	Product types.Product `db:"product"`
}

func (r *PostgresWishlistRepo) ListItems(ctx context.Context, userID int64) ([]types.WishlistItem, error) {
	ctx, span := startSpan(ctx, "ListItems", "SELECT")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "wishlist_items", "SELECT", time.Now())

	var rows []wishlistRow
	err := pgxscan.Select(ctx, r.db, &rows, `
		SELECT w.id, w.product_id, w.created_at,
		       p.id AS "product.id", p.name AS "product.name", p.description AS "product.description",
		       p.price AS "product.price", p.discount_price AS "product.discount_price",
		       p.category_id AS "product.category_id", p.subcategory_id AS "product.subcategory_id",
		       p.colors AS "product.colors", p.sizes AS "product.sizes", p.images AS "product.images",
		       p.highlights AS "product.highlights", p.specifications AS "product.specifications",
		       p.details AS "product.details", p.in_stock AS "product.in_stock", p.rating AS "product.rating",
		       p.reviews AS "product.reviews", p.featured AS "product.featured",
		       p.best_seller AS "product.best_seller", p.new_arrival AS "product.new_arrival",
		       p.created_at AS "product.created_at", p.updated_at AS "product.updated_at"
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC, w.id DESC`, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("listing wishlist: %w", err)
	}

	items := make([]types.WishlistItem, 0, len(rows))
	for _, row := range rows {
		item := row.WishlistItem
		p := row.Product
		item.Product = &p
		items = append(items, item)
	}
	span.SetStatus(codes.Ok, "Wishlist listed")
	return items, nil
}

func (r *PostgresWishlistRepo) AddItem(ctx context.Context, userID, productID int64) (*types.WishlistItem, error) {
	ctx, span := startSpan(ctx, "AddItem", "INSERT")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "wishlist_items", "INSERT", time.Now())

	if _, err := r.db.Exec(ctx, `
		INSERT INTO wishlist_items (user_id, product_id) VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`, userID, productID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return nil, api.TranslateDBError(err, "adding wishlist item", "Product already in wishlist.")
	}

	var item types.WishlistItem
	if err := pgxscan.Get(ctx, r.db, &item,
		`SELECT id, product_id, created_at FROM wishlist_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID); err != nil {
		span.RecordError(err)
		return nil, api.TranslateDBError(err, "fetching wishlist item", "")
	}
	span.SetStatus(codes.Ok, "Item added")
	return &item, nil
}

func (r *PostgresWishlistRepo) RemoveItem(ctx context.Context, userID, productID int64) error {
	ctx, span := startSpan(ctx, "RemoveItem", "DELETE")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "wishlist_items", "DELETE", time.Now())

	tag, err := r.db.Exec(ctx,
		`DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return fmt.Errorf("removing wishlist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d not in wishlist: %w", productID, types.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "Item removed")
	return nil
}
