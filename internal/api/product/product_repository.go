package product

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
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

var _ ProductRepo = (*PostgresProductRepo)(nil)

type ProductRepo interface {
	ListProducts(ctx context.Context, filter types.ProductFilter) ([]types.Product, error)
	GetProduct(ctx context.Context, id int64) (*types.Product, error)
	CreateProduct(ctx context.Context, p types.Product) (*types.Product, error)
	// UpdateProduct writes only the columns present in changes.
	UpdateProduct(ctx context.Context, id int64, changes map[string]any) (*types.Product, error)
	// DeleteProduct returns the removed row so its images can be cleaned up.
	DeleteProduct(ctx context.Context, id int64) (*types.Product, error)
}

var productColumns = []string{
	"id", "name", "description", "price", "discount_price", "category_id", "subcategory_id",
	"colors", "sizes", "images", "highlights", "specifications", "details", "in_stock",
	"rating", "reviews", "featured", "best_seller", "new_arrival", "created_at", "updated_at",
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// likeEscaper makes LIKE wildcards in user search text match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

type PostgresProductRepo struct {
	logger *slog.Logger
	db     database.DB
}

func NewPostgresProductRepo(db database.DB, logger *slog.Logger) *PostgresProductRepo {
	return &PostgresProductRepo{logger: logger, db: db}
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return otel.Tracer("ProductRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", "products"),
	))
}

func notFound(id int64) error {
	return fmt.Errorf("product %d: %w", id, types.ErrNotFound)
}

// applyFilter narrows q by every set field of f.
func applyFilter(q squirrel.SelectBuilder, f types.ProductFilter) squirrel.SelectBuilder {
	if f.CategoryID != nil {
		q = q.Where(squirrel.Eq{"category_id": *f.CategoryID})
	}
	if f.SubcategoryID != nil {
		q = q.Where(squirrel.Eq{"subcategory_id": *f.SubcategoryID})
	}
	if f.Featured != nil {
		q = q.Where(squirrel.Eq{"featured": *f.Featured})
	}
	if f.BestSeller != nil {
		q = q.Where(squirrel.Eq{"best_seller": *f.BestSeller})
	}
	if f.NewArrival != nil {
		q = q.Where(squirrel.Eq{"new_arrival": *f.NewArrival})
	}
	if f.InStock != nil {
		q = q.Where(squirrel.Eq{"in_stock": *f.InStock})
	}
	if f.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + likeEscaper.Replace(f.Search) + "%"})
	}
	return q
}

func (r *PostgresProductRepo) ListProducts(ctx context.Context, filter types.ProductFilter) ([]types.Product, error) {
	ctx, span := startSpan(ctx, "ListProducts", "SELECT")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "products", "SELECT", time.Now())

	q := applyFilter(psql.Select(productColumns...).From("products"), filter).
		OrderBy("created_at DESC", "id DESC").
		Offset(filter.Page.Skip).
		Limit(filter.Page.Limit)
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building product query: %w", err)
	}
	span.SetAttributes(attribute.String("db.statement", query))

	products := []types.Product{}
	if err := pgxscan.Select(ctx, r.db, &products, query, args...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("listing products: %w", err)
	}
	span.SetAttributes(attribute.Int("results.count", len(products)))
	span.SetStatus(codes.Ok, "Products listed")
	return products, nil
}

func (r *PostgresProductRepo) GetProduct(ctx context.Context, id int64) (*types.Product, error) {
	ctx, span := startSpan(ctx, "GetProduct", "SELECT")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "products", "SELECT", time.Now())

	query, args, err := psql.Select(productColumns...).From("products").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building product query: %w", err)
	}
	var p types.Product
	if err := pgxscan.Get(ctx, r.db, &p, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, notFound(id)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("fetching product: %w", err)
	}
	span.SetStatus(codes.Ok, "Product found")
	return &p, nil
}

func (r *PostgresProductRepo) CreateProduct(ctx context.Context, p types.Product) (*types.Product, error) {
	ctx, span := startSpan(ctx, "CreateProduct", "INSERT")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "products", "INSERT", time.Now())

	query, args, err := psql.Insert("products").
		Columns("name", "description", "price", "discount_price", "category_id", "subcategory_id",
			"colors", "sizes", "images", "highlights", "specifications", "details",
			"in_stock", "featured", "best_seller", "new_arrival").
		Values(p.Name, p.Description, p.Price, p.DiscountPrice, p.CategoryID, p.SubcategoryID,
			nonNil(p.Colors), nonNil(p.Sizes), nonNil(p.Images), nonNil(p.Highlights), p.Specifications, p.Details,
			p.InStock, p.Featured, p.BestSeller, p.NewArrival).
		Suffix("RETURNING " + joinColumns()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert: %w", err)
	}

	var created types.Product
	if err := pgxscan.Get(ctx, r.db, &created, query, args...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return nil, api.TranslateDBError(err, "inserting product", "Product already exists.")
	}
	r.logger.InfoContext(ctx, "Product created", slog.Int64("productID", created.ID))
	span.SetStatus(codes.Ok, "Product created")
	return &created, nil
}

func (r *PostgresProductRepo) UpdateProduct(ctx context.Context, id int64, changes map[string]any) (*types.Product, error) {
	ctx, span := startSpan(ctx, "UpdateProduct", "UPDATE")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "products", "UPDATE", time.Now())

	if len(changes) == 0 {
		return r.GetProduct(ctx, id)
	}
	query, args, err := psql.Update("products").
		SetMap(changes).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update: %w", err)
	}

	var p types.Product
	if err := pgxscan.Get(ctx, r.db, &p, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, notFound(id)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, api.TranslateDBError(err, "updating product", "Product already exists.")
	}
	span.SetStatus(codes.Ok, "Product updated")
	return &p, nil
}

func (r *PostgresProductRepo) DeleteProduct(ctx context.Context, id int64) (*types.Product, error) {
	ctx, span := startSpan(ctx, "DeleteProduct", "DELETE")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "products", "DELETE", time.Now())

	query, args, err := psql.Delete("products").Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns()).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building delete: %w", err)
	}
	var p types.Product
	if err := pgxscan.Get(ctx, r.db, &p, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, notFound(id)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return nil, fmt.Errorf("deleting product: %w", err)
	}
	r.logger.InfoContext(ctx, "Product deleted", slog.Int64("productID", id))
	span.SetStatus(codes.Ok, "Product deleted")
	return &p, nil
}

func joinColumns() string {
	return strings.Join(productColumns, ", ")
}

// nonNil keeps NOT NULL array columns from receiving SQL NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// changeSet turns the provided fields of in into column assignments. images is written
// when non-nil; it already merges kept URLs and new uploads.
func changeSet(in types.ProductInput, images []string) map[string]any {
	changes := map[string]any{}
	set := func(col string, ok bool, v any) {
		if ok {
			changes[col] = v
		}
	}
	set("name", in.Name != nil, deref(in.Name))
	set("description", in.Description != nil, deref(in.Description))
	set("price", in.Price != nil, in.Price)
	set("discount_price", in.DiscountPrice != nil, in.DiscountPrice)
	set("category_id", in.CategoryID != nil, in.CategoryID)
	set("subcategory_id", in.SubcategoryID != nil, in.SubcategoryID)
	set("colors", in.Colors != nil, in.Colors)
	set("sizes", in.Sizes != nil, in.Sizes)
	set("highlights", in.Highlights != nil, in.Highlights)
	set("images", images != nil, images)
	set("specifications", in.Specifications != nil, deref(in.Specifications))
	set("details", in.Details != nil, deref(in.Details))
	set("in_stock", in.InStock != nil, in.InStock)
	set("featured", in.Featured != nil, in.Featured)
	set("best_seller", in.BestSeller != nil, in.BestSeller)
	set("new_arrival", in.NewArrival != nil, in.NewArrival)
	return changes
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
