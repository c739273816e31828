package category

import (
	"context"
	"fmt"
	"log/slog"
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

var _ CategoryRepo = (*PostgresCategoryRepo)(nil)

type CategoryRepo interface {
	ListCategories(ctx context.Context) ([]types.Category, error)
	GetCategory(ctx context.Context, id int64) (*types.Category, error)
	CreateCategory(ctx context.Context, c types.Category) (*types.Category, error)
	UpdateCategory(ctx context.Context, c types.Category) (*types.Category, error)
	// DeleteCategory returns the deleted row so its image can be cleaned up.
	DeleteCategory(ctx context.Context, id int64) (*types.Category, error)

	ListSubCategories(ctx context.Context, categoryID *int64) ([]types.SubCategory, error)
	CreateSubCategory(ctx context.Context, sc types.SubCategory) (*types.SubCategory, error)
	UpdateSubCategory(ctx context.Context, sc types.SubCategory) (*types.SubCategory, error)
	DeleteSubCategory(ctx context.Context, id int64) error
}

const (
	categoryConflict    = "Category slug already exists."
	subcategoryConflict = "Subcategory slug already exists in this category."
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type PostgresCategoryRepo struct {
	logger *slog.Logger
	db     database.DB
}

func NewPostgresCategoryRepo(db database.DB, logger *slog.Logger) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{logger: logger, db: db}
}

func startSpan(ctx context.Context, name, op, table string) (context.Context, trace.Span) {
	return otel.Tracer("CategoryRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", table),
	))
}

func fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

func (r *PostgresCategoryRepo) ListCategories(ctx context.Context) ([]types.Category, error) {
	ctx, span := startSpan(ctx, "ListCategories", "SELECT", "categories")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "categories", "SELECT", time.Now())

	categories := []types.Category{}
	if err := pgxscan.Select(ctx, r.db, &categories,
		`SELECT id, name, slug, image FROM categories ORDER BY name, id`); err != nil {
		fail(span, err, "DB query failed")
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	subs, err := r.ListSubCategories(ctx, nil)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[int64][]types.SubCategory, len(categories))
	for _, sc := range subs {
		byCategory[sc.CategoryID] = append(byCategory[sc.CategoryID], sc)
	}
	for i := range categories {
		categories[i].Subcategories = byCategory[categories[i].ID]
		if categories[i].Subcategories == nil {
			categories[i].Subcategories = []types.SubCategory{}
		}
	}

	span.SetAttributes(attribute.Int("results.count", len(categories)))
	span.SetStatus(codes.Ok, "Categories listed")
	return categories, nil
}

func (r *PostgresCategoryRepo) GetCategory(ctx context.Context, id int64) (*types.Category, error) {
	ctx, span := startSpan(ctx, "GetCategory", "SELECT", "categories")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "categories", "SELECT", time.Now())

	var c types.Category
	if err := pgxscan.Get(ctx, r.db, &c,
		`SELECT id, name, slug, image FROM categories WHERE id = $1`, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("category %d: %w", id, types.ErrNotFound)
		}
		fail(span, err, "DB query failed")
		return nil, fmt.Errorf("fetching category: %w", err)
	}

	subs, err := r.ListSubCategories(ctx, &id)
	if err != nil {
		return nil, err
	}
	c.Subcategories = subs
	span.SetStatus(codes.Ok, "Category found")
	return &c, nil
}

func (r *PostgresCategoryRepo) CreateCategory(ctx context.Context, c types.Category) (*types.Category, error) {
	ctx, span := startSpan(ctx, "CreateCategory", "INSERT", "categories")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "categories", "INSERT", time.Now())

	err := r.db.QueryRow(ctx,
		`INSERT INTO categories (name, slug, image) VALUES ($1, $2, $3) RETURNING id`,
		c.Name, c.Slug, c.Image).Scan(&c.ID)
	if err != nil {
		fail(span, err, "Insert failed")
		return nil, api.TranslateDBError(err, "inserting category", categoryConflict)
	}
	c.Subcategories = []types.SubCategory{}
	span.SetStatus(codes.Ok, "Category created")
	return &c, nil
}

func (r *PostgresCategoryRepo) UpdateCategory(ctx context.Context, c types.Category) (*types.Category, error) {
	ctx, span := startSpan(ctx, "UpdateCategory", "UPDATE", "categories")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "categories", "UPDATE", time.Now())

	tag, err := r.db.Exec(ctx,
		`UPDATE categories SET name = $1, slug = $2, image = $3 WHERE id = $4`,
		c.Name, c.Slug, c.Image, c.ID)
	if err != nil {
		fail(span, err, "Update failed")
		return nil, api.TranslateDBError(err, "updating category", categoryConflict)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("category %d: %w", c.ID, types.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "Category updated")
	return r.GetCategory(ctx, c.ID)
}

func (r *PostgresCategoryRepo) DeleteCategory(ctx context.Context, id int64) (*types.Category, error) {
	ctx, span := startSpan(ctx, "DeleteCategory", "DELETE", "categories")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "categories", "DELETE", time.Now())

	var c types.Category
	if err := pgxscan.Get(ctx, r.db, &c,
		`DELETE FROM categories WHERE id = $1 RETURNING id, name, slug, image`, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("category %d: %w", id, types.ErrNotFound)
		}
		fail(span, err, "Delete failed")
		return nil, api.TranslateDBError(err, "deleting category", categoryConflict)
	}
	r.logger.InfoContext(ctx, "Category deleted", slog.Int64("categoryID", id))
	span.SetStatus(codes.Ok, "Category deleted")
	return &c, nil
}

func (r *PostgresCategoryRepo) ListSubCategories(ctx context.Context, categoryID *int64) ([]types.SubCategory, error) {
	ctx, span := startSpan(ctx, "ListSubCategories", "SELECT", "subcategories")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "subcategories", "SELECT", time.Now())

	q := psql.Select("id", "name", "slug", "category_id").From("subcategories").OrderBy("category_id", "name", "id")
	if categoryID != nil {
		q = q.Where(squirrel.Eq{"category_id": *categoryID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	subs := []types.SubCategory{}
	if err := pgxscan.Select(ctx, r.db, &subs, query, args...); err != nil {
		fail(span, err, "DB query failed")
		return nil, fmt.Errorf("listing subcategories: %w", err)
	}
	span.SetStatus(codes.Ok, "Subcategories listed")
	return subs, nil
}

func (r *PostgresCategoryRepo) CreateSubCategory(ctx context.Context, sc types.SubCategory) (*types.SubCategory, error) {
	ctx, span := startSpan(ctx, "CreateSubCategory", "INSERT", "subcategories")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "subcategories", "INSERT", time.Now())

	err := r.db.QueryRow(ctx,
		`INSERT INTO subcategories (name, slug, category_id) VALUES ($1, $2, $3) RETURNING id`,
		sc.Name, sc.Slug, sc.CategoryID).Scan(&sc.ID)
	if err != nil {
		fail(span, err, "Insert failed")
		return nil, api.TranslateDBError(err, "inserting subcategory", subcategoryConflict)
	}
	span.SetStatus(codes.Ok, "Subcategory created")
	return &sc, nil
}

func (r *PostgresCategoryRepo) UpdateSubCategory(ctx context.Context, sc types.SubCategory) (*types.SubCategory, error) {
	ctx, span := startSpan(ctx, "UpdateSubCategory", "UPDATE", "subcategories")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "subcategories", "UPDATE", time.Now())

	tag, err := r.db.Exec(ctx,
		`UPDATE subcategories SET name = $1, slug = $2, category_id = $3 WHERE id = $4`,
		sc.Name, sc.Slug, sc.CategoryID, sc.ID)
	if err != nil {
		fail(span, err, "Update failed")
		return nil, api.TranslateDBError(err, "updating subcategory", subcategoryConflict)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("subcategory %d: %w", sc.ID, types.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "Subcategory updated")
	return &sc, nil
}

func (r *PostgresCategoryRepo) DeleteSubCategory(ctx context.Context, id int64) error {
	ctx, span := startSpan(ctx, "DeleteSubCategory", "DELETE", "subcategories")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "subcategories", "DELETE", time.Now())

	tag, err := r.db.Exec(ctx, `DELETE FROM subcategories WHERE id = $1`, id)
	if err != nil {
		fail(span, err, "Delete failed")
		return fmt.Errorf("deleting subcategory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subcategory %d: %w", id, types.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "Subcategory deleted")
	return nil
}
