package coupon

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

var _ CouponRepo = (*PostgresCouponRepo)(nil)

type CouponRepo interface {
	ListCoupons(ctx context.Context, page types.Page) ([]types.Coupon, error)
	GetCoupon(ctx context.Context, id int64) (*types.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (*types.Coupon, error)
	CreateCoupon(ctx context.Context, c types.Coupon) (*types.Coupon, error)
	UpdateCoupon(ctx context.Context, c types.Coupon) (*types.Coupon, error)
	DeleteCoupon(ctx context.Context, id int64) error
}

const duplicateCode = "Coupon code already exists."

var couponColumns = []string{
	"id", "code", "description", "discount_type", "discount_value", "minimum_purchase",
	"valid_from", "valid_to", "max_uses", "used_count", "active",
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type PostgresCouponRepo struct {
	logger *slog.Logger
	db     database.DB
}

func NewPostgresCouponRepo(db database.DB, logger *slog.Logger) *PostgresCouponRepo {
	return &PostgresCouponRepo{logger: logger, db: db}
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return otel.Tracer("CouponRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", "coupons"),
	))
}

func (r *PostgresCouponRepo) ListCoupons(ctx context.Context, page types.Page) ([]types.Coupon, error) {
	ctx, span := startSpan(ctx, "ListCoupons", "SELECT")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "coupons", "SELECT", time.Now())

	query, args, err := psql.Select(couponColumns...).From("coupons").
		OrderBy("id").Offset(page.Skip).Limit(page.Limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building coupon query: %w", err)
	}
	coupons := []types.Coupon{}
	if err := pgxscan.Select(ctx, r.db, &coupons, query, args...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	span.SetStatus(codes.Ok, "Coupons listed")
	return coupons, nil
}

func (r *PostgresCouponRepo) getBy(ctx context.Context, name string, where squirrel.Eq) (*types.Coupon, error) {
	ctx, span := startSpan(ctx, name, "SELECT")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "coupons", "SELECT", time.Now())

	query, args, err := psql.Select(couponColumns...).From("coupons").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building coupon query: %w", err)
	}
	var c types.Coupon
	if err := pgxscan.Get(ctx, r.db, &c, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("coupon: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("fetching coupon: %w", err)
	}
	return &c, nil
}

func (r *PostgresCouponRepo) GetCoupon(ctx context.Context, id int64) (*types.Coupon, error) {
	return r.getBy(ctx, "GetCoupon", squirrel.Eq{"id": id})
}

func (r *PostgresCouponRepo) GetCouponByCode(ctx context.Context, code string) (*types.Coupon, error) {
	return r.getBy(ctx, "GetCouponByCode", squirrel.Eq{"code": code})
}

func (r *PostgresCouponRepo) CreateCoupon(ctx context.Context, c types.Coupon) (*types.Coupon, error) {
	ctx, span := startSpan(ctx, "CreateCoupon", "INSERT")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "coupons", "INSERT", time.Now())

	err := r.db.QueryRow(ctx, `
		INSERT INTO coupons (code, description, discount_type, discount_value, minimum_purchase,
		                     valid_from, valid_to, max_uses, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, used_count`,
		c.Code, c.Description, c.DiscountType, c.DiscountValue, c.MinimumPurchase,
		c.ValidFrom, c.ValidTo, c.MaxUses, c.Active).Scan(&c.ID, &c.UsedCount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return nil, api.TranslateDBError(err, "inserting coupon", duplicateCode)
	}
	r.logger.InfoContext(ctx, "Coupon created", slog.Int64("couponID", c.ID), slog.String("code", c.Code))
	span.SetStatus(codes.Ok, "Coupon created")
	return &c, nil
}

func (r *PostgresCouponRepo) UpdateCoupon(ctx context.Context, c types.Coupon) (*types.Coupon, error) {
	ctx, span := startSpan(ctx, "UpdateCoupon", "UPDATE")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "coupons", "UPDATE", time.Now())

	var updated types.Coupon
	err := pgxscan.Get(ctx, r.db, &updated, `
		UPDATE coupons
		SET code = $1, description = $2, discount_type = $3, discount_value = $4,
		    minimum_purchase = $5, valid_from = $6, valid_to = $7, max_uses = $8, active = $9
		WHERE id = $10
		RETURNING `+strings.Join(couponColumns, ", "),
		c.Code, c.Description, c.DiscountType, c.DiscountValue, c.MinimumPurchase,
		c.ValidFrom, c.ValidTo, c.MaxUses, c.Active, c.ID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("coupon %d: %w", c.ID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, api.TranslateDBError(err, "updating coupon", duplicateCode)
	}
	span.SetStatus(codes.Ok, "Coupon updated")
	return &updated, nil
}

func (r *PostgresCouponRepo) DeleteCoupon(ctx context.Context, id int64) error {
	ctx, span := startSpan(ctx, "DeleteCoupon", "DELETE")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "coupons", "DELETE", time.Now())

	tag, err := r.db.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return fmt.Errorf("deleting coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("coupon %d: %w", id, types.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "Coupon deleted")
	return nil
}
