package analytics

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
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

var _ AnalyticsRepo = (*PostgresAnalyticsRepo)(nil)

type AnalyticsRepo interface {
	MonthlyOrders(ctx context.Context) ([]types.PeriodCount, error)
	// DailyOrders counts orders per UTC day created at or after since.
	DailyOrders(ctx context.Context, since time.Time) ([]types.PeriodCount, error)
	TopCustomers(ctx context.Context, limit int) ([]types.TopCustomer, error)
}

type PostgresAnalyticsRepo struct {
	logger *slog.Logger
	db     database.DB
}

func NewPostgresAnalyticsRepo(db database.DB, logger *slog.Logger) *PostgresAnalyticsRepo {
	return &PostgresAnalyticsRepo{logger: logger, db: db}
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer("AnalyticsRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "orders"),
	))
}

func (r *PostgresAnalyticsRepo) MonthlyOrders(ctx context.Context) ([]types.PeriodCount, error) {
	ctx, span := startSpan(ctx, "MonthlyOrders")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "orders", "SELECT", time.Now())

	var counts []types.PeriodCount
	err := pgxscan.Select(ctx, r.db, &counts, `
		SELECT date_trunc('month', created_at AT TIME ZONE 'UTC') AS period, COUNT(*) AS orders
		FROM orders
		GROUP BY period
		ORDER BY period`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query failed")
		return nil, fmt.Errorf("counting orders per month: %w", err)
	}
	return counts, nil
}

func (r *PostgresAnalyticsRepo) DailyOrders(ctx context.Context, since time.Time) ([]types.PeriodCount, error) {
	ctx, span := startSpan(ctx, "DailyOrders")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "orders", "SELECT", time.Now())

	var counts []types.PeriodCount
	err := pgxscan.Select(ctx, r.db, &counts, `
		SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS period, COUNT(*) AS orders
		FROM orders
		WHERE created_at >= $1
		GROUP BY period
		ORDER BY period`, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query failed")
		return nil, fmt.Errorf("counting orders per day: %w", err)
	}
	return counts, nil
}

func (r *PostgresAnalyticsRepo) TopCustomers(ctx context.Context, limit int) ([]types.TopCustomer, error) {
	ctx, span := startSpan(ctx, "TopCustomers")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "orders", "SELECT", time.Now())

	var customers []types.TopCustomer
	err := pgxscan.Select(ctx, r.db, &customers, `
		SELECT u.id AS user_id, u.email, u.first_name, u.last_name, COUNT(o.id) AS orders
		FROM users u
		JOIN orders o ON o.user_id = u.id
		GROUP BY u.id
		ORDER BY orders DESC, u.id
		LIMIT $1`, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query failed")
		return nil, fmt.Errorf("ranking customers: %w", err)
	}
	return customers, nil
}
