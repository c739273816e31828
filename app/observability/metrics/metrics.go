package metrics

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the shop's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal      metric.Int64Counter
	HTTPDurationSeconds    metric.Float64Histogram
	SignupsTotal           metric.Int64Counter
	LoginsTotal            metric.Int64Counter
	PasswordResetsTotal    metric.Int64Counter
	CartAdditionsTotal     metric.Int64Counter
	OrdersPlacedTotal      metric.Int64Counter
	DbQueryDurationSeconds metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments once, from the global MeterProvider.
// Call it after the provider is installed; before that the instruments are no-ops.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("go-shop-backend")
		m := &AppMetrics{}
		var err error

		if m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
			metric.WithDescription("Total number of HTTP requests served"),
			metric.WithUnit("{request}")); err != nil {
			log.Fatalf("Metrics: Failed to create http_requests_total: %v", err)
		}
		if m.HTTPDurationSeconds, err = meter.Float64Histogram("http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s")); err != nil {
			log.Fatalf("Metrics: Failed to create http_request_duration_seconds: %v", err)
		}
		if m.SignupsTotal, err = meter.Int64Counter("signups_total",
			metric.WithDescription("Accounts created"),
			metric.WithUnit("{user}")); err != nil {
			log.Fatalf("Metrics: Failed to create signups_total: %v", err)
		}
		if m.LoginsTotal, err = meter.Int64Counter("logins_total",
			metric.WithDescription("Login attempts by outcome"),
			metric.WithUnit("{attempt}")); err != nil {
			log.Fatalf("Metrics: Failed to create logins_total: %v", err)
		}
		if m.PasswordResetsTotal, err = meter.Int64Counter("password_resets_total",
			metric.WithDescription("Password reset requests and completions"),
			metric.WithUnit("{event}")); err != nil {
			log.Fatalf("Metrics: Failed to create password_resets_total: %v", err)
		}
		if m.CartAdditionsTotal, err = meter.Int64Counter("cart_additions_total",
			metric.WithDescription("Add-to-cart operations"),
			metric.WithUnit("{item}")); err != nil {
			log.Fatalf("Metrics: Failed to create cart_additions_total: %v", err)
		}
		if m.OrdersPlacedTotal, err = meter.Int64Counter("orders_placed_total",
			metric.WithDescription("Orders created at checkout"),
			metric.WithUnit("{order}")); err != nil {
			log.Fatalf("Metrics: Failed to create orders_placed_total: %v", err)
		}
		if m.DbQueryDurationSeconds, err = meter.Float64Histogram("db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s")); err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the instruments, creating them on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}

func RecordHTTPRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.String("http.status_code", strconv.Itoa(status)),
	)
	m := Get()
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPDurationSeconds.Record(ctx, elapsed.Seconds(), attrs)
}

func RecordLogin(ctx context.Context, outcome string) {
	Get().LoginsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordSignup(ctx context.Context) {
	Get().SignupsTotal.Add(ctx, 1)
}

func RecordPasswordReset(ctx context.Context, stage string) {
	Get().PasswordResetsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func RecordCartAddition(ctx context.Context, quantity int) {
	Get().CartAdditionsTotal.Add(ctx, int64(quantity))
}

func RecordOrderPlaced(ctx context.Context) {
	Get().OrdersPlacedTotal.Add(ctx, 1)
}

// RecordDBQuery observes one query against table.
func RecordDBQuery(ctx context.Context, table, operation string, start time.Time) {
	Get().DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("db.sql.table", table),
		attribute.String("db.operation", operation),
	))
}
