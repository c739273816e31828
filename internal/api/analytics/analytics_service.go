package analytics

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

const (
	topCustomerLimit = 10
	dailyWindow      = 7 * 24 * time.Hour
)

var _ AnalyticsService = (*AnalyticsServiceImpl)(nil)

type AnalyticsService interface {
	MonthlyOrders(ctx context.Context) ([]types.PeriodCount, error)
	DailyOrders(ctx context.Context) ([]types.PeriodCount, error)
	TopCustomers(ctx context.Context) ([]types.TopCustomer, error)
	Summary(ctx context.Context) (*types.AnalyticsSummary, error)
}

type AnalyticsServiceImpl struct {
	logger *slog.Logger
	repo   AnalyticsRepo
	now    func() time.Time
}

func NewAnalyticsService(repo AnalyticsRepo, logger *slog.Logger) *AnalyticsServiceImpl {
	return &AnalyticsServiceImpl{logger: logger, repo: repo, now: time.Now}
}

func (s *AnalyticsServiceImpl) MonthlyOrders(ctx context.Context) ([]types.PeriodCount, error) {
	ctx, span := otel.Tracer("AnalyticsService").Start(ctx, "MonthlyOrders")
	defer span.End()
	return nonNil(s.repo.MonthlyOrders(ctx))
}

func (s *AnalyticsServiceImpl) DailyOrders(ctx context.Context) ([]types.PeriodCount, error) {
	ctx, span := otel.Tracer("AnalyticsService").Start(ctx, "DailyOrders")
	defer span.End()
	return nonNil(s.repo.DailyOrders(ctx, s.now().UTC().Add(-dailyWindow)))
}

func (s *AnalyticsServiceImpl) TopCustomers(ctx context.Context) ([]types.TopCustomer, error) {
	ctx, span := otel.Tracer("AnalyticsService").Start(ctx, "TopCustomers")
	defer span.End()
	return nonNil(s.repo.TopCustomers(ctx, topCustomerLimit))
}

// Summary runs the three reports concurrently; the first failure cancels the rest.
func (s *AnalyticsServiceImpl) Summary(ctx context.Context) (*types.AnalyticsSummary, error) {
	ctx, span := otel.Tracer("AnalyticsService").Start(ctx, "Summary")
	defer span.End()

	var sum types.AnalyticsSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sum.Monthly, err = s.MonthlyOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		sum.Daily, err = s.DailyOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		sum.TopCustomers, err = s.TopCustomers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Summary failed")
		s.logger.ErrorContext(ctx, "Failed to build analytics summary", slog.Any("error", err))
		return nil, err
	}
	span.SetStatus(codes.Ok, "Summary built")
	return &sum, nil
}

// nonNil keeps empty reports encoding as [] rather than null.
func nonNil[T any](rows []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}
