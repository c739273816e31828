package analytics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMockedService(t *testing.T) (*AnalyticsServiceImpl, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	mockPool.MatchExpectationsInOrder(false)
	return NewAnalyticsService(NewPostgresAnalyticsRepo(mockPool, discardLogger()), discardLogger()), mockPool
}

func TestDailyOrdersLooksBackOneWeek(t *testing.T) {
	svc, mockPool := newMockedService(t)
	now := time.Date(2026, 6, 8, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	day := time.Date(2026, 6, 7, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery(`date_trunc\('day'`).
		WithArgs(time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)).
		WillReturnRows(pgxmock.NewRows([]string{"period", "orders"}).AddRow(day, int64(3)))

	counts, err := svc.DailyOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, int64(3), counts[0].Orders)
	assert.True(t, counts[0].Period.Equal(day))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTopCustomersLimitsToTen(t *testing.T) {
	svc, mockPool := newMockedService(t)
	mockPool.ExpectQuery(`FROM users u\s+JOIN orders o`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "email", "first_name", "last_name", "orders"}).
			AddRow(int64(7), "ana@example.com", "Ana", "Silva", int64(12)))

	customers, err := svc.TopCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "ana@example.com", customers[0].Email)
	assert.Equal(t, int64(12), customers[0].Orders)
}

func TestSummaryRunsAllReports(t *testing.T) {
	svc, mockPool := newMockedService(t)
	month := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery(`date_trunc\('month'`).
		WillReturnRows(pgxmock.NewRows([]string{"period", "orders"}).AddRow(month, int64(40)))
	mockPool.ExpectQuery(`date_trunc\('day'`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"period", "orders"}))
	mockPool.ExpectQuery(`FROM users u`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "email", "first_name", "last_name", "orders"}))

	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Len(t, sum.Monthly, 1)
	assert.NotNil(t, sum.Daily)
	assert.Empty(t, sum.Daily)
	assert.NotNil(t, sum.TopCustomers)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSummaryFailsWhenAnyReportFails(t *testing.T) {
	svc, mockPool := newMockedService(t)
	boom := errors.New("connection reset")

	mockPool.ExpectQuery(`date_trunc\('month'`).WillReturnError(boom)
	mockPool.ExpectQuery(`date_trunc\('day'`).WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"period", "orders"}))
	mockPool.ExpectQuery(`FROM users u`).WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "email", "first_name", "last_name", "orders"}))

	_, err := svc.Summary(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestHandlerEncodesEmptyReportAsArray(t *testing.T) {
	svc, mockPool := newMockedService(t)
	mockPool.ExpectQuery(`date_trunc\('month'`).
		WillReturnRows(pgxmock.NewRows([]string{"period", "orders"}))

	h := NewHandlerImpl(svc, discardLogger())
	rr := httptest.NewRecorder()
	h.MonthlyOrders(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/analytics/monthly-orders", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}
