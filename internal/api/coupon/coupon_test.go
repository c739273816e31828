package coupon

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

type MockCouponRepo struct {
	mock.Mock
}

func (m *MockCouponRepo) ListCoupons(ctx context.Context, page types.Page) ([]types.Coupon, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Coupon), args.Error(1)
}

func (m *MockCouponRepo) GetCoupon(ctx context.Context, id int64) (*types.Coupon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Coupon), args.Error(1)
}

func (m *MockCouponRepo) GetCouponByCode(ctx context.Context, code string) (*types.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Coupon), args.Error(1)
}

func (m *MockCouponRepo) CreateCoupon(ctx context.Context, c types.Coupon) (*types.Coupon, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Coupon), args.Error(1)
}

func (m *MockCouponRepo) UpdateCoupon(ctx context.Context, c types.Coupon) (*types.Coupon, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Coupon), args.Error(1)
}

func (m *MockCouponRepo) DeleteCoupon(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	from = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
)

func validRequest() types.CouponRequest {
	return types.CouponRequest{
		Code:          "SPRING10",
		DiscountType:  types.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		ValidFrom:     from,
		ValidTo:       to,
	}
}

func TestCreateCouponValidation(t *testing.T) {
	svc := NewCouponService(new(MockCouponRepo), discardLogger())
	ctx := context.Background()

	req := validRequest()
	req.DiscountValue = decimal.NewFromInt(150)
	_, err := svc.CreateCoupon(ctx, req)
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "discount_value")

	req = validRequest()
	req.ValidTo = from.Add(-time.Hour)
	_, err = svc.CreateCoupon(ctx, req)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "valid_to")

	req = validRequest()
	req.DiscountType = "bogus"
	_, err = svc.CreateCoupon(ctx, req)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestCreateCouponDefaultsActive(t *testing.T) {
	repo := new(MockCouponRepo)
	svc := NewCouponService(repo, discardLogger())
	repo.On("CreateCoupon", mock.Anything, mock.MatchedBy(func(c types.Coupon) bool {
		return c.Active && c.Code == "SPRING10"
	})).Return(&types.Coupon{ID: 1, Code: "SPRING10", Active: true}, nil)

	c, err := svc.CreateCoupon(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, c.Active)
}

func TestValidateCoupon(t *testing.T) {
	repo := new(MockCouponRepo)
	svc := NewCouponService(repo, discardLogger())
	svc.now = func() time.Time { return from.Add(24 * time.Hour) }
	maxUses := 5

	repo.On("GetCouponByCode", mock.Anything, "SPRING10").Return(&types.Coupon{
		Code: "SPRING10", DiscountType: types.DiscountPercentage, DiscountValue: decimal.NewFromInt(10),
		MinimumPurchase: decimal.NewFromInt(20), ValidFrom: from, ValidTo: to, Active: true,
		MaxUses: &maxUses, UsedCount: 1,
	}, nil)
	repo.On("GetCouponByCode", mock.Anything, "NOPE").Return(nil, types.ErrNotFound)

	quote, err := svc.ValidateCoupon(context.Background(), types.ValidateCouponRequest{
		Code: " SPRING10 ", Subtotal: decimal.RequireFromString("45.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, "4.55", quote.Discount.StringFixed(2))
	assert.Equal(t, "40.95", quote.Total.StringFixed(2))

	_, err = svc.ValidateCoupon(context.Background(), types.ValidateCouponRequest{
		Code: "SPRING10", Subtotal: decimal.NewFromInt(5),
	})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = svc.ValidateCoupon(context.Background(), types.ValidateCouponRequest{
		Code: "NOPE", Subtotal: decimal.NewFromInt(50),
	})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestDuplicateCouponCodeIsConflict(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("INSERT INTO coupons").
		WithArgs("SPRING10", "", types.DiscountPercentage, pgxmock.AnyArg(), pgxmock.AnyArg(),
			from, to, (*int)(nil), true).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "coupons_code_key"})

	h := NewHandlerImpl(NewCouponService(NewPostgresCouponRepo(mockPool, discardLogger()), discardLogger()), discardLogger())
	r := chi.NewRouter()
	r.Post("/coupons", h.CreateCoupon)

	body := `{"code":"SPRING10","discount_type":"percentage","discount_value":"10",
		"valid_from":"2026-01-01T00:00:00Z","valid_to":"2026-12-31T00:00:00Z"}`
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/coupons", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), duplicateCode)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestDeleteMissingCoupon(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	mockPool.ExpectExec("DELETE FROM coupons").WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewPostgresCouponRepo(mockPool, discardLogger())
	assert.ErrorIs(t, repo.DeleteCoupon(context.Background(), 4), types.ErrNotFound)
}
