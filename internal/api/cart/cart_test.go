package cart

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/api/auth"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

type MockCartRepo struct {
	mock.Mock
}

func (m *MockCartRepo) ListItems(ctx context.Context, userID int64) ([]types.CartItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.CartItem), args.Error(1)
}

func (m *MockCartRepo) AddItem(ctx context.Context, userID, productID int64, quantity int) (*types.CartItem, error) {
	args := m.Called(ctx, userID, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CartItem), args.Error(1)
}

func (m *MockCartRepo) UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) (*types.CartItem, error) {
	args := m.Called(ctx, userID, itemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CartItem), args.Error(1)
}

func (m *MockCartRepo) RemoveItem(ctx context.Context, userID, itemID int64) error {
	return m.Called(ctx, userID, itemID).Error(0)
}

func (m *MockCartRepo) Clear(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubtotal(t *testing.T) {
	items := []types.CartItem{
		{UnitPrice: decimal.RequireFromString("9.99"), Quantity: 2},
		{UnitPrice: decimal.RequireFromString("0.02"), Quantity: 5},
	}
	assert.Equal(t, "20.08", Subtotal(items).StringFixed(2))
	assert.True(t, Subtotal(nil).IsZero())
}

func TestAddItemUnknownProduct(t *testing.T) {
	repo := new(MockCartRepo)
	svc := NewCartService(repo, discardLogger())
	repo.On("AddItem", mock.Anything, int64(1), int64(99), 1).
		Return(nil, fmt.Errorf("adding cart item: %w", api.ErrReferenceMissing))

	_, err := svc.AddItem(context.Background(), 1, types.AddToCartRequest{ProductID: 99, Quantity: 1})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAddItemValidatesQuantity(t *testing.T) {
	svc := NewCartService(new(MockCartRepo), discardLogger())
	_, err := svc.AddItem(context.Background(), 1, types.AddToCartRequest{ProductID: 3, Quantity: 0})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestPostgresCartRepo(t *testing.T) {
	ctx := context.Background()
	itemColumns := []string{"id", "user_id", "product_id", "quantity", "name", "unit_price", "image"}

	newRepo := func(t *testing.T) (*PostgresCartRepo, pgxmock.PgxPoolIface) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		t.Cleanup(mockPool.Close)
		return NewPostgresCartRepo(mockPool, discardLogger()), mockPool
	}

	t.Run("DoubleAddAccumulatesIntoOneRow", func(t *testing.T) {
		repo, mockPool := newRepo(t)
		var noImage *string
		upsert := `INSERT INTO cart_items \(user_id, product_id, quantity\)\s+VALUES \(\$1, \$2, \$3\)\s+ON CONFLICT \(user_id, product_id\)\s+DO UPDATE SET quantity = cart_items.quantity \+ EXCLUDED.quantity`

		mockPool.ExpectQuery(upsert).WithArgs(int64(1), int64(5), 2).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(40)))
		mockPool.ExpectQuery(`WHERE ci.id = \$1 AND ci.user_id = \$2`).WithArgs(int64(40), int64(1)).
			WillReturnRows(pgxmock.NewRows(itemColumns).AddRow(int64(40), int64(1), int64(5), 2, "Tee", "10.00", noImage))
		mockPool.ExpectQuery(upsert).WithArgs(int64(1), int64(5), 3).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(40)))
		mockPool.ExpectQuery(`WHERE ci.id = \$1 AND ci.user_id = \$2`).WithArgs(int64(40), int64(1)).
			WillReturnRows(pgxmock.NewRows(itemColumns).AddRow(int64(40), int64(1), int64(5), 5, "Tee", "10.00", noImage))

		first, err := repo.AddItem(ctx, 1, 5, 2)
		require.NoError(t, err)
		second, err := repo.AddItem(ctx, 1, 5, 3)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 5, second.Quantity)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("AddMissingProductIsReferenceError", func(t *testing.T) {
		repo, mockPool := newRepo(t)
		mockPool.ExpectQuery("INSERT INTO cart_items").WithArgs(int64(1), int64(404), 1).
			WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "cart_items_product_id_fkey"})

		_, err := repo.AddItem(ctx, 1, 404, 1)
		assert.ErrorIs(t, err, api.ErrReferenceMissing)
	})

	t.Run("UpdateSomeoneElsesItem", func(t *testing.T) {
		repo, mockPool := newRepo(t)
		mockPool.ExpectExec("UPDATE cart_items SET quantity").WithArgs(4, int64(40), int64(2)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		_, err := repo.UpdateQuantity(ctx, 2, 40, 4)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("RemoveSomeoneElsesItem", func(t *testing.T) {
		repo, mockPool := newRepo(t)
		mockPool.ExpectExec("DELETE FROM cart_items WHERE id").WithArgs(int64(40), int64(2)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.RemoveItem(ctx, 2, 40), types.ErrNotFound)
	})

	t.Run("ClearReturnsCount", func(t *testing.T) {
		repo, mockPool := newRepo(t)
		mockPool.ExpectExec("DELETE FROM cart_items WHERE user_id").WithArgs(int64(2)).
			WillReturnResult(pgxmock.NewResult("DELETE", 3))

		n, err := repo.Clear(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}

func TestCartHandler(t *testing.T) {
	repo := new(MockCartRepo)
	h := NewHandlerImpl(NewCartService(repo, discardLogger()), discardLogger())
	user := &types.User{ID: 7, Role: types.RoleUser}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithUser(req.Context(), user)))
		})
	})
	r.Get("/cart", h.GetCart)
	r.Post("/cart", h.AddItem)
	r.Delete("/cart/{itemID}", h.RemoveItem)

	repo.On("AddItem", mock.Anything, int64(7), int64(5), 2).
		Return(&types.CartItem{ID: 1, UserID: 7, ProductID: 5, Quantity: 2}, nil)
	repo.On("ListItems", mock.Anything, int64(7)).
		Return([]types.CartItem{{ID: 1, ProductID: 5, Quantity: 2, UnitPrice: decimal.NewFromInt(3)}}, nil)
	repo.On("RemoveItem", mock.Anything, int64(7), int64(55)).
		Return(fmt.Errorf("cart item 55: %w", types.ErrNotFound))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/cart", strings.NewReader(`{"product_id":5,"quantity":2}`)))
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cart", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"subtotal":"6"`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/cart/55", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
