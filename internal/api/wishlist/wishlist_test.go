package wishlist

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-shop-backend/internal/api/auth"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRepo(t *testing.T) (*PostgresWishlistRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPostgresWishlistRepo(mockPool, discardLogger()), mockPool
}

func TestAddItemIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, mockPool := newRepo(t)
	svc := NewWishlistService(repo, discardLogger())
	added := time.Now().UTC()

	for range 2 {
		mockPool.ExpectExec(`ON CONFLICT \(user_id, product_id\) DO NOTHING`).
			WithArgs(int64(1), int64(9)).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mockPool.ExpectQuery("SELECT id, product_id, created_at FROM wishlist_items").
			WithArgs(int64(1), int64(9)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "created_at"}).AddRow(int64(3), int64(9), added))
	}

	first, err := svc.AddItem(ctx, 1, types.AddToWishlistRequest{ProductID: 9})
	require.NoError(t, err)
	second, err := svc.AddItem(ctx, 1, types.AddToWishlistRequest{ProductID: 9})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestAddItemUnknownProduct(t *testing.T) {
	repo, mockPool := newRepo(t)
	svc := NewWishlistService(repo, discardLogger())
	mockPool.ExpectExec("INSERT INTO wishlist_items").
		WithArgs(int64(1), int64(404)).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := svc.AddItem(context.Background(), 1, types.AddToWishlistRequest{ProductID: 404})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRemoveAbsentItemIs404(t *testing.T) {
	repo, mockPool := newRepo(t)
	h := NewHandlerImpl(NewWishlistService(repo, discardLogger()), discardLogger())
	mockPool.ExpectExec("DELETE FROM wishlist_items").
		WithArgs(int64(7), int64(12)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	r := chi.NewRouter()
	r.Delete("/wishlist/{productID}", h.RemoveItem)
	req := httptest.NewRequest(http.MethodDelete, "/wishlist/12", nil)
	req = req.WithContext(auth.WithUser(req.Context(), &types.User{ID: 7, Role: types.RoleUser}))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWishlistRequiresUser(t *testing.T) {
	repo, _ := newRepo(t)
	h := NewHandlerImpl(NewWishlistService(repo, discardLogger()), discardLogger())
	rr := httptest.NewRecorder()
	h.ListItems(rr, httptest.NewRequest(http.MethodGet, "/wishlist", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
