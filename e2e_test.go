package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/suite"

	"github.com/FACorreiaa/go-shop-backend/config"
	"github.com/FACorreiaa/go-shop-backend/internal/api/auth"
	"github.com/FACorreiaa/go-shop-backend/internal/container"
	"github.com/FACorreiaa/go-shop-backend/internal/router"
	"github.com/FACorreiaa/go-shop-backend/internal/storage"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

var userColumns = []string{
	"id", "first_name", "last_name", "email", "password_hash", "role", "avatar", "phone",
	"address_line1", "address_line2", "city", "region", "postal_code", "country",
	"created_at", "updated_at",
}

const password = "s3cret!"

// outbox records mail instead of sending it.
type outbox struct {
	mu   sync.Mutex
	sent []string
}

func (o *outbox) Send(_ context.Context, to, _, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, to+"\n"+body)
	return nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

// E2ETestSuite drives the real router and services over a mocked pgx pool.
type E2ETestSuite struct {
	suite.Suite
	server   *httptest.Server
	client   *http.Client
	mockPool pgxmock.PgxPoolIface
	mail     *outbox
	auth     *auth.AuthServiceImpl
	hash     string
}

func (s *E2ETestSuite) SetupSuite() {
	hash, err := auth.NewPasswordHasher(4).Hash(password)
	s.Require().NoError(err)
	s.hash = hash
	s.client = &http.Client{Timeout: 10 * time.Second}
}

// SetupTest gives every test a fresh pool so expectations never leak between them.
func (s *E2ETestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mockPool, err := pgxmock.NewPool()
	s.Require().NoError(err)
	s.mockPool = mockPool

	store, err := storage.NewDiskStorage(s.T().TempDir(), "/static")
	s.Require().NoError(err)

	var cfg config.Config
	cfg.JWT = config.JWTConfig{
		SecretKey:      "e2e-secret",
		Issuer:         "go-shop-backend",
		AccessTokenTTL: time.Hour,
		ResetTokenTTL:  15 * time.Minute,
	}
	cfg.Auth = config.AuthConfig{BcryptCost: 4, MinPasswordLen: 6, ResetPasswordURL: "http://shop.test/reset"}
	cfg.Storage.MaxUploadMB = 1

	s.mail = &outbox{}
	c, err := container.Build(mockPool, store, s.mail, &cfg, logger)
	s.Require().NoError(err)
	s.auth = c.AuthService

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.StripSlashes)
	mux.Mount("/", router.SetupRouter(&router.Config{
		AuthHandler:            c.AuthHandler,
		UserHandler:            c.UserHandler,
		CategoryHandler:        c.CategoryHandler,
		ProductHandler:         c.ProductHandler,
		CartHandler:            c.CartHandler,
		WishlistHandler:        c.WishlistHandler,
		CouponHandler:          c.CouponHandler,
		OrderHandler:           c.OrderHandler,
		AnalyticsHandler:       c.AnalyticsHandler,
		AuthenticateMiddleware: c.Authenticate(),
		Logger:                 logger,
		AllowedOrigins:         []string{"http://localhost:5173"},
	}))
	s.server = httptest.NewServer(mux)
}

func (s *E2ETestSuite) TearDownTest() {
	s.server.Close()
	s.NoError(s.mockPool.ExpectationsWereMet())
	s.mockPool.Close()
}

func (s *E2ETestSuite) userRow(id int64, email string, role types.Role) *pgxmock.Rows {
	var none *string
	now := time.Now().UTC()
	return pgxmock.NewRows(userColumns).AddRow(
		id, "Ada", "Lovelace", email, s.hash, role, none, none,
		none, none, none, none, none, none, now, now,
	)
}

// expectUser queues the lookup Authenticate and Login perform for email.
func (s *E2ETestSuite) expectUser(id int64, email string, role types.Role) {
	s.mockPool.ExpectQuery("FROM users WHERE email = \\$1").
		WithArgs(email).
		WillReturnRows(s.userRow(id, email, role))
}

func (s *E2ETestSuite) do(method, path, token string, body any) (*http.Response, map[string]any) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		s.Require().NoError(json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

// login exchanges credentials for a token; the lookup is queued for the caller's role.
func (s *E2ETestSuite) login(id int64, email string, role types.Role) string {
	s.expectUser(id, email, role)
	resp, body := s.do(http.MethodPost, "/api/v1/login", "", map[string]string{"email": email, "password": password})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("bearer", body["token_type"])
	return body["access_token"].(string)
}

func (s *E2ETestSuite) TestPing() {
	resp, err := s.client.Get(s.server.URL + "/ping")
	s.Require().NoError(err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("pong", string(raw))
}

func (s *E2ETestSuite) TestSignUpLoginAndRoleGuard() {
	now := time.Now().UTC()
	s.mockPool.ExpectBegin()
	s.mockPool.ExpectQuery("INSERT INTO users").
		WithArgs("Ada", "Lovelace", "ada@example.com", pgxmock.AnyArg(), types.RoleUser, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))
	s.mockPool.ExpectExec("INSERT INTO user_settings").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	s.mockPool.ExpectCommit()

	resp, body := s.do(http.MethodPost, "/api/v1/signUp", "", map[string]string{
		"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com", "password": password,
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("user", body["role"])
	s.NotContains(body, "password_hash")

	token := s.login(7, "ada@example.com", types.RoleUser)

	s.expectUser(7, "ada@example.com", types.RoleUser)
	resp, body = s.do(http.MethodGet, "/api/v1/me", token, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("ada@example.com", body["email"])

	s.expectUser(7, "ada@example.com", types.RoleUser)
	resp, body = s.do(http.MethodGet, "/api/v1/users", token, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal(false, body["success"])
}

func (s *E2ETestSuite) TestWrongPasswordIsUnauthorized() {
	s.expectUser(7, "ada@example.com", types.RoleUser)
	resp, body := s.do(http.MethodPost, "/api/v1/login", "", map[string]string{"email": "ada@example.com", "password": "nope!!"})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("Incorrect email or password", body["error"])
	s.Equal("Bearer", resp.Header.Get("WWW-Authenticate"))
}

func (s *E2ETestSuite) TestProtectedRoutesNeedToken() {
	resp, _ := s.do(http.MethodGet, "/api/v1/cart", "", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/api/v1/orders", "not-a-jwt", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *E2ETestSuite) TestForgotPasswordAnswersTheSameForUnknownEmail() {
	s.mockPool.ExpectQuery("FROM users WHERE email = \\$1").
		WithArgs("ghost@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns))
	s.expectUser(7, "ada@example.com", types.RoleUser)

	unknownResp, unknownBody := s.do(http.MethodPost, "/api/v1/forgot-password", "", map[string]string{"email": "ghost@example.com"})
	knownResp, knownBody := s.do(http.MethodPost, "/api/v1/forgot-password", "", map[string]string{"email": "ada@example.com"})

	s.Equal(http.StatusOK, unknownResp.StatusCode)
	s.Equal(knownResp.StatusCode, unknownResp.StatusCode)
	s.Equal(types.ForgotPasswordMessage, unknownBody["message"])
	s.Equal(unknownBody, knownBody)
	s.auth.WaitForMail()
	s.Equal(1, s.mail.count())
}

func (s *E2ETestSuite) TestAddingSameProductTwiceAccumulates() {
	token := s.login(7, "ada@example.com", types.RoleUser)
	itemColumns := []string{"id", "user_id", "product_id", "quantity", "name", "unit_price", "image"}
	var noImage *string

	for _, step := range []struct{ add, total int }{{2, 2}, {3, 5}} {
		s.expectUser(7, "ada@example.com", types.RoleUser)
		s.mockPool.ExpectQuery("INSERT INTO cart_items").
			WithArgs(int64(7), int64(5), step.add).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(40)))
		s.mockPool.ExpectQuery(`WHERE ci.id = \$1 AND ci.user_id = \$2`).
			WithArgs(int64(40), int64(7)).
			WillReturnRows(pgxmock.NewRows(itemColumns).AddRow(int64(40), int64(7), int64(5), step.total, "Tee", "10.00", noImage))

		resp, body := s.do(http.MethodPost, "/api/v1/cart", token, map[string]int{"product_id": 5, "quantity": step.add})
		s.Require().Equal(http.StatusCreated, resp.StatusCode)
		s.Equal(float64(40), body["id"])
		s.Equal(float64(step.total), body["quantity"])
	}
}

func (s *E2ETestSuite) TestDuplicateCouponCodeIsRejected() {
	token := s.login(1, "admin@example.com", types.RoleAdmin)

	s.expectUser(1, "admin@example.com", types.RoleAdmin)
	s.mockPool.ExpectQuery("INSERT INTO coupons").
		WithArgs("SPRING10", pgxmock.AnyArg(), types.DiscountPercentage, pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), true).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "coupons_code_key"})

	resp, body := s.do(http.MethodPost, "/api/v1/coupons", token, map[string]any{
		"code":           "SPRING10",
		"discount_type":  "percentage",
		"discount_value": "10",
		"valid_from":     "2026-03-01T00:00:00Z",
		"valid_to":       "2026-06-01T00:00:00Z",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("Coupon code already exists.", body["error"])
}

func (s *E2ETestSuite) TestTrackingNeedsFulfilmentRole() {
	userToken := s.login(7, "ada@example.com", types.RoleUser)
	s.expectUser(7, "ada@example.com", types.RoleUser)
	resp, _ := s.do(http.MethodPost, "/api/v1/orders/100/tracking", userToken, map[string]string{"status": "shipped"})
	s.Equal(http.StatusForbidden, resp.StatusCode)

	merchantToken := s.login(3, "ops@example.com", types.RoleMerchant)
	placed := time.Now().UTC().Add(-time.Hour)
	s.expectUser(3, "ops@example.com", types.RoleMerchant)
	s.mockPool.ExpectBegin()
	s.mockPool.ExpectQuery(`SELECT status FROM orders WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(types.OrderProcessing))
	s.mockPool.ExpectExec("INSERT INTO order_tracking").
		WithArgs(int64(100), types.OrderShipped, "Left the warehouse").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	s.mockPool.ExpectExec("UPDATE orders SET status").
		WithArgs(types.OrderShipped, int64(100)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	s.mockPool.ExpectQuery("FROM order_tracking").
		WithArgs(int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "order_id", "status", "message", "timestamp"}).
			AddRow(int64(1), int64(100), types.OrderProcessing, "Order placed", placed).
			AddRow(int64(2), int64(100), types.OrderShipped, "Left the warehouse", time.Now().UTC()))
	s.mockPool.ExpectCommit()

	resp, body := s.do(http.MethodPost, "/api/v1/orders/100/tracking", merchantToken,
		map[string]string{"status": "shipped", "message": "Left the warehouse"})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("shipped", body["status"])
	s.Len(body["history"], 2)

	// The owner reading the order afterwards sees the new status.
	orderColumns := []string{"id", "reference", "user_id", "status", "subtotal", "discount", "total", "coupon_code", "created_at", "updated_at"}
	var noCoupon *string
	productID := int64(5)
	s.expectUser(7, "ada@example.com", types.RoleUser)
	s.mockPool.ExpectQuery(`FROM orders WHERE id = \$1`).
		WithArgs(int64(100)).
		WillReturnRows(pgxmock.NewRows(orderColumns).AddRow(
			int64(100), uuid.New(), int64(7), types.OrderShipped, "20.00", "0", "20.00", noCoupon, placed, time.Now().UTC()))
	s.mockPool.ExpectQuery(`FROM order_items WHERE order_id = \$1`).
		WithArgs(int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "name", "unit_price", "quantity"}).
			AddRow(int64(1), &productID, "Tee", "10.00", 2))

	resp, body = s.do(http.MethodGet, "/api/v1/orders/100", userToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("shipped", body["status"])
	s.Equal(float64(7), body["user_id"])
}

func TestE2ETestSuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
