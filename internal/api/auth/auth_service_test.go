package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-shop-backend/config"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, user *types.User) (*types.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

type MockMailSender struct {
	mock.Mock
}

func (m *MockMailSender) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceFixture struct {
	repo    *MockAuthRepo
	mailer  *MockMailSender
	tokens  *TokenService
	hasher  *PasswordHasher
	service *AuthServiceImpl
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:   new(MockAuthRepo),
		mailer: new(MockMailSender),
		tokens: newTestTokenService(t, "secret"),
		hasher: NewPasswordHasher(bcrypt.MinCost),
	}
	f.service = NewAuthService(f.repo, f.tokens, f.hasher, f.mailer, config.AuthConfig{
		ResetPasswordURL: "http://localhost:8080/reset-password",
		MinPasswordLen:   6,
	}, discardLogger())
	return f
}

func (f *serviceFixture) storedUser(t *testing.T, email, password string, role types.Role) *types.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	return &types.User{ID: 42, FirstName: "Ada", Email: email, PasswordHash: hash, Role: role}
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	req := types.SignUpRequest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "secret1"}

	t.Run("Success", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *types.User) bool {
			return u.Email == req.Email && u.Role == types.RoleUser &&
				u.PasswordHash != req.Password && f.hasher.Verify(req.Password, u.PasswordHash)
		})).Return(&types.User{ID: 1, Email: req.Email, Role: types.RoleUser}, nil).Once()

		user, err := f.service.SignUp(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		f.repo.AssertExpectations(t)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("CreateUser", mock.Anything, mock.Anything).
			Return(nil, types.NewConflictError("Email already registered")).Once()

		_, err := f.service.SignUp(ctx, req)
		var conflict *types.ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, "Email already registered", conflict.Message)
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		f := newServiceFixture(t)
		bad := req
		bad.Email = "not-an-email"
		_, err := f.service.SignUp(ctx, bad)
		assert.ErrorIs(t, err, types.ErrValidation)
		f.repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newServiceFixture(t)
		stored := f.storedUser(t, "ada@example.com", "secret1", types.RoleUser)
		f.repo.On("GetUserByEmail", mock.Anything, "ada@example.com").Return(stored, nil).Once()

		resp, err := f.service.Login(ctx, "ada@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.Equal(t, int64(3600), resp.ExpiresIn)

		claims, err := f.tokens.Validate(resp.AccessToken, PurposeAccess)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", claims.Subject)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		f := newServiceFixture(t)
		stored := f.storedUser(t, "ada@example.com", "secret1", types.RoleUser)
		f.repo.On("GetUserByEmail", mock.Anything, "ada@example.com").Return(stored, nil).Once()

		_, err := f.service.Login(ctx, "ada@example.com", "nope")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, types.ErrNotFound).Once()

		_, err := f.service.Login(ctx, "ghost@example.com", "secret1")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("RepoFailure", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ada@example.com").Return(nil, errors.New("db down")).Once()

		_, err := f.service.Login(ctx, "ada@example.com", "secret1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, types.ErrUnauthenticated)
	})
}

func TestResolveCurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("PersistedRoleWins", func(t *testing.T) {
		f := newServiceFixture(t)
		token, err := f.tokens.Issue("ada@example.com", types.RoleAdmin, PurposeAccess, f.tokens.AccessTTL())
		require.NoError(t, err)
		f.repo.On("GetUserByEmail", mock.Anything, "ada@example.com").
			Return(&types.User{ID: 42, Email: "ada@example.com", Role: types.RoleUser}, nil).Once()

		user, err := f.service.ResolveCurrentUser(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, types.RoleUser, user.Role)
	})

	t.Run("UnknownSubject", func(t *testing.T) {
		f := newServiceFixture(t)
		token, err := f.tokens.IssueAccess(&types.User{Email: "gone@example.com", Role: types.RoleUser})
		require.NoError(t, err)
		f.repo.On("GetUserByEmail", mock.Anything, "gone@example.com").Return(nil, types.ErrNotFound).Once()

		_, err = f.service.ResolveCurrentUser(ctx, token)
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("ResetTokenRejected", func(t *testing.T) {
		f := newServiceFixture(t)
		token, err := f.tokens.IssueReset("ada@example.com")
		require.NoError(t, err)

		_, err = f.service.ResolveCurrentUser(ctx, token)
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		f.repo.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newServiceFixture(t)
		user := f.storedUser(t, "ada@example.com", "secret1", types.RoleUser)
		f.repo.On("UpdatePassword", mock.Anything, int64(42), mock.MatchedBy(func(hash string) bool {
			return f.hasher.Verify("newsecret", hash)
		})).Return(nil).Once()

		require.NoError(t, f.service.ChangePassword(ctx, user, "secret1", "newsecret"))
		f.repo.AssertExpectations(t)
	})

	t.Run("WrongOldPassword", func(t *testing.T) {
		f := newServiceFixture(t)
		user := f.storedUser(t, "ada@example.com", "secret1", types.RoleUser)
		err := f.service.ChangePassword(ctx, user, "wrong", "newsecret")
		assert.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("TooShort", func(t *testing.T) {
		f := newServiceFixture(t)
		user := f.storedUser(t, "ada@example.com", "secret1", types.RoleUser)
		err := f.service.ChangePassword(ctx, user, "secret1", "abc")
		assert.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("SendsResetLink", func(t *testing.T) {
		f := newServiceFixture(t)
		stored := f.storedUser(t, "ada@example.com", "secret1", types.RoleUser)
		f.repo.On("GetUserByEmail", mock.Anything, "ada@example.com").Return(stored, nil)

		var body string
		f.mailer.On("Send", mock.Anything, "ada@example.com", "Reset your password", mock.Anything).
			Run(func(args mock.Arguments) { body = args.String(3) }).
			Return(nil).Once()

		f.service.ForgotPassword(ctx, "ada@example.com")
		f.service.WaitForMail()
		require.Contains(t, body, "http://localhost:8080/reset-password?token=")

		token := body[strings.Index(body, "token=")+len("token="):]
		token = strings.TrimSpace(token)

		f.repo.On("UpdatePassword", mock.Anything, int64(42), mock.Anything).Return(nil).Once()
		require.NoError(t, f.service.ResetPassword(ctx, token, "brandnew"))
		f.repo.AssertExpectations(t)
	})

	t.Run("MailFailureSwallowed", func(t *testing.T) {
		f := newServiceFixture(t)
		stored := f.storedUser(t, "ada@example.com", "secret1", types.RoleUser)
		f.repo.On("GetUserByEmail", mock.Anything, "ada@example.com").Return(stored, nil).Once()
		f.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("smtp down")).Once()

		assert.NotPanics(t, func() { f.service.ForgotPassword(ctx, "ada@example.com") })
		f.service.WaitForMail()
		f.mailer.AssertExpectations(t)
	})

	t.Run("SlowMailDoesNotDelayResponse", func(t *testing.T) {
		f := newServiceFixture(t)
		stored := f.storedUser(t, "ada@example.com", "secret1", types.RoleUser)
		f.repo.On("GetUserByEmail", mock.Anything, "ada@example.com").Return(stored, nil).Once()

		release := make(chan struct{})
		f.mailer.On("Send", mock.Anything, "ada@example.com", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				<-release
				assert.NoError(t, args.Get(0).(context.Context).Err())
			}).
			Return(nil).Once()

		reqCtx, cancel := context.WithCancel(ctx)
		returned := make(chan struct{})
		go func() {
			f.service.ForgotPassword(reqCtx, "ada@example.com")
			close(returned)
		}()
		select {
		case <-returned:
		case <-time.After(2 * time.Second):
			t.Fatal("ForgotPassword waited for the mailer")
		}

		// The request ending must not cancel delivery.
		cancel()
		close(release)
		f.service.WaitForMail()
		f.mailer.AssertExpectations(t)
	})

	t.Run("UnknownEmailSendsNothing", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, types.ErrNotFound).Once()

		f.service.ForgotPassword(ctx, "ghost@example.com")
		f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("AccessTokenCannotReset", func(t *testing.T) {
		f := newServiceFixture(t)
		token, err := f.tokens.IssueAccess(&types.User{Email: "ada@example.com", Role: types.RoleUser})
		require.NoError(t, err)
		err = f.service.ResetPassword(ctx, token, "brandnew")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})
}

func TestLoginWithProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesAccountOnFirstLogin", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("GetUserByEmail", mock.Anything, "gh@example.com").Return(nil, types.ErrNotFound).Once()
		f.repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *types.User) bool {
			return u.Email == "gh@example.com" && u.Role == types.RoleUser && u.PasswordHash != ""
		})).Return(&types.User{ID: 9, Email: "gh@example.com", Role: types.RoleUser}, nil).Once()

		resp, err := f.service.LoginWithProvider(ctx, goth.User{Provider: "github", Email: "gh@example.com"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		f.repo.AssertExpectations(t)
	})

	t.Run("MissingEmail", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.LoginWithProvider(ctx, goth.User{Provider: "github"})
		assert.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesWhenMissing", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("GetUserByEmail", mock.Anything, "admin@shop.local").Return(nil, types.ErrNotFound).Once()
		f.repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *types.User) bool {
			return u.Role == types.RoleAdmin
		})).Return(&types.User{ID: 1, Role: types.RoleAdmin}, nil).Once()

		require.NoError(t, f.service.SeedAdmin(ctx, "admin@shop.local", "adminpass"))
		f.repo.AssertExpectations(t)
	})

	t.Run("ExistingLeftAlone", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("GetUserByEmail", mock.Anything, "admin@shop.local").
			Return(&types.User{ID: 1, Role: types.RoleAdmin}, nil).Once()

		require.NoError(t, f.service.SeedAdmin(ctx, "admin@shop.local", "adminpass"))
		f.repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("NotConfigured", func(t *testing.T) {
		f := newServiceFixture(t)
		require.NoError(t, f.service.SeedAdmin(ctx, "", ""))
		f.repo.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
	})
}
