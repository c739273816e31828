package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/markbates/goth"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-shop-backend/app/observability/metrics"
	"github.com/FACorreiaa/go-shop-backend/config"
	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/mail"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	SignUp(ctx context.Context, req types.SignUpRequest) (*types.User, error)
	Login(ctx context.Context, email, password string) (*types.LoginResponse, error)
	// ResolveCurrentUser turns a bearer token into the stored user. The stored role wins
	// over whatever role the token claims.
	ResolveCurrentUser(ctx context.Context, token string) (*types.User, error)
	ChangePassword(ctx context.Context, user *types.User, oldPassword, newPassword string) error
	// ForgotPassword never reports whether email exists; all failures are only logged.
	ForgotPassword(ctx context.Context, email string)
	ResetPassword(ctx context.Context, token, newPassword string) error
	LoginWithProvider(ctx context.Context, providerUser goth.User) (*types.LoginResponse, error)
	SeedAdmin(ctx context.Context, email, password string) error
}

type AuthServiceImpl struct {
	logger   *slog.Logger
	repo     AuthRepo
	tokens   *TokenService
	hasher   *PasswordHasher
	mailer   mail.Sender
	resetURL string
	minLen   int
	// dummyHash keeps unknown-email logins as slow as wrong-password logins.
	dummyHash string
	// mailing tracks reset mails still being delivered in the background.
	mailing sync.WaitGroup
}

func NewAuthService(repo AuthRepo, tokens *TokenService, hasher *PasswordHasher, mailer mail.Sender, cfg config.AuthConfig, logger *slog.Logger) *AuthServiceImpl {
	minLen := cfg.MinPasswordLen
	if minLen <= 0 {
		minLen = 6
	}
	dummy, _ := hasher.Hash("timing-equaliser")
	return &AuthServiceImpl{
		logger:    logger,
		repo:      repo,
		tokens:    tokens,
		hasher:    hasher,
		mailer:    mailer,
		resetURL:  cfg.ResetPasswordURL,
		minLen:    minLen,
		dummyHash: dummy,
	}
}

func (s *AuthServiceImpl) checkPasswordLength(field, password string) error {
	if len(password) < s.minLen {
		return types.NewValidationError(field, fmt.Sprintf("must be at least %d characters", s.minLen))
	}
	return nil
}

func (s *AuthServiceImpl) SignUp(ctx context.Context, req types.SignUpRequest) (*types.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "SignUp")
	defer span.End()

	l := s.logger.With(slog.String("method", "SignUp"))

	if err := api.Validate(req); err != nil {
		span.SetStatus(codes.Error, "Invalid sign up request")
		return nil, err
	}
	if err := s.checkPasswordLength("password", req.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Hashing failed")
		return nil, err
	}

	user := &types.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         types.RoleUser,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}

	created, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			l.InfoContext(ctx, "Sign up with existing email")
			span.SetStatus(codes.Error, "Email already registered")
			return nil, fmt.Errorf("signing up: %w", types.NewConflictError("Email already registered"))
		}
		l.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create user failed")
		return nil, fmt.Errorf("signing up: %w", err)
	}

	metrics.RecordSignup(ctx)
	l.InfoContext(ctx, "User signed up", slog.Int64("userID", created.ID))
	span.SetAttributes(attribute.Int64("user.id", created.ID))
	span.SetStatus(codes.Ok, "User signed up")
	return created, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*types.LoginResponse, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()

	l := s.logger.With(slog.String("method", "Login"))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		l.ErrorContext(ctx, "Failed to look up user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	hash := s.dummyHash
	if user != nil {
		hash = user.PasswordHash
	}
	if !s.hasher.Verify(password, hash) || user == nil {
		metrics.RecordLogin(ctx, "rejected")
		l.InfoContext(ctx, "Login rejected")
		span.SetStatus(codes.Error, "Invalid credentials")
		return nil, fmt.Errorf("incorrect email or password: %w", types.ErrUnauthenticated)
	}

	token, err := s.tokens.IssueAccess(user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token issue failed")
		return nil, err
	}

	metrics.RecordLogin(ctx, "success")
	l.InfoContext(ctx, "User logged in", slog.Int64("userID", user.ID))
	span.SetStatus(codes.Ok, "Logged in")
	return &types.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *AuthServiceImpl) ResolveCurrentUser(ctx context.Context, token string) (*types.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ResolveCurrentUser")
	defer span.End()

	claims, err := s.tokens.Validate(token, PurposeAccess)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid token")
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			span.SetStatus(codes.Error, "Unknown subject")
			return nil, fmt.Errorf("token subject no longer exists: %w", types.ErrUnauthenticated)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		return nil, fmt.Errorf("resolving current user: %w", err)
	}

	if claims.Role != "" && claims.Role != user.Role {
		s.logger.DebugContext(ctx, "Token role differs from stored role",
			slog.Int64("userID", user.ID),
			slog.String("token_role", string(claims.Role)),
			slog.String("stored_role", string(user.Role)))
	}
	span.SetAttributes(attribute.Int64("user.id", user.ID), attribute.String("user.role", string(user.Role)))
	span.SetStatus(codes.Ok, "Resolved")
	return user, nil
}

func (s *AuthServiceImpl) ChangePassword(ctx context.Context, user *types.User, oldPassword, newPassword string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ChangePassword", trace.WithAttributes(
		attribute.Int64("user.id", user.ID),
	))
	defer span.End()

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		span.SetStatus(codes.Error, "Old password mismatch")
		return types.NewValidationError("old_password", "is incorrect")
	}
	if err := s.checkPasswordLength("new_password", newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return fmt.Errorf("changing password: %w", err)
	}
	s.logger.InfoContext(ctx, "Password changed", slog.Int64("userID", user.ID))
	span.SetStatus(codes.Ok, "Password changed")
	return nil
}

func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ForgotPassword")
	defer span.End()

	l := s.logger.With(slog.String("method", "ForgotPassword"))
	metrics.RecordPasswordReset(ctx, "requested")

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			l.ErrorContext(ctx, "Failed to look up user for reset", slog.Any("error", err))
			span.RecordError(err)
		}
		return
	}

	token, err := s.tokens.IssueReset(user.Email)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue reset token", slog.Any("error", err))
		span.RecordError(err)
		return
	}

	body := fmt.Sprintf("Hello %s,\n\nUse the link below to reset your password. It expires soon.\n\n%s\n",
		user.FirstName, s.resetLink(token))

	// Delivery happens off the request so known and unknown emails answer equally fast.
	mailCtx := context.WithoutCancel(ctx)
	s.mailing.Add(1)
	go func() {
		defer s.mailing.Done()
		if err := s.mailer.Send(mailCtx, user.Email, "Reset your password", body); err != nil {
			l.ErrorContext(mailCtx, "Failed to send reset email", slog.Any("error", err), slog.Int64("userID", user.ID))
			return
		}
		l.InfoContext(mailCtx, "Reset mail sent", slog.Int64("userID", user.ID))
	}()
	span.SetStatus(codes.Ok, "Reset mail queued")
}

// WaitForMail blocks until every queued reset mail has been handed to the mailer.
func (s *AuthServiceImpl) WaitForMail() {
	s.mailing.Wait()
}

func (s *AuthServiceImpl) resetLink(token string) string {
	u, err := url.Parse(s.resetURL)
	if err != nil || s.resetURL == "" {
		return "/reset-password?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *AuthServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ResetPassword")
	defer span.End()

	claims, err := s.tokens.Validate(token, PurposePasswordReset)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid reset token")
		return err
	}
	if err := s.checkPasswordLength("new_password", newPassword); err != nil {
		return err
	}

	user, err := s.repo.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("reset subject no longer exists: %w", types.ErrUnauthenticated)
		}
		span.RecordError(err)
		return fmt.Errorf("resetting password: %w", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return fmt.Errorf("resetting password: %w", err)
	}

	metrics.RecordPasswordReset(ctx, "completed")
	s.logger.InfoContext(ctx, "Password reset", slog.Int64("userID", user.ID))
	span.SetStatus(codes.Ok, "Password reset")
	return nil
}

// LoginWithProvider signs in an OAuth user, creating a local account on first use.
// The local password is random and unknown to anyone.
func (s *AuthServiceImpl) LoginWithProvider(ctx context.Context, pu goth.User) (*types.LoginResponse, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "LoginWithProvider", trace.WithAttributes(
		attribute.String("oauth.provider", pu.Provider),
	))
	defer span.End()

	if pu.Email == "" {
		return nil, types.NewValidationError("email", "provider did not share an email address")
	}

	user, err := s.repo.GetUserByEmail(ctx, pu.Email)
	if errors.Is(err, types.ErrNotFound) {
		user, err = s.createProviderUser(ctx, pu)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Provider login failed")
		return nil, fmt.Errorf("provider login: %w", err)
	}

	token, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	metrics.RecordLogin(ctx, "oauth_"+pu.Provider)
	span.SetStatus(codes.Ok, "Logged in")
	return &types.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *AuthServiceImpl) createProviderUser(ctx context.Context, pu goth.User) (*types.User, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating password: %w", err)
	}
	hash, err := s.hasher.Hash(hex.EncodeToString(secret)[:64])
	if err != nil {
		return nil, err
	}
	user := &types.User{
		FirstName:    pu.FirstName,
		LastName:     pu.LastName,
		Email:        pu.Email,
		PasswordHash: hash,
		Role:         types.RoleUser,
	}
	if pu.AvatarURL != "" {
		user.Avatar = &pu.AvatarURL
	}
	created, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	metrics.RecordSignup(ctx)
	return created, nil
}

// SeedAdmin creates the bootstrap admin account when it does not exist yet.
// An existing account is left untouched, including its role.
func (s *AuthServiceImpl) SeedAdmin(ctx context.Context, email, password string) error {
	l := s.logger.With(slog.String("method", "SeedAdmin"))
	if email == "" || password == "" {
		l.DebugContext(ctx, "No bootstrap admin configured")
		return nil
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != types.RoleAdmin {
			l.WarnContext(ctx, "Bootstrap admin email belongs to a non-admin account", slog.String("role", string(existing.Role)))
		}
		return nil
	case !errors.Is(err, types.ErrNotFound):
		return fmt.Errorf("checking bootstrap admin: %w", err)
	}

	if err := s.checkPasswordLength("admin.password", password); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	_, err = s.repo.CreateUser(ctx, &types.User{
		FirstName:    "Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         types.RoleAdmin,
	})
	if err != nil && !errors.Is(err, types.ErrConflict) {
		return fmt.Errorf("creating bootstrap admin: %w", err)
	}
	l.InfoContext(ctx, "Bootstrap admin ensured", slog.String("email", email))
	return nil
}
