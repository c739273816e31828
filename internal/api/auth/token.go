package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FACorreiaa/go-shop-backend/config"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

// TokenPurpose keeps a reset token from being usable as a session token and vice versa.
type TokenPurpose string

const (
	PurposeAccess        TokenPurpose = "access"
	PurposePasswordReset TokenPurpose = "password_reset"
)

var ErrInvalidToken = fmt.Errorf("invalid or expired token: %w", types.ErrUnauthenticated)

// Claims is the JWT payload. Subject carries the user's email.
type Claims struct {
	Role    types.Role   `json:"role,omitempty"`
	Purpose TokenPurpose `json:"typ"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

func NewTokenService(cfg config.JWTConfig) (*TokenService, error) {
	if cfg.SecretKey == "" {
		return nil, config.ErrMissingSecret
	}
	return &TokenService{
		secret:    []byte(cfg.SecretKey),
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		accessTTL: cfg.AccessTokenTTL,
		resetTTL:  cfg.ResetTokenTTL,
		now:       time.Now,
	}, nil
}

func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// Issue signs an HS256 token for subject that expires ttl from now.
func (s *TokenService) Issue(subject string, role types.Role, purpose TokenPurpose, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Role:    role,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) IssueAccess(user *types.User) (string, error) {
	return s.Issue(user.Email, user.Role, PurposeAccess, s.accessTTL)
}

// IssueReset carries no role; it only proves control of the mailbox.
func (s *TokenService) IssueReset(email string) (string, error) {
	return s.Issue(email, "", PurposePasswordReset, s.resetTTL)
}

// Validate checks signature, algorithm, expiry, issuer, audience and purpose offline.
// Every failure wraps ErrInvalidToken; the jwt cause stays reachable through errors.Is.
func (s *TokenService) Validate(tokenString string, purpose TokenPurpose) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: token purpose %q, want %q", ErrInvalidToken, claims.Purpose, purpose)
	}
	return claims, nil
}

// tokenErrorMessage picks a client message for a Validate failure.
func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "Token has expired"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "Malformed token"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "Invalid token signature"
	default:
		return "Could not validate credentials"
	}
}
