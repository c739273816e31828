package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

type contextKey string

const currentUserKey contextKey = "currentUser"

// Authenticate resolves the bearer token into the stored user and puts it on the context.
// Requests without a valid token never reach next.
func Authenticate(service AuthService, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				l.DebugContext(ctx, "Missing Authorization header")
				w.Header().Set("WWW-Authenticate", "Bearer")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Not authenticated")
				return
			}

			headerParts := strings.Fields(authHeader)
			if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
				l.WarnContext(ctx, "Invalid Authorization header format")
				w.Header().Set("WWW-Authenticate", "Bearer")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
				return
			}

			user, err := service.ResolveCurrentUser(ctx, headerParts[1])
			if err != nil {
				if isAuthError(err) {
					l.InfoContext(ctx, "Token rejected", slog.Any("error", err))
					w.Header().Set("WWW-Authenticate", "Bearer")
					api.ErrorResponse(w, r, http.StatusUnauthorized, tokenErrorMessage(err))
					return
				}
				api.HandleError(w, r, l, err, "Failed to resolve current user")
				return
			}

			ctx = WithUser(ctx, user)
			l.DebugContext(ctx, "Authenticated", slog.Int64("userID", user.ID), slog.String("role", string(user.Role)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles rejects with 403 unless the authenticated user holds one of roles.
// Runs after Authenticate.
func RequireRoles(logger *slog.Logger, roles ...types.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := UserFromContext(r.Context())
			if _, err := RequireAnyRole(user, roles...); err != nil {
				logger.InfoContext(r.Context(), "Role check failed", slog.Any("error", err))
				api.HandleError(w, r, logger, err, "Role check failed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithUser(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, currentUserKey, user)
}

func UserFromContext(ctx context.Context) (*types.User, bool) {
	user, ok := ctx.Value(currentUserKey).(*types.User)
	return user, ok && user != nil
}

func isAuthError(err error) bool {
	return errors.Is(err, types.ErrUnauthenticated)
}
