package auth

import (
	"slices"

	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

// RequireRole passes the user through only on an exact role match. There is no hierarchy:
// an admin does not satisfy a merchant requirement.
func RequireRole(user *types.User, expected types.Role) (*types.User, error) {
	return RequireAnyRole(user, expected)
}

// RequireAnyRole passes when the user's role equals one of roles.
func RequireAnyRole(user *types.User, roles ...types.Role) (*types.User, error) {
	if user == nil {
		return nil, types.ErrUnauthenticated
	}
	if slices.Contains(roles, user.Role) {
		return user, nil
	}
	return nil, &types.ForbiddenError{Required: roles, Actual: user.Role}
}
