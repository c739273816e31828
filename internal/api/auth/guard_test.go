package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

func TestRequireRole(t *testing.T) {
	roles := []types.Role{types.RoleUser, types.RoleAdmin, types.RoleMerchant}

	for _, actual := range roles {
		for _, expected := range roles {
			t.Run(string(actual)+"_needs_"+string(expected), func(t *testing.T) {
				user := &types.User{ID: 1, Role: actual}
				got, err := RequireRole(user, expected)
				if actual == expected {
					require.NoError(t, err)
					assert.Same(t, user, got)
					return
				}
				assert.Nil(t, got)
				assert.ErrorIs(t, err, types.ErrForbidden)

				var forbidden *types.ForbiddenError
				require.True(t, errors.As(err, &forbidden))
				assert.Equal(t, actual, forbidden.Actual)
				assert.Equal(t, []types.Role{expected}, forbidden.Required)
			})
		}
	}
}

func TestRequireAnyRole(t *testing.T) {
	_, err := RequireAnyRole(nil, types.RoleAdmin)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)

	merchant := &types.User{Role: types.RoleMerchant}
	_, err = RequireAnyRole(merchant, types.RoleAdmin, types.RoleMerchant)
	assert.NoError(t, err)

	_, err = RequireAnyRole(&types.User{Role: types.RoleUser}, types.RoleAdmin, types.RoleMerchant)
	assert.EqualError(t, err, "admin or merchant access required (role=user)")
}
