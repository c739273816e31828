package user

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

func TestPostgresUserRepo(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	newRepo := func(t *testing.T) (*PostgresUserRepo, pgxmock.PgxPoolIface) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		t.Cleanup(mockPool.Close)
		return NewPostgresUserRepo(mockPool, discardLogger()), mockPool
	}

	t.Run("UpdateProfileOnlySetsGivenFields", func(t *testing.T) {
		repo, mockPool := newRepo(t)
		city := "Porto"
		var none *string
		mockPool.ExpectQuery(`UPDATE users SET city = \$1, updated_at = NOW\(\) WHERE id = \$2 RETURNING`).
			WithArgs("Porto", int64(3)).
			WillReturnRows(pgxmock.NewRows(profileColumns).AddRow(
				int64(3), "Ada", "L", "ada@example.com", "$2a$hash", types.RoleUser, none, none,
				none, none, &city, none, none, none, now, now))

		u, err := repo.UpdateProfile(ctx, 3, types.UpdateProfileParams{City: &city})
		require.NoError(t, err)
		assert.Equal(t, "Porto", *u.City)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("UpdateRoleMissingUser", func(t *testing.T) {
		repo, mockPool := newRepo(t)
		mockPool.ExpectQuery("UPDATE users SET").
			WithArgs(types.RoleAdmin, int64(99)).
			WillReturnRows(pgxmock.NewRows(profileColumns))

		_, err := repo.UpdateRole(ctx, 99, types.RoleAdmin)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("GetSettingsDefaultsWhenMissing", func(t *testing.T) {
		repo, mockPool := newRepo(t)
		mockPool.ExpectQuery("SELECT user_id, email, offers, updates FROM user_settings").
			WithArgs(int64(5)).
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "email", "offers", "updates"}))

		s, err := repo.GetSettings(ctx, 5)
		require.NoError(t, err)
		assert.True(t, s.Email && s.Offers && s.Updates)
	})

	t.Run("UpdateSettingsUpserts", func(t *testing.T) {
		repo, mockPool := newRepo(t)
		off := false
		mockPool.ExpectQuery("INSERT INTO user_settings").
			WithArgs(int64(5), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "email", "offers", "updates"}).
				AddRow(int64(5), true, false, true))

		s, err := repo.UpdateSettings(ctx, 5, types.UpdateSettingsParams{Offers: &off})
		require.NoError(t, err)
		assert.False(t, s.Offers)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
