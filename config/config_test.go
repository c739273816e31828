package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	var c Config
	c.JWT = JWTConfig{
		SecretKey:      "secret",
		AccessTokenTTL: time.Hour,
		ResetTokenTTL:  15 * time.Minute,
	}
	return c
}

func TestValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		c := validConfig()
		assert.NoError(t, c.Validate())
	})

	t.Run("MissingSecret", func(t *testing.T) {
		c := validConfig()
		c.JWT.SecretKey = "   "
		assert.ErrorIs(t, c.Validate(), ErrMissingSecret)
	})

	t.Run("ZeroTTL", func(t *testing.T) {
		c := validConfig()
		c.JWT.AccessTokenTTL = 0
		assert.Error(t, c.Validate())
	})

	t.Run("UnknownStorageDriver", func(t *testing.T) {
		c := validConfig()
		c.Storage.Driver = "ftp"
		assert.Error(t, c.Validate())
	})
}

func TestInitConfigReadsSecretFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "from-env")

	cfg, err := InitConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.SecretKey)
	assert.Equal(t, 60*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.JWT.ResetTokenTTL)
	assert.Equal(t, "disk", cfg.Storage.Driver)
}

func TestInitConfigFailsWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("JWT_SECRETKEY", "")

	_, err := InitConfig()
	assert.ErrorIs(t, err, ErrMissingSecret)
}
