package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// JWTConfig holds token signing settings. SecretKey must come from the environment.
type JWTConfig struct {
	SecretKey      string        `mapstructure:"secretKey"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
	AccessTokenTTL time.Duration `mapstructure:"accessTokenTTL"`
	ResetTokenTTL  time.Duration `mapstructure:"resetTokenTTL"`
}

type AuthConfig struct {
	BcryptCost       int    `mapstructure:"bcryptCost"`
	ResetPasswordURL string `mapstructure:"resetPasswordURL"`
	MinPasswordLen   int    `mapstructure:"minPasswordLen"`
}

type StorageConfig struct {
	Driver       string `mapstructure:"driver"` // disk or s3
	Dir          string `mapstructure:"dir"`
	PublicURL    string `mapstructure:"publicURL"`
	MaxUploadMB  int64  `mapstructure:"maxUploadMB"`
	S3Bucket     string `mapstructure:"s3Bucket"`
	S3Region     string `mapstructure:"s3Region"`
	S3Endpoint   string `mapstructure:"s3Endpoint"`
	S3AccessKey  string `mapstructure:"s3AccessKey"`
	S3SecretKey  string `mapstructure:"s3SecretKey"`
	S3PathStyle  bool   `mapstructure:"s3PathStyle"`
	S3PublicBase string `mapstructure:"s3PublicBase"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type OAuthProvider struct {
	ClientID     string `mapstructure:"clientID"`
	ClientSecret string `mapstructure:"clientSecret"`
	CallbackURL  string `mapstructure:"callbackURL"`
}

type OAuthConfig struct {
	SessionSecret string        `mapstructure:"sessionSecret"`
	Github        OAuthProvider `mapstructure:"github"`
	Google        OAuthProvider `mapstructure:"google"`
}

type Config struct {
	Mode         string `mapstructure:"mode"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
			MaxConns          int32  `mapstructure:"maxConns"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Metrics struct {
		Enabled     bool   `mapstructure:"enabled"`
		Port        string `mapstructure:"port"`
		ServiceName string `mapstructure:"serviceName"`
	} `mapstructure:"metrics"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
	RateLimit struct {
		AuthRequests int           `mapstructure:"authRequests"`
		AuthWindow   time.Duration `mapstructure:"authWindow"`
	} `mapstructure:"rateLimit"`
	Admin struct {
		Email    string `mapstructure:"email"`
		Password string `mapstructure:"password"`
	} `mapstructure:"admin"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Storage StorageConfig `mapstructure:"storage"`
	Mail    MailConfig    `mapstructure:"mail"`
	OAuth   OAuthConfig   `mapstructure:"oauth"`
}

var ErrMissingSecret = errors.New("jwt secret key is not configured")

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Secrets are never committed; JWT_SECRETKEY, MAIL_PASSWORD etc. override the file.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("jwt.secretKey", "JWT_SECRET_KEY", "JWT_SECRETKEY")
	_ = v.BindEnv("repositories.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("admin.password", "ADMIN_PASSWORD")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err = config.Validate(); err != nil {
		return Config{}, err
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.SecretKey) == "" {
		return ErrMissingSecret
	}
	if c.JWT.AccessTokenTTL <= 0 {
		return fmt.Errorf("jwt.accessTokenTTL must be positive, got %s", c.JWT.AccessTokenTTL)
	}
	if c.JWT.ResetTokenTTL <= 0 {
		return fmt.Errorf("jwt.resetTokenTTL must be positive, got %s", c.JWT.ResetTokenTTL)
	}
	switch c.Storage.Driver {
	case "", "disk", "s3":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}
