package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// QR token length bounds. The upper bound is the width of qr_tokens.token.
const (
	MinTokenLength = 16
	MaxTokenLength = 128
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port          string `yaml:"port" env:"SERVER_PORT"`
		Mode          string `yaml:"mode" env:"SERVER_MODE"`
		PublicBaseURL string `yaml:"public_base_url" env:"SERVER_PUBLIC_BASE_URL"`
		CORSOrigins   string `yaml:"cors_origins" env:"SERVER_CORS_ORIGINS"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED"`
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`

	QR struct {
		TokenLength            int    `yaml:"token_length" env:"QR_TOKEN_LENGTH"`
		DefaultValidityMinutes int    `yaml:"default_validity_minutes" env:"QR_DEFAULT_VALIDITY_MINUTES"`
		MaxValidityMinutes     int    `yaml:"max_validity_minutes" env:"QR_MAX_VALIDITY_MINUTES"`
		ImageSize              int    `yaml:"image_size" env:"QR_IMAGE_SIZE"`
		SweepEnabled           bool   `yaml:"sweep_enabled" env:"QR_SWEEP_ENABLED"`
		SweepInterval          string `yaml:"sweep_interval" env:"QR_SWEEP_INTERVAL"`
	} `yaml:"qr"`

	RateLimit struct {
		RedeemPerMinute int `yaml:"redeem_per_minute" env:"RATE_LIMIT_REDEEM_PER_MINUTE"`
		LoginPerMinute  int `yaml:"login_per_minute" env:"RATE_LIMIT_LOGIN_PER_MINUTE"`
	} `yaml:"rate_limit"`

	Auth struct {
		AllowAdminSignup  bool `yaml:"allow_admin_signup" env:"AUTH_ALLOW_ADMIN_SIGNUP"`
		AllowLinkedSignup bool `yaml:"allow_linked_signup" env:"AUTH_ALLOW_LINKED_SIGNUP"`
	} `yaml:"auth"`

	Seed struct {
		AdminUsername string `yaml:"admin_username" env:"SEED_ADMIN_USERNAME"`
		AdminPassword string `yaml:"admin_password" env:"SEED_ADMIN_PASSWORD"`
	} `yaml:"seed"`
}

// LoadConfig loads configuration from a file, an optional .env file next to
// the working directory, and environment variables (highest precedence).
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadDotEnv(GetEnv("DOTENV_PATH", ".env")); err != nil {
		return nil, err
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadDotEnv populates the process environment from a .env file when present.
// Variables already set in the environment win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.PublicBaseURL = "http://localhost:8080/api/v1/qr/redeem"
	config.Server.CORSOrigins = "*"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "attendance"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 2
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	config.JWT.AccessTokenExpiration = "8h"
	config.JWT.Issuer = "attendance.local"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Redis.Addr = "localhost:6379"

	config.QR.TokenLength = 24
	config.QR.DefaultValidityMinutes = 5
	config.QR.MaxValidityMinutes = 240
	config.QR.ImageSize = 256
	config.QR.SweepEnabled = true
	config.QR.SweepInterval = "1m"

	config.RateLimit.RedeemPerMinute = 30
	config.RateLimit.LoginPerMinute = 20
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if config.QR.TokenLength < MinTokenLength || config.QR.TokenLength > MaxTokenLength {
		return fmt.Errorf("qr token length must be between %d and %d, got %d", MinTokenLength, MaxTokenLength, config.QR.TokenLength)
	}

	if config.QR.MaxValidityMinutes < 1 {
		return fmt.Errorf("qr max validity must be at least one minute")
	}

	if config.QR.DefaultValidityMinutes < 1 || config.QR.DefaultValidityMinutes > config.QR.MaxValidityMinutes {
		return fmt.Errorf("qr default validity must be between 1 and %d minutes", config.QR.MaxValidityMinutes)
	}

	if config.QR.SweepEnabled {
		if _, err := time.ParseDuration(config.QR.SweepInterval); err != nil {
			return fmt.Errorf("invalid qr sweep interval: %w", err)
		}
	}

	if config.Server.PublicBaseURL == "" {
		return fmt.Errorf("server public base url is required")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.Server.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
