package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by Load. Values set in the
// environment override the YAML config file.
const (
	EnvConfigPath     = "CONFIG_PATH"
	EnvDBConnection   = "DB_CONNECTION"
	EnvJWTSecret      = "JWT_SECRET"
	EnvJWTExpiry      = "JWT_EXPIRY"
	EnvBcryptCost     = "BCRYPT_COST"
	EnvGatewayKeyID   = "RAZORPAY_KEY_ID"
	EnvGatewaySecret  = "RAZORPAY_KEY_SECRET"
	EnvGoogleClientID = "GOOGLE_CLIENT_ID"
	EnvAllowedOrigins = "ALLOWED_ORIGINS"
	EnvRedisAddr      = "REDIS_ADDR"
	EnvAuthRateLimit  = "AUTH_RATE_LIMIT"
	EnvAppEnv         = "APP_ENV"
	EnvPort           = "PORT"
)

// Defaults applied when neither environment nor config file provide a value.
const (
	defaultJWTExpiry     = 7 * 24 * time.Hour
	defaultBcryptCost    = 12
	defaultAuthRateLimit = 10
	defaultTipPercent    = 18
)

// ErrMissingDatabaseDSN indicates no database DSN is present in the config.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set DB_CONNECTION or `database.dsn` in config file)")

// ErrMissingJWTSecret indicates no token signing secret is configured.
var ErrMissingJWTSecret = errors.New("missing jwt secret (set JWT_SECRET or `jwt.secret` in config file)")

// JWTConfig holds token signing secret and validity settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// GatewayConfig holds payment gateway credentials. KeyID is public and is
// returned to checkout clients; KeySecret never leaves the process.
type GatewayConfig struct {
	KeyID     string `yaml:"key-id"`
	KeySecret string `yaml:"key-secret"`
}

// Config holds resolved application configuration values.
type Config struct {
	DatabaseDSN    string
	JWT            JWTConfig
	BcryptCost     int
	Gateway        GatewayConfig
	GoogleClientID string
	AllowedOrigins []string
	RedisAddr      string
	AuthRateLimit  int
	TipPercent     int
	Production     bool
	Port           int
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// fileConfig maps the YAML fields read from the config file.
type fileConfig struct {
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	JWT            JWTConfig     `yaml:"jwt"`
	Gateway        GatewayConfig `yaml:"gateway"`
	BcryptCost     int           `yaml:"bcrypt-cost"`
	GoogleClientID string        `yaml:"google-client-id"`
	AllowedOrigins []string      `yaml:"allowed-origins"`
	RedisAddr      string        `yaml:"redis-addr"`
	AuthRateLimit  int           `yaml:"auth-rate-limit"`
	TipPercent     int           `yaml:"tip-percent"`
	Environment    string        `yaml:"environment"`
	Port           int           `yaml:"port"`
}

// Load reads the YAML config file when present and applies environment
// overrides. A missing config file is not an error; required values are
// validated after both sources are merged.
func Load(configPath string) (Config, error) {
	var file fileConfig
	if data, errRead := os.ReadFile(configPath); errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, &file); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	}

	cfg := Config{
		DatabaseDSN:    strings.TrimSpace(file.Database.DSN),
		JWT:            file.JWT,
		BcryptCost:     file.BcryptCost,
		Gateway:        file.Gateway,
		GoogleClientID: strings.TrimSpace(file.GoogleClientID),
		AllowedOrigins: file.AllowedOrigins,
		RedisAddr:      strings.TrimSpace(file.RedisAddr),
		AuthRateLimit:  file.AuthRateLimit,
		TipPercent:     file.TipPercent,
		Production:     strings.EqualFold(strings.TrimSpace(file.Environment), "production"),
		Port:           file.Port,
	}

	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		cfg.JWT.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			cfg.JWT.Expiry = expiry
		}
	}
	if costRaw := strings.TrimSpace(os.Getenv(EnvBcryptCost)); costRaw != "" {
		if cost, errParse := strconv.Atoi(costRaw); errParse == nil && cost > 0 {
			cfg.BcryptCost = cost
		}
	}
	if keyID := strings.TrimSpace(os.Getenv(EnvGatewayKeyID)); keyID != "" {
		cfg.Gateway.KeyID = keyID
	}
	if keySecret := strings.TrimSpace(os.Getenv(EnvGatewaySecret)); keySecret != "" {
		cfg.Gateway.KeySecret = keySecret
	}
	if clientID := strings.TrimSpace(os.Getenv(EnvGoogleClientID)); clientID != "" {
		cfg.GoogleClientID = clientID
	}
	if origins := strings.TrimSpace(os.Getenv(EnvAllowedOrigins)); origins != "" {
		cfg.AllowedOrigins = splitOrigins(origins)
	}
	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		cfg.RedisAddr = addr
	}
	if limitRaw := strings.TrimSpace(os.Getenv(EnvAuthRateLimit)); limitRaw != "" {
		if limit, errParse := strconv.Atoi(limitRaw); errParse == nil && limit > 0 {
			cfg.AuthRateLimit = limit
		}
	}
	if env := strings.TrimSpace(os.Getenv(EnvAppEnv)); env != "" {
		cfg.Production = strings.EqualFold(env, "production")
	}
	if portRaw := strings.TrimSpace(os.Getenv(EnvPort)); portRaw != "" {
		if port, errParse := strconv.Atoi(portRaw); errParse == nil && port > 0 {
			cfg.Port = port
		}
	}

	applyDefaults(&cfg)

	if cfg.DatabaseDSN == "" {
		return Config{}, ErrMissingDatabaseDSN
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return Config{}, ErrMissingJWTSecret
	}
	return cfg, nil
}

// applyDefaults fills zero values with documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = defaultJWTExpiry
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = defaultBcryptCost
	}
	if cfg.AuthRateLimit <= 0 {
		cfg.AuthRateLimit = defaultAuthRateLimit
	}
	if cfg.TipPercent <= 0 {
		cfg.TipPercent = defaultTipPercent
	}
}

// splitOrigins parses a comma-separated origin allowlist.
func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
