package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minRefreshSecretBytes = 32

// Config contains runtime configuration values.
type Config struct {
	Environment        string
	HTTPPort           string
	DatabaseURL        string
	DBAutoMigrate      bool
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	PrivateKeyPath     string
	PublicKeyPath      string
	RefreshTokenSecret string
	PasswordHasher     string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	TokenIssuer        string
	RiskPolicyFile     string
	RequestTimeout     time.Duration
	ServiceName        string
	NodeID             int64
	RateLimitRPM       int
	TrustedProxies     []string
	TelemetryEndpoint  string
	TelemetryInsecure  bool
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	BootstrapApp       BootstrapApp
}

// BootstrapApp describes an application seeded at startup. Seeding only happens
// when both Name and APIKey are provided.
type BootstrapApp struct {
	Name           string
	APIKey         string
	AllowedOrigins []string
}

// Enabled reports whether a bootstrap application was configured.
func (b BootstrapApp) Enabled() bool {
	return b.Name != "" && b.APIKey != ""
}

// IsProduction reports whether cookies and transport should use strict settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:        getEnv("APP_ENV", "development"),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBAutoMigrate:      getBool("DB_AUTO_MIGRATE", false),
		RedisAddr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getInt("REDIS_DB", 0),
		PrivateKeyPath:     strings.TrimSpace(os.Getenv("PRIVATE_KEY_PATH")),
		PublicKeyPath:      strings.TrimSpace(os.Getenv("PUBLIC_KEY_PATH")),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
		PasswordHasher:     strings.ToLower(getEnv("PASSWORD_HASHER", "bcrypt")),
		AccessTokenTTL:     getDuration("ACCESS_TOKEN_TTL", 10*time.Minute),
		RefreshTokenTTL:    getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		TokenIssuer:        getEnv("TOKEN_ISSUER", "nubletrust"),
		RiskPolicyFile:     strings.TrimSpace(os.Getenv("RISK_POLICY_FILE")),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 5*time.Second),
		ServiceName:        getEnv("SERVICE_NAME", "nubletrust-core"),
		NodeID:             int64(getInt("NODE_ID", 1)),
		RateLimitRPM:       getInt("RATE_LIMIT_RPM", 600),
		TrustedProxies:     getList("TRUSTED_PROXIES", nil),
		TelemetryEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:  getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedMethods: getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders: getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type", "X-Api-Key"}),
		BootstrapApp: BootstrapApp{
			Name:           strings.TrimSpace(os.Getenv("BOOTSTRAP_APP_NAME")),
			APIKey:         strings.TrimSpace(os.Getenv("BOOTSTRAP_APP_API_KEY")),
			AllowedOrigins: getList("BOOTSTRAP_APP_ORIGINS", nil),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.PrivateKeyPath == "" || c.PublicKeyPath == "" {
		return fmt.Errorf("PRIVATE_KEY_PATH and PUBLIC_KEY_PATH are required")
	}
	if len(c.RefreshTokenSecret) < minRefreshSecretBytes {
		return fmt.Errorf("REFRESH_TOKEN_SECRET must be at least %d bytes", minRefreshSecretBytes)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}
	if c.PasswordHasher != "bcrypt" && c.PasswordHasher != "argon2id" {
		return fmt.Errorf("PASSWORD_HASHER must be bcrypt or argon2id")
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("NODE_ID must be between 0 and 1023")
	}
	if (c.BootstrapApp.Name == "") != (c.BootstrapApp.APIKey == "") {
		return fmt.Errorf("BOOTSTRAP_APP_NAME and BOOTSTRAP_APP_API_KEY must be set together")
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
