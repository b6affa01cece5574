package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds application configuration values loaded from environment variables and flags.
type Config struct {
	StoreDriver     string // postgres or memory
	DatabaseURL     string
	JWTSecret       string
	HTTPPort        string
	PublicBaseURL   string // Used to build links in shared board feeds
	TokenExpiration time.Duration
	EncryptionKey   []byte // Raw key bytes (32 for AES-256)

	AIAPIKey             string
	AIBaseURL            string
	AIModel              string
	AITimeout            time.Duration // Default upper bound for one assistant reply
	AIRateLimitPerMinute int           // Per user, on routes that call the AI gateway

	AllowedOrigins []string
	LogLevel       string
	LogFormat      string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store_driver", DriverPostgres)
	v.SetDefault("http_port", "8080")
	v.SetDefault("public_base_url", "http://localhost:8080")
	v.SetDefault("jwt_secret", "default-super-secret-key") // CHANGE THIS IN PRODUCTION!
	v.SetDefault("jwt_expiration_hours", 24)
	v.SetDefault("ai_base_url", "https://ai.gateway.lovable.dev/v1")
	v.SetDefault("ai_model", "google/gemini-2.5-flash")
	v.SetDefault("ai_timeout_seconds", 60)
	v.SetDefault("ai_rate_limit_per_minute", 20)
	v.SetDefault("cors_allowed_origins", "http://localhost:3000,http://localhost:5173,https://*.vercel.app")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// LoadConfig loads configuration from the process environment, a .env file if present,
// and any flags already bound to the global viper instance.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, using environment variables only", "error", err)
	}

	v := viper.GetViper()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return FromViper(v)
}

// FromViper builds and validates a Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		StoreDriver:          strings.ToLower(v.GetString("store_driver")),
		DatabaseURL:          v.GetString("database_url"),
		JWTSecret:            v.GetString("jwt_secret"),
		HTTPPort:             v.GetString("http_port"),
		PublicBaseURL:        v.GetString("public_base_url"),
		AIAPIKey:             v.GetString("ai_api_key"),
		AIBaseURL:            v.GetString("ai_base_url"),
		AIModel:              v.GetString("ai_model"),
		AIRateLimitPerMinute: v.GetInt("ai_rate_limit_per_minute"),
		LogLevel:             v.GetString("log_level"),
		LogFormat:            v.GetString("log_format"),
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q (expected %s or %s)", cfg.StoreDriver, DriverPostgres, DriverMemory)
	}

	tokenExpHours := v.GetInt("jwt_expiration_hours")
	if tokenExpHours <= 0 {
		slog.Warn("Invalid JWT_EXPIRATION_HOURS, using default 24h", "value", v.GetString("jwt_expiration_hours"))
		tokenExpHours = 24
	}
	cfg.TokenExpiration = time.Hour * time.Duration(tokenExpHours)

	aiTimeout := v.GetInt("ai_timeout_seconds")
	if aiTimeout <= 0 {
		aiTimeout = 60
	}
	cfg.AITimeout = time.Duration(aiTimeout) * time.Second

	key, err := loadEncryptionKey(v.GetString("encryption_key"), cfg.StoreDriver)
	if err != nil {
		return nil, err
	}
	cfg.EncryptionKey = key

	for _, origin := range strings.Split(v.GetString("cors_allowed_origins"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	slog.Info("Loaded config",
		"driver", cfg.StoreDriver,
		"port", cfg.HTTPPort,
		"token_exp", cfg.TokenExpiration,
		"ai_model", cfg.AIModel,
		"ai_timeout", cfg.AITimeout,
	)
	return cfg, nil
}

// loadEncryptionKey decodes ENCRYPTION_KEY (64 hex characters). The memory driver
// falls back to an ephemeral key since nothing it seals outlives the process.
func loadEncryptionKey(encryptionKeyHex, driver string) ([]byte, error) {
	if encryptionKeyHex == "" {
		if driver != DriverMemory {
			return nil, fmt.Errorf("ENCRYPTION_KEY environment variable is not set")
		}
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral encryption key: %w", err)
		}
		slog.Warn("ENCRYPTION_KEY not set, using an ephemeral key for the memory store")
		return key, nil
	}

	key, err := hex.DecodeString(encryptionKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ENCRYPTION_KEY from hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be 32 bytes (64 hex characters) long, got %d bytes", len(key))
	}
	return key, nil
}
