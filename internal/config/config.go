// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultJWTSecret   = "your-secret-key-change-in-production"
	defaultAdminSecret = "change-me-admin-secret"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env            string `mapstructure:"APP_ENV"`
	Port           string `mapstructure:"PORT"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`
	DevSeed        bool   `mapstructure:"DEV_SEED"`

	DBDriver                 string `mapstructure:"DB_DRIVER"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBPath                   string `mapstructure:"DB_PATH"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	RedisURL         string `mapstructure:"REDIS_URL"`
	BroadcastBackend string `mapstructure:"BROADCAST_BACKEND"`

	JWTSecret              string `mapstructure:"JWT_SECRET"`
	AdminSecret            string `mapstructure:"ADMIN_SECRET"`
	AdminPassword          string `mapstructure:"ADMIN_PASSWORD"`
	AdminPasswordHash      string `mapstructure:"ADMIN_PASSWORD_HASH"`
	AdminUserIDs           string `mapstructure:"ADMIN_USER_IDS"`
	AdminSessionTTLMinutes int    `mapstructure:"ADMIN_SESSION_TTL_MINUTES"`

	RateLimitEnabled           bool   `mapstructure:"RATE_LIMIT_ENABLED"`
	RateLimitBackend           string `mapstructure:"RATE_LIMIT_BACKEND"`
	RateLimitSweepSeconds      int    `mapstructure:"RATE_LIMIT_SWEEP_SECONDS"`
	ChatRateLimit              int    `mapstructure:"CHAT_RATE_LIMIT"`
	ChatRateWindowSeconds      int    `mapstructure:"CHAT_RATE_WINDOW_SECONDS"`
	CommentRateLimit           int    `mapstructure:"COMMENT_RATE_LIMIT"`
	CommentRateWindowSeconds   int    `mapstructure:"COMMENT_RATE_WINDOW_SECONDS"`
	SubscribeRateLimit         int    `mapstructure:"SUBSCRIBE_RATE_LIMIT"`
	SubscribeRateWindowSeconds int    `mapstructure:"SUBSCRIBE_RATE_WINDOW_SECONDS"`

	ModerationMaxLength     int     `mapstructure:"MODERATION_MAX_LENGTH"`
	ModerationCapsRatio     float64 `mapstructure:"MODERATION_CAPS_RATIO"`
	ModerationCapsMinLength int     `mapstructure:"MODERATION_CAPS_MIN_LENGTH"`
	ModerationMaxRepeat     int     `mapstructure:"MODERATION_MAX_REPEAT"`
	ModerationDenylist      string  `mapstructure:"MODERATION_DENYLIST"`
	ModerationRulesFile     string  `mapstructure:"MODERATION_RULES_FILE"`
	ModerateComments        bool    `mapstructure:"MODERATE_COMMENTS"`

	SweepEnabled         bool `mapstructure:"SWEEP_ENABLED"`
	SweepIntervalSeconds int  `mapstructure:"SWEEP_INTERVAL_SECONDS"`
	PostCacheTTLSeconds  int  `mapstructure:"POST_CACHE_TTL_SECONDS"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; env vars alone are enough to boot.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("DEV_SEED", false)

	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "inkwell")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_PATH", "inkwell.db")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)

	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("BROADCAST_BACKEND", "redis")

	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("ADMIN_SECRET", defaultAdminSecret)
	viper.SetDefault("ADMIN_PASSWORD", "")
	viper.SetDefault("ADMIN_PASSWORD_HASH", "")
	viper.SetDefault("ADMIN_USER_IDS", "")
	viper.SetDefault("ADMIN_SESSION_TTL_MINUTES", 720)

	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_BACKEND", "memory")
	viper.SetDefault("RATE_LIMIT_SWEEP_SECONDS", 60)
	viper.SetDefault("CHAT_RATE_LIMIT", 10)
	viper.SetDefault("CHAT_RATE_WINDOW_SECONDS", 60)
	viper.SetDefault("COMMENT_RATE_LIMIT", 5)
	viper.SetDefault("COMMENT_RATE_WINDOW_SECONDS", 60)
	viper.SetDefault("SUBSCRIBE_RATE_LIMIT", 10)
	viper.SetDefault("SUBSCRIBE_RATE_WINDOW_SECONDS", 600)

	viper.SetDefault("MODERATION_MAX_LENGTH", 2000)
	viper.SetDefault("MODERATION_CAPS_RATIO", 0.7)
	viper.SetDefault("MODERATION_CAPS_MIN_LENGTH", 10)
	viper.SetDefault("MODERATION_MAX_REPEAT", 10)
	viper.SetDefault("MODERATION_DENYLIST", "spam,fuck,shit,bitch")
	viper.SetDefault("MODERATION_RULES_FILE", "")
	viper.SetDefault("MODERATE_COMMENTS", true)

	viper.SetDefault("SWEEP_ENABLED", true)
	viper.SetDefault("SWEEP_INTERVAL_SECONDS", 60)
	viper.SetDefault("POST_CACHE_TTL_SECONDS", 300)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", c.DBDriver)
	}
	switch c.RateLimitBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported RATE_LIMIT_BACKEND %q (want memory or redis)", c.RateLimitBackend)
	}
	switch c.BroadcastBackend {
	case "redis", "local":
	default:
		return fmt.Errorf("unsupported BROADCAST_BACKEND %q (want redis or local)", c.BroadcastBackend)
	}

	if c.ChatRateLimit <= 0 || c.CommentRateLimit <= 0 || c.SubscribeRateLimit <= 0 {
		return errors.New("rate limits must be positive")
	}
	if c.ChatRateWindowSeconds <= 0 || c.CommentRateWindowSeconds <= 0 || c.SubscribeRateWindowSeconds <= 0 {
		return errors.New("rate limit windows must be positive")
	}
	if c.SweepEnabled && c.SweepIntervalSeconds <= 0 {
		return errors.New("SWEEP_INTERVAL_SECONDS must be positive when SWEEP_ENABLED is set")
	}
	if c.ModerationMaxLength <= 0 {
		return errors.New("MODERATION_MAX_LENGTH must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.AdminSecret == "" || c.AdminSecret == defaultAdminSecret {
			return errors.New("ADMIN_SECRET must be set to a non-default value in production")
		}
		if c.DBDriver == "postgres" && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBDriver == "sqlite" {
			log.Println("WARNING: DB_DRIVER is 'sqlite' in production. Use postgres for multi-instance deployments.")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
		if c.RateLimitBackend == "memory" {
			log.Println("WARNING: RATE_LIMIT_BACKEND is 'memory'; limits are per instance.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// AdminUserIDList returns the configured administrator user ids.
func (c *Config) AdminUserIDList() []string {
	return splitList(c.AdminUserIDs)
}

// DenylistTerms returns the moderation denylist as individual terms.
func (c *Config) DenylistTerms() []string {
	return splitList(c.ModerationDenylist)
}

// AdminSessionTTL returns the lifetime of issued admin session tokens.
func (c *Config) AdminSessionTTL() time.Duration {
	if c.AdminSessionTTLMinutes <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(c.AdminSessionTTLMinutes) * time.Minute
}

// SweepInterval returns how often the publish scheduler runs.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// PostCacheTTL returns the cache lifetime for public post reads.
func (c *Config) PostCacheTTL() time.Duration {
	return time.Duration(c.PostCacheTTLSeconds) * time.Second
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
