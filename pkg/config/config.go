package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	LocalStore LocalStoreConfig
	Auth       AuthConfig
	Sync       SyncConfig
	Membership MembershipConfig
	Sequence   SequenceConfig
	OTel       OTelConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Debug       bool
	Version     string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings for the remote store.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr returns the Redis address.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LocalStoreConfig selects the durable local store backend.
type LocalStoreConfig struct {
	Driver    string // memory, sqlite, redis
	Path      string // sqlite database file
	KeyPrefix string // redis key prefix
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	JWTSecret      string
	SessionTimeout time.Duration // time box for the initial session lookup
}

// SyncConfig holds mutation queue / sync engine settings.
type SyncConfig struct {
	MaxAttempts int // per queued item before dead-lettering; 0 retries forever
}

// MembershipConfig holds membership resolver settings.
type MembershipConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	OverrideTTL time.Duration
}

// SequenceConfig holds order code allocator settings.
type SequenceConfig struct {
	Prefix   string
	PadWidth int
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled       bool
	ServiceName   string
	CollectorAddr string
}

// Load loads configuration from a .env file (when present) and environment
// variables, applying defaults and validating the result.
func Load() (*Config, error) {
	return LoadWithPath(".env")
}

// LoadWithPath loads configuration from a specific file path.
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	// Env vars alone are enough; a missing file is not an error.
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := bindConfig(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "vendaflow")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "1.0.0")

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_DBNAME", "vendaflow")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 20)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "1h")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	v.SetDefault("LOCALSTORE_DRIVER", "sqlite")
	v.SetDefault("LOCALSTORE_PATH", "vendaflow.db")
	v.SetDefault("LOCALSTORE_KEY_PREFIX", "vendaflow")

	v.SetDefault("AUTH_JWT_SECRET", "change-me-in-production")
	v.SetDefault("AUTH_SESSION_TIMEOUT", "2s")

	v.SetDefault("SYNC_MAX_ATTEMPTS", 5)

	v.SetDefault("MEMBERSHIP_MAX_ATTEMPTS", 4)
	v.SetDefault("MEMBERSHIP_RETRY_DELAY", "1500ms")
	v.SetDefault("MEMBERSHIP_OVERRIDE_TTL", "5s")

	v.SetDefault("SEQUENCE_PREFIX", "PED")
	v.SetDefault("SEQUENCE_PAD_WIDTH", 6)

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "vendaflow")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
}

func bindConfig(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.Version = v.GetString("APP_VERSION")

	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")

	cfg.Database.Host = v.GetString("DATABASE_HOST")
	cfg.Database.Port = v.GetInt("DATABASE_PORT")
	cfg.Database.User = v.GetString("DATABASE_USER")
	cfg.Database.Password = v.GetString("DATABASE_PASSWORD")
	cfg.Database.DBName = v.GetString("DATABASE_DBNAME")
	cfg.Database.SSLMode = v.GetString("DATABASE_SSLMODE")
	cfg.Database.MaxOpenConns = v.GetInt("DATABASE_MAX_OPEN_CONNS")
	cfg.Database.ConnMaxLifetime = v.GetDuration("DATABASE_CONN_MAX_LIFETIME")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	cfg.LocalStore.Driver = v.GetString("LOCALSTORE_DRIVER")
	cfg.LocalStore.Path = v.GetString("LOCALSTORE_PATH")
	cfg.LocalStore.KeyPrefix = v.GetString("LOCALSTORE_KEY_PREFIX")

	cfg.Auth.JWTSecret = v.GetString("AUTH_JWT_SECRET")
	cfg.Auth.SessionTimeout = v.GetDuration("AUTH_SESSION_TIMEOUT")

	cfg.Sync.MaxAttempts = v.GetInt("SYNC_MAX_ATTEMPTS")

	cfg.Membership.MaxAttempts = v.GetInt("MEMBERSHIP_MAX_ATTEMPTS")
	cfg.Membership.RetryDelay = v.GetDuration("MEMBERSHIP_RETRY_DELAY")
	cfg.Membership.OverrideTTL = v.GetDuration("MEMBERSHIP_OVERRIDE_TTL")

	cfg.Sequence.Prefix = v.GetString("SEQUENCE_PREFIX")
	cfg.Sequence.PadWidth = v.GetInt("SEQUENCE_PAD_WIDTH")

	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.LocalStore.Driver {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown localstore driver: %s", c.LocalStore.Driver)
	}

	if c.LocalStore.Driver == "sqlite" && c.LocalStore.Path == "" {
		return fmt.Errorf("localstore path is required for the sqlite driver")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.App.Environment == "production" && c.Auth.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT secret must be changed in production")
	}

	if c.Sync.MaxAttempts < 0 {
		return fmt.Errorf("sync max attempts must not be negative")
	}

	if c.Membership.MaxAttempts <= 0 {
		return fmt.Errorf("membership max attempts must be positive")
	}

	if c.Sequence.PadWidth <= 0 {
		return fmt.Errorf("sequence pad width must be positive")
	}

	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
