package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Pagination PaginationConfig `yaml:"pagination"`
	Auth       AuthConfig       `yaml:"auth"`
	Cache      CacheConfig      `yaml:"cache"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Feed       FeedConfig       `yaml:"feed"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds the database connection configuration.
// A DSN prefixed with "sqlite:" opens a SQLite database instead of Postgres.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// PaginationConfig controls the page size used when a request omits "limit".
type PaginationConfig struct {
	DefaultLimit int `yaml:"default_limit"`
}

// AuthConfig holds bearer-token verification settings.
type AuthConfig struct {
	JWTSecret      string   `yaml:"jwt_secret"`
	PartnerOrigins []string `yaml:"partner_origins"`
}

// CacheConfig selects the response cache backend ("memory" or "redis").
type CacheConfig struct {
	Backend    string        `yaml:"backend"`
	TTLSeconds int           `yaml:"ttl_seconds"`
	TTL        time.Duration `yaml:"-"`
	RedisAddr  string        `yaml:"redis_addr"`
	RedisDB    int           `yaml:"redis_db"`
	RedisPass  string        `yaml:"redis_password"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// FeedConfig configures the periodic import of listings from an upstream listings API.
type FeedConfig struct {
	Enabled         bool              `yaml:"enabled"`
	URL             string            `yaml:"url"`
	JurisdictionID  string            `yaml:"jurisdiction_id"`
	IntervalSeconds int               `yaml:"interval_seconds"`
	Interval        time.Duration     `yaml:"-"`
	PageSize        int               `yaml:"page_size"`
	HTTPProxy       string            `yaml:"http_proxy"`
	Headers         map[string]string `yaml:"headers"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyEnv() {
	cfg.Database.DSN = getEnv("HOUSING_DATABASE_DSN", cfg.Database.DSN)
	cfg.Auth.JWTSecret = getEnv("HOUSING_JWT_SECRET", cfg.Auth.JWTSecret)
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.Pagination.DefaultLimit <= 0 {
		cfg.Pagination.DefaultLimit = 10
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = 60
	}
	cfg.Cache.TTL = time.Duration(cfg.Cache.TTLSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Feed.IntervalSeconds <= 0 {
		cfg.Feed.IntervalSeconds = 900
	}
	cfg.Feed.Interval = time.Duration(cfg.Feed.IntervalSeconds) * time.Second
	if cfg.Feed.PageSize <= 0 {
		cfg.Feed.PageSize = 50
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
