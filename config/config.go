package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// HTTP API
	Server ServerConfig `mapstructure:"server"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	// Metadata resolution
	Resolver ResolverConfig `mapstructure:"resolver"`

	// Image proxy thumbnails
	Thumbnail ThumbnailConfig `mapstructure:"thumbnail"`

	// Capture clients
	Capture CaptureConfig `mapstructure:"capture"`

	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	SessionSecret string        `mapstructure:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	AllowOrigins  string        `mapstructure:"allow_origins"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	Database          string `mapstructure:"database"`
	Port              int    `mapstructure:"port"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type PrometheusConfig struct {
	Port int `mapstructure:"port"`
}

type ResolverConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryMax     int           `mapstructure:"retry_max"`
	UserAgent    string        `mapstructure:"user_agent"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	// BlockPrivate refuses fetches that resolve to loopback or private ranges.
	BlockPrivate bool `mapstructure:"block_private"`
}

type ThumbnailConfig struct {
	// ProxyPath is the relative image proxy endpoint written into thumb URLs.
	ProxyPath string `mapstructure:"proxy_path"`
	// ProxyBaseURL is where the warmup worker reaches the proxy; empty disables warmup.
	ProxyBaseURL string `mapstructure:"proxy_base_url"`
}

type CaptureConfig struct {
	APIBaseURL string        `mapstructure:"api_base_url"`
	Token      string        `mapstructure:"token"`
	Debounce   time.Duration `mapstructure:"debounce"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.session_ttl", 24*time.Hour)
	v.SetDefault("server.allow_origins", "*")

	v.SetDefault("resolver.timeout", 8*time.Second)
	v.SetDefault("resolver.retry_max", 1)
	v.SetDefault("resolver.user_agent", "PowerMarkBot/1.0 (+metadata)")
	v.SetDefault("resolver.max_body_bytes", 2<<20)
	v.SetDefault("resolver.cache_ttl", 10*time.Minute)
	v.SetDefault("resolver.block_private", true)

	v.SetDefault("thumbnail.proxy_path", "/api/image-proxy")

	v.SetDefault("capture.api_base_url", "http://localhost:8080/api")
	v.SetDefault("capture.debounce", 500*time.Millisecond)
	v.SetDefault("capture.timeout", 15*time.Second)

	v.SetDefault("ratelimit.max_requests", 60)
	v.SetDefault("ratelimit.window", time.Minute)
}

func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.session_secret", "SESSION_SECRET")
	v.BindEnv("server.session_ttl", "SESSION_TTL")
	v.BindEnv("server.allow_origins", "CORS_ALLOW_ORIGINS")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.enabled", "NATS_ENABLED")
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")

	// Resolver
	v.BindEnv("resolver.timeout", "RESOLVER_TIMEOUT")
	v.BindEnv("resolver.cache_ttl", "RESOLVER_CACHE_TTL")
	v.BindEnv("resolver.block_private", "RESOLVER_BLOCK_PRIVATE")

	// Thumbnails
	v.BindEnv("thumbnail.proxy_path", "IMAGE_PROXY_PATH")
	v.BindEnv("thumbnail.proxy_base_url", "IMAGE_PROXY_BASE_URL")

	// Capture
	v.BindEnv("capture.api_base_url", "POWERMARK_API")
	v.BindEnv("capture.token", "POWERMARK_TOKEN")
	v.BindEnv("capture.debounce", "CAPTURE_DEBOUNCE")
}
