package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	DB        DBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Supabase  SupabaseConfig
	Stripe    StripeConfig
	Checkout  CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Supabase.validate(); err != nil {
		return nil, err
	}
	cfg.Checkout.DefaultCurrency = strings.ToLower(strings.TrimSpace(cfg.Checkout.DefaultCurrency))
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PAYINTENT_APP_ENV" required:"true"`
	Port         string `envconfig:"PAYINTENT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PAYINTENT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAYINTENT_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"PAYINTENT_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `envconfig:"PAYINTENT_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"PAYINTENT_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"PAYINTENT_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	// DistinctErrorStatus maps each error kind to its own HTTP status instead of 400.
	DistinctErrorStatus bool `envconfig:"PAYINTENT_HTTP_DISTINCT_ERROR_STATUS" default:"false"`
}

type DBConfig struct {
	DSN             string        `envconfig:"PAYINTENT_DB_DSN" required:"true"`
	MaxOpenConns    int           `envconfig:"PAYINTENT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAYINTENT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAYINTENT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAYINTENT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// RLSRole is assumed with SET LOCAL ROLE for caller-scoped statements. Empty skips it.
	RLSRole string `envconfig:"PAYINTENT_DB_RLS_ROLE" default:"authenticated"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYINTENT_REDIS_URL"`
	PoolSize     int           `envconfig:"PAYINTENT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYINTENT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYINTENT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYINTENT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"PAYINTENT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type RateLimitConfig struct {
	Window   time.Duration `envconfig:"PAYINTENT_RATE_LIMIT_WINDOW" default:"1m"`
	PerIP    int           `envconfig:"PAYINTENT_RATE_LIMIT_PER_IP" default:"30"`
	PerToken int           `envconfig:"PAYINTENT_RATE_LIMIT_PER_TOKEN" default:"10"`

	// TrustedProxyHops is how many proxies in front of the service append to X-Forwarded-For.
	TrustedProxyHops int `envconfig:"PAYINTENT_RATE_LIMIT_TRUSTED_PROXY_HOPS" default:"1"`
}

type SupabaseConfig struct {
	URL     string `envconfig:"SUPABASE_URL" required:"true"`
	AnonKey string `envconfig:"SUPABASE_ANON_KEY" required:"true"`
	// JWTSecret switches identity resolution to local token verification.
	JWTSecret   string        `envconfig:"SUPABASE_JWT_SECRET"`
	JWTAudience string        `envconfig:"SUPABASE_JWT_AUDIENCE" default:"authenticated"`
	AuthTimeout time.Duration `envconfig:"SUPABASE_AUTH_TIMEOUT" default:"10s"`
}

func (s SupabaseConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(s.URL))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", EnvSupabaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid %s: scheme must be http or https", EnvSupabaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid %s: host is required", EnvSupabaseURL)
	}
	return nil
}

// UsesLocalJWT reports whether tokens are verified in-process.
func (s SupabaseConfig) UsesLocalJWT() bool {
	return strings.TrimSpace(s.JWTSecret) != ""
}

type StripeConfig struct {
	SecretKey string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	Env       string `envconfig:"PAYINTENT_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	ProductName     string `envconfig:"PAYINTENT_PRODUCT_NAME" default:"BLDR Fitness"`
	DefaultCurrency string `envconfig:"PAYINTENT_DEFAULT_CURRENCY" default:"brl"`
}
