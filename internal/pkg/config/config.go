package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	cenv "github.com/caarlos0/env/v10"

	"github.com/futapp/futapp-api/internal/pkg/env"
)

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

type Config struct {
	App       App       `envPrefix:"APP_"`
	Database  Database  `envPrefix:"DB_"`
	Cache     Cache     `envPrefix:"CACHE_"`
	Payme     Payme     `envPrefix:"PAYME_"`
	Webhook   Webhook   `envPrefix:"WEBHOOK_"`
	CORS      CORS      `envPrefix:"CORS_"`
	Metrics   Metrics   `envPrefix:"METRICS_"`
	RateLimit RateLimit `envPrefix:"API_RATE_LIMIT_"`
	Archive   Archive   `envPrefix:"ARCHIVE_"`
}

type App struct {
	Env  string `env:"ENV" envDefault:"prod"`
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port string `env:"PORT" envDefault:"4000"`
	Name string `env:"NAME" envDefault:"futapp-api"`
	// ProxyHeader names the header carrying the client address, e.g.
	// X-Forwarded-For. It is only honoured for requests from TrustedProxies.
	ProxyHeader    string   `env:"PROXY_HEADER"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

type Database struct {
	Driver      string        `env:"DRIVER" envDefault:"mysql"`
	DSN         string        `env:"DSN"`
	Host        string        `env:"HOST" envDefault:"127.0.0.1"`
	Port        string        `env:"PORT" envDefault:"3306"`
	User        string        `env:"USER"`
	Password    string        `env:"PASSWORD"`
	Name        string        `env:"NAME" envDefault:"futapp"`
	MaxRetries  int           `env:"MAX_RETRIES" envDefault:"5"`
	RetryDelay  time.Duration `env:"RETRY_DELAY" envDefault:"5s"`
	AutoMigrate bool          `env:"AUTO_MIGRATE" envDefault:"false"`
}

type Cache struct {
	Enabled  bool   `env:"ENABLED" envDefault:"true"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type Payme struct {
	Login              string        `env:"LOGIN" envDefault:"Paycom"`
	Key                string        `env:"KEY"`
	PreviousKey        string        `env:"PREVIOUS_KEY"`
	AccountField       string        `env:"ACCOUNT_FIELD" envDefault:"order_id"`
	AllowedIPs         []string      `env:"ALLOWED_IPS" envSeparator:","`
	TransactionTimeout time.Duration `env:"TRANSACTION_TIMEOUT" envDefault:"12h"`
}

type Webhook struct {
	Timeout           time.Duration `env:"TIMEOUT" envDefault:"15s"`
	DownstreamTimeout time.Duration `env:"DOWNSTREAM_TIMEOUT" envDefault:"3s"`
	LockTTL           time.Duration `env:"LOCK_TTL" envDefault:"30s"`
	LockBackend       string        `env:"LOCK_BACKEND" envDefault:"memory"`
}

type CORS struct {
	AllowOrigins     []string `env:"ALLOW_ORIGINS" envSeparator:","`
	AllowCredentials bool     `env:"ALLOW_CREDENTIALS" envDefault:"false"`
}

type Metrics struct {
	User     string `env:"USER" envDefault:"admin"`
	Password string `env:"PASSWORD"`
}

type RateLimit struct {
	Max    int           `env:"MAX" envDefault:"120"`
	Window time.Duration `env:"WINDOW" envDefault:"1m"`
}

type Archive struct {
	Enabled         bool   `env:"ENABLED" envDefault:"false"`
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" envDefault:"eu-central-1"`
	EndpointURL     string `env:"ENDPOINT_URL"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	Prefix          string `env:"PREFIX" envDefault:"payme/"`
	QueueSize       int    `env:"QUEUE_SIZE" envDefault:"256"`
}

// Load parses the configuration from the .env values and OS environment.
func Load() (*Config, error) {
	return Parse(env.Environ())
}

// Parse builds a Config from an explicit environment map.
func Parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := cenv.ParseWithOptions(cfg, cenv.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase parses only the DB_ settings, for tools that never serve
// webhooks.
func LoadDatabase() (Database, error) {
	var cfg struct {
		Database Database `envPrefix:"DB_"`
	}
	if err := cenv.ParseWithOptions(&cfg, cenv.Options{Environment: env.Environ()}); err != nil {
		return Database{}, fmt.Errorf("parse database config: %w", err)
	}
	return cfg.Database, nil
}

func (c *Config) IsDev() bool {
	return c.App.Env == "dev"
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.App.Host, c.App.Port)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Payme.Key) == "" {
		return errors.New("PAYME_KEY is required")
	}
	if c.Payme.AccountField == "" {
		return errors.New("PAYME_ACCOUNT_FIELD must not be empty")
	}
	switch c.Webhook.LockBackend {
	case LockBackendMemory:
	case LockBackendRedis:
		if !c.Cache.Enabled {
			return errors.New("WEBHOOK_LOCK_BACKEND=redis requires CACHE_ENABLED=true")
		}
	default:
		return fmt.Errorf("unknown WEBHOOK_LOCK_BACKEND %q", c.Webhook.LockBackend)
	}
	if c.Webhook.DownstreamTimeout <= 0 || c.Webhook.Timeout <= 0 {
		return errors.New("webhook timeouts must be positive")
	}
	if c.Webhook.DownstreamTimeout >= c.Webhook.Timeout {
		return errors.New("WEBHOOK_DOWNSTREAM_TIMEOUT must be shorter than WEBHOOK_TIMEOUT")
	}
	if !c.IsDev() && c.CORS.AllowCredentials && c.CORS.HasWildcard() {
		return errors.New("CORS_ALLOW_ORIGINS=* cannot be combined with CORS_ALLOW_CREDENTIALS outside dev")
	}
	if c.App.ProxyHeader != "" && len(c.App.TrustedProxies) == 0 {
		return errors.New("APP_PROXY_HEADER requires APP_TRUSTED_PROXIES")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return errors.New("ARCHIVE_BUCKET is required when ARCHIVE_ENABLED=true")
	}
	return nil
}

func (c *Config) normalize() {
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	c.Webhook.LockBackend = strings.ToLower(strings.TrimSpace(c.Webhook.LockBackend))
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.CORS.AllowOrigins = compact(c.CORS.AllowOrigins)
	c.Payme.AllowedIPs = compact(c.Payme.AllowedIPs)
	c.App.ProxyHeader = strings.TrimSpace(c.App.ProxyHeader)
	c.App.TrustedProxies = compact(c.App.TrustedProxies)
}

// HasWildcard reports whether any configured origin is "*".
func (c CORS) HasWildcard() bool {
	for _, origin := range c.AllowOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
