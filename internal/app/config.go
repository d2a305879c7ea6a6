package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (WAFFLE_ prefix) or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage   StorageConfig
	Advisory  AdvisoryConfig
	Payment   PaymentConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// StorageConfig selects where saved compositions and paid orders live.
type StorageConfig struct {
	Driver      string `default:"memory" usage:"Storage driver: memory, file or postgres"`
	Dir         string `default:"data" usage:"Root directory for the file driver"`
	DatabaseURL string `usage:"PostgreSQL connection URL (WAFFLE_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
}

// AdvisoryConfig configures the Gemini advisor. An empty key disables
// curation and description.
type AdvisoryConfig struct {
	APIKey   string        `usage:"Gemini API key (WAFFLE_ADVISORY_API_KEY or API_KEY)" flag:"advisory-api-key"`
	Endpoint string        `default:"https://generativelanguage.googleapis.com" usage:"Gemini API base URL"`
	Model    string        `default:"gemini-2.5-flash" usage:"Gemini model name"`
	Timeout  time.Duration `default:"20s" usage:"Per-call advisory timeout"`
}

// PaymentConfig tunes the simulated processor.
type PaymentConfig struct {
	Delay         time.Duration `default:"2s" usage:"Simulated processing delay"`
	DeclineSuffix string        `default:"0000" usage:"Card numbers ending with this are declined; empty declines nothing"`
	// Timeout bounds a charge. Charges outlive the request that started them.
	Timeout time.Duration `default:"30s" usage:"Maximum time a charge may take"`
}

// SessionConfig controls workspace lifetime.
type SessionConfig struct {
	IdleTTL       time.Duration `default:"30m" usage:"Idle time before a workspace is closed"`
	SweepInterval time.Duration `default:"1m" usage:"How often idle workspaces are swept"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	RPS   float64 `default:"10" usage:"Sustained requests per second per client"`
	Burst int     `default:"40" usage:"Burst size per client"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "WAFFLE",
		SkipFlags: true,
		Files:     []string{"config.yaml", "/etc/waffle/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverFile:
		if c.Storage.Dir == "" {
			return errors.New("file storage requires a directory: set WAFFLE_STORAGE_DIR")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("postgres storage requires a database URL: set WAFFLE_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Session.IdleTTL <= 0 {
		return errors.New("session idle TTL must be positive")
	}
	if c.Payment.Timeout <= c.Payment.Delay {
		return errors.New("payment timeout must exceed the processing delay")
	}
	if c.RateLimit.RPS <= 0 {
		return errors.New("rate limit RPS must be positive")
	}
	return nil
}

// applyPlatformDefaults maps the unprefixed variables hosting platforms set
// (DATABASE_URL, PORT) and the API_KEY variable the web client used.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	if c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = getenv("DATABASE_URL")
	}
	if c.Advisory.APIKey == "" {
		c.Advisory.APIKey = getenv("API_KEY")
	}
	if port := getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
