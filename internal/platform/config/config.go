// Package config loads service configuration from defaults, an optional
// YAML file and STOREFRONT_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. STOREFRONT_SERVER_PORT.
const EnvPrefix = "STOREFRONT"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	Spanner  SpannerConfig  `mapstructure:"spanner"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Payments PaymentsConfig `mapstructure:"payments"`
	Invoice  InvoiceConfig  `mapstructure:"invoice"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Mail     MailConfig     `mapstructure:"mail"`
	Events   EventsConfig   `mapstructure:"events"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type SpannerConfig struct {
	ProjectID  string `mapstructure:"project_id"`
	InstanceID string `mapstructure:"instance_id"`
	DatabaseID string `mapstructure:"database_id"`
}

type CatalogConfig struct {
	// Source is seed (YAML file), sqlite or spanner.
	Source    string        `mapstructure:"source"`
	SeedFile  string        `mapstructure:"seed_file"`
	RedisAddr string        `mapstructure:"redis_addr"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

type PaymentsConfig struct {
	Gateway              string        `mapstructure:"gateway"`
	KeyID                string        `mapstructure:"key_id"`
	KeySecret            string        `mapstructure:"key_secret"`
	WebhookSecret        string        `mapstructure:"webhook_secret"`
	WebhookSignatureMode string        `mapstructure:"webhook_signature_mode"`
	DefaultCurrency      string        `mapstructure:"default_currency"`
	ConfirmTimeout       time.Duration `mapstructure:"confirm_timeout"`
	SideEffectTimeout    time.Duration `mapstructure:"side_effect_timeout"`
	StepLease            time.Duration `mapstructure:"step_lease"`
	MaxStepAttempts      int           `mapstructure:"max_step_attempts"`
}

type InvoiceConfig struct {
	IssuerName    string   `mapstructure:"issuer_name"`
	IssuerAddress []string `mapstructure:"issuer_address"`
	IssuerEmail   string   `mapstructure:"issuer_email"`
	IssuerTaxID   string   `mapstructure:"issuer_tax_id"`
}

type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	Bucket        string `mapstructure:"bucket"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type MailConfig struct {
	SMTPHost     string        `mapstructure:"smtp_host"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	From         string        `mapstructure:"from"`
	AdminAddress string        `mapstructure:"admin_address"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type EventsConfig struct {
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.sqlite_path", "~/.storefront/storefront.db")

	v.SetDefault("spanner.project_id", "")
	v.SetDefault("spanner.instance_id", "")
	v.SetDefault("spanner.database_id", "")

	v.SetDefault("catalog.source", "seed")
	v.SetDefault("catalog.seed_file", "")
	v.SetDefault("catalog.redis_addr", "")
	v.SetDefault("catalog.cache_ttl", 5*time.Minute)

	v.SetDefault("payments.gateway", "razorpay")
	v.SetDefault("payments.key_id", "")
	v.SetDefault("payments.key_secret", "")
	v.SetDefault("payments.webhook_secret", "")
	v.SetDefault("payments.webhook_signature_mode", "enforce")
	v.SetDefault("payments.default_currency", "INR")
	v.SetDefault("payments.confirm_timeout", 10*time.Second)
	v.SetDefault("payments.side_effect_timeout", 30*time.Second)
	v.SetDefault("payments.step_lease", 2*time.Minute)
	v.SetDefault("payments.max_step_attempts", 5)

	v.SetDefault("invoice.issuer_name", "Storefront")
	v.SetDefault("invoice.issuer_address", []string{})
	v.SetDefault("invoice.issuer_email", "")
	v.SetDefault("invoice.issuer_tax_id", "")

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.public_base_url", "")

	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.admin_address", "")
	v.SetDefault("mail.timeout", 15*time.Second)

	v.SetDefault("events.amqp_url", "")
	v.SetDefault("events.exchange", "storefront.events")
}

// Load reads the configuration. path may be empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects malformed values. Missing secrets are allowed here; the
// handlers that need them fail closed at request time.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
		}
	case "spanner":
		if c.Spanner.ProjectID == "" || c.Spanner.InstanceID == "" || c.Spanner.DatabaseID == "" {
			errs = append(errs, errors.New("spanner.project_id, spanner.instance_id and spanner.database_id are required for the spanner driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	switch c.Catalog.Source {
	case "seed", "sqlite", "spanner":
	default:
		errs = append(errs, fmt.Errorf("unknown catalog.source %q", c.Catalog.Source))
	}
	if c.Catalog.Source != "seed" && c.Catalog.Source != c.Store.Driver {
		errs = append(errs, fmt.Errorf("catalog.source %q requires store.driver %q", c.Catalog.Source, c.Catalog.Source))
	}
	switch c.Payments.WebhookSignatureMode {
	case "enforce", "log-only":
	default:
		errs = append(errs, fmt.Errorf("unknown payments.webhook_signature_mode %q", c.Payments.WebhookSignatureMode))
	}
	if c.Payments.MaxStepAttempts < 0 {
		errs = append(errs, errors.New("payments.max_step_attempts must not be negative"))
	}
	// A lease shorter than one attempt lets a second trigger take a step
	// while the first is still performing it.
	if c.Payments.StepLease > 0 && c.Payments.StepLease <= c.Payments.SideEffectTimeout {
		errs = append(errs, fmt.Errorf("payments.step_lease %s must exceed payments.side_effect_timeout %s",
			c.Payments.StepLease, c.Payments.SideEffectTimeout))
	}
	switch c.Storage.Driver {
	case "memory", "gcs":
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

// ParseLevel maps log.level to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q", s)
	}
	return l, nil
}
