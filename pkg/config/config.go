package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Discounts    DiscountsConfig
	Checkout     CheckoutConfig
	Cart         CartConfig
	FeatureFlags FeatureFlagsConfig
	Admin        AdminConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Discounts.Location(); err != nil {
		return nil, err
	}
	if _, err := cfg.Checkout.Rate(); err != nil {
		return nil, err
	}
	if _, err := cfg.Cart.Shipping(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HEALIOS_APP_ENV" required:"true"`
	Port         string `envconfig:"HEALIOS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HEALIOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HEALIOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"HEALIOS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"HEALIOS_DB_DSN"`
	Driver string `envconfig:"HEALIOS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HEALIOS_DB_HOST"`
	LegacyPort     int    `envconfig:"HEALIOS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HEALIOS_DB_USER"`
	LegacyPassword string `envconfig:"HEALIOS_DB_PASSWORD"`
	LegacyName     string `envconfig:"HEALIOS_DB_NAME"`
	LegacySSLMode  string `envconfig:"HEALIOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HEALIOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HEALIOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HEALIOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HEALIOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HEALIOS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HEALIOS_REDIS_ADDR"`
	Password     string        `envconfig:"HEALIOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"HEALIOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HEALIOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HEALIOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HEALIOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HEALIOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HEALIOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// DiscountsConfig tunes the discount code engine.
type DiscountsConfig struct {
	MaxStack      int    `envconfig:"HEALIOS_DISCOUNTS_MAX_STACK" default:"3"`
	CaseSensitive bool   `envconfig:"HEALIOS_DISCOUNTS_CASE_SENSITIVE" default:"false"`
	Timezone      string `envconfig:"HEALIOS_DISCOUNTS_TIMEZONE" default:"UTC"`
}

// Location resolves the configured activation-window timezone. Windows are
// always evaluated in this server-side zone, never the client's.
func (d DiscountsConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid discounts timezone %q: %w", d.Timezone, err)
	}
	return loc, nil
}

type CheckoutConfig struct {
	TaxRate string `envconfig:"HEALIOS_CHECKOUT_TAX_RATE" default:"0.15"`
}

// Rate parses the configured tax rate applied to the post-discount subtotal.
func (c CheckoutConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid tax rate %q: %w", c.TaxRate, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("tax rate must be non-negative, got %s", rate)
	}
	return rate, nil
}

type CartConfig struct {
	AbandonAfter    time.Duration `envconfig:"HEALIOS_CART_ABANDON_AFTER" default:"24h"`
	DefaultShipping string        `envconfig:"HEALIOS_CART_DEFAULT_SHIPPING" default:"9.50"`
}

// Shipping parses the flat shipping estimate attached to new carts.
func (c CartConfig) Shipping() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.DefaultShipping))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid default shipping %q: %w", c.DefaultShipping, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("default shipping must be non-negative, got %s", amount)
	}
	return amount, nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HEALIOS_AUTO_MIGRATE" default:"false"`
}

type AdminConfig struct {
	APIKey string `envconfig:"HEALIOS_ADMIN_API_KEY"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"HEALIOS_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"HEALIOS_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"HEALIOS_PUBSUB_DOMAIN_TOPIC" default:"healios-domain-events"`
	DomainSubscription string `envconfig:"HEALIOS_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"HEALIOS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"HEALIOS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"HEALIOS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"HEALIOS_CRON_INTERVAL" default:"15m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
