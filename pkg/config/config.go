package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/freshbasket/storefront-backend/pkg/enums"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Pricing      PricingConfig
	Loyalty      LoyaltyConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FRESHBASKET_APP_ENV" required:"true"`
	Port         string `envconfig:"FRESHBASKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FRESHBASKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FRESHBASKET_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma separated allow-list; empty uses the built-in origins.
	CORSOrigins []string `envconfig:"FRESHBASKET_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FRESHBASKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN        string `envconfig:"FRESHBASKET_DB_DSN"`
	Driver     string `envconfig:"FRESHBASKET_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"FRESHBASKET_SQLITE_PATH" default:"freshbasket.db"`

	LegacyHost     string `envconfig:"FRESHBASKET_DB_HOST"`
	LegacyPort     int    `envconfig:"FRESHBASKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FRESHBASKET_DB_USER"`
	LegacyPassword string `envconfig:"FRESHBASKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"FRESHBASKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"FRESHBASKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FRESHBASKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FRESHBASKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FRESHBASKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FRESHBASKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FRESHBASKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FRESHBASKET_REDIS_ADDR"`
	Password     string        `envconfig:"FRESHBASKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"FRESHBASKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FRESHBASKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FRESHBASKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FRESHBASKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FRESHBASKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FRESHBASKET_REDIS_WRITE_TIMEOUT" default:"5s"`
	Namespace    string        `envconfig:"FRESHBASKET_REDIS_NAMESPACE" default:"fb"`
}

// JWTConfig covers verification only; tokens are minted by the auth service.
type JWTConfig struct {
	Secret            string `envconfig:"FRESHBASKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FRESHBASKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FRESHBASKET_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FRESHBASKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FRESHBASKET_AUTO_MIGRATE" default:"false"`
}

type PricingConfig struct {
	DeliveryTiers   DeliveryTiers   `envconfig:"FRESHBASKET_PRICING_DELIVERY_TIERS" default:"600:0,100:15,0:25"`
	MinimumOrder    decimal.Decimal `envconfig:"FRESHBASKET_PRICING_MINIMUM_ORDER" default:"200"`
	ServiceFeeKind  string          `envconfig:"FRESHBASKET_PRICING_SERVICE_FEE_KIND" default:"fixed"`
	ServiceFeeValue decimal.Decimal `envconfig:"FRESHBASKET_PRICING_SERVICE_FEE_VALUE" default:"0"`
}

func (p PricingConfig) validate() error {
	if _, err := enums.ParseServiceFeeKind(p.ServiceFeeKind); err != nil {
		return fmt.Errorf("%s: %w", EnvPricingServiceFeeKind, err)
	}
	if p.ServiceFeeValue.IsNegative() {
		return fmt.Errorf("%s must be >= 0", EnvPricingServiceFee)
	}
	if p.MinimumOrder.IsNegative() {
		return fmt.Errorf("%s must be >= 0", EnvPricingMinimumOrder)
	}
	if len(p.DeliveryTiers) == 0 {
		return fmt.Errorf("%s must declare at least one tier", EnvPricingDeliveryTiers)
	}
	return nil
}

type LoyaltyConfig struct {
	BarcodeTTL        time.Duration `envconfig:"FRESHBASKET_LOYALTY_BARCODE_TTL" default:"720h"`
	CodeMaxAttempts   int           `envconfig:"FRESHBASKET_LOYALTY_CODE_MAX_ATTEMPTS" default:"5"`
	IssueRateLimit    int           `envconfig:"FRESHBASKET_LOYALTY_ISSUE_RATE_LIMIT" default:"5"`
	IssueRateWindow   time.Duration `envconfig:"FRESHBASKET_LOYALTY_ISSUE_RATE_WINDOW" default:"1m"`
	IdempotencyTTL    time.Duration `envconfig:"FRESHBASKET_LOYALTY_IDEMPOTENCY_TTL" default:"24h"`
	TransactionsLimit int           `envconfig:"FRESHBASKET_LOYALTY_TRANSACTIONS_LIMIT" default:"25"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FRESHBASKET_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FRESHBASKET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FRESHBASKET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	LoyaltyTopic string `envconfig:"FRESHBASKET_PUBSUB_LOYALTY_TOPIC" default:"fb-loyalty-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"FRESHBASKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"FRESHBASKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"FRESHBASKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"FRESHBASKET_OUTBOX_RETENTION" default:"168h"`
}

// PollInterval returns the publisher poll interval as a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type CronConfig struct {
	Interval time.Duration `envconfig:"FRESHBASKET_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"FRESHBASKET_CRON_LOCK_TTL" default:"4m"`
}

type RateLimitConfig struct {
	Enabled bool `envconfig:"FRESHBASKET_RATE_LIMIT_ENABLED" default:"true"`
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
