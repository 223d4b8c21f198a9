package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pricing      PricingConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
	Idempotency  IdempotencyConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Pricing.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PRICING_APP_ENV" required:"true"`
	Port         string `envconfig:"PRICING_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PRICING_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRICING_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"PRICING_LOG_FORMAT" default:"json"`
	LogNoColor   bool   `envconfig:"PRICING_LOG_NO_COLOR" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"PRICING_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PRICING_DB_DSN"`
	Driver string `envconfig:"PRICING_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRICING_DB_HOST"`
	LegacyPort     int    `envconfig:"PRICING_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRICING_DB_USER"`
	LegacyPassword string `envconfig:"PRICING_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRICING_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRICING_DB_SSLMODE" default:"disable"`

	MaxOpenConns       int           `envconfig:"PRICING_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns       int           `envconfig:"PRICING_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime    time.Duration `envconfig:"PRICING_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime    time.Duration `envconfig:"PRICING_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQueryThreshold time.Duration `envconfig:"PRICING_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRICING_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PRICING_REDIS_ADDR"`
	Password     string        `envconfig:"PRICING_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRICING_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRICING_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRICING_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRICING_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRICING_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRICING_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies admin bearer tokens issued by the identity service.
type JWTConfig struct {
	Secret            string `envconfig:"PRICING_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PRICING_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PRICING_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PricingConfig struct {
	DefaultCurrency    string        `envconfig:"PRICING_DEFAULT_CURRENCY" default:"INR"`
	Timezone           string        `envconfig:"PRICING_TIMEZONE" default:"UTC"`
	UsageRetryAttempts int           `envconfig:"PRICING_USAGE_RETRY_ATTEMPTS" default:"3"`
	UsageRetryBackoff  time.Duration `envconfig:"PRICING_USAGE_RETRY_BACKOFF" default:"25ms"`
}

// Location resolves the timezone used for time-of-day and weekday rule windows.
func (p PricingConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(p.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvPricingTimezone, name, err)
	}
	return loc, nil
}

// CronConfig drives the expiry worker. An empty MetricsPort disables its
// metrics listener.
type CronConfig struct {
	Interval    time.Duration `envconfig:"PRICING_CRON_INTERVAL" default:"5m"`
	LockTTL     time.Duration `envconfig:"PRICING_CRON_LOCK_TTL" default:"4m"`
	JobTimeout  time.Duration `envconfig:"PRICING_CRON_JOB_TIMEOUT" default:"2m"`
	MetricsPort string        `envconfig:"PRICING_CRON_METRICS_PORT" default:"9102"`
}

type RateLimitConfig struct {
	PromotionValidateWindow time.Duration `envconfig:"PRICING_RATE_LIMIT_PROMO_WINDOW" default:"1m"`
	PromotionValidateLimit  int           `envconfig:"PRICING_RATE_LIMIT_PROMO_LIMIT" default:"30"`
}

type IdempotencyConfig struct {
	RedeemTTL time.Duration `envconfig:"PRICING_IDEMPOTENCY_REDEEM_TTL" default:"24h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PRICING_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PRICING_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PRICING_AUTO_MIGRATE" default:"false"`
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
