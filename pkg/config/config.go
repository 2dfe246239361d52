package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	AuthRateLimit AuthRateLimitConfig
	PayWay        PayWayConfig
	OTP           OTPConfig
	Cron          CronConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KHMART_APP_ENV" required:"true"`
	Port         string `envconfig:"KHMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KHMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KHMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"KHMART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"KHMART_DB_DSN"`
	Driver string `envconfig:"KHMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KHMART_DB_HOST"`
	LegacyPort     int    `envconfig:"KHMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KHMART_DB_USER"`
	LegacyPassword string `envconfig:"KHMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"KHMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"KHMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KHMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KHMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KHMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KHMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KHMART_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"KHMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KHMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KHMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KHMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KHMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KHMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KHMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KHMART_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime configured in minutes.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type AuthRateLimitConfig struct {
	OTPRequestWindow     time.Duration `envconfig:"KHMART_RL_OTP_REQUEST_WINDOW" default:"1h"`
	OTPRequestIPLimit    int           `envconfig:"KHMART_RL_OTP_REQUEST_IP_LIMIT" default:"20"`
	OTPRequestEmailLimit int           `envconfig:"KHMART_RL_OTP_REQUEST_EMAIL_LIMIT" default:"5"`
	OTPVerifyWindow      time.Duration `envconfig:"KHMART_RL_OTP_VERIFY_WINDOW" default:"15m"`
	OTPVerifyIPLimit     int           `envconfig:"KHMART_RL_OTP_VERIFY_IP_LIMIT" default:"30"`
	OTPVerifyEmailLimit  int           `envconfig:"KHMART_RL_OTP_VERIFY_EMAIL_LIMIT" default:"10"`
}

type PayWayConfig struct {
	MerchantID string `envconfig:"KHMART_PAYWAY_MERCHANT_ID" required:"true"`
	APIKey     string `envconfig:"KHMART_PAYWAY_API_KEY" required:"true"`
	BaseURL    string `envconfig:"KHMART_PAYWAY_BASE_URL" default:"https://checkout.payway.com.kh"`
}

type OTPConfig struct {
	TTL          time.Duration `envconfig:"KHMART_OTP_TTL" default:"10m"`
	ResendLimit  int           `envconfig:"KHMART_OTP_RESEND_LIMIT" default:"5"`
	ResendWindow time.Duration `envconfig:"KHMART_OTP_RESEND_WINDOW" default:"1h"`
}

type CronConfig struct {
	StockScanInterval   time.Duration `envconfig:"KHMART_CRON_STOCK_SCAN_INTERVAL" default:"5m"`
	OrderExpiryInterval time.Duration `envconfig:"KHMART_CRON_ORDER_EXPIRY_INTERVAL" default:"10m"`
	PendingOrderTTL     time.Duration `envconfig:"KHMART_CRON_PENDING_ORDER_TTL" default:"24h"`
	LockTTL             time.Duration `envconfig:"KHMART_CRON_LOCK_TTL" default:"4m"`
	MetricsPort         string        `envconfig:"KHMART_CRON_METRICS_PORT" default:"9091"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KHMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KHMART_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"KHMART_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"KHMART_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"KHMART_PUBSUB_ORDERS_TOPIC" required:"true"`
	AlertsTopic        string `envconfig:"KHMART_PUBSUB_ALERTS_TOPIC" required:"true"`
	AlertsSubscription string `envconfig:"KHMART_PUBSUB_ALERTS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"KHMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"KHMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"KHMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"KHMART_OUTBOX_IDEMPOTENCY_TTL" default:"72h"`
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
