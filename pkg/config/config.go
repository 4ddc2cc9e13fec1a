package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix  = ""
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Delivery     DeliveryConfig
	Confirmation ConfirmationConfig
	Webhook      WebhookConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VAIVEN_APP_ENV" required:"true"`
	Port         string `envconfig:"VAIVEN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VAIVEN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VAIVEN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VAIVEN_DB_DSN"`
	Driver string `envconfig:"VAIVEN_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"VAIVEN_DB_HOST"`
	Port     int    `envconfig:"VAIVEN_DB_PORT" default:"5432"`
	User     string `envconfig:"VAIVEN_DB_USER"`
	Password string `envconfig:"VAIVEN_DB_PASSWORD"`
	Name     string `envconfig:"VAIVEN_DB_NAME"`
	SSLMode  string `envconfig:"VAIVEN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VAIVEN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VAIVEN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VAIVEN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VAIVEN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VAIVEN_REDIS_URL"`
	Address      string        `envconfig:"VAIVEN_REDIS_ADDR"`
	Password     string        `envconfig:"VAIVEN_REDIS_PASSWORD"`
	DB           int           `envconfig:"VAIVEN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VAIVEN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VAIVEN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VAIVEN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VAIVEN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VAIVEN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"VAIVEN_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"VAIVEN_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VAIVEN_AUTO_MIGRATE" default:"false"`
}

// DeliveryConfig carries the fee and ETA model constants. The estimate is a
// pure function of these values plus distance and item count.
type DeliveryConfig struct {
	BaseFeeCents           int     `envconfig:"VAIVEN_DELIVERY_BASE_FEE_CENTS" default:"250"`
	PerKmFeeCents          int     `envconfig:"VAIVEN_DELIVERY_PER_KM_FEE_CENTS" default:"120"`
	PerItemHandlingCents   int     `envconfig:"VAIVEN_DELIVERY_PER_ITEM_HANDLING_CENTS" default:"35"`
	CourierSpeedKmh        float64 `envconfig:"VAIVEN_DELIVERY_COURIER_SPEED_KMH" default:"25"`
	PerItemHandlingMinutes float64 `envconfig:"VAIVEN_DELIVERY_PER_ITEM_HANDLING_MINUTES" default:"1.5"`
	TransitionRetries      int     `envconfig:"VAIVEN_DELIVERY_TRANSITION_RETRIES" default:"3"`
}

type ConfirmationConfig struct {
	TokenTTL       time.Duration `envconfig:"VAIVEN_CONFIRMATION_TOKEN_TTL" default:"24h"`
	ReminderOffset time.Duration `envconfig:"VAIVEN_CONFIRMATION_REMINDER_OFFSET" default:"4h"`
}

type WebhookConfig struct {
	MaxAttempts    int           `envconfig:"VAIVEN_WEBHOOK_MAX_ATTEMPTS" default:"5"`
	BackoffBase    time.Duration `envconfig:"VAIVEN_WEBHOOK_BACKOFF_BASE" default:"500ms"`
	QueueSize      int           `envconfig:"VAIVEN_WEBHOOK_QUEUE_SIZE" default:"1024"`
	Workers        int           `envconfig:"VAIVEN_WEBHOOK_WORKERS" default:"4"`
	RequestTimeout time.Duration `envconfig:"VAIVEN_WEBHOOK_REQUEST_TIMEOUT" default:"10s"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"VAIVEN_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"VAIVEN_CRON_LOCK_TTL" default:"5m"`
	LockKey  string        `envconfig:"VAIVEN_CRON_LOCK_KEY" default:"vaiven:cron:fulfillment"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		"VAIVEN_DB_HOST": db.Host,
		"VAIVEN_DB_USER": db.User,
		"VAIVEN_DB_NAME": db.Name,
	}
	for _, key := range []string{"VAIVEN_DB_HOST", "VAIVEN_DB_USER", "VAIVEN_DB_NAME"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either VAIVEN_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
