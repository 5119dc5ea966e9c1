package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Orders        OrdersConfig
	Toasts        ToastsConfig
	Cron          CronConfig
}

// Load reads the OCCASIONBUDDY_* environment and reports every invalid
// setting at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finalize() error {
	var errs error
	if c.DB.DSN == "" {
		dsn, err := c.DB.legacyDSN()
		errs = multierr.Append(errs, err)
		c.DB.DSN = dsn
	}
	errs = multierr.Append(errs, c.Orders.validate())
	if c.JWT.ExpirationMinutes <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvJWTExpMins))
	}
	if c.Outbox.MaxAttempts < 1 || c.Outbox.BatchSize < 1 {
		errs = multierr.Append(errs, errors.New("outbox batch size and max attempts must be at least 1"))
	}
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"OCCASIONBUDDY_APP_ENV" required:"true"`
	Port         string `envconfig:"OCCASIONBUDDY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"OCCASIONBUDDY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OCCASIONBUDDY_LOG_WARN_STACK" default:"false"`
	// Comma separated list; empty allows any origin in dev only.
	CORSAllowedOrigins []string `envconfig:"OCCASIONBUDDY_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"OCCASIONBUDDY_SERVICE_KIND" default:"api"`
	// Listen address for /metrics on worker processes. Empty disables the listener.
	MetricsAddr string `envconfig:"OCCASIONBUDDY_SERVICE_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"OCCASIONBUDDY_DB_DSN"`
	Driver string `envconfig:"OCCASIONBUDDY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"OCCASIONBUDDY_DB_HOST"`
	LegacyPort     int    `envconfig:"OCCASIONBUDDY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OCCASIONBUDDY_DB_USER"`
	LegacyPassword string `envconfig:"OCCASIONBUDDY_DB_PASSWORD"`
	LegacyName     string `envconfig:"OCCASIONBUDDY_DB_NAME"`
	LegacySSLMode  string `envconfig:"OCCASIONBUDDY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OCCASIONBUDDY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OCCASIONBUDDY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OCCASIONBUDDY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OCCASIONBUDDY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// Statements slower than this are logged at warn. Zero disables.
	SlowQueryThreshold time.Duration `envconfig:"OCCASIONBUDDY_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OCCASIONBUDDY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OCCASIONBUDDY_REDIS_ADDR"`
	Password     string        `envconfig:"OCCASIONBUDDY_REDIS_PASSWORD"`
	DB           int           `envconfig:"OCCASIONBUDDY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OCCASIONBUDDY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OCCASIONBUDDY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OCCASIONBUDDY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OCCASIONBUDDY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OCCASIONBUDDY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"OCCASIONBUDDY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"OCCASIONBUDDY_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"OCCASIONBUDDY_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"OCCASIONBUDDY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"OCCASIONBUDDY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"OCCASIONBUDDY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"OCCASIONBUDDY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"OCCASIONBUDDY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"OCCASIONBUDDY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"OCCASIONBUDDY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"OCCASIONBUDDY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"OCCASIONBUDDY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"OCCASIONBUDDY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"OCCASIONBUDDY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"OCCASIONBUDDY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"OCCASIONBUDDY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"OCCASIONBUDDY_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"OCCASIONBUDDY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"OCCASIONBUDDY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"OCCASIONBUDDY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"OCCASIONBUDDY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic              string `envconfig:"OCCASIONBUDDY_PUBSUB_DOMAIN_TOPIC" default:"ob-domain-events"`
	NotificationSubscription string `envconfig:"OCCASIONBUDDY_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"ob-notifications"`
	AnalyticsSubscription    string `envconfig:"OCCASIONBUDDY_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"ob-analytics"`
}

type BigQueryConfig struct {
	Dataset            string `envconfig:"OCCASIONBUDDY_BIGQUERY_DATASET" default:"occasionbuddy"`
	BookingEventsTable string `envconfig:"OCCASIONBUDDY_BIGQUERY_BOOKING_TABLE" default:"booking_events"`
	BatchSize          int    `envconfig:"OCCASIONBUDDY_BIGQUERY_BATCH_SIZE" default:"1"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"OCCASIONBUDDY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"OCCASIONBUDDY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"OCCASIONBUDDY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type OrdersConfig struct {
	// permissive accepts any status change, strict enforces the transition table.
	TransitionPolicy string `envconfig:"OCCASIONBUDDY_ORDER_TRANSITION_POLICY" default:"permissive"`
}

func (o OrdersConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.TransitionPolicy)) {
	case "", OrderPolicyPermissive, OrderPolicyStrict:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvOrderTransitionPolicy, OrderPolicyPermissive, OrderPolicyStrict)
	}
}

// StrictTransitions reports whether order status changes must follow the transition table.
func (o OrdersConfig) StrictTransitions() bool {
	return strings.EqualFold(strings.TrimSpace(o.TransitionPolicy), OrderPolicyStrict)
}

type ToastsConfig struct {
	DefaultDuration time.Duration `envconfig:"OCCASIONBUDDY_TOAST_DEFAULT_DURATION" default:"4s"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"OCCASIONBUDDY_CRON_INTERVAL" default:"1h"`
	LockTTL               time.Duration `envconfig:"OCCASIONBUDDY_CRON_LOCK_TTL" default:"10m"`
	NotificationRetention time.Duration `envconfig:"OCCASIONBUDDY_CRON_NOTIFICATION_RETENTION" default:"720h"`
	OutboxRetention       time.Duration `envconfig:"OCCASIONBUDDY_CRON_OUTBOX_RETENTION" default:"168h"`
	DLQRetention          time.Duration `envconfig:"OCCASIONBUDDY_CRON_DLQ_RETENTION" default:"720h"`
}

// legacyDSN assembles a postgres URL from the discrete DB_* variables.
func (db DBConfig) legacyDSN() (string, error) {
	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.LegacyHost, EnvDBUser: db.LegacyUser, EnvDBName: db.LegacyName} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	user := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		user = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacySSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	return dsn.String(), nil
}
