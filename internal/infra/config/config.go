package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Session   SessionSettings   `mapstructure:"session"`
	Code      CodeSettings      `mapstructure:"code"`
	Password  PasswordSettings  `mapstructure:"password"`
	Login     LoginSettings     `mapstructure:"login"`
	Sweeper   SweeperSettings   `mapstructure:"sweeper"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
}

type AppSettings struct {
	Name           string   `mapstructure:"name"`
	Env            string   `mapstructure:"env"`
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// IsDevelopment reports whether the service runs in a non-production
// environment. Verification codes are only ever logged in development.
func (s AppSettings) IsDevelopment() bool {
	return s.Env != "production"
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection backing the HTTP rate limiter.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// KafkaSettings configures the event producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// SessionSettings configures token signing and session lifetime.
type SessionSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// CodeSettings configures verification code issuance.
type CodeSettings struct {
	TTL             time.Duration `mapstructure:"ttl"`
	DailyLimit      int           `mapstructure:"daily_limit"`
	IPCooldown      time.Duration `mapstructure:"ip_cooldown"`
	ResendCountdown int           `mapstructure:"resend_countdown"`
	FixedCode       string        `mapstructure:"fixed_code"`
}

// PasswordSettings configures the per-user lockout and reuse history.
type PasswordSettings struct {
	FailLimit    int           `mapstructure:"fail_limit"`
	LockDuration time.Duration `mapstructure:"lock_duration"`
	HistoryDepth int           `mapstructure:"history_depth"`
}

// LoginSettings configures the per-IP code-login failure throttle.
type LoginSettings struct {
	IPFailureWindow time.Duration `mapstructure:"ip_failure_window"`
	IPFailureLimit  int           `mapstructure:"ip_failure_limit"`
}

// SweeperSettings configures the background expiry sweep.
type SweeperSettings struct {
	Interval         time.Duration `mapstructure:"interval"`
	FailureRetention time.Duration `mapstructure:"failure_retention"`
}

// RateLimitSettings configures the per-endpoint HTTP request limiter.
type RateLimitSettings struct {
	WindowDuration      time.Duration `mapstructure:"window_duration"`
	SendCodeMaxRequests int           `mapstructure:"send_code_max_requests"`
	LoginMaxRequests    int           `mapstructure:"login_max_requests"`
	RegisterMaxRequests int           `mapstructure:"register_max_requests"`
	ResetMaxRequests    int           `mapstructure:"reset_max_requests"`
}

// Argon2Settings configures Argon2id password hashing parameters.
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type TelemetrySettings struct {
	MetricsPort  int     `mapstructure:"metrics_port"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("TAOBEI")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.allowed_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.key_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"session.secret",
		"session.issuer",
		"session.ttl",
		"code.ttl",
		"code.daily_limit",
		"code.ip_cooldown",
		"code.resend_countdown",
		"code.fixed_code",
		"password.fail_limit",
		"password.lock_duration",
		"password.history_depth",
		"login.ip_failure_window",
		"login.ip_failure_limit",
		"sweeper.interval",
		"sweeper.failure_retention",
		"telemetry.metrics_port",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"rate_limit.window_duration",
		"rate_limit.send_code_max_requests",
		"rate_limit.login_max_requests",
		"rate_limit.register_max_requests",
		"rate_limit.reset_max_requests",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "taobei-app")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.allowed_origins", []string{"*"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "taobei")
	v.SetDefault("postgres.password", "taobei_password")
	v.SetDefault("postgres.database", "taobei")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "taobei:ratelimit")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "taobei")
	v.SetDefault("kafka.async", true)

	// The signing secret has no usable default; Load succeeds without it so
	// tooling can run, but the app refuses to start with an empty secret.
	v.SetDefault("session.secret", "")
	v.SetDefault("session.issuer", "taobei-app")
	v.SetDefault("session.ttl", "168h")

	v.SetDefault("code.ttl", "5m")
	v.SetDefault("code.daily_limit", 50)
	v.SetDefault("code.ip_cooldown", "60s")
	v.SetDefault("code.resend_countdown", 60)
	v.SetDefault("code.fixed_code", "")

	v.SetDefault("password.fail_limit", 5)
	v.SetDefault("password.lock_duration", "15m")
	v.SetDefault("password.history_depth", 3)

	v.SetDefault("login.ip_failure_window", "15m")
	v.SetDefault("login.ip_failure_limit", 5)

	v.SetDefault("sweeper.interval", "10m")
	v.SetDefault("sweeper.failure_retention", "24h")

	v.SetDefault("telemetry.metrics_port", 9090)
	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "taobei-app")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.send_code_max_requests", 10)
	v.SetDefault("rate_limit.login_max_requests", 10)
	v.SetDefault("rate_limit.register_max_requests", 5)
	v.SetDefault("rate_limit.reset_max_requests", 5)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "TAOBEI_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
