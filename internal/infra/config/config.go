package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Provider  ProviderSettings  `mapstructure:"provider"`
	Backend   BackendSettings   `mapstructure:"backend"`
	Auth      AuthSettings      `mapstructure:"auth"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	CORS      CORSSettings      `mapstructure:"cors"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ProviderSettings configures the GoTrue identity provider client.
type ProviderSettings struct {
	URL              string        `mapstructure:"url"`
	AnonKey          string        `mapstructure:"anon_key"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FlowType         string        `mapstructure:"flow_type"`
	AutoRefresh      bool          `mapstructure:"auto_refresh"`
	RefreshMargin    time.Duration `mapstructure:"refresh_margin"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	EmailRedirectURL string        `mapstructure:"email_redirect_url"`
	ResetRedirectURL string        `mapstructure:"reset_redirect_url"`
}

// BackendSettings points at the profile backing-store API.
type BackendSettings struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthSettings tunes local validation and guard behaviour.
type AuthSettings struct {
	MinPasswordLength     int    `mapstructure:"min_password_length"`
	MinPasswordScore      int    `mapstructure:"min_password_score"`
	StrictRecoverySession bool   `mapstructure:"strict_recovery_session"`
	EntryPath             string `mapstructure:"entry_path"`
}

// JWTSettings configures bearer verification on the profile API.
type JWTSettings struct {
	Secret   string `mapstructure:"secret"`
	Audience string `mapstructure:"audience"`
	Issuer   string `mapstructure:"issuer"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	Schema            string        `mapstructure:"schema"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
}

// RedisSettings configures Redis connection, TLS and session persistence
type RedisSettings struct {
	Enabled          bool          `mapstructure:"enabled"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	DB               int           `mapstructure:"db"`
	Password         string        `mapstructure:"password"`
	TLSEnabled       bool          `mapstructure:"tls_enabled"`
	SessionKeyPrefix string        `mapstructure:"session_key_prefix"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	PersistSession   bool          `mapstructure:"persist_session"`
}

// KafkaSettings configures the audit producer and the revocation consumer
type KafkaSettings struct {
	Brokers         []string `mapstructure:"brokers"`
	TopicPrefix     string   `mapstructure:"topic_prefix"`
	Async           bool     `mapstructure:"async"`
	ConsumerGroup   string   `mapstructure:"consumer_group"`
	RevocationTopic string   `mapstructure:"revocation_topic"`
}

type TelemetrySettings struct {
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint
type RateLimitSettings struct {
	WindowDuration           time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts         int           `mapstructure:"login_max_attempts"`
	PasswordResetMaxAttempts int           `mapstructure:"password_reset_max_attempts"`
	ProfileMaxAttempts       int           `mapstructure:"profile_max_attempts"`
}

type CORSSettings struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("NBAIQ")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"provider.url",
		"provider.anon_key",
		"provider.timeout",
		"provider.flow_type",
		"provider.auto_refresh",
		"provider.refresh_margin",
		"provider.refresh_interval",
		"provider.email_redirect_url",
		"provider.reset_redirect_url",
		"backend.base_url",
		"backend.timeout",
		"auth.min_password_length",
		"auth.min_password_score",
		"auth.strict_recovery_session",
		"auth.entry_path",
		"jwt.secret",
		"jwt.audience",
		"jwt.issuer",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.schema",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.auto_migrate",
		"redis.enabled",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.session_key_prefix",
		"redis.session_ttl",
		"redis.persist_session",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"kafka.consumer_group",
		"kafka.revocation_topic",
		"telemetry.tracing_enabled",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.password_reset_max_attempts",
		"rate_limit.profile_max_attempts",
		"cors.allowed_origins",
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
	v.SetDefault("app.name", "nbaiq")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("provider.url", "http://localhost:54321")
	v.SetDefault("provider.anon_key", "")
	v.SetDefault("provider.timeout", "10s")
	v.SetDefault("provider.flow_type", "pkce")
	v.SetDefault("provider.auto_refresh", true)
	v.SetDefault("provider.refresh_margin", "60s")
	v.SetDefault("provider.refresh_interval", "30s")
	v.SetDefault("provider.email_redirect_url", "http://localhost:8080/auth/callback")
	v.SetDefault("provider.reset_redirect_url", "http://localhost:8080/auth/callback")

	// Profile backing store.
	v.SetDefault("backend.base_url", "http://localhost:5000")
	v.SetDefault("backend.timeout", "10s")

	v.SetDefault("auth.min_password_length", 8)
	v.SetDefault("auth.min_password_score", 0)
	v.SetDefault("auth.strict_recovery_session", false)
	v.SetDefault("auth.entry_path", "/auth")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.audience", "authenticated")
	v.SetDefault("jwt.issuer", "")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "nbaiq")
	v.SetDefault("postgres.password", "nbaiq_password")
	v.SetDefault("postgres.database", "nbaiq")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.schema", "public")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.session_key_prefix", "nbaiq:session")
	v.SetDefault("redis.session_ttl", "168h")
	v.SetDefault("redis.persist_session", true)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "nbaiq")
	v.SetDefault("kafka.async", true)
	v.SetDefault("kafka.consumer_group", "nbaiq-web")
	v.SetDefault("kafka.revocation_topic", "nbaiq.session.revoked")

	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	v.SetDefault("telemetry.service_name", "nbaiq")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.password_reset_max_attempts", 3)
	v.SetDefault("rate_limit.profile_max_attempts", 20)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173", "http://localhost:5174"})
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "NBAIQ_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
