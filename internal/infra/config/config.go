package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
)

// Geographic match modes accepted by lbac.geo_match_mode.
const (
	GeoMatchExact        = "exact"
	GeoMatchHierarchical = "hierarchical"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Auth      AuthSettings      `mapstructure:"auth"`
	Storage   StorageSettings   `mapstructure:"storage"`
	LBAC      LBACSettings      `mapstructure:"lbac"`
	Sync      SyncSettings      `mapstructure:"sync"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// CORSOrigins lists browser origins allowed to call the API; empty disables CORS headers.
	CORSOrigins []string `mapstructure:"cors_origins"`
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
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
}

// DSN renders the connection string used by both pgxpool and goose.
func (p PostgresSettings) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Database,
		p.SSLMode,
	)
}

// RedisSettings configures the Redis connection. An empty host disables Redis.
type RedisSettings struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	DB              int    `mapstructure:"db"`
	Password        string `mapstructure:"password"`
	TLSEnabled      bool   `mapstructure:"tls_enabled"`
	RateLimitPrefix string `mapstructure:"rate_limit_prefix"`
}

// KafkaSettings configures the audit event producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// AuthSettings configures mobile token signing.
type AuthSettings struct {
	SigningSecret string        `mapstructure:"signing_secret"`
	Issuer        string        `mapstructure:"issuer"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
}

// StorageSettings configures the S3-compatible attachment bucket.
type StorageSettings struct {
	S3Region     string        `mapstructure:"s3_region"`
	S3Endpoint   string        `mapstructure:"s3_endpoint"`
	S3Bucket     string        `mapstructure:"s3_bucket"`
	S3AccessKey  string        `mapstructure:"s3_access_key"`
	S3SecretKey  string        `mapstructure:"s3_secret_key"`
	UsePathStyle bool          `mapstructure:"use_path_style"`
	UploadURLTTL time.Duration `mapstructure:"upload_url_ttl"`
	PathPrefix   string        `mapstructure:"path_prefix"`
}

// LBACSettings configures location-based access checks.
type LBACSettings struct {
	GeoMatchMode string `mapstructure:"geo_match_mode"`
}

// SyncSettings bounds delta sync requests.
type SyncSettings struct {
	MaxDeltasPerPush int `mapstructure:"max_deltas_per_push"`
	PullPageSize     int `mapstructure:"pull_page_size"`
}

// RateLimitSettings configures the sliding window and max attempts per traffic class
type RateLimitSettings struct {
	WindowDuration     time.Duration `mapstructure:"window_duration"`
	AuthMaxAttempts    int           `mapstructure:"auth_max_attempts"`
	SyncMaxAttempts    int           `mapstructure:"sync_max_attempts"`
	UploadMaxAttempts  int           `mapstructure:"upload_max_attempts"`
	SurveyMaxAttempts  int           `mapstructure:"survey_max_attempts"`
	GeneralMaxAttempts int           `mapstructure:"general_max_attempts"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("PORTAL")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.cors_origins",
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
		"postgres.auto_migrate",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.rate_limit_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"auth.signing_secret",
		"auth.issuer",
		"auth.token_ttl",
		"storage.s3_region",
		"storage.s3_endpoint",
		"storage.s3_bucket",
		"storage.s3_access_key",
		"storage.s3_secret_key",
		"storage.use_path_style",
		"storage.upload_url_ttl",
		"storage.path_prefix",
		"lbac.geo_match_mode",
		"sync.max_deltas_per_push",
		"sync.pull_page_size",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"rate_limit.window_duration",
		"rate_limit.auth_max_attempts",
		"rate_limit.sync_max_attempts",
		"rate_limit.upload_max_attempts",
		"rate_limit.survey_max_attempts",
		"rate_limit.general_max_attempts",
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

// Validate rejects configurations the service must not start with.
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.SigningSecret) == "" {
		errs = append(errs, fmt.Errorf("%w: auth.signing_secret is required", domain.ErrConfiguration))
	}
	if strings.TrimSpace(c.Storage.S3Bucket) == "" {
		errs = append(errs, fmt.Errorf("%w: storage.s3_bucket is required", domain.ErrConfiguration))
	}
	switch c.LBAC.GeoMatchMode {
	case GeoMatchExact, GeoMatchHierarchical:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown lbac.geo_match_mode %q", domain.ErrConfiguration, c.LBAC.GeoMatchMode))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "portal-core")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.cors_origins", []string{})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "portal")
	v.SetDefault("postgres.password", "portal_password")
	v.SetDefault("postgres.database", "portal")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.auto_migrate", false)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.rate_limit_prefix", "portal:rate_limit")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "portal")
	v.SetDefault("kafka.async", true)

	v.SetDefault("auth.signing_secret", "")
	v.SetDefault("auth.issuer", "portal-core")
	v.SetDefault("auth.token_ttl", "12h")

	v.SetDefault("storage.s3_region", "me-south-1")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.use_path_style", false)
	v.SetDefault("storage.upload_url_ttl", "300s")
	v.SetDefault("storage.path_prefix", "attachments")

	v.SetDefault("lbac.geo_match_mode", GeoMatchExact)

	v.SetDefault("sync.max_deltas_per_push", 500)
	v.SetDefault("sync.pull_page_size", 200)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "portal-core")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.auth_max_attempts", 5)
	v.SetDefault("rate_limit.sync_max_attempts", 60)
	v.SetDefault("rate_limit.upload_max_attempts", 30)
	v.SetDefault("rate_limit.survey_max_attempts", 120)
	v.SetDefault("rate_limit.general_max_attempts", 300)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "PORTAL_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
