package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration, loaded from the environment.
type Config struct {
	Server         Server
	Postgres       PostgresConfig
	Redis          RedisConfig
	Kafka          KafkaConfig
	Telegram       TelegramConfig
	Retirement     RetirementConfig
	Reconciliation ReconciliationConfig
	Artifacts      ArtifactConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string        `env:"SESSIONSALE_ADDR" envDefault:":8080"`
	LogFormat      string        `env:"SESSIONSALE_LOG_FORMAT" envDefault:"json"`
	LogLevel       string        `env:"SESSIONSALE_LOG_LEVEL" envDefault:"info"`
	JWTSigningKey  string        `env:"SESSIONSALE_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer      string        `env:"SESSIONSALE_JWT_ISSUER" envDefault:"sessionsale"`
	JWTAudience    string        `env:"SESSIONSALE_JWT_AUDIENCE" envDefault:"sessionsale-admin"`
	RequestTimeout time.Duration `env:"SESSIONSALE_REQUEST_TIMEOUT" envDefault:"60s"`
}

// PostgresConfig selects the relational store. An empty DSN runs the service on
// in-memory stores, which is only suitable for local development.
type PostgresConfig struct {
	DSN          string        `env:"SESSIONSALE_POSTGRES_DSN"`
	MaxOpenConns int           `env:"SESSIONSALE_POSTGRES_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"SESSIONSALE_POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
	TxTimeout    time.Duration `env:"SESSIONSALE_POSTGRES_TX_TIMEOUT" envDefault:"5s"`
}

// RedisConfig enables the distributed per-credential lock. With no URL the
// lock is process-local.
type RedisConfig struct {
	URL          string        `env:"SESSIONSALE_REDIS_URL"`
	PoolSize     int           `env:"SESSIONSALE_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"SESSIONSALE_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"SESSIONSALE_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"SESSIONSALE_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"SESSIONSALE_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	LockExpiry   time.Duration `env:"SESSIONSALE_LOCK_EXPIRY" envDefault:"2m"`
}

// KafkaConfig enables the audit stream. With no brokers, audit events are
// kept in memory and logged.
type KafkaConfig struct {
	Brokers     []string `env:"SESSIONSALE_KAFKA_BROKERS" envSeparator:","`
	ClientID    string   `env:"SESSIONSALE_KAFKA_CLIENT_ID" envDefault:"sessionsale"`
	TopicPrefix string   `env:"SESSIONSALE_KAFKA_TOPIC_PREFIX" envDefault:"sessionsale.audit"`
	Partitions  int32    `env:"SESSIONSALE_KAFKA_PARTITIONS" envDefault:"3"`
	Replication int16    `env:"SESSIONSALE_KAFKA_REPLICATION" envDefault:"1"`
}

// TelegramConfig points at the audit channel.
type TelegramConfig struct {
	BotToken       string        `env:"SESSIONSALE_TELEGRAM_BOT_TOKEN"`
	ChatID         string        `env:"SESSIONSALE_TELEGRAM_CHAT_ID"`
	APIBaseURL     string        `env:"SESSIONSALE_TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	RequestTimeout time.Duration `env:"SESSIONSALE_TELEGRAM_TIMEOUT" envDefault:"15s"`
	BreakerTrips   uint32        `env:"SESSIONSALE_TELEGRAM_BREAKER_TRIPS" envDefault:"5"`
	BreakerCooloff time.Duration `env:"SESSIONSALE_TELEGRAM_BREAKER_COOLOFF" envDefault:"30s"`
}

// RetirementConfig bounds the retries of each retirement step.
type RetirementConfig struct {
	NotifyAttempts  int           `env:"SESSIONSALE_NOTIFY_ATTEMPTS" envDefault:"3"`
	ArchiveAttempts int           `env:"SESSIONSALE_ARCHIVE_ATTEMPTS" envDefault:"3"`
	DeleteAttempts  int           `env:"SESSIONSALE_DELETE_ATTEMPTS" envDefault:"3"`
	InitialBackoff  time.Duration `env:"SESSIONSALE_RETRY_INITIAL_BACKOFF" envDefault:"500ms"`
	MaxBackoff      time.Duration `env:"SESSIONSALE_RETRY_MAX_BACKOFF" envDefault:"10s"`
	// FinalizeTimeout bounds cleanup and completion after the credential is
	// retired. Those steps ignore the request's cancellation.
	FinalizeTimeout time.Duration `env:"SESSIONSALE_FINALIZE_TIMEOUT" envDefault:"30s"`
}

// ReconciliationConfig drives the periodic consistency scan.
type ReconciliationConfig struct {
	Interval          time.Duration `env:"SESSIONSALE_RECONCILE_INTERVAL" envDefault:"10m"`
	ApprovedThreshold time.Duration `env:"SESSIONSALE_RECONCILE_APPROVED_THRESHOLD" envDefault:"15m"`
	AutoRepair        bool          `env:"SESSIONSALE_RECONCILE_AUTO_REPAIR" envDefault:"true"`
}

// ArtifactConfig locates on-disk session artifacts.
type ArtifactConfig struct {
	Root string `env:"SESSIONSALE_ARTIFACT_ROOT" envDefault:"./sessions"`
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
