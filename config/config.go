// Package config loads clover settings from defaults, an optional YAML file and CLOVER_ environment variables.
package config

import (
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

type Config struct {
	AppName            string `koanf:"app_name"`
	LogLevel           string `koanf:"log_level"`
	PrettyLogs         bool   `koanf:"pretty_logs"`
	StartupMaxAttempts int    `koanf:"startup_max_attempts"`

	// PostgreSQL
	DatabaseHost                  string        `koanf:"db_host"`
	DatabasePort                  string        `koanf:"db_port"`
	DatabaseUserName              string        `koanf:"db_user_name"`
	DatabasePassword              string        `koanf:"db_password"`
	DatabaseName                  string        `koanf:"db_name"`
	DatabaseSSLMode               string        `koanf:"db_ssl_mode"`
	DatabaseMaxOpenConns          int           `koanf:"db_max_open_conns"`
	DatabaseMaxIdleConns          int           `koanf:"db_max_idle_conns"`
	DatabaseConnMaxLifetime       time.Duration `koanf:"db_conn_max_lifetime"`
	DatabaseMigrationFolderPath   string        `koanf:"db_migration_folder_path"`
	DatabaseMigrationVersion      uint          `koanf:"db_migration_version"`
	DatabaseMigrationForce        int           `koanf:"db_migration_force"`
	DatabaseMigrationAutoRollback bool          `koanf:"db_migration_auto_rollback"`

	// Redis import lock
	RedisEnabled     bool          `koanf:"redis_enabled"`
	RedisHost        string        `koanf:"redis_host"`
	RedisPort        int           `koanf:"redis_port"`
	RedisPassword    string        `koanf:"redis_password"`
	RedisDB          int           `koanf:"redis_db"`
	// ImportLockTTL is the lock expiry. It is extended every TTL/3 while an import runs.
	ImportLockTTL    time.Duration `koanf:"import_lock_ttl"`
	ImportLockWait   time.Duration `koanf:"import_lock_wait"`
	ImportLockPrefix string        `koanf:"import_lock_prefix"`

	// Kafka producer
	KafkaEnabled      bool          `koanf:"kafka_enabled"`
	KafkaBrokers      []string      `koanf:"kafka_brokers"`
	KafkaOutputTopic  string        `koanf:"kafka_output_topic"`
	KafkaBatchSize    int           `koanf:"kafka_batch_size"`
	KafkaBatchTimeout time.Duration `koanf:"kafka_batch_timeout"`
	KafkaRequiredAcks int           `koanf:"kafka_required_acks"`
	KafkaCompression  string        `koanf:"kafka_compression"`

	// Tracing
	TracingEnabled  bool          `koanf:"tracing_enabled"`
	TracingEndpoint string        `koanf:"tracing_endpoint"`
	TracingProtocol string        `koanf:"tracing_protocol"`
	TracingInsecure bool          `koanf:"tracing_insecure"`
	TracingTimeout  time.Duration `koanf:"tracing_timeout"`

	// Matching
	MatchProfile       string             `koanf:"match_profile"`
	MatchThreshold     float64            `koanf:"match_threshold"`
	MatchWeights       map[string]float64 `koanf:"match_weights"`
	MatchMaxCandidates int                `koanf:"match_max_candidates"`
	MergeBackfill      bool               `koanf:"merge_backfill"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		AppName:            "clover",
		LogLevel:           "info",
		StartupMaxAttempts: 5,

		DatabasePort:                  "5432",
		DatabaseName:                  "clover",
		DatabaseSSLMode:               "disable",
		DatabaseMaxOpenConns:          25,
		DatabaseMaxIdleConns:          10,
		DatabaseConnMaxLifetime:       10 * time.Second,
		DatabaseMigrationFolderPath:   "db/pg",
		DatabaseMigrationAutoRollback: true,

		RedisHost:        "localhost",
		RedisPort:        6379,
		ImportLockTTL:    5 * time.Minute,
		ImportLockWait:   30 * time.Second,
		ImportLockPrefix: "clover:lock:",

		KafkaBrokers:      []string{"localhost:9092"},
		KafkaOutputTopic:  "player-events",
		KafkaBatchSize:    100,
		KafkaBatchTimeout: 100 * time.Millisecond,
		KafkaRequiredAcks: 1,
		KafkaCompression:  "snappy",

		TracingProtocol: "grpc",
		TracingTimeout:  10 * time.Second,

		MatchProfile:       matching.ProfileStandard,
		MatchMaxCandidates: 500,
		MergeBackfill:      true,
	}
}

// Database returns the Postgres connection settings
func (c *Config) Database() database.Config {
	return database.Config{
		Host:            c.DatabaseHost,
		Port:            c.DatabasePort,
		User:            c.DatabaseUserName,
		Password:        c.DatabasePassword,
		Name:            c.DatabaseName,
		SSLMode:         c.DatabaseSSLMode,
		MaxOpenConns:    c.DatabaseMaxOpenConns,
		MaxIdleConns:    c.DatabaseMaxIdleConns,
		ConnMaxLifetime: c.DatabaseConnMaxLifetime,
	}
}

// Migration returns the migration settings
func (c *Config) Migration() *database.MigrationConfig {
	return &database.MigrationConfig{
		MigrationFolderPath: c.DatabaseMigrationFolderPath,
		Version:             c.DatabaseMigrationVersion,
		Force:               c.DatabaseMigrationForce,
		AutoRollback:        c.DatabaseMigrationAutoRollback,
	}
}

// Redis returns the Redis connection settings
func (c *Config) Redis() redis.Config {
	return redis.Config{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Kafka returns the event producer settings
func (c *Config) Kafka() kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:      c.KafkaBrokers,
		Topic:        c.KafkaOutputTopic,
		BatchSize:    c.KafkaBatchSize,
		BatchTimeout: c.KafkaBatchTimeout,
		RequiredAcks: c.KafkaRequiredAcks,
		Compression:  c.KafkaCompression,
	}
}

// Tracing returns the tracer provider settings
func (c *Config) Tracing() tracing.Config {
	return tracing.Config{
		ServiceName: c.AppName,
		Enabled:     c.TracingEnabled,
		OTLP: exporters.OTLPConfig{
			Endpoint: c.TracingEndpoint,
			Protocol: c.TracingProtocol,
			Insecure: c.TracingInsecure,
			Timeout:  c.TracingTimeout,
		},
	}
}

// Matching resolves the scoring profile with its overrides and returns the matcher settings
func (c *Config) Matching() (matching.Config, error) {
	profile, err := matching.ProfileByName(c.MatchProfile)
	if err != nil {
		return matching.Config{}, err
	}
	profile = profile.WithOverrides(c.MatchThreshold, c.MatchWeights)
	if err := profile.Validate(); err != nil {
		return matching.Config{}, err
	}

	return matching.Config{
		Profile:       profile,
		MaxCandidates: c.MatchMaxCandidates,
	}, nil
}
