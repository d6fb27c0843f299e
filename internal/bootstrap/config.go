// Package bootstrap wires every connection hub and domain/platform component into the running
// binaries (cmd/syncd, cmd/seedctl). Grounded on the teacher's per-component bootstrap package:
// an env-tagged Config struct plus an InitServers-style constructor that returns an assembled
// Service.
package bootstrap

import (
	"fmt"

	"github.com/mywaytech/dentstage-sync/common"
	"github.com/mywaytech/dentstage-sync/common/mpostgres"
)

// ApplicationName identifies this binary in logs and telemetry resource attributes.
const ApplicationName = "dentstage-sync"

// Config is the top level configuration for the replication engine, covering both the
// replication contract's own settings and the ambient stack (db/cache/queue/telemetry).
type Config struct {
	EnvName       string `env:"ENV_NAME"`
	LogLevel      string `env:"LOG_LEVEL"`
	ServerAddress string `env:"SERVER_ADDRESS"`

	DBHost        string `env:"DB_HOST"`
	DBUser        string `env:"DB_USER"`
	DBPassword    string `env:"DB_PASSWORD"`
	DBName        string `env:"DB_NAME"`
	DBPortPrimary string `env:"DB_PORT_PRIMARY"`
	DBPortReplica string `env:"DB_PORT_REPLICA"`
	DBSSLMode     string `env:"DB_SSL_MODE"`

	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     string `env:"REDIS_PORT"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	MongoURI    string `env:"MONGO_URI"`
	MongoDBName string `env:"MONGO_DB_NAME"`

	RabbitMQURI             string `env:"RABBITMQ_URI"`
	RabbitMQCaptureExchange string `env:"RABBITMQ_CAPTURE_EXCHANGE"`

	OtelLibraryName string `env:"OTEL_LIBRARY_NAME"`
	OtelServiceName string `env:"OTEL_SERVICE_NAME"`

	SwaggerEnabled bool `env:"SWAGGER_ENABLED"`

	CentralApiBaseUrl             string `env:"CENTRAL_API_BASE_URL"`
	BackgroundSyncIntervalMinutes int64  `env:"BACKGROUND_SYNC_INTERVAL_MINUTES"`
	BackgroundSyncBatchSize       int64  `env:"BACKGROUND_SYNC_BATCH_SIZE"`
	PhotoStorageRootPath          string `env:"PHOTO_STORAGE_ROOT_PATH"`

	ServerRole string `env:"SERVER_ROLE"`
	ServerIp   string `env:"SERVER_IP"`
	StoreId    string `env:"STORE_ID"`
	StoreType  string `env:"STORE_TYPE"`
}

// LoadConfig loads a Config from the environment, applying defaults for settings whose zero
// value from SetConfigFromEnvVars would otherwise be unusable (reflection always zeroes ints and
// bools it can't parse, never the field's "real" default).
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := common.SetConfigFromEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: loading config: %w", err)
	}

	if cfg.ServerAddress == "" {
		cfg.ServerAddress = ":3000"
	}

	if cfg.DBSSLMode == "" {
		cfg.DBSSLMode = "disable"
	}

	if cfg.PhotoStorageRootPath == "" {
		cfg.PhotoStorageRootPath = "./data/photos"
	}

	if cfg.RabbitMQCaptureExchange == "" {
		cfg.RabbitMQCaptureExchange = "sync.capture"
	}

	return cfg, nil
}

// postgresPrimaryURL builds the primary database connection string.
func (c *Config) postgresPrimaryURL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPortPrimary, c.DBName, c.DBSSLMode)
}

// postgresReplicaURL builds the read replica connection string.
func (c *Config) postgresReplicaURL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPortReplica, c.DBName, c.DBSSLMode)
}

// NewPostgresConnection builds the postgres connection hub from cfg, shared by the server and
// the seedctl CLI so both dial the database identically.
func NewPostgresConnection(cfg *Config) *mpostgres.PostgresConnection {
	return &mpostgres.PostgresConnection{
		ConnectionStringPrimary: cfg.postgresPrimaryURL(),
		ConnectionStringReplica: cfg.postgresReplicaURL(),
		PrimaryDBName:           cfg.DBName,
		ReplicaDBName:           cfg.DBName,
	}
}

// redisURL builds the redis connection string consumed by redis.ParseURL.
func (c *Config) redisURL() string {
	if c.RedisPassword == "" {
		return fmt.Sprintf("redis://%s:%s/0", c.RedisHost, c.RedisPort)
	}

	return fmt.Sprintf("redis://:%s@%s:%s/0", c.RedisPassword, c.RedisHost, c.RedisPort)
}
