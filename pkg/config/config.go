// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Engine, Indexer, Search, etc.).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envPrefix is prepended to every override variable, e.g. SP_POSTGRES_HOST.
const envPrefix = "SP"

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Engine   EngineConfig   `yaml:"engine"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Search   SearchConfig   `yaml:"search"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout" envconfig:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" envconfig:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"shutdown_timeout"`
	// CORSOrigins lists browser origins allowed to call the search API; "*"
	// allows any.
	CORSOrigins []string `yaml:"corsOrigins" envconfig:"cors_origins"`
}

// PostgresConfig holds PostgreSQL connection parameters for the primary store.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode" envconfig:"sslmode"`
	MaxOpenConns    int           `yaml:"maxOpenConns" envconfig:"max_open_conns"`
	MaxIdleConns    int           `yaml:"maxIdleConns" envconfig:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" envconfig:"conn_max_lifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup" envconfig:"consumer_group"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	EntityEvents string `yaml:"entityEvents" envconfig:"entity_events"`
}

// RedisConfig holds Redis connection and result-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize" envconfig:"pool_size"`
	CacheTTL time.Duration `yaml:"cacheTTL" envconfig:"cache_ttl"`
}

// EngineConfig points at the document-search engine.
type EngineConfig struct {
	Addresses     []string      `yaml:"addresses"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Timeout       time.Duration `yaml:"timeout"`
	CompanyIndex  string        `yaml:"companyIndex" envconfig:"company_index"`
	EmployeeIndex string        `yaml:"employeeIndex" envconfig:"employee_index"`
}

// IndexerConfig controls the indexer worker and the bulk reindex pipeline.
type IndexerConfig struct {
	BatchSize       int           `yaml:"batchSize" envconfig:"batch_size"`
	RetryAttempts   int           `yaml:"retryAttempts" envconfig:"retry_attempts"`
	RetryDelay      time.Duration `yaml:"retryDelay" envconfig:"retry_delay"`
	ReindexSchedule string        `yaml:"reindexSchedule" envconfig:"reindex_schedule"`
}

// SearchConfig controls query sizing.
type SearchConfig struct {
	DefaultSize int `yaml:"defaultSize" envconfig:"default_size"`
	MaxSize     int `yaml:"maxSize" envconfig:"max_size"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies SP_* environment
// overrides. Missing values keep the defaults from Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	var problems []string
	if len(c.Engine.Addresses) == 0 {
		problems = append(problems, "engine.addresses must not be empty")
	}
	if c.Engine.CompanyIndex == "" || c.Engine.EmployeeIndex == "" {
		problems = append(problems, "engine index names must be set")
	}
	if c.Indexer.BatchSize <= 0 {
		problems = append(problems, "indexer.batchSize must be positive")
	}
	if c.Search.DefaultSize <= 0 || c.Search.MaxSize < c.Search.DefaultSize {
		problems = append(problems, "search.defaultSize must be positive and not exceed search.maxSize")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Default returns a Config with defaults suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "companies",
			User:            "companies",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "company-search-indexer",
			Topics: KafkaTopics{
				EntityEvents: "entity-events",
			},
		},
		Redis: RedisConfig{
			Enabled:  true,
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 30 * time.Second,
		},
		Engine: EngineConfig{
			Addresses:     []string{"http://localhost:9200"},
			Username:      "elastic",
			Password:      "localdev",
			Timeout:       30 * time.Second,
			CompanyIndex:  "companies",
			EmployeeIndex: "employees",
		},
		Indexer: IndexerConfig{
			BatchSize:     100,
			RetryAttempts: 3,
			RetryDelay:    200 * time.Millisecond,
		},
		Search: SearchConfig{
			DefaultSize: 10,
			MaxSize:     100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}
