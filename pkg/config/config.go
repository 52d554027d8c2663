// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Index, Weighting, Search, Run, Postgres, Kafka, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Index     IndexConfig     `yaml:"index"`
	Weighting WeightingConfig `yaml:"weighting"`
	Search    SearchConfig    `yaml:"search"`
	Run       RunConfig       `yaml:"run"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Retry     RetryConfig     `yaml:"retry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. An empty broker list
// disables event publication.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SnapshotPublished string `yaml:"snapshotPublished"`
	SearchEvents      string `yaml:"searchEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// Snapshot backends understood by IndexConfig.SnapshotBackend.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// IndexConfig controls where documents are read from and where the
// postings snapshot is kept.
type IndexConfig struct {
	DocumentsDir    string `yaml:"documentsDir"`
	DataDir         string `yaml:"dataDir"`
	SnapshotBackend string `yaml:"snapshotBackend"`
	SnapshotName    string `yaml:"snapshotName"`
	UseStoredIndex  bool   `yaml:"useStoredIndex"`
	StemCacheSize   int    `yaml:"stemCacheSize"`
}

// Weighting schemes understood by WeightingConfig.Scheme.
const (
	SchemeTF    = "tf"
	SchemeSMART = "smart"
)

// WeightingConfig selects the similarity used for ranking. SMART is a
// three-letter TF/DF/Norm code such as "lnc" (dots are allowed: "l.n.c").
type WeightingConfig struct {
	Scheme string `yaml:"scheme"`
	SMART  string `yaml:"smart"`
}

// SearchConfig controls query execution limits.
type SearchConfig struct {
	MaxResults   int `yaml:"maxResults"`
	DefaultLimit int `yaml:"defaultLimit"`
	Workers      int `yaml:"workers"`
}

// RunConfig describes a batch TREC run.
type RunConfig struct {
	TopicsFile string `yaml:"topicsFile"`
	RunsFile   string `yaml:"runsFile"`
	RunTag     string `yaml:"runTag"`
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

// RetryConfig controls backoff when connecting to external dependencies.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot work at all. Weighting codes
// are checked later, when the scheme is constructed.
func (c *Config) Validate() error {
	switch c.Index.SnapshotBackend {
	case BackendFile, BackendPostgres:
	default:
		return fmt.Errorf("index.snapshotBackend must be %q or %q, got %q",
			BackendFile, BackendPostgres, c.Index.SnapshotBackend)
	}
	switch c.Weighting.Scheme {
	case SchemeTF, SchemeSMART:
	default:
		return fmt.Errorf("weighting.scheme must be %q or %q, got %q",
			SchemeTF, SchemeSMART, c.Weighting.Scheme)
	}
	if c.Index.StemCacheSize <= 0 {
		return fmt.Errorf("index.stemCacheSize must be positive, got %d", c.Index.StemCacheSize)
	}
	if c.Search.Workers <= 0 {
		return fmt.Errorf("search.workers must be positive, got %d", c.Search.Workers)
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "smartretrieval",
			User:            "smartretrieval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "smartretrieval-searcher",
			Topics: KafkaTopics{
				SnapshotPublished: "index.snapshot-published",
				SearchEvents:      "search-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Index: IndexConfig{
			DocumentsDir:    "gov/documents",
			DataDir:         "data",
			SnapshotBackend: BackendFile,
			SnapshotName:    "postings",
			UseStoredIndex:  true,
			StemCacheSize:   100000,
		},
		Weighting: WeightingConfig{
			Scheme: SchemeSMART,
			SMART:  "lnc",
		},
		Search: SearchConfig{
			MaxResults:   1000,
			DefaultLimit: 100,
			Workers:      4,
		},
		Run: RunConfig{
			TopicsFile: "gov/topics/gov.topics",
			RunsFile:   "runs/retrieved.txt",
			RunTag:     "MY_IR_SYSTEM",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
	}
}

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_INDEX_DOCUMENTS_DIR"); v != "" {
		cfg.Index.DocumentsDir = v
	}
	if v := os.Getenv("SP_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("SP_INDEX_SNAPSHOT_BACKEND"); v != "" {
		cfg.Index.SnapshotBackend = v
	}
	if v := os.Getenv("SP_INDEX_USE_STORED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Index.UseStoredIndex = b
		}
	}
	if v := os.Getenv("SP_WEIGHTING_SCHEME"); v != "" {
		cfg.Weighting.Scheme = v
	}
	if v := os.Getenv("SP_WEIGHTING_SMART"); v != "" {
		cfg.Weighting.SMART = v
	}
	if v := os.Getenv("SP_RUN_TAG"); v != "" {
		cfg.Run.RunTag = v
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
