// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Index, Eval, Redis, Postgres, Kafka, Logging, Metrics).
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
	Index    IndexConfig    `yaml:"index"`
	Eval     EvalConfig     `yaml:"eval"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// IndexConfig controls where the index lives, how it analyses text and when
// the memory index is flushed into a segment.
type IndexConfig struct {
	DataDir        string `yaml:"dataDir"`
	Analyzer       string `yaml:"analyzer"`
	StopwordsPath  string `yaml:"stopwordsPath"`
	SegmentMaxSize int64  `yaml:"segmentMaxSize"`
}

// EvalConfig locates the test collection and the output directory.
type EvalConfig struct {
	QueriesPath   string `yaml:"queriesPath"`
	JudgmentsPath string `yaml:"judgmentsPath"`
	OutputDir     string `yaml:"outputDir"`
	TestDepth     int    `yaml:"testDepth"`
}

// PostgresConfig holds PostgreSQL connection parameters for the run archive.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
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

// KafkaConfig holds Kafka broker and topic settings for run events.
type KafkaConfig struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	EvalRuns string `yaml:"evalRuns"`
}

// RedisConfig holds Redis connection and ranking-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus textfile written after each run.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
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

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects values no command can run with.
func (c *Config) Validate() error {
	if c.Index.DataDir == "" {
		return fmt.Errorf("index.dataDir must not be empty")
	}
	if c.Index.SegmentMaxSize <= 0 {
		return fmt.Errorf("index.segmentMaxSize must be positive, got %d", c.Index.SegmentMaxSize)
	}
	if c.Eval.TestDepth <= 0 {
		return fmt.Errorf("eval.testDepth must be positive, got %d", c.Eval.TestDepth)
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topics.EvalRuns == "") {
		return fmt.Errorf("kafka is enabled but brokers or topics.evalRuns is empty")
	}
	if c.Metrics.Enabled && c.Metrics.Textfile == "" {
		return fmt.Errorf("metrics is enabled but metrics.textfile is empty")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			DataDir:        "index",
			Analyzer:       "standard",
			SegmentMaxSize: 64 << 20,
		},
		Eval: EvalConfig{
			QueriesPath:   "query-text",
			JudgmentsPath: "rlv-ass",
			OutputDir:     ".",
			TestDepth:     100,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "npleval",
			User:            "npleval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				EvalRuns: "eval-runs",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 4,
			CacheTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Textfile: "npleval.prom",
		},
	}
}

// applyEnvOverrides reads NPLEVAL_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NPLEVAL_INDEX_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("NPLEVAL_INDEX_ANALYZER"); v != "" {
		cfg.Index.Analyzer = v
	}
	if v := os.Getenv("NPLEVAL_QUERIES_PATH"); v != "" {
		cfg.Eval.QueriesPath = v
	}
	if v := os.Getenv("NPLEVAL_JUDGMENTS_PATH"); v != "" {
		cfg.Eval.JudgmentsPath = v
	}
	if v := os.Getenv("NPLEVAL_OUTPUT_DIR"); v != "" {
		cfg.Eval.OutputDir = v
	}
	if v := os.Getenv("NPLEVAL_POSTGRES_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = b
		}
	}
	if v := os.Getenv("NPLEVAL_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("NPLEVAL_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("NPLEVAL_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("NPLEVAL_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("NPLEVAL_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("NPLEVAL_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("NPLEVAL_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("NPLEVAL_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("NPLEVAL_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("NPLEVAL_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("NPLEVAL_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NPLEVAL_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("NPLEVAL_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Textfile = v
	}
}
