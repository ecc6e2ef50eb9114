// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Index, Build, Sort, Ranking, Logging, Metrics, Redis, Postgres,
// Kafka).
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
	Build    BuildConfig    `yaml:"build"`
	Sort     SortConfig     `yaml:"sort"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
}

// IndexConfig locates the persisted index files.
type IndexConfig struct {
	Dir            string `yaml:"dir"`
	LineTerminator string `yaml:"lineTerminator"`
}

// BuildConfig describes where documents come from and how they are read.
type BuildConfig struct {
	Source       string        `yaml:"source"`
	StopList     string        `yaml:"stopList"`
	Offline      bool          `yaml:"offline"`
	StripHeader  bool          `yaml:"stripHeader"`
	FetchTimeout time.Duration `yaml:"fetchTimeout"`
	UserAgent    string        `yaml:"userAgent"`

	// FetchAttempts bounds retries of a failed download; FetchBackoff is
	// the first retry delay and doubles after that.
	FetchAttempts int           `yaml:"fetchAttempts"`
	FetchBackoff  time.Duration `yaml:"fetchBackoff"`

	// FetchPerHost caps requests per second sent to one host, 0 for no cap.
	FetchPerHost float64 `yaml:"fetchPerHost"`
}

// SortConfig controls the external sort of the forward index.
type SortConfig struct {
	ChunkRecords int    `yaml:"chunkRecords"`
	Parallelism  int    `yaml:"parallelism"`
	TempDir      string `yaml:"tempDir"`
}

// RankingConfig selects the scoring model and its tunable constants.
type RankingConfig struct {
	Model                string      `yaml:"model"`
	Queries              string      `yaml:"queries"`
	Output               string      `yaml:"output"`
	RunTag               string      `yaml:"runTag"`
	MaxResults           int         `yaml:"maxResults"`
	Concurrency          int         `yaml:"concurrency"`
	NormalizeQueryVector bool        `yaml:"normalizeQueryVector"`
	Okapi                OkapiConfig `yaml:"okapi"`
	BM25                 BM25Config  `yaml:"bm25"`
}

// OkapiConfig holds the constants of the Okapi TF weight
// tf / (tf + K + LengthWeight*len/avgLen).
type OkapiConfig struct {
	K            float64 `yaml:"k"`
	LengthWeight float64 `yaml:"lengthWeight"`
}

// BM25Config holds the BM25 constants.
type BM25Config struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
	K3 float64 `yaml:"k3"`
}

// LoggingConfig controls structured logging level, output format and the
// optional rotated log file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`

	// After BreakerThreshold consecutive failures the cache stops calling
	// Redis for BreakerCooldown.
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerCooldown  time.Duration `yaml:"breakerCooldown"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete string `yaml:"indexComplete"`
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

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Index.Dir == "" {
		return fmt.Errorf("index.dir must not be empty")
	}
	if c.Index.LineTerminator != "\n" && c.Index.LineTerminator != "\r\n" {
		return fmt.Errorf("index.lineTerminator must be \\n or \\r\\n, got %q", c.Index.LineTerminator)
	}
	if c.Sort.ChunkRecords <= 0 {
		return fmt.Errorf("sort.chunkRecords must be positive, got %d", c.Sort.ChunkRecords)
	}
	if c.Build.FetchPerHost < 0 {
		return fmt.Errorf("build.fetchPerHost must not be negative, got %v", c.Build.FetchPerHost)
	}
	if c.Ranking.MaxResults < 0 {
		return fmt.Errorf("ranking.maxResults must not be negative, got %d", c.Ranking.MaxResults)
	}
	if c.Ranking.BM25.B < 0 || c.Ranking.BM25.B > 1 {
		return fmt.Errorf("ranking.bm25.b must be within [0,1], got %v", c.Ranking.BM25.B)
	}
	return nil
}

// defaultConfig returns a Config with defaults suited to a local batch run.
func defaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Dir:            "indexes",
			LineTerminator: "\n",
		},
		Build: BuildConfig{
			Offline:      true,
			StripHeader:  false,
			FetchTimeout:  3 * time.Second,
			UserAgent:     "Mozilla",
			FetchAttempts: 3,
			FetchBackoff:  250 * time.Millisecond,
			FetchPerHost:  4,
		},
		Sort: SortConfig{
			ChunkRecords: 100000,
			Parallelism:  4,
		},
		Ranking: RankingConfig{
			Model:       "bm25",
			Output:      "results.txt",
			RunTag:      "run1",
			Concurrency: 4,
			Okapi: OkapiConfig{
				K:            0.5,
				LengthWeight: 1.5,
			},
			BM25: BM25Config{
				K1: 1.2,
				B:  0.75,
				K3: 500,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize:         10,
			CacheTTL:         10 * time.Minute,
			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "retrieval",
			User:            "retrieval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				IndexComplete: "index.complete",
			},
		},
	}
}

// applyEnvOverrides reads IR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IR_INDEX_DIR"); v != "" {
		cfg.Index.Dir = v
	}
	if v := os.Getenv("IR_BUILD_SOURCE"); v != "" {
		cfg.Build.Source = v
	}
	if v := os.Getenv("IR_BUILD_STOPLIST"); v != "" {
		cfg.Build.StopList = v
	}
	if v := os.Getenv("IR_BUILD_OFFLINE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Build.Offline = b
		}
	}
	if v := os.Getenv("IR_SORT_CHUNK_RECORDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sort.ChunkRecords = n
		}
	}
	if v := os.Getenv("IR_SORT_TEMP_DIR"); v != "" {
		cfg.Sort.TempDir = v
	}
	if v := os.Getenv("IR_RANKING_MODEL"); v != "" {
		cfg.Ranking.Model = v
	}
	if v := os.Getenv("IR_RANKING_OUTPUT"); v != "" {
		cfg.Ranking.Output = v
	}
	if v := os.Getenv("IR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("IR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("IR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("IR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("IR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("IR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("IR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
}
