package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the vocabulary engine.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Vocab      VocabConfig      `mapstructure:"vocab"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Dictionary DictionaryConfig `mapstructure:"dictionary"`
}

// DatabaseConfig holds durable-store configuration. Driver selects between
// postgres (pgx pool) and sqlite (local file at Path).
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
	LogSQL   bool   `mapstructure:"log_sql"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// VocabConfig tunes the write-behind store and its background machinery.
type VocabConfig struct {
	FlushIntervalSeconds int    `mapstructure:"flush_interval_seconds"`
	LevelWordsDir        string `mapstructure:"level_words_dir"`
	Workers              int    `mapstructure:"workers"`
	EmbeddingCacheSize   int    `mapstructure:"embedding_cache_size"`
}

// EmbeddingConfig points at an OpenAI-compatible embeddings endpoint. An
// empty base URL disables recommendations entirely.
type EmbeddingConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DictionaryConfig points at the local ECDICT sqlite file used to enrich new
// word records. An empty path disables enrichment.
type DictionaryConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	setDefaults()

	// Enable reading from environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read configuration file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Database defaults
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "lexitrack")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.path", "lexitrack.db")
	viper.SetDefault("database.log_sql", false)

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	// Vocabulary store defaults
	viper.SetDefault("vocab.flush_interval_seconds", 30)
	viper.SetDefault("vocab.level_words_dir", "data/level_words")
	viper.SetDefault("vocab.workers", 2)
	viper.SetDefault("vocab.embedding_cache_size", 65536)

	// Embedding defaults
	viper.SetDefault("embedding.base_url", "")
	viper.SetDefault("embedding.api_key", "")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.timeout_seconds", 30)

	viper.SetDefault("dictionary.path", "")
}

// DatabaseDriver returns the normalized durable-store driver name.
func (c *Config) DatabaseDriver() string {
	return strings.ToLower(strings.TrimSpace(c.Database.Driver))
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// FlushInterval returns the write-behind flush period.
func (c *VocabConfig) FlushInterval() time.Duration {
	if c.FlushIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.FlushIntervalSeconds) * time.Second
}

// Timeout returns the per-request embedding timeout.
func (c *EmbeddingConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Enabled reports whether an embedding endpoint is configured.
func (c *EmbeddingConfig) Enabled() bool {
	return strings.TrimSpace(c.BaseURL) != ""
}
