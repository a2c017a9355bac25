package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the eventscope API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Redis      RedisConfig      `yaml:"redis"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Moderation ModerationConfig `yaml:"moderation"`
	Duplicate  DuplicateConfig  `yaml:"duplicate"`
	Search     SearchConfig     `yaml:"search"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RedisConfig holds vector index / cache store connection settings.
// Leave Addrs empty to run with the in-memory vector index (no cache).
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// MongoConfig holds event store connection settings.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // provider label for logs/metrics
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// ModerationConfig holds moderation scorer settings.
type ModerationConfig struct {
	FlagThreshold float64 `yaml:"flag_threshold"`
	Model         string  `yaml:"model"` // chat model for the LLM path; empty disables it
	TimeoutSec    int     `yaml:"timeout_sec"`
}

// DuplicateConfig holds duplicate detector thresholds.
type DuplicateConfig struct {
	CandidateThreshold  float64 `yaml:"candidate_threshold"`
	AutoRejectThreshold float64 `yaml:"auto_reject_threshold"`
}

// SearchConfig holds retrieval ranker settings.
type SearchConfig struct {
	ResultCap       int     `yaml:"result_cap"`
	MaxResultCap    int     `yaml:"max_result_cap"`
	DefaultRadiusKm float64 `yaml:"default_radius_km"`
	MaxRadiusKm     float64 `yaml:"max_radius_km"`
	SemanticTopK    int     `yaml:"semantic_top_k"`
	SemanticTimeout int     `yaml:"semantic_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "eventscope"
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = "events"
	}
	if c.Mongo.TimeoutSec <= 0 {
		c.Mongo.TimeoutSec = 10
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Moderation.FlagThreshold <= 0 {
		c.Moderation.FlagThreshold = 0.5
	}
	if c.Moderation.TimeoutSec <= 0 {
		c.Moderation.TimeoutSec = 5
	}
	if c.Duplicate.CandidateThreshold <= 0 {
		c.Duplicate.CandidateThreshold = 0.7
	}
	if c.Duplicate.AutoRejectThreshold <= 0 {
		c.Duplicate.AutoRejectThreshold = 0.9
	}
	if c.Search.ResultCap <= 0 {
		c.Search.ResultCap = 20
	}
	if c.Search.MaxResultCap <= 0 {
		c.Search.MaxResultCap = 100
	}
	if c.Search.DefaultRadiusKm <= 0 {
		c.Search.DefaultRadiusKm = 25
	}
	if c.Search.MaxRadiusKm <= 0 {
		c.Search.MaxRadiusKm = 100
	}
	if c.Search.SemanticTopK <= 0 {
		c.Search.SemanticTopK = 50
	}
	if c.Search.SemanticTimeout <= 0 {
		c.Search.SemanticTimeout = 3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri is required")
	}
	if c.Duplicate.CandidateThreshold >= c.Duplicate.AutoRejectThreshold {
		return fmt.Errorf(
			"duplicate.candidate_threshold (%v) must be below auto_reject_threshold (%v)",
			c.Duplicate.CandidateThreshold, c.Duplicate.AutoRejectThreshold,
		)
	}
	if c.Moderation.FlagThreshold > 1 {
		return fmt.Errorf("moderation.flag_threshold must be in (0,1], got %v", c.Moderation.FlagThreshold)
	}
	if c.Search.ResultCap > c.Search.MaxResultCap {
		return fmt.Errorf(
			"search.result_cap (%d) must not exceed max_result_cap (%d)",
			c.Search.ResultCap, c.Search.MaxResultCap,
		)
	}
	if c.Search.DefaultRadiusKm > c.Search.MaxRadiusKm {
		return fmt.Errorf(
			"search.default_radius_km (%v) must not exceed max_radius_km (%v)",
			c.Search.DefaultRadiusKm, c.Search.MaxRadiusKm,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
