// Package config loads saesagent settings from defaults, YAML files and
// the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// ProjectConfigName is the per-directory config file.
const ProjectConfigName = "saesagent.yaml"

// Config is the complete saesagent configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" json:"retrieval"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Generation GenerationConfig `yaml:"generation" json:"generation"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Queue      QueueConfig      `yaml:"queue" json:"queue"`
	Records    RecordsConfig    `yaml:"records" json:"records"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
}

// ServerConfig configures the HTTP surface and logging.
type ServerConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogSync fsyncs the log file after every record. Turn off on slow
	// disks; `saesagent logs -f` then lags by the OS flush interval.
	LogSync bool `yaml:"log_sync" json:"log_sync"`
	// RequestTimeout bounds writing one response; it must exceed
	// queue.caller_timeout.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins" json:"cors_origins"`
}

// RetrievalConfig locates the regulation corpus and tunes hybrid search.
type RetrievalConfig struct {
	CorpusPath  string `yaml:"corpus_path" json:"corpus_path"`
	IndexPath   string `yaml:"index_path" json:"index_path"`
	KVector     int    `yaml:"k_vector" json:"k_vector"`
	TopMerge    int    `yaml:"top_merge" json:"top_merge"`
	MaxChars    int    `yaml:"max_chars" json:"max_chars"`
	ContextTopK int    `yaml:"context_top_k" json:"context_top_k"`
	// Required makes a missing corpus or index fatal at startup.
	Required bool `yaml:"required" json:"required"`
}

// EmbeddingsConfig selects the query embedder.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Host       string `yaml:"host" json:"host"`
	APIKey     string `yaml:"api_key,omitempty" json:"-"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	CacheSize  int    `yaml:"cache_size" json:"cache_size"`
}

// GenerationConfig selects and guards the text generator.
type GenerationConfig struct {
	Provider          string        `yaml:"provider" json:"provider"`
	Model             string        `yaml:"model" json:"model"`
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	APIKey            string        `yaml:"api_key,omitempty" json:"-"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
}

// CacheConfig sizes the user-record and answer caches.
type CacheConfig struct {
	UsersSize   int           `yaml:"users_size" json:"users_size"`
	UsersTTL    time.Duration `yaml:"users_ttl" json:"users_ttl"`
	AnswersSize int           `yaml:"answers_size" json:"answers_size"`
	AnswersTTL  time.Duration `yaml:"answers_ttl" json:"answers_ttl"`
}

// QueueConfig bounds generation jobs.
type QueueConfig struct {
	JobTimeout    time.Duration `yaml:"job_timeout" json:"job_timeout"`
	CallerTimeout time.Duration `yaml:"caller_timeout" json:"caller_timeout"`
}

// RecordsConfig selects where academic records come from.
type RecordsConfig struct {
	// Provider is mysql, file or none.
	Provider     string `yaml:"provider" json:"provider"`
	DSN          string `yaml:"dsn,omitempty" json:"-"`
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	User         string `yaml:"user" json:"user"`
	Password     string `yaml:"password,omitempty" json:"-"`
	Name         string `yaml:"name" json:"name"`
	FixturesPath string `yaml:"fixtures_path" json:"fixtures_path"`
	MaxOpenConns int    `yaml:"max_open_conns" json:"max_open_conns"`
}

// TelemetryConfig controls answer metrics persistence.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	DBPath  string `yaml:"db_path" json:"db_path"`
}

// Records providers.
const (
	RecordsMySQL = "mysql"
	RecordsFile  = "file"
	RecordsNone  = "none"
)

var (
	validLogLevels          = []string{"debug", "info", "warn", "error"}
	validEmbeddingProviders = []string{"ollama", "openai", "static"}
	validGenProviders       = []string{"xai", "openai", "gemini"}
	validRecordProviders    = []string{RecordsMySQL, RecordsFile, RecordsNone}
)

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:           "127.0.0.1:8000",
			LogLevel:       "info",
			LogSync:        true,
			RequestTimeout: 150 * time.Second,
			CORSOrigins:    []string{"*"},
		},
		Retrieval: RetrievalConfig{
			CorpusPath:  "reglamentos_ipn.json",
			IndexPath:   "reglamentos_ipn.hnsw",
			KVector:     30,
			TopMerge:    5,
			MaxChars:    2000,
			ContextTopK: 3,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			Host:       "http://localhost:11434",
			Dimensions: 0,
			CacheSize:  1000,
		},
		Generation: GenerationConfig{
			Provider:          "xai",
			Model:             "grok-3-mini",
			Timeout:           120 * time.Second,
			RequestsPerMinute: 60,
			MaxRetries:        2,
		},
		Cache: CacheConfig{
			UsersSize:   1000,
			UsersTTL:    5 * time.Minute,
			AnswersSize: 500,
			AnswersTTL:  10 * time.Minute,
		},
		Queue: QueueConfig{
			JobTimeout:    60 * time.Second,
			CallerTimeout: 120 * time.Second,
		},
		Records: RecordsConfig{
			Provider:     RecordsNone,
			Host:         "localhost",
			Port:         3306,
			Name:         "saes",
			MaxOpenConns: 10,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
			DBPath:  defaultTelemetryPath(),
		},
	}
}

func defaultTelemetryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".saesagent", "telemetry.db")
	}
	return filepath.Join(home, ".saesagent", "telemetry.db")
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/saesagent/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/saesagent/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "saesagent", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "saesagent", "config.yaml")
	}
	return filepath.Join(home, ".config", "saesagent", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for the given working directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/saesagent/config.yaml)
//  3. Project config (saesagent.yaml in dir)
//  4. Environment variables (SAES_*, DB_*, provider API keys)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if path := filepath.Join(dir, ProjectConfigName); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads defaults overlaid with one explicit file and the
// environment.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes path over the current values. Keys absent from the
// file keep their value; unknown keys are rejected.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return saeserrors.New(saeserrors.ErrCodeConfigNotFound,
				fmt.Sprintf("config file %s not found", path), err)
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return saeserrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}
	return nil
}

// applyEnvOverrides applies SAES_* and the conventional DB_* and API key
// variables.
func (c *Config) applyEnvOverrides() {
	setString(&c.Server.Addr, "SAES_ADDR")
	setString(&c.Server.LogLevel, "SAES_LOG_LEVEL")
	setBool(&c.Server.LogSync, "SAES_LOG_SYNC")
	if v := os.Getenv("SAES_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	setString(&c.Retrieval.CorpusPath, "SAES_CORPUS_PATH")
	setString(&c.Retrieval.IndexPath, "SAES_INDEX_PATH")
	setBool(&c.Retrieval.Required, "SAES_RETRIEVAL_REQUIRED")

	setString(&c.Embeddings.Provider, "SAES_EMBEDDINGS_PROVIDER")
	setString(&c.Embeddings.Model, "SAES_EMBEDDINGS_MODEL")
	setString(&c.Embeddings.Host, "OLLAMA_HOST")
	setString(&c.Embeddings.Host, "SAES_EMBEDDINGS_HOST")

	setString(&c.Generation.Provider, "SAES_GENERATION_PROVIDER")
	setString(&c.Generation.Model, "SAES_GENERATION_MODEL")
	setString(&c.Generation.BaseURL, "SAES_GENERATION_BASE_URL")
	if c.Generation.APIKey == "" {
		switch strings.ToLower(c.Generation.Provider) {
		case "gemini":
			setString(&c.Generation.APIKey, "GEMINI_API_KEY")
		case "openai":
			setString(&c.Generation.APIKey, "OPENAI_API_KEY")
		default:
			setString(&c.Generation.APIKey, "XAI_API_KEY")
		}
	}
	setString(&c.Generation.APIKey, "SAES_GENERATION_API_KEY")
	if c.Embeddings.APIKey == "" && strings.ToLower(c.Embeddings.Provider) == "openai" {
		setString(&c.Embeddings.APIKey, "OPENAI_API_KEY")
	}

	// DB_HOST alone is enough to switch records to MySQL.
	if os.Getenv("DB_HOST") != "" && c.Records.Provider == RecordsNone {
		c.Records.Provider = RecordsMySQL
	}
	setString(&c.Records.Host, "DB_HOST")
	setString(&c.Records.User, "DB_USER")
	setString(&c.Records.Password, "DB_PASSWORD")
	setString(&c.Records.Name, "DB_NAME")
	setInt(&c.Records.Port, "DB_PORT")
	setString(&c.Records.Provider, "SAES_RECORDS_PROVIDER")
	setString(&c.Records.FixturesPath, "SAES_RECORDS_FIXTURES")

	setBool(&c.Telemetry.Enabled, "SAES_TELEMETRY_ENABLED")
	setString(&c.Telemetry.DBPath, "SAES_TELEMETRY_DB")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return saeserrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if !slices.Contains(validLogLevels, strings.ToLower(c.Server.LogLevel)) {
		return invalid("server.log_level must be one of %s, got %q", strings.Join(validLogLevels, ", "), c.Server.LogLevel)
	}
	if c.Server.Addr == "" {
		return invalid("server.addr is required")
	}
	if c.Server.RequestTimeout <= 0 {
		return invalid("server.request_timeout must be positive, got %s", c.Server.RequestTimeout)
	}

	if c.Retrieval.CorpusPath == "" || c.Retrieval.IndexPath == "" {
		return invalid("retrieval.corpus_path and retrieval.index_path are required")
	}
	if c.Retrieval.KVector < 1 || c.Retrieval.KVector > 500 {
		return invalid("retrieval.k_vector must be between 1 and 500, got %d", c.Retrieval.KVector)
	}
	if c.Retrieval.TopMerge < 1 || c.Retrieval.TopMerge > 50 {
		return invalid("retrieval.top_merge must be between 1 and 50, got %d", c.Retrieval.TopMerge)
	}
	if c.Retrieval.ContextTopK < 1 || c.Retrieval.ContextTopK > c.Retrieval.TopMerge {
		return invalid("retrieval.context_top_k must be between 1 and top_merge (%d), got %d", c.Retrieval.TopMerge, c.Retrieval.ContextTopK)
	}
	if c.Retrieval.MaxChars < 100 {
		return invalid("retrieval.max_chars must be at least 100, got %d", c.Retrieval.MaxChars)
	}

	if !slices.Contains(validEmbeddingProviders, strings.ToLower(c.Embeddings.Provider)) {
		return invalid("embeddings.provider must be one of %s, got %q", strings.Join(validEmbeddingProviders, ", "), c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions < 0 {
		return invalid("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}

	if !slices.Contains(validGenProviders, strings.ToLower(c.Generation.Provider)) {
		return invalid("generation.provider must be one of %s, got %q", strings.Join(validGenProviders, ", "), c.Generation.Provider)
	}
	if c.Generation.Timeout <= 0 {
		return invalid("generation.timeout must be positive, got %s", c.Generation.Timeout)
	}
	if c.Generation.RequestsPerMinute < 0 || c.Generation.MaxRetries < 0 {
		return invalid("generation.requests_per_minute and generation.max_retries must be non-negative")
	}

	if c.Cache.UsersSize < 1 || c.Cache.AnswersSize < 1 {
		return invalid("cache sizes must be positive")
	}
	if c.Cache.UsersTTL <= 0 || c.Cache.AnswersTTL <= 0 {
		return invalid("cache TTLs must be positive")
	}

	if c.Queue.JobTimeout <= 0 || c.Queue.CallerTimeout <= 0 {
		return invalid("queue timeouts must be positive")
	}
	if c.Server.RequestTimeout <= c.Queue.CallerTimeout {
		return invalid("server.request_timeout (%s) must exceed queue.caller_timeout (%s)", c.Server.RequestTimeout, c.Queue.CallerTimeout)
	}

	switch strings.ToLower(c.Records.Provider) {
	case RecordsMySQL:
		if c.Records.DSN == "" && (c.Records.Host == "" || c.Records.Name == "") {
			return invalid("records: mysql needs dsn or host and name")
		}
		if c.Records.Port < 1 || c.Records.Port > 65535 {
			return invalid("records.port must be between 1 and 65535, got %d", c.Records.Port)
		}
	case RecordsFile:
		if c.Records.FixturesPath == "" {
			return invalid("records: file provider needs fixtures_path")
		}
	case RecordsNone:
	default:
		return invalid("records.provider must be one of %s, got %q", strings.Join(validRecordProviders, ", "), c.Records.Provider)
	}

	if c.Telemetry.Enabled && c.Telemetry.DBPath == "" {
		return invalid("telemetry.db_path is required when telemetry is enabled")
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Server.CORSOrigins = slices.Clone(c.Server.CORSOrigins)
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	out.Generation.APIKey = mask(c.Generation.APIKey)
	out.Embeddings.APIKey = mask(c.Embeddings.APIKey)
	out.Records.Password = mask(c.Records.Password)
	out.Records.DSN = mask(c.Records.DSN)
	return &out
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
