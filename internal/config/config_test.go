package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

var envKeys = []string{
	"SAES_ADDR", "SAES_LOG_LEVEL", "SAES_LOG_SYNC", "SAES_CORS_ORIGINS", "SAES_CORPUS_PATH", "SAES_INDEX_PATH",
	"SAES_RETRIEVAL_REQUIRED", "SAES_EMBEDDINGS_PROVIDER", "SAES_EMBEDDINGS_MODEL", "SAES_EMBEDDINGS_HOST",
	"OLLAMA_HOST", "SAES_GENERATION_PROVIDER", "SAES_GENERATION_MODEL", "SAES_GENERATION_BASE_URL",
	"SAES_GENERATION_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY", "XAI_API_KEY",
	"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_PORT",
	"SAES_RECORDS_PROVIDER", "SAES_RECORDS_FIXTURES", "SAES_TELEMETRY_ENABLED", "SAES_TELEMETRY_DB",
}

// isolate points the user config at a temp dir and clears every variable
// the loader reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// =============================================================================
// Defaults
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration
	cfg := NewConfig()

	// Then: the defaults match the service's tuned values
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.True(t, cfg.Server.LogSync)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)

	assert.Equal(t, 30, cfg.Retrieval.KVector)
	assert.Equal(t, 5, cfg.Retrieval.TopMerge)
	assert.Equal(t, 2000, cfg.Retrieval.MaxChars)
	assert.Equal(t, 3, cfg.Retrieval.ContextTopK)
	assert.False(t, cfg.Retrieval.Required)

	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, "xai", cfg.Generation.Provider)
	assert.Equal(t, 2, cfg.Generation.MaxRetries)

	assert.Equal(t, 1000, cfg.Cache.UsersSize)
	assert.Equal(t, 5*time.Minute, cfg.Cache.UsersTTL)
	assert.Equal(t, 500, cfg.Cache.AnswersSize)
	assert.Equal(t, 10*time.Minute, cfg.Cache.AnswersTTL)

	assert.Equal(t, 60*time.Second, cfg.Queue.JobTimeout)
	assert.Equal(t, 120*time.Second, cfg.Queue.CallerTimeout)

	assert.Equal(t, RecordsNone, cfg.Records.Provider)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Contains(t, cfg.Telemetry.DBPath, "telemetry.db")

	require.NoError(t, cfg.Validate())
}

// =============================================================================
// Loading and precedence
// =============================================================================

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Server, cfg.Server)
}

func TestLoad_Precedence(t *testing.T) {
	// Given: a user file, a project file and an env var touching overlapping keys
	xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "saesagent", "config.yaml"), `
server:
  addr: 0.0.0.0:9000
  log_level: warn
cache:
  users_ttl: 1m
`)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ProjectConfigName), `
server:
  log_level: debug
retrieval:
  k_vector: 40
`)
	t.Setenv("SAES_ADDR", "127.0.0.1:7000")

	// When: loading
	cfg, err := Load(project)
	require.NoError(t, err)

	// Then: env beats project beats user beats defaults
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, time.Minute, cfg.Cache.UsersTTL)
	assert.Equal(t, 40, cfg.Retrieval.KVector)
	assert.Equal(t, 5, cfg.Retrieval.TopMerge, "untouched keys keep defaults")
}

func TestLoad_ExplicitFalseOverridesTrue(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ProjectConfigName), "telemetry:\n  enabled: false\n")

	cfg, err := Load(project)

	require.NoError(t, err)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_LogSync(t *testing.T) {
	t.Run("file turns it off", func(t *testing.T) {
		isolate(t)
		project := t.TempDir()
		writeFile(t, filepath.Join(project, ProjectConfigName), "server:\n  log_sync: false\n")

		cfg, err := Load(project)

		require.NoError(t, err)
		assert.False(t, cfg.Server.LogSync)
	})
	t.Run("env turns it back on", func(t *testing.T) {
		isolate(t)
		project := t.TempDir()
		writeFile(t, filepath.Join(project, ProjectConfigName), "server:\n  log_sync: false\n")
		t.Setenv("SAES_LOG_SYNC", "true")

		cfg, err := Load(project)

		require.NoError(t, err)
		assert.True(t, cfg.Server.LogSync)
	})
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ProjectConfigName), "retrieval:\n  kvector: 10\n")

	_, err := Load(project)

	require.Error(t, err)
	assert.Equal(t, saeserrors.ErrCodeConfigInvalid, saeserrors.GetCode(err))
}

func TestLoad_EmptyFileIsFine(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ProjectConfigName), "")

	_, err := Load(project)

	assert.NoError(t, err)
}

func TestLoadFile_Missing(t *testing.T) {
	isolate(t)

	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Equal(t, saeserrors.ErrCodeConfigNotFound, saeserrors.GetCode(err))
}

// =============================================================================
// Environment
// =============================================================================

func TestEnv_DatabaseVariables(t *testing.T) {
	// Given: the conventional DB_* variables
	isolate(t)
	t.Setenv("DB_HOST", "db.saes.local")
	t.Setenv("DB_USER", "saes")
	t.Setenv("DB_PASSWORD", "secreto")
	t.Setenv("DB_NAME", "saes_prod")
	t.Setenv("DB_PORT", "3307")

	// When: loading
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	// Then: records switch to MySQL with those settings
	assert.Equal(t, RecordsMySQL, cfg.Records.Provider)
	assert.Equal(t, "db.saes.local", cfg.Records.Host)
	assert.Equal(t, "saes", cfg.Records.User)
	assert.Equal(t, "secreto", cfg.Records.Password)
	assert.Equal(t, "saes_prod", cfg.Records.Name)
	assert.Equal(t, 3307, cfg.Records.Port)
}

func TestEnv_APIKeyFollowsProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"xai", "xai-key"},
		{"gemini", "gemini-key"},
		{"openai", "openai-key"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			isolate(t)
			t.Setenv("XAI_API_KEY", "xai-key")
			t.Setenv("GEMINI_API_KEY", "gemini-key")
			t.Setenv("OPENAI_API_KEY", "openai-key")
			t.Setenv("SAES_GENERATION_PROVIDER", tt.provider)

			cfg, err := Load(t.TempDir())

			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Generation.APIKey)
		})
	}
}

func TestEnv_OllamaHostAndLists(t *testing.T) {
	isolate(t)
	t.Setenv("OLLAMA_HOST", "http://gpu:11434")
	t.Setenv("SAES_CORS_ORIGINS", "http://a.local, http://b.local,")
	t.Setenv("SAES_RETRIEVAL_REQUIRED", "true")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "http://gpu:11434", cfg.Embeddings.Host)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Retrieval.Required)
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Server.LogLevel = "verbose" }},
		{"k_vector zero", func(c *Config) { c.Retrieval.KVector = 0 }},
		{"context_top_k above top_merge", func(c *Config) { c.Retrieval.ContextTopK = 6 }},
		{"max_chars too small", func(c *Config) { c.Retrieval.MaxChars = 10 }},
		{"unknown embedder", func(c *Config) { c.Embeddings.Provider = "hugot" }},
		{"unknown generator", func(c *Config) { c.Generation.Provider = "claude" }},
		{"negative retries", func(c *Config) { c.Generation.MaxRetries = -1 }},
		{"zero cache size", func(c *Config) { c.Cache.AnswersSize = 0 }},
		{"zero ttl", func(c *Config) { c.Cache.UsersTTL = 0 }},
		{"request timeout below caller timeout", func(c *Config) { c.Server.RequestTimeout = time.Minute }},
		{"file records without path", func(c *Config) { c.Records.Provider = RecordsFile }},
		{"mysql bad port", func(c *Config) { c.Records.Provider = RecordsMySQL; c.Records.Port = 0 }},
		{"unknown records provider", func(c *Config) { c.Records.Provider = "postgres" }},
		{"telemetry without path", func(c *Config) { c.Telemetry.DBPath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Equal(t, saeserrors.ErrCodeConfigInvalid, saeserrors.GetCode(err))
		})
	}
}

func TestValidate_CaseInsensitiveEnums(t *testing.T) {
	cfg := NewConfig()
	cfg.Server.LogLevel = "DEBUG"
	cfg.Generation.Provider = "Gemini"
	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// Output
// =============================================================================

func TestRedacted_MasksSecrets(t *testing.T) {
	cfg := NewConfig()
	cfg.Generation.APIKey = "xai-123"
	cfg.Records.Password = "secreto"

	r := cfg.Redacted()

	assert.Equal(t, "********", r.Generation.APIKey)
	assert.Equal(t, "********", r.Records.Password)
	assert.Equal(t, "", r.Records.DSN)
	assert.Equal(t, "xai-123", cfg.Generation.APIKey, "original untouched")
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	isolate(t)
	cfg := NewConfig()
	cfg.Retrieval.KVector = 42
	cfg.Cache.AnswersTTL = 90 * time.Second
	path := filepath.Join(t.TempDir(), "out", "config.yaml")

	require.NoError(t, cfg.WriteYAML(path))
	loaded, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Retrieval.KVector)
	assert.Equal(t, 90*time.Second, loaded.Cache.AnswersTTL)
}
