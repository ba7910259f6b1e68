package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(Options{SearchPaths: []string{t.TempDir()}})
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.ConfigSource())
	assert.Empty(t, cfg.SettingPath())
	assert.Equal(t, "default", cfg.Session())
	assert.Empty(t, cfg.Surface(), "the running command picks the surface")
	assert.Equal(t, "warn", cfg.LogLevel())
	assert.Equal(t, "file", cfg.StateBackend())
	assert.Equal(t, "local", cfg.Collaborators())
	assert.Equal(t, 60*time.Second, cfg.APITimeout())
	assert.Equal(t, 2*time.Minute, cfg.GenerationTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.ProgressInterval())
	assert.Equal(t, 90, cfg.ProgressCap())
	assert.Equal(t, int64(10<<20), cfg.UploadMaxBytes())
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel())
	assert.False(t, cfg.TracingEnabled())
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "align.yaml", `
session: demo
state:
  backend: sqlite
  sqlite_path: /tmp/demo.db
generation:
  timeout: 45s
progress:
  step: 5
  cap: 95
collaborators: api
api:
  base_url: http://backend:8000
upload:
  preview_base: http://localhost:3000/
`)

	cfg, err := Load(Options{SearchPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.ConfigSource())
	assert.Equal(t, filepath.Join(dir, "align.yaml"), cfg.SettingPath())
	assert.Equal(t, "demo", cfg.Session())
	assert.Equal(t, "sqlite", cfg.StateBackend())
	assert.Equal(t, "/tmp/demo.db", cfg.SQLitePath())
	assert.Equal(t, 45*time.Second, cfg.GenerationTimeout())
	assert.Equal(t, 5, cfg.ProgressStep())
	assert.Equal(t, 95, cfg.ProgressCap())
	assert.Equal(t, "api", cfg.Collaborators())
	assert.Equal(t, "http://backend:8000", cfg.APIBaseURL())
	assert.Equal(t, "http://localhost:3000", cfg.PreviewBase())
	assert.Equal(t, "file", defaults["state.backend"], "defaults untouched")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", "session: from-file\ngeneration:\n  timeout: 45s\n")
	t.Setenv("ALIGN_SESSION", "from-env")
	t.Setenv("ALIGN_GENERATION_TIMEOUT", "10s")
	t.Setenv("GEMINI_API_KEY", "secret")

	cfg, err := Load(Options{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Session())
	assert.Equal(t, 10*time.Second, cfg.GenerationTimeout())
	assert.Equal(t, "secret", cfg.GeminiAPIKey())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "ALIGN_STORAGE_TYPE=memory\n")

	// godotenv never overrides variables that are already present
	t.Setenv("ALIGN_STORAGE_TYPE", "")
	require.NoError(t, os.Unsetenv("ALIGN_STORAGE_TYPE"))

	cfg, err := Load(Options{SearchPaths: []string{dir}, EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StorageType())

	_, err = Load(Options{SearchPaths: []string{dir}, EnvFile: filepath.Join(dir, "missing.env")})
	assert.NoError(t, err, "missing .env is ignored")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "state:\n  backend: redis\n"},
		{"postgres without dsn", "state:\n  backend: postgres\n"},
		{"unknown collaborators", "collaborators: grpc\n"},
		{"unknown storage", "storage:\n  type: gcs\n"},
		{"progress cap", "progress:\n  cap: 100\n"},
		{"malformed yaml", "state: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "align.yaml", tt.content)
			_, err := Load(Options{ConfigFile: path})
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestSettingsFrom_MasksSecrets(t *testing.T) {
	t.Setenv("ALIGN_GEMINI_API_KEY", "secret")
	cfg, err := Load(Options{SearchPaths: []string{t.TempDir()}})
	require.NoError(t, err)

	data, err := SettingsFrom(cfg, false).YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	var round Settings
	require.NoError(t, yaml.Unmarshal(data, &round))
	assert.Equal(t, "file", round.State.Backend)
	assert.Equal(t, 2*time.Minute, round.Generation.Timeout)

	assert.Equal(t, "secret", SettingsFrom(cfg, true).Gemini.APIKey)
}

func TestCreateDefaultSettings(t *testing.T) {
	var s Settings
	require.NoError(t, yaml.Unmarshal(CreateDefaultSettings(), &s))
	assert.Equal(t, "file", s.State.Backend)
	assert.Equal(t, 90, s.Progress.Cap)
}
