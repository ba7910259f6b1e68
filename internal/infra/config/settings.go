package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/align/internal/app/config"
)

// EnvPrefix prefixes every environment override, e.g. ALIGN_STATE_BACKEND
const EnvPrefix = "ALIGN"

// Surface names used when the configuration leaves surface empty
const (
	SurfacePanel   = "panel"
	SurfaceOverlay = "overlay"
)

// Settings mirrors the structure of align.yaml
type Settings struct {
	Session       string             `mapstructure:"session" yaml:"session"`
	Surface       string             `mapstructure:"surface" yaml:"surface"`
	Log           LogSettings        `mapstructure:"log" yaml:"log"`
	State         StateSettings      `mapstructure:"state" yaml:"state"`
	Collaborators string             `mapstructure:"collaborators" yaml:"collaborators"`
	API           APISettings        `mapstructure:"api" yaml:"api"`
	Generation    GenerationSettings `mapstructure:"generation" yaml:"generation"`
	Progress      ProgressSettings   `mapstructure:"progress" yaml:"progress"`
	Reporter      ReporterSettings   `mapstructure:"reporter" yaml:"reporter"`
	Upload        UploadSettings     `mapstructure:"upload" yaml:"upload"`
	Storage       StorageSettings    `mapstructure:"storage" yaml:"storage"`
	Agent         string             `mapstructure:"agent" yaml:"agent"`
	Gemini        GeminiSettings     `mapstructure:"gemini" yaml:"gemini"`
	Tracing       TracingSettings    `mapstructure:"tracing" yaml:"tracing"`
}

type LogSettings struct {
	Level string `mapstructure:"level" yaml:"level"`
}

type StateSettings struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	Dir         string `mapstructure:"dir" yaml:"dir"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

type APISettings struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type GenerationSettings struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type ProgressSettings struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Step     int           `mapstructure:"step" yaml:"step"`
	Cap      int           `mapstructure:"cap" yaml:"cap"`
}

type ReporterSettings struct {
	SuccessTTL time.Duration `mapstructure:"success_ttl" yaml:"success_ttl"`
}

type UploadSettings struct {
	MaxBytes    int64  `mapstructure:"max_bytes" yaml:"max_bytes"`
	PreviewBase string `mapstructure:"preview_base" yaml:"preview_base"`
}

type StorageSettings struct {
	Type     string `mapstructure:"type" yaml:"type"`
	Dir      string `mapstructure:"dir" yaml:"dir"`
	S3Bucket string `mapstructure:"s3_bucket" yaml:"s3_bucket"`
	S3Prefix string `mapstructure:"s3_prefix" yaml:"s3_prefix"`
	S3Region string `mapstructure:"s3_region" yaml:"s3_region"`
}

type GeminiSettings struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	Model  string `mapstructure:"model" yaml:"model"`
}

type TracingSettings struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// defaults lists every key with its default value. Keys must be known to
// viper for environment overrides to reach Unmarshal.
var defaults = map[string]interface{}{
	"session":              "default",
	"surface":              "",
	"log.level":            "warn",
	"state.backend":        "file",
	"state.dir":            ".align",
	"state.sqlite_path":    ".align/align.db",
	"state.postgres_dsn":   "",
	"collaborators":        "local",
	"api.base_url":         "http://localhost:8000",
	"api.timeout":          60 * time.Second,
	"generation.timeout":   2 * time.Minute,
	"progress.interval":    500 * time.Millisecond,
	"progress.step":        10,
	"progress.cap":         90,
	"reporter.success_ttl": 3 * time.Second,
	"upload.max_bytes":     int64(10 << 20),
	"upload.preview_base":  "",
	"storage.type":         "local",
	"storage.dir":          ".align",
	"storage.s3_bucket":    "",
	"storage.s3_prefix":    "align",
	"storage.s3_region":    "us-east-1",
	"agent":                "",
	"gemini.api_key":       "",
	"gemini.model":         "gemini-2.5-flash",
	"tracing.enabled":      false,
}

// Options controls where settings are read from
type Options struct {
	// ConfigFile is an explicit align.yaml; when empty, align.yaml is
	// searched in SearchPaths and a missing file is not an error
	ConfigFile  string
	SearchPaths []string

	// EnvFile is loaded into the process environment before anything else;
	// a missing file is ignored
	EnvFile string
}

// DefaultOptions searches the working directory for align.yaml and .env
func DefaultOptions() Options {
	return Options{SearchPaths: []string{"."}, EnvFile: ".env"}
}

// Load reads settings with priority env > align.yaml > defaults
func Load(opts Options) (*config.AppConfig, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", opts.EnvFile, err)
		}
	}

	v := newViper()
	configSource := "default"
	settingPath := ""

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("align")
		v.SetConfigType("yaml")
		for _, p := range opts.SearchPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		configSource = "yaml"
		settingPath, _ = filepath.Abs(v.ConfigFileUsed())
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate(&s); err != nil {
		return nil, err
	}

	return buildAppConfig(&s, configSource, settingPath), nil
}

func newViper() *viper.Viper {
	v := defaultViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The Gemini SDK convention is honoured as a fallback
	_ = v.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY")
	return v
}

func validate(s *Settings) error {
	s.State.Backend = strings.ToLower(s.State.Backend)
	switch s.State.Backend {
	case "file", "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid state.backend %q (want file, sqlite or postgres)", s.State.Backend)
	}
	if s.State.Backend == "postgres" && s.State.PostgresDSN == "" {
		return errors.New("state.postgres_dsn is required for the postgres backend")
	}

	s.Collaborators = strings.ToLower(s.Collaborators)
	switch s.Collaborators {
	case "api", "local":
	default:
		return fmt.Errorf("invalid collaborators %q (want api or local)", s.Collaborators)
	}

	s.Storage.Type = strings.ToLower(s.Storage.Type)
	switch s.Storage.Type {
	case "local", "s3", "memory":
	default:
		return fmt.Errorf("invalid storage.type %q (want local, s3 or memory)", s.Storage.Type)
	}

	if s.Progress.Cap >= 100 {
		return fmt.Errorf("progress.cap must stay below 100, got %d", s.Progress.Cap)
	}
	return nil
}

// buildAppConfig converts Settings to AppConfig
func buildAppConfig(s *Settings, configSource, settingPath string) *config.AppConfig {
	return config.NewAppConfig(config.Values{
		Session:           s.Session,
		Surface:           s.Surface,
		LogLevel:          s.Log.Level,
		StateBackend:      s.State.Backend,
		StateDir:          s.State.Dir,
		SQLitePath:        s.State.SQLitePath,
		PostgresDSN:       s.State.PostgresDSN,
		Collaborators:     s.Collaborators,
		APIBaseURL:        s.API.BaseURL,
		APITimeout:        s.API.Timeout,
		GenerationTimeout: s.Generation.Timeout,
		ProgressInterval:  s.Progress.Interval,
		ProgressStep:      s.Progress.Step,
		ProgressCap:       s.Progress.Cap,
		SuccessTTL:        s.Reporter.SuccessTTL,
		UploadMaxBytes:    s.Upload.MaxBytes,
		PreviewBase:       strings.TrimRight(s.Upload.PreviewBase, "/"),
		StorageType:       s.Storage.Type,
		StorageDir:        s.Storage.Dir,
		S3Bucket:          s.Storage.S3Bucket,
		S3Prefix:          s.Storage.S3Prefix,
		S3Region:          s.Storage.S3Region,
		Agent:             s.Agent,
		GeminiAPIKey:      s.Gemini.APIKey,
		GeminiModel:       s.Gemini.Model,
		TracingEnabled:    s.Tracing.Enabled,
		ConfigSource:      configSource,
		SettingPath:       settingPath,
	})
}

// SettingsFrom converts a loaded configuration back into the file layout.
// Secrets are masked unless reveal is set.
func SettingsFrom(c config.Config, reveal bool) Settings {
	s := Settings{
		Session:       c.Session(),
		Surface:       c.Surface(),
		Log:           LogSettings{Level: c.LogLevel()},
		State:         StateSettings{Backend: c.StateBackend(), Dir: c.StateDir(), SQLitePath: c.SQLitePath(), PostgresDSN: c.PostgresDSN()},
		Collaborators: c.Collaborators(),
		API:           APISettings{BaseURL: c.APIBaseURL(), Timeout: c.APITimeout()},
		Generation:    GenerationSettings{Timeout: c.GenerationTimeout()},
		Progress:      ProgressSettings{Interval: c.ProgressInterval(), Step: c.ProgressStep(), Cap: c.ProgressCap()},
		Reporter:      ReporterSettings{SuccessTTL: c.SuccessTTL()},
		Upload:        UploadSettings{MaxBytes: c.UploadMaxBytes(), PreviewBase: c.PreviewBase()},
		Storage: StorageSettings{
			Type:     c.StorageType(),
			Dir:      c.StorageDir(),
			S3Bucket: c.S3Bucket(),
			S3Prefix: c.S3Prefix(),
			S3Region: c.S3Region(),
		},
		Agent:   c.Agent(),
		Gemini:  GeminiSettings{APIKey: c.GeminiAPIKey(), Model: c.GeminiModel()},
		Tracing: TracingSettings{Enabled: c.TracingEnabled()},
	}
	if !reveal {
		s.Gemini.APIKey = mask(s.Gemini.APIKey)
		s.State.PostgresDSN = mask(s.State.PostgresDSN)
	}
	return s
}

// YAML renders settings as an align.yaml document
func (s Settings) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}

func defaultViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

// CreateDefaultSettings creates a default align.yaml content
func CreateDefaultSettings() []byte {
	v := defaultViper()
	var s Settings
	_ = v.Unmarshal(&s)
	data, _ := yaml.Marshal(s)
	return data
}
