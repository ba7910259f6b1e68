package config

import "time"

// Config provides read-only access to application configuration.
// This interface abstracts the configuration source (YAML, ENV, defaults)
// and ensures the app layer doesn't depend on infrastructure details.
type Config interface {
	// Session and surface
	Session() string // Workflow session ID (ALIGN_SESSION)
	Surface() string // Name stamped on states this process writes (ALIGN_SURFACE)

	// Logging
	LogLevel() string // Stderr log level (ALIGN_LOG_LEVEL)

	// State persistence
	StateBackend() string // file, sqlite or postgres (ALIGN_STATE_BACKEND)
	StateDir() string     // Directory of the file backend
	SQLitePath() string   // Database file of the sqlite backend
	PostgresDSN() string  // Connection string of the postgres backend

	// Collaborators
	Collaborators() string            // api or local (ALIGN_COLLABORATORS)
	APIBaseURL() string               // REST backend base URL
	APITimeout() time.Duration        // Per-request timeout of the REST client
	GenerationTimeout() time.Duration // Bound on a single generation call

	// Status reporting
	ProgressInterval() time.Duration
	ProgressStep() int
	ProgressCap() int
	SuccessTTL() time.Duration

	// Local collaborators
	UploadMaxBytes() int64
	PreviewBase() string // Prefix of upload preview URLs; empty keeps the storage path
	StorageType() string // local, s3 or memory
	StorageDir() string
	S3Bucket() string
	S3Prefix() string
	S3Region() string
	Agent() string // gemini or template
	GeminiAPIKey() string
	GeminiModel() string

	// Tracing
	TracingEnabled() bool

	// Metadata
	ConfigSource() string // Source of configuration: "yaml" or "default"
	SettingPath() string  // Path to align.yaml if loaded from file
}

// Values holds every configuration value. It is filled by the
// infrastructure loader and frozen into an AppConfig.
type Values struct {
	Session string
	Surface string

	LogLevel string

	StateBackend string
	StateDir     string
	SQLitePath   string
	PostgresDSN  string

	Collaborators     string
	APIBaseURL        string
	APITimeout        time.Duration
	GenerationTimeout time.Duration

	ProgressInterval time.Duration
	ProgressStep     int
	ProgressCap      int
	SuccessTTL       time.Duration

	UploadMaxBytes int64
	PreviewBase    string
	StorageType    string
	StorageDir     string
	S3Bucket       string
	S3Prefix       string
	S3Region       string
	Agent          string
	GeminiAPIKey   string
	GeminiModel    string

	TracingEnabled bool

	ConfigSource string
	SettingPath  string
}

// AppConfig is the concrete implementation of Config interface.
type AppConfig struct {
	v Values
}

// NewAppConfig creates a new AppConfig with the given values.
// This is typically called by the infrastructure layer after loading and merging configurations.
func NewAppConfig(v Values) *AppConfig {
	return &AppConfig{v: v}
}

// Values returns a copy of all values
func (c *AppConfig) Values() Values { return c.v }

func (c *AppConfig) Session() string                  { return c.v.Session }
func (c *AppConfig) Surface() string                  { return c.v.Surface }
func (c *AppConfig) LogLevel() string                 { return c.v.LogLevel }
func (c *AppConfig) StateBackend() string             { return c.v.StateBackend }
func (c *AppConfig) StateDir() string                 { return c.v.StateDir }
func (c *AppConfig) SQLitePath() string               { return c.v.SQLitePath }
func (c *AppConfig) PostgresDSN() string              { return c.v.PostgresDSN }
func (c *AppConfig) Collaborators() string            { return c.v.Collaborators }
func (c *AppConfig) APIBaseURL() string               { return c.v.APIBaseURL }
func (c *AppConfig) APITimeout() time.Duration        { return c.v.APITimeout }
func (c *AppConfig) GenerationTimeout() time.Duration { return c.v.GenerationTimeout }
func (c *AppConfig) ProgressInterval() time.Duration  { return c.v.ProgressInterval }
func (c *AppConfig) ProgressStep() int                { return c.v.ProgressStep }
func (c *AppConfig) ProgressCap() int                 { return c.v.ProgressCap }
func (c *AppConfig) SuccessTTL() time.Duration        { return c.v.SuccessTTL }
func (c *AppConfig) UploadMaxBytes() int64            { return c.v.UploadMaxBytes }
func (c *AppConfig) PreviewBase() string              { return c.v.PreviewBase }
func (c *AppConfig) StorageType() string              { return c.v.StorageType }
func (c *AppConfig) StorageDir() string               { return c.v.StorageDir }
func (c *AppConfig) S3Bucket() string                 { return c.v.S3Bucket }
func (c *AppConfig) S3Prefix() string                 { return c.v.S3Prefix }
func (c *AppConfig) S3Region() string                 { return c.v.S3Region }
func (c *AppConfig) Agent() string                    { return c.v.Agent }
func (c *AppConfig) GeminiAPIKey() string             { return c.v.GeminiAPIKey }
func (c *AppConfig) GeminiModel() string              { return c.v.GeminiModel }
func (c *AppConfig) TracingEnabled() bool             { return c.v.TracingEnabled }

// ConfigSource returns the source of configuration
func (c *AppConfig) ConfigSource() string { return c.v.ConfigSource }

// SettingPath returns the path to align.yaml if loaded from file
func (c *AppConfig) SettingPath() string { return c.v.SettingPath }

var _ Config = (*AppConfig)(nil)
