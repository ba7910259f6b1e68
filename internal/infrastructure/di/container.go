package di

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	agentgateway "github.com/YoshitsuguKoike/align/internal/adapter/gateway/agent"
	"github.com/YoshitsuguKoike/align/internal/adapter/gateway/api"
	"github.com/YoshitsuguKoike/align/internal/adapter/gateway/local"
	storagegateway "github.com/YoshitsuguKoike/align/internal/adapter/gateway/storage"
	"github.com/YoshitsuguKoike/align/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/align/internal/app"
	appconfig "github.com/YoshitsuguKoike/align/internal/app/config"
	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	"github.com/YoshitsuguKoike/align/internal/application/service"
	usecase "github.com/YoshitsuguKoike/align/internal/application/usecase/workflow"
	"github.com/YoshitsuguKoike/align/internal/domain/repository"
	"github.com/YoshitsuguKoike/align/internal/infrastructure/persistence/file"
	"github.com/YoshitsuguKoike/align/internal/infrastructure/persistence/postgres"
	"github.com/YoshitsuguKoike/align/internal/infrastructure/persistence/sqlite"
)

// Container is the DI container that holds all dependencies
// This implements manual dependency injection for Clean Architecture
type Container struct {
	// Infrastructure Layer - Database (sqlite and postgres backends only)
	db *sql.DB

	// Infrastructure Layer - Repositories
	stateRepo repository.WorkflowStateRepository

	// Infrastructure Layer - Gateways
	storageGateway output.StorageGateway
	agentGateway   output.AgentGateway
	collaborators  output.Collaborators

	// Infrastructure Layer - Tracing
	tracerProvider *sdktrace.TracerProvider

	// Application Layer
	journal      *app.JournalWriter
	synchronizer *service.Synchronizer
	reporter     *presenter.StatusReporter
	controller   *usecase.Controller

	// Adapter Layer - Presenters
	presenter output.Presenter

	cfg     appconfig.Config
	options Options
}

// Options holds the process-level settings that are not part of align.yaml
type Options struct {
	OutputFormat string // text, json or yaml
	OutputWriter io.Writer
	TraceWriter  io.Writer // Span exporter output when tracing is enabled (default: stderr)
	Fs           afero.Fs  // Filesystem of the file backend and local storage (default: OS)
}

// NewContainer creates and initializes the DI container
func NewContainer(ctx context.Context, cfg appconfig.Config, opts Options) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if opts.OutputWriter == nil {
		opts.OutputWriter = os.Stdout
	}
	if opts.TraceWriter == nil {
		opts.TraceWriter = os.Stderr
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	c := &Container{cfg: cfg, options: opts}

	if err := c.initializeInfrastructure(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	c.initializeApplication()

	if err := c.initializeAdapters(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize adapters: %w", err)
	}

	return c, nil
}

// initializeInfrastructure initializes infrastructure layer components
func (c *Container) initializeInfrastructure(ctx context.Context) error {
	if c.cfg.TracingEnabled() {
		if err := c.initializeTracing(); err != nil {
			return err
		}
	}

	// 1. State repository
	if err := c.initializeStateRepository(ctx); err != nil {
		return err
	}

	// 2. Collaborators
	switch strings.ToLower(c.cfg.Collaborators()) {
	case "api":
		client, err := api.NewClient(c.cfg.APIBaseURL(), c.cfg.APITimeout(), nil)
		if err != nil {
			return fmt.Errorf("failed to create API client: %w", err)
		}
		c.collaborators = client.Collaborators()

	case "local":
		if err := c.initializeStorage(ctx); err != nil {
			return err
		}
		agentType := c.cfg.Agent()
		if agentType == "" {
			agentType = agentgateway.DefaultAgent(c.cfg.GeminiAPIKey())
		}
		gateway, err := agentgateway.NewAgentGateway(ctx, agentType, c.cfg.GeminiAPIKey(), c.cfg.GeminiModel())
		if err != nil {
			return fmt.Errorf("failed to create agent gateway: %w", err)
		}
		c.agentGateway = gateway
		c.collaborators = local.New(c.storageGateway, c.agentGateway, local.Options{
			MaxUploadBytes: c.cfg.UploadMaxBytes(),
			PreviewBase:    c.cfg.PreviewBase(),
		})

	default:
		return fmt.Errorf("unknown collaborators: %s", c.cfg.Collaborators())
	}

	return nil
}

func (c *Container) initializeStateRepository(ctx context.Context) error {
	session := c.cfg.Session()

	switch strings.ToLower(c.cfg.StateBackend()) {
	case "file":
		store, err := file.NewStateStore(c.options.Fs, c.cfg.StateDir(), session)
		if err != nil {
			return fmt.Errorf("failed to create file state store: %w", err)
		}
		c.stateRepo = store

	case "sqlite":
		db, err := sqlite.Open(ctx, c.cfg.SQLitePath())
		if err != nil {
			return err
		}
		c.db = db
		c.stateRepo = sqlite.NewStateStore(db, session)

	case "postgres":
		db, err := postgres.Open(ctx, c.cfg.PostgresDSN())
		if err != nil {
			return err
		}
		c.db = db
		c.stateRepo = postgres.NewStateStore(db, session)

	default:
		return fmt.Errorf("unknown state backend: %s", c.cfg.StateBackend())
	}

	app.GetLogger().Debug("state backend %s for session %s", c.cfg.StateBackend(), session)
	return nil
}

func (c *Container) initializeStorage(ctx context.Context) error {
	switch strings.ToLower(c.cfg.StorageType()) {
	case "local":
		gateway, err := storagegateway.NewLocalStorageGateway(c.options.Fs, c.cfg.StorageDir())
		if err != nil {
			return fmt.Errorf("failed to create local storage gateway: %w", err)
		}
		c.storageGateway = gateway

	case "s3":
		gateway, err := storagegateway.NewS3StorageGateway(ctx, storagegateway.S3Config{
			BucketName: c.cfg.S3Bucket(),
			Prefix:     c.cfg.S3Prefix(),
			Region:     c.cfg.S3Region(),
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 storage gateway: %w", err)
		}
		c.storageGateway = gateway

	case "memory":
		c.storageGateway = storagegateway.NewMockStorageGateway()

	default:
		return fmt.Errorf("unknown storage type: %s", c.cfg.StorageType())
	}
	return nil
}

func (c *Container) initializeTracing() error {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(c.options.TraceWriter),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return fmt.Errorf("failed to create span exporter: %w", err)
	}
	c.tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(c.tracerProvider)
	return nil
}

// initializeApplication initializes application layer components
func (c *Container) initializeApplication() {
	journalPath := filepath.Join(c.cfg.StateDir(), "journal", c.cfg.Session()+".ndjson")
	c.journal = app.NewJournalWriter(c.options.Fs, journalPath)
	c.synchronizer = service.NewSynchronizer(c.stateRepo, c.cfg.Surface()).WithJournal(c.cfg.Session(), c.journal)
	c.reporter = presenter.NewStatusReporter(c.cfg.SuccessTTL())
	c.controller = usecase.NewController(c.synchronizer, c.collaborators, c.reporter, usecase.Options{
		GenerationTimeout: c.cfg.GenerationTimeout(),
		ProgressInterval:  c.cfg.ProgressInterval(),
		ProgressStep:      c.cfg.ProgressStep(),
		ProgressCap:       c.cfg.ProgressCap(),
	})
}

// initializeAdapters initializes adapter layer components
func (c *Container) initializeAdapters() error {
	p, err := presenter.New(c.options.OutputFormat, c.options.OutputWriter)
	if err != nil {
		return err
	}
	c.presenter = p
	return nil
}

// Getters for accessing dependencies

// Config returns the configuration the container was built from
func (c *Container) Config() appconfig.Config {
	return c.cfg
}

func (c *Container) GetController() *usecase.Controller {
	return c.controller
}

func (c *Container) GetSynchronizer() *service.Synchronizer {
	return c.synchronizer
}

func (c *Container) GetReporter() *presenter.StatusReporter {
	return c.reporter
}

func (c *Container) GetPresenter() output.Presenter {
	return c.presenter
}

// GetJournal returns the history of commits made to the session
func (c *Container) GetJournal() *app.JournalWriter {
	return c.journal
}

func (c *Container) GetStateRepository() repository.WorkflowStateRepository {
	return c.stateRepo
}

// GetFs returns the filesystem used for state files and exports
func (c *Container) GetFs() afero.Fs {
	return c.options.Fs
}

// Notifier returns the change notifier of the state backend, or nil when the
// backend cannot signal external writes and the caller has to poll
func (c *Container) Notifier() repository.ChangeNotifier {
	if n, ok := c.stateRepo.(repository.ChangeNotifier); ok {
		return n
	}
	return nil
}

// HealthCheck probes every collaborator backend once
func (c *Container) HealthCheck(ctx context.Context) error {
	seen := make(map[output.HealthChecker]bool)
	var errs []error
	for _, gw := range []interface{}{
		c.collaborators.Upload,
		c.collaborators.Prompt,
		c.collaborators.Generate,
		c.collaborators.Export,
	} {
		hc, ok := gw.(output.HealthChecker)
		if !ok || seen[hc] {
			continue
		}
		seen[hc] = true
		if err := hc.HealthCheck(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.db != nil {
		if err := c.db.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("state database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases all resources
func (c *Container) Close() error {
	var errs []error
	if c.tracerProvider != nil {
		if err := c.tracerProvider.Shutdown(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush spans: %w", err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
