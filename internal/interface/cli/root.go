package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	controller "github.com/YoshitsuguKoike/align/internal/adapter/controller/cli"
	"github.com/YoshitsuguKoike/align/internal/app/config"
	"github.com/YoshitsuguKoike/align/internal/domain/model"
	infraConfig "github.com/YoshitsuguKoike/align/internal/infra/config"
	"github.com/YoshitsuguKoike/align/internal/infrastructure/di"
	"github.com/YoshitsuguKoike/align/internal/interface/cli/version"
)

// rootFlags holds the persistent flags shared by every command
type rootFlags struct {
	configFile string
	envFile    string
	session    string
	surface    string
	output     string
	logLevel   string
}

// invocation is the per-process application: configuration is loaded before
// any command runs and the container is built on first use
type invocation struct {
	root      *cobra.Command
	flags     rootFlags
	fs        afero.Fs
	cfg       config.Config
	container *di.Container
}

func NewRoot() *cobra.Command {
	s := &invocation{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Turn a screenshot and a description into a mockup",
		Long: `align walks one workflow per session: upload a screenshot, describe the
change you want, generate a mockup and export it. The panel commands and the
overlay share the saved session, so either surface can continue the other's work.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.load(cmd)
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	s.root = cmd

	flags := cmd.PersistentFlags()
	flags.StringVar(&s.flags.configFile, "config", "", "Config file (default: ./align.yaml if present)")
	flags.StringVar(&s.flags.envFile, "env-file", ".env", "Dotenv file loaded before the configuration")
	flags.StringVar(&s.flags.session, "session", "", "Workflow session ID (overrides ALIGN_SESSION)")
	flags.StringVar(&s.flags.surface, "surface", "", "Surface name recorded on saved state (overrides ALIGN_SURFACE)")
	flags.StringVarP(&s.flags.output, "output", "o", "text", "Output format (text, json, yaml)")
	flags.StringVar(&s.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	workflow := controller.NewWorkflowController(s.runtime)
	cmd.AddCommand(workflow.Commands()...)
	cmd.AddCommand(newOverlayCmd(s.runtime))
	cmd.AddCommand(newConfigCmd(s.fs, s.config))
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(version.NewCommand())
	s.closeAfter(cmd)
	return cmd
}

// closeAfter wraps the RunE of cmd and its children so the container is
// closed whether or not the command fails. cobra skips post-run hooks on error.
func (s *invocation) closeAfter(cmd *cobra.Command) {
	for _, child := range cmd.Commands() {
		s.closeAfter(child)
	}
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(c *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := s.close(); cerr != nil {
				if err == nil {
					err = cerr
				} else {
					Warn("%v", cerr)
				}
			}
		}()
		return run(c, args)
	}
}

// surfaceFor names the surface a command runs as when neither --surface
// nor the configuration chose one
func surfaceFor(cmd *cobra.Command, configured string) string {
	if configured != "" {
		return configured
	}
	if cmd != nil && cmd.Name() == overlayCommandName {
		return infraConfig.SurfaceOverlay
	}
	return infraConfig.SurfacePanel
}

// load reads align.yaml, .env and the environment, applies flag overrides
// and initializes logging
func (s *invocation) load(cmd *cobra.Command) error {
	opts := infraConfig.DefaultOptions()
	opts.ConfigFile = s.flags.configFile
	opts.EnvFile = s.flags.envFile

	loaded, err := infraConfig.Load(opts)
	if err != nil {
		return err
	}

	v := loaded.Values()
	if s.flags.session != "" {
		v.Session = s.flags.session
	}
	if s.flags.surface != "" {
		v.Surface = s.flags.surface
	}
	v.Surface = surfaceFor(cmd, v.Surface)
	if s.flags.logLevel != "" {
		v.LogLevel = s.flags.logLevel
	}
	if _, err := model.NewSessionIDFromString(v.Session); err != nil {
		return err
	}
	s.cfg = config.NewAppConfig(v)

	InitializeLoggers(InitGlobalLogger(v.LogLevel))
	Debug("configuration source %s %s, session %s", s.cfg.ConfigSource(), s.cfg.SettingPath(), v.Session)
	return nil
}

func (s *invocation) config() config.Config {
	return s.cfg
}

// runtime builds the DI container on first use
func (s *invocation) runtime() (controller.Runtime, error) {
	if s.container != nil {
		return s.container, nil
	}
	if s.cfg == nil {
		return nil, errors.New("configuration not loaded")
	}

	ctx := s.root.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := di.NewContainer(ctx, s.cfg, di.Options{
		OutputFormat: s.flags.output,
		OutputWriter: s.root.OutOrStdout(),
		TraceWriter:  s.root.ErrOrStderr(),
		Fs:           s.fs,
	})
	if err != nil {
		return nil, err
	}
	s.container = c
	return c, nil
}

func (s *invocation) close() error {
	defer GetLogger().Sync() //nolint:errcheck

	if s.container == nil {
		return nil
	}
	err := s.container.Close()
	s.container = nil
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
