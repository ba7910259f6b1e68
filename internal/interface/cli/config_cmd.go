package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/align/internal/app/config"
	infraConfig "github.com/YoshitsuguKoike/align/internal/infra/config"
)

func newConfigCmd(fs afero.Fs, current func() config.Config) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after merging defaults, align.yaml, .env and
ALIGN_* environment variables. Secrets are masked unless --reveal is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := current()
			if cfg == nil {
				return errors.New("configuration not loaded")
			}

			data, err := infraConfig.SettingsFrom(cfg, reveal).YAML()
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			if cfg.SettingPath() != "" {
				fmt.Fprintf(out, "# source: %s\n", cfg.SettingPath())
			} else {
				fmt.Fprintf(out, "# source: %s\n", cfg.ConfigSource())
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show secrets such as the Gemini API key")
	cmd.AddCommand(newConfigInitCmd(fs))
	return cmd
}

func newConfigInitCmd(fs afero.Fs) *cobra.Command {
	var (
		path  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an align.yaml with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exists, err := afero.Exists(fs, path)
			if err != nil {
				return err
			}
			if exists && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := afero.WriteFile(fs, path, infraConfig.CreateDefaultSettings(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "align.yaml", "Where to write the file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
