package cli

import (
	"time"

	"github.com/spf13/cobra"

	controller "github.com/YoshitsuguKoike/align/internal/adapter/controller/cli"
	"github.com/YoshitsuguKoike/align/internal/interface/tui"
)

const overlayCommandName = "overlay"

func newOverlayCmd(runtime controller.RuntimeProvider) *cobra.Command {
	var (
		interval  time.Duration
		exportDir string
	)

	cmd := &cobra.Command{
		Use:   overlayCommandName,
		Short: "Open the interactive overlay for the current session",
		Long: `Open a compact terminal view of the workflow. It follows changes made by
the panel commands and can drive every step itself.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := runtime()
			if err != nil {
				return err
			}

			ctrl := rt.GetController()
			if _, err := ctrl.Resume(ctx); err != nil {
				return err
			}

			var notify <-chan struct{}
			if n := rt.Notifier(); n != nil {
				if ch, err := n.Watch(ctx); err == nil {
					notify = ch
				} else {
					Debug("state watch unavailable, polling every %s: %v", interval, err)
				}
			}

			return tui.Run(ctx, tui.RunOptions{
				Model: tui.Config{
					Context:    ctx,
					Workflow:   ctrl,
					Fs:         rt.GetFs(),
					ExportDir:  exportDir,
					Session:    rt.Config().Session(),
					SuccessTTL: rt.Config().SuccessTTL(),
				},
				Status:   rt.GetReporter(),
				Follower: rt.GetSynchronizer(),
				Adopter:  ctrl,
				Notify:   notify,
				Poll:     interval,
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval for changes from other surfaces")
	cmd.Flags().StringVar(&exportDir, "export-dir", ".", "Directory exports are saved to")
	return cmd
}
