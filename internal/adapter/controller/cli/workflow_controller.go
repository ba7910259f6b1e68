package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/align/internal/app"
	"github.com/YoshitsuguKoike/align/internal/application/dto"
	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	usecase "github.com/YoshitsuguKoike/align/internal/application/usecase/workflow"
	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

// WorkflowController handles the panel surface commands of the mockup workflow.
// Every command first resumes the saved state, so a step interrupted in one
// process continues in the next.
type WorkflowController struct {
	runtime RuntimeProvider
}

// NewWorkflowController creates a new workflow controller
func NewWorkflowController(runtime RuntimeProvider) *WorkflowController {
	return &WorkflowController{runtime: runtime}
}

// Commands returns every workflow command
func (c *WorkflowController) Commands() []*cobra.Command {
	return []*cobra.Command{
		c.UploadCommand(),
		c.DescribeCommand(),
		c.GenerateCommand(),
		c.ExportCommand(),
		c.RetryCommand(),
		c.ResetCommand(),
		c.StatusCommand(),
		c.HistoryCommand(),
		c.WatchCommand(),
	}
}

// UploadCommand creates the 'upload' command
func (c *WorkflowController) UploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <screenshot>",
		Short: "Upload a screenshot (step 1)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.resume(cmd.Context())
			if err != nil {
				return err
			}

			content, err := afero.ReadFile(rt.GetFs(), args[0])
			if err != nil {
				return rt.GetPresenter().PresentError(fmt.Errorf("failed to read %s: %w", args[0], err))
			}

			res, err := rt.GetController().RunUpload(cmd.Context(), usecase.UploadFile{
				Filename: filepath.Base(args[0]),
				Content:  content,
			})
			return c.finish(rt, "Image uploaded", res, err)
		},
	}
}

// DescribeCommand creates the 'describe' command
func (c *WorkflowController) DescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <description...>",
		Short: "Describe the change you want (step 2)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.resume(cmd.Context())
			if err != nil {
				return err
			}

			ctrl := rt.GetController()
			res, err := ctrl.RunPrompt(cmd.Context(), ctrl.Current().ImageRef(), strings.Join(args, " "))
			return c.finish(rt, "Description parsed", res, err)
		},
	}
}

// GenerateCommand creates the 'generate' command
func (c *WorkflowController) GenerateCommand() *cobra.Command {
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the mockup (step 3)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.resume(cmd.Context())
			if err != nil {
				return err
			}

			if !noProgress {
				p := rt.GetPresenter()
				cancel := rt.GetReporter().Subscribe(func(st output.Status) {
					if st.Kind == output.StatusLoading && st.Percent >= 0 {
						_ = p.PresentProgress(st.Message, st.Percent, 100)
					}
				})
				defer cancel()
			}

			ctrl := rt.GetController()
			st := ctrl.Current()
			res, err := ctrl.RunGenerate(cmd.Context(), st.ImageRef(), st.Description(), st.Requirements())
			return c.finish(rt, "Mockup generated", res, err)
		},
	}

	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not print progress while generating")
	return cmd
}

// ExportCommand creates the 'export' command
func (c *WorkflowController) ExportCommand() *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the mockup as html or zip (step 4)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.resume(cmd.Context())
			if err != nil {
				return err
			}

			ctrl := rt.GetController()
			handle, err := ctrl.RunExport(cmd.Context(), ctrl.Current().MockupRef(), format)
			if err != nil {
				return c.finish(rt, "", nil, err)
			}

			message := "Export ready"
			if len(handle.Content) > 0 {
				path := out
				if path == "" {
					path = handle.Filename
				}
				if err := afero.WriteFile(rt.GetFs(), path, handle.Content, 0o644); err != nil {
					return rt.GetPresenter().PresentError(fmt.Errorf("failed to write %s: %w", path, err))
				}
				message = "Exported to " + path
			}
			return rt.GetPresenter().PresentSuccess(message, handle)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(output.ExportHTML), "Export format (html, zip)")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: the name suggested by the exporter)")
	return cmd
}

// RetryCommand creates the 'retry' command
func (c *WorkflowController) RetryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Re-run the current step with the same inputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.resume(cmd.Context())
			if err != nil {
				return err
			}

			outcome, err := rt.GetController().Retry(cmd.Context())
			if err != nil {
				return c.finish(rt, "", nil, err)
			}
			return rt.GetPresenter().PresentSuccess("Retried", c.stateDTO(rt, outcome.State))
		},
	}
}

// ResetCommand creates the 'reset' command
func (c *WorkflowController) ResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Start over from the upload step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.resume(cmd.Context())
			if err != nil {
				return err
			}

			st, err := rt.GetController().Reset(cmd.Context())
			if err != nil {
				return rt.GetPresenter().PresentError(err)
			}
			return rt.GetPresenter().PresentSuccess("Workflow reset", c.stateDTO(rt, st))
		},
	}
}

// StatusCommand creates the 'status' command
func (c *WorkflowController) StatusCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current step and its data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.resume(cmd.Context())
			if err != nil {
				return err
			}

			if check {
				if err := rt.HealthCheck(cmd.Context()); err != nil {
					return rt.GetPresenter().PresentError(fmt.Errorf("health check failed: %w", err))
				}
			}

			message := "Workflow status"
			if check {
				message = "Workflow status (collaborators healthy)"
			}
			return rt.GetPresenter().PresentSuccess(message, c.stateDTO(rt, rt.GetController().Current()))
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Also probe the collaborator backends")
	return cmd
}

// HistoryCommand creates the 'history' command
func (c *WorkflowController) HistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the states committed to this session, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.runtime()
			if err != nil {
				return err
			}

			entries, err := rt.GetJournal().Tail(limit)
			if err != nil {
				return rt.GetPresenter().PresentError(fmt.Errorf("failed to read history: %w", err))
			}
			if len(entries) == 0 {
				return rt.GetPresenter().PresentSuccess("No history yet", nil)
			}
			return rt.GetPresenter().PresentSuccess(fmt.Sprintf("%d commits", len(entries)), entries)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show at most this many recent commits (0 for all)")
	return cmd
}

// WatchCommand creates the 'watch' command
func (c *WorkflowController) WatchCommand() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the workflow state whenever another surface changes it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := c.resume(ctx)
			if err != nil {
				return err
			}

			p := rt.GetPresenter()
			ctrl := rt.GetController()
			if err := p.PresentSuccess("Watching workflow", c.stateDTO(rt, ctrl.Current())); err != nil {
				return err
			}

			var notify <-chan struct{}
			if n := rt.Notifier(); n != nil {
				ch, err := n.Watch(ctx)
				if err != nil {
					app.GetLogger().Debug("state watch unavailable, polling every %s: %v", interval, err)
				} else {
					notify = ch
				}
			}

			err = rt.GetSynchronizer().Follow(ctx, notify, interval, func(st workflow.State) {
				ctrl.Adopt(st)
				_ = p.PresentSuccess("Workflow changed", c.stateDTO(rt, st))
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval (0 relies on change notifications only)")
	return cmd
}

// resume resolves the runtime and loads the saved state into the controller
func (c *WorkflowController) resume(ctx context.Context) (Runtime, error) {
	rt, err := c.runtime()
	if err != nil {
		return nil, err
	}
	if _, err := rt.GetController().Resume(ctx); err != nil {
		return nil, rt.GetPresenter().PresentError(err)
	}
	return rt, nil
}

// finish presents the outcome of a step. A step that is not current is a
// no-op for the user, not a failure.
func (c *WorkflowController) finish(rt Runtime, message string, data interface{}, err error) error {
	p := rt.GetPresenter()
	if err == nil {
		return p.PresentSuccess(message, data)
	}

	var werr *workflow.Error
	if errors.As(err, &werr) && werr.Code == workflow.CodeInvalidTransition {
		return p.PresentSuccess("Nothing to do: "+werr.Message, c.stateDTO(rt, rt.GetController().Current()))
	}
	return p.PresentError(err)
}

func (c *WorkflowController) stateDTO(rt Runtime, st workflow.State) *dto.WorkflowStateDTO {
	d := dto.NewWorkflowStateDTO(rt.Config().Session(), st)
	if status, ok := rt.GetReporter().Current(); ok {
		d.Status = &status
	}
	return d
}
