package presenter

import (
	"fmt"
	"io"
	"strings"

	"github.com/YoshitsuguKoike/align/internal/app"
	"github.com/YoshitsuguKoike/align/internal/application/dto"
	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	usecase "github.com/YoshitsuguKoike/align/internal/application/usecase/workflow"
)

const progressBarWidth = 20

// CLIPresenter implements output.Presenter for human-readable terminal output
type CLIPresenter struct {
	output io.Writer
}

// NewCLIPresenter creates a new CLI presenter
func NewCLIPresenter(output io.Writer) output.Presenter {
	return &CLIPresenter{output: output}
}

// PresentSuccess presents a successful result
func (p *CLIPresenter) PresentSuccess(message string, data interface{}) error {
	if message != "" {
		fmt.Fprintf(p.output, "✓ %s\n", message)
	}

	switch v := data.(type) {
	case nil:
		return nil
	case *dto.WorkflowStateDTO:
		p.presentState(v)
	case *output.UploadResult:
		p.presentUpload(v)
	case *output.ParseResult:
		p.presentParse(v)
	case *output.GenerateResult:
		p.presentMockup(v)
	case *usecase.ExportHandle:
		p.presentExport(v)
	case *output.Status:
		p.presentStatus(v)
	case []app.JournalEntry:
		p.presentHistory(v)
	default:
		// Fallback for unknown types
		fmt.Fprintf(p.output, "%+v\n", data)
	}
	return nil
}

// PresentError presents an error
func (p *CLIPresenter) PresentError(err error) error {
	fmt.Fprintf(p.output, "✗ Error: %v\n", err)
	return err
}

// PresentProgress presents progress information
func (p *CLIPresenter) PresentProgress(message string, progress int, total int) error {
	if total <= 0 {
		total = 100
	}
	if progress > total {
		progress = total
	}
	if progress < 0 {
		progress = 0
	}
	filled := progress * progressBarWidth / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
	fmt.Fprintf(p.output, "\r%s [%s] %.1f%%", message, bar, percentOf(progress, total))
	if progress == total {
		fmt.Fprintln(p.output)
	}
	return nil
}

func (p *CLIPresenter) presentState(s *dto.WorkflowStateDTO) {
	fmt.Fprintf(p.output, "Session: %s\n", s.Session)
	fmt.Fprintf(p.output, "Step %d/4: %s\n", s.StepNumber, s.StepLabel)

	if s.ImageRef != "" {
		fmt.Fprintf(p.output, "Image: %s\n", s.ImageRef)
	}
	if s.Description != "" {
		fmt.Fprintf(p.output, "Description: %s\n", s.Description)
	}
	if s.Requirements != nil {
		fmt.Fprintf(p.output, "Requirements: %s\n", s.Requirements.Summary())
	}
	if s.MockupRef != "" {
		fmt.Fprintf(p.output, "Mockup: %s (%d bytes)\n", s.MockupRef, s.MockupBytes)
	}
	if s.UpdatedBy != "" {
		fmt.Fprintf(p.output, "Updated by: %s (revision %d)\n", s.UpdatedBy, s.Revision)
	}
	if s.Error != "" {
		fmt.Fprintf(p.output, "\nLast Error: %s\n", s.Error)
	}
	if s.Status != nil {
		p.presentStatus(s.Status)
	}
}

func (p *CLIPresenter) presentUpload(r *output.UploadResult) {
	fmt.Fprintf(p.output, "Image ID: %s\n", r.ImageRef)
	if r.PreviewURL != "" {
		fmt.Fprintf(p.output, "Preview: %s\n", r.PreviewURL)
	}
	if r.Metadata.Width > 0 {
		fmt.Fprintf(p.output, "Size: %dx%d (%d bytes)\n", r.Metadata.Width, r.Metadata.Height, r.Metadata.Size)
	}
}

func (p *CLIPresenter) presentParse(r *output.ParseResult) {
	if r.Requirements != nil {
		fmt.Fprintf(p.output, "Action: %s\n", r.Requirements.ActionType)
		if len(r.Requirements.Targets) > 0 {
			fmt.Fprintf(p.output, "Targets: %s\n", strings.Join(r.Requirements.Targets, ", "))
		}
	}
	if len(r.Clarifications) > 0 {
		fmt.Fprintf(p.output, "\nClarifications:\n")
		for _, q := range r.Clarifications {
			fmt.Fprintf(p.output, "  - %s\n", q)
		}
	}
}

func (p *CLIPresenter) presentMockup(r *output.GenerateResult) {
	fmt.Fprintf(p.output, "Mockup ID: %s\n", r.MockupRef)
	if r.PreviewURL != "" {
		fmt.Fprintf(p.output, "Preview: %s\n", r.PreviewURL)
	}
}

func (p *CLIPresenter) presentExport(h *usecase.ExportHandle) {
	fmt.Fprintf(p.output, "Handle: %s\n", h.ID)
	fmt.Fprintf(p.output, "File: %s (%s)\n", h.Filename, h.MediaType)
	if h.URL != "" {
		fmt.Fprintf(p.output, "URL: %s\n", h.URL)
	}
}

func (p *CLIPresenter) presentHistory(entries []app.JournalEntry) {
	for _, e := range entries {
		fmt.Fprintf(p.output, "%s  r%-3d e%-2d %-8s %-8s", e.TS, e.Revision, e.Epoch, e.Surface, e.Step)
		if e.Error != "" {
			fmt.Fprintf(p.output, "  error: %s", e.Error)
		}
		fmt.Fprintln(p.output)
	}
}

func (p *CLIPresenter) presentStatus(s *output.Status) {
	if s.Kind == "" {
		return
	}
	if s.Percent >= 0 && s.Kind == output.StatusLoading {
		fmt.Fprintf(p.output, "Status: %s %s (%d%%)\n", s.Kind, s.Message, s.Percent)
		return
	}
	fmt.Fprintf(p.output, "Status: %s %s\n", s.Kind, s.Message)
}
