// Package tui provides the overlay surface: a compact terminal view of the
// workflow that stays in sync with the panel commands.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	usecase "github.com/YoshitsuguKoike/align/internal/application/usecase/workflow"
	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

// Workflow is the step controller the overlay drives
type Workflow interface {
	Current() workflow.State
	RunUpload(ctx context.Context, file usecase.UploadFile) (*output.UploadResult, error)
	RunPrompt(ctx context.Context, imageRef, description string) (*output.ParseResult, error)
	RunGenerate(ctx context.Context, imageRef, description string, requirements *workflow.Requirements) (*output.GenerateResult, error)
	RunExport(ctx context.Context, mockupRef, format string) (*usecase.ExportHandle, error)
	Retry(ctx context.Context) (*usecase.Outcome, error)
	Reset(ctx context.Context) (workflow.State, error)
}

// StateMsg carries a state written by another surface
type StateMsg struct {
	State workflow.State
}

// StatusMsg carries the status currently reported by the controller
type StatusMsg struct {
	Status output.Status
}

// ResultMsg is sent when an action started from the overlay completes
type ResultMsg struct {
	State  workflow.State
	Notice string
	Err    error
}

// expireMsg hides a success status once it has been shown for its TTL
type expireMsg struct {
	at time.Time
}

// Config configures the overlay model
type Config struct {
	Context    context.Context
	Workflow   Workflow
	Fs         afero.Fs // Screenshots are read from and exports written to this filesystem
	ExportDir  string
	Session    string
	SuccessTTL time.Duration
}

// Model holds the overlay view state.
type Model struct {
	ctx        context.Context
	workflow   Workflow
	fs         afero.Fs
	exportDir  string
	session    string
	successTTL time.Duration

	state   workflow.State
	status  output.Status
	notice  string
	running bool

	input textinput.Model
	bar   progress.Model

	width  int
	height int
}

// New creates the overlay showing the controller's current state.
func New(cfg Config) Model {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "."
	}

	input := textinput.New()
	input.CharLimit = 2000
	input.Width = 60
	input.Focus()

	m := Model{
		ctx:        cfg.Context,
		workflow:   cfg.Workflow,
		fs:         cfg.Fs,
		exportDir:  cfg.ExportDir,
		session:    cfg.Session,
		successTTL: cfg.SuccessTTL,
		state:      cfg.Workflow.Current(),
		input:      input,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	m.syncInput()
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "ctrl+r":
			return m.start(m.retry())
		case "ctrl+n":
			return m.start(m.reset())
		}

	case StateMsg:
		m.state = msg.State
		m.notice = fmt.Sprintf("Updated by %s", orUnknown(msg.State.UpdatedBy()))
		m.syncInput()
		return m, nil

	case StatusMsg:
		m.status = msg.Status
		if msg.Status.Kind == output.StatusSuccess && m.successTTL > 0 {
			at := msg.Status.At
			return m, tea.Tick(m.successTTL, func(time.Time) tea.Msg { return expireMsg{at: at} })
		}
		return m, nil

	case expireMsg:
		if m.status.Kind == output.StatusSuccess && m.status.At.Equal(msg.at) {
			m.status = output.Status{}
		}
		return m, nil

	case ResultMsg:
		m.running = false
		m.state = msg.State
		m.notice = msg.Notice
		var werr *workflow.Error
		switch {
		case msg.Err == nil:
		case errors.As(msg.Err, &werr) && werr.Code == workflow.CodeInvalidTransition:
			m.notice = "Nothing to do: " + werr.Message
		default:
			m.notice = msg.Err.Error()
		}
		m.syncInput()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit runs the action of the current step with the typed value
func (m Model) submit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())

	switch m.state.Step() {
	case workflow.StepUpload:
		if value == "" {
			m.notice = "Enter the path of a screenshot"
			return m, nil
		}
		return m.start(m.upload(value))
	case workflow.StepPrompt:
		return m.start(m.describe(value))
	case workflow.StepGenerate:
		return m.start(m.generate())
	case workflow.StepExport:
		if value == "" {
			value = string(output.ExportHTML)
		}
		return m.start(m.export(value))
	}
	return m, nil
}

func (m Model) start(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.running = true
	m.notice = ""
	m.input.Reset()
	return m, cmd
}

func (m Model) upload(path string) tea.Cmd {
	wfl, fs, ctx := m.workflow, m.fs, m.ctx
	return func() tea.Msg {
		content, err := afero.ReadFile(fs, path)
		if err != nil {
			return ResultMsg{State: wfl.Current(), Err: fmt.Errorf("failed to read %s: %w", path, err)}
		}
		_, err = wfl.RunUpload(ctx, usecase.UploadFile{Filename: filepath.Base(path), Content: content})
		return ResultMsg{State: wfl.Current(), Err: err}
	}
}

func (m Model) describe(description string) tea.Cmd {
	wfl, ctx, imageRef := m.workflow, m.ctx, m.state.ImageRef()
	return func() tea.Msg {
		res, err := wfl.RunPrompt(ctx, imageRef, description)
		msg := ResultMsg{State: wfl.Current(), Err: err}
		if err == nil && len(res.Clarifications) > 0 {
			msg.Notice = res.Clarifications[0]
		}
		return msg
	}
}

func (m Model) generate() tea.Cmd {
	wfl, ctx, st := m.workflow, m.ctx, m.state
	return func() tea.Msg {
		_, err := wfl.RunGenerate(ctx, st.ImageRef(), st.Description(), st.Requirements())
		return ResultMsg{State: wfl.Current(), Err: err}
	}
}

func (m Model) export(format string) tea.Cmd {
	wfl, fs, ctx, dir, ref := m.workflow, m.fs, m.ctx, m.exportDir, m.state.MockupRef()
	return func() tea.Msg {
		handle, err := wfl.RunExport(ctx, ref, format)
		if err != nil {
			return ResultMsg{State: wfl.Current(), Err: err}
		}
		return ResultMsg{State: wfl.Current(), Notice: save(fs, dir, handle)}
	}
}

func (m Model) retry() tea.Cmd {
	wfl, fs, ctx, dir := m.workflow, m.fs, m.ctx, m.exportDir
	return func() tea.Msg {
		outcome, err := wfl.Retry(ctx)
		if err != nil {
			return ResultMsg{State: wfl.Current(), Err: err}
		}
		msg := ResultMsg{State: outcome.State, Notice: "Retried"}
		if outcome.Export != nil {
			msg.Notice = save(fs, dir, outcome.Export)
		}
		return msg
	}
}

func (m Model) reset() tea.Cmd {
	wfl, ctx := m.workflow, m.ctx
	return func() tea.Msg {
		st, err := wfl.Reset(ctx)
		return ResultMsg{State: st, Notice: "Started over", Err: err}
	}
}

// save writes an export next to the overlay and describes the outcome
func save(fs afero.Fs, dir string, handle *usecase.ExportHandle) string {
	if len(handle.Content) == 0 {
		return "Export ready: " + handle.URL
	}
	path := filepath.Join(dir, handle.Filename)
	if err := afero.WriteFile(fs, path, handle.Content, 0o644); err != nil {
		return fmt.Sprintf("failed to write %s: %v", path, err)
	}
	return "Saved " + path
}

// syncInput points the text input at what the current step expects
func (m *Model) syncInput() {
	switch m.state.Step() {
	case workflow.StepUpload:
		m.input.Placeholder = "path/to/screenshot.png"
	case workflow.StepPrompt:
		m.input.Placeholder = "Describe the change, e.g. make the header blue"
	case workflow.StepGenerate:
		m.input.Placeholder = "Press enter to generate"
	case workflow.StepExport:
		m.input.Placeholder = "html or zip (default html)"
	}
}

// View renders the overlay.
func (m Model) View() string {
	var b strings.Builder

	title := "align"
	if m.session != "" {
		title += " · " + m.session
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(m.stepsView())
	b.WriteString("\n\n")

	if ref := m.state.ImageRef(); ref != "" {
		b.WriteString(labelStyle.Render("Image") + ref + "\n")
	}
	if d := m.state.Description(); d != "" {
		b.WriteString(labelStyle.Render("Description") + d + "\n")
	}
	if r := m.state.Requirements(); r != nil {
		b.WriteString(labelStyle.Render("Requirements") + r.Summary() + "\n")
	}
	if ref := m.state.MockupRef(); ref != "" {
		b.WriteString(labelStyle.Render("Mockup") + ref + "\n")
	}
	if e := m.state.Err(); e != "" {
		b.WriteString(labelStyle.Render("Last error") + errorStyle.Render(e) + "\n")
	}

	if s := m.statusView(); s != "" {
		b.WriteString("\n" + s + "\n")
	}

	b.WriteString("\n" + m.input.View() + "\n")
	if m.notice != "" {
		b.WriteString(hintStyle.Render(m.notice) + "\n")
	}
	b.WriteString("\n" + hintStyle.Render("enter submit · ctrl+r retry · ctrl+n start over · esc quit"))

	frame := frameStyle
	if m.width > 0 {
		frame = frame.Width(m.width - 2)
	}
	return frame.Render(b.String())
}

func (m Model) stepsView() string {
	current := m.state.Step()
	parts := make([]string, 0, len(workflow.Steps()))
	for _, s := range workflow.Steps() {
		label := fmt.Sprintf("%d %s", s.ToNumber(), s.Label())
		if s == current {
			parts = append(parts, currentStepStyle.Render("▸ "+label))
			continue
		}
		parts = append(parts, stepStyle.Render(label))
	}
	return strings.Join(parts, stepStyle.Render("  ›  "))
}

func (m Model) statusView() string {
	switch m.status.Kind {
	case output.StatusLoading:
		line := m.status.Message
		if m.status.Percent >= 0 {
			line += "\n" + m.bar.ViewAs(float64(m.status.Percent)/100)
		}
		return line
	case output.StatusSuccess:
		return successStyle.Render("✓ " + m.status.Message)
	case output.StatusError:
		return errorStyle.Render("✗ " + m.status.Message)
	}
	if m.running {
		return hintStyle.Render("Working...")
	}
	return ""
}

// SetSize updates the view dimensions.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	if width > 8 {
		m.bar.Width = width - 8
		m.input.Width = width - 8
	}
	return m
}

// State returns the state the overlay currently shows
func (m Model) State() workflow.State {
	return m.state
}

// Notice returns the last one-line message shown under the input
func (m Model) Notice() string {
	return m.notice
}

func orUnknown(s string) string {
	if s == "" {
		return "another surface"
	}
	return s
}
