package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	usecase "github.com/YoshitsuguKoike/align/internal/application/usecase/workflow"
	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

// fakeWorkflow advances a real state without collaborators
type fakeWorkflow struct {
	state    workflow.State
	uploaded []usecase.UploadFile
}

func (f *fakeWorkflow) Current() workflow.State { return f.state }

func (f *fakeWorkflow) apply(ev workflow.Event) error {
	next, err := f.state.Apply(ev)
	if err != nil {
		return err
	}
	f.state = next
	return nil
}

func (f *fakeWorkflow) RunUpload(ctx context.Context, file usecase.UploadFile) (*output.UploadResult, error) {
	f.uploaded = append(f.uploaded, file)
	return &output.UploadResult{ImageRef: "img_1"}, f.apply(workflow.ImageUploaded("img_1"))
}

func (f *fakeWorkflow) RunPrompt(ctx context.Context, imageRef, description string) (*output.ParseResult, error) {
	if description == "" {
		return nil, workflow.InvalidInput("description must not be empty")
	}
	req := &workflow.Requirements{ActionType: "modify", Targets: []string{"header"}}
	return &output.ParseResult{Requirements: req, Clarifications: []string{"What color?"}},
		f.apply(workflow.DescriptionParsed(description, req))
}

func (f *fakeWorkflow) RunGenerate(ctx context.Context, imageRef, description string, requirements *workflow.Requirements) (*output.GenerateResult, error) {
	return &output.GenerateResult{MockupRef: "mock_1"}, f.apply(workflow.MockupGenerated("mock_1", "<html></html>"))
}

func (f *fakeWorkflow) RunExport(ctx context.Context, mockupRef, format string) (*usecase.ExportHandle, error) {
	return &usecase.ExportHandle{
		ID:        "exp_1",
		MockupRef: mockupRef,
		Filename:  "mockup_" + mockupRef + "." + format,
		Content:   []byte("<html></html>"),
	}, nil
}

func (f *fakeWorkflow) Retry(ctx context.Context) (*usecase.Outcome, error) {
	return nil, workflow.InvalidInput("no previous upload to retry")
}

func (f *fakeWorkflow) Reset(ctx context.Context) (workflow.State, error) {
	err := f.apply(workflow.Reset())
	return f.state, err
}

func newTestModel(t *testing.T) (Model, *fakeWorkflow, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/shots/home.png", []byte("png"), 0o644))

	wf := &fakeWorkflow{state: workflow.New()}
	m := New(Config{Workflow: wf, Fs: fs, ExportDir: "/out", Session: "s1", SuccessTTL: time.Second})
	return m, wf, fs
}

// send feeds msg to the model and runs any resulting command once
func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func enter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

func TestNew_ShowsCurrentStep(t *testing.T) {
	m, _, _ := newTestModel(t)

	require.Equal(t, workflow.StepUpload, m.State().Step())
	require.Equal(t, "path/to/screenshot.png", m.input.Placeholder)
	require.NotNil(t, m.Init())

	view := m.View()
	require.Contains(t, view, "align · s1")
	require.Contains(t, view, "▸ 1 Upload screenshot")
}

func TestUpdate_EmptyUploadShowsHint(t *testing.T) {
	m, wf, _ := newTestModel(t)

	next, cmd := m.Update(enter())
	m = next.(Model)

	require.Nil(t, cmd)
	require.Equal(t, "Enter the path of a screenshot", m.Notice())
	require.Empty(t, wf.uploaded)
}

func TestUpdate_FullWorkflow(t *testing.T) {
	m, wf, fs := newTestModel(t)

	m.input.SetValue("/shots/home.png")
	m, msg := send(t, m, enter())
	require.True(t, m.running)
	m, _ = send(t, m, msg)
	require.False(t, m.running)
	require.Equal(t, workflow.StepPrompt, m.State().Step())
	require.Equal(t, "home.png", wf.uploaded[0].Filename)
	require.Equal(t, "", m.input.Value())

	m.input.SetValue("make the header blue")
	m, msg = send(t, m, enter())
	m, _ = send(t, m, msg)
	require.Equal(t, workflow.StepGenerate, m.State().Step())
	require.Equal(t, "What color?", m.Notice())
	require.Contains(t, m.View(), "Modify header")

	m, msg = send(t, m, enter())
	m, _ = send(t, m, msg)
	require.Equal(t, workflow.StepExport, m.State().Step())
	require.Equal(t, "html or zip (default html)", m.input.Placeholder)

	m, msg = send(t, m, enter())
	m, _ = send(t, m, msg)
	require.Equal(t, "Saved /out/mockup_mock_1.html", m.Notice())
	require.Equal(t, workflow.StepExport, m.State().Step())

	content, err := afero.ReadFile(fs, "/out/mockup_mock_1.html")
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(content))

	m, msg = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	m, _ = send(t, m, msg)
	require.Equal(t, workflow.StepUpload, m.State().Step())
	require.Equal(t, "Started over", m.Notice())
}

func TestUpdate_ResultErrors(t *testing.T) {
	m, wf, _ := newTestModel(t)

	m.input.SetValue("/shots/missing.png")
	m, msg := send(t, m, enter())
	m, _ = send(t, m, msg)
	require.Contains(t, m.Notice(), "failed to read /shots/missing.png")
	require.Empty(t, wf.uploaded)

	m, msg = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m, _ = send(t, m, msg)
	require.Contains(t, m.Notice(), "no previous upload to retry")

	m, _ = send(t, m, ResultMsg{State: wf.Current(), Err: workflow.NewError(workflow.CodeInvalidTransition, "generate is not the current step (upload)", nil)})
	require.Equal(t, "Nothing to do: generate is not the current step (upload)", m.Notice())

	m, _ = send(t, m, ResultMsg{State: wf.Current(), Err: errors.New("boom")})
	require.Equal(t, "boom", m.Notice())
}

func TestUpdate_StateFromOtherSurface(t *testing.T) {
	m, _, _ := newTestModel(t)

	st, err := workflow.New().Apply(workflow.ImageUploaded("img_9"))
	require.NoError(t, err)
	st = st.WithWriter("panel")

	m, _ = send(t, m, StateMsg{State: st})
	require.Equal(t, workflow.StepPrompt, m.State().Step())
	require.Equal(t, "Updated by panel", m.Notice())
	require.Contains(t, m.input.Placeholder, "Describe the change")
	require.Contains(t, m.View(), "img_9")
}

func TestUpdate_StatusLifecycle(t *testing.T) {
	m, _, _ := newTestModel(t)

	next, cmd := m.Update(StatusMsg{Status: output.Status{Kind: output.StatusLoading, Message: "Generating mockup...", Percent: 40}})
	m = next.(Model)
	require.Nil(t, cmd)
	require.Contains(t, m.View(), "Generating mockup...")

	at := time.Now()
	next, cmd = m.Update(StatusMsg{Status: output.Status{Kind: output.StatusSuccess, Message: "Mockup generated", Percent: -1, At: at}})
	m = next.(Model)
	require.NotNil(t, cmd, "success schedules its expiry")
	require.Contains(t, m.View(), "✓ Mockup generated")

	m, _ = send(t, m, expireMsg{at: at.Add(-time.Second)})
	require.Equal(t, output.StatusSuccess, m.status.Kind, "expiry of an older status is ignored")

	m, _ = send(t, m, expireMsg{at: at})
	require.Equal(t, output.StatusKind(""), m.status.Kind)

	m, _ = send(t, m, StatusMsg{Status: output.Status{Kind: output.StatusError, Message: "generator unavailable", Percent: -1}})
	require.Contains(t, m.View(), "✗ generator unavailable")
}

func TestUpdate_Quit(t *testing.T) {
	for _, key := range []tea.KeyMsg{{Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		m, _, _ := newTestModel(t)
		_, cmd := m.Update(key)
		require.NotNil(t, cmd)
		_, ok := cmd().(tea.QuitMsg)
		require.True(t, ok, "expected QuitMsg for %s", key.String())
	}
}

func TestUpdate_WindowSizeMsg(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, _ = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	require.Equal(t, 100, m.width)
	require.Equal(t, 40, m.height)
	require.Equal(t, 92, m.bar.Width)
}
