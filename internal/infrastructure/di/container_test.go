package di

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/YoshitsuguKoike/align/internal/app/config"
	usecase "github.com/YoshitsuguKoike/align/internal/application/usecase/workflow"
	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

func testValues() appconfig.Values {
	return appconfig.Values{
		Session:           "s1",
		Surface:           "panel",
		LogLevel:          "warn",
		StateBackend:      "file",
		StateDir:          ".align",
		Collaborators:     "local",
		GenerationTimeout: time.Minute,
		ProgressInterval:  time.Millisecond,
		ProgressStep:      10,
		ProgressCap:       90,
		SuccessTTL:        time.Second,
		UploadMaxBytes:    1 << 20,
		StorageType:       "memory",
		Agent:             "template",
	}
}

func screenshot(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 6))))
	return buf.Bytes()
}

func TestContainer_WorkflowOverSharedFileStore(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	panel, err := NewContainer(ctx, appconfig.NewAppConfig(testValues()), Options{Fs: fs, OutputWriter: &bytes.Buffer{}})
	require.NoError(t, err)
	defer panel.Close()

	ctrl := panel.GetController()
	up, err := ctrl.RunUpload(ctx, usecase.UploadFile{Filename: "shot.png", Content: screenshot(t)})
	require.NoError(t, err)
	_, err = ctrl.RunPrompt(ctx, up.ImageRef, "make the header blue")
	require.NoError(t, err)
	assert.Equal(t, workflow.StepGenerate, ctrl.Current().Step())

	overlayValues := testValues()
	overlayValues.Surface = "overlay"
	overlay, err := NewContainer(ctx, appconfig.NewAppConfig(overlayValues), Options{Fs: fs, OutputWriter: &bytes.Buffer{}})
	require.NoError(t, err)
	defer overlay.Close()

	st, err := overlay.GetController().Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.StepGenerate, st.Step())
	assert.Equal(t, up.ImageRef, st.ImageRef())
	assert.Equal(t, "panel", st.UpdatedBy())

	assert.NoError(t, overlay.HealthCheck(ctx))
	assert.NotNil(t, overlay.Notifier())

	history, err := overlay.GetJournal().ReadAll()
	require.NoError(t, err)
	require.Len(t, history, 2, "both commits of the panel are journaled")
	assert.Equal(t, "prompt", history[0].Step)
	assert.Equal(t, "generate", history[1].Step)
	assert.Equal(t, filepath.Join(".align", "journal", "s1.ndjson"), overlay.GetJournal().Path())
}

func TestContainer_PreviewBase(t *testing.T) {
	ctx := context.Background()
	v := testValues()
	v.PreviewBase = "http://localhost:3000"

	c, err := NewContainer(ctx, appconfig.NewAppConfig(v), Options{Fs: afero.NewMemMapFs(), OutputWriter: &bytes.Buffer{}})
	require.NoError(t, err)
	defer c.Close()

	up, err := c.GetController().RunUpload(ctx, usecase.UploadFile{Filename: "shot.png", Content: screenshot(t)})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/api/image/"+up.ImageRef, up.PreviewURL)
}

func TestContainer_SQLiteBackend(t *testing.T) {
	ctx := context.Background()
	v := testValues()
	v.StateBackend = "sqlite"
	v.SQLitePath = filepath.Join(t.TempDir(), "align.db")

	c, err := NewContainer(ctx, appconfig.NewAppConfig(v), Options{OutputFormat: "json", OutputWriter: &bytes.Buffer{}})
	require.NoError(t, err)
	defer c.Close()

	st, err := c.GetController().Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.StepUpload, st.Step())
	assert.Nil(t, c.Notifier())
	assert.NoError(t, c.HealthCheck(ctx))
}

func TestContainer_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(v *appconfig.Values)
	}{
		{"unknown backend", func(v *appconfig.Values) { v.StateBackend = "redis" }},
		{"unknown collaborators", func(v *appconfig.Values) { v.Collaborators = "grpc" }},
		{"unknown storage", func(v *appconfig.Values) { v.StorageType = "ftp" }},
		{"unknown agent", func(v *appconfig.Values) { v.Agent = "claude" }},
		{"gemini without key", func(v *appconfig.Values) { v.Agent = "gemini" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := testValues()
			tt.mutate(&v)
			_, err := NewContainer(context.Background(), appconfig.NewAppConfig(v), Options{Fs: afero.NewMemMapFs()})
			assert.Error(t, err)
		})
	}
}

func TestContainer_UnknownOutputFormat(t *testing.T) {
	_, err := NewContainer(context.Background(), appconfig.NewAppConfig(testValues()), Options{
		Fs:           afero.NewMemMapFs(),
		OutputFormat: "xml",
	})
	assert.Error(t, err)
}

func TestContainer_TracingEnabled(t *testing.T) {
	ctx := context.Background()
	v := testValues()
	v.TracingEnabled = true
	spans := &bytes.Buffer{}

	c, err := NewContainer(ctx, appconfig.NewAppConfig(v), Options{Fs: afero.NewMemMapFs(), TraceWriter: spans, OutputWriter: &bytes.Buffer{}})
	require.NoError(t, err)

	_, err = c.GetController().RunUpload(ctx, usecase.UploadFile{Filename: "shot.png", Content: screenshot(t)})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	assert.Contains(t, spans.String(), "workflow.upload")
}
