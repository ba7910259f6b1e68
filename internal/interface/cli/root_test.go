package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its output
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRoot()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRoot_Version(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "align version")
}

func TestRoot_SessionNew(t *testing.T) {
	first, err := execute(t, "session", "new")
	require.NoError(t, err)
	second, err := execute(t, "session", "new")
	require.NoError(t, err)

	assert.Len(t, first, 37, "uuid plus newline")
	assert.NotEqual(t, first, second)
}

func TestRoot_RejectsInvalidSession(t *testing.T) {
	_, err := execute(t, "--session", "not a session", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session ID")
}

func TestRoot_ConfigMasksSecrets(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("ALIGN_GEMINI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "align.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session: demo\ngemini:\n  api_key: secret-key\n"), 0o644))

	out, err := execute(t, "--config", path, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "# source: "+path)
	assert.Contains(t, out, "session: demo")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "secret-key")

	out, err = execute(t, "--config", path, "--surface", "overlay", "config", "--reveal")
	require.NoError(t, err)
	assert.Contains(t, out, "secret-key")
	assert.Contains(t, out, "surface: overlay")
}

func TestRoot_ConfigMissingFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestRoot_ConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "align.yaml")

	out, err := execute(t, "config", "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: file")
	assert.Contains(t, string(data), "success_ttl: 3s")

	_, err = execute(t, "config", "init", "--path", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "--path", path, "--force")
	require.NoError(t, err)

	// The written file is a valid configuration
	out, err = execute(t, "--config", path, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "session: default")
}

func TestRoot_StatusInFreshDirectory(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ALIGN_AGENT", "template")

	out, err := execute(t, "--session", "fresh", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Session: fresh")
	assert.Contains(t, out, "Step 1/4")

	out, err = execute(t, "--session", "fresh", "-o", "json", "status")
	require.NoError(t, err)
	assert.Contains(t, out, `"session": "fresh"`)
}

func TestRoot_FailedStepFlushesTrace(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	require.NoError(t, os.WriteFile("shot.png", png, 0o644))
	path := filepath.Join(dir, "align.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`session: traced
collaborators: api
api:
  base_url: http://127.0.0.1:1
  timeout: 2s
tracing:
  enabled: true
`), 0o644))

	out, err := execute(t, "--config", path, "upload", "shot.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPLOAD_ERROR")
	assert.Contains(t, out, "workflow.upload", "spans of a failed step are exported on shutdown")
}

func TestRoot_SurfaceDefaultsToRunningCommand(t *testing.T) {
	t.Setenv("ALIGN_SURFACE", "")

	out, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "surface: panel")

	overlay := newOverlayCmd(nil)
	assert.Equal(t, "overlay", surfaceFor(overlay, ""))
	assert.Equal(t, "panel", surfaceFor(overlay, "panel"), "an explicit surface wins")
	assert.Equal(t, "panel", surfaceFor(&cobra.Command{Use: "status"}, ""))
}
