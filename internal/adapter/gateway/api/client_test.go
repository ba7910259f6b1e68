package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

func newBackend(t *testing.T) (*Client, *http.ServeMux) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", 0, nil)
	require.NoError(t, err)
	return c, mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClientValidatesURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8000", "://x"} {
		_, err := NewClient(u, time.Second, nil)
		assert.Error(t, err, u)
	}
}

func TestClient_Upload(t *testing.T) {
	c, mux := newBackend(t)
	mux.HandleFunc("POST /api/upload", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		body, _ := io.ReadAll(f)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"image_id":    "img-123",
			"preview_url": "/api/image/img-123",
			"metadata":    map[string]interface{}{"filename": hdr.Filename, "size": len(body), "width": 800, "height": 600},
		})
	})

	res, err := c.Upload(context.Background(), output.UploadRequest{Filename: "/tmp/shot.png", ContentType: "image/png", Content: []byte("pngdata")})
	require.NoError(t, err)
	assert.Equal(t, "img-123", res.ImageRef)
	assert.Equal(t, c.ImageURL("img-123"), res.PreviewURL, "relative preview URLs are resolved against the backend")
	assert.Equal(t, output.ImageMetadata{Filename: "shot.png", Size: 7, Width: 800, Height: 600}, res.Metadata)
}

func TestClient_UploadRejected(t *testing.T) {
	c, mux := newBackend(t)
	mux.HandleFunc("POST /api/upload", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid image file: cannot identify image file"})
	})

	_, err := c.Upload(context.Background(), output.UploadRequest{Filename: "a.txt", Content: []byte("hello")})
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid image file: cannot identify image file", apiErr.Detail)
	assert.False(t, apiErr.Temporary())
}

func TestClient_ParseAndGenerate(t *testing.T) {
	c, mux := newBackend(t)
	mux.HandleFunc("POST /api/prompt", func(w http.ResponseWriter, r *http.Request) {
		var req output.ParseRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"image_id": req.ImageRef,
			"requirements": map[string]interface{}{
				"raw_prompt": req.Description, "action_type": "modify",
				"targets": []string{"header"}, "properties": map[string]interface{}{"colors": []string{"blue"}},
				"clarifications": []string{},
			},
			"clarifications": []string{},
			"summary":        "Modify header with colors: ['blue']",
		})
	})
	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "img-1", req["image_id"])
		assert.NotNil(t, req["requirements"])
		writeJSON(w, http.StatusOK, map[string]interface{}{"mockup_id": "m-1", "html": "<html></html>"})
	})

	parsed, err := c.Parse(context.Background(), output.ParseRequest{ImageRef: "img-1", Description: "make the header blue"})
	require.NoError(t, err)
	assert.Equal(t, "modify", parsed.Requirements.ActionType)
	assert.Equal(t, []string{"header"}, parsed.Requirements.Targets)
	assert.Equal(t, "Modify header with colors: ['blue']", parsed.Summary)

	gen, err := c.Generate(context.Background(), output.GenerateRequest{
		ImageRef: "img-1", Description: "make the header blue", Requirements: &workflow.Requirements{ActionType: "modify"},
	})
	require.NoError(t, err)
	assert.Equal(t, "m-1", gen.MockupRef)
	assert.Equal(t, "<html></html>", gen.Content)
	assert.Equal(t, c.MockupPreviewURL("m-1"), gen.PreviewURL)
}

func TestClient_GenerateServerError(t *testing.T) {
	c, mux := newBackend(t)
	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Generation failed: quota"})
	})

	_, err := c.Generate(context.Background(), output.GenerateRequest{ImageRef: "img-1", Description: "x"})
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Temporary())
	assert.Contains(t, err.Error(), "500: Generation failed: quota")
}

func TestClient_ValidationDetail(t *testing.T) {
	c, mux := newBackend(t)
	mux.HandleFunc("POST /api/prompt", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"detail": []map[string]interface{}{{"loc": []string{"body", "description"}, "msg": "field required"}},
		})
	})

	_, err := c.Parse(context.Background(), output.ParseRequest{ImageRef: "img-1"})
	assert.ErrorContains(t, err, "field required")
}

func TestClient_Export(t *testing.T) {
	c, mux := newBackend(t)
	mux.HandleFunc("GET /api/export/{id}", func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		if format == "zip" {
			w.Header().Set("Content-Type", "application/zip")
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		w.Header().Set("Content-Disposition", "attachment; filename=mockup_"+r.PathValue("id")+"."+format)
		_, _ = w.Write([]byte("payload-" + format))
	})

	res, err := c.Export(context.Background(), output.ExportRequest{MockupRef: "m-1", Format: output.ExportHTML})
	require.NoError(t, err)
	assert.Equal(t, "mockup_m-1.html", res.Filename)
	assert.Equal(t, "text/html", res.MediaType)
	assert.Equal(t, []byte("payload-html"), res.Content)

	res, err = c.Export(context.Background(), output.ExportRequest{MockupRef: "m-1", Format: output.ExportZIP})
	require.NoError(t, err)
	assert.Equal(t, "mockup_m-1.zip", res.Filename)
	assert.Equal(t, "application/zip", res.MediaType)
}

func TestClient_ExportNotFound(t *testing.T) {
	c, mux := newBackend(t)
	mux.HandleFunc("GET /api/export/{id}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such mockup", http.StatusNotFound)
	})

	_, err := c.Export(context.Background(), output.ExportRequest{MockupRef: "nope", Format: output.ExportHTML})
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "no such mockup", apiErr.Detail)
}

func TestClient_MockupAndImage(t *testing.T) {
	c, mux := newBackend(t)
	mux.HandleFunc("GET /api/mockup/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "m-1" {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Mockup not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"mockup_id":  "m-1",
			"html":       "<html>blue</html>",
			"created_at": "2026-01-02T03:04:05",
			"status":     "completed",
			"prompt":     "make the header blue",
		})
	})
	mux.HandleFunc("GET /api/mockup/{id}/preview", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>blue</html>"))
	})
	mux.HandleFunc("GET /api/image/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("pngdata-" + r.PathValue("id")))
	})
	ctx := context.Background()

	m, err := c.Mockup(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "<html>blue</html>", m.Content)
	assert.Equal(t, "completed", m.Status)
	assert.Equal(t, "make the header blue", m.Prompt)

	_, err = c.Mockup(ctx, "gone")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Mockup not found", apiErr.Detail)

	html, err := c.MockupPreview(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "<html>blue</html>", html)

	img, mediaType, err := c.Image(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("pngdata-img-1"), img)
	assert.Equal(t, "image/png", mediaType)
	assert.True(t, strings.HasSuffix(c.MockupPreviewURL("m-1"), "/api/mockup/m-1/preview"))
}

func TestClient_HealthCheck(t *testing.T) {
	c, mux := newBackend(t)
	var healthy atomic.Bool
	healthy.Store(true)
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "degraded"})
	})

	assert.NoError(t, c.HealthCheck(context.Background()))
	healthy.Store(false)
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestClient_ContextCancel(t *testing.T) {
	c, mux := newBackend(t)
	release := make(chan struct{})
	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Generate(ctx, output.GenerateRequest{ImageRef: "img-1", Description: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
