package local

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
)

// Exporter packages stored mockups for download
type Exporter struct {
	storage output.StorageGateway
	now     func() time.Time
}

// NewExporter creates an Exporter
func NewExporter(storage output.StorageGateway) *Exporter {
	return &Exporter{storage: storage, now: time.Now}
}

// ExportFilename returns the download name for a mockup in format
func ExportFilename(mockupRef string, format output.ExportFormat) string {
	return fmt.Sprintf("mockup_%s.%s", mockupRef, format)
}

// Export implements output.ExportGateway
func (e *Exporter) Export(ctx context.Context, req output.ExportRequest) (*output.ExportResult, error) {
	format, ok := output.ParseExportFormat(string(req.Format))
	if !ok {
		return nil, fmt.Errorf("unsupported export format %q", req.Format)
	}

	mockup, err := e.storage.LoadArtifact(ctx, req.MockupRef)
	if err != nil {
		return nil, fmt.Errorf("load mockup %s: %w", req.MockupRef, err)
	}

	content := mockup.Content
	if format == output.ExportZIP {
		content, err = e.bundle(mockup)
		if err != nil {
			return nil, err
		}
	}

	return &output.ExportResult{
		Filename:  ExportFilename(req.MockupRef, format),
		MediaType: format.MediaType(),
		Content:   content,
	}, nil
}

// bundle writes index.html plus a metadata.json describing the mockup
func (e *Exporter) bundle(mockup *output.Artifact) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := e.now()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: "index.html", Method: zip.Deflate, Modified: modified})
	if err != nil {
		return nil, fmt.Errorf("create zip entry: %w", err)
	}
	if _, err := w.Write(mockup.Content); err != nil {
		return nil, fmt.Errorf("write zip entry: %w", err)
	}

	meta, err := json.MarshalIndent(struct {
		MockupID   string            `json:"mockup_id"`
		CreatedAt  time.Time         `json:"created_at"`
		ExportedAt time.Time         `json:"exported_at"`
		Metadata   map[string]string `json:"metadata,omitempty"`
	}{mockup.ID, mockup.Metadata.CreatedAt, modified.UTC(), mockup.Metadata.Metadata}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	w, err = zw.CreateHeader(&zip.FileHeader{Name: "metadata.json", Method: zip.Deflate, Modified: modified})
	if err != nil {
		return nil, fmt.Errorf("create zip entry: %w", err)
	}
	if _, err := w.Write(meta); err != nil {
		return nil, fmt.Errorf("write zip entry: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

var _ output.ExportGateway = (*Exporter)(nil)
