package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strconv"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
)

// DefaultMaxUploadBytes caps screenshot size when no limit is configured
const DefaultMaxUploadBytes int64 = 10 << 20

// ErrInvalidImage is returned for content that does not decode as an image
var ErrInvalidImage = errors.New("invalid image file")

// Uploader validates screenshots and stores them as image artifacts
type Uploader struct {
	storage     output.StorageGateway
	maxBytes    int64
	previewBase string
}

// NewUploader creates an Uploader. previewBase prefixes preview URLs and may be empty.
func NewUploader(storage output.StorageGateway, maxBytes int64, previewBase string) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Uploader{storage: storage, maxBytes: maxBytes, previewBase: previewBase}
}

// Upload decodes the image header and saves the content
func (u *Uploader) Upload(ctx context.Context, req output.UploadRequest) (*output.UploadResult, error) {
	size := int64(len(req.Content))
	if size == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidImage)
	}
	if size > u.maxBytes {
		return nil, fmt.Errorf("image is %d bytes, limit is %d", size, u.maxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(req.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	filename := filepath.Base(req.Filename)
	if filename == "." || filename == string(filepath.Separator) {
		filename = "screenshot." + format
	}

	meta, err := u.storage.SaveArtifact(ctx, output.SaveArtifactRequest{
		Kind:        output.ArtifactImage,
		Content:     req.Content,
		ContentType: "image/" + format,
		Metadata: map[string]string{
			"filename": filename,
			"width":    strconv.Itoa(cfg.Width),
			"height":   strconv.Itoa(cfg.Height),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	preview := meta.StoragePath
	if u.previewBase != "" {
		preview = u.previewBase + "/api/image/" + meta.ID
	}

	return &output.UploadResult{
		ImageRef:   meta.ID,
		PreviewURL: preview,
		Metadata: output.ImageMetadata{
			Filename: filename,
			Size:     size,
			Width:    cfg.Width,
			Height:   cfg.Height,
		},
	}, nil
}

var _ output.UploadGateway = (*Uploader)(nil)
