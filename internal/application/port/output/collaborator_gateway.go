package output

import (
	"context"

	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

// UploadGateway stores a screenshot and returns its reference
type UploadGateway interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}

// PromptGateway turns a natural-language description into structured requirements
type PromptGateway interface {
	Parse(ctx context.Context, req ParseRequest) (*ParseResult, error)
}

// GenerationGateway synthesizes a mockup from the screenshot and requirements
type GenerationGateway interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// ExportGateway renders a generated mockup in a downloadable format
type ExportGateway interface {
	Export(ctx context.Context, req ExportRequest) (*ExportResult, error)
}

// HealthChecker is implemented by collaborators that can probe their backend
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Collaborators bundles the external services used by the workflow
type Collaborators struct {
	Upload   UploadGateway
	Prompt   PromptGateway
	Generate GenerationGateway
	Export   ExportGateway
}

// UploadRequest carries an image file
type UploadRequest struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageMetadata describes an uploaded image
type ImageMetadata struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// UploadResult is the collaborator's answer to an upload
type UploadResult struct {
	ImageRef   string        `json:"image_id"`
	PreviewURL string        `json:"preview_url"`
	Metadata   ImageMetadata `json:"metadata"`
}

// ParseRequest asks for a description to be interpreted against an image
type ParseRequest struct {
	ImageRef    string `json:"image_id"`
	Description string `json:"description"`
}

// ParseResult holds the structured interpretation of a description
type ParseResult struct {
	ImageRef       string                 `json:"image_id"`
	Requirements   *workflow.Requirements `json:"requirements"`
	Clarifications []string               `json:"clarifications"`
	Summary        string                 `json:"summary"`
}

// GenerateRequest asks for a mockup
type GenerateRequest struct {
	ImageRef     string                 `json:"image_id"`
	Description  string                 `json:"description"`
	Requirements *workflow.Requirements `json:"requirements,omitempty"`
}

// GenerateResult holds a generated mockup
type GenerateResult struct {
	MockupRef  string `json:"mockup_id"`
	Content    string `json:"html"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// ExportFormat is a supported export format
type ExportFormat string

const (
	ExportHTML ExportFormat = "html"
	ExportZIP  ExportFormat = "zip"
)

// ParseExportFormat validates a user-supplied format
func ParseExportFormat(s string) (ExportFormat, bool) {
	switch ExportFormat(s) {
	case ExportHTML, ExportZIP:
		return ExportFormat(s), true
	default:
		return "", false
	}
}

// MediaType returns the HTTP media type of the format
func (f ExportFormat) MediaType() string {
	if f == ExportZIP {
		return "application/zip"
	}
	return "text/html"
}

// ExportRequest asks for a mockup export
type ExportRequest struct {
	MockupRef string
	Format    ExportFormat
}

// ExportResult is a downloadable artifact. Either Content or URL is set.
type ExportResult struct {
	Filename  string
	MediaType string
	Content   []byte
	URL       string
}
