package output

import (
	"context"
	"time"
)

// StorageGateway persists uploaded images and generated mockups.
// Supports both the local filesystem and S3.
type StorageGateway interface {
	// SaveArtifact persists an artifact and assigns it an ID
	SaveArtifact(ctx context.Context, req SaveArtifactRequest) (*ArtifactMetadata, error)

	// LoadArtifact retrieves an artifact by ID
	LoadArtifact(ctx context.Context, artifactID string) (*Artifact, error)

	// ListArtifacts lists artifacts of a kind
	ListArtifacts(ctx context.Context, kind ArtifactKind) ([]*ArtifactMetadata, error)
}

// ArtifactKind groups artifacts in storage
type ArtifactKind string

const (
	ArtifactImage  ArtifactKind = "image"
	ArtifactMockup ArtifactKind = "mockup"
)

// SaveArtifactRequest represents a request to save an artifact
type SaveArtifactRequest struct {
	Kind        ArtifactKind
	Content     []byte
	ContentType string
	Metadata    map[string]string
}

// Artifact represents a stored artifact
type Artifact struct {
	ID       string
	Content  []byte
	Metadata ArtifactMetadata
}

// ArtifactMetadata contains information about an artifact
type ArtifactMetadata struct {
	ID          string            `json:"id"`
	Kind        ArtifactKind      `json:"kind"`
	StoragePath string            `json:"storage_path"`
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
