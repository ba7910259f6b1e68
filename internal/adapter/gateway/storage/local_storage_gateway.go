package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	"github.com/YoshitsuguKoike/align/internal/infrastructure/persistence/file"
)

// LocalStorageGateway implements StorageGateway on an afero filesystem
// Directory structure: <baseDir>/artifacts/<kind>/<artifactID>/
//   - content: actual artifact content
//   - metadata.json: artifact metadata
type LocalStorageGateway struct {
	fs      afero.Fs
	baseDir string
}

// NewLocalStorageGateway creates a filesystem-based storage gateway
func NewLocalStorageGateway(fs afero.Fs, baseDir string) (*LocalStorageGateway, error) {
	artifactsDir := filepath.Join(baseDir, "artifacts")
	if err := fs.MkdirAll(artifactsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts directory: %w", err)
	}
	return &LocalStorageGateway{fs: fs, baseDir: baseDir}, nil
}

// SaveArtifact saves an artifact to the filesystem
func (g *LocalStorageGateway) SaveArtifact(ctx context.Context, req output.SaveArtifactRequest) (*output.ArtifactMetadata, error) {
	artifactID, err := newArtifactID(req.Kind)
	if err != nil {
		return nil, err
	}

	dir := g.artifactDir(req.Kind, artifactID)
	contentPath := filepath.Join(dir, "content")
	if err := file.WriteFileAtomic(g.fs, contentPath, req.Content, 0o644); err != nil {
		return nil, fmt.Errorf("write artifact content: %w", err)
	}

	metadata := output.ArtifactMetadata{
		ID:          artifactID,
		Kind:        req.Kind,
		StoragePath: contentPath,
		ContentType: req.ContentType,
		Size:        int64(len(req.Content)),
		CreatedAt:   time.Now().UTC(),
		Metadata:    req.Metadata,
	}

	metadataJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := file.WriteFileAtomic(g.fs, filepath.Join(dir, "metadata.json"), metadataJSON, 0o644); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	return &metadata, nil
}

// LoadArtifact retrieves an artifact from the filesystem
func (g *LocalStorageGateway) LoadArtifact(ctx context.Context, artifactID string) (*output.Artifact, error) {
	kind, err := kindOf(artifactID)
	if err != nil {
		return nil, err
	}
	dir := g.artifactDir(kind, artifactID)

	metadata, err := g.readMetadata(filepath.Join(dir, "metadata.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, artifactID)
		}
		return nil, err
	}

	content, err := afero.ReadFile(g.fs, filepath.Join(dir, "content"))
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	return &output.Artifact{ID: artifactID, Content: content, Metadata: *metadata}, nil
}

// ListArtifacts lists artifacts of a kind, oldest first
func (g *LocalStorageGateway) ListArtifacts(ctx context.Context, kind output.ArtifactKind) ([]*output.ArtifactMetadata, error) {
	kindDir := filepath.Join(g.baseDir, "artifacts", string(kind))

	entries, err := afero.ReadDir(g.fs, kindDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*output.ArtifactMetadata{}, nil
		}
		return nil, fmt.Errorf("read artifacts directory: %w", err)
	}

	list := make([]*output.ArtifactMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		// Skip artifacts with missing or invalid metadata
		metadata, err := g.readMetadata(filepath.Join(kindDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		list = append(list, metadata)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// DeleteArtifact removes an artifact
func (g *LocalStorageGateway) DeleteArtifact(ctx context.Context, artifactID string) error {
	kind, err := kindOf(artifactID)
	if err != nil {
		return err
	}
	if err := g.fs.RemoveAll(g.artifactDir(kind, artifactID)); err != nil {
		return fmt.Errorf("delete artifact directory: %w", err)
	}
	return nil
}

func (g *LocalStorageGateway) artifactDir(kind output.ArtifactKind, artifactID string) string {
	return filepath.Join(g.baseDir, "artifacts", string(kind), artifactID)
}

func (g *LocalStorageGateway) readMetadata(path string) (*output.ArtifactMetadata, error) {
	data, err := afero.ReadFile(g.fs, path)
	if err != nil {
		return nil, err
	}
	var metadata output.ArtifactMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &metadata, nil
}

var _ output.StorageGateway = (*LocalStorageGateway)(nil)
