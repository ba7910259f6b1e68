package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
)

// MockStorageGateway keeps artifacts in memory. It backs the "memory"
// storage type and tests.
type MockStorageGateway struct {
	mu        sync.RWMutex
	artifacts map[string]*output.Artifact
}

// NewMockStorageGateway creates a new in-memory storage gateway
func NewMockStorageGateway() *MockStorageGateway {
	return &MockStorageGateway{artifacts: make(map[string]*output.Artifact)}
}

func (g *MockStorageGateway) SaveArtifact(ctx context.Context, req output.SaveArtifactRequest) (*output.ArtifactMetadata, error) {
	artifactID, err := newArtifactID(req.Kind)
	if err != nil {
		return nil, err
	}

	content := append([]byte(nil), req.Content...)
	artifact := &output.Artifact{
		ID:      artifactID,
		Content: content,
		Metadata: output.ArtifactMetadata{
			ID:          artifactID,
			Kind:        req.Kind,
			StoragePath: "memory://artifacts/" + string(req.Kind) + "/" + artifactID,
			ContentType: req.ContentType,
			Size:        int64(len(content)),
			CreatedAt:   time.Now().UTC(),
			Metadata:    req.Metadata,
		},
	}

	g.mu.Lock()
	g.artifacts[artifactID] = artifact
	g.mu.Unlock()

	metadata := artifact.Metadata
	return &metadata, nil
}

func (g *MockStorageGateway) LoadArtifact(ctx context.Context, artifactID string) (*output.Artifact, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	artifact, ok := g.artifacts[artifactID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, artifactID)
	}
	cp := *artifact
	cp.Content = append([]byte(nil), artifact.Content...)
	return &cp, nil
}

func (g *MockStorageGateway) ListArtifacts(ctx context.Context, kind output.ArtifactKind) ([]*output.ArtifactMetadata, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	list := []*output.ArtifactMetadata{}
	for _, a := range g.artifacts {
		if a.Metadata.Kind == kind {
			m := a.Metadata
			list = append(list, &m)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

var _ output.StorageGateway = (*MockStorageGateway)(nil)
