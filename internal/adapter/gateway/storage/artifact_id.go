package storage

import (
	"errors"
	"fmt"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	"github.com/YoshitsuguKoike/align/internal/domain/model"
)

// ErrArtifactNotFound is returned when an artifact ID is unknown to the store
var ErrArtifactNotFound = errors.New("artifact not found")

func newArtifactID(kind output.ArtifactKind) (string, error) {
	switch kind {
	case output.ArtifactImage:
		return model.NewID(model.PrefixImage), nil
	case output.ArtifactMockup:
		return model.NewID(model.PrefixMockup), nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
}

// kindOf recovers the artifact kind encoded in an ID
func kindOf(artifactID string) (output.ArtifactKind, error) {
	prefix, ok := model.PrefixOf(artifactID)
	if ok {
		switch prefix {
		case model.PrefixImage:
			return output.ArtifactImage, nil
		case model.PrefixMockup:
			return output.ArtifactMockup, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, artifactID)
}
