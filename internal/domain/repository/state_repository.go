package repository

import (
	"context"
	"errors"

	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

// ErrStateNotFound is returned by Load when no state was saved for the session
var ErrStateNotFound = errors.New("workflow state not found")

// WorkflowStateRepository persists the single workflow state of one session.
// Implementations are last-write-wins: Save never rejects an older revision.
type WorkflowStateRepository interface {
	// Load returns the saved state or ErrStateNotFound
	Load(ctx context.Context) (workflow.State, error)

	// Save overwrites the saved state
	Save(ctx context.Context, state workflow.State) error

	// Clear removes the saved state; clearing an absent state is not an error
	Clear(ctx context.Context) error
}

// ChangeNotifier is implemented by repositories that can signal external writes
type ChangeNotifier interface {
	// Watch returns a channel that receives a value whenever the saved state may have changed.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
