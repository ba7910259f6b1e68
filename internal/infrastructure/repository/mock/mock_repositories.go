package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
	"github.com/YoshitsuguKoike/align/internal/domain/repository"
)

// MockWorkflowStateRepository is an in-memory WorkflowStateRepository.
// It keeps the JSON encoding of the state so loads go through the same
// serialization as the real backends. One instance can be shared by several
// surfaces to simulate a common store.
type MockWorkflowStateRepository struct {
	mu    sync.RWMutex
	data  []byte
	saves int

	// SaveErr and LoadErr are returned by Save and Load when set
	SaveErr error
	LoadErr error
}

// NewMockWorkflowStateRepository creates an empty mock repository
func NewMockWorkflowStateRepository() *MockWorkflowStateRepository {
	return &MockWorkflowStateRepository{}
}

func (m *MockWorkflowStateRepository) Load(ctx context.Context) (workflow.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.LoadErr != nil {
		return workflow.State{}, m.LoadErr
	}
	if m.data == nil {
		return workflow.State{}, repository.ErrStateNotFound
	}

	var st workflow.State
	if err := json.Unmarshal(m.data, &st); err != nil {
		return workflow.State{}, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

func (m *MockWorkflowStateRepository) Save(ctx context.Context, st workflow.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

func (m *MockWorkflowStateRepository) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// Saves returns the number of successful saves
func (m *MockWorkflowStateRepository) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

var _ repository.WorkflowStateRepository = (*MockWorkflowStateRepository)(nil)
