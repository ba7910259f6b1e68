package dbstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
	"github.com/YoshitsuguKoike/align/internal/domain/repository"
)

// Store implements repository.WorkflowStateRepository on the workflow_states table
type Store struct {
	db      *sql.DB
	dialect Dialect
	session string
}

// NewStore creates a SQL-backed state store for session
func NewStore(db *sql.DB, dialect Dialect, session string) *Store {
	return &Store{db: db, dialect: dialect, session: session}
}

// Load retrieves the session's state
func (s *Store) Load(ctx context.Context) (workflow.State, error) {
	query := s.dialect.Rebind(`SELECT payload FROM workflow_states WHERE session_id = ?`)

	var payload []byte
	err := s.db.QueryRowContext(ctx, query, s.session).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return workflow.State{}, repository.ErrStateNotFound
	}
	if err != nil {
		return workflow.State{}, fmt.Errorf("failed to query workflow state: %w", err)
	}

	var st workflow.State
	if err := json.Unmarshal(payload, &st); err != nil {
		return workflow.State{}, fmt.Errorf("failed to decode workflow state: %w", err)
	}
	return st, nil
}

// Save upserts the session's state
func (s *Store) Save(ctx context.Context, st workflow.State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode workflow state: %w", err)
	}

	query := s.dialect.Rebind(`
		INSERT INTO workflow_states (session_id, step, revision, epoch, updated_by, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			step = excluded.step,
			revision = excluded.revision,
			epoch = excluded.epoch,
			updated_by = excluded.updated_by,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`)

	_, err = s.db.ExecContext(ctx, query,
		s.session,
		st.Step().String(),
		st.Revision(),
		st.Epoch(),
		st.UpdatedBy(),
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow state: %w", err)
	}
	return nil
}

// Clear deletes the session's state
func (s *Store) Clear(ctx context.Context) error {
	query := s.dialect.Rebind(`DELETE FROM workflow_states WHERE session_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, s.session); err != nil {
		return fmt.Errorf("failed to clear workflow state: %w", err)
	}
	return nil
}

var _ repository.WorkflowStateRepository = (*Store)(nil)
