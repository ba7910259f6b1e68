package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/YoshitsuguKoike/align/internal/app"
	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
	"github.com/YoshitsuguKoike/align/internal/domain/repository"
)

// Synchronizer keeps one surface's view of the workflow state converged with
// the shared store. Surfaces never talk to each other; they only re-load.
// Concurrent commits from two surfaces are last-write-wins.
type Synchronizer struct {
	repo    repository.WorkflowStateRepository
	surface string
	journal Journal
	session string

	mu   sync.Mutex
	seen mark
}

// mark identifies a saved state version as observed by this surface
type mark struct {
	ok        bool
	revision  int64
	epoch     int64
	writer    string
	updatedAt int64
}

func markOf(st workflow.State) mark {
	return mark{
		ok:        true,
		revision:  st.Revision(),
		epoch:     st.Epoch(),
		writer:    st.UpdatedBy(),
		updatedAt: st.UpdatedAt().UnixNano(),
	}
}

// Journal records committed states
type Journal interface {
	Append(entry *app.JournalEntry) error
}

// NewSynchronizer creates a synchronizer for the named surface
func NewSynchronizer(repo repository.WorkflowStateRepository, surface string) *Synchronizer {
	return &Synchronizer{repo: repo, surface: surface}
}

// WithJournal records every commit of session to j
func (s *Synchronizer) WithJournal(session string, j Journal) *Synchronizer {
	s.session = session
	s.journal = j
	return s
}

// Surface returns the name stamped on states committed through this synchronizer
func (s *Synchronizer) Surface() string {
	return s.surface
}

// Checkpoint re-loads the shared state. changed reports whether it differs from
// the last state this surface loaded or committed. A missing state loads as the
// initial state.
func (s *Synchronizer) Checkpoint(ctx context.Context) (st workflow.State, changed bool, err error) {
	loaded, err := s.repo.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrStateNotFound):
		s.mu.Lock()
		changed = s.seen.ok
		s.seen = mark{}
		s.mu.Unlock()
		return workflow.New(), changed, nil
	case err != nil:
		return workflow.State{}, false, fmt.Errorf("load workflow state: %w", err)
	}

	m := markOf(loaded)
	s.mu.Lock()
	changed = s.seen != m
	s.seen = m
	s.mu.Unlock()
	return loaded, changed, nil
}

// Commit stamps the surface as last writer and saves st.
// The stamped state is returned so callers keep what was persisted.
func (s *Synchronizer) Commit(ctx context.Context, st workflow.State) (workflow.State, error) {
	stamped := st.WithWriter(s.surface)
	if err := s.repo.Save(ctx, stamped); err != nil {
		return st, fmt.Errorf("save workflow state: %w", err)
	}

	s.mu.Lock()
	s.seen = markOf(stamped)
	s.mu.Unlock()

	if s.journal != nil {
		if err := s.journal.Append(app.NewJournalEntry(s.session, s.surface, stamped)); err != nil {
			app.GetLogger().Warn("journal %s: %v", s.surface, err)
		}
	}
	return stamped, nil
}

// Follow re-loads the state whenever notify fires or poll elapses and calls fn
// with each state written by someone else. Either trigger may be disabled by
// passing a nil channel or a zero interval. Follow returns when ctx is done.
func (s *Synchronizer) Follow(ctx context.Context, notify <-chan struct{}, poll time.Duration, fn func(workflow.State)) error {
	var tick <-chan time.Time
	if poll > 0 {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-notify:
			if !ok {
				notify = nil
				continue
			}
		case <-tick:
		}

		st, changed, err := s.Checkpoint(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			app.GetLogger().Warn("sync %s: %v", s.surface, err)
			continue
		}
		if changed {
			app.GetLogger().Debug("sync %s: adopted revision %d from %q", s.surface, st.Revision(), st.UpdatedBy())
			fn(st)
		}
	}
}
