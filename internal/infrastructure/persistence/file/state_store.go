package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/align/internal/app"
	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
	"github.com/YoshitsuguKoike/align/internal/domain/repository"
)

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ErrWatchUnsupported is returned by Watch when the store is not backed by the OS filesystem
var ErrWatchUnsupported = errors.New("watch requires the OS filesystem")

// StateStore keeps one session's workflow state as a JSON file under <dir>/sessions
type StateStore struct {
	fs      afero.Fs
	dir     string
	session string
}

// NewStateStore creates a file-backed state store for session
func NewStateStore(fs afero.Fs, dir, session string) (*StateStore, error) {
	if !sessionPattern.MatchString(session) {
		return nil, fmt.Errorf("invalid session id %q", session)
	}
	return &StateStore{fs: fs, dir: dir, session: session}, nil
}

// Path returns the state file location
func (s *StateStore) Path() string {
	return filepath.Join(s.dir, "sessions", s.session+".json")
}

// Load reads the saved state
func (s *StateStore) Load(ctx context.Context) (workflow.State, error) {
	data, err := afero.ReadFile(s.fs, s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return workflow.State{}, repository.ErrStateNotFound
		}
		return workflow.State{}, fmt.Errorf("failed to read state file: %w", err)
	}

	var st workflow.State
	if err := json.Unmarshal(data, &st); err != nil {
		return workflow.State{}, fmt.Errorf("failed to decode state file %s: %w", s.Path(), err)
	}
	return st, nil
}

// Save writes the state atomically
func (s *StateStore) Save(ctx context.Context, st workflow.State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := WriteFileAtomic(s.fs, s.Path(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Clear deletes the state file
func (s *StateStore) Clear(ctx context.Context) error {
	if err := s.fs.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

// Watch notifies when the state file is written by any process
func (s *StateStore) Watch(ctx context.Context) (<-chan struct{}, error) {
	if _, ok := s.fs.(*afero.OsFs); !ok {
		return nil, ErrWatchUnsupported
	}

	dir := filepath.Dir(s.Path())
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	out := make(chan struct{}, 1)
	target := filepath.Base(s.Path())

	go func() {
		defer close(out)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				app.GetLogger().Warn("state watcher: %v", err)
			}
		}
	}()

	return out, nil
}

var (
	_ repository.WorkflowStateRepository = (*StateStore)(nil)
	_ repository.ChangeNotifier          = (*StateStore)(nil)
)
