package app

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

// JournalWriter appends normalized journal entries as NDJSON
type JournalWriter struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewJournalWriter creates a writer for the journal at path
func NewJournalWriter(fsys afero.Fs, path string) *JournalWriter {
	return &JournalWriter{fs: fsys, path: path}
}

// Path returns the journal file location
func (w *JournalWriter) Path() string {
	return w.path
}

// Append writes a normalized journal entry to the journal file
func (w *JournalWriter) Append(entry *JournalEntry) error {
	e := NormalizeJournalEntry(entry)
	if err := validateJournal(e); err != nil {
		return err
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.fs.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}
	f, err := w.fs.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := bw.Write(append(b, '\n')); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		// The entry is written; durability is best effort
		GetLogger().Warn("failed to fsync journal: %v", err)
	}
	return nil
}

// ReadAll returns every entry in write order. A missing journal is empty.
// Lines that do not decode are skipped.
func (w *JournalWriter) ReadAll() ([]JournalEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.fs.Open(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []JournalEntry
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e JournalEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			GetLogger().Warn("skip journal line %d: %v", line, err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// Tail returns the last n entries, or all of them when n <= 0
func (w *JournalWriter) Tail(n int) ([]JournalEntry, error) {
	entries, err := w.ReadAll()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// validateJournal checks that an entry refers to a known step
func validateJournal(e JournalEntry) error {
	if e.Step == "unknown" {
		return nil
	}
	if _, err := workflow.ParseStep(e.Step); err != nil {
		return err
	}
	if e.Revision < 0 || e.Epoch < 0 {
		return errors.New("revision and epoch must not be negative")
	}
	return nil
}
