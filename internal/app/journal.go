package app

import (
	"time"

	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

// JournalEntry records one committed workflow state
type JournalEntry struct {
	TS       string `json:"ts" yaml:"ts"`
	Session  string `json:"session" yaml:"session"`
	Surface  string `json:"surface" yaml:"surface"`
	Epoch    int64  `json:"epoch" yaml:"epoch"`
	Revision int64  `json:"revision" yaml:"revision"`
	Step     string `json:"step" yaml:"step"`
	Error    string `json:"error" yaml:"error"`
}

// NewJournalEntry describes st as committed by surface
func NewJournalEntry(session, surface string, st workflow.State) *JournalEntry {
	e := &JournalEntry{
		Session:  session,
		Surface:  surface,
		Epoch:    st.Epoch(),
		Revision: st.Revision(),
		Step:     string(st.Step()),
		Error:    st.Err(),
	}
	if !st.UpdatedAt().IsZero() {
		e.TS = st.UpdatedAt().UTC().Format(time.RFC3339Nano)
	}
	return e
}

// NormalizeJournalEntry ensures all required fields are present in the journal entry
// It fills missing fields with defaults to maintain a consistent schema
func NormalizeJournalEntry(entry *JournalEntry) JournalEntry {
	var e JournalEntry
	if entry != nil {
		e = *entry
	}
	if e.TS == "" {
		e.TS = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if e.Step == "" {
		e.Step = "unknown"
	}
	if e.Surface == "" {
		e.Surface = "unknown"
	}
	return e
}
