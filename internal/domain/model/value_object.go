package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// SessionID identifies one user's workflow across surfaces
type SessionID struct {
	value string
}

// NewSessionID creates a random SessionID
func NewSessionID() SessionID {
	return SessionID{value: uuid.New().String()}
}

// NewSessionIDFromString validates and wraps an existing session name
func NewSessionIDFromString(id string) (SessionID, error) {
	if id == "" {
		return SessionID{}, errors.New("session ID cannot be empty")
	}
	if !sessionIDPattern.MatchString(id) {
		return SessionID{}, fmt.Errorf("invalid session ID %q", id)
	}
	return SessionID{value: id}, nil
}

// String returns the string representation
func (s SessionID) String() string {
	return s.value
}

// Equals checks if two SessionIDs are equal
func (s SessionID) Equals(other SessionID) bool {
	return s.value == other.value
}

// ID prefixes for generated identifiers
const (
	PrefixImage  = "img"
	PrefixMockup = "mock"
	PrefixExport = "exp"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns "<prefix>_<ulid>", sortable by creation time.
// Format: img_01jb6x8y2k9fqr4t3vwhgp5m2c
func NewID(prefix string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	return prefix + "_" + strings.ToLower(id.String())
}

// PrefixOf returns the prefix of an ID created by NewID
func PrefixOf(id string) (string, bool) {
	prefix, rest, ok := strings.Cut(id, "_")
	if !ok || prefix == "" || len(rest) != ulid.EncodedSize {
		return "", false
	}
	if _, err := ulid.ParseStrict(strings.ToUpper(rest)); err != nil {
		return "", false
	}
	return prefix, true
}
