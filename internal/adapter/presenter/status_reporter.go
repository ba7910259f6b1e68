package presenter

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
)

const (
	statusKey = "status"

	// DefaultSuccessTTL is how long a Success status stays visible
	DefaultSuccessTTL = 3 * time.Second
)

// StatusReporter implements output.Reporter by holding the single status
// currently shown to the user. Success expires after its TTL; Loading and
// Error stay until they are superseded or cleared.
type StatusReporter struct {
	mu         sync.Mutex
	items      *cache.Cache
	successTTL time.Duration
	now        func() time.Time

	subs   map[int]func(output.Status)
	nextID int
}

// NewStatusReporter creates a reporter. successTTL <= 0 uses DefaultSuccessTTL.
func NewStatusReporter(successTTL time.Duration) *StatusReporter {
	if successTTL <= 0 {
		successTTL = DefaultSuccessTTL
	}
	return &StatusReporter{
		// A zero cleanup interval starts no janitor goroutine; expiry is checked on read
		items:      cache.New(cache.NoExpiration, 0),
		successTTL: successTTL,
		now:        time.Now,
		subs:       make(map[int]func(output.Status)),
	}
}

// Report replaces the displayed status
func (r *StatusReporter) Report(kind output.StatusKind, message string) {
	st := output.Status{Kind: kind, Message: message, Percent: -1, At: r.now()}
	if kind == output.StatusLoading {
		st.Percent = 0
	}

	ttl := cache.NoExpiration
	if kind == output.StatusSuccess {
		ttl = r.successTTL
	}

	r.mu.Lock()
	r.items.Set(statusKey, st, ttl)
	subs := r.subscribersLocked()
	r.mu.Unlock()

	notify(subs, st)
}

// Progress updates the percentage of a displayed Loading status.
// It is ignored when no Loading status is shown.
func (r *StatusReporter) Progress(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	r.mu.Lock()
	cur, ok := r.currentLocked()
	if !ok || cur.Kind != output.StatusLoading {
		r.mu.Unlock()
		return
	}
	cur.Percent = percent
	r.items.Set(statusKey, cur, cache.NoExpiration)
	subs := r.subscribersLocked()
	r.mu.Unlock()

	notify(subs, cur)
}

// Clear removes the displayed status. Subscribers receive a zero Status.
func (r *StatusReporter) Clear() {
	r.mu.Lock()
	r.items.Delete(statusKey)
	subs := r.subscribersLocked()
	r.mu.Unlock()

	notify(subs, output.Status{})
}

// Current returns the displayed status, if any
func (r *StatusReporter) Current() (output.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLocked()
}

// Subscribe registers fn for every status change. fn runs on the reporting
// goroutine and must not block. The returned func unsubscribes.
func (r *StatusReporter) Subscribe(fn func(output.Status)) (cancel func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *StatusReporter) currentLocked() (output.Status, bool) {
	v, ok := r.items.Get(statusKey)
	if !ok {
		return output.Status{}, false
	}
	return v.(output.Status), true
}

func (r *StatusReporter) subscribersLocked() []func(output.Status) {
	subs := make([]func(output.Status), 0, len(r.subs))
	for id := 0; id < r.nextID; id++ {
		if fn, ok := r.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func notify(subs []func(output.Status), st output.Status) {
	for _, fn := range subs {
		fn(st)
	}
}

var _ output.Reporter = (*StatusReporter)(nil)
