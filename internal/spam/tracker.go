// Package spam guards write endpoints against repeated near-identical
// submissions. The capability is expressed as a narrow interface so the
// process-local default can be swapped for a shared cache when the service
// runs with more than one replica.
package spam

import (
	"strings"
	"sync"
	"time"
)

// Tracker records submission fingerprints per user over a sliding time
// window and answers whether a new submission crosses the similarity limit.
//
// Record should be called only after IsOverLimit admitted the submission, so
// rejected attempts do not extend the window.
type Tracker interface {
	// Record remembers a submission fingerprint for userID at the current time.
	Record(userID, fingerprint string)
	// IsOverLimit reports whether userID already has too many similar
	// submissions inside the window.
	IsOverLimit(userID, fingerprint string) bool
}

// entry is one remembered submission.
type entry struct {
	fingerprint string
	at          time.Time
}

// WindowTracker is the in-memory Tracker: per-user submission lists pruned
// lazily on access. Similarity is substring containment in either direction,
// matching how duplicate titles/descriptions repeat in practice.
//
// Process-local by design; a multi-instance deployment should inject a
// shared-cache implementation instead.
type WindowTracker struct {
	limit  int
	window time.Duration

	mu    sync.Mutex
	users map[string][]entry

	now func() time.Time // test seam
}

// NewWindowTracker returns a tracker allowing at most limit similar
// submissions per user inside window. limit <= 0 coerces to 3, window <= 0
// to 5 minutes.
func NewWindowTracker(limit int, window time.Duration) *WindowTracker {
	if limit <= 0 {
		limit = 3
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &WindowTracker{
		limit:  limit,
		window: window,
		users:  make(map[string][]entry),
		now:    time.Now,
	}
}

// Record remembers fingerprint for userID at the current time.
func (t *WindowTracker) Record(userID, fingerprint string) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.users[userID] = append(t.prune(t.users[userID], now), entry{fingerprint: fingerprint, at: now})
}

// IsOverLimit reports whether userID has reached the limit of similar
// submissions inside the window.
func (t *WindowTracker) IsOverLimit(userID, fingerprint string) bool {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.prune(t.users[userID], now)
	if len(kept) == 0 {
		delete(t.users, userID)
		return false
	}
	t.users[userID] = kept

	similar := 0
	for _, e := range kept {
		if similarTo(e.fingerprint, fingerprint) {
			similar++
		}
	}
	return similar >= t.limit
}

// prune drops entries older than the window.
func (t *WindowTracker) prune(entries []entry, now time.Time) []entry {
	kept := entries[:0]
	for _, e := range entries {
		if now.Sub(e.at) < t.window {
			kept = append(kept, e)
		}
	}
	return kept
}

// similarTo reports whether two fingerprints overlap by containment.
func similarTo(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
