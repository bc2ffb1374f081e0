// Per-user, in-memory message history for duplicate-flood and burst-flood
// detection. State is process-local and never persisted: a restart silently
// resets everyone's history, which is acceptable because spam bursts are
// short-lived and retrigger if they continue.
package spam

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"
)

type Kind string

const (
	KindDuplicate Kind = "duplicate"
	KindFlood     Kind = "flood"
)

type Result struct {
	IsSpam bool
	Kind   Kind
	Detail string
}

type Config struct {
	// full history retention per user
	RetentionWindow time.Duration
	// identical-text detection window and threshold
	DuplicateWindow    time.Duration
	DuplicateThreshold int
	// any-text burst window and threshold
	FloodWindow    time.Duration
	FloodThreshold int
	// hard cap on entries kept per user (drop-oldest)
	MaxEntriesPerUser int
}

func DefaultConfig() Config {
	return Config{
		RetentionWindow:    2 * time.Minute,
		DuplicateWindow:    60 * time.Second,
		DuplicateThreshold: 3,
		FloodWindow:        10 * time.Second,
		FloodThreshold:     5,
		MaxEntriesPerUser:  64,
	}
}

type entry struct {
	fingerprint string
	seenAt      time.Time
}

// Tracker keeps a capped, time-ordered fingerprint history per user. All
// state lives behind one mutex; each user's slice is independent so there is
// no cross-user contention beyond map access.
type Tracker struct {
	cfg Config

	mu      sync.Mutex
	history map[string][]entry

	// injectable for tests
	now func() time.Time
}

func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		cfg:     cfg,
		history: make(map[string][]entry),
		now:     time.Now,
	}
}

// compact hash of the normalized message text (lower-cased, trimmed), so the
// history holds fixed-size fingerprints instead of raw message bodies
func fingerprint(text string) string {
	norm := strings.ToLower(strings.TrimSpace(text))
	return fmt.Sprintf("%016x", murmur3.Sum64([]byte(norm)))
}

// Records one message and reports whether it completes a duplicate or flood
// pattern. Prunes aged-out entries for the user on the way in, so memory
// stays bounded for active users without a separate timer per user. The two
// checks are independent; duplicate wins when both fire.
func (t *Tracker) Record(userID, text string) Result {
	now := t.now()
	fp := fingerprint(text)

	t.mu.Lock()
	defer t.mu.Unlock()

	entries := t.history[userID]

	cutoff := now.Add(-t.cfg.RetentionWindow)
	kept := entries[:0]
	for _, e := range entries {
		if e.seenAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	entries = kept

	entries = append(entries, entry{fingerprint: fp, seenAt: now})
	if len(entries) > t.cfg.MaxEntriesPerUser {
		entries = entries[len(entries)-t.cfg.MaxEntriesPerUser:]
	}
	t.history[userID] = entries

	dupCutoff := now.Add(-t.cfg.DuplicateWindow)
	dupes := 0
	for _, e := range entries {
		if e.fingerprint == fp && e.seenAt.After(dupCutoff) {
			dupes++
		}
	}
	if dupes >= t.cfg.DuplicateThreshold {
		return Result{
			IsSpam: true,
			Kind:   KindDuplicate,
			Detail: fmt.Sprintf("identical message sent %d times within %s", dupes, t.cfg.DuplicateWindow),
		}
	}

	floodCutoff := now.Add(-t.cfg.FloodWindow)
	recent := 0
	for _, e := range entries {
		if e.seenAt.After(floodCutoff) {
			recent++
		}
	}
	if recent >= t.cfg.FloodThreshold {
		return Result{
			IsSpam: true,
			Kind:   KindFlood,
			Detail: fmt.Sprintf("%d messages within %s", recent, t.cfg.FloodWindow),
		}
	}

	return Result{}
}

// Drops users whose entire history has aged out. Run periodically as
// housekeeping; Record already prunes per-user on the hot path, but only for
// users who keep sending.
func (t *Tracker) Sweep() int {
	cutoff := t.now().Add(-t.cfg.RetentionWindow)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for userID, entries := range t.history {
		if len(entries) == 0 || !entries[len(entries)-1].seenAt.After(cutoff) {
			delete(t.history, userID)
			removed++
		}
	}
	return removed
}

// number of users currently tracked
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.history)
}
