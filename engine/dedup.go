package engine

import (
	"sync"
	"time"
)

// Ledger is an in-process guard against reconciling the same message twice
// within a run. The mailbox's UNSEEN flag is the primary dedup mechanism, so
// losing this state on restart is accepted. Entries older than the eviction
// horizon are swept on every Mark to keep the set bounded.
type Ledger struct {
	mu      sync.Mutex
	horizon time.Duration
	seen    map[string]time.Time
}

func NewLedger(horizon time.Duration) *Ledger {
	return &Ledger{
		horizon: horizon,
		seen:    make(map[string]time.Time),
	}
}

func (l *Ledger) Seen(messageID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[messageID]
	return ok
}

func (l *Ledger) Mark(messageID string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, at := range l.seen {
		if now.Sub(at) > l.horizon {
			delete(l.seen, id)
		}
	}
	l.seen[messageID] = now
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
