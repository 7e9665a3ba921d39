package combat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type hit struct {
	attacker uuid.UUID
	at       int64
}

// Tracker remembers the last attacker of each victim for a fixed window.
// Entries are evicted on expiry, on consumption by a death, or when the
// cache exceeds its capacity.
type Tracker struct {
	mu        sync.Mutex
	window    time.Duration
	capacity  int
	last      map[uuid.UUID]hit
	lastPrune int64
}

func NewTracker(window time.Duration, capacity int) *Tracker {
	if window <= 0 {
		window = 10 * time.Second
	}
	if capacity <= 0 {
		capacity = 4096
	}
	return &Tracker{window: window, capacity: capacity, last: map[uuid.UUID]hit{}}
}

func (t *Tracker) RecordHit(victim, attacker uuid.UUID, now time.Time) {
	if victim == attacker {
		return
	}
	nowMS := now.UnixMilli()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.shouldPruneLocked(nowMS) {
		t.pruneLocked(nowMS)
	}
	if _, ok := t.last[victim]; !ok && len(t.last) >= t.capacity {
		t.evictOldestLocked()
	}
	t.last[victim] = hit{attacker: attacker, at: nowMS}
}

// Consume returns the attributable killer of victim and forgets the entry.
func (t *Tracker) Consume(victim uuid.UUID, now time.Time) (uuid.UUID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.last[victim]
	if !ok {
		return uuid.Nil, false
	}
	delete(t.last, victim)
	if now.UnixMilli()-h.at > t.window.Milliseconds() {
		return uuid.Nil, false
	}
	return h.attacker, true
}

// Forget drops any record involving id as victim.
func (t *Tracker) Forget(id uuid.UUID) {
	t.mu.Lock()
	delete(t.last, id)
	t.mu.Unlock()
}

func (t *Tracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	before := len(t.last)
	t.pruneLocked(now.UnixMilli())
	return before - len(t.last)
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}

func (t *Tracker) shouldPruneLocked(nowMS int64) bool {
	if len(t.last) == 0 {
		return false
	}
	if len(t.last) > t.capacity/2 {
		return true
	}
	return nowMS-t.lastPrune > t.window.Milliseconds()
}

func (t *Tracker) pruneLocked(nowMS int64) {
	for k, h := range t.last {
		if nowMS-h.at > t.window.Milliseconds() {
			delete(t.last, k)
		}
	}
	t.lastPrune = nowMS
}

func (t *Tracker) evictOldestLocked() {
	var (
		oldest uuid.UUID
		at     int64
		found  bool
	)
	for k, h := range t.last {
		if !found || h.at < at {
			oldest, at, found = k, h.at, true
		}
	}
	if found {
		delete(t.last, oldest)
	}
}
