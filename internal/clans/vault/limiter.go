package vault

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type OpKind string

const (
	OpDeposit  OpKind = "deposit"
	OpWithdraw OpKind = "withdraw"
)

// Limiter caps operations per player and kind per local calendar day.
// Counters are cleared in bulk by the first call that sees a new midnight.
type Limiter struct {
	mu        sync.Mutex
	max       int
	now       func() time.Time
	lastReset time.Time
	counts    map[uuid.UUID]map[OpKind]int
}

func NewLimiter(max int, now func() time.Time) *Limiter {
	if max <= 0 {
		max = 3
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		max:       max,
		now:       now,
		lastReset: midnight(now()),
		counts:    map[uuid.UUID]map[OpKind]int{},
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (l *Limiter) rollLocked() {
	if m := midnight(l.now()); m.After(l.lastReset) {
		l.counts = map[uuid.UUID]map[OpKind]int{}
		l.lastReset = m
	}
}

func (l *Limiter) Allow(player uuid.UUID, kind OpKind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollLocked()
	return l.counts[player][kind] < l.max
}

func (l *Limiter) Record(player uuid.UUID, kind OpKind) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollLocked()
	m := l.counts[player]
	if m == nil {
		m = map[OpKind]int{}
		l.counts[player] = m
	}
	m[kind]++
}

func (l *Limiter) Remaining(player uuid.UUID, kind OpKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollLocked()
	if n := l.max - l.counts[player][kind]; n > 0 {
		return n
	}
	return 0
}

func (l *Limiter) Max() int { return l.max }
