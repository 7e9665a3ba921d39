// Package confirm tracks two-step confirmations for destructive commands.
// The first call arms a token, a repeat of the same action inside the TTL
// consumes it.
package confirm

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type key struct {
	player uuid.UUID
	action string
}

type Tokens struct {
	mu      sync.Mutex
	ttl     time.Duration
	expires map[key]time.Time
}

func New(ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Tokens{ttl: ttl, expires: map[key]time.Time{}}
}

func (t *Tokens) TTL() time.Duration { return t.ttl }

// Confirm reports whether player already armed action and the token is
// still live. A live token is consumed. Otherwise a fresh token is armed.
func (t *Tokens) Confirm(player uuid.UUID, action string, now time.Time) bool {
	k := key{player: player, action: action}
	t.mu.Lock()
	defer t.mu.Unlock()
	if exp, ok := t.expires[k]; ok && now.Before(exp) {
		delete(t.expires, k)
		return true
	}
	t.expires[k] = now.Add(t.ttl)
	return false
}

// Cancel drops any armed token for player.
func (t *Tokens) Cancel(player uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.expires {
		if k.player == player {
			delete(t.expires, k)
		}
	}
}

func (t *Tokens) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k, exp := range t.expires {
		if !now.Before(exp) {
			delete(t.expires, k)
			n++
		}
	}
	return n
}

func (t *Tokens) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.expires)
}
