// Package presence keeps per-player session state that outlives a single
// command: last seen time and whether chat goes to the clan channel.
package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Entry struct {
	Online   bool
	LastSeen time.Time
	ClanChat bool
}

type Service struct {
	mu      sync.RWMutex
	players map[uuid.UUID]Entry
}

func New() *Service {
	return &Service{players: map[uuid.UUID]Entry{}}
}

func (s *Service) Join(id uuid.UUID, now time.Time) {
	s.mu.Lock()
	e := s.players[id]
	e.Online = true
	e.LastSeen = now
	s.players[id] = e
	s.mu.Unlock()
}

// Leave marks id offline. Clan chat mode does not survive a session.
func (s *Service) Leave(id uuid.UUID, now time.Time) {
	s.mu.Lock()
	e := s.players[id]
	e.Online = false
	e.ClanChat = false
	e.LastSeen = now
	s.players[id] = e
	s.mu.Unlock()
}

func (s *Service) Get(id uuid.UUID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.players[id]
	return e, ok
}

func (s *Service) Online(id uuid.UUID) bool {
	e, _ := s.Get(id)
	return e.Online
}

// ToggleClanChat flips the chat mode and returns the new value.
func (s *Service) ToggleClanChat(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.players[id]
	e.ClanChat = !e.ClanChat
	s.players[id] = e
	return e.ClanChat
}

func (s *Service) SetClanChat(id uuid.UUID, on bool) {
	s.mu.Lock()
	e := s.players[id]
	e.ClanChat = on
	s.players[id] = e
	s.mu.Unlock()
}

func (s *Service) ClanChat(id uuid.UUID) bool {
	e, _ := s.Get(id)
	return e.ClanChat
}

// OnlineIDs returns online players in a stable order.
func (s *Service) OnlineIDs() []uuid.UUID {
	s.mu.RLock()
	out := make([]uuid.UUID, 0, len(s.players))
	for id, e := range s.players {
		if e.Online {
			out = append(out, id)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Prune forgets offline players not seen since before cutoff.
func (s *Service) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.players {
		if !e.Online && e.LastSeen.Before(cutoff) {
			delete(s.players, id)
			n++
		}
	}
	return n
}
