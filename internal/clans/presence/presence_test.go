package presence

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJoinLeaveAndChat(t *testing.T) {
	s := New()
	p := uuid.New()
	now := time.Unix(1000, 0)

	s.Join(p, now)
	if !s.Online(p) {
		t.Fatalf("expected online after join")
	}
	if !s.ToggleClanChat(p) || !s.ClanChat(p) {
		t.Fatalf("toggle should enable clan chat")
	}
	if s.ToggleClanChat(p) {
		t.Fatalf("second toggle should disable clan chat")
	}
	s.SetClanChat(p, true)

	s.Leave(p, now.Add(time.Minute))
	e, ok := s.Get(p)
	if !ok || e.Online || e.ClanChat || !e.LastSeen.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected entry after leave: %+v", e)
	}
	if len(s.OnlineIDs()) != 0 {
		t.Fatalf("offline player listed as online")
	}
}

func TestPrune(t *testing.T) {
	s := New()
	now := time.Unix(1000, 0)
	gone, here := uuid.New(), uuid.New()
	s.Join(gone, now)
	s.Leave(gone, now)
	s.Join(here, now)
	if n := s.Prune(now.Add(time.Hour)); n != 1 {
		t.Fatalf("expected one pruned entry, got %d", n)
	}
	if _, ok := s.Get(here); !ok {
		t.Fatalf("online player pruned")
	}
}
