package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/host"
	"github.com/notdash999-netizen/simple-clans-mod/internal/protocol"
)

func nextFrame(t *testing.T, out chan []byte) map[string]any {
	t.Helper()
	select {
	case b := <-out:
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return m
	case <-time.After(time.Second):
		t.Fatalf("no frame")
		return nil
	}
}

func TestBridgeMirrorsPresenceAndWallet(t *testing.T) {
	b := NewBridge(nil)
	out := make(chan []byte, 8)
	b.Attach(out)

	a, c := uuid.New(), uuid.New()
	joined, left, bad := b.ApplyPresence(protocol.PresenceMsg{Players: []protocol.PlayerState{
		{ID: a.String(), Name: "Grom", World: "overworld", X: 1, Gold: 20},
		{ID: c.String(), Name: "Thrall", World: "overworld", Netherite: 1},
		{ID: "junk", Name: "Junk"},
	}})
	if len(joined) != 2 || len(left) != 0 || len(bad) != 1 {
		t.Fatalf("joined=%d left=%d bad=%v", len(joined), len(left), bad)
	}
	if p, ok := b.ByName("grom"); !ok || p.ID != a {
		t.Fatalf("ByName should ignore case: %v %v", p, ok)
	}

	if b.Take(a, host.Gold, 21) {
		t.Fatalf("take beyond holdings should fail")
	}
	if !b.Take(a, host.Gold, 16) {
		t.Fatalf("take should succeed")
	}
	if got := b.Count(a, host.Gold); got != 4 {
		t.Fatalf("gold after take: want 4 got %d", got)
	}
	f := nextFrame(t, out)
	if f["type"] != protocol.TypeItems || f["delta"].(float64) != -16 || f["resource"] != "gold" {
		t.Fatalf("items frame: %v", f)
	}

	b.Give(c, host.Netherite, 2)
	if got := b.Count(c, host.Netherite); got != 3 {
		t.Fatalf("netherite after give: want 3 got %d", got)
	}
	if f := nextFrame(t, out); f["delta"].(float64) != 2 {
		t.Fatalf("give frame: %v", f)
	}

	b.Apply(a, host.Effect{Kind: host.Speed, Level: 1})
	if f := nextFrame(t, out); f["type"] != protocol.TypeEffect || f["effect"] != "speed" {
		t.Fatalf("effect frame: %v", f)
	}

	// A full update drops players that are no longer listed.
	_, left, _ = b.ApplyPresence(protocol.PresenceMsg{Full: true, Players: []protocol.PlayerState{
		{ID: a.String(), Name: "Grom", World: "overworld", Gold: 4},
	}})
	if len(left) != 1 || left[0] != c {
		t.Fatalf("full presence should drop Thrall: %v", left)
	}
	if _, ok := b.ByName("Thrall"); ok {
		t.Fatalf("name index not cleaned")
	}

	if !b.Detach(out) {
		t.Fatalf("detach should report active target")
	}
	b.Send(a, host.Message{Key: "x"})
	if b.Dropped() != 1 {
		t.Fatalf("want one dropped frame, got %d", b.Dropped())
	}
}

func TestBridgeClear(t *testing.T) {
	b := NewBridge(nil)
	a := uuid.New()
	b.ApplyPresence(protocol.PresenceMsg{Players: []protocol.PlayerState{{ID: a.String(), Name: "Grom"}}})
	ids := b.Clear()
	if len(ids) != 1 || ids[0] != a {
		t.Fatalf("clear: %v", ids)
	}
	if len(b.OnlinePlayers()) != 0 || b.Drop(a) {
		t.Fatalf("player still present after clear")
	}
}
