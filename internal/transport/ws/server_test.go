package ws

import (
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/engine"
	"github.com/notdash999-netizen/simple-clans-mod/internal/protocol"
)

type harness struct {
	bridge *Bridge
	engine *engine.Engine
	srv    *httptest.Server
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	b := NewBridge(logger)
	e := engine.New(engine.DefaultConfig(), b, logger, time.Now)
	s, err := NewServer(e, b, cfg, logger)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &harness{bridge: b, engine: e, srv: srv}
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil returns the first frame of type typ and the types skipped on
// the way.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) (map[string]any, []map[string]any) {
	t.Helper()
	var skipped []map[string]any
	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read waiting for %s: %v", typ, err)
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if m["type"] == typ {
			return m, skipped
		}
		skipped = append(skipped, m)
	}
}

func hello(token string) protocol.HelloMsg {
	return protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ServerName: "survival-1", Token: token}
}

func cmd(req string, player uuid.UUID, name string, args ...string) protocol.CmdMsg {
	return protocol.CmdMsg{Type: protocol.TypeCmd, ReqID: req, Player: player.String(), Name: name, Args: args}
}

func TestServerRejectsBadToken(t *testing.T) {
	h := newHarness(t, Config{Token: "secret"})
	conn := h.dial(t)
	send(t, conn, hello("wrong"))
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection to be closed")
	}
}

func TestServerCommandsAndCombat(t *testing.T) {
	h := newHarness(t, Config{Token: "secret"})
	conn := h.dial(t)
	send(t, conn, hello("secret"))
	w, _ := readUntil(t, conn, protocol.TypeWelcome)
	if w["protocol_version"] != protocol.Version {
		t.Fatalf("welcome: %v", w)
	}
	hasCreate := false
	for _, c := range w["commands"].([]any) {
		if c == "create" {
			hasCreate = true
		}
	}
	if !hasCreate {
		t.Fatalf("welcome should list create: %v", w["commands"])
	}

	grom, elf := uuid.New(), uuid.New()
	send(t, conn, protocol.PresenceMsg{Type: protocol.TypePresence, Full: true, Players: []protocol.PlayerState{
		{ID: grom.String(), Name: "Grom", World: "overworld", Gold: 100},
		{ID: elf.String(), Name: "Legolas", World: "overworld", X: 3, Gold: 100},
	}})

	send(t, conn, cmd("r1", grom, "create", "Orcs"))
	res, skipped := readUntil(t, conn, protocol.TypeResult)
	if res["req_id"] != "r1" || res["ok"] != true || res["key"] != "clan.created" {
		t.Fatalf("create result: %v", res)
	}
	charged := false
	for _, f := range skipped {
		if f["type"] == protocol.TypeItems && f["delta"].(float64) == -64 {
			charged = true
		}
	}
	if !charged {
		t.Fatalf("expected ITEMS -64 before result, got %v", skipped)
	}

	send(t, conn, cmd("r2", grom, "fly"))
	if res, _ := readUntil(t, conn, protocol.TypeResult); res["code"] != protocol.ErrUnknownCommand {
		t.Fatalf("unknown command: %v", res)
	}
	send(t, conn, cmd("r3", grom, "deposit", "lots"))
	if res, _ := readUntil(t, conn, protocol.TypeResult); res["code"] != protocol.ErrUsage {
		t.Fatalf("usage: %v", res)
	}
	send(t, conn, cmd("r4", elf, "leave"))
	if res, _ := readUntil(t, conn, protocol.TypeResult); res["ok"] != false || res["code"] != "E_NOT_IN_CLAN" {
		t.Fatalf("leave without clan: %v", res)
	}

	send(t, conn, protocol.AttackMsg{Type: protocol.TypeAttack, ReqID: "a1", Attacker: grom.String(), Victim: elf.String()})
	dmg, _ := readUntil(t, conn, protocol.TypeDamage)
	if dmg["req_id"] != "a1" || dmg["blocked"] != false || dmg["multiplier"].(float64) != 1 {
		t.Fatalf("damage: %v", dmg)
	}

	send(t, conn, map[string]any{"type": protocol.TypeCmd, "req_id": "bad"})
	if e, _ := readUntil(t, conn, protocol.TypeError); e["code"] != protocol.ErrProtoBadRequest {
		t.Fatalf("bad frame: %v", e)
	}

	_ = conn.Close()
	deadline := time.Now().Add(3 * time.Second)
	for h.engine.Presence().Online(grom) || h.engine.Presence().Online(elf) {
		if time.Now().After(deadline) {
			t.Fatalf("players still online after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if n := len(h.bridge.OnlinePlayers()); n != 0 {
		t.Fatalf("bridge still mirrors %d players", n)
	}
}

func TestServerRateLimitsCommands(t *testing.T) {
	h := newHarness(t, Config{CommandsPerSecond: 0.001, CommandBurst: 1})
	conn := h.dial(t)
	send(t, conn, hello(""))
	readUntil(t, conn, protocol.TypeWelcome)

	p := uuid.New()
	send(t, conn, cmd("r1", p, "top"))
	if res, _ := readUntil(t, conn, protocol.TypeResult); res["ok"] != true {
		t.Fatalf("first command: %v", res)
	}
	send(t, conn, cmd("r2", p, "top"))
	if res, _ := readUntil(t, conn, protocol.TypeResult); res["code"] != protocol.ErrRateLimit {
		t.Fatalf("second command should be limited: %v", res)
	}
}
