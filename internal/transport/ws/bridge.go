package ws

import (
	"encoding/json"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/host"
	"github.com/notdash999-netizen/simple-clans-mod/internal/protocol"
)

type online struct {
	player host.Player
	items  map[host.Resource]int
}

// Bridge implements host.Host on top of the game server connection. It
// mirrors online players and their holdings from PRESENCE frames and turns
// engine side effects into outbound frames. Outbound frames are dropped
// while no game server is attached.
type Bridge struct {
	logger *log.Logger

	mu      sync.RWMutex
	players map[uuid.UUID]*online
	byName  map[string]uuid.UUID

	outMu sync.Mutex
	out   chan []byte

	dropped atomic.Uint64
}

var _ host.Host = (*Bridge)(nil)

func NewBridge(logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Default()
	}
	return &Bridge{
		logger:  logger,
		players: map[uuid.UUID]*online{},
		byName:  map[string]uuid.UUID{},
	}
}

// Attach routes outbound frames to out, replacing any previous target.
func (b *Bridge) Attach(out chan []byte) {
	b.outMu.Lock()
	b.out = out
	b.outMu.Unlock()
}

// Detach stops routing to out. It reports false if out was no longer the
// active target.
func (b *Bridge) Detach(out chan []byte) bool {
	b.outMu.Lock()
	defer b.outMu.Unlock()
	if b.out != out {
		return false
	}
	b.out = nil
	return true
}

// Dropped counts outbound frames lost to a full or missing connection.
func (b *Bridge) Dropped() uint64 { return b.dropped.Load() }

func (b *Bridge) emit(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		b.logger.Printf("bridge: encode %T: %v", v, err)
		return
	}
	b.outMu.Lock()
	defer b.outMu.Unlock()
	if b.out == nil {
		b.dropped.Add(1)
		return
	}
	select {
	case b.out <- raw:
	default:
		b.dropped.Add(1)
	}
}

// ApplyPresence updates the mirror. It returns players that came online and
// ids that went away.
func (b *Bridge) ApplyPresence(m protocol.PresenceMsg) (joined []host.Player, left []uuid.UUID, bad []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := map[uuid.UUID]struct{}{}
	for _, ps := range m.Players {
		id, err := uuid.Parse(ps.ID)
		if err != nil {
			bad = append(bad, ps.ID)
			continue
		}
		seen[id] = struct{}{}
		o, ok := b.players[id]
		if !ok {
			o = &online{items: map[host.Resource]int{}}
			b.players[id] = o
		}
		if o.player.Name != "" && !strings.EqualFold(o.player.Name, ps.Name) {
			delete(b.byName, strings.ToLower(o.player.Name))
		}
		o.player = host.Player{
			ID:   id,
			Name: ps.Name,
			Pos:  host.Position{World: ps.World, X: ps.X, Y: ps.Y, Z: ps.Z},
		}
		o.items[host.Gold] = ps.Gold
		o.items[host.Netherite] = ps.Netherite
		b.byName[strings.ToLower(ps.Name)] = id
		if !ok {
			joined = append(joined, o.player)
		}
	}
	if m.Full {
		for id := range b.players {
			if _, ok := seen[id]; !ok {
				b.removeLocked(id)
				left = append(left, id)
			}
		}
	}
	return joined, left, bad
}

// Drop forgets one player and reports whether it was online.
func (b *Bridge) Drop(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.players[id]; !ok {
		return false
	}
	b.removeLocked(id)
	return true
}

// Clear drops every player, returning their ids.
func (b *Bridge) Clear() []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uuid.UUID, 0, len(b.players))
	for id := range b.players {
		out = append(out, id)
	}
	b.players = map[uuid.UUID]*online{}
	b.byName = map[string]uuid.UUID{}
	return out
}

func (b *Bridge) removeLocked(id uuid.UUID) {
	o := b.players[id]
	delete(b.players, id)
	if o != nil && b.byName[strings.ToLower(o.player.Name)] == id {
		delete(b.byName, strings.ToLower(o.player.Name))
	}
}

func (b *Bridge) Online(id uuid.UUID) (host.Player, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.players[id]
	if !ok {
		return host.Player{}, false
	}
	return o.player, true
}

func (b *Bridge) ByName(name string) (host.Player, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return host.Player{}, false
	}
	return b.players[id].player, true
}

func (b *Bridge) OnlinePlayers() []host.Player {
	b.mu.RLock()
	out := make([]host.Player, 0, len(b.players))
	for _, o := range b.players {
		out = append(out, o.player)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (b *Bridge) Count(id uuid.UUID, r host.Resource) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if o, ok := b.players[id]; ok {
		return o.items[r]
	}
	return 0
}

func (b *Bridge) Take(id uuid.UUID, r host.Resource, n int) bool {
	if n <= 0 {
		return true
	}
	b.mu.Lock()
	o, ok := b.players[id]
	if !ok || o.items[r] < n {
		b.mu.Unlock()
		return false
	}
	o.items[r] -= n
	b.mu.Unlock()
	b.emit(protocol.ItemsMsg{Type: protocol.TypeItems, Player: id.String(), Resource: string(r), Delta: -n})
	return true
}

// Give credits the mirror when the player is online and always forwards the
// grant; the game server decides how to deliver to offline players.
func (b *Bridge) Give(id uuid.UUID, r host.Resource, n int) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	if o, ok := b.players[id]; ok {
		o.items[r] += n
	}
	b.mu.Unlock()
	b.emit(protocol.ItemsMsg{Type: protocol.TypeItems, Player: id.String(), Resource: string(r), Delta: n})
}

func (b *Bridge) Apply(id uuid.UUID, e host.Effect) {
	b.emit(protocol.EffectMsg{
		Type:       protocol.TypeEffect,
		Player:     id.String(),
		Effect:     string(e.Kind),
		Level:      e.Level,
		DurationMS: e.Duration.Milliseconds(),
	})
}

func (b *Bridge) Remove(id uuid.UUID, kind host.EffectKind) {
	b.emit(protocol.EffectMsg{Type: protocol.TypeEffect, Player: id.String(), Effect: string(kind), Remove: true})
}

func (b *Bridge) Send(id uuid.UUID, m host.Message) {
	b.emit(protocol.MessageMsg{
		Type:      protocol.TypeMessage,
		Player:    id.String(),
		Key:       m.Key,
		Args:      m.Args,
		ActionBar: m.ActionBar,
	})
}
