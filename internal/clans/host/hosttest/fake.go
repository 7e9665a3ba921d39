// Package hosttest provides an in-memory host for engine tests.
package hosttest

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/host"
)

type Sent struct {
	To  uuid.UUID
	Msg host.Message
}

type Fake struct {
	mu       sync.Mutex
	online   map[uuid.UUID]host.Player
	items    map[uuid.UUID]map[host.Resource]int
	effects  map[uuid.UUID]map[host.EffectKind]host.Effect
	applied  int
	removed  int
	messages []Sent
}

func New() *Fake {
	return &Fake{
		online:  map[uuid.UUID]host.Player{},
		items:   map[uuid.UUID]map[host.Resource]int{},
		effects: map[uuid.UUID]map[host.EffectKind]host.Effect{},
	}
}

// Join brings a player online at pos with no items.
func (f *Fake) Join(name string, pos host.Position) uuid.UUID {
	id := uuid.New()
	f.Put(host.Player{ID: id, Name: name, Pos: pos})
	return id
}

func (f *Fake) Put(p host.Player) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[p.ID] = p
}

func (f *Fake) Move(id uuid.UUID, pos host.Position) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.online[id]; ok {
		p.Pos = pos
		f.online[id] = p
	}
}

func (f *Fake) Drop(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.online, id)
}

func (f *Fake) Online(id uuid.UUID) (host.Player, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.online[id]
	return p, ok
}

func (f *Fake) ByName(name string) (host.Player, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.online {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return host.Player{}, false
}

func (f *Fake) OnlinePlayers() []host.Player {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]host.Player, 0, len(f.online))
	for _, p := range f.online {
		out = append(out, p)
	}
	return out
}

func (f *Fake) SetItems(id uuid.UUID, r host.Resource, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items[id] == nil {
		f.items[id] = map[host.Resource]int{}
	}
	f.items[id][r] = n
}

func (f *Fake) Count(id uuid.UUID, r host.Resource) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id][r]
}

func (f *Fake) Take(id uuid.UUID, r host.Resource, n int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items[id][r] < n {
		return false
	}
	f.items[id][r] -= n
	return true
}

func (f *Fake) Give(id uuid.UUID, r host.Resource, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items[id] == nil {
		f.items[id] = map[host.Resource]int{}
	}
	f.items[id][r] += n
}

func (f *Fake) Apply(id uuid.UUID, e host.Effect) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.effects[id] == nil {
		f.effects[id] = map[host.EffectKind]host.Effect{}
	}
	f.effects[id][e.Kind] = e
	f.applied++
}

func (f *Fake) Remove(id uuid.UUID, kind host.EffectKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.effects[id][kind]; ok {
		delete(f.effects[id], kind)
		f.removed++
	}
}

// Effect returns the active effect of kind on id.
func (f *Fake) Effect(id uuid.UUID, kind host.EffectKind) (host.Effect, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.effects[id][kind]
	return e, ok
}

// Applications counts Apply calls since creation.
func (f *Fake) Applications() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied
}

func (f *Fake) Send(id uuid.UUID, m host.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, Sent{To: id, Msg: m})
}

// Messages returns every message delivered to id with the given key.
func (f *Fake) Messages(id uuid.UUID, key string) []host.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []host.Message
	for _, s := range f.messages {
		if s.To == id && s.Msg.Key == key {
			out = append(out, s.Msg)
		}
	}
	return out
}

func (f *Fake) CountKey(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.messages {
		if s.Msg.Key == key {
			n++
		}
	}
	return n
}
