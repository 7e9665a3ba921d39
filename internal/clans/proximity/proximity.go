package proximity

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/host"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/registry"
)

type Config struct {
	Radius      float64
	MaxClanSize int
	// Quorum is the cluster size that unlocks the full clan bonus.
	Quorum      int
	SpeedBonus  float64
	DamageBonus float64
}

// Status is the buff state of one online member.
type Status struct {
	Nearby int
	Level  int
	Full   bool
}

// Engine scans clan members on each Tick and keeps their buffs in step,
// touching effects only when a member's status changes.
type Engine struct {
	reg *registry.Registry
	dir host.Directory
	fx  host.Effects
	msg host.Messenger
	cfg atomic.Pointer[Config]

	mu      sync.Mutex
	applied map[uuid.UUID]Status
}

func New(reg *registry.Registry, dir host.Directory, fx host.Effects, msg host.Messenger, cfg Config) *Engine {
	e := &Engine{reg: reg, dir: dir, fx: fx, msg: msg, applied: map[uuid.UUID]Status{}}
	e.SetConfig(cfg)
	return e
}

// SetConfig takes effect on the next Tick.
func (e *Engine) SetConfig(cfg Config) {
	if cfg.Radius <= 0 {
		cfg.Radius = 20
	}
	if cfg.MaxClanSize <= 0 {
		cfg.MaxClanSize = 4
	}
	if cfg.Quorum <= 0 {
		cfg.Quorum = 4
	}
	e.cfg.Store(&cfg)
}

// Compute derives per-member statuses for one clan's online roster.
// rosterSize is the clan's full member count.
func Compute(online []host.Player, rosterSize int, cfg Config) map[uuid.UUID]Status {
	out := make(map[uuid.UUID]Status, len(online))
	raw := make([]int, len(online))
	for i := range online {
		for j := range online {
			if i != j && online[i].Pos.Distance(online[j].Pos) <= cfg.Radius {
				raw[i]++
			}
		}
	}
	tight := 0
	for _, n := range raw {
		if n >= cfg.Quorum-1 {
			tight++
		}
	}
	full := len(online) == rosterSize && rosterSize >= cfg.Quorum && tight >= cfg.Quorum
	maxNearby := cfg.MaxClanSize - 1
	for i, p := range online {
		n := raw[i]
		if n > maxNearby {
			n = maxNearby
		}
		st := Status{Nearby: n, Level: n - 1}
		if n > 0 {
			st.Full = full && raw[i] >= cfg.Quorum-1
		}
		out[p.ID] = st
	}
	return out
}

// Tick recomputes every clan and applies the differences.
func (e *Engine) Tick() {
	cfg := *e.cfg.Load()
	next := map[uuid.UUID]Status{}
	clanOf := map[uuid.UUID]string{}
	for _, c := range e.reg.All() {
		var online []host.Player
		for _, id := range c.Members.Sorted() {
			if p, ok := e.dir.Online(id); ok {
				online = append(online, p)
			}
		}
		for id, st := range Compute(online, len(c.Members), cfg) {
			next[id] = st
			clanOf[id] = c.Key
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// Forget may have run since the scan; drop players who left meanwhile.
	for id := range next {
		if !e.stillMember(id, clanOf[id]) {
			delete(next, id)
		}
	}
	for id, prev := range e.applied {
		if _, ok := next[id]; !ok {
			e.stripLocked(id, prev)
		}
	}
	for id, st := range next {
		prev, had := e.applied[id]
		if st.Nearby == 0 {
			if had {
				e.stripLocked(id, prev)
			}
			continue
		}
		if !had || prev.Level != st.Level {
			e.fx.Apply(id, host.Effect{Kind: host.Speed, Level: st.Level})
		}
		if st.Full && (!had || !prev.Full) {
			e.fx.Apply(id, host.Effect{Kind: host.Resistance, Level: 0})
			e.fx.Apply(id, host.Effect{Kind: host.Haste, Level: 0})
		}
		if !st.Full && had && prev.Full {
			e.fx.Remove(id, host.Resistance)
			e.fx.Remove(id, host.Haste)
		}
		e.applied[id] = st
		if e.msg != nil {
			e.msg.Send(id, host.Message{
				Key:       "proximity.status",
				ActionBar: true,
				Args: map[string]any{
					"speed_pct":  percent(float64(st.Nearby) * cfg.SpeedBonus),
					"damage_pct": percent(float64(st.Nearby) * cfg.DamageBonus),
					"full":       st.Full,
				},
			})
		}
	}
}

func (e *Engine) stillMember(id uuid.UUID, key string) bool {
	if _, ok := e.dir.Online(id); !ok {
		return false
	}
	k, ok := e.reg.KeyOf(id)
	return ok && k == key
}

func percent(f float64) int { return int(math.Round(f * 100)) }

func (e *Engine) stripLocked(id uuid.UUID, prev Status) {
	e.fx.Remove(id, host.Speed)
	if prev.Full {
		e.fx.Remove(id, host.Resistance)
		e.fx.Remove(id, host.Haste)
	}
	delete(e.applied, id)
}

// Forget strips a player's buffs immediately, e.g. on disconnect or leave.
func (e *Engine) Forget(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prev, ok := e.applied[id]; ok {
		e.stripLocked(id, prev)
	}
}

// Nearby is the last computed nearby-ally count for id.
func (e *Engine) Nearby(id uuid.UUID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applied[id].Nearby
}

func (e *Engine) Status(id uuid.UUID) (Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.applied[id]
	return st, ok
}

// Reset strips every tracked player, used on shutdown.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, prev := range e.applied {
		e.stripLocked(id, prev)
	}
}
