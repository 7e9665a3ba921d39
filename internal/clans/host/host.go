// Package host declares what the clan engine needs from the game server it
// runs inside. Implementations must not call back into the engine.
package host

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Position struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// Distance is +Inf across worlds.
func (p Position) Distance(o Position) float64 {
	if p.World != o.World {
		return math.Inf(1)
	}
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Player is a live session.
type Player struct {
	ID   uuid.UUID
	Name string
	Pos  Position
}

type Resource string

const (
	Gold      Resource = "gold"
	Netherite Resource = "netherite"
)

type EffectKind string

const (
	Speed      EffectKind = "speed"
	Strength   EffectKind = "strength"
	Resistance EffectKind = "resistance"
	Haste      EffectKind = "haste"
)

// Effect is a status effect. A zero Duration lasts until removed.
type Effect struct {
	Kind     EffectKind
	Level    int
	Duration time.Duration
}

// Message is a keyed, pre-localization notice; the host renders it.
type Message struct {
	Key       string         `json:"key"`
	Args      map[string]any `json:"args,omitempty"`
	ActionBar bool           `json:"action_bar,omitempty"`
}

type Directory interface {
	Online(id uuid.UUID) (Player, bool)
	ByName(name string) (Player, bool)
	OnlinePlayers() []Player
}

type Inventory interface {
	Count(id uuid.UUID, r Resource) int
	// Take removes n units and reports false, removing nothing, if the player holds fewer.
	Take(id uuid.UUID, r Resource, n int) bool
	Give(id uuid.UUID, r Resource, n int)
}

type Effects interface {
	Apply(id uuid.UUID, e Effect)
	Remove(id uuid.UUID, kind EffectKind)
}

type Messenger interface {
	Send(id uuid.UUID, m Message)
}

type Host interface {
	Directory
	Inventory
	Effects
	Messenger
}
