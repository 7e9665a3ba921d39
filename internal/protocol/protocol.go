// Package protocol defines the JSON frames exchanged between clansd and the
// game server bridge.
package protocol

import "encoding/json"

const Version = "1.0"

// Inbound frames (game server -> clansd).
const (
	TypeHello    = "HELLO"
	TypePresence = "PRESENCE"
	TypeGone     = "GONE"
	TypeCmd      = "CMD"
	TypeAttack   = "ATTACK"
	TypeDeath    = "DEATH"
)

// Outbound frames (clansd -> game server).
const (
	TypeWelcome = "WELCOME"
	TypeResult  = "RESULT"
	TypeDamage  = "DAMAGE"
	TypeMessage = "MESSAGE"
	TypeEffect  = "EFFECT"
	TypeItems   = "ITEMS"
	TypeError   = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
