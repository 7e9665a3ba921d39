package protocol

// HELLO (game server -> clansd)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ServerName      string `json:"server_name"`
	Token           string `json:"token,omitempty"`
}

// WELCOME (clansd -> game server)
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	SessionID       string   `json:"session_id"`
	Commands        []string `json:"commands"`
}

type PlayerState struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	World     string  `json:"world"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Gold      int     `json:"gold"`
	Netherite int     `json:"netherite"`
}

// PRESENCE upserts online players. With Full set, players not listed are
// treated as gone.
type PresenceMsg struct {
	Type    string        `json:"type"`
	Full    bool          `json:"full,omitempty"`
	Players []PlayerState `json:"players"`
}

type GoneMsg struct {
	Type   string `json:"type"`
	Player string `json:"player"`
}

type CmdMsg struct {
	Type   string   `json:"type"`
	ReqID  string   `json:"req_id"`
	Player string   `json:"player"`
	Name   string   `json:"name"`
	Args   []string `json:"args,omitempty"`
}

type ResultMsg struct {
	Type    string         `json:"type"`
	ReqID   string         `json:"req_id"`
	OK      bool           `json:"ok"`
	Key     string         `json:"key,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
}

type AttackMsg struct {
	Type     string `json:"type"`
	ReqID    string `json:"req_id"`
	Attacker string `json:"attacker"`
	Victim   string `json:"victim"`
}

type DamageMsg struct {
	Type       string  `json:"type"`
	ReqID      string  `json:"req_id"`
	Blocked    bool    `json:"blocked"`
	Reason     string  `json:"reason,omitempty"`
	Multiplier float64 `json:"multiplier"`
}

type DeathMsg struct {
	Type         string `json:"type"`
	Victim       string `json:"victim"`
	LastAttacker string `json:"last_attacker,omitempty"`
}

type MessageMsg struct {
	Type      string         `json:"type"`
	Player    string         `json:"player"`
	Key       string         `json:"key"`
	Args      map[string]any `json:"args,omitempty"`
	ActionBar bool           `json:"action_bar,omitempty"`
}

// EFFECT applies (or with Remove, clears) a status effect. DurationMS 0
// means until removed.
type EffectMsg struct {
	Type       string `json:"type"`
	Player     string `json:"player"`
	Effect     string `json:"effect"`
	Level      int    `json:"level,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Remove     bool   `json:"remove,omitempty"`
}

// ITEMS adjusts a player's holdings by Delta.
type ItemsMsg struct {
	Type     string `json:"type"`
	Player   string `json:"player"`
	Resource string `json:"resource"`
	Delta    int    `json:"delta"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
