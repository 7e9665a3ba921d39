package combat

import "github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"

type BlockReason string

const (
	BlockSameClan BlockReason = "same_clan"
	BlockAllied   BlockReason = "allied"
)

type Bonuses struct {
	// PerNearby is added once per nearby clan member of the attacker.
	PerNearby float64
	Enemy     float64
}

// Decision is the host's instruction for one hit: cancel it, or scale its
// damage by Multiplier exactly once.
type Decision struct {
	Blocked    bool
	Reason     BlockReason
	Multiplier float64
}

// Adjust decides how an attack from a member of attacker onto a member of
// victim is treated. Either clan may be nil for clanless players.
func Adjust(attacker, victim *model.Clan, nearby int, b Bonuses) Decision {
	if attacker == nil {
		return Decision{Multiplier: 1}
	}
	if victim != nil {
		if attacker.Key == victim.Key {
			return Decision{Blocked: true, Reason: BlockSameClan}
		}
		if attacker.Allies.Has(victim.Key) {
			return Decision{Blocked: true, Reason: BlockAllied}
		}
	}
	m := 1 + float64(nearby)*b.PerNearby
	if victim != nil && attacker.Enemies.Has(victim.Key) {
		m += b.Enemy
	}
	return Decision{Multiplier: m}
}
