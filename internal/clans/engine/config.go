package engine

import (
	"time"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"
)

// Costs are gold fees charged to the acting player.
type Costs struct {
	Create  int
	Invite  int
	Join    int
	Enemy   int
	Ally    int
	Neutral int
	War     int
}

type Config struct {
	Costs Costs

	MaxClanSize     int
	MaxVault        int
	LowVaultWarning int
	DailyVaultOps   int
	FullBonusQuorum int

	ProximityRadius      float64
	ProximitySpeedBonus  float64
	ProximityDamageBonus float64
	EnemyDamageBonus     float64

	Weights model.PowerWeights

	InvitationTTL       time.Duration
	AllianceRequestTTL  time.Duration
	ConfirmTTL          time.Duration
	AttributionWindow   time.Duration
	ConsumptionInterval time.Duration
	WarDuration         time.Duration
	WarBuffDuration     time.Duration

	WarRewardNetherite int
	WarRewardGold      int
	WarsEnabled        bool
}

func DefaultConfig() Config {
	return Config{
		Costs: Costs{Create: 64, Invite: 16, Join: 16, Enemy: 32, Ally: 32, Neutral: 32, War: 48},

		MaxClanSize:     4,
		MaxVault:        10,
		LowVaultWarning: 3,
		DailyVaultOps:   3,
		FullBonusQuorum: 4,

		ProximityRadius:      20,
		ProximitySpeedBonus:  0.10,
		ProximityDamageBonus: 0.10,
		EnemyDamageBonus:     0.10,

		Weights: model.PowerWeights{Vault: 5, Kill: 1, Death: 1},

		InvitationTTL:       5 * time.Minute,
		AllianceRequestTTL:  5 * time.Minute,
		ConfirmTTL:          30 * time.Second,
		AttributionWindow:   10 * time.Second,
		ConsumptionInterval: 24 * time.Hour,
		WarDuration:         24 * time.Hour,
		WarBuffDuration:     2 * time.Hour,

		WarRewardNetherite: 1,
		WarRewardGold:      32,
		WarsEnabled:        true,
	}
}
