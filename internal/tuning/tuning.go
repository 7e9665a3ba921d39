package tuning

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/engine"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	Costs   Costs   `yaml:"costs"`
	Bonuses Bonuses `yaml:"bonuses"`
	Power   Power   `yaml:"power"`
	Timers  Timers  `yaml:"timers"`
	War     War     `yaml:"war"`
	Limits  Limits  `yaml:"limits"`
	Bridge  Bridge  `yaml:"bridge"`
}

type Costs struct {
	ClanCreation   int `yaml:"clan_creation"`
	Invitation     int `yaml:"invitation"`
	Join           int `yaml:"join"`
	Enemy          int `yaml:"enemy"`
	Ally           int `yaml:"ally"`
	Neutral        int `yaml:"neutral"`
	WarDeclaration int `yaml:"war_declaration"`
}

type Bonuses struct {
	ProximitySpeed  float64 `yaml:"proximity_speed"`
	ProximityDamage float64 `yaml:"proximity_damage"`
	EnemyDamage     float64 `yaml:"enemy_damage"`
	ProximityRadius float64 `yaml:"proximity_radius"`
}

// Power weights apply while at war; off war the kill and death weights are halved.
type Power struct {
	NetheriteWeight int     `yaml:"netherite_weight"`
	KillWeight      float64 `yaml:"kill_weight"`
	DeathWeight     float64 `yaml:"death_weight"`
}

type Timers struct {
	InvitationMinutes      int `yaml:"invitation_minutes"`
	AllianceRequestMinutes int `yaml:"alliance_request_minutes"`
	ConsumptionHours       int `yaml:"consumption_hours"`
	ProximitySeconds       int `yaml:"proximity_seconds"`
	DecayCheckMinutes      int `yaml:"decay_check_minutes"`
	CleanupMinutes         int `yaml:"cleanup_minutes"`
	WarDurationHours       int `yaml:"war_duration_hours"`
	ConfirmSeconds         int `yaml:"confirm_seconds"`
	AttributionSeconds     int `yaml:"attribution_seconds"`
	BoardRefreshSeconds    int `yaml:"board_refresh_seconds"`
	PersistDebounceMs      int `yaml:"persist_debounce_ms"`
	PersistMaxWaitMs       int `yaml:"persist_max_wait_ms"`
	ShutdownGraceSeconds   int `yaml:"shutdown_grace_seconds"`
}

type War struct {
	Enabled           bool `yaml:"enabled"`
	WinnerNetherite   int  `yaml:"winner_netherite"`
	WinnerGold        int  `yaml:"winner_gold"`
	BuffDurationHours int  `yaml:"buff_duration_hours"`
}

type Limits struct {
	MaxClanSize     int `yaml:"max_clan_size"`
	MaxVaultSize    int `yaml:"max_vault_size"`
	LowVaultWarning int `yaml:"low_vault_warning"`
	DailyVaultOps   int `yaml:"daily_vault_ops"`
	FullBonusQuorum int `yaml:"full_bonus_quorum"`
}

// Bridge tunes the host websocket connection.
type Bridge struct {
	CommandsPerSecond float64 `yaml:"commands_per_second"`
	CommandBurst      int     `yaml:"command_burst"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		Costs: Costs{
			ClanCreation:   64,
			Invitation:     16,
			Join:           16,
			Enemy:          32,
			Ally:           32,
			Neutral:        32,
			WarDeclaration: 48,
		},
		Bonuses: Bonuses{
			ProximitySpeed:  0.10,
			ProximityDamage: 0.10,
			EnemyDamage:     0.10,
			ProximityRadius: 20,
		},
		Power: Power{NetheriteWeight: 5, KillWeight: 1, DeathWeight: 1},
		Timers: Timers{
			InvitationMinutes:      5,
			AllianceRequestMinutes: 5,
			ConsumptionHours:       24,
			ProximitySeconds:       2,
			DecayCheckMinutes:      60,
			CleanupMinutes:         5,
			WarDurationHours:       24,
			ConfirmSeconds:         30,
			AttributionSeconds:     10,
			BoardRefreshSeconds:    60,
			PersistDebounceMs:      200,
			PersistMaxWaitMs:       2000,
			ShutdownGraceSeconds:   5,
		},
		War: War{Enabled: true, WinnerNetherite: 1, WinnerGold: 32, BuffDurationHours: 2},
		Limits: Limits{
			MaxClanSize:     4,
			MaxVaultSize:    10,
			LowVaultWarning: 3,
			DailyVaultOps:   3,
			FullBonusQuorum: 4,
		},
		Bridge: Bridge{CommandsPerSecond: 5, CommandBurst: 10},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	costs := map[string]int{
		"clan_creation":   t.Costs.ClanCreation,
		"invitation":      t.Costs.Invitation,
		"join":            t.Costs.Join,
		"enemy":           t.Costs.Enemy,
		"ally":            t.Costs.Ally,
		"neutral":         t.Costs.Neutral,
		"war_declaration": t.Costs.WarDeclaration,
	}
	for name, v := range costs {
		if v < 0 {
			return fmt.Errorf("costs.%s must be >= 0", name)
		}
	}
	if t.Bonuses.ProximityRadius <= 0 {
		return fmt.Errorf("bonuses.proximity_radius must be > 0")
	}
	if t.Bonuses.ProximitySpeed < 0 || t.Bonuses.ProximityDamage < 0 || t.Bonuses.EnemyDamage < 0 {
		return fmt.Errorf("bonuses must be >= 0")
	}
	if t.Limits.MaxClanSize < 1 {
		return fmt.Errorf("limits.max_clan_size must be >= 1")
	}
	if t.Limits.MaxVaultSize < 1 {
		return fmt.Errorf("limits.max_vault_size must be >= 1")
	}
	if t.Limits.DailyVaultOps < 1 {
		return fmt.Errorf("limits.daily_vault_ops must be >= 1")
	}
	if t.Limits.FullBonusQuorum < 2 {
		return fmt.Errorf("limits.full_bonus_quorum must be >= 2")
	}
	timers := map[string]int{
		"invitation_minutes":       t.Timers.InvitationMinutes,
		"alliance_request_minutes": t.Timers.AllianceRequestMinutes,
		"consumption_hours":        t.Timers.ConsumptionHours,
		"proximity_seconds":        t.Timers.ProximitySeconds,
		"decay_check_minutes":      t.Timers.DecayCheckMinutes,
		"cleanup_minutes":          t.Timers.CleanupMinutes,
		"confirm_seconds":          t.Timers.ConfirmSeconds,
		"attribution_seconds":      t.Timers.AttributionSeconds,
	}
	for name, v := range timers {
		if v <= 0 {
			return fmt.Errorf("timers.%s must be > 0", name)
		}
	}
	if t.Timers.WarDurationHours < 0 {
		return fmt.Errorf("timers.war_duration_hours must be >= 0")
	}
	if t.Bridge.CommandsPerSecond <= 0 || t.Bridge.CommandBurst < 1 {
		return fmt.Errorf("bridge rate limit must be positive")
	}
	return nil
}

// Engine converts the tuning into the clan engine's configuration.
func (t Tuning) Engine() engine.Config {
	return engine.Config{
		Costs: engine.Costs{
			Create:  t.Costs.ClanCreation,
			Invite:  t.Costs.Invitation,
			Join:    t.Costs.Join,
			Enemy:   t.Costs.Enemy,
			Ally:    t.Costs.Ally,
			Neutral: t.Costs.Neutral,
			War:     t.Costs.WarDeclaration,
		},
		MaxClanSize:     t.Limits.MaxClanSize,
		MaxVault:        t.Limits.MaxVaultSize,
		LowVaultWarning: t.Limits.LowVaultWarning,
		DailyVaultOps:   t.Limits.DailyVaultOps,
		FullBonusQuorum: t.Limits.FullBonusQuorum,

		ProximityRadius:      t.Bonuses.ProximityRadius,
		ProximitySpeedBonus:  t.Bonuses.ProximitySpeed,
		ProximityDamageBonus: t.Bonuses.ProximityDamage,
		EnemyDamageBonus:     t.Bonuses.EnemyDamage,

		Weights: model.PowerWeights{
			Vault: t.Power.NetheriteWeight,
			Kill:  t.Power.KillWeight,
			Death: t.Power.DeathWeight,
		},

		InvitationTTL:       time.Duration(t.Timers.InvitationMinutes) * time.Minute,
		AllianceRequestTTL:  time.Duration(t.Timers.AllianceRequestMinutes) * time.Minute,
		ConfirmTTL:          time.Duration(t.Timers.ConfirmSeconds) * time.Second,
		AttributionWindow:   time.Duration(t.Timers.AttributionSeconds) * time.Second,
		ConsumptionInterval: time.Duration(t.Timers.ConsumptionHours) * time.Hour,
		WarDuration:         time.Duration(t.Timers.WarDurationHours) * time.Hour,
		WarBuffDuration:     time.Duration(t.War.BuffDurationHours) * time.Hour,

		WarRewardNetherite: t.War.WinnerNetherite,
		WarRewardGold:      t.War.WinnerGold,
		WarsEnabled:        t.War.Enabled,
	}
}

func (t Tuning) ProximityEvery() time.Duration {
	return time.Duration(t.Timers.ProximitySeconds) * time.Second
}

func (t Tuning) DecayEvery() time.Duration {
	return time.Duration(t.Timers.DecayCheckMinutes) * time.Minute
}

func (t Tuning) CleanupEvery() time.Duration {
	return time.Duration(t.Timers.CleanupMinutes) * time.Minute
}

func (t Tuning) BoardEvery() time.Duration {
	if t.Timers.BoardRefreshSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(t.Timers.BoardRefreshSeconds) * time.Second
}

func (t Tuning) PersistDebounce() time.Duration {
	if t.Timers.PersistDebounceMs <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(t.Timers.PersistDebounceMs) * time.Millisecond
}

func (t Tuning) PersistMaxWait() time.Duration {
	if t.Timers.PersistMaxWaitMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(t.Timers.PersistMaxWaitMs) * time.Millisecond
}

func (t Tuning) ShutdownGrace() time.Duration {
	if t.Timers.ShutdownGraceSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(t.Timers.ShutdownGraceSeconds) * time.Second
}
