package war

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/host"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/names"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/registry"
)

type Payer interface {
	Charge(player uuid.UUID, amount int) error
	Refund(player uuid.UUID, amount int)
}

// Rewarder delivers victory rewards.
type Rewarder interface {
	Give(id uuid.UUID, r host.Resource, n int)
	Apply(id uuid.UUID, e host.Effect)
}

type Config struct {
	DeclareCost     int
	RewardNetherite int
	RewardGold      int
	BuffDuration    time.Duration
	// MaxDuration ends unresolved wars; zero keeps them open indefinitely.
	MaxDuration time.Duration
}

// Victory is the outcome of a war decided by a kill. Winner and Loser are
// snapshots taken just before both clans were reset.
type Victory struct {
	Winner *model.Clan
	Loser  *model.Clan
}

// Expired is a war closed by MaxDuration without a victor.
type Expired struct {
	A, B string
}

type Engine struct {
	reg     *registry.Registry
	pay     Payer
	rewards Rewarder
	cfg     atomic.Pointer[Config]
	now     func() time.Time

	enabled atomic.Bool
}

func New(reg *registry.Registry, pay Payer, rewards Rewarder, cfg Config, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	e := &Engine{reg: reg, pay: pay, rewards: rewards, now: now}
	e.SetConfig(cfg)
	return e
}

func (e *Engine) SetConfig(cfg Config) { e.cfg.Store(&cfg) }

func (e *Engine) config() Config { return *e.cfg.Load() }

func (e *Engine) SetEnabled(on bool) { e.enabled.Store(on) }
func (e *Engine) Enabled() bool      { return e.enabled.Load() }

func canDeclare(a, b *model.Clan) error {
	if !a.Enemies.Has(b.Key) || !b.Enemies.Has(a.Key) {
		return failure.Newf(failure.NotEnemies, "%s must be an enemy first", b.DisplayName)
	}
	if a.AtWar {
		return failure.New(failure.AlreadyAtWar, "your clan is already at war")
	}
	if b.AtWar {
		return failure.Newf(failure.AlreadyAtWar, "%s is already at war", b.DisplayName)
	}
	return nil
}

// DeclareWar moves both enemy clans into war with each other.
func (e *Engine) DeclareWar(payer uuid.UUID, from, to string) error {
	if !e.Enabled() {
		return failure.New(failure.WarsDisabled, "wars are disabled")
	}
	from, to = names.Key(from), names.Key(to)
	if err := e.reg.UpdatePair(from, to, canDeclare); err != nil {
		return err
	}
	if err := e.pay.Charge(payer, e.config().DeclareCost); err != nil {
		return err
	}
	err := e.reg.UpdatePair(from, to, func(a, b *model.Clan) error {
		if err := canDeclare(a, b); err != nil {
			return err
		}
		now := e.now()
		a.StartWar(b.Key, now)
		b.StartWar(a.Key, now)
		return nil
	})
	if err != nil {
		e.pay.Refund(payer, e.config().DeclareCost)
	}
	return err
}

// RecordKill updates kill/death counters and war coverage. Either clan key
// may be empty for clanless players. The returned Victory is non-nil for
// exactly one kill per war; its rewards have already been delivered.
func (e *Engine) RecordKill(killerClan string, killer uuid.UUID, victimClan string, victim uuid.UUID) *Victory {
	switch {
	case killerClan == "" && victimClan == "":
		return nil
	case killerClan == "":
		_ = e.reg.Update(victimClan, func(c *model.Clan) error { c.Deaths++; return nil })
		return nil
	case victimClan == "":
		_ = e.reg.Update(killerClan, func(c *model.Clan) error { c.Kills++; return nil })
		return nil
	case killerClan == victimClan:
		_ = e.reg.Update(killerClan, func(c *model.Clan) error { c.Kills++; c.Deaths++; return nil })
		return nil
	}

	var v *Victory
	_ = e.reg.UpdatePair(killerClan, victimClan, func(k, d *model.Clan) error {
		k.Kills++
		d.Deaths++
		if !k.AtWar || k.WarTarget != d.Key {
			return nil
		}
		k.RecordWarKill(killer, victim)
		if d.AtWar && d.WarTarget == k.Key && k.WarKillsCover(d.Members) {
			v = &Victory{Winner: k.Clone(), Loser: d.Clone()}
			k.ResetWar()
			d.ResetWar()
		}
		return nil
	})
	if v != nil {
		e.reward(v.Winner)
	}
	return v
}

func (e *Engine) reward(w *model.Clan) {
	if e.rewards == nil {
		return
	}
	for id := range w.Members {
		n := e.config().RewardNetherite
		if id == w.King {
			n++
		}
		if n > 0 {
			e.rewards.Give(id, host.Netherite, n)
		}
		if e.config().RewardGold > 0 {
			e.rewards.Give(id, host.Gold, e.config().RewardGold)
		}
		if e.config().BuffDuration > 0 {
			e.rewards.Apply(id, host.Effect{Kind: host.Speed, Level: 1, Duration: e.config().BuffDuration})
			e.rewards.Apply(id, host.Effect{Kind: host.Strength, Level: 1, Duration: e.config().BuffDuration})
		}
	}
}

// ExpireWars ends every war that has run longer than MaxDuration.
func (e *Engine) ExpireWars() []Expired {
	if e.config().MaxDuration <= 0 {
		return nil
	}
	now := e.now()
	var out []Expired
	for _, c := range e.reg.All() {
		if !c.AtWar || c.Key > c.WarTarget {
			continue
		}
		if now.Sub(c.WarStartedAt) < e.config().MaxDuration {
			continue
		}
		ended := false
		_ = e.reg.UpdatePair(c.Key, c.WarTarget, func(a, b *model.Clan) error {
			if a.AtWar && a.WarTarget == b.Key && now.Sub(a.WarStartedAt) >= e.config().MaxDuration {
				a.ResetWar()
				if b.WarTarget == a.Key {
					b.ResetWar()
				}
				ended = true
			}
			return nil
		})
		if ended {
			out = append(out, Expired{A: c.Key, B: c.WarTarget})
		}
	}
	return out
}
