package vault

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/host"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/registry"
)

type Config struct {
	MaxSize             int
	ConsumptionInterval time.Duration
	// LowWarning is the level at or below which a consumption warns the clan.
	LowWarning int
}

type Engine struct {
	reg *registry.Registry
	inv host.Inventory
	lim *Limiter
	cfg atomic.Pointer[Config]
	now func() time.Time
}

func New(reg *registry.Registry, inv host.Inventory, lim *Limiter, cfg Config, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	e := &Engine{reg: reg, inv: inv, lim: lim, now: now}
	e.SetConfig(cfg)
	return e
}

func (e *Engine) SetConfig(cfg Config) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10
	}
	if cfg.ConsumptionInterval <= 0 {
		cfg.ConsumptionInterval = 24 * time.Hour
	}
	e.cfg.Store(&cfg)
}

func (e *Engine) config() Config { return *e.cfg.Load() }

func (e *Engine) Limiter() *Limiter { return e.lim }

// Receipt reports a successful vault operation.
type Receipt struct {
	Vault     int
	Remaining int
}

// Deposit moves amount units from actor's inventory into the clan vault.
func (e *Engine) Deposit(clanKey string, actor uuid.UUID, amount int) (Receipt, error) {
	var rc Receipt
	if amount <= 0 {
		return rc, failure.New(failure.BadAmount, "amount must be positive")
	}
	err := e.reg.Update(clanKey, func(c *model.Clan) error {
		if !c.RoleOf(actor).CanDeposit() {
			return failure.New(failure.Role, "only the king or advisors may deposit")
		}
		if c.Vault+amount > e.config().MaxSize {
			return failure.Newf(failure.VaultCap, "vault can hold %d more", e.config().MaxSize-c.Vault)
		}
		if !e.lim.Allow(actor, OpDeposit) {
			return failure.Newf(failure.DailyLimit, "daily deposit limit of %d reached", e.lim.Max())
		}
		if !e.inv.Take(actor, host.Netherite, amount) {
			return failure.Newf(failure.InsufficientFunds, "you do not hold %d %s", amount, host.Netherite)
		}
		c.Vault += amount
		e.lim.Record(actor, OpDeposit)
		rc.Vault = c.Vault
		return nil
	})
	if err == nil {
		rc.Remaining = e.lim.Remaining(actor, OpDeposit)
	}
	return rc, err
}

// Withdraw moves amount units from the clan vault to actor.
func (e *Engine) Withdraw(clanKey string, actor uuid.UUID, amount int) (Receipt, error) {
	var rc Receipt
	if amount <= 0 {
		return rc, failure.New(failure.BadAmount, "amount must be positive")
	}
	err := e.reg.Update(clanKey, func(c *model.Clan) error {
		if !c.RoleOf(actor).CanWithdraw() {
			return failure.New(failure.Role, "only the king may withdraw")
		}
		if c.Vault < amount {
			return failure.Newf(failure.InsufficientFunds, "vault holds only %d", c.Vault)
		}
		if !e.lim.Allow(actor, OpWithdraw) {
			return failure.Newf(failure.DailyLimit, "daily withdraw limit of %d reached", e.lim.Max())
		}
		c.Vault -= amount
		e.inv.Give(actor, host.Netherite, amount)
		e.lim.Record(actor, OpWithdraw)
		rc.Vault = c.Vault
		return nil
	})
	if err == nil {
		rc.Remaining = e.lim.Remaining(actor, OpWithdraw)
	}
	return rc, err
}
