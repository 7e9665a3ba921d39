package diplomacy

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/names"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/registry"
)

// Payer collects diplomacy fees.
type Payer interface {
	Charge(player uuid.UUID, amount int) error
	Refund(player uuid.UUID, amount int)
}

type Config struct {
	EnemyCost   int
	AllyCost    int
	NeutralCost int
	RequestTTL  time.Duration
}

type request struct{ from, to string }

type Engine struct {
	reg *registry.Registry
	pay Payer
	cfg atomic.Pointer[Config]
	now func() time.Time

	// Guarded by mu; always taken after the clan locks of the pair.
	mu       sync.Mutex
	requests map[request]time.Time
}

func New(reg *registry.Registry, pay Payer, cfg Config, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	e := &Engine{reg: reg, pay: pay, now: now, requests: map[request]time.Time{}}
	e.SetConfig(cfg)
	return e
}

// SetConfig replaces fees and the request TTL. Pending requests keep their
// original expiry.
func (e *Engine) SetConfig(cfg Config) {
	if cfg.RequestTTL <= 0 {
		cfg.RequestTTL = 5 * time.Minute
	}
	e.cfg.Store(&cfg)
}

func (e *Engine) config() Config { return *e.cfg.Load() }

func (e *Engine) Relation(a, b string) model.Relation {
	rel := model.RelationNeutral
	e.reg.View(names.Key(a), func(c *model.Clan) { rel = c.RelationTo(names.Key(b)) })
	return rel
}

func validate(a, b *model.Clan, want model.Relation) error {
	if a.RelationTo(b.Key) == want {
		if want == model.RelationNeutral && !a.Neutrals.Has(b.Key) {
			// Implicit neutral may still be made explicit.
			return nil
		}
		switch want {
		case model.RelationAlly:
			return failure.Newf(failure.AlreadyRelated, "already allied with %s", b.DisplayName)
		case model.RelationEnemy:
			return failure.Newf(failure.AlreadyRelated, "already enemies with %s", b.DisplayName)
		default:
			return failure.Newf(failure.AlreadyRelated, "already neutral with %s", b.DisplayName)
		}
	}
	if want != model.RelationEnemy && a.AtWar && a.WarTarget == b.Key {
		return failure.Newf(failure.AlreadyAtWar, "at war with %s", b.DisplayName)
	}
	return nil
}

// transition checks, charges, then applies fn to both clans in one locked step.
func (e *Engine) transition(payer uuid.UUID, from, to string, cost int, want model.Relation, fn func(a, b *model.Clan) error) error {
	from, to = names.Key(from), names.Key(to)
	if err := e.reg.UpdatePair(from, to, func(a, b *model.Clan) error { return validate(a, b, want) }); err != nil {
		return err
	}
	if err := e.pay.Charge(payer, cost); err != nil {
		return err
	}
	err := e.reg.UpdatePair(from, to, func(a, b *model.Clan) error {
		if err := validate(a, b, want); err != nil {
			return err
		}
		return fn(a, b)
	})
	if err != nil {
		e.pay.Refund(payer, cost)
	}
	return err
}

// DeclareEnemy makes both clans enemies, replacing any prior relation.
func (e *Engine) DeclareEnemy(payer uuid.UUID, from, to string) error {
	err := e.transition(payer, from, to, e.config().EnemyCost, model.RelationEnemy, func(a, b *model.Clan) error {
		a.SetRelation(b.Key, model.RelationEnemy)
		b.SetRelation(a.Key, model.RelationEnemy)
		e.dropPairLocked(a.Key, b.Key)
		return nil
	})
	return err
}

func (e *Engine) SetNeutral(payer uuid.UUID, from, to string) error {
	return e.transition(payer, from, to, e.config().NeutralCost, model.RelationNeutral, func(a, b *model.Clan) error {
		a.SetRelation(b.Key, model.RelationNeutral)
		b.SetRelation(a.Key, model.RelationNeutral)
		e.dropPairLocked(a.Key, b.Key)
		return nil
	})
}

// RequestAlliance registers a pending request from -> to, or, when the
// reverse request is live, consumes both and allies the clans. It reports
// whether the alliance was formed.
func (e *Engine) RequestAlliance(payer uuid.UUID, from, to string) (bool, error) {
	accepted := false
	err := e.transition(payer, from, to, e.config().AllyCost, model.RelationAlly, func(a, b *model.Clan) error {
		now := e.now()
		e.mu.Lock()
		defer e.mu.Unlock()
		rev := request{from: b.Key, to: a.Key}
		if exp, ok := e.requests[rev]; ok && now.Before(exp) {
			delete(e.requests, rev)
			delete(e.requests, request{from: a.Key, to: b.Key})
			a.SetRelation(b.Key, model.RelationAlly)
			b.SetRelation(a.Key, model.RelationAlly)
			accepted = true
			return nil
		}
		delete(e.requests, rev)
		e.requests[request{from: a.Key, to: b.Key}] = now.Add(e.config().RequestTTL)
		return nil
	})
	return accepted, err
}

// Pending reports whether a live request from -> to exists, purging it if expired.
func (e *Engine) Pending(from, to string) bool {
	k := request{from: names.Key(from), to: names.Key(to)}
	e.mu.Lock()
	defer e.mu.Unlock()
	exp, ok := e.requests[k]
	if !ok {
		return false
	}
	if !e.now().Before(exp) {
		delete(e.requests, k)
		return false
	}
	return true
}

func (e *Engine) dropPairLocked(a, b string) {
	e.mu.Lock()
	delete(e.requests, request{from: a, to: b})
	delete(e.requests, request{from: b, to: a})
	e.mu.Unlock()
}

// DropClan forgets every request involving key.
func (e *Engine) DropClan(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for r := range e.requests {
		if r.from == key || r.to == key {
			delete(e.requests, r)
		}
	}
}

// SweepExpired reclaims expired requests. Correctness never depends on it.
func (e *Engine) SweepExpired() int {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for r, exp := range e.requests {
		if !now.Before(exp) {
			delete(e.requests, r)
			n++
		}
	}
	return n
}
