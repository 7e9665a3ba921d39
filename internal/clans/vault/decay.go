package vault

import (
	"time"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"
)

type DecayKind int

const (
	DecayConsumed DecayKind = iota + 1
	DecayGrace
	DecayDisbanded
)

// DecayEvent is one clan's outcome of a decay pass. Clan is a snapshot.
type DecayEvent struct {
	Kind      DecayKind
	Clan      *model.Clan
	Remaining int
	Low       bool
	HoursLeft int
}

// GraceEnd is when a clan with an empty vault is dissolved.
func (e *Engine) GraceEnd(c *model.Clan) time.Time {
	return c.LastResourceConsumption.Add(2 * e.config().ConsumptionInterval)
}

// GraceHoursLeft is the whole hours until GraceEnd, never negative.
func (e *Engine) GraceHoursLeft(c *model.Clan, now time.Time) int {
	d := e.GraceEnd(c).Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Hour)
}

// Decay runs one pass over every clan whose consumption interval has elapsed:
// consume a unit, or with an empty vault report the grace window or disband
// once it has passed.
func (e *Engine) Decay() []DecayEvent {
	now := e.now()
	var out []DecayEvent
	for _, key := range e.reg.Keys() {
		var ev *DecayEvent
		_ = e.reg.Update(key, func(c *model.Clan) error {
			if now.Sub(c.LastResourceConsumption) < e.config().ConsumptionInterval {
				return nil
			}
			if c.Vault > 0 {
				c.Vault--
				c.LastResourceConsumption = now
				ev = &DecayEvent{Kind: DecayConsumed, Clan: c.Clone(), Remaining: c.Vault, Low: c.Vault <= e.config().LowWarning}
				return nil
			}
			if now.Before(e.GraceEnd(c)) {
				ev = &DecayEvent{Kind: DecayGrace, Clan: c.Clone(), HoursLeft: e.GraceHoursLeft(c, now)}
				return nil
			}
			ev = &DecayEvent{Kind: DecayDisbanded, Clan: c.Clone()}
			return nil
		})
		if ev == nil {
			continue
		}
		if ev.Kind == DecayDisbanded {
			_, ok := e.reg.DisbandIf(key, func(c *model.Clan) bool {
				return c.Vault == 0 && !now.Before(e.GraceEnd(c))
			})
			if !ok {
				continue
			}
		}
		out = append(out, *ev)
	}
	return out
}
