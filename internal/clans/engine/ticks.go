package engine

import (
	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/vault"
)

func (e *Engine) TickProximity() {
	e.prox.Tick()
}

// TickDecay runs one vault decay pass and notifies the affected clans.
func (e *Engine) TickDecay() []vault.DecayEvent {
	events := e.vault.Decay()
	for _, ev := range events {
		c := ev.Clan
		switch ev.Kind {
		case vault.DecayConsumed:
			if ev.Low {
				e.broadcast(c, uuid.Nil, "vault.low", map[string]any{"remaining": ev.Remaining})
			}
			e.record(AuditEntry{Actor: actorSystem, Action: "VAULT_CONSUME", Clan: c.Key, Detail: map[string]any{"remaining": ev.Remaining}})
		case vault.DecayGrace:
			e.broadcast(c, uuid.Nil, "vault.grace_warning", map[string]any{"clan": c.DisplayName, "hours_left": ev.HoursLeft})
			e.flag(c.Members.Sorted())
		case vault.DecayDisbanded:
			e.flag(c.Members.Sorted())
			e.logger.Printf("vault: disbanded %s after grace period", c.DisplayName)
			e.disbanded(c, actorSystem, "vault")
		}
	}
	if len(events) > 0 {
		e.changed()
	}
	return events
}

// Sweep reclaims expired invitations, alliance requests, confirmation
// tokens and attribution entries. Correctness never depends on it.
func (e *Engine) Sweep() int {
	now := e.now()
	n := e.invites.Sweep(now)
	n += e.diplo.SweepExpired()
	n += e.tokens.Sweep(now)
	n += e.hits.Sweep(now)
	return n
}

// ExpireWars closes wars that ran past their maximum duration.
func (e *Engine) ExpireWars() int {
	ended := e.wars.ExpireWars()
	for _, x := range ended {
		e.broadcastKey(x.A, "war.expired", map[string]any{"clan": x.B})
		e.broadcastKey(x.B, "war.expired", map[string]any{"clan": x.A})
		e.record(AuditEntry{Actor: actorSystem, Action: "WAR_EXPIRED", Clan: x.A, Target: x.B})
	}
	if len(ended) > 0 {
		e.changed()
	}
	return len(ended)
}

// Shutdown strips every proximity buff so none outlive the engine.
func (e *Engine) Shutdown() {
	e.prox.Reset()
}
