package engine

import (
	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/combat"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/host"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/war"
)

// OnAttack decides how the host should treat a player-on-player hit and
// remembers the attacker for kill attribution when the hit lands.
func (e *Engine) OnAttack(attacker, victim uuid.UUID) combat.Decision {
	ac, _ := e.reg.ClanOf(attacker)
	vc, _ := e.reg.ClanOf(victim)
	d := combat.Adjust(ac, vc, e.prox.Nearby(attacker), combat.Bonuses{
		PerNearby: e.Config().ProximityDamageBonus,
		Enemy:     e.Config().EnemyDamageBonus,
	})
	if d.Blocked {
		e.host.Send(attacker, host.Message{Key: "combat.blocked", Args: map[string]any{"reason": string(d.Reason)}, ActionBar: true})
		return d
	}
	e.hits.RecordHit(victim, attacker, e.now())
	return d
}

// OnDeath attributes a player death and updates kill statistics and war
// progress. A recent hit recorded by OnAttack wins over lastAttacker, which
// is the host's own killing-blow attribution and may be uuid.Nil.
func (e *Engine) OnDeath(victim, lastAttacker uuid.UUID) *war.Victory {
	killer, ok := e.hits.Consume(victim, e.now())
	if !ok {
		if lastAttacker == uuid.Nil || lastAttacker == victim {
			return nil
		}
		killer = lastAttacker
	}
	kc, _ := e.reg.KeyOf(killer)
	vc, _ := e.reg.KeyOf(victim)
	if kc == "" && vc == "" {
		return nil
	}
	v := e.wars.RecordKill(kc, killer, vc, victim)
	e.changed()
	if v == nil {
		return nil
	}
	e.broadcast(v.Winner, uuid.Nil, "war.won", map[string]any{
		"clan":      v.Loser.DisplayName,
		"netherite": e.Config().WarRewardNetherite,
		"gold":      e.Config().WarRewardGold,
	})
	e.broadcast(v.Loser, uuid.Nil, "war.lost", map[string]any{"clan": v.Winner.DisplayName})
	e.record(AuditEntry{
		Actor:  killer.String(),
		Action: "WAR_VICTORY",
		Clan:   v.Winner.Key,
		Target: v.Loser.Key,
		Detail: map[string]any{"last_victim": victim.String()},
	})
	e.logger.Printf("war: %s defeated %s", v.Winner.DisplayName, v.Loser.DisplayName)
	return v
}

// OnJoin records a player session and delivers deferred notices.
func (e *Engine) OnJoin(p host.Player) {
	e.presence.Join(p.ID, e.now())
	if p.Name != "" {
		e.reg.SetMemberName(p.ID, p.Name)
	}
	e.deliverNotices(p.ID)
}

func (e *Engine) OnDisconnect(id uuid.UUID) {
	e.presence.Leave(id, e.now())
	e.prox.Forget(id)
	e.hits.Forget(id)
	e.tokens.Cancel(id)
}
