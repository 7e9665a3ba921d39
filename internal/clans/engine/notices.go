package engine

import (
	"github.com/google/uuid"
)

func (e *Engine) flag(ids []uuid.UUID) {
	e.noticeMu.Lock()
	for _, id := range ids {
		e.notices[id] = struct{}{}
	}
	e.noticeMu.Unlock()
}

func (e *Engine) Flagged(id uuid.UUID) bool {
	e.noticeMu.Lock()
	defer e.noticeMu.Unlock()
	_, ok := e.notices[id]
	return ok
}

// FlaggedPlayers returns every player with a pending notice.
func (e *Engine) FlaggedPlayers() []uuid.UUID {
	e.noticeMu.Lock()
	defer e.noticeMu.Unlock()
	out := make([]uuid.UUID, 0, len(e.notices))
	for id := range e.notices {
		out = append(out, id)
	}
	return out
}

// RestoreFlags replaces the pending notice set, used when loading state.
func (e *Engine) RestoreFlags(ids []uuid.UUID) {
	e.noticeMu.Lock()
	e.notices = make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		e.notices[id] = struct{}{}
	}
	e.noticeMu.Unlock()
}

// deliverNotices tells a flagged player what happened to their clan while
// they were away. The flag stays while the clan is still in its grace
// window so the warning repeats on every login.
func (e *Engine) deliverNotices(id uuid.UUID) {
	if !e.Flagged(id) {
		return
	}
	c, ok := e.reg.ClanOf(id)
	switch {
	case !ok:
		e.tell(id, "vault.disbanded_notice", nil)
	case c.Vault <= 0:
		if h := e.vault.GraceHoursLeft(c, e.now()); h > 0 {
			e.tell(id, "vault.grace_warning", map[string]any{"clan": c.DisplayName, "hours_left": h})
			return
		}
	}
	e.noticeMu.Lock()
	delete(e.notices, id)
	e.noticeMu.Unlock()
	e.changed()
}
