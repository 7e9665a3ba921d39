package engine

import (
	"strings"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/names"
)

func (e *Engine) Create(actor uuid.UUID, name string) (Result, error) {
	if err := names.Validate(name); err != nil {
		return Result{}, err
	}
	if _, in := e.reg.KeyOf(actor); in {
		return Result{}, failure.New(failure.AlreadyInClan, "you are already in a clan")
	}
	if _, taken := e.reg.Get(name); taken {
		return Result{}, failure.Newf(failure.NameTaken, "a clan named %s already exists", name)
	}
	cost := e.Config().Costs.Create
	if err := e.gold.Charge(actor, cost); err != nil {
		return Result{}, err
	}
	c, err := e.reg.Create(name, actor, e.nameOf(actor))
	if err != nil {
		e.gold.Refund(actor, cost)
		return Result{}, err
	}
	e.record(AuditEntry{Actor: actor.String(), Action: "CREATE", Clan: c.Key})
	e.changed()
	return Result{Key: "clan.created", Args: map[string]any{"clan": c.DisplayName, "cost": cost}}, nil
}

func (e *Engine) Invite(actor uuid.UUID, playerName string) (Result, error) {
	c, err := e.actorClan(actor)
	if err != nil {
		return Result{}, err
	}
	if !c.RoleOf(actor).CanInvite() {
		return Result{}, failure.New(failure.Role, "only the king or advisors can invite")
	}
	target, ok := e.host.ByName(playerName)
	if !ok {
		return Result{}, failure.Newf(failure.PlayerOffline, "%s is not online", playerName)
	}
	if target.ID == actor {
		return Result{}, failure.New(failure.InvalidTarget, "you cannot invite yourself")
	}
	if _, in := e.reg.KeyOf(target.ID); in {
		return Result{}, failure.Newf(failure.AlreadyInClan, "%s is already in a clan", target.Name)
	}
	if len(c.Members) >= e.reg.MaxClanSize() {
		return Result{}, failure.Newf(failure.ClanFull, "clan is full (%d members)", e.reg.MaxClanSize())
	}
	cost := e.Config().Costs.Invite
	if err := e.gold.Charge(actor, cost); err != nil {
		return Result{}, err
	}
	inv := e.invites.Put(c.Key, target.ID, actor, e.now())
	e.tell(target.ID, "clan.invite_received", map[string]any{
		"clan":       c.DisplayName,
		"inviter":    e.nameOf(actor),
		"expires_in": int(inv.Expires.Sub(e.now()).Seconds()),
	})
	e.record(AuditEntry{Actor: actor.String(), Action: "INVITE", Clan: c.Key, Target: target.ID.String()})
	return Result{Key: "clan.invite_sent", Args: map[string]any{"player": target.Name, "cost": cost}}, nil
}

func (e *Engine) Join(actor uuid.UUID, clanName string) (Result, error) {
	key := names.Key(clanName)
	if _, in := e.reg.KeyOf(actor); in {
		return Result{}, failure.New(failure.AlreadyInClan, "you are already in a clan")
	}
	inv, ok := e.invites.Get(actor, e.now())
	if !ok || inv.Clan != key {
		return Result{}, failure.Newf(failure.NoInvitation, "no pending invitation from %s", clanName)
	}
	cost := e.Config().Costs.Join
	if err := e.gold.Charge(actor, cost); err != nil {
		return Result{}, err
	}
	c, err := e.reg.Join(actor, e.nameOf(actor), key)
	if err != nil {
		e.gold.Refund(actor, cost)
		return Result{}, err
	}
	e.invites.Consume(actor, key, e.now())
	e.broadcast(c, actor, "clan.member_joined", map[string]any{"player": e.nameOf(actor)})
	e.record(AuditEntry{Actor: actor.String(), Action: "JOIN", Clan: c.Key})
	e.changed()
	return Result{Key: "clan.joined", Args: map[string]any{"clan": c.DisplayName, "cost": cost}}, nil
}

func (e *Engine) Leave(actor uuid.UUID) (Result, error) {
	c, err := e.reg.Leave(actor)
	if err != nil {
		return Result{}, err
	}
	e.departed(actor)
	e.broadcast(c, actor, "clan.member_left", map[string]any{"player": e.nameOf(actor)})
	e.record(AuditEntry{Actor: actor.String(), Action: "LEAVE", Clan: c.Key})
	e.changed()
	return Result{Key: "clan.left", Args: map[string]any{"clan": c.DisplayName}}, nil
}

func (e *Engine) Kick(actor uuid.UUID, playerName string) (Result, error) {
	c, err := e.actorClan(actor)
	if err != nil {
		return Result{}, err
	}
	target, err := e.resolveMember(c, playerName)
	if err != nil {
		return Result{}, err
	}
	if target == actor {
		return Result{}, failure.New(failure.InvalidTarget, "use leave to quit your clan")
	}
	if !c.RoleOf(actor).CanKick(c.RoleOf(target)) {
		return Result{}, failure.Newf(failure.Role, "you cannot kick %s", playerName)
	}
	name := c.NameOf(target)
	rm, err := e.reg.RemoveMember(target)
	if err != nil {
		return Result{}, err
	}
	e.departed(target)
	e.tell(target, "clan.kicked", map[string]any{"clan": c.DisplayName})
	e.broadcast(rm.Clan, uuid.Nil, "clan.member_kicked", map[string]any{"player": name})
	e.record(AuditEntry{Actor: actor.String(), Action: "KICK", Clan: c.Key, Target: target.String()})
	e.changed()
	return Result{Key: "clan.kick_done", Args: map[string]any{"player": name}}, nil
}

func (e *Engine) Promote(actor uuid.UUID, playerName string) (Result, error) {
	return e.rank(actor, playerName, "PROMOTE", func(key string, id uuid.UUID) (*model.Clan, error) {
		return e.reg.Promote(key, id)
	}, "clan.promoted")
}

func (e *Engine) Demote(actor uuid.UUID, playerName string) (Result, error) {
	return e.rank(actor, playerName, "DEMOTE", func(key string, id uuid.UUID) (*model.Clan, error) {
		return e.reg.Demote(key, id)
	}, "clan.demoted")
}

func (e *Engine) Transfer(actor uuid.UUID, playerName string) (Result, error) {
	return e.rank(actor, playerName, "TRANSFER", func(key string, id uuid.UUID) (*model.Clan, error) {
		return e.reg.TransferKing(key, id)
	}, "clan.new_king")
}

func (e *Engine) rank(actor uuid.UUID, playerName, action string, fn func(key string, id uuid.UUID) (*model.Clan, error), msgKey string) (Result, error) {
	c, err := e.requireKing(actor)
	if err != nil {
		return Result{}, err
	}
	target, err := e.resolveMember(c, playerName)
	if err != nil {
		return Result{}, err
	}
	updated, err := fn(c.Key, target)
	if err != nil {
		return Result{}, err
	}
	args := map[string]any{"player": updated.NameOf(target)}
	e.broadcast(updated, uuid.Nil, msgKey, args)
	e.record(AuditEntry{Actor: actor.String(), Action: action, Clan: c.Key, Target: target.String()})
	e.changed()
	return Result{Key: msgKey, Args: args}, nil
}

// Disband needs to be issued twice within the confirmation window.
func (e *Engine) Disband(actor uuid.UUID) (Result, error) {
	c, err := e.requireKing(actor)
	if err != nil {
		return Result{}, err
	}
	if !e.tokens.Confirm(actor, "disband", e.now()) {
		return Result{}, failure.Newf(failure.NeedsConfirm, "repeat within %d seconds to disband %s", int(e.tokens.TTL().Seconds()), c.DisplayName)
	}
	gone, err := e.reg.Disband(c.Key)
	if err != nil {
		return Result{}, err
	}
	e.disbanded(gone, actor.String(), "king")
	return Result{Key: "clan.disband_done", Args: map[string]any{"clan": gone.DisplayName}}, nil
}

func (e *Engine) diplomacyTarget(actor uuid.UUID, clanName string) (*model.Clan, *model.Clan, error) {
	c, err := e.requireKing(actor)
	if err != nil {
		return nil, nil, err
	}
	other, ok := e.reg.Get(clanName)
	if !ok {
		return nil, nil, failure.Newf(failure.ClanNotFound, "clan %s not found", clanName)
	}
	if other.Key == c.Key {
		return nil, nil, failure.New(failure.InvalidTarget, "that is your own clan")
	}
	return c, other, nil
}

// Ally sends an alliance request, or accepts the target's pending one.
func (e *Engine) Ally(actor uuid.UUID, clanName string) (Result, error) {
	c, other, err := e.diplomacyTarget(actor, clanName)
	if err != nil {
		return Result{}, err
	}
	formed, err := e.diplo.RequestAlliance(actor, c.Key, other.Key)
	if err != nil {
		return Result{}, err
	}
	if !formed {
		if _, ok := e.host.Online(other.King); ok {
			e.tell(other.King, "diplomacy.ally_requested", map[string]any{"clan": c.DisplayName})
		}
		e.record(AuditEntry{Actor: actor.String(), Action: "ALLY_REQUEST", Clan: c.Key, Target: other.Key})
		return Result{Key: "diplomacy.ally_request_sent", Args: map[string]any{"clan": other.DisplayName}}, nil
	}
	e.broadcast(c, uuid.Nil, "diplomacy.allied", map[string]any{"clan": other.DisplayName})
	e.broadcast(other, uuid.Nil, "diplomacy.allied", map[string]any{"clan": c.DisplayName})
	e.record(AuditEntry{Actor: actor.String(), Action: "ALLY", Clan: c.Key, Target: other.Key})
	e.changed()
	return Result{Key: "diplomacy.allied", Args: map[string]any{"clan": other.DisplayName}}, nil
}

func (e *Engine) Enemy(actor uuid.UUID, clanName string) (Result, error) {
	c, other, err := e.diplomacyTarget(actor, clanName)
	if err != nil {
		return Result{}, err
	}
	if err := e.diplo.DeclareEnemy(actor, c.Key, other.Key); err != nil {
		return Result{}, err
	}
	e.broadcast(other, uuid.Nil, "diplomacy.enemy_declared", map[string]any{"clan": c.DisplayName})
	e.record(AuditEntry{Actor: actor.String(), Action: "ENEMY", Clan: c.Key, Target: other.Key})
	e.changed()
	return Result{Key: "diplomacy.enemy_set", Args: map[string]any{"clan": other.DisplayName}}, nil
}

func (e *Engine) Neutral(actor uuid.UUID, clanName string) (Result, error) {
	c, other, err := e.diplomacyTarget(actor, clanName)
	if err != nil {
		return Result{}, err
	}
	if err := e.diplo.SetNeutral(actor, c.Key, other.Key); err != nil {
		return Result{}, err
	}
	e.broadcast(other, uuid.Nil, "diplomacy.neutral_declared", map[string]any{"clan": c.DisplayName})
	e.record(AuditEntry{Actor: actor.String(), Action: "NEUTRAL", Clan: c.Key, Target: other.Key})
	e.changed()
	return Result{Key: "diplomacy.neutral_set", Args: map[string]any{"clan": other.DisplayName}}, nil
}

func (e *Engine) War(actor uuid.UUID, clanName string) (Result, error) {
	c, other, err := e.diplomacyTarget(actor, clanName)
	if err != nil {
		return Result{}, err
	}
	if err := e.wars.DeclareWar(actor, c.Key, other.Key); err != nil {
		return Result{}, err
	}
	e.broadcast(c, uuid.Nil, "war.declared", map[string]any{"clan": other.DisplayName})
	e.broadcast(other, uuid.Nil, "war.declared", map[string]any{"clan": c.DisplayName})
	e.record(AuditEntry{Actor: actor.String(), Action: "WAR", Clan: c.Key, Target: other.Key})
	e.changed()
	return Result{Key: "war.declared", Args: map[string]any{"clan": other.DisplayName}}, nil
}

func (e *Engine) Deposit(actor uuid.UUID, amount int) (Result, error) {
	c, err := e.actorClan(actor)
	if err != nil {
		return Result{}, err
	}
	rc, err := e.vault.Deposit(c.Key, actor, amount)
	if err != nil {
		return Result{}, err
	}
	e.record(AuditEntry{Actor: actor.String(), Action: "DEPOSIT", Clan: c.Key, Detail: map[string]any{"amount": amount, "vault": rc.Vault}})
	e.changed()
	return Result{Key: "vault.deposited", Args: map[string]any{
		"amount":    amount,
		"vault":     rc.Vault,
		"max":       e.Config().MaxVault,
		"remaining": rc.Remaining,
	}}, nil
}

func (e *Engine) Withdraw(actor uuid.UUID, amount int) (Result, error) {
	c, err := e.actorClan(actor)
	if err != nil {
		return Result{}, err
	}
	rc, err := e.vault.Withdraw(c.Key, actor, amount)
	if err != nil {
		return Result{}, err
	}
	e.record(AuditEntry{Actor: actor.String(), Action: "WITHDRAW", Clan: c.Key, Detail: map[string]any{"amount": amount, "vault": rc.Vault}})
	e.changed()
	return Result{Key: "vault.withdrawn", Args: map[string]any{
		"amount":    amount,
		"vault":     rc.Vault,
		"max":       e.Config().MaxVault,
		"remaining": rc.Remaining,
	}}, nil
}

// Chat relays text to every online member of the sender's clan.
func (e *Engine) Chat(actor uuid.UUID, text string) (Result, error) {
	c, err := e.actorClan(actor)
	if err != nil {
		return Result{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, failure.New(failure.InvalidTarget, "empty message")
	}
	e.broadcast(c, uuid.Nil, "clan.chat", map[string]any{
		"clan":   c.DisplayName,
		"sender": e.nameOf(actor),
		"role":   c.RoleOf(actor).String(),
		"text":   text,
	})
	return Result{Key: "clan.chat_sent"}, nil
}

func (e *Engine) ToggleChat(actor uuid.UUID) (Result, error) {
	if _, err := e.actorClan(actor); err != nil {
		return Result{}, err
	}
	on := e.presence.ToggleClanChat(actor)
	return Result{Key: "clan.chat_mode", Args: map[string]any{"on": on}}, nil
}

// InfoFor describes clanName, or the actor's own clan when clanName is empty.
func (e *Engine) InfoFor(actor uuid.UUID, clanName string) (Result, error) {
	if clanName == "" {
		c, err := e.actorClan(actor)
		if err != nil {
			return Result{}, err
		}
		clanName = c.Key
	}
	s, err := e.Info(clanName)
	if err != nil {
		return Result{}, err
	}
	return Result{Key: "clan.info", Args: map[string]any{"clan": s}}, nil
}

// ListFor lists every clan by name with its roster size and power.
func (e *Engine) ListFor() Result {
	sums := e.Summaries()
	size := e.Config().MaxClanSize
	entries := make([]ListEntry, 0, len(sums))
	for _, s := range sums {
		entries = append(entries, ListEntry{Clan: s.Name, Members: len(s.Members), MaxMembers: size, Power: s.Power})
	}
	return Result{Key: "clan.list", Args: map[string]any{"clans": entries, "count": len(entries)}}
}

func (e *Engine) TopFor(n int) Result {
	return Result{Key: "clan.top", Args: map[string]any{"entries": e.Top(n)}}
}
