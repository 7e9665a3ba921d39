// Package engine is the entry point hosts talk to. It owns every clan
// service, turns host events into state changes and reports outcomes as
// keyed messages. It performs no I/O of its own: audits go to an
// AuditLogger and persistence is triggered through the OnChange hook.
package engine

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/combat"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/confirm"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/diplomacy"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/fees"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/host"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/presence"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/proximity"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/registry"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/vault"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/war"
)

// AuditEntry records one successful state change.
type AuditEntry struct {
	At     time.Time      `json:"at"`
	Actor  string         `json:"actor"`
	Action string         `json:"action"` // e.g. "CREATE", "WAR_VICTORY"
	Clan   string         `json:"clan,omitempty"`
	Target string         `json:"target,omitempty"`
	Reason string         `json:"reason,omitempty"`
	Detail map[string]any `json:"detail,omitempty"`
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// Result is a successful command outcome, rendered by the host.
type Result struct {
	Key  string         `json:"key"`
	Args map[string]any `json:"args,omitempty"`
}

const actorSystem = "SYSTEM"

type Engine struct {
	cfgMu  sync.RWMutex
	cfg    Config
	host   host.Host
	logger *log.Logger
	now    func() time.Time

	gold     *fees.Wallet
	reg      *registry.Registry
	invites  *registry.Invitations
	diplo    *diplomacy.Engine
	wars     *war.Engine
	vault    *vault.Engine
	prox     *proximity.Engine
	hits     *combat.Tracker
	tokens   *confirm.Tokens
	presence *presence.Service

	noticeMu sync.Mutex
	notices  map[uuid.UUID]struct{}

	hookMu   sync.RWMutex
	audit    AuditLogger
	onChange func()
}

func New(cfg Config, h host.Host, logger *log.Logger, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[clans] ", log.LstdFlags)
	}
	e := &Engine{
		cfg:      cfg,
		host:     h,
		logger:   logger,
		now:      now,
		gold:     fees.NewWallet(h, host.Gold),
		reg:      registry.New(registry.Config{MaxClanSize: cfg.MaxClanSize}, now),
		invites:  registry.NewInvitations(cfg.InvitationTTL),
		hits:     combat.NewTracker(cfg.AttributionWindow, 0),
		tokens:   confirm.New(cfg.ConfirmTTL),
		presence: presence.New(),
		notices:  map[uuid.UUID]struct{}{},
	}
	e.diplo = diplomacy.New(e.reg, e.gold, diplomacyConfig(cfg), now)
	e.wars = war.New(e.reg, e.gold, h, warConfig(cfg), now)
	e.wars.SetEnabled(cfg.WarsEnabled)
	e.vault = vault.New(e.reg, h, vault.NewLimiter(cfg.DailyVaultOps, now), vaultConfig(cfg), now)
	e.prox = proximity.New(e.reg, h, h, h, proximityConfig(cfg))
	return e
}

func diplomacyConfig(cfg Config) diplomacy.Config {
	return diplomacy.Config{
		EnemyCost:   cfg.Costs.Enemy,
		AllyCost:    cfg.Costs.Ally,
		NeutralCost: cfg.Costs.Neutral,
		RequestTTL:  cfg.AllianceRequestTTL,
	}
}

func warConfig(cfg Config) war.Config {
	return war.Config{
		DeclareCost:     cfg.Costs.War,
		RewardNetherite: cfg.WarRewardNetherite,
		RewardGold:      cfg.WarRewardGold,
		BuffDuration:    cfg.WarBuffDuration,
		MaxDuration:     cfg.WarDuration,
	}
}

func vaultConfig(cfg Config) vault.Config {
	return vault.Config{
		MaxSize:             cfg.MaxVault,
		ConsumptionInterval: cfg.ConsumptionInterval,
		LowWarning:          cfg.LowVaultWarning,
	}
}

func proximityConfig(cfg Config) proximity.Config {
	return proximity.Config{
		Radius:      cfg.ProximityRadius,
		MaxClanSize: cfg.MaxClanSize,
		Quorum:      cfg.FullBonusQuorum,
		SpeedBonus:  cfg.ProximitySpeedBonus,
		DamageBonus: cfg.ProximityDamageBonus,
	}
}

// Reload swaps in new tuning at runtime. Clan size, the daily vault limit
// and the invitation, confirmation and attribution windows keep their
// startup values; the wars switch keeps its current state.
func (e *Engine) Reload(cfg Config) {
	e.cfgMu.Lock()
	cur := e.cfg
	cfg.MaxClanSize = cur.MaxClanSize
	cfg.DailyVaultOps = cur.DailyVaultOps
	cfg.InvitationTTL = cur.InvitationTTL
	cfg.ConfirmTTL = cur.ConfirmTTL
	cfg.AttributionWindow = cur.AttributionWindow
	cfg.WarsEnabled = e.wars.Enabled()
	e.cfg = cfg
	e.cfgMu.Unlock()

	e.diplo.SetConfig(diplomacyConfig(cfg))
	e.wars.SetConfig(warConfig(cfg))
	e.vault.SetConfig(vaultConfig(cfg))
	e.prox.SetConfig(proximityConfig(cfg))
	e.record(AuditEntry{Actor: actorSystem, Action: "CONFIG_RELOAD"})
	e.logger.Printf("config: reloaded")
}

func (e *Engine) SetAuditLogger(l AuditLogger) {
	e.hookMu.Lock()
	e.audit = l
	e.hookMu.Unlock()
}

// SetOnChange registers fn to be called after every persisted-state change.
// fn must not block.
func (e *Engine) SetOnChange(fn func()) {
	e.hookMu.Lock()
	e.onChange = fn
	e.hookMu.Unlock()
}

func (e *Engine) Config() Config {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg
}

func (e *Engine) Registry() *registry.Registry       { return e.reg }
func (e *Engine) Invitations() *registry.Invitations { return e.invites }
func (e *Engine) Diplomacy() *diplomacy.Engine       { return e.diplo }
func (e *Engine) Vault() *vault.Engine               { return e.vault }
func (e *Engine) Proximity() *proximity.Engine       { return e.prox }
func (e *Engine) Presence() *presence.Service        { return e.presence }

func (e *Engine) changed() {
	e.hookMu.RLock()
	fn := e.onChange
	e.hookMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (e *Engine) record(entry AuditEntry) {
	e.hookMu.RLock()
	l := e.audit
	e.hookMu.RUnlock()
	if l == nil {
		return
	}
	if entry.At.IsZero() {
		entry.At = e.now()
	}
	if err := l.WriteAudit(entry); err != nil {
		e.logger.Printf("audit: %v", err)
	}
}

func (e *Engine) nameOf(id uuid.UUID) string {
	if p, ok := e.host.Online(id); ok && p.Name != "" {
		return p.Name
	}
	if c, ok := e.reg.ClanOf(id); ok {
		if n := c.NameOf(id); n != "" {
			return n
		}
	}
	return id.String()
}

func (e *Engine) tell(id uuid.UUID, key string, args map[string]any) {
	e.host.Send(id, host.Message{Key: key, Args: args})
}

// broadcast sends to every online member of c except skip.
func (e *Engine) broadcast(c *model.Clan, skip uuid.UUID, key string, args map[string]any) {
	if c == nil {
		return
	}
	for _, id := range c.Members.Sorted() {
		if id == skip {
			continue
		}
		if _, ok := e.host.Online(id); ok {
			e.tell(id, key, args)
		}
	}
}

func (e *Engine) broadcastKey(clanKey string, key string, args map[string]any) {
	if c, ok := e.reg.Get(clanKey); ok {
		e.broadcast(c, uuid.Nil, key, args)
	}
}

func (e *Engine) actorClan(actor uuid.UUID) (*model.Clan, error) {
	c, ok := e.reg.ClanOf(actor)
	if !ok {
		return nil, failure.New(failure.NotInClan, "you are not in a clan")
	}
	return c, nil
}

func (e *Engine) requireKing(actor uuid.UUID) (*model.Clan, error) {
	c, err := e.actorClan(actor)
	if err != nil {
		return nil, err
	}
	if !c.RoleOf(actor).CanLead() {
		return nil, failure.New(failure.Role, "only the king can do that")
	}
	return c, nil
}

// resolveMember finds a member of c by cached name, falling back to the
// online directory.
func (e *Engine) resolveMember(c *model.Clan, name string) (uuid.UUID, error) {
	if id, ok := e.reg.MemberByName(c.Key, name); ok {
		return id, nil
	}
	if p, ok := e.host.ByName(name); ok && c.Members.Has(p.ID) {
		return p.ID, nil
	}
	return uuid.Nil, failure.Newf(failure.NotMember, "%s is not in your clan", name)
}

// disbanded releases everything held for a clan that no longer exists and
// tells its former members.
func (e *Engine) disbanded(c *model.Clan, actor, reason string) {
	e.invites.DropClan(c.Key)
	e.diplo.DropClan(c.Key)
	for _, id := range c.Members.Sorted() {
		e.prox.Forget(id)
		e.presence.SetClanChat(id, false)
	}
	e.broadcast(c, uuid.Nil, "clan.disbanded", map[string]any{"clan": c.DisplayName, "reason": reason})
	e.record(AuditEntry{Actor: actor, Action: "DISBAND", Clan: c.Key, Reason: reason})
	e.changed()
}

// departed strips per-member state after a player leaves a clan.
func (e *Engine) departed(id uuid.UUID) {
	e.prox.Forget(id)
	e.presence.SetClanChat(id, false)
}
