package engine

import (
	"time"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"
)

type Summary struct {
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	King      string    `json:"king"`
	Advisors  []string  `json:"advisors,omitempty"`
	Members   []string  `json:"members"`
	Allies    []string  `json:"allies,omitempty"`
	Enemies   []string  `json:"enemies,omitempty"`
	Vault     int       `json:"vault"`
	MaxVault  int       `json:"max_vault"`
	Kills     int       `json:"kills"`
	Deaths    int       `json:"deaths"`
	Power     int       `json:"power"`
	AtWar     bool      `json:"at_war"`
	WarTarget string    `json:"war_target,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// GraceHours is set while the vault is empty.
	GraceHours *int `json:"grace_hours,omitempty"`
}

type TopEntry struct {
	Rank    int    `json:"rank"`
	Clan    string `json:"clan"`
	Power   int    `json:"power"`
	Members int    `json:"members"`
	AtWar   bool   `json:"at_war"`
}

// ListEntry is one line of the player-facing clan list.
type ListEntry struct {
	Clan       string `json:"clan"`
	Members    int    `json:"members"`
	MaxMembers int    `json:"max_members"`
	Power      int    `json:"power"`
}

func (e *Engine) summarize(c *model.Clan) Summary {
	s := Summary{
		Key:       c.Key,
		Name:      c.DisplayName,
		King:      c.NameOf(c.King),
		Allies:    c.Allies.Sorted(),
		Enemies:   c.Enemies.Sorted(),
		Vault:     c.Vault,
		MaxVault:  e.Config().MaxVault,
		Kills:     c.Kills,
		Deaths:    c.Deaths,
		Power:     c.Power(e.Config().Weights),
		AtWar:     c.AtWar,
		WarTarget: c.WarTarget,
		CreatedAt: c.CreatedAt,
	}
	for _, id := range c.Advisors.Sorted() {
		s.Advisors = append(s.Advisors, c.NameOf(id))
	}
	for _, id := range c.Members.Sorted() {
		s.Members = append(s.Members, c.NameOf(id))
	}
	if c.Vault == 0 {
		h := e.vault.GraceHoursLeft(c, e.now())
		s.GraceHours = &h
	}
	return s
}

// Info describes one clan by name.
func (e *Engine) Info(clanName string) (Summary, error) {
	c, ok := e.reg.Get(clanName)
	if !ok {
		return Summary{}, failure.Newf(failure.ClanNotFound, "clan %s not found", clanName)
	}
	return e.summarize(c), nil
}

// Top ranks clans by power.
func (e *Engine) Top(n int) []TopEntry {
	ranked := e.reg.Top(n, e.Config().Weights)
	out := make([]TopEntry, 0, len(ranked))
	for i, r := range ranked {
		out = append(out, TopEntry{
			Rank:    i + 1,
			Clan:    r.Clan.DisplayName,
			Power:   r.Power,
			Members: len(r.Clan.Members),
			AtWar:   r.Clan.AtWar,
		})
	}
	return out
}

func (e *Engine) Summaries() []Summary {
	all := e.reg.All()
	out := make([]Summary, 0, len(all))
	for _, c := range all {
		out = append(out, e.summarize(c))
	}
	return out
}

// SetWarsEnabled is the admin switch for war declarations. Running wars
// continue.
func (e *Engine) SetWarsEnabled(on bool) {
	e.wars.SetEnabled(on)
	e.record(AuditEntry{Actor: actorSystem, Action: "WARS_ENABLED", Detail: map[string]any{"on": on}})
}

func (e *Engine) WarsEnabled() bool { return e.wars.Enabled() }

// AdminDisband removes a clan without confirmation or role checks.
func (e *Engine) AdminDisband(clanName string) error {
	c, err := e.reg.Disband(clanName)
	if err != nil {
		return err
	}
	e.disbanded(c, actorSystem, "admin")
	return nil
}
