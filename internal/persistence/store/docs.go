package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/engine"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/registry"
)

const docVersion = 1

type clanDoc struct {
	Name         string              `json:"name"`
	King         string              `json:"king"`
	Advisors     []string            `json:"advisors,omitempty"`
	Members      []string            `json:"members"`
	MemberNames  map[string]string   `json:"member_names,omitempty"`
	Allies       []string            `json:"allies,omitempty"`
	Enemies      []string            `json:"enemies,omitempty"`
	Neutrals     []string            `json:"neutrals,omitempty"`
	Vault        int                 `json:"vault"`
	Kills        int                 `json:"kills"`
	Deaths       int                 `json:"deaths"`
	CreatedAt    time.Time           `json:"created_at"`
	AtWar        bool                `json:"at_war,omitempty"`
	WarTarget    string              `json:"war_target,omitempty"`
	WarStartedAt time.Time           `json:"war_started_at"`
	WarKills     map[string][]string `json:"war_kills,omitempty"`
}

// ClansDoc is clans.json: clan key -> clan.
type ClansDoc struct {
	Version int                `json:"version"`
	Clans   map[string]clanDoc `json:"clans"`
}

type playerDoc struct {
	Clan   string `json:"clan,omitempty"`
	Notify bool   `json:"notify,omitempty"`
}

// PlayersDoc is players.json: player id -> clan key and pending notice flag.
type PlayersDoc struct {
	Version int                  `json:"version"`
	Players map[string]playerDoc `json:"players"`
}

// TimersDoc is timers.json: clan key -> last vault consumption.
type TimersDoc struct {
	Version         int                  `json:"version"`
	LastConsumption map[string]time.Time `json:"last_consumption"`
}

// Docs groups the three persisted documents.
type Docs struct {
	Clans   ClansDoc
	Players PlayersDoc
	Timers  TimersDoc
}

func ids(s model.PlayerSet) []string {
	out := make([]string, 0, len(s))
	for _, id := range s.Sorted() {
		out = append(out, id.String())
	}
	return out
}

// Encode flattens engine state into the three documents.
func Encode(st engine.State) Docs {
	d := Docs{
		Clans:   ClansDoc{Version: docVersion, Clans: map[string]clanDoc{}},
		Players: PlayersDoc{Version: docVersion, Players: map[string]playerDoc{}},
		Timers:  TimersDoc{Version: docVersion, LastConsumption: map[string]time.Time{}},
	}
	for key, c := range st.Clans.Clans {
		if c == nil {
			continue
		}
		cd := clanDoc{
			Name:         c.DisplayName,
			King:         c.King.String(),
			Advisors:     ids(c.Advisors),
			Members:      ids(c.Members),
			Allies:       c.Allies.Sorted(),
			Enemies:      c.Enemies.Sorted(),
			Neutrals:     c.Neutrals.Sorted(),
			Vault:        c.Vault,
			Kills:        c.Kills,
			Deaths:       c.Deaths,
			CreatedAt:    c.CreatedAt,
			AtWar:        c.AtWar,
			WarTarget:    c.WarTarget,
			WarStartedAt: c.WarStartedAt,
		}
		if len(c.MemberNames) > 0 {
			cd.MemberNames = map[string]string{}
			for id, n := range c.MemberNames {
				cd.MemberNames[id.String()] = n
			}
		}
		if len(c.WarKills) > 0 {
			cd.WarKills = map[string][]string{}
			for killer, victims := range c.WarKills {
				cd.WarKills[killer.String()] = ids(victims)
			}
		}
		d.Clans.Clans[key] = cd
		d.Timers.LastConsumption[key] = c.LastResourceConsumption
	}
	for id, key := range st.Clans.Index {
		d.Players.Players[id.String()] = playerDoc{Clan: key}
	}
	for _, id := range st.Flagged {
		p := d.Players.Players[id.String()]
		p.Notify = true
		d.Players.Players[id.String()] = p
	}
	return d
}

type decoder struct {
	warns []string
}

func (dc *decoder) id(where, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		dc.warns = append(dc.warns, fmt.Sprintf("%s: malformed player id %q skipped", where, raw))
		return uuid.Nil, false
	}
	return id, true
}

func (dc *decoder) set(where string, raw []string) model.PlayerSet {
	out := model.PlayerSet{}
	for _, r := range raw {
		if id, ok := dc.id(where, r); ok {
			out.Add(id)
		}
	}
	return out
}

func keySet(raw []string) model.KeySet {
	out := model.KeySet{}
	for _, k := range raw {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}

// Decode rebuilds engine state from the documents. Malformed identifiers
// are skipped one by one and reported as warnings.
func Decode(d Docs) (engine.State, []string) {
	dc := &decoder{}
	st := engine.State{Clans: registry.State{
		Clans: map[string]*model.Clan{},
		Index: map[uuid.UUID]string{},
	}}

	keys := make([]string, 0, len(d.Clans.Clans))
	for k := range d.Clans.Clans {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		cd := d.Clans.Clans[key]
		where := "clans.json " + key
		if strings.TrimSpace(key) == "" {
			continue
		}
		c := &model.Clan{
			Key:          key,
			DisplayName:  cd.Name,
			Advisors:     dc.set(where, cd.Advisors),
			Members:      dc.set(where, cd.Members),
			MemberNames:  map[uuid.UUID]string{},
			Allies:       keySet(cd.Allies),
			Enemies:      keySet(cd.Enemies),
			Neutrals:     keySet(cd.Neutrals),
			Vault:        cd.Vault,
			Kills:        cd.Kills,
			Deaths:       cd.Deaths,
			CreatedAt:    cd.CreatedAt,
			AtWar:        cd.AtWar,
			WarTarget:    cd.WarTarget,
			WarStartedAt: cd.WarStartedAt,
			WarKills:     map[uuid.UUID]model.PlayerSet{},
		}
		if king, ok := dc.id(where, cd.King); ok {
			c.King = king
		}
		for raw, n := range cd.MemberNames {
			if id, ok := dc.id(where, raw); ok {
				c.MemberNames[id] = n
			}
		}
		for raw, victims := range cd.WarKills {
			if id, ok := dc.id(where, raw); ok {
				c.WarKills[id] = dc.set(where, victims)
			}
		}
		c.LastResourceConsumption = c.CreatedAt
		if ts, ok := d.Timers.LastConsumption[key]; ok {
			c.LastResourceConsumption = ts
		}
		st.Clans.Clans[key] = c
	}

	for raw, p := range d.Players.Players {
		id, ok := dc.id("players.json", raw)
		if !ok {
			continue
		}
		if p.Clan != "" {
			st.Clans.Index[id] = p.Clan
		}
		if p.Notify {
			st.Flagged = append(st.Flagged, id)
		}
	}
	sort.Slice(st.Flagged, func(i, j int) bool { return st.Flagged[i].String() < st.Flagged[j].String() })
	sort.Strings(dc.warns)
	return st, dc.warns
}
