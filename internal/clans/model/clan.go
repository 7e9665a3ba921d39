package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// MaxAdvisors bounds the advisor set of every clan.
const MaxAdvisors = 2

type Relation string

const (
	RelationNeutral Relation = "neutral"
	RelationAlly    Relation = "ally"
	RelationEnemy   Relation = "enemy"
)

type PlayerSet map[uuid.UUID]struct{}

func NewPlayerSet(ids ...uuid.UUID) PlayerSet {
	s := PlayerSet{}
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s PlayerSet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

func (s PlayerSet) Add(id uuid.UUID) { s[id] = struct{}{} }

func (s PlayerSet) Remove(id uuid.UUID) { delete(s, id) }

// Sorted returns the ids in canonical string order.
func (s PlayerSet) Sorted() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (s PlayerSet) Clone() PlayerSet {
	out := make(PlayerSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

type KeySet map[string]struct{}

func (s KeySet) Has(k string) bool {
	_, ok := s[k]
	return ok
}

func (s KeySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s KeySet) Clone() KeySet {
	out := make(KeySet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Clan is the aggregate record of one faction. Callers outside the registry
// only ever see clones.
type Clan struct {
	Key         string
	DisplayName string

	King        uuid.UUID
	Advisors    PlayerSet
	Members     PlayerSet
	MemberNames map[uuid.UUID]string

	Allies   KeySet
	Enemies  KeySet
	Neutrals KeySet

	Vault  int
	Kills  int
	Deaths int

	CreatedAt               time.Time
	LastResourceConsumption time.Time

	AtWar        bool
	WarTarget    string
	WarStartedAt time.Time
	WarKills     map[uuid.UUID]PlayerSet
}

func NewClan(key, displayName string, founder uuid.UUID, founderName string, now time.Time) *Clan {
	c := &Clan{
		Key:                     key,
		DisplayName:             displayName,
		King:                    founder,
		Advisors:                PlayerSet{},
		Members:                 NewPlayerSet(founder),
		MemberNames:             map[uuid.UUID]string{},
		Allies:                  KeySet{},
		Enemies:                 KeySet{},
		Neutrals:                KeySet{},
		CreatedAt:               now,
		LastResourceConsumption: now,
		WarKills:                map[uuid.UUID]PlayerSet{},
	}
	if founderName != "" {
		c.MemberNames[founder] = founderName
	}
	return c
}

// EnsureMaps allocates nil collections, e.g. after decoding.
func (c *Clan) EnsureMaps() {
	if c.Advisors == nil {
		c.Advisors = PlayerSet{}
	}
	if c.Members == nil {
		c.Members = PlayerSet{}
	}
	if c.MemberNames == nil {
		c.MemberNames = map[uuid.UUID]string{}
	}
	if c.Allies == nil {
		c.Allies = KeySet{}
	}
	if c.Enemies == nil {
		c.Enemies = KeySet{}
	}
	if c.Neutrals == nil {
		c.Neutrals = KeySet{}
	}
	if c.WarKills == nil {
		c.WarKills = map[uuid.UUID]PlayerSet{}
	}
}

func (c *Clan) Clone() *Clan {
	if c == nil {
		return nil
	}
	out := *c
	out.Advisors = c.Advisors.Clone()
	out.Members = c.Members.Clone()
	out.MemberNames = make(map[uuid.UUID]string, len(c.MemberNames))
	for id, n := range c.MemberNames {
		out.MemberNames[id] = n
	}
	out.Allies = c.Allies.Clone()
	out.Enemies = c.Enemies.Clone()
	out.Neutrals = c.Neutrals.Clone()
	out.WarKills = make(map[uuid.UUID]PlayerSet, len(c.WarKills))
	for k, v := range c.WarKills {
		out.WarKills[k] = v.Clone()
	}
	return &out
}

func (c *Clan) RoleOf(id uuid.UUID) Role {
	switch {
	case !c.Members.Has(id):
		return RoleNone
	case c.King == id:
		return RoleKing
	case c.Advisors.Has(id):
		return RoleAdvisor
	default:
		return RolePeasant
	}
}

func (c *Clan) NameOf(id uuid.UUID) string {
	if n := c.MemberNames[id]; n != "" {
		return n
	}
	return id.String()
}

// RelationTo reports the diplomatic relation this clan holds toward other.
func (c *Clan) RelationTo(other string) Relation {
	switch {
	case c.Allies.Has(other):
		return RelationAlly
	case c.Enemies.Has(other):
		return RelationEnemy
	default:
		return RelationNeutral
	}
}

// SetRelation moves other into exactly one relation set.
func (c *Clan) SetRelation(other string, r Relation) {
	c.ClearRelation(other)
	switch r {
	case RelationAlly:
		c.Allies[other] = struct{}{}
	case RelationEnemy:
		c.Enemies[other] = struct{}{}
	default:
		c.Neutrals[other] = struct{}{}
	}
}

func (c *Clan) ClearRelation(other string) {
	delete(c.Allies, other)
	delete(c.Enemies, other)
	delete(c.Neutrals, other)
}

func (c *Clan) StartWar(target string, now time.Time) {
	c.AtWar = true
	c.WarTarget = target
	c.WarStartedAt = now
	c.WarKills = map[uuid.UUID]PlayerSet{}
}

func (c *Clan) ResetWar() {
	c.AtWar = false
	c.WarTarget = ""
	c.WarStartedAt = time.Time{}
	c.WarKills = map[uuid.UUID]PlayerSet{}
}

func (c *Clan) RecordWarKill(killer, victim uuid.UUID) {
	set := c.WarKills[killer]
	if set == nil {
		set = PlayerSet{}
		c.WarKills[killer] = set
	}
	set.Add(victim)
}

// WarKillsCover reports whether the union of recorded victims contains every
// id in roster. An empty roster is never covered.
func (c *Clan) WarKillsCover(roster PlayerSet) bool {
	if len(roster) == 0 {
		return false
	}
	for id := range roster {
		covered := false
		for _, victims := range c.WarKills {
			if victims.Has(id) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// PowerWeights configure the power score. Kill and death weights apply at
// war and are halved otherwise.
type PowerWeights struct {
	Vault int
	Kill  float64
	Death float64
}

func (c *Clan) Power(w PowerWeights) int {
	kw, dw := w.Kill, w.Death
	if !c.AtWar {
		kw /= 2
		dw /= 2
	}
	return c.Vault*w.Vault + int(float64(c.Kills)*kw) - int(float64(c.Deaths)*dw)
}
