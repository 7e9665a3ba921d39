package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/names"
)

type Config struct {
	MaxClanSize int
}

// slot guards one clan. removed is set under mu before the slot leaves the map.
type slot struct {
	mu      sync.Mutex
	clan    *model.Clan
	removed bool
}

// Registry owns every clan and the player index.
//
// Lock order: clan slots (ascending key) before Registry.mu. Registry.mu is
// never held while waiting on a slot.
type Registry struct {
	cfg Config
	now func() time.Time

	mu    sync.RWMutex
	clans map[string]*slot
	index map[uuid.UUID]string
}

func New(cfg Config, now func() time.Time) *Registry {
	if cfg.MaxClanSize <= 0 {
		cfg.MaxClanSize = 4
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{
		cfg:   cfg,
		now:   now,
		clans: map[string]*slot{},
		index: map[uuid.UUID]string{},
	}
}

func (r *Registry) MaxClanSize() int { return r.cfg.MaxClanSize }

func (r *Registry) lookup(key string) *slot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clans[key]
}

// lockSlot returns the live slot for key, locked.
func (r *Registry) lockSlot(key string) *slot {
	for {
		s := r.lookup(key)
		if s == nil {
			return nil
		}
		s.mu.Lock()
		if !s.removed {
			return s
		}
		s.mu.Unlock()
	}
}

func (r *Registry) Create(name string, founder uuid.UUID, founderName string) (*model.Clan, error) {
	if err := names.Validate(name); err != nil {
		return nil, err
	}
	display := strings.TrimSpace(name)
	key := names.Key(display)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clans[key]; ok {
		return nil, failure.Newf(failure.NameTaken, "clan %s already exists", display)
	}
	if _, ok := r.index[founder]; ok {
		return nil, failure.New(failure.AlreadyInClan, "already in a clan")
	}
	c := model.NewClan(key, display, founder, founderName, r.now())
	r.clans[key] = &slot{clan: c}
	r.index[founder] = key
	return c.Clone(), nil
}

func (r *Registry) Join(player uuid.UUID, playerName, clanName string) (*model.Clan, error) {
	s := r.lockSlot(names.Key(clanName))
	if s == nil {
		return nil, failure.Newf(failure.ClanNotFound, "clan %s not found", clanName)
	}
	defer s.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[player]; ok {
		return nil, failure.New(failure.AlreadyInClan, "already in a clan")
	}
	c := s.clan
	if len(c.Members) >= r.cfg.MaxClanSize {
		return nil, failure.Newf(failure.ClanFull, "clan is full (max %d)", r.cfg.MaxClanSize)
	}
	c.Members.Add(player)
	if playerName != "" {
		c.MemberNames[player] = playerName
	}
	r.index[player] = c.Key
	return c.Clone(), nil
}

// lockMemberSlot locks the clan player currently belongs to.
func (r *Registry) lockMemberSlot(player uuid.UUID) *slot {
	for i := 0; i < 4; i++ {
		key, ok := r.KeyOf(player)
		if !ok {
			return nil
		}
		s := r.lockSlot(key)
		if s == nil {
			continue
		}
		if s.clan.Members.Has(player) {
			return s
		}
		s.mu.Unlock()
	}
	return nil
}

func (r *Registry) Leave(player uuid.UUID) (*model.Clan, error) {
	s := r.lockMemberSlot(player)
	if s == nil {
		return nil, failure.New(failure.NotInClan, "not in a clan")
	}
	defer s.mu.Unlock()
	c := s.clan
	if c.King == player {
		return nil, failure.New(failure.KingCannotLeave, "the king must transfer the crown or disband")
	}
	r.dropMemberLocked(c, player)
	return c.Clone(), nil
}

// Removal describes the outcome of RemoveMember.
type Removal struct {
	Clan      *model.Clan
	NewKing   uuid.UUID
	Disbanded bool
}

// RemoveMember removes player regardless of role. A removed king is replaced
// by a successor; an emptied clan is disbanded.
func (r *Registry) RemoveMember(player uuid.UUID) (Removal, error) {
	s := r.lockMemberSlot(player)
	if s == nil {
		return Removal{}, failure.New(failure.NotInClan, "not in a clan")
	}
	c := s.clan
	r.dropMemberLocked(c, player)

	var out Removal
	if len(c.Members) == 0 {
		r.unlinkLocked(s)
		out.Clan = c.Clone()
		out.Disbanded = true
		s.mu.Unlock()
		r.cascade(c.Key)
		return out, nil
	}
	if c.King == player {
		adv := make([]string, 0, len(c.Advisors))
		for id := range c.Advisors {
			adv = append(adv, id.String())
		}
		mem := make([]string, 0, len(c.Members))
		for id := range c.Members {
			mem = append(mem, id.String())
		}
		next, _ := uuid.Parse(names.SelectSuccessor(adv, mem))
		c.King = next
		c.Advisors.Remove(next)
		out.NewKing = next
	}
	out.Clan = c.Clone()
	s.mu.Unlock()
	return out, nil
}

func (r *Registry) dropMemberLocked(c *model.Clan, player uuid.UUID) {
	c.Members.Remove(player)
	c.Advisors.Remove(player)
	delete(c.MemberNames, player)
	r.mu.Lock()
	if r.index[player] == c.Key {
		delete(r.index, player)
	}
	r.mu.Unlock()
}

// Disband removes the clan, unindexes its members and strips it from every
// other clan's relations. A second call reports E_CLAN_NOT_FOUND.
func (r *Registry) Disband(clanName string) (*model.Clan, error) {
	c, ok := r.DisbandIf(names.Key(clanName), nil)
	if !ok {
		return nil, failure.Newf(failure.ClanNotFound, "clan %s not found", clanName)
	}
	return c, nil
}

// DisbandIf disbands the clan when cond, evaluated under the clan lock,
// holds. A nil cond always holds.
func (r *Registry) DisbandIf(key string, cond func(c *model.Clan) bool) (*model.Clan, bool) {
	s := r.lockSlot(key)
	if s == nil {
		return nil, false
	}
	if cond != nil && !cond(s.clan) {
		s.mu.Unlock()
		return nil, false
	}
	r.unlinkLocked(s)
	out := s.clan.Clone()
	s.mu.Unlock()
	r.cascade(out.Key)
	return out, true
}

// unlinkLocked detaches a locked slot from the registry maps.
func (r *Registry) unlinkLocked(s *slot) {
	c := s.clan
	r.mu.Lock()
	if r.clans[c.Key] == s {
		delete(r.clans, c.Key)
	}
	for id := range c.Members {
		if r.index[id] == c.Key {
			delete(r.index, id)
		}
	}
	r.mu.Unlock()
	s.removed = true
}

// cascade strips key from every live clan, one clan lock at a time.
func (r *Registry) cascade(key string) {
	for _, s := range r.slots() {
		s.mu.Lock()
		if !s.removed {
			s.clan.ClearRelation(key)
			if s.clan.AtWar && s.clan.WarTarget == key {
				s.clan.ResetWar()
			}
		}
		s.mu.Unlock()
	}
}

func (r *Registry) slots() []*slot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*slot, 0, len(r.clans))
	for _, s := range r.clans {
		out = append(out, s)
	}
	return out
}

func (r *Registry) TransferKing(clanName string, newKing uuid.UUID) (*model.Clan, error) {
	var out *model.Clan
	err := r.Update(names.Key(clanName), func(c *model.Clan) error {
		if !c.Members.Has(newKing) {
			return failure.New(failure.NotMember, "new king must be a member")
		}
		if c.King == newKing {
			return failure.New(failure.InvalidTarget, "already the king")
		}
		c.King = newKing
		c.Advisors.Remove(newKing)
		out = c.Clone()
		return nil
	})
	return out, err
}

func (r *Registry) Promote(clanName string, player uuid.UUID) (*model.Clan, error) {
	var out *model.Clan
	err := r.Update(names.Key(clanName), func(c *model.Clan) error {
		switch c.RoleOf(player) {
		case model.RoleNone:
			return failure.New(failure.NotMember, "player is not a member")
		case model.RoleKing:
			return failure.New(failure.InvalidTarget, "the king cannot be promoted")
		case model.RoleAdvisor:
			return failure.New(failure.AlreadyAdvisor, "already an advisor")
		}
		if len(c.Advisors) >= model.MaxAdvisors {
			return failure.Newf(failure.AdvisorCap, "a clan may have at most %d advisors", model.MaxAdvisors)
		}
		c.Advisors.Add(player)
		out = c.Clone()
		return nil
	})
	return out, err
}

func (r *Registry) Demote(clanName string, player uuid.UUID) (*model.Clan, error) {
	var out *model.Clan
	err := r.Update(names.Key(clanName), func(c *model.Clan) error {
		switch c.RoleOf(player) {
		case model.RoleNone:
			return failure.New(failure.NotMember, "player is not a member")
		case model.RoleKing:
			return failure.New(failure.Role, "the king cannot be demoted")
		case model.RolePeasant:
			return failure.New(failure.NotAdvisor, "player is not an advisor")
		}
		c.Advisors.Remove(player)
		out = c.Clone()
		return nil
	})
	return out, err
}

// Update runs fn with the clan locked. fn must not change membership; use
// the registry's membership operations for that.
func (r *Registry) Update(key string, fn func(c *model.Clan) error) error {
	s := r.lockSlot(key)
	if s == nil {
		return failure.Newf(failure.ClanNotFound, "clan %s not found", key)
	}
	defer s.mu.Unlock()
	return fn(s.clan)
}

// UpdatePair runs fn with both clans locked, acquired in key order, so both
// sides change in one step.
func (r *Registry) UpdatePair(a, b string, fn func(x, y *model.Clan) error) error {
	if a == b {
		return failure.New(failure.InvalidTarget, "a clan cannot target itself")
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	s1 := r.lockSlot(first)
	if s1 == nil {
		return failure.Newf(failure.ClanNotFound, "clan %s not found", first)
	}
	defer s1.mu.Unlock()
	s2 := r.lockSlot(second)
	if s2 == nil {
		return failure.Newf(failure.ClanNotFound, "clan %s not found", second)
	}
	defer s2.mu.Unlock()
	if first == a {
		return fn(s1.clan, s2.clan)
	}
	return fn(s2.clan, s1.clan)
}

// View runs fn with the clan locked for reading. fn must not retain c.
func (r *Registry) View(key string, fn func(c *model.Clan)) bool {
	s := r.lockSlot(key)
	if s == nil {
		return false
	}
	defer s.mu.Unlock()
	fn(s.clan)
	return true
}

func (r *Registry) Get(name string) (*model.Clan, bool) {
	var out *model.Clan
	ok := r.View(names.Key(name), func(c *model.Clan) { out = c.Clone() })
	return out, ok
}

func (r *Registry) KeyOf(player uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.index[player]
	return k, ok
}

func (r *Registry) ClanOf(player uuid.UUID) (*model.Clan, bool) {
	key, ok := r.KeyOf(player)
	if !ok {
		return nil, false
	}
	c, ok := r.Get(key)
	if !ok || !c.Members.Has(player) {
		return nil, false
	}
	return c, true
}

// MemberByName resolves a member from the clan's cached display names.
func (r *Registry) MemberByName(clanName, playerName string) (uuid.UUID, bool) {
	var (
		id    uuid.UUID
		found bool
	)
	r.View(names.Key(clanName), func(c *model.Clan) {
		for mid, n := range c.MemberNames {
			if strings.EqualFold(n, playerName) && c.Members.Has(mid) {
				id, found = mid, true
				return
			}
		}
	})
	return id, found
}

func (r *Registry) SetMemberName(player uuid.UUID, name string) {
	key, ok := r.KeyOf(player)
	if !ok || name == "" {
		return
	}
	_ = r.Update(key, func(c *model.Clan) error {
		if c.Members.Has(player) {
			c.MemberNames[player] = name
		}
		return nil
	})
}

// Keys returns every clan key in ascending order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.clans))
	for k := range r.clans {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// All returns clones of every clan ordered by key.
func (r *Registry) All() []*model.Clan {
	keys := r.Keys()
	out := make([]*model.Clan, 0, len(keys))
	for _, k := range keys {
		if c, ok := r.Get(k); ok {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clans)
}

func (r *Registry) PlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.index)
}

// Ranked is a clan with its computed power.
type Ranked struct {
	Clan  *model.Clan
	Power int
}

// Top returns up to n clans by descending power, ties broken by key.
func (r *Registry) Top(n int, w model.PowerWeights) []Ranked {
	all := r.All()
	out := make([]Ranked, 0, len(all))
	for _, c := range all {
		out = append(out, Ranked{Clan: c, Power: c.Power(w)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Power != out[j].Power {
			return out[i].Power > out[j].Power
		}
		return out[i].Clan.Key < out[j].Clan.Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
