package registry

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/names"
)

// State is a detached copy of the registry contents.
type State struct {
	Clans map[string]*model.Clan
	Index map[uuid.UUID]string
}

func (r *Registry) Export() State {
	st := State{
		Clans: map[string]*model.Clan{},
		Index: map[uuid.UUID]string{},
	}
	for _, c := range r.All() {
		st.Clans[c.Key] = c
	}
	r.mu.RLock()
	for id, k := range r.index {
		st.Index[id] = k
	}
	r.mu.RUnlock()
	return st
}

// Import replaces the registry contents. Clans are repaired into a
// consistent shape and the index is rebuilt from membership; every repair is
// reported as a warning.
func (r *Registry) Import(st State) []string {
	var warns []string
	clans := map[string]*slot{}
	index := map[uuid.UUID]string{}

	keys := make([]string, 0, len(st.Clans))
	for key := range st.Clans {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		c := st.Clans[key]
		if c == nil {
			continue
		}
		c = c.Clone()
		c.EnsureMaps()
		if c.Key == "" {
			c.Key = names.Key(key)
		}
		if c.DisplayName == "" {
			c.DisplayName = key
		}
		if _, dup := clans[c.Key]; dup {
			warns = append(warns, fmt.Sprintf("duplicate clan %q skipped", c.Key))
			continue
		}
		for id := range c.Members {
			if other, taken := index[id]; taken {
				warns = append(warns, fmt.Sprintf("player %s in both %q and %q; kept in %q", id, other, c.Key, other))
				c.Members.Remove(id)
			}
		}
		for len(c.Members) > r.cfg.MaxClanSize {
			extra := c.Members.Sorted()[len(c.Members)-1]
			if extra == c.King {
				extra = c.Members.Sorted()[0]
			}
			c.Members.Remove(extra)
			warns = append(warns, fmt.Sprintf("clan %q over capacity; dropped %s", c.Key, extra))
		}
		if c.King == uuid.Nil || !c.Members.Has(c.King) {
			if len(c.Members) == 0 {
				warns = append(warns, fmt.Sprintf("clan %q has no members; skipped", c.Key))
				continue
			}
			c.King = c.Members.Sorted()[0]
			warns = append(warns, fmt.Sprintf("clan %q had no valid king; assigned %s", c.Key, c.King))
		}
		for id := range c.Members {
			index[id] = c.Key
		}
		for id := range c.Advisors {
			if !c.Members.Has(id) || id == c.King {
				c.Advisors.Remove(id)
			}
		}
		for len(c.Advisors) > model.MaxAdvisors {
			c.Advisors.Remove(c.Advisors.Sorted()[len(c.Advisors)-1])
		}
		if !c.AtWar {
			c.WarTarget = ""
		}
		clans[c.Key] = &slot{clan: c}
	}
	for id, k := range st.Index {
		if index[id] != k {
			warns = append(warns, fmt.Sprintf("index entry %s -> %q does not match membership; ignored", id, k))
		}
	}

	// Drop relations and wars that point at clans that no longer exist.
	for _, s := range clans {
		c := s.clan
		for _, set := range []model.KeySet{c.Allies, c.Enemies, c.Neutrals} {
			for k := range set {
				if _, ok := clans[k]; !ok || k == c.Key {
					delete(set, k)
				}
			}
		}
		if c.AtWar {
			if _, ok := clans[c.WarTarget]; !ok {
				c.ResetWar()
			}
		}
	}

	r.mu.Lock()
	r.clans = clans
	r.index = index
	r.mu.Unlock()
	return warns
}
