package war

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/host"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/registry"
)

type noFees struct{}

func (noFees) Charge(uuid.UUID, int) error { return nil }
func (noFees) Refund(uuid.UUID, int)       {}

type countingRewards struct {
	mu    sync.Mutex
	items map[uuid.UUID]map[host.Resource]int
	buffs int
}

func (r *countingRewards) Give(id uuid.UUID, res host.Resource, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items[id] == nil {
		r.items[id] = map[host.Resource]int{}
	}
	r.items[id][res] += n
}

func (r *countingRewards) Apply(uuid.UUID, host.Effect) {
	r.mu.Lock()
	r.buffs++
	r.mu.Unlock()
}

type fixture struct {
	reg     *registry.Registry
	war     *Engine
	rewards *countingRewards
	now     time.Time
	orcs    []uuid.UUID
	elves   []uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Unix(1_700_000_000, 0), rewards: &countingRewards{items: map[uuid.UUID]map[host.Resource]int{}}}
	clock := func() time.Time { return f.now }
	f.reg = registry.New(registry.Config{MaxClanSize: 4}, clock)
	f.war = New(f.reg, noFees{}, f.rewards, Config{
		DeclareCost:     48,
		RewardNetherite: 1,
		RewardGold:      32,
		BuffDuration:    2 * time.Hour,
		MaxDuration:     24 * time.Hour,
	}, clock)
	f.war.SetEnabled(true)
	for i := 0; i < 3; i++ {
		f.orcs = append(f.orcs, uuid.New())
		f.elves = append(f.elves, uuid.New())
	}
	if _, err := f.reg.Create("Orcs", f.orcs[0], ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.reg.Create("Elves", f.elves[0], ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 1; i < 3; i++ {
		_, _ = f.reg.Join(f.orcs[i], "", "orcs")
		_, _ = f.reg.Join(f.elves[i], "", "elves")
	}
	return f
}

func (f *fixture) makeEnemies() {
	_ = f.reg.UpdatePair("orcs", "elves", func(a, b *model.Clan) error {
		a.SetRelation(b.Key, model.RelationEnemy)
		b.SetRelation(a.Key, model.RelationEnemy)
		return nil
	})
}

func TestDeclareWarPreconditions(t *testing.T) {
	f := newFixture(t)
	if err := f.war.DeclareWar(f.orcs[0], "orcs", "elves"); failure.CodeOf(err) != failure.NotEnemies {
		t.Fatalf("expected not enemies, got %v", err)
	}
	f.makeEnemies()
	f.war.SetEnabled(false)
	if err := f.war.DeclareWar(f.orcs[0], "orcs", "elves"); failure.CodeOf(err) != failure.WarsDisabled {
		t.Fatalf("expected wars disabled, got %v", err)
	}
	f.war.SetEnabled(true)
	if err := f.war.DeclareWar(f.orcs[0], "Orcs", "Elves"); err != nil {
		t.Fatalf("declare: %v", err)
	}
	orcs, _ := f.reg.Get("orcs")
	elves, _ := f.reg.Get("elves")
	if !orcs.AtWar || orcs.WarTarget != "elves" || !elves.AtWar || elves.WarTarget != "orcs" {
		t.Fatalf("war state not mirrored: %+v / %+v", orcs, elves)
	}
	if err := f.war.DeclareWar(f.elves[0], "elves", "orcs"); failure.CodeOf(err) != failure.AlreadyAtWar {
		t.Fatalf("expected already at war, got %v", err)
	}
}

func TestRecordKillCountsOutsideWar(t *testing.T) {
	f := newFixture(t)
	if v := f.war.RecordKill("orcs", f.orcs[0], "elves", f.elves[1]); v != nil {
		t.Fatalf("no war, no victory")
	}
	f.war.RecordKill("", uuid.New(), "elves", f.elves[2])
	orcs, _ := f.reg.Get("orcs")
	elves, _ := f.reg.Get("elves")
	if orcs.Kills != 1 || elves.Deaths != 2 || len(orcs.WarKills) != 0 {
		t.Fatalf("unexpected counters kills=%d deaths=%d warKills=%d", orcs.Kills, elves.Deaths, len(orcs.WarKills))
	}
}

func TestVictoryRewardsAndResets(t *testing.T) {
	f := newFixture(t)
	f.makeEnemies()
	if err := f.war.DeclareWar(f.orcs[0], "orcs", "elves"); err != nil {
		t.Fatalf("declare: %v", err)
	}
	if v := f.war.RecordKill("orcs", f.orcs[1], "elves", f.elves[0]); v != nil {
		t.Fatalf("premature victory")
	}
	if v := f.war.RecordKill("orcs", f.orcs[2], "elves", f.elves[1]); v != nil {
		t.Fatalf("premature victory")
	}
	v := f.war.RecordKill("orcs", f.orcs[1], "elves", f.elves[2])
	if v == nil || v.Winner.Key != "orcs" || v.Loser.Key != "elves" {
		t.Fatalf("expected orcs victory, got %+v", v)
	}
	orcs, _ := f.reg.Get("orcs")
	elves, _ := f.reg.Get("elves")
	if orcs.AtWar || elves.AtWar || orcs.WarTarget != "" || len(orcs.WarKills) != 0 {
		t.Fatalf("war not reset")
	}
	if got := f.rewards.items[f.orcs[0]][host.Netherite]; got != 2 {
		t.Fatalf("king should get an extra netherite, got %d", got)
	}
	if got := f.rewards.items[f.orcs[1]][host.Netherite]; got != 1 {
		t.Fatalf("member netherite: got %d", got)
	}
	if got := f.rewards.items[f.orcs[2]][host.Gold]; got != 32 {
		t.Fatalf("member gold: got %d", got)
	}
	if f.rewards.buffs != 6 {
		t.Fatalf("expected speed+strength for 3 members, got %d", f.rewards.buffs)
	}
}

func TestVictoryExactlyOnceUnderConcurrency(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := newFixture(t)
		f.makeEnemies()
		if err := f.war.DeclareWar(f.orcs[0], "orcs", "elves"); err != nil {
			t.Fatalf("declare: %v", err)
		}
		var victories atomic.Int32
		var wg sync.WaitGroup
		for _, killer := range f.orcs {
			for _, victim := range f.elves {
				wg.Add(1)
				go func(killer, victim uuid.UUID) {
					defer wg.Done()
					if v := f.war.RecordKill("orcs", killer, "elves", victim); v != nil {
						victories.Add(1)
					}
				}(killer, victim)
			}
		}
		wg.Wait()
		if got := victories.Load(); got != 1 {
			t.Fatalf("round %d: expected exactly one victory, got %d", round, got)
		}
		if got := f.rewards.items[f.orcs[0]][host.Netherite]; got != 2 {
			t.Fatalf("round %d: rewards delivered %d times to king", round, got)
		}
	}
}

func TestExpireWars(t *testing.T) {
	f := newFixture(t)
	f.makeEnemies()
	if err := f.war.DeclareWar(f.orcs[0], "orcs", "elves"); err != nil {
		t.Fatalf("declare: %v", err)
	}
	f.now = f.now.Add(23 * time.Hour)
	if got := f.war.ExpireWars(); len(got) != 0 {
		t.Fatalf("war expired early: %+v", got)
	}
	f.now = f.now.Add(time.Hour)
	got := f.war.ExpireWars()
	if len(got) != 1 || got[0].A != "elves" || got[0].B != "orcs" {
		t.Fatalf("expected one expired war, got %+v", got)
	}
	orcs, _ := f.reg.Get("orcs")
	if orcs.AtWar {
		t.Fatalf("expired war still active")
	}
}
