package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/model"
)

func newTestRegistry() *Registry {
	return New(Config{MaxClanSize: 4}, func() time.Time { return time.Unix(1_700_000_000, 0) })
}

func checkInvariants(t *testing.T, r *Registry) {
	t.Helper()
	st := r.Export()
	seen := map[uuid.UUID]string{}
	for key, c := range st.Clans {
		if len(c.Members) > r.MaxClanSize() {
			t.Fatalf("clan %s exceeds max size: %d", key, len(c.Members))
		}
		if !c.Members.Has(c.King) {
			t.Fatalf("clan %s king not a member", key)
		}
		if len(c.Advisors) > model.MaxAdvisors || c.Advisors.Has(c.King) {
			t.Fatalf("clan %s advisors invalid", key)
		}
		for id := range c.Members {
			if other, ok := seen[id]; ok {
				t.Fatalf("player %s in %s and %s", id, other, key)
			}
			seen[id] = key
			if st.Index[id] != key {
				t.Fatalf("index for %s = %q, want %q", id, st.Index[id], key)
			}
		}
	}
	if len(st.Index) != len(seen) {
		t.Fatalf("index has %d entries, members %d", len(st.Index), len(seen))
	}
}

func TestCreateValidatesAndRejectsDuplicates(t *testing.T) {
	r := newTestRegistry()
	p1, p2 := uuid.New(), uuid.New()

	if _, err := r.Create("Or", p1, "P1"); failure.CodeOf(err) != failure.BadName {
		t.Fatalf("expected bad name, got %v", err)
	}
	c, err := r.Create("Orcs", p1, "P1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Key != "orcs" || c.DisplayName != "Orcs" || c.King != p1 || c.CreatedAt.IsZero() {
		t.Fatalf("unexpected clan: %+v", c)
	}
	if _, err := r.Create("ORCS", p2, "P2"); failure.CodeOf(err) != failure.NameTaken {
		t.Fatalf("expected name taken, got %v", err)
	}
	if _, err := r.Create("Elves", p1, "P1"); failure.CodeOf(err) != failure.AlreadyInClan {
		t.Fatalf("expected already in clan, got %v", err)
	}
	checkInvariants(t, r)
}

func TestJoinLeaveAndCapacity(t *testing.T) {
	r := newTestRegistry()
	king := uuid.New()
	if _, err := r.Create("Orcs", king, "K"); err != nil {
		t.Fatalf("create: %v", err)
	}
	var members []uuid.UUID
	for i := 0; i < 3; i++ {
		id := uuid.New()
		if _, err := r.Join(id, fmt.Sprintf("M%d", i), "orcs"); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
		members = append(members, id)
	}
	if _, err := r.Join(uuid.New(), "late", "Orcs"); failure.CodeOf(err) != failure.ClanFull {
		t.Fatalf("expected clan full, got %v", err)
	}
	if _, err := r.Join(members[0], "M0", "Orcs"); failure.CodeOf(err) != failure.AlreadyInClan {
		t.Fatalf("expected already in clan, got %v", err)
	}
	if _, err := r.Join(uuid.New(), "x", "Nope"); failure.CodeOf(err) != failure.ClanNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := r.Leave(king); failure.CodeOf(err) != failure.KingCannotLeave {
		t.Fatalf("expected king cannot leave, got %v", err)
	}
	if _, err := r.Leave(members[0]); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, ok := r.KeyOf(members[0]); ok {
		t.Fatalf("left player still indexed")
	}
	if _, err := r.Leave(members[0]); failure.CodeOf(err) != failure.NotInClan {
		t.Fatalf("expected not in clan, got %v", err)
	}
	if id, ok := r.MemberByName("orcs", "m1"); !ok || id != members[1] {
		t.Fatalf("member by name lookup failed")
	}
	checkInvariants(t, r)
}

func TestRemoveMemberDisbandsWhenEmpty(t *testing.T) {
	r := newTestRegistry()
	king, other := uuid.New(), uuid.New()
	_, _ = r.Create("Orcs", king, "K")
	_, _ = r.Create("Elves", other, "E")
	_ = r.UpdatePair("orcs", "elves", func(a, b *model.Clan) error {
		a.SetRelation("elves", model.RelationEnemy)
		b.SetRelation("orcs", model.RelationEnemy)
		return nil
	})

	res, err := r.RemoveMember(king)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !res.Disbanded {
		t.Fatalf("expected disband of empty clan")
	}
	if _, ok := r.Get("orcs"); ok {
		t.Fatalf("clan still present")
	}
	elves, _ := r.Get("elves")
	if elves.Enemies.Has("orcs") {
		t.Fatalf("disband did not cascade into other clan relations")
	}
	checkInvariants(t, r)
}

func TestRemoveKingPromotesSuccessor(t *testing.T) {
	r := newTestRegistry()
	king, adv, peasant := uuid.New(), uuid.New(), uuid.New()
	_, _ = r.Create("Orcs", king, "K")
	_, _ = r.Join(adv, "A", "orcs")
	_, _ = r.Join(peasant, "P", "orcs")
	if _, err := r.Promote("orcs", adv); err != nil {
		t.Fatalf("promote: %v", err)
	}
	res, err := r.RemoveMember(king)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if res.Disbanded || res.NewKing != adv || res.Clan.King != adv || res.Clan.Advisors.Has(adv) {
		t.Fatalf("expected advisor to inherit, got %+v", res)
	}
	checkInvariants(t, r)
}

func TestDisbandIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	_, _ = r.Create("Orcs", uuid.New(), "K")
	if _, err := r.Disband("Orcs"); err != nil {
		t.Fatalf("disband: %v", err)
	}
	before := r.Export()
	if _, err := r.Disband("Orcs"); failure.CodeOf(err) != failure.ClanNotFound {
		t.Fatalf("expected not found on second disband, got %v", err)
	}
	after := r.Export()
	if len(before.Clans) != len(after.Clans) || len(before.Index) != len(after.Index) {
		t.Fatalf("second disband changed state")
	}
}

func TestPromoteDemoteTransfer(t *testing.T) {
	r := newTestRegistry()
	p1, p2, p3, p4 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	_, _ = r.Create("Orcs", p1, "P1")
	for _, id := range []uuid.UUID{p2, p3, p4} {
		if _, err := r.Join(id, id.String()[:4], "orcs"); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	if _, err := r.Promote("orcs", p2); err != nil {
		t.Fatalf("promote p2: %v", err)
	}
	if _, err := r.Promote("orcs", p2); failure.CodeOf(err) != failure.AlreadyAdvisor {
		t.Fatalf("expected already advisor, got %v", err)
	}
	if _, err := r.Promote("orcs", p3); err != nil {
		t.Fatalf("promote p3: %v", err)
	}
	if _, err := r.Promote("orcs", p4); failure.CodeOf(err) != failure.AdvisorCap {
		t.Fatalf("expected advisor cap, got %v", err)
	}
	if _, err := r.Demote("orcs", p1); failure.CodeOf(err) != failure.Role {
		t.Fatalf("expected king demotion rejected, got %v", err)
	}
	if _, err := r.TransferKing("orcs", uuid.New()); failure.CodeOf(err) != failure.NotMember {
		t.Fatalf("expected not member, got %v", err)
	}
	c, err := r.TransferKing("orcs", p2)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if c.King != p2 || c.Advisors.Has(p2) {
		t.Fatalf("transfer left new king as advisor: %+v", c.Advisors)
	}
	checkInvariants(t, r)
}

func TestConcurrentJoinsKeepIndexConsistent(t *testing.T) {
	r := newTestRegistry()
	for _, n := range []string{"Orcs", "Elves", "Dwarves"} {
		if _, err := r.Create(n, uuid.New(), ""); err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
	}
	players := make([]uuid.UUID, 16)
	for i := range players {
		players[i] = uuid.New()
	}
	var wg sync.WaitGroup
	for _, p := range players {
		for _, n := range []string{"orcs", "elves", "dwarves"} {
			wg.Add(1)
			go func(p uuid.UUID, n string) {
				defer wg.Done()
				_, _ = r.Join(p, "", n)
			}(p, n)
		}
	}
	wg.Wait()
	checkInvariants(t, r)
	if got := r.PlayerCount(); got != 12 {
		t.Fatalf("expected three full clans (12 players), got %d", got)
	}
}

func TestImportRepairsAndSkips(t *testing.T) {
	r := newTestRegistry()
	king, shared := uuid.New(), uuid.New()
	a := model.NewClan("orcs", "Orcs", king, "", time.Now())
	a.Members.Add(shared)
	a.Enemies["ghosts"] = struct{}{}
	b := model.NewClan("elves", "Elves", shared, "", time.Now())
	empty := &model.Clan{Key: "void"}

	warns := r.Import(State{
		Clans: map[string]*model.Clan{"orcs": a, "elves": b, "void": empty},
		Index: map[uuid.UUID]string{uuid.New(): "orcs"},
	})
	if len(warns) == 0 {
		t.Fatalf("expected warnings for repaired state")
	}
	if _, ok := r.Get("void"); ok {
		t.Fatalf("memberless clan should be skipped")
	}
	orcs, ok := r.Get("orcs")
	if !ok || orcs.Enemies.Has("ghosts") {
		t.Fatalf("dangling relation not removed")
	}
	checkInvariants(t, r)
}

func TestImportResolvesSharedMemberByKeyOrder(t *testing.T) {
	shared := uuid.New()
	orcs := model.NewClan("orcs", "Orcs", uuid.New(), "", time.Now())
	orcs.Members.Add(shared)
	elves := model.NewClan("elves", "Elves", uuid.New(), "", time.Now())
	elves.Members.Add(shared)
	st := State{Clans: map[string]*model.Clan{"orcs": orcs, "elves": elves}}

	for i := 0; i < 20; i++ {
		r := newTestRegistry()
		r.Import(st)
		if key, ok := r.KeyOf(shared); !ok || key != "elves" {
			t.Fatalf("load %d: shared member kept in %q", i, key)
		}
		checkInvariants(t, r)
	}
}

func TestInvitationsExpireAndLastWins(t *testing.T) {
	iv := NewInvitations(5 * time.Minute)
	now := time.Unix(0, 0)
	p := uuid.New()
	iv.Put("orcs", p, uuid.New(), now)
	iv.Put("elves", p, uuid.New(), now)
	inv, ok := iv.Get(p, now.Add(time.Minute))
	if !ok || inv.Clan != "elves" {
		t.Fatalf("expected last invitation to win, got %+v", inv)
	}
	if iv.Consume(p, "orcs", now) {
		t.Fatalf("consume for wrong clan must fail")
	}
	iv.Put("orcs", p, uuid.New(), now)
	if _, ok := iv.Get(p, now.Add(5*time.Minute)); ok {
		t.Fatalf("expired invitation still returned")
	}
	iv.Put("orcs", p, uuid.New(), now)
	if n := iv.Sweep(now.Add(time.Hour)); n != 1 || iv.Len() != 0 {
		t.Fatalf("sweep removed %d, remaining %d", n, iv.Len())
	}
}
