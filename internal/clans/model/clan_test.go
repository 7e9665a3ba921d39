package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRoleOfAndPermissions(t *testing.T) {
	king, adv, peasant, stranger := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	c := NewClan("orcs", "Orcs", king, "K", time.Unix(0, 0))
	c.Members.Add(adv)
	c.Members.Add(peasant)
	c.Advisors.Add(adv)

	if c.RoleOf(king) != RoleKing || c.RoleOf(adv) != RoleAdvisor || c.RoleOf(peasant) != RolePeasant || c.RoleOf(stranger) != RoleNone {
		t.Fatalf("unexpected roles")
	}
	if !RoleAdvisor.CanInvite() || RolePeasant.CanInvite() {
		t.Fatalf("invite permissions wrong")
	}
	if !RoleAdvisor.CanDeposit() || RoleAdvisor.CanWithdraw() || !RoleKing.CanWithdraw() {
		t.Fatalf("vault permissions wrong")
	}
	if RoleAdvisor.CanKick(RoleKing) || RoleAdvisor.CanKick(RoleAdvisor) || !RoleAdvisor.CanKick(RolePeasant) {
		t.Fatalf("advisor kick permissions wrong")
	}
	if RoleKing.CanKick(RoleKing) {
		t.Fatalf("king must not kick themselves")
	}
}

func TestSetRelationIsExclusive(t *testing.T) {
	c := NewClan("orcs", "Orcs", uuid.New(), "", time.Now())
	c.SetRelation("elves", RelationAlly)
	c.SetRelation("elves", RelationEnemy)
	if c.Allies.Has("elves") || !c.Enemies.Has("elves") || c.Neutrals.Has("elves") {
		t.Fatalf("relation sets not exclusive: %+v %+v %+v", c.Allies, c.Enemies, c.Neutrals)
	}
	if c.RelationTo("elves") != RelationEnemy {
		t.Fatalf("expected enemy relation")
	}
	c.SetRelation("elves", RelationNeutral)
	if c.RelationTo("elves") != RelationNeutral || !c.Neutrals.Has("elves") || c.Enemies.Has("elves") {
		t.Fatalf("expected explicit neutral")
	}
}

func TestPowerHalvedOutsideWar(t *testing.T) {
	c := NewClan("orcs", "Orcs", uuid.New(), "", time.Now())
	c.Vault = 2
	c.Kills = 5
	c.Deaths = 3
	w := PowerWeights{Vault: 5, Kill: 1, Death: 1}

	// 10 + int(2.5) - int(1.5) = 10 + 2 - 1
	if got := c.Power(w); got != 11 {
		t.Fatalf("peace power: got %d", got)
	}
	c.StartWar("elves", time.Now())
	if got := c.Power(w); got != 12 {
		t.Fatalf("war power: got %d", got)
	}
}

func TestWarKillsCover(t *testing.T) {
	a, b, killer := uuid.New(), uuid.New(), uuid.New()
	c := NewClan("orcs", "Orcs", killer, "", time.Now())
	roster := NewPlayerSet(a, b)
	c.RecordWarKill(killer, a)
	if c.WarKillsCover(roster) {
		t.Fatalf("roster should not be covered yet")
	}
	c.RecordWarKill(uuid.New(), b)
	if !c.WarKillsCover(roster) {
		t.Fatalf("roster should be covered by the union of victim sets")
	}
	if c.WarKillsCover(PlayerSet{}) {
		t.Fatalf("empty roster must not count as covered")
	}
	c.ResetWar()
	if c.AtWar || c.WarTarget != "" || len(c.WarKills) != 0 {
		t.Fatalf("reset left war state behind")
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := NewClan("orcs", "Orcs", uuid.New(), "", time.Now())
	c.Allies["elves"] = struct{}{}
	cp := c.Clone()
	cp.Allies["dwarves"] = struct{}{}
	cp.Members.Add(uuid.New())
	if c.Allies.Has("dwarves") || len(c.Members) != 1 {
		t.Fatalf("clone shares state with original")
	}
}
