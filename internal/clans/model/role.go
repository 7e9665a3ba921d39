package model

// Role is a member's rank inside a clan.
type Role int

const (
	RoleNone Role = iota
	RolePeasant
	RoleAdvisor
	RoleKing
)

func (r Role) String() string {
	switch r {
	case RoleKing:
		return "KING"
	case RoleAdvisor:
		return "ADVISOR"
	case RolePeasant:
		return "PEASANT"
	default:
		return "NONE"
	}
}

func (r Role) CanInvite() bool { return r == RoleKing || r == RoleAdvisor }

// CanKick reports whether r may remove a member holding target.
// Advisors may only remove peasants.
func (r Role) CanKick(target Role) bool {
	switch r {
	case RoleKing:
		return target == RoleAdvisor || target == RolePeasant
	case RoleAdvisor:
		return target == RolePeasant
	default:
		return false
	}
}

func (r Role) CanDeposit() bool  { return r == RoleKing || r == RoleAdvisor }
func (r Role) CanWithdraw() bool { return r == RoleKing }

// CanLead covers diplomacy, war, promotions, transfer and disband.
func (r Role) CanLead() bool { return r == RoleKing }
