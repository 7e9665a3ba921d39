package protocol

import "github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrUnknownCommand  = "E_UNKNOWN_COMMAND"
	ErrUsage           = "E_USAGE"
	ErrRateLimit       = "E_RATE_LIMIT"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrUnknownCommand:  {},
	ErrUsage:           {},
	ErrRateLimit:       {},
	ErrInternal:        {},

	string(failure.BadName):           {},
	string(failure.NameTaken):         {},
	string(failure.AlreadyInClan):     {},
	string(failure.NotInClan):         {},
	string(failure.ClanNotFound):      {},
	string(failure.ClanFull):          {},
	string(failure.NotMember):         {},
	string(failure.KingCannotLeave):   {},
	string(failure.Role):              {},
	string(failure.AdvisorCap):        {},
	string(failure.AlreadyAdvisor):    {},
	string(failure.NotAdvisor):        {},
	string(failure.NoInvitation):      {},
	string(failure.PlayerOffline):     {},
	string(failure.PlayerNotFound):    {},
	string(failure.InvalidTarget):     {},
	string(failure.AlreadyRelated):    {},
	string(failure.NotEnemies):        {},
	string(failure.AlreadyAtWar):      {},
	string(failure.WarsDisabled):      {},
	string(failure.InsufficientFunds): {},
	string(failure.VaultCap):          {},
	string(failure.VaultEmpty):        {},
	string(failure.DailyLimit):        {},
	string(failure.BadAmount):         {},
	string(failure.NeedsConfirm):      {},
	string(failure.Conflict):          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeFor maps err to a wire code. Errors that are not business-rule
// rejections, or carry a code the bridge does not know, become E_INTERNAL.
func CodeFor(err error) string {
	if err == nil {
		return ""
	}
	c := string(failure.CodeOf(err))
	if c == "" || !IsKnownCode(c) {
		return ErrInternal
	}
	return c
}
