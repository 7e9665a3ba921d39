package failure

import (
	"errors"
	"fmt"
)

// Code identifies a business-rule rejection. Hosts map codes to localized text.
type Code string

const (
	BadName           Code = "E_BAD_NAME"
	NameTaken         Code = "E_NAME_TAKEN"
	AlreadyInClan     Code = "E_ALREADY_IN_CLAN"
	NotInClan         Code = "E_NOT_IN_CLAN"
	ClanNotFound      Code = "E_CLAN_NOT_FOUND"
	ClanFull          Code = "E_CLAN_FULL"
	NotMember         Code = "E_NOT_MEMBER"
	KingCannotLeave   Code = "E_KING_CANNOT_LEAVE"
	Role              Code = "E_ROLE"
	AdvisorCap        Code = "E_ADVISOR_CAP"
	AlreadyAdvisor    Code = "E_ALREADY_ADVISOR"
	NotAdvisor        Code = "E_NOT_ADVISOR"
	NoInvitation      Code = "E_NO_INVITATION"
	PlayerOffline     Code = "E_PLAYER_OFFLINE"
	PlayerNotFound    Code = "E_PLAYER_NOT_FOUND"
	InvalidTarget     Code = "E_INVALID_TARGET"
	AlreadyRelated    Code = "E_ALREADY_RELATED"
	NotEnemies        Code = "E_NOT_ENEMIES"
	AlreadyAtWar      Code = "E_ALREADY_AT_WAR"
	WarsDisabled      Code = "E_WARS_DISABLED"
	InsufficientFunds Code = "E_INSUFFICIENT_FUNDS"
	VaultCap          Code = "E_VAULT_CAP"
	VaultEmpty        Code = "E_VAULT_EMPTY"
	DailyLimit        Code = "E_DAILY_LIMIT"
	BadAmount         Code = "E_BAD_AMOUNT"
	NeedsConfirm      Code = "E_CONFIRM"
	Conflict          Code = "E_CONFLICT"
)

// Error is a rejected operation. Engine state is unchanged when one is returned.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf returns the rejection code carried by err, or "" if err is nil or not a rejection.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// Is reports whether err is a rejection with the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
