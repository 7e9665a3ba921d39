package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrUnknownCommand,
		ErrUsage,
		ErrRateLimit,
		ErrInternal,
		string(failure.ClanFull),
		string(failure.NeedsConfirm),
		string(failure.InsufficientFunds),
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestCodeFor(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{failure.New(failure.DailyLimit, "x"), string(failure.DailyLimit)},
		{fmt.Errorf("wrapped: %w", failure.New(failure.VaultCap, "")), string(failure.VaultCap)},
		{failure.New(failure.Code("E_MADE_UP"), ""), ErrInternal},
		{errors.New("disk full"), ErrInternal},
	}
	for _, c := range cases {
		if got := CodeFor(c.err); got != c.want {
			t.Fatalf("CodeFor(%v): want %q got %q", c.err, c.want, got)
		}
	}
}
