package names

import (
	"strings"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"
)

const (
	MinLen = 4
	MaxLen = 12
)

// Key case-folds a clan name into its registry key.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate checks a display name: ASCII letters only, MinLen..MaxLen long.
func Validate(name string) error {
	n := strings.TrimSpace(name)
	switch {
	case n == "":
		return failure.New(failure.BadName, "clan name cannot be empty")
	case len(n) < MinLen:
		return failure.Newf(failure.BadName, "clan name must be at least %d characters", MinLen)
	case len(n) > MaxLen:
		return failure.Newf(failure.BadName, "clan name must be at most %d characters", MaxLen)
	}
	for i := 0; i < len(n); i++ {
		ch := n[i]
		if (ch < 'a' || ch > 'z') && (ch < 'A' || ch > 'Z') {
			return failure.New(failure.BadName, "clan name may only contain letters")
		}
	}
	return nil
}

// SelectSuccessor picks the member that inherits a clan when the king is
// removed administratively: first advisor in order, else first member.
func SelectSuccessor(advisors, members []string) string {
	if len(advisors) > 0 {
		return minString(advisors)
	}
	return minString(members)
}

func minString(in []string) string {
	if len(in) == 0 {
		return ""
	}
	out := in[0]
	for _, s := range in[1:] {
		if s < out {
			out = s
		}
	}
	return out
}
