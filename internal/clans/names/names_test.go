package names

import (
	"testing"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"Orcs", true},
		{"abcdefghijkl", true},
		{"", false},
		{"Orc", false},
		{"abcdefghijklm", false},
		{"Orcs1", false},
		{"Or cs", false},
		{"Élfes", false},
	}
	for _, c := range cases {
		err := Validate(c.name)
		if c.ok && err != nil {
			t.Fatalf("%q: unexpected error %v", c.name, err)
		}
		if !c.ok && failure.CodeOf(err) != failure.BadName {
			t.Fatalf("%q: expected E_BAD_NAME, got %v", c.name, err)
		}
	}
}

func TestKey(t *testing.T) {
	if got := Key(" OrCs "); got != "orcs" {
		t.Fatalf("expected orcs, got %q", got)
	}
}

func TestSelectSuccessor(t *testing.T) {
	if got := SelectSuccessor([]string{"b", "a"}, []string{"0"}); got != "a" {
		t.Fatalf("expected first advisor, got %q", got)
	}
	if got := SelectSuccessor(nil, []string{"z", "c"}); got != "c" {
		t.Fatalf("expected first member, got %q", got)
	}
	if got := SelectSuccessor(nil, nil); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
