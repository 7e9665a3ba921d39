package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/engine"
)

type countingAudit struct{ n int }

func (c *countingAudit) WriteAudit(engine.AuditEntry) error {
	c.n++
	return nil
}

func TestAuditLoggerRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	l.Writer().SetClock(func() time.Time { return now })

	if err := l.WriteAudit(engine.AuditEntry{At: now, Actor: "a", Action: "CREATE", Clan: "orcs"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.WriteAudit(engine.AuditEntry{At: now, Actor: "a", Action: "DEPOSIT", Clan: "orcs"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(time.Hour)
	if err := l.WriteAudit(engine.AuditEntry{At: now, Actor: "b", Action: "DISBAND", Clan: "orcs"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(filepath.Join(dir, "audit"), "audit")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("want 2 hourly files, got %v", files)
	}
	first, err := ReadAudit(files[0])
	if err != nil {
		t.Fatalf("ReadAudit: %v", err)
	}
	if len(first) != 2 || first[0].Action != "CREATE" || first[1].Action != "DEPOSIT" {
		t.Fatalf("first file: %+v", first)
	}
	second, err := ReadAudit(files[1])
	if err != nil {
		t.Fatalf("ReadAudit: %v", err)
	}
	if len(second) != 1 || second[0].Action != "DISBAND" || !second[0].At.Equal(now) {
		t.Fatalf("second file: %+v", second)
	}
}

func TestAuditLoggerAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		l := NewAuditLogger(dir)
		l.Writer().SetClock(func() time.Time { return now })
		if err := l.WriteAudit(engine.AuditEntry{Action: "JOIN"}); err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = l.Close()
	}
	files, _ := Files(filepath.Join(dir, "audit"), "audit")
	if len(files) != 1 {
		t.Fatalf("want 1 file, got %v", files)
	}
	got, err := ReadAudit(files[0])
	if err != nil || len(got) != 2 {
		t.Fatalf("want 2 entries, got %d (%v)", len(got), err)
	}
}

func TestFanout(t *testing.T) {
	a, b := &countingAudit{}, &countingAudit{}
	f := Fanout{a, nil, b}
	if err := f.WriteAudit(engine.AuditEntry{Action: "X"}); err != nil {
		t.Fatalf("fanout: %v", err)
	}
	if a.n != 1 || b.n != 1 {
		t.Fatalf("want each logger called once, got %d %d", a.n, b.n)
	}
}
