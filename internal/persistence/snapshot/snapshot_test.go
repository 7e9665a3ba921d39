package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/notdash999-netizen/simple-clans-mod/internal/persistence/store"
)

func sampleDocs() store.Docs {
	return store.Docs{
		Clans:   store.ClansDoc{Version: 1},
		Players: store.PlayersDoc{Version: 1},
		Timers: store.TimersDoc{Version: 1, LastConsumption: map[string]time.Time{
			"orcs": time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}},
	}
}

func TestWriteReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	path := PathFor(dir, at)
	if err := WriteSnapshot(path, New("test", at, sampleDocs())); err != nil {
		t.Fatalf("write: %v", err)
	}
	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.Version != Version || h.Server != "test" || !h.At.Equal(at) {
		t.Fatalf("header: %+v", h)
	}
	snap, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := snap.Docs.Timers.LastConsumption["orcs"]
	if !got.Equal(at) {
		t.Fatalf("timer lost: %v", got)
	}
	if _, err := os.Stat(path + ".tmp"); err == nil {
		t.Fatalf("tmp file left behind")
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		if err := WriteSnapshot(PathFor(dir, at), New("test", at, sampleDocs())); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	removed, err := Prune(dir, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(removed) != 3 {
		t.Fatalf("want 3 removed, got %v", removed)
	}
	left, _ := List(dir)
	if len(left) != 2 || filepath.Base(left[1]) != filepath.Base(PathFor(dir, base.Add(4*time.Hour))) {
		t.Fatalf("wrong survivors: %v", left)
	}
}

func TestListMissingDir(t *testing.T) {
	files, err := List(filepath.Join(t.TempDir(), "none"))
	if err != nil || len(files) != 0 {
		t.Fatalf("want empty, got %v %v", files, err)
	}
}
