package adminhttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/engine"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/host"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/host/hosttest"
)

type opsRecorder struct {
	saves     atomic.Int32
	reloadErr error
}

func setup(t *testing.T) (*http.ServeMux, *engine.Engine, *opsRecorder) {
	t.Helper()
	h := hosttest.New()
	logger := log.New(io.Discard, "", 0)
	e := engine.New(engine.DefaultConfig(), h, logger, nil)
	grom := h.Join("Grom", host.Position{World: "overworld"})
	h.SetItems(grom, host.Gold, 100)
	if _, err := e.Create(grom, "Orcs"); err != nil {
		t.Fatalf("create: %v", err)
	}
	rec := &opsRecorder{}
	ops := Ops{
		Snapshot: func(context.Context) (string, error) { return "/tmp/clans.snap.zst", nil },
		Save: func(context.Context) error {
			rec.saves.Add(1)
			return nil
		},
		Reload: func() error {
			if rec.reloadErr != nil {
				return rec.reloadErr
			}
			cfg := engine.DefaultConfig()
			cfg.Costs.Create = 5
			e.Reload(cfg)
			return nil
		},
		Stats: func() map[string]any { return map[string]any{"dropped": 0} },
	}
	mux := http.NewServeMux()
	NewServer(e, ops, logger).Register(mux)
	return mux, e, rec
}

func do(mux *http.ServeMux, method, target, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

const local = "127.0.0.1:40000"

func TestAdminRequiresLoopback(t *testing.T) {
	mux, _, _ := setup(t)
	if rec := do(mux, http.MethodGet, "/admin/v1/state", "203.0.113.9:5000"); rec.Code != http.StatusForbidden {
		t.Fatalf("want 403 got %d", rec.Code)
	}
	if rec := do(mux, http.MethodGet, "/healthz", "203.0.113.9:5000"); rec.Code != http.StatusOK {
		t.Fatalf("healthz should be public, got %d", rec.Code)
	}
}

func TestAdminStateAndClan(t *testing.T) {
	mux, _, _ := setup(t)
	rec := do(mux, http.MethodGet, "/admin/v1/state", local)
	if rec.Code != http.StatusOK {
		t.Fatalf("state: %d %s", rec.Code, rec.Body.String())
	}
	var st struct {
		WarsEnabled bool             `json:"wars_enabled"`
		Clans       []engine.Summary `json:"clans"`
		Players     int              `json:"players"`
		Stats       map[string]any   `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.WarsEnabled || len(st.Clans) != 1 || st.Clans[0].Name != "Orcs" || st.Players != 1 || st.Stats == nil {
		t.Fatalf("state: %+v", st)
	}

	if rec := do(mux, http.MethodGet, "/admin/v1/clans/orcs", local); rec.Code != http.StatusOK {
		t.Fatalf("clan info: %d", rec.Code)
	}
	if rec := do(mux, http.MethodGet, "/admin/v1/clans/elves", local); rec.Code != http.StatusNotFound {
		t.Fatalf("missing clan: want 404 got %d", rec.Code)
	}
	if rec := do(mux, http.MethodGet, "/admin/v1/top?n=x", local); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad n: want 400 got %d", rec.Code)
	}
}

func TestAdminWarsDisbandSnapshot(t *testing.T) {
	mux, e, _ := setup(t)
	if rec := do(mux, http.MethodPost, "/admin/v1/wars?enabled=false", local); rec.Code != http.StatusOK {
		t.Fatalf("wars: %d", rec.Code)
	}
	if e.WarsEnabled() {
		t.Fatalf("wars should be disabled")
	}
	if rec := do(mux, http.MethodPost, "/admin/v1/wars?enabled=maybe", local); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad bool: want 400 got %d", rec.Code)
	}

	if rec := do(mux, http.MethodPost, "/admin/v1/disband?clan=Orcs", local); rec.Code != http.StatusOK {
		t.Fatalf("disband: %d %s", rec.Code, rec.Body.String())
	}
	if e.Registry().Count() != 0 {
		t.Fatalf("clan still present")
	}
	if rec := do(mux, http.MethodPost, "/admin/v1/disband?clan=Orcs", local); rec.Code != http.StatusNotFound {
		t.Fatalf("second disband: want 404 got %d", rec.Code)
	}

	rec := do(mux, http.MethodPost, "/admin/v1/snapshot", local)
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot: %d", rec.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out["path"] != "/tmp/clans.snap.zst" {
		t.Fatalf("snapshot path: %v", out)
	}
}

func TestAdminSaveAndReload(t *testing.T) {
	mux, e, ops := setup(t)
	if rec := do(mux, http.MethodPost, "/admin/v1/save", "203.0.113.9:5000"); rec.Code != http.StatusForbidden {
		t.Fatalf("remote save: want 403 got %d", rec.Code)
	}
	if rec := do(mux, http.MethodPost, "/admin/v1/save", local); rec.Code != http.StatusOK {
		t.Fatalf("save: %d %s", rec.Code, rec.Body.String())
	}
	if got := ops.saves.Load(); got != 1 {
		t.Fatalf("want one save, got %d", got)
	}

	if rec := do(mux, http.MethodPost, "/admin/v1/reload", local); rec.Code != http.StatusOK {
		t.Fatalf("reload: %d %s", rec.Code, rec.Body.String())
	}
	if got := e.Config().Costs.Create; got != 5 {
		t.Fatalf("reload not applied: create cost %d", got)
	}

	ops.reloadErr = errors.New("tuning.yaml: costs.join must be >= 0")
	if rec := do(mux, http.MethodPost, "/admin/v1/reload", local); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad reload: want 400 got %d", rec.Code)
	}
	if got := e.Config().Costs.Create; got != 5 {
		t.Fatalf("failed reload changed config: create cost %d", got)
	}
}

func TestAdminOpsUnavailable(t *testing.T) {
	e := engine.New(engine.DefaultConfig(), hosttest.New(), log.New(io.Discard, "", 0), nil)
	mux := http.NewServeMux()
	NewServer(e, Ops{}, nil).Register(mux)
	for _, path := range []string{"/admin/v1/save", "/admin/v1/reload", "/admin/v1/snapshot"} {
		if rec := do(mux, http.MethodPost, path, local); rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s without op: want 503 got %d", path, rec.Code)
		}
	}
}
