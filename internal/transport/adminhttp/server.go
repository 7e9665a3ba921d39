// Package adminhttp serves the loopback-only operator API of clansd.
package adminhttp

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/engine"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"
)

// SnapshotFunc writes a backup and returns its path.
type SnapshotFunc func(ctx context.Context) (string, error)

// Ops are the process-level actions behind the admin routes. A nil field
// answers 503 on its route.
type Ops struct {
	Snapshot SnapshotFunc
	// Save writes the clan documents now.
	Save func(ctx context.Context) error
	// Reload re-reads tuning from disk into the engine.
	Reload func() error
	Stats  func() map[string]any
}

type Server struct {
	engine  *engine.Engine
	log     *log.Logger
	ops     Ops
	started time.Time
}

func NewServer(e *engine.Engine, ops Ops, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{engine: e, log: logger, ops: ops, started: time.Now()}
}

// Register mounts the admin routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("GET /admin/v1/state", s.loopback(s.stateHandler))
	mux.HandleFunc("GET /admin/v1/top", s.loopback(s.topHandler))
	mux.HandleFunc("GET /admin/v1/clans/{name}", s.loopback(s.clanHandler))
	mux.HandleFunc("POST /admin/v1/wars", s.loopback(s.warsHandler))
	mux.HandleFunc("POST /admin/v1/disband", s.loopback(s.disbandHandler))
	mux.HandleFunc("POST /admin/v1/snapshot", s.loopback(s.snapshotHandler))
	mux.HandleFunc("POST /admin/v1/save", s.loopback(s.saveHandler))
	mux.HandleFunc("POST /admin/v1/reload", s.loopback(s.reloadHandler))
}

func (s *Server) loopback(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func (s *Server) stateHandler(rw http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"uptime_s":     int64(time.Since(s.started).Seconds()),
		"wars_enabled": s.engine.WarsEnabled(),
		"clans":        s.engine.Summaries(),
		"players":      s.engine.Registry().PlayerCount(),
	}
	if s.ops.Stats != nil {
		resp["stats"] = s.ops.Stats()
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) topHandler(rw http.ResponseWriter, r *http.Request) {
	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		x, err := strconv.Atoi(v)
		if err != nil || x <= 0 {
			http.Error(rw, "bad n", http.StatusBadRequest)
			return
		}
		n = x
	}
	writeJSON(rw, http.StatusOK, s.engine.Top(n))
}

func (s *Server) clanHandler(rw http.ResponseWriter, r *http.Request) {
	info, err := s.engine.Info(r.PathValue("name"))
	if err != nil {
		writeFailure(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, info)
}

func (s *Server) warsHandler(rw http.ResponseWriter, r *http.Request) {
	on, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		http.Error(rw, "enabled must be a bool", http.StatusBadRequest)
		return
	}
	s.engine.SetWarsEnabled(on)
	s.log.Printf("admin: wars enabled=%v", on)
	writeJSON(rw, http.StatusOK, map[string]any{"wars_enabled": on})
}

func (s *Server) disbandHandler(rw http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("clan"))
	if name == "" {
		http.Error(rw, "missing clan", http.StatusBadRequest)
		return
	}
	if err := s.engine.AdminDisband(name); err != nil {
		writeFailure(rw, err)
		return
	}
	s.log.Printf("admin: disbanded %s", name)
	writeJSON(rw, http.StatusOK, map[string]any{"disbanded": name})
}

func (s *Server) snapshotHandler(rw http.ResponseWriter, r *http.Request) {
	if s.ops.Snapshot == nil {
		http.Error(rw, "snapshots disabled", http.StatusServiceUnavailable)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	path, err := s.ops.Snapshot(ctx)
	if err != nil {
		s.log.Printf("admin: snapshot: %v", err)
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"path": path})
}

func (s *Server) saveHandler(rw http.ResponseWriter, r *http.Request) {
	if s.ops.Save == nil {
		http.Error(rw, "save unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	if err := s.ops.Save(ctx); err != nil {
		s.log.Printf("admin: save: %v", err)
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Printf("admin: clan data saved")
	writeJSON(rw, http.StatusOK, map[string]any{"saved": true})
}

func (s *Server) reloadHandler(rw http.ResponseWriter, r *http.Request) {
	if s.ops.Reload == nil {
		http.Error(rw, "reload unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := s.ops.Reload(); err != nil {
		s.log.Printf("admin: reload: %v", err)
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"reloaded": true})
}

func writeFailure(rw http.ResponseWriter, err error) {
	code := failure.CodeOf(err)
	status := http.StatusBadRequest
	switch code {
	case failure.ClanNotFound:
		status = http.StatusNotFound
	case "":
		status = http.StatusInternalServerError
	}
	writeJSON(rw, status, map[string]any{"code": string(code), "error": err.Error()})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
