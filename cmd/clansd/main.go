package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/engine"
	"github.com/notdash999-netizen/simple-clans-mod/internal/persistence/indexdb"
	persistlog "github.com/notdash999-netizen/simple-clans-mod/internal/persistence/log"
	"github.com/notdash999-netizen/simple-clans-mod/internal/persistence/snapshot"
	"github.com/notdash999-netizen/simple-clans-mod/internal/persistence/store"
	"github.com/notdash999-netizen/simple-clans-mod/internal/scheduler"
	"github.com/notdash999-netizen/simple-clans-mod/internal/transport/adminhttp"
	"github.com/notdash999-netizen/simple-clans-mod/internal/transport/ws"
	"github.com/notdash999-netizen/simple-clans-mod/internal/tuning"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		tuningPath  = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite index")
		bridgeToken = flag.String("bridge_token", "", "shared secret the game server sends in HELLO (or set CLANS_BRIDGE_TOKEN)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[clansd] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", *tuningPath)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	token := strings.TrimSpace(*bridgeToken)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("CLANS_BRIDGE_TOKEN"))
	}
	snapshotEvery := time.Duration(envInt("CLANS_SNAPSHOT_EVERY_MIN", 60)) * time.Minute
	snapshotKeep := envInt("CLANS_SNAPSHOT_KEEP", 24)
	snapshotDir := filepath.Join(*dataDir, "snapshots")

	// State.
	st := store.New(filepath.Join(*dataDir, "state"))
	state, warns, err := st.Load()
	if err != nil {
		logger.Printf("state: load failed, starting empty: %v", err)
		state = engine.State{}
	}
	for _, w := range warns {
		logger.Printf("state: %s", w)
	}

	bridge := ws.NewBridge(logger)
	eng := engine.New(tune.Engine(), bridge, logger, time.Now)
	for _, w := range eng.Import(state) {
		logger.Printf("state: %s", w)
	}
	logger.Printf("loaded %d clans, %d players", eng.Registry().Count(), eng.Registry().PlayerCount())

	// Audit trail and read model.
	audit := persistlog.NewAuditLogger(*dataDir)
	defer audit.Close()
	sinks := persistlog.Fanout{audit}
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "clans.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		sinks = append(sinks, idx)
	}
	eng.SetAuditLogger(sinks)

	persister := store.NewPersister(st, eng.Export, tune.PersistDebounce(), tune.PersistMaxWait(), logger)
	eng.SetOnChange(persister.Schedule)

	takeSnapshot := func(ctx context.Context) (string, error) {
		now := time.Now()
		docs := store.Encode(eng.Export())
		path := snapshot.PathFor(snapshotDir, now)
		snap := snapshot.New("clansd", now, docs)
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			return "", err
		}
		idx.RecordSnapshot(indexdb.SnapshotRow{Path: path, At: now, Clans: snap.Header.Clans, Players: snap.Header.Players})
		if removed, err := snapshot.Prune(snapshotDir, snapshotKeep); err != nil {
			logger.Printf("snapshot: prune: %v", err)
		} else if len(removed) > 0 {
			logger.Printf("snapshot: pruned %d old backups", len(removed))
		}
		return path, nil
	}

	// Periodic tasks.
	sched := scheduler.New(logger)
	sched.Every("proximity", tune.ProximityEvery(), func(ctx context.Context) error {
		eng.TickProximity()
		return nil
	})
	sched.Every("vault_decay", tune.DecayEvery(), func(ctx context.Context) error {
		eng.TickDecay()
		return nil
	})
	sched.Every("cleanup", tune.CleanupEvery(), func(ctx context.Context) error {
		if n := eng.Sweep(); n > 0 {
			logger.Printf("cleanup: reclaimed %d expired entries", n)
		}
		return nil
	})
	sched.Every("war_expiry", time.Minute, func(ctx context.Context) error {
		eng.ExpireWars()
		return nil
	})
	if idx != nil {
		sched.Every("board", tune.BoardEvery(), func(ctx context.Context) error {
			idx.RecordBoard(time.Now(), eng.Top(eng.Registry().Count()))
			return nil
		})
	}
	if snapshotEvery > 0 {
		sched.Every("snapshot", snapshotEvery, func(ctx context.Context) error {
			_, err := takeSnapshot(ctx)
			return err
		})
	}
	sched.Start()

	wsSrv, err := ws.NewServer(eng, bridge, ws.Config{
		Token:             token,
		CommandsPerSecond: tune.Bridge.CommandsPerSecond,
		CommandBurst:      tune.Bridge.CommandBurst,
	}, logger)
	if err != nil {
		logger.Fatalf("bridge: %v", err)
	}
	if token == "" {
		logger.Printf("bridge: no token configured; any game server may connect")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/bridge", wsSrv.Handler())

	stats := func() map[string]any {
		return map[string]any{
			"bridge_dropped": bridge.Dropped(),
			"persist_saves":  persister.Saves(),
			"index":          idx.Stats(),
			"tasks":          sched.Stats(),
		}
	}
	if envBool("CLANS_ENABLE_ADMIN_HTTP", true) {
		adminhttp.NewServer(eng, adminhttp.Ops{
			Snapshot: takeSnapshot,
			Save:     persister.Flush,
			Reload: func() error {
				t, err := tuning.Load(*tuningPath)
				if err != nil {
					return err
				}
				eng.Reload(t.Engine())
				return nil
			},
			Stats: stats,
		}, logger).Register(mux)
	} else {
		logger.Printf("admin endpoints disabled (CLANS_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("CLANS_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		// Strip proximity buffs while the game server is still attached.
		eng.Shutdown()
		wsSrv.Close()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	if !sched.Stop(tune.ShutdownGrace()) {
		logger.Printf("shutdown: forced task termination")
	}
	persister.Close()
	logger.Printf("shutdown complete")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
