// Package indexdb keeps a queryable SQLite index of audit history, war
// outcomes and the power board. The JSONL audit files and the JSON state
// documents remain the source of truth; the index may drop writes when it
// falls behind.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/engine"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropAudit    atomic.Uint64
	dropBoard    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
	reqBoard
	reqSnapshot
	reqFlush
)

type req struct {
	kind reqKind

	audit    engine.AuditEntry
	board    boardRows
	snapshot SnapshotRow
	ack      chan struct{}
}

type boardRows struct {
	At      time.Time
	Entries []engine.TopEntry
}

// SnapshotRow describes one backup file.
type SnapshotRow struct {
	Path    string
	At      time.Time
	Clans   int
	Players int
}

// Stats reports queue pressure.
type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropAuditTotal    uint64
	DropBoardTotal    uint64
	DropSnapshotTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			clan TEXT NOT NULL,
			target TEXT NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_clan ON audits(clan, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor ON audits(actor, seq);`,
		`CREATE TABLE IF NOT EXISTS wars (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			outcome TEXT NOT NULL,
			winner TEXT NOT NULL,
			loser TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_wars_winner ON wars(winner);`,
		`CREATE TABLE IF NOT EXISTS board (
			clan TEXT PRIMARY KEY,
			rank INTEGER NOT NULL,
			power INTEGER NOT NULL,
			members INTEGER NOT NULL,
			at_war INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			path TEXT PRIMARY KEY,
			at TEXT NOT NULL,
			clans INTEGER NOT NULL,
			players INTEGER NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

// WriteAudit satisfies engine.AuditLogger. It never blocks.
func (s *SQLiteIndex) WriteAudit(entry engine.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.enqueue(req{kind: reqAudit, audit: entry}, &s.dropAudit)
	return nil
}

// RecordBoard replaces the stored power board.
func (s *SQLiteIndex) RecordBoard(at time.Time, entries []engine.TopEntry) {
	if s == nil || s.closed.Load() {
		return
	}
	cp := append([]engine.TopEntry(nil), entries...)
	s.enqueue(req{kind: reqBoard, board: boardRows{At: at, Entries: cp}}, &s.dropBoard)
}

func (s *SQLiteIndex) RecordSnapshot(row SnapshotRow) {
	if s == nil || s.closed.Load() || row.Path == "" {
		return
	}
	s.enqueue(req{kind: reqSnapshot, snapshot: row}, &s.dropSnapshot)
}

// Flush commits everything queued so far.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	ack := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, ack: ack}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropAuditTotal:    s.dropAudit.Load(),
		DropBoardTotal:    s.dropBoard.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func ts(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertAudit, _ := s.db.Prepare(`INSERT INTO audits(at,actor,action,clan,target,reason,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertWar, _ := s.db.Prepare(`INSERT INTO wars(at,outcome,winner,loser) VALUES(?,?,?,?)`)
	insertBoard, _ := s.db.Prepare(`INSERT OR REPLACE INTO board(clan,rank,power,members,at_war,updated_at) VALUES(?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(path,at,clans,players) VALUES(?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertAudit, insertWar, insertBoard, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.ack)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqAudit:
			a := r.audit
			raw, _ := json.Marshal(a)
			if !exec(insertAudit, ts(a.At), a.Actor, a.Action, a.Clan, a.Target, a.Reason, string(raw)) {
				continue
			}
			switch a.Action {
			case "WAR_VICTORY":
				exec(insertWar, ts(a.At), "victory", a.Clan, a.Target)
			case "WAR_EXPIRED":
				exec(insertWar, ts(a.At), "expired", a.Clan, a.Target)
			}

		case reqBoard:
			if _, err := tx.Exec(`DELETE FROM board`); err != nil {
				rollback()
				continue
			}
			for _, e := range r.board.Entries {
				atWar := 0
				if e.AtWar {
					atWar = 1
				}
				if !exec(insertBoard, e.Clan, e.Rank, e.Power, e.Members, atWar, ts(r.board.At)) {
					break
				}
			}

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, sn.Path, ts(sn.At), sn.Clans, sn.Players)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
