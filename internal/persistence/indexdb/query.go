package indexdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/engine"
)

// AuditRow is one indexed audit entry.
type AuditRow struct {
	Seq    int64
	At     time.Time
	Actor  string
	Action string
	Clan   string
	Target string
	Reason string
}

type WarRow struct {
	Seq     int64
	At      time.Time
	Outcome string
	Winner  string
	Loser   string
}

func parseTS(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// Audits returns the newest entries first. An empty clan matches every
// clan.
func (s *SQLiteIndex) Audits(ctx context.Context, clan string, limit int) ([]AuditRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows *sql.Rows
		err  error
	)
	if clan == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT seq,at,actor,action,clan,target,COALESCE(reason,'') FROM audits ORDER BY seq DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT seq,at,actor,action,clan,target,COALESCE(reason,'') FROM audits WHERE clan=? OR target=? ORDER BY seq DESC LIMIT ?`, clan, clan, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		var at string
		if err := rows.Scan(&r.Seq, &at, &r.Actor, &r.Action, &r.Clan, &r.Target, &r.Reason); err != nil {
			return nil, err
		}
		r.At = parseTS(at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Wars lists finished wars, newest first.
func (s *SQLiteIndex) Wars(ctx context.Context, limit int) ([]WarRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT seq,at,outcome,winner,loser FROM wars ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WarRow
	for rows.Next() {
		var r WarRow
		var at string
		if err := rows.Scan(&r.Seq, &at, &r.Outcome, &r.Winner, &r.Loser); err != nil {
			return nil, err
		}
		r.At = parseTS(at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Board returns the last recorded power board in rank order.
func (s *SQLiteIndex) Board(ctx context.Context) ([]engine.TopEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT clan,rank,power,members,at_war FROM board ORDER BY rank ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []engine.TopEntry
	for rows.Next() {
		var e engine.TopEntry
		var atWar int
		if err := rows.Scan(&e.Clan, &e.Rank, &e.Power, &e.Members, &atWar); err != nil {
			return nil, err
		}
		e.AtWar = atWar != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// WarWins counts victories per clan key.
func (s *SQLiteIndex) WarWins(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT winner, COUNT(*) FROM wars WHERE outcome='victory' GROUP BY winner`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

// Snapshots lists recorded backups, newest first.
func (s *SQLiteIndex) Snapshots(ctx context.Context, limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT path,at,clans,players FROM snapshots ORDER BY at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		var at string
		if err := rows.Scan(&r.Path, &at, &r.Clans, &r.Players); err != nil {
			return nil, err
		}
		r.At = parseTS(at)
		out = append(out, r)
	}
	return out, rows.Err()
}
