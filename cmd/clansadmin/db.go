package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/notdash999-netizen/simple-clans-mod/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	clan := fs.String("clan", "", "clan key filter (audits)")
	_ = fs.Parse(args)

	q := "board"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "clans.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out any
	switch q {
	case "board":
		out, err = idx.Board(ctx)
	case "audits":
		out, err = idx.Audits(ctx, *clan, *limit)
	case "wars":
		out, err = idx.Wars(ctx, *limit)
	case "wins":
		out, err = idx.WarWins(ctx)
	case "snapshots":
		out, err = idx.Snapshots(ctx, *limit)
	default:
		fmt.Fprintf(os.Stderr, "unknown query %q (board, audits, wars, wins, snapshots)\n", q)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	printJSON(out)
}
