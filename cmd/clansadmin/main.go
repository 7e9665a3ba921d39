package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "github.com/notdash999-netizen/simple-clans-mod/internal/persistence/log"
	"github.com/notdash999-netizen/simple-clans-mod/internal/persistence/snapshot"
	"github.com/notdash999-netizen/simple-clans-mod/internal/persistence/store"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "wars":
			warsCmd(os.Args[2:])
			return
		case "disband":
			disbandCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "save":
			postCmd("save", "/admin/v1/save", os.Args[2:])
			return
		case "reload":
			postCmd("reload", "/admin/v1/reload", os.Args[2:])
			return
		}
	}
	dumpCmd(os.Args[1:])
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
		os.Exit(1)
	}
	fmt.Println(string(b))
}

// dumpCmd prints the persisted clans without a running server.
func dumpCmd(args []string) {
	fs := flag.NewFlagSet("clansadmin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	st, warns, err := store.New(filepath.Join(*dataDir, "state")).Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	for _, w := range warns {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	keys := make([]string, 0, len(st.Clans.Clans))
	for k := range st.Clans.Clans {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c := st.Clans.Clans[k]
		war := ""
		if c.AtWar {
			war = " war=" + c.WarTarget
		}
		fmt.Printf("%-12s members=%d vault=%d kills=%d deaths=%d%s\n", c.DisplayName, len(c.Members), c.Vault, c.Kills, c.Deaths, war)
	}
	fmt.Printf("%d clans, %d indexed players, %d pending notices\n", len(st.Clans.Clans), len(st.Clans.Index), len(st.Flagged))
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	clan := fs.String("clan", "", "clan key filter")
	action := fs.String("action", "", "action filter (e.g. WAR_VICTORY)")
	_ = fs.Parse(args)

	files, err := persistlog.Files(filepath.Join(*dataDir, "audit"), "audit")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, f := range files {
		entries, err := persistlog.ReadAudit(f)
		if err != nil {
			// The current hour's file is still open in the server.
			fmt.Fprintln(os.Stderr, "read:", err)
		}
		for _, e := range entries {
			if *clan != "" && e.Clan != *clan && e.Target != *clan {
				continue
			}
			if *action != "" && !strings.EqualFold(e.Action, *action) {
				continue
			}
			_ = enc.Encode(e)
		}
	}
}

func snapshotCmd(args []string) {
	if len(args) == 0 {
		takeSnapshotCmd(args)
		return
	}
	switch args[0] {
	case "take":
		takeSnapshotCmd(args[1:])
	case "list":
		fs := flag.NewFlagSet("snapshot list", flag.ExitOnError)
		dataDir := fs.String("data", "./data", "runtime data directory")
		_ = fs.Parse(args[1:])
		files, err := snapshot.List(filepath.Join(*dataDir, "snapshots"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "list:", err)
			os.Exit(1)
		}
		for _, f := range files {
			h, err := snapshot.ReadHeader(f)
			if err != nil {
				fmt.Printf("%s\tunreadable: %v\n", f, err)
				continue
			}
			fmt.Printf("%s\t%s\tclans=%d players=%d\n", f, h.At.Format("2006-01-02T15:04:05Z"), h.Clans, h.Players)
		}
	case "inspect":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: clansadmin snapshot inspect <path>")
			os.Exit(2)
		}
		snap, err := snapshot.ReadSnapshot(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		printJSON(snap)
	case "restore":
		fs := flag.NewFlagSet("snapshot restore", flag.ExitOnError)
		dataDir := fs.String("data", "./data", "runtime data directory")
		_ = fs.Parse(args[1:])
		if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "usage: clansadmin snapshot restore [-data dir] <path>  (server must be stopped)")
			os.Exit(2)
		}
		snap, err := snapshot.ReadSnapshot(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		if err := store.New(filepath.Join(*dataDir, "state")).WriteDocs(snap.Docs); err != nil {
			fmt.Fprintln(os.Stderr, "write:", err)
			os.Exit(1)
		}
		fmt.Printf("restored %d clans from %s\n", snap.Header.Clans, fs.Arg(0))
	default:
		fmt.Fprintf(os.Stderr, "unknown snapshot command %q (take, list, inspect, restore)\n", args[0])
		os.Exit(2)
	}
}
