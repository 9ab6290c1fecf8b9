package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/HerbHall/portscout/internal/config"
	"github.com/HerbHall/portscout/internal/history"
	"github.com/HerbHall/portscout/internal/store"
	"github.com/HerbHall/portscout/internal/target"
	"github.com/HerbHall/portscout/internal/version"
)

// runHistory lists recorded scans, newest first.
func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "maximum number of scans to list")
	dbPath := fs.String("db", "", "path to the history database (overrides config)")
	configPath := fs.String("config", "", "path to configuration file")
	fs.Parse(args)

	viperCfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	path := *dbPath
	if path == "" {
		path = viperCfg.GetString("database.path")
	}

	db, err := store.New(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database %s: %v\n", path, err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.CheckVersion(ctx, version.Version); err != nil {
		fmt.Fprintf(os.Stderr, "cannot read database %s: %v\n", path, err)
		os.Exit(1)
	}

	histStore, err := history.NewStore(ctx, db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open scan history: %v\n", err)
		os.Exit(1)
	}

	records, err := histStore.ListScans(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list scans: %v\n", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		fmt.Println("No scans recorded.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tTARGET\tPROBED\tOPEN\tDURATION\tPORTS")
	for _, r := range records {
		tgt := (&target.Target{IP: r.TargetIP, Domain: r.TargetDomain}).Display()
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			tgt,
			r.Probed,
			len(r.OpenPorts),
			r.Duration.Round(time.Millisecond),
			formatPorts(r.OpenPorts),
		)
	}
	w.Flush()
}

func formatPorts(ports []int) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
