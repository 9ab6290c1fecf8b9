package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/HerbHall/portscout/internal/config"
	"github.com/HerbHall/portscout/internal/event"
	"github.com/HerbHall/portscout/internal/history"
	"github.com/HerbHall/portscout/internal/report"
	"github.com/HerbHall/portscout/internal/scan"
	"github.com/HerbHall/portscout/internal/store"
	"github.com/HerbHall/portscout/internal/target"
	"github.com/HerbHall/portscout/internal/version"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	// Subcommand dispatch (before flag.Parse).
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "history":
			runHistory(os.Args[2:])
			return
		case "version":
			fmt.Println(version.Info())
			return
		}
	}

	ip := flag.String("ip", "", "IPv4 address to scan")
	domain := flag.String("domain", "", "domain name to resolve and scan")
	output := flag.String("output", "output.txt", "path of the report file")
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("PortScout starting", zap.String("version", version.Short()))
	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("source", f))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	// A bad target means no probe is ever scheduled.
	resolver := target.NewResolver(viperCfg.GetDuration("resolve.timeout"), logger.Named("target"))
	tgt, err := resolver.Resolve(ctx, *ip, *domain)
	if err != nil {
		logger.Fatal("invalid target", zap.Error(err))
	}
	logger.Info("target resolved", zap.String("target", tgt.Display()))

	bus := event.NewBus(logger.Named("event"))

	// Live discovery lines go to stdout as ports are found; the report
	// file is written after the sweep.
	console := report.NewConsole(os.Stdout, logger.Named("report"))
	console.Subscribe(bus)

	if db := openHistory(ctx, viperCfg, bus, logger); db != nil {
		defer db.Close()
	}

	scanCfg := scan.Config{
		ProbeTimeout: viperCfg.GetDuration("scan.probe_timeout"),
		Concurrency:  viperCfg.GetInt("scan.concurrency"),
		MaxRate:      viperCfg.GetInt("scan.max_rate"),
		PingFirst:    viperCfg.GetBool("scan.ping_first"),
		PingTimeout:  viperCfg.GetDuration("scan.ping_timeout"),
		PingCount:    viperCfg.GetInt("scan.ping_count"),
	}
	scanner := scan.NewScanner(scanCfg, bus, logger.Named("scan"))

	res, err := scanner.Run(ctx, tgt)
	if err != nil {
		logger.Fatal("scan aborted", zap.Error(err))
	}

	if err := report.WriteFile(*output, tgt, res.OpenPorts, logger.Named("report")); err != nil {
		logger.Fatal("failed to write report", zap.Error(err))
	}
	fmt.Printf("Results saved to %s\n", *output)
}

// openHistory wires scan persistence. History is supplementary: any
// failure disables it with a warning and the scan proceeds.
func openHistory(ctx context.Context, viperCfg *viper.Viper, bus *event.Bus, logger *zap.Logger) *store.SQLiteStore {
	dbPath := viperCfg.GetString("database.path")

	db, err := store.New(dbPath)
	if err != nil {
		logger.Warn("scan history disabled: cannot open database",
			zap.String("path", dbPath), zap.Error(err))
		return nil
	}
	if err := db.CheckVersion(ctx, version.Version); err != nil {
		logger.Warn("scan history disabled: schema version check failed",
			zap.String("path", dbPath), zap.Error(err))
		db.Close()
		return nil
	}
	histStore, err := history.NewStore(ctx, db)
	if err != nil {
		logger.Warn("scan history disabled: migration failed",
			zap.String("path", dbPath), zap.Error(err))
		db.Close()
		return nil
	}

	history.NewRecorder(histStore, logger.Named("history")).Subscribe(bus)
	logger.Info("scan history enabled", zap.String("path", dbPath))
	return db
}
