package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/okian/faceoff/internal/simulate"
)

func main() {
	os.Exit(run())
}

func run() int {
	def := simulate.DefaultConfig()
	var (
		items       = flag.Int("items", def.Items, "Items to seed")
		owners      = flag.Int("owners", def.Owners, "Owners to spread items over")
		voters      = flag.Int("voters", def.Voters, "Concurrent voters")
		ballots     = flag.Int("ballots", def.Ballots, "Distinct ballots")
		replay      = flag.Float64("replay", def.ReplayRate, "Share of ballots sent twice")
		noise       = flag.Float64("noise", def.Noise, "Judge temperature")
		pool        = flag.Int("pool", def.PoolLimit, "Least-voted pool size")
		queueCap    = flag.Int("queue", def.QueueCapacity, "Ballot queue capacity")
		top         = flag.Int("top", def.TopN, "Leaders to log")
		minSpearman = flag.Float64("min-spearman", def.MinSpearman, "Fail below this rank correlation")
		backend     = flag.String("backend", def.Backend, "memory or sqlite")
		dbPath      = flag.String("db", "", "SQLite file (default: temp file)")
		seed        = flag.Uint64("seed", 0, "Random seed, 0 for random")
		timeout     = flag.Duration("timeout", def.Timeout, "Overall timeout")
		logFile     = flag.String("log", "", `Log file, "-" for stdout only`)
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return 0
	}

	closer, err := simulate.SetupLogging(*logFile, *verbose)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = closer.Close() }()

	path := *dbPath
	if *backend == simulate.BackendSQLite && path == "" {
		dir, err := os.MkdirTemp("", "faceoff-sim-*")
		if err != nil {
			_, _ = os.Stderr.WriteString("Failed to create temp dir: " + err.Error() + "\n")
			return 1
		}
		defer func() { _ = os.RemoveAll(dir) }()
		path = filepath.Join(dir, "simulate.db")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &simulate.Config{
		Items:         *items,
		Owners:        *owners,
		Voters:        *voters,
		Ballots:       *ballots,
		ReplayRate:    *replay,
		Noise:         *noise,
		PoolLimit:     *pool,
		QueueCapacity: *queueCap,
		TopN:          *top,
		MinSpearman:   *minSpearman,
		Backend:       *backend,
		SQLitePath:    path,
		Seed:          *seed,
		Timeout:       *timeout,
	}
	if _, err := simulate.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return 1
	}
	return 0
}
