package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/faceoff/internal/adapters/http/api"
	"github.com/okian/faceoff/internal/adapters/repository"
	service "github.com/okian/faceoff/internal/app"
	"github.com/okian/faceoff/internal/config"
	"github.com/okian/faceoff/internal/ranking"
	"github.com/okian/faceoff/pkg/logger"
	"github.com/okian/faceoff/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't configured yet.
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := setupLogging(cfg); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, cfg, nil); err != nil {
		logger.Get().Error(ctx, "faceoff stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) error {
	if err := logger.InitWith(os.Stdout, logger.Format(cfg.LogFormat)); err != nil {
		return err
	}
	return logger.SetLevelString(cfg.LogLevel)
}

// openStore builds the configured repository backend.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return repository.NewTreapStore(), nil
	case config.DriverSQLite:
		s, err := repository.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", config.ErrInvalidConfig, cfg.StorageDriver)
	}
}

// newService wires the ranking core and the service over repo.
func newService(cfg *config.Config, repo repository.Store, log logger.Logger) *service.Service {
	rs := ranking.NewRatingStore(repo,
		ranking.WithDefaultRating(cfg.DefaultRating),
		ranking.WithLogger(log),
	)
	sel := ranking.NewPairSelector(repo,
		ranking.WithPoolLimit(cfg.PairPoolLimit),
		ranking.WithLogger(log),
	)
	return service.New(rs, sel,
		service.WithPoolLimit(cfg.PairPoolLimit),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithLogger(log),
	)
}

// run serves until ctx is canceled. When ready is non-nil it receives the
// bound listen address once the HTTP server accepts connections.
func run(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	log := logger.Get()

	repo, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error(context.Background(), "close store", logger.Error(err))
		}
	}()
	log.Info(ctx, "storage ready", logger.String("driver", cfg.StorageDriver))

	svc := newService(cfg, repo, log)

	if cfg.StandingsCron != "" {
		reporter, err := service.NewStandingsReporter(svc, cfg.StandingsCron, cfg.StandingsTop, log)
		if err != nil {
			return err
		}
		reporter.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := reporter.Stop(stopCtx); err != nil {
				log.Error(stopCtx, "stop standings reporter", logger.Error(err))
			}
		}()
	}

	mux := http.NewServeMux()
	api.NewServer(svc, 0).Register(mux)

	srv := &http.Server{
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx, metrics.RefreshInterval())
		return nil
	})

	if ready != nil {
		ready <- ln.Addr().String()
	}

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	updateSystemMetrics()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
