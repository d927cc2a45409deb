package simulate

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/faceoff/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends logs to stdout and, when logFile is not "-", to a
// file as well. An empty logFile gets a timestamped name.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	var (
		w      io.Writer = os.Stdout
		closer io.Closer = io.NopCloser(nil)
	)
	if logFile != "-" {
		if logFile == "" {
			logFile = "simulate_" + time.Now().Format("20060102_150405") + ".log"
		}
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	if err := logger.InitWith(w, logger.FormatText); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return nil, err
		}
	}
	if logFile != "-" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return closer, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`faceoff simulator
=================

Seeds a pool of items with hidden quality, lets concurrent simulated voters
judge pairs chosen by the selector, and checks that the ratings stay
consistent and recover the hidden order.

Usage:
  go run ./cmd/simulate [options]

Options:
  -items int        items to seed (default 50)
  -owners int       owners to spread items over (default 5)
  -voters int       concurrent voters (default 8)
  -ballots int      distinct ballots (default 5000)
  -replay float     share of ballots sent twice (default 0.05)
  -noise float      judge temperature (default 1.0)
  -pool int         least-voted pool size (default 10)
  -queue int        ballot queue capacity (default 1024)
  -top int          leaders to log (default 10)
  -min-spearman f   fail below this rank correlation (default 0.5)
  -backend string   memory or sqlite (default memory)
  -db string        sqlite file, must not exist yet (default: temp file)
  -seed uint        random seed, 0 for random (default 0)
  -timeout dur      overall timeout (default 5m)
  -log string       log file, "-" for stdout only (default: simulate_TIMESTAMP.log)
  -verbose          debug logging
  -help             show this help

Examples:
  go run ./cmd/simulate -items 200 -ballots 50000 -voters 32
  go run ./cmd/simulate -backend sqlite -seed 42 -log -
`)
}
