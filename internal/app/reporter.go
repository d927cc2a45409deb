package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/okian/faceoff/pkg/logger"
	"github.com/okian/faceoff/pkg/metrics"
)

// StandingsReporter periodically logs the leaders and refreshes the pool
// gauges on a cron schedule.
type StandingsReporter struct {
	svc    *Service
	top    int
	cron   *cron.Cron
	logger logger.Logger

	mu      sync.Mutex
	started bool
}

// NewStandingsReporter schedules a report of the top entries. schedule uses
// standard cron syntax or descriptors such as "@every 1m".
func NewStandingsReporter(svc *Service, schedule string, top int, l logger.Logger) (*StandingsReporter, error) {
	if top < 1 {
		return nil, fmt.Errorf("standings reporter: top must be positive, got %d", top)
	}
	if l == nil {
		l = logger.Nop()
	}
	r := &StandingsReporter{
		svc:    svc,
		top:    top,
		cron:   cron.New(),
		logger: l.Named("standings"),
	}
	if _, err := r.cron.AddFunc(schedule, func() { r.Report(context.Background()) }); err != nil {
		return nil, fmt.Errorf("standings reporter: schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start begins the schedule. Calling it twice is a no-op.
func (r *StandingsReporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		r.cron.Start()
		r.started = true
	}
}

// Stop halts the schedule and waits for a running report to finish or ctx
// to end.
func (r *StandingsReporter) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	r.started = false
	select {
	case <-r.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stopping standings reporter: %w", ctx.Err())
	}
}

// Report runs one report immediately.
func (r *StandingsReporter) Report(ctx context.Context) {
	n, err := r.svc.ratings.Count(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("standings", "count")
		r.logger.Error(ctx, "count items", logger.Error(err))
		return
	}
	metrics.UpdateItemsTotal(n)
	metrics.RecordStandingsReport()
	if n == 0 {
		r.logger.Info(ctx, "no items yet")
		return
	}

	leaders, err := r.svc.Leaderboard(ctx, r.top)
	if err != nil {
		metrics.RecordErrorByComponent("standings", "leaderboard")
		r.logger.Error(ctx, "load leaderboard", logger.Error(err))
		return
	}
	metrics.UpdateTopRating(leaders[0].Rating)
	for _, st := range leaders {
		r.logger.Info(ctx, "standing",
			logger.Int("rank", st.Rank),
			logger.String("id", st.ID),
			logger.String("owner", st.Owner),
			logger.Float64("rating", st.Rating),
			logger.Int64("votes", st.TotalVotes),
		)
	}
}
