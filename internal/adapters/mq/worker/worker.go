// Package worker runs simulated voters that take ballots off a queue, ask
// for a pair, judge it and cast the vote.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/faceoff/internal/domain/model"
	"github.com/okian/faceoff/pkg/logger"
	"github.com/okian/faceoff/pkg/metrics"
)

const defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()

// Matchmaker hands out the next pair to judge.
type Matchmaker interface {
	NextPair(ctx context.Context) (model.Item, model.Item, error)
}

// Judge decides which item of a pair wins for a given ballot.
type Judge interface {
	Judge(ctx context.Context, ballot model.Ballot, a, b model.Item) (winner, loser model.Item, err error)
}

// Caster records a judged ballot. duplicate is true when the ballot id had
// already been counted.
type Caster interface {
	CastBallot(ctx context.Context, ballotID, winnerID, loserID string) (duplicate bool, err error)
}

// Queue defines how workers receive ballots.
type Queue interface {
	Dequeue() <-chan model.Ballot
}

// Counters tracks what a pool has done. Safe for concurrent use.
type Counters struct {
	Cast       atomic.Int64
	Duplicates atomic.Int64
	Failed     atomic.Int64
}

// InMemoryWorker processes ballots until the queue is drained or ctx ends.
type InMemoryWorker struct {
	queue      Queue
	matchmaker Matchmaker
	judge      Judge
	caster     Caster
	counters   *Counters
	name       string
	logger     logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, m Matchmaker, j Judge, c Caster, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		matchmaker: m,
		judge:      j,
		caster:     c,
		counters:   &Counters{},
		name:       "worker",
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get()
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes ballots until the queue channel closes or ctx is done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	ballots := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-ballots:
			if !ok {
				return
			}
			if err := w.process(ctx, b); err != nil {
				w.counters.Failed.Add(1)
				metrics.RecordWorkerError()
				w.logger.Warn(ctx, "ballot failed", logger.String("ballot", b.ID), logger.Error(err))
			}
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, b model.Ballot) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	x, y, err := w.matchmaker.NextPair(ctx)
	if err != nil {
		return fmt.Errorf("next pair: %w", err)
	}
	winner, loser, err := w.judge.Judge(ctx, b, x, y)
	if err != nil {
		return fmt.Errorf("judge %s vs %s: %w", x.ID, y.ID, err)
	}
	dup, err := w.caster.CastBallot(ctx, b.ID, winner.ID, loser.ID)
	if err != nil {
		return fmt.Errorf("cast: %w", err)
	}
	if dup {
		w.counters.Duplicates.Add(1)
		return nil
	}
	w.counters.Cast.Add(1)
	return nil
}

// Pool runs a fixed set of workers sharing one queue and one set of counters.
type Pool struct {
	workers  []*InMemoryWorker
	counters *Counters
	wg       sync.WaitGroup
	logger   logger.Logger
}

// NewPool creates workerCount workers. workerCount < 1 picks a default
// based on the CPU count.
func NewPool(workerCount int, q Queue, m Matchmaker, j Judge, c Caster, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		counters: &Counters{},
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("voter-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, m, j, c, wopts...)
		w.counters = p.counters
		p.workers[i] = w
	}

	base := &InMemoryWorker{}
	for _, opt := range opts {
		opt(base)
	}
	if base.logger == nil {
		base.logger = logger.Get()
	}
	p.logger = base.logger.Named("pool")
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	metrics.UpdateWorkerActive(len(p.workers))
	for _, w := range p.workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.Run(ctx)
		}()
	}
	p.logger.Info(ctx, "voter pool started", logger.Int("workers", len(p.workers)))
}

// Wait blocks until every worker has returned. Workers return once the
// queue is closed and drained, or their context ends.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		metrics.UpdateWorkerActive(0)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for voters: %w", ctx.Err())
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Counters returns the shared counters.
func (p *Pool) Counters() *Counters { return p.counters }
