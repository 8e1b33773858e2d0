package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/service/pipeline"
)

// Scheduler drives the analysis pipeline across the tracked countries, on a
// fixed wall-clock interval and on demand. Countries run strictly one at a
// time to respect upstream API rate limits.
type Scheduler struct {
	runner    pipeline.Service
	countries []string
	interval  time.Duration
	delay     time.Duration
	logger    *slog.Logger

	// serializes scheduled batches and manual triggers
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// New creates a scheduler over the given ordered country list. interval is
// the gap between scheduled batches (typically 24h); delay postpones the
// first batch so the process finishes booting before outbound calls start.
func New(runner pipeline.Service, countries []string, interval, delay time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:    runner,
		countries: countries,
		interval:  interval,
		delay:     delay,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the periodic loop in the background. The first batch fires
// after the startup delay, then every interval. Stop terminates the loop.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	select {
	case <-time.After(s.delay):
	case <-s.stop:
		return
	case <-ctx.Done():
		return
	}
	s.RunAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.RunAll(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the periodic loop and waits for an in-flight batch to finish.
// Safe to call more than once.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

// RunAll processes every tracked country in list order. One country's
// failure is logged and the batch moves on; it never aborts the remainder.
func (s *Scheduler) RunAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.InfoContext(ctx, "starting analysis batch", "countries", len(s.countries))
	for _, country := range s.countries {
		if ctx.Err() != nil {
			s.logger.WarnContext(ctx, "batch cancelled", "remaining_from", country)
			return
		}
		if err := s.runOne(ctx, country); err != nil {
			s.logger.ErrorContext(ctx, "country run failed", "country", country, "error", err)
		}
	}
	s.logger.InfoContext(ctx, "analysis batch finished")
}

// RunNow runs a single country synchronously, outside the schedule. Repeat
// triggers before the interval elapses simply append another run.
func (s *Scheduler) RunNow(ctx context.Context, country string) (*analysis.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.Run(ctx, country)
}

// runOne isolates a single country, converting panics into errors so a bad
// upstream payload cannot take the batch down.
func (s *Scheduler) runOne(ctx context.Context, country string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during run for %s: %v", country, r)
		}
	}()
	_, err = s.runner.Run(ctx, country)
	return err
}
