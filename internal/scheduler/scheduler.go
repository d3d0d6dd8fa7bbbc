package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

// Pruner is the part of the report store the retention job needs.
type Pruner interface {
	PruneReports(ctx context.Context, before time.Time) (int, error)
}

// Scheduler periodically drops community reports that are past retention.
// Consensus only reads the last hour, so older reports are dead weight.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     Pruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// New creates a new Scheduler.
func New(store Pruner, retention, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.retention <= 0 {
		log.Println("INFO: scheduler: report retention disabled; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := s.RunOnce(ctx); err != nil {
			log.Printf("ERROR: scheduler: prune failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce prunes everything created before now minus retention.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.store.PruneReports(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	log.Printf("INFO: scheduler: pruned %d community reports created before %s", n, cutoff.UTC().Format(time.RFC3339))
	return n, nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

var _ Pruner = (weather.ReportStore)(nil)
