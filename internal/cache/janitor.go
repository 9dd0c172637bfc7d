package cache

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/geocontext-service/internal/observability"
)

// Sweeper is a cache that can drop its expired entries.
type Sweeper interface {
	Name() string
	Sweep() int
	Len() int
}

// Janitor periodically sweeps expired entries from a set of caches.
type Janitor struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	caches    []Sweeper
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewJanitor creates a janitor for the given caches.
func NewJanitor(interval time.Duration, logger *slog.Logger, metrics *observability.Metrics, caches ...Sweeper) *Janitor {
	return &Janitor{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		caches:    caches,
		logger:    logger,
		metrics:   metrics,
	}
}

// Start schedules the sweep job and starts the scheduler in the background.
func (j *Janitor) Start() error {
	if _, err := j.scheduler.Every(j.interval).Do(j.sweepAll); err != nil {
		return err
	}
	j.scheduler.StartAsync()
	j.logger.Info("cache janitor started", "interval", j.interval, "caches", len(j.caches))
	return nil
}

// Stop stops the scheduler.
func (j *Janitor) Stop() {
	j.scheduler.Stop()
}

func (j *Janitor) sweepAll() {
	for _, c := range j.caches {
		removed := c.Sweep()
		j.metrics.CacheEntries.WithLabelValues(c.Name()).Set(float64(c.Len()))
		if removed > 0 {
			j.logger.Debug("cache swept", "cache", c.Name(), "removed", removed)
		}
	}
}
