// Package scheduler runs the periodic weather recorder that stores current
// conditions next to imported visitor data.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/swim-forecast-service/internal/domain"
	"github.com/couchcryptid/swim-forecast-service/internal/observability"
)

const jobName = "weather_snapshot_job"

// CurrentWeatherFetcher returns the current conditions for the configured location.
type CurrentWeatherFetcher interface {
	FetchCurrentWeather(ctx context.Context) (domain.WeatherSnapshot, error)
}

// SnapshotStore persists a weather snapshot.
type SnapshotStore interface {
	InsertWeatherSnapshot(ctx context.Context, s domain.WeatherSnapshot) error
}

// Recorder fetches the current weather on a fixed interval and stores it.
type Recorder struct {
	fetcher   CurrentWeatherFetcher
	store     SnapshotStore
	interval  time.Duration
	scheduler gocron.Scheduler
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewRecorder creates a recorder that runs every interval. The first run
// happens as soon as Run starts.
func NewRecorder(
	fetcher CurrentWeatherFetcher,
	store SnapshotStore,
	interval time.Duration,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) (*Recorder, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("recorder interval must be positive, got %s", interval)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Recorder{
		fetcher:   fetcher,
		store:     store,
		interval:  interval,
		scheduler: s,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// Run schedules the recorder job and blocks until ctx is cancelled.
func (r *Recorder) Run(ctx context.Context) error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.record),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithName(jobName),
	)
	if err != nil {
		_ = r.scheduler.Shutdown()
		return fmt.Errorf("create %s: %w", jobName, err)
	}

	r.logger.Info("weather recorder started", "interval", r.interval)
	r.scheduler.Start()

	<-ctx.Done()
	if err := r.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	r.logger.Info("weather recorder stopped")
	return nil
}

// RecordOnce fetches and stores a single snapshot.
func (r *Recorder) RecordOnce(ctx context.Context) error {
	snap, err := r.fetcher.FetchCurrentWeather(ctx)
	if err != nil {
		return fmt.Errorf("fetch current weather: %w", err)
	}
	if err := r.store.InsertWeatherSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("store weather snapshot: %w", err)
	}
	r.logger.Debug("weather snapshot recorded", "date", snap.Date, "temp", snap.Temp)
	return nil
}

func (r *Recorder) record(ctx context.Context) {
	if err := r.RecordOnce(ctx); err != nil {
		r.metrics.RecorderRuns.WithLabelValues("error").Inc()
		r.logger.Warn("weather recorder run failed", "error", err)
		return
	}
	r.metrics.RecorderRuns.WithLabelValues("success").Inc()
}
