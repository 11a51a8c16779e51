package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/countrystat/internal/clock"
	obsmetrics "github.com/smallbiznis/countrystat/internal/observability/metrics"
	"github.com/smallbiznis/countrystat/internal/refresh"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// Refresher runs one refresh of the country store.
type Refresher interface {
	Refresh(ctx context.Context) (refresh.Result, error)
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Refresher Refresher
	Clock     clock.Clock
	Config    Config                     `optional:"true"`
	Metrics   *obsmetrics.RefreshMetrics `optional:"true"`
}

type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	refresher Refresher
	metrics   *obsmetrics.RefreshMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Refresher == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		refresher: p.Refresher,
		metrics:   p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context, run *jobRun) error,
) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name)
	s.logJobStart(ctx, run)
	s.metrics.IncJobRun(name)

	err := fn(ctx, run)
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce performs a single scheduled refresh.
func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, refreshJob, s.cfg.JobTimeout, s.RefreshJob)
}

func (s *Scheduler) RefreshJob(ctx context.Context, run *jobRun) error {
	result, err := s.refresher.Refresh(ctx)
	if errors.Is(err, refresh.ErrRefreshInProgress) {
		s.logger(ctx).Info("refresh skipped, a run is already in progress", zap.String("job", run.job))
		return nil
	}
	if err != nil {
		s.logJobError(ctx, run, "scheduled refresh failed", err)
		return err
	}
	run.AddProcessed(result.CountriesProcessed)
	if result.RenderErr != nil {
		s.logJobError(ctx, run, "summary image not refreshed", result.RenderErr)
	}
	return nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now()

	for {
		if runLag := s.clock.Now().Sub(nextRun); runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
