package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/countrystat/internal/clock"
	"github.com/smallbiznis/countrystat/internal/config"
	"github.com/smallbiznis/countrystat/internal/country/domain"
	"github.com/smallbiznis/countrystat/internal/gdp"
	"github.com/smallbiznis/countrystat/internal/lock"
	obscontext "github.com/smallbiznis/countrystat/internal/observability/context"
	"github.com/smallbiznis/countrystat/internal/observability/logger"
	"github.com/smallbiznis/countrystat/internal/observability/metrics"
	"github.com/smallbiznis/countrystat/internal/render"
	"github.com/smallbiznis/countrystat/internal/upstream"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	LockKey        = "countrystat:refresh"
	DefaultLockTTL = 5 * time.Minute
)

// SummaryRenderer regenerates the summary artifact from the committed store.
type SummaryRenderer interface {
	Render(ctx context.Context) error
}

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Config         config.Config
	GenID          *snowflake.Node
	Repo           domain.Repository
	StatusRepo     domain.StatusRepository
	Source         upstream.Source
	Estimator      *gdp.Estimator
	Clock          clock.Clock
	Locker         lock.Locker
	Renderer       SummaryRenderer
	Metrics        *metrics.Metrics        `optional:"true"`
	RefreshMetrics *metrics.RefreshMetrics `optional:"true"`
}

type Result struct {
	CountriesProcessed int
	RefreshedAt        time.Time
	RunID              string
	// RenderErr is set when the data committed but the summary image could not
	// be regenerated. It wraps render.ErrRender.
	RenderErr error
}

type Pipeline struct {
	db             *gorm.DB
	log            *zap.Logger
	lockTTL        time.Duration
	genID          *snowflake.Node
	repo           domain.Repository
	statusRepo     domain.StatusRepository
	source         upstream.Source
	estimator      *gdp.Estimator
	clock          clock.Clock
	locker         lock.Locker
	renderer       SummaryRenderer
	metrics        *metrics.Metrics
	refreshMetrics *metrics.RefreshMetrics
}

func New(p Params) *Pipeline {
	ttl := p.Config.Refresh.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Pipeline{
		db:             p.DB,
		log:            p.Log.Named("refresh"),
		lockTTL:        ttl,
		genID:          p.GenID,
		repo:           p.Repo,
		statusRepo:     p.StatusRepo,
		source:         p.Source,
		estimator:      p.Estimator,
		clock:          p.Clock,
		locker:         p.Locker,
		renderer:       p.Renderer,
		metrics:        p.Metrics,
		refreshMetrics: p.RefreshMetrics,
	}
}

// Refresh fetches both upstreams, rewrites the country store and the refresh
// status in one transaction, then regenerates the summary image. A concurrent
// call fails fast with ErrRefreshInProgress.
func (p *Pipeline) Refresh(ctx context.Context) (Result, error) {
	runID := ulid.Make().String()
	ctx = obscontext.WithRunID(ctx, runID)
	log := logger.WithContext(ctx, p.log)

	token, ok, err := p.locker.TryLock(ctx, LockKey, p.lockTTL)
	if err != nil {
		return Result{}, fmt.Errorf("acquire refresh lock: %w", err)
	}
	if !ok {
		p.refreshMetrics.IncRefresh(metrics.RefreshOutcomeRejected)
		p.metrics.RecordRefresh(ctx, metrics.RefreshOutcomeRejected)
		log.Info("refresh rejected, another run holds the lock")
		return Result{}, ErrRefreshInProgress
	}
	defer func() {
		if err := p.locker.Release(context.WithoutCancel(ctx), LockKey, token); err != nil {
			log.Warn("release refresh lock", zap.Error(err))
		}
	}()

	start := time.Now()
	log.Info("refresh started")

	records, rates, err := p.fetch(ctx)
	if err != nil {
		return Result{}, p.failed(ctx, log, err)
	}

	now := p.clock.Now().UTC().Truncate(time.Microsecond)
	countries := p.reconcile(records, rates, now)

	if err := p.persist(ctx, countries, now); err != nil {
		return Result{}, p.failed(ctx, log, err)
	}

	result := Result{
		CountriesProcessed: len(countries),
		RefreshedAt:        now,
		RunID:              runID,
	}
	p.refreshMetrics.ObserveRefreshSuccess(result.CountriesProcessed, time.Since(start), now)
	p.metrics.RecordCountriesUpserted(ctx, result.CountriesProcessed)

	outcome := metrics.RefreshOutcomeSuccess
	if err := p.renderer.Render(ctx); err != nil {
		if !errors.Is(err, render.ErrRender) {
			err = fmt.Errorf("%w: %w", render.ErrRender, err)
		}
		result.RenderErr = err
		outcome = metrics.RefreshOutcomeRenderWarn
		p.refreshMetrics.IncRefreshError(err)
		log.Warn("summary image not refreshed", zap.Error(err))
	}
	p.refreshMetrics.IncRefresh(outcome)
	p.metrics.RecordRefresh(ctx, outcome)

	log.Info("refresh completed",
		zap.Int("countries_processed", result.CountriesProcessed),
		zap.Int("catalog_entries", len(records)),
		zap.Int("rates", len(rates)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (p *Pipeline) fetch(ctx context.Context) ([]upstream.CountryRecord, upstream.RateTable, error) {
	var (
		records []upstream.CountryRecord
		rates   upstream.RateTable
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = p.source.FetchCountries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rates, err = p.source.FetchRates(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return records, rates, nil
}

// reconcile turns named catalog entries into country rows stamped with now.
func (p *Pipeline) reconcile(records []upstream.CountryRecord, rates upstream.RateTable, now time.Time) []domain.Country {
	countries := make([]domain.Country, 0, len(records))
	for _, rec := range records {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			continue
		}

		code := rec.CurrencyCode()
		rate := rates.Lookup(code)

		countries = append(countries, domain.Country{
			ID:              p.genID.Generate(),
			Name:            name,
			NameKey:         domain.NameKey(name),
			Capital:         optional(rec.Capital),
			Region:          optional(rec.Region),
			Population:      rec.Population,
			CurrencyCode:    code,
			ExchangeRate:    rate,
			EstimatedGDP:    p.estimator.Estimate(rec.Population, rate),
			FlagURL:         optional(rec.Flag),
			LastRefreshedAt: now,
		})
	}
	return countries
}

func (p *Pipeline) persist(ctx context.Context, countries []domain.Country, now time.Time) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range countries {
			if err := p.repo.Upsert(ctx, tx, &countries[i]); err != nil {
				return fmt.Errorf("upsert country %q: %w", countries[i].Name, err)
			}
		}
		status := &domain.RefreshStatus{
			TotalCountries:  len(countries),
			LastRefreshedAt: now,
		}
		if err := p.statusRepo.Replace(ctx, tx, status); err != nil {
			return fmt.Errorf("replace refresh status: %w", err)
		}
		return nil
	})
}

func (p *Pipeline) failed(ctx context.Context, log *zap.Logger, err error) error {
	p.refreshMetrics.IncRefresh(metrics.RefreshOutcomeFailed)
	p.refreshMetrics.IncRefreshError(err)
	p.metrics.RecordRefresh(ctx, metrics.RefreshOutcomeFailed)
	log.Error("refresh failed", zap.String("reason", metrics.ClassifyReason(err)), zap.Error(err))
	return err
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
