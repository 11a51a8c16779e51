package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"sync"
	"time"

	"github.com/smallbiznis/countrystat/internal/clock"
	"github.com/smallbiznis/countrystat/internal/country/domain"
	"github.com/smallbiznis/countrystat/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrRender = errors.New("summary_render_failed")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	StatusRepo domain.StatusRepository
	Clock      clock.Clock
	Store      ArtifactStore
	Fonts      FontSet
	Metrics    *metrics.Metrics `optional:"true"`
}

// Renderer builds the summary PNG and PDF report from the country store.
type Renderer struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	statusRepo domain.StatusRepository
	clock      clock.Clock
	store      ArtifactStore
	fonts      FontSet
	metrics    *metrics.Metrics

	// font faces are not safe for concurrent use
	mu sync.Mutex
}

func New(p Params) *Renderer {
	return &Renderer{
		db:         p.DB,
		log:        p.Log.Named("render"),
		repo:       p.Repo,
		statusRepo: p.StatusRepo,
		clock:      p.Clock,
		store:      p.Store,
		fonts:      p.Fonts,
		metrics:    p.Metrics,
	}
}

// Render draws the current summary and replaces the stored image.
func (r *Renderer) Render(ctx context.Context) error {
	summary, err := r.collect(ctx)
	if err != nil {
		return r.fail(ctx, err)
	}

	data, err := r.encode(summary)
	if err != nil {
		return r.fail(ctx, err)
	}

	if err := r.store.Write(ctx, data); err != nil {
		return r.fail(ctx, err)
	}

	r.metrics.RecordSummaryRender(ctx, "success")
	r.log.Info("summary image rendered",
		zap.Int64("total_countries", summary.TotalCountries),
		zap.Int("top", len(summary.Top)),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Image returns the last rendered summary image.
func (r *Renderer) Image(ctx context.Context) ([]byte, time.Time, error) {
	return r.store.Read(ctx)
}

// Report renders the current summary as a one-page PDF.
func (r *Renderer) Report(ctx context.Context) ([]byte, error) {
	summary, err := r.collect(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := buildReport(summary)
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	return doc, nil
}

func (r *Renderer) encode(s Summary) ([]byte, error) {
	r.mu.Lock()
	img := Draw(s, r.fonts)
	r.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) fail(ctx context.Context, err error) error {
	r.metrics.RecordSummaryRender(ctx, "error")
	return fmt.Errorf("%w: %w", ErrRender, err)
}
