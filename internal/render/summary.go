package render

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/countrystat/internal/country/domain"
	"gorm.io/gorm"
)

const TopN = 5

// Summary is the data shown on the summary image and report.
type Summary struct {
	TotalCountries  int64
	Top             []Entry
	LastRefreshedAt time.Time
}

type Entry struct {
	Rank         int
	Name         string
	EstimatedGDP float64
}

func (r *Renderer) collect(ctx context.Context) (Summary, error) {
	var summary Summary
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total, err := r.repo.Count(ctx, tx)
		if err != nil {
			return fmt.Errorf("count countries: %w", err)
		}
		top, err := r.repo.TopByGDP(ctx, tx, TopN)
		if err != nil {
			return fmt.Errorf("top countries: %w", err)
		}
		status, err := r.statusRepo.Get(ctx, tx)
		if err != nil {
			return fmt.Errorf("refresh status: %w", err)
		}
		summary = buildSummary(total, top, status, r.clock.Now())
		return nil
	})
	return summary, err
}

func buildSummary(total int64, top []*domain.Country, status *domain.RefreshStatus, now time.Time) Summary {
	entries := make([]Entry, 0, len(top))
	for _, c := range top {
		if c == nil {
			continue
		}
		entries = append(entries, Entry{
			Rank:         len(entries) + 1,
			Name:         c.Name,
			EstimatedGDP: c.EstimatedGDP,
		})
	}

	at := now
	if status != nil {
		at = status.LastRefreshedAt
	}
	return Summary{
		TotalCountries:  total,
		Top:             entries,
		LastRefreshedAt: at.UTC(),
	}
}
