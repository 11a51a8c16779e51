package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

type reasonedErr struct{}

func (reasonedErr) Error() string        { return "upstream down" }
func (reasonedErr) MetricReason() string { return "upstream_fetch" }

func TestClassifyReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: ReasonDeadlineExceeded},
		{name: "db", err: fmt.Errorf("upsert: %w", gorm.ErrInvalidTransaction), want: ReasonDB},
		{name: "reasoner", err: fmt.Errorf("fetch: %w", reasonedErr{}), want: "upstream_fetch"},
		{name: "unknown", err: errors.New("boom"), want: ReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestObserveRefreshSuccess(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newRefreshMetrics(registry, Config{ServiceName: "countrystat", Environment: "test"})

	at := time.Date(2025, 10, 22, 18, 0, 0, 0, time.UTC)
	m.ObserveRefreshSuccess(250, 2*time.Second, at)
	m.IncRefresh(RefreshOutcomeSuccess)

	if got := testutil.ToFloat64(m.countriesProcessed); got != 250 {
		t.Fatalf("expected 250 processed, got %v", got)
	}
	if got := testutil.ToFloat64(m.lastSuccess); got != float64(at.Unix()) {
		t.Fatalf("expected last success %d, got %v", at.Unix(), got)
	}
	if got := testutil.ToFloat64(m.refreshRuns.WithLabelValues(RefreshOutcomeSuccess)); got != 1 {
		t.Fatalf("expected 1 success run, got %v", got)
	}
}
