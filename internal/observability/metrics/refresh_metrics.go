package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	RefreshOutcomeSuccess    = "success"
	RefreshOutcomeFailed     = "failed"
	RefreshOutcomeRejected   = "rejected"
	RefreshOutcomeRenderWarn = "render_warning"
)

const (
	ReasonDeadlineExceeded = "deadline_exceeded"
	ReasonDB               = "db"
	ReasonUnknown          = "unknown"
)

// Reasoner is implemented by errors that carry their own low-cardinality reason label.
type Reasoner interface {
	MetricReason() string
}

// RefreshMetrics captures refresh pipeline and scheduler health signals.
type RefreshMetrics struct {
	refreshRuns        *prometheus.CounterVec
	refreshDuration    prometheus.Observer
	refreshErrors      *prometheus.CounterVec
	countriesProcessed prometheus.Counter
	lastSuccess        prometheus.Gauge
	jobRuns            *prometheus.CounterVec
	jobTimeouts        *prometheus.CounterVec
	jobErrors          *prometheus.CounterVec
	runLoopLag         prometheus.Observer
}

var (
	refreshMetricsOnce sync.Once
	refreshMetrics     *RefreshMetrics
)

// Refresh returns the singleton refresh metrics registry.
func Refresh() *RefreshMetrics {
	return RefreshWithConfig(Config{})
}

// RefreshWithConfig returns the singleton refresh metrics registry using config labels.
func RefreshWithConfig(cfg Config) *RefreshMetrics {
	refreshMetricsOnce.Do(func() {
		refreshMetrics = newRefreshMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return refreshMetrics
}

// ResetRefreshMetricsForTest resets the refresh metrics singleton for tests.
func ResetRefreshMetricsForTest() {
	refreshMetricsOnce = sync.Once{}
	refreshMetrics = nil
}

func constLabels(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "countrystat"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

func newRefreshMetrics(registerer prometheus.Registerer, cfg Config) *RefreshMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := constLabels(cfg)

	refreshRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "countrystat_refresh_runs_total",
		Help:        "Refresh pipeline runs by outcome.",
		ConstLabels: labels,
	}, []string{"outcome"})
	refreshDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "countrystat_refresh_duration_seconds",
		Help:        "Refresh pipeline latency from fetch to commit.",
		Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		ConstLabels: labels,
	})
	refreshErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "countrystat_refresh_errors_total",
		Help:        "Refresh pipeline errors by low-cardinality reason.",
		ConstLabels: labels,
	}, []string{"reason"})
	countriesProcessed := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "countrystat_refresh_countries_processed_total",
		Help:        "Countries written by successful refresh runs.",
		ConstLabels: labels,
	})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "countrystat_refresh_last_success_timestamp_seconds",
		Help:        "Unix time of the last committed refresh.",
		ConstLabels: labels,
	})
	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "countrystat_scheduler_job_runs_total",
		Help:        "Scheduler job runs by name.",
		ConstLabels: labels,
	}, []string{"job"})
	jobTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "countrystat_scheduler_job_timeouts_total",
		Help:        "Scheduler job timeouts.",
		ConstLabels: labels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "countrystat_scheduler_job_errors_total",
		Help:        "Scheduler job errors by low-cardinality reason.",
		ConstLabels: labels,
	}, []string{"job", "reason"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "countrystat_scheduler_runloop_lag_seconds",
		Help:        "Scheduler run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: labels,
	})

	registerer.MustRegister(
		refreshRuns,
		refreshDuration,
		refreshErrors,
		countriesProcessed,
		lastSuccess,
		jobRuns,
		jobTimeouts,
		jobErrors,
		runLoopLag,
	)

	return &RefreshMetrics{
		refreshRuns:        refreshRuns,
		refreshDuration:    refreshDuration,
		refreshErrors:      refreshErrors,
		countriesProcessed: countriesProcessed,
		lastSuccess:        lastSuccess,
		jobRuns:            jobRuns,
		jobTimeouts:        jobTimeouts,
		jobErrors:          jobErrors,
		runLoopLag:         runLoopLag,
	}
}

// IncRefresh increments the refresh run counter for an outcome.
func (m *RefreshMetrics) IncRefresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshRuns.WithLabelValues(outcome).Inc()
}

// ObserveRefreshSuccess records a committed refresh.
func (m *RefreshMetrics) ObserveRefreshSuccess(processed int, duration time.Duration, at time.Time) {
	if m == nil {
		return
	}
	m.refreshDuration.Observe(duration.Seconds())
	if processed > 0 {
		m.countriesProcessed.Add(float64(processed))
	}
	m.lastSuccess.Set(float64(at.Unix()))
}

// IncRefreshError increments the refresh error counter with classification.
func (m *RefreshMetrics) IncRefreshError(err error) {
	if m == nil || err == nil {
		return
	}
	m.refreshErrors.WithLabelValues(ClassifyReason(err)).Inc()
}

// IncJobRun increments the run counter for a scheduler job.
func (m *RefreshMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

// IncJobTimeout increments the timeout counter for the scheduler job.
func (m *RefreshMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

// IncJobError increments the scheduler job error counter with classification.
func (m *RefreshMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifyReason(err)).Inc()
}

// ObserveRunLoopLag records lag between the scheduled tick and actual run start.
func (m *RefreshMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil {
		return
	}
	lag := duration
	if lag < 0 {
		lag = 0
	}
	m.runLoopLag.Observe(lag.Seconds())
}

// ClassifyReason maps errors to low-cardinality reasons.
func ClassifyReason(err error) string {
	if err == nil {
		return ReasonUnknown
	}
	var reasoner Reasoner
	if errors.As(err, &reasoner) {
		if reason := strings.TrimSpace(reasoner.MetricReason()); reason != "" {
			return reason
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonDeadlineExceeded
	}
	if isDBError(err) {
		return ReasonDB
	}
	return ReasonUnknown
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	return errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) ||
		errors.Is(err, gorm.ErrInvalidValue) ||
		errors.Is(err, gorm.ErrDuplicatedKey)
}
