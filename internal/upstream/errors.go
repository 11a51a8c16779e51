package upstream

import (
	"errors"
	"fmt"
)

const (
	SourceCountries = "countries"
	SourceRates     = "rates"
)

var (
	ErrFetch  = errors.New("upstream_fetch_failed")
	ErrFormat = errors.New("upstream_invalid_format")
)

// SourceError describes a failed fetch against one upstream. It matches
// ErrFetch or ErrFormat through errors.Is.
type SourceError struct {
	Source     string
	Kind       error
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	verb := "fetch"
	if errors.Is(e.Kind, ErrFormat) {
		verb = "decode"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to %s %s: status %d", verb, e.Source, e.StatusCode)
	}
	return fmt.Sprintf("failed to %s %s: %v", verb, e.Source, e.Err)
}

func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// MetricReason labels the error for refresh metrics.
func (e *SourceError) MetricReason() string {
	if errors.Is(e.Kind, ErrFormat) {
		return "upstream_format"
	}
	return "upstream_fetch"
}

func fetchError(source string, err error) error {
	return &SourceError{Source: source, Kind: ErrFetch, Err: err}
}

func statusError(source string, status int) error {
	return &SourceError{Source: source, Kind: ErrFetch, StatusCode: status}
}

func formatError(source string, err error) error {
	return &SourceError{Source: source, Kind: ErrFormat, Err: err}
}
