package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

type SortOrder string

const (
	SortDefault        SortOrder = ""
	SortGDPAsc         SortOrder = "gdp_asc"
	SortGDPDesc        SortOrder = "gdp_desc"
	SortNameAsc        SortOrder = "name_asc"
	SortNameDesc       SortOrder = "name_desc"
	SortPopulationAsc  SortOrder = "population_asc"
	SortPopulationDesc SortOrder = "population_desc"
)

// ParseSort accepts the empty string and the known sort keys, case-insensitively.
func ParseSort(value string) (SortOrder, error) {
	order := SortOrder(strings.ToLower(strings.TrimSpace(value)))
	switch order {
	case SortDefault, SortGDPAsc, SortGDPDesc, SortNameAsc, SortNameDesc, SortPopulationAsc, SortPopulationDesc:
		return order, nil
	default:
		return "", ErrInvalidSort
	}
}

type ListCountryRequest struct {
	Region   string
	Currency string
	Sort     string
}

type ListCountryFilter struct {
	Region   string
	Currency string
	Sort     SortOrder
}

type CreateCountryRequest struct {
	Name         string   `json:"name"`
	Capital      *string  `json:"capital"`
	Region       *string  `json:"region"`
	Population   *int64   `json:"population"`
	CurrencyCode *string  `json:"currency_code"`
	ExchangeRate *float64 `json:"exchange_rate"`
	FlagURL      *string  `json:"flag_url"`
}

type StatusResponse struct {
	TotalCountries  int64      `json:"total_countries"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at"`
}

type Service interface {
	List(context.Context, ListCountryRequest) ([]Country, error)
	GetByName(ctx context.Context, name string) (Country, error)
	DeleteByName(ctx context.Context, name string) error
	Create(context.Context, CreateCountryRequest) (Country, error)
	Status(context.Context) (StatusResponse, error)
}

var (
	ErrNotFound    = errors.New("not_found")
	ErrInvalidSort = errors.New("invalid_sort")
	ErrValidation  = errors.New("validation_failed")
)

// ValidationError carries per-field messages. It matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = message
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
