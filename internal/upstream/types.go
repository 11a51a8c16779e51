package upstream

import (
	"context"
	"strings"
)

// Source provides the two inputs of a refresh.
type Source interface {
	FetchCountries(ctx context.Context) ([]CountryRecord, error)
	FetchRates(ctx context.Context) (RateTable, error)
}

// CountryRecord is one entry of the countries catalog.
type CountryRecord struct {
	Name       string     `json:"name"`
	Capital    string     `json:"capital"`
	Region     string     `json:"region"`
	Population int64      `json:"population"`
	Flag       string     `json:"flag"`
	Currencies []Currency `json:"currencies"`
}

type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// CurrencyCode returns the code of the first listed currency, or nil when the
// list is empty or the first entry has no code.
func (r CountryRecord) CurrencyCode() *string {
	if len(r.Currencies) == 0 {
		return nil
	}
	code := strings.TrimSpace(r.Currencies[0].Code)
	if code == "" {
		return nil
	}
	return &code
}

// RateTable maps currency codes to units per USD.
type RateTable map[string]float64

// Lookup returns the rate for code, or nil when the table has none.
func (t RateTable) Lookup(code *string) *float64 {
	if code == nil {
		return nil
	}
	rate, ok := t[*code]
	if !ok {
		return nil
	}
	return &rate
}

type ratesResponse struct {
	Result    string             `json:"result"`
	BaseCode  string             `json:"base_code"`
	ErrorType string             `json:"error-type"`
	Rates     map[string]float64 `json:"rates"`
}
