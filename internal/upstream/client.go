package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/smallbiznis/countrystat/internal/config"
	"github.com/smallbiznis/countrystat/internal/observability/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxBodyBytes = 16 << 20

type Params struct {
	fx.In

	Config  *config.UpstreamConfigHolder
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// Client fetches the countries catalog and the USD rate table over HTTP.
// URLs and timeout are read from the config holder on every call.
type Client struct {
	cfg     *config.UpstreamConfigHolder
	http    *http.Client
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(p Params) *Client {
	return &Client{
		cfg: p.Config,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log:     p.Log.Named("upstream.client"),
		metrics: p.Metrics,
	}
}

// NewSource exposes the client as the refresh data source.
func NewSource(c *Client) Source { return c }

func (c *Client) FetchCountries(ctx context.Context) ([]CountryRecord, error) {
	cfg := c.cfg.Get()
	body, err := c.get(ctx, SourceCountries, cfg.CountriesURL, cfg)
	if err != nil {
		return nil, err
	}

	var records []CountryRecord
	if err := json.Unmarshal(body, &records); err != nil {
		c.record(ctx, SourceCountries, "format_error")
		return nil, formatError(SourceCountries, err)
	}

	c.record(ctx, SourceCountries, "success")
	c.log.Debug("countries fetched", zap.Int("records", len(records)))
	return records, nil
}

func (c *Client) FetchRates(ctx context.Context) (RateTable, error) {
	cfg := c.cfg.Get()
	body, err := c.get(ctx, SourceRates, cfg.RatesURL, cfg)
	if err != nil {
		return nil, err
	}

	var resp ratesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.record(ctx, SourceRates, "format_error")
		return nil, formatError(SourceRates, err)
	}
	if strings.EqualFold(resp.Result, "error") {
		c.record(ctx, SourceRates, "error")
		return nil, fetchError(SourceRates, fmt.Errorf("upstream reported %q", resp.ErrorType))
	}
	if resp.Rates == nil {
		c.record(ctx, SourceRates, "format_error")
		return nil, formatError(SourceRates, errors.New("missing rates object"))
	}

	c.record(ctx, SourceRates, "success")
	c.log.Debug("rates fetched", zap.Int("currencies", len(resp.Rates)), zap.String("base", resp.BaseCode))
	return RateTable(resp.Rates), nil
}

func (c *Client) get(ctx context.Context, source, url string, cfg config.UpstreamConfig) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fetchError(source, err)
	}
	req.Header.Set("Accept", "application/json")
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.record(ctx, source, "error")
		c.log.Warn("upstream request failed", zap.String("source", source), zap.Error(err))
		return nil, fetchError(source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.record(ctx, source, "error")
		c.log.Warn("upstream returned non-2xx",
			zap.String("source", source),
			zap.Int("status", resp.StatusCode),
		)
		return nil, statusError(source, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.record(ctx, source, "error")
		return nil, fetchError(source, err)
	}
	return body, nil
}

func (c *Client) record(ctx context.Context, source, outcome string) {
	c.metrics.RecordUpstreamFetch(ctx, source, outcome)
}
