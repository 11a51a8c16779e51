package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/countrystat/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	holder := config.NewStaticUpstreamConfigHolder(config.UpstreamConfig{
		CountriesURL: srv.URL + "/countries",
		RatesURL:     srv.URL + "/rates",
		Timeout:      timeout,
		UserAgent:    "countrystat-test",
	})
	return New(Params{Config: holder, Log: zap.NewNop()})
}

func TestFetchCountriesDecodesCatalog(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "countrystat-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[
			{"name":"Nigeria","capital":"Abuja","region":"Africa","population":206139589,"flag":"https://flagcdn.com/ng.svg","currencies":[{"code":"NGN","name":"Nigerian naira","symbol":"₦"}]},
			{"name":"Antarctica","region":"Polar","population":1000,"currencies":[]}
		]`))
	}, time.Second)

	records, err := client.FetchCountries(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "NGN", *records[0].CurrencyCode())
	assert.Nil(t, records[1].CurrencyCode())
}

func TestFetchRates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"success","base_code":"USD","rates":{"USD":1,"NGN":1600.23}}`))
	}, time.Second)

	rates, err := client.FetchRates(context.Background())
	require.NoError(t, err)
	ngn := "NGN"
	require.NotNil(t, rates.Lookup(&ngn))
	assert.Equal(t, 1600.23, *rates.Lookup(&ngn))
	xxx := "XXX"
	assert.Nil(t, rates.Lookup(&xxx))
	assert.Nil(t, rates.Lookup(nil))
}

func TestFetchErrorsAreClassified(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		fetch   func(*Client) error
		kind    error
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			fetch: func(c *Client) error { _, err := c.FetchCountries(context.Background()); return err },
			kind:  ErrFetch,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
			fetch: func(c *Client) error { _, err := c.FetchCountries(context.Background()); return err },
			kind:  ErrFormat,
		},
		{
			name: "missing rates",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"result":"success"}`))
			},
			fetch: func(c *Client) error { _, err := c.FetchRates(context.Background()); return err },
			kind:  ErrFormat,
		},
		{
			name: "upstream error result",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"result":"error","error-type":"unsupported-code"}`))
			},
			fetch: func(c *Client) error { _, err := c.FetchRates(context.Background()); return err },
			kind:  ErrFetch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.fetch(newTestClient(t, tc.handler, time.Second))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)

			var srcErr *SourceError
			require.True(t, errors.As(err, &srcErr))
		})
	}
}

func TestFetchTimesOut(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 50*time.Millisecond)

	_, err := client.FetchRates(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
