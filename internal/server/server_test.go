package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/countrystat/internal/clock"
	"github.com/smallbiznis/countrystat/internal/config"
	"github.com/smallbiznis/countrystat/internal/country/countrytest"
	countrydomain "github.com/smallbiznis/countrystat/internal/country/domain"
	"github.com/smallbiznis/countrystat/internal/country/repository"
	"github.com/smallbiznis/countrystat/internal/country/service"
	"github.com/smallbiznis/countrystat/internal/gdp"
	"github.com/smallbiznis/countrystat/internal/lock"
	"github.com/smallbiznis/countrystat/internal/observability"
	obsmetrics "github.com/smallbiznis/countrystat/internal/observability/metrics"
	"github.com/smallbiznis/countrystat/internal/refresh"
	"github.com/smallbiznis/countrystat/internal/render"
	"github.com/smallbiznis/countrystat/internal/upstream"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeSource struct {
	records []upstream.CountryRecord
	rates   upstream.RateTable
	err     error
}

func (f *fakeSource) FetchCountries(context.Context) ([]upstream.CountryRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeSource) FetchRates(context.Context) (upstream.RateTable, error) {
	return f.rates, nil
}

type stubRefresher struct {
	result refresh.Result
	err    error
}

func (s stubRefresher) Refresh(context.Context) (refresh.Result, error) {
	return s.result, s.err
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	source *fakeSource
}

type envOption func(*ServerParams)

func withRefresher(r Refresher) envOption {
	return func(p *ServerParams) { p.Refresher = r }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := countrytest.OpenDB(t)
	node := countrytest.Node(t)
	c := clock.NewFakeClock(time.Date(2025, 10, 22, 18, 30, 0, 0, time.UTC))
	repo := repository.Provide()
	statusRepo := repository.ProvideStatus()
	estimator := gdp.NewFromEntropy()

	renderer := render.New(render.Params{
		DB:         db,
		Log:        zap.NewNop(),
		Repo:       repo,
		StatusRepo: statusRepo,
		Clock:      c,
		Store:      render.NewFileStore(afero.NewMemMapFs(), "cache/summary.png"),
		Fonts:      render.BasicFonts(),
	})
	source := &fakeSource{
		records: []upstream.CountryRecord{
			{Name: "Nigeria", Capital: "Abuja", Region: "Africa", Population: 206139589, Currencies: []upstream.Currency{{Code: "NGN"}}},
			{Name: "Ghana", Capital: "Accra", Region: "Africa", Population: 31072940, Currencies: []upstream.Currency{{Code: "GHS"}}},
			{Name: "Germany", Capital: "Berlin", Region: "Europe", Population: 83240525, Currencies: []upstream.Currency{{Code: "EUR"}}},
			{Region: "Nowhere", Population: 10},
		},
		rates: upstream.RateTable{"NGN": 1600.23, "GHS": 15.34, "EUR": 0.92},
	}
	pipeline := refresh.New(refresh.Params{
		DB:         db,
		Log:        zap.NewNop(),
		Config:     config.Config{},
		GenID:      node,
		Repo:       repo,
		StatusRepo: statusRepo,
		Source:     source,
		Estimator:  estimator,
		Clock:      c,
		Locker:     lock.NewLocalLocker(c),
		Renderer:   renderer,
	})

	engine := NewEngine(
		observability.Config{LogLevel: "info"},
		obsmetrics.NewHTTPMetricsWithRegisterer(prometheus.NewRegistry(), obsmetrics.Config{ServiceName: "countrystat", Environment: "test"}),
	)
	params := ServerParams{
		Gin: engine,
		Cfg: config.Config{Environment: "test"},
		Log: zap.NewNop(),
		CountrySvc: service.New(service.Params{
			DB:         db,
			Log:        zap.NewNop(),
			GenID:      node,
			Repo:       repo,
			StatusRepo: statusRepo,
			Estimator:  estimator,
			Clock:      c,
		}),
		Refresher: pipeline,
		Summary:   renderer,
	}
	for _, opt := range opts {
		opt(&params)
	}
	srv := NewServer(params)

	return &testEnv{router: srv.Engine(), db: db, source: source}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", resp.Body.String(), err)
	}
	return out
}

type errorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

func TestRefreshThenQueryEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/countries/refresh/", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	refreshed := decode[refreshResponse](t, resp)
	assert.Equal(t, "Countries refreshed successfully", refreshed.Message)
	assert.Equal(t, 3, refreshed.CountriesProcessed)
	assert.Empty(t, refreshed.Warning)

	resp = env.do(t, http.MethodGet, "/countries/?region=africa&sort=gdp_desc", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	list := decode[[]countrydomain.Country](t, resp)
	require.Len(t, list, 2)
	assert.GreaterOrEqual(t, list[0].EstimatedGDP, list[1].EstimatedGDP)

	resp = env.do(t, http.MethodGet, "/countries/?currency=eur", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	list = decode[[]countrydomain.Country](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "Germany", list[0].Name)

	resp = env.do(t, http.MethodGet, "/countries/gHaNa/", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Ghana", decode[countrydomain.Country](t, resp).Name)

	resp = env.do(t, http.MethodGet, "/status/", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	status := decode[countrydomain.StatusResponse](t, resp)
	assert.Equal(t, int64(3), status.TotalCountries)
	require.NotNil(t, status.LastRefreshedAt)
	assert.True(t, status.LastRefreshedAt.Equal(time.Date(2025, 10, 22, 18, 30, 0, 0, time.UTC)))
}

func TestSummaryImageLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/countries/image/", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "Summary image not found", decode[errorBody](t, resp).Error)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/countries/refresh/", nil).Code)

	resp = env.do(t, http.MethodGet, "/countries/image/", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(resp.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, render.Width, img.Bounds().Dx())
	assert.Equal(t, render.Height, img.Bounds().Dy())

	resp = env.do(t, http.MethodGet, "/countries/report/", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")))
}

func TestDeleteCountry(t *testing.T) {
	env := newTestEnv(t)
	countrytest.Seed(t, env.db, countrytest.Node(t), countrydomain.Country{ID: 42, Name: "Atlantis", Population: 1})

	resp := env.do(t, http.MethodDelete, "/countries/ATLANTIS/", nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, resp.Body.Bytes())

	resp = env.do(t, http.MethodDelete, "/countries/atlantis/", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "Country not found", decode[errorBody](t, resp).Error)

	resp = env.do(t, http.MethodGet, "/countries/atlantis/", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCreateCountry(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/countries/", []byte(`{"name":"Wakanda","population":1000,"currency_code":"wkd","exchange_rate":2}`))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	created := decode[countrydomain.Country](t, resp)
	require.NotNil(t, created.CurrencyCode)
	assert.Equal(t, "WKD", *created.CurrencyCode)
	assert.GreaterOrEqual(t, created.EstimatedGDP, 500000.0)
	assert.LessOrEqual(t, created.EstimatedGDP, 1000000.0)

	resp = env.do(t, http.MethodPost, "/countries/", []byte(`{"name":"wakanda","population":5}`))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decode[errorBody](t, resp)
	assert.Equal(t, "Validation failed", body.Error)
	assert.Equal(t, "already exists", body.Details["name"])

	resp = env.do(t, http.MethodPost, "/countries/", []byte(`{"capital":"Nowhere"}`))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	body = decode[errorBody](t, resp)
	assert.Contains(t, body.Details, "name")
	assert.Contains(t, body.Details, "population")

	resp = env.do(t, http.MethodPost, "/countries/", []byte(`not json`))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, decode[errorBody](t, resp).Details, "body")
}

func TestListRejectsUnknownSort(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/countries/?sort=area_desc", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decode[errorBody](t, resp)
	assert.Equal(t, "Validation failed", body.Error)
	assert.Contains(t, body.Details, "sort")
}

func TestStatusBeforeAnyRefresh(t *testing.T) {
	env := newTestEnv(t)
	countrytest.Seed(t, env.db, countrytest.Node(t), countrydomain.Country{ID: 7, Name: "Testland", Population: 1})

	resp := env.do(t, http.MethodGet, "/status/", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"total_countries":1,"last_refreshed_at":null}`, resp.Body.String())
}

func TestRefreshErrorMapping(t *testing.T) {
	cases := []struct {
		name      string
		refresher Refresher
		status    int
		message   string
	}{
		{
			name:      "in progress",
			refresher: stubRefresher{err: refresh.ErrRefreshInProgress},
			status:    http.StatusConflict,
			message:   "Refresh already in progress",
		},
		{
			name: "upstream unreachable",
			refresher: stubRefresher{err: &upstream.SourceError{
				Source: upstream.SourceCountries,
				Kind:   upstream.ErrFetch,
				Err:    errors.New("connection refused"),
			}},
			status:  http.StatusInternalServerError,
			message: "Failed to refresh countries",
		},
		{
			name:      "unexpected",
			refresher: stubRefresher{err: errors.New("disk full")},
			status:    http.StatusInternalServerError,
			message:   "Internal server error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, withRefresher(tc.refresher))
			resp := env.do(t, http.MethodPost, "/countries/refresh/", nil)
			require.Equal(t, tc.status, resp.Code)
			var body struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, tc.message, body.Error)
		})
	}
}

func TestRefreshUpstreamFailureDetails(t *testing.T) {
	env := newTestEnv(t)
	env.source.err = &upstream.SourceError{Source: upstream.SourceCountries, Kind: upstream.ErrFetch, StatusCode: http.StatusBadGateway}

	resp := env.do(t, http.MethodPost, "/countries/refresh/", nil)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "Failed to refresh countries", body.Error)
	assert.Equal(t, "failed to fetch countries: status 502", body.Details)
}

func TestRefreshReportsRenderWarning(t *testing.T) {
	env := newTestEnv(t, withRefresher(stubRefresher{result: refresh.Result{
		CountriesProcessed: 250,
		RenderErr:          render.ErrRender,
	}}))

	resp := env.do(t, http.MethodPost, "/countries/refresh/", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[refreshResponse](t, resp)
	assert.Equal(t, 250, body.CountriesProcessed)
	assert.NotEmpty(t, body.Warning)
}

func TestHealthAndMissingSlashRedirect(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())

	resp = env.do(t, http.MethodGet, "/countries", nil)
	assert.Equal(t, http.StatusMovedPermanently, resp.Code)
	assert.Equal(t, "/countries/", resp.Header().Get("Location"))
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(countrydomain.ErrInvalidSort)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "invalid_sort", code)

	typ, _ = classifyErrorForLog(countrydomain.ErrNotFound)
	assert.Equal(t, "not_found", typ)

	typ, code = classifyErrorForLog(&upstream.SourceError{Source: upstream.SourceRates, Kind: upstream.ErrFormat})
	assert.Equal(t, "upstream_error", typ)
	assert.Equal(t, "upstream_invalid_format", code)
}
