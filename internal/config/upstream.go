package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DefaultCountriesURL    = "https://restcountries.com/v2/all?fields=name,capital,region,population,flag,currencies"
	DefaultRatesURL        = "https://open.er-api.com/v6/latest/USD"
	DefaultUpstreamTimeout = 30 * time.Second
)

// UpstreamConfig describes the two external data sources used by refresh.
type UpstreamConfig struct {
	CountriesURL string
	RatesURL     string
	Timeout      time.Duration
	UserAgent    string
}

func DefaultUpstreamConfig() UpstreamConfig {
	return UpstreamConfig{
		CountriesURL: DefaultCountriesURL,
		RatesURL:     DefaultRatesURL,
		Timeout:      DefaultUpstreamTimeout,
		UserAgent:    "countrystat/0.1",
	}
}

type UpstreamConfigHolder struct {
	current atomic.Value // holds UpstreamConfig
}

// NewStaticUpstreamConfigHolder returns a holder that never reloads.
func NewStaticUpstreamConfigHolder(cfg UpstreamConfig) *UpstreamConfigHolder {
	holder := &UpstreamConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewUpstreamConfigHolder reads upstream.yml from the given search paths (or the
// default ones) and watches it for changes. A missing file falls back to defaults.
func NewUpstreamConfigHolder(paths ...string) (*UpstreamConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("upstream")
	v.SetConfigType("yml")
	if len(paths) == 0 {
		paths = []string{"/etc/countrystat", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("COUNTRYSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultUpstreamConfig()
	v.SetDefault("upstream.countries_url", defaults.CountriesURL)
	v.SetDefault("upstream.rates_url", defaults.RatesURL)
	v.SetDefault("upstream.timeout", defaults.Timeout)
	v.SetDefault("upstream.user_agent", defaults.UserAgent)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg := readUpstreamConfig(v)
	if err := validateUpstreamConfig(cfg); err != nil {
		return nil, err
	}

	holder := &UpstreamConfigHolder{}
	holder.current.Store(cfg)

	if fileFound {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated := readUpstreamConfig(v)
			if err := validateUpstreamConfig(updated); err != nil {
				log.Printf("[upstream-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[upstream-config] reloaded from %s", e.Name)
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *UpstreamConfigHolder) Get() UpstreamConfig {
	return h.current.Load().(UpstreamConfig)
}

// readUpstreamConfig reads leaf keys one by one so env overrides apply.
func readUpstreamConfig(v *viper.Viper) UpstreamConfig {
	return UpstreamConfig{
		CountriesURL: strings.TrimSpace(v.GetString("upstream.countries_url")),
		RatesURL:     strings.TrimSpace(v.GetString("upstream.rates_url")),
		Timeout:      v.GetDuration("upstream.timeout"),
		UserAgent:    strings.TrimSpace(v.GetString("upstream.user_agent")),
	}
}

func validateUpstreamConfig(cfg UpstreamConfig) error {
	if cfg.CountriesURL == "" {
		return errors.New("upstream.countries_url cannot be empty")
	}
	if cfg.RatesURL == "" {
		return errors.New("upstream.rates_url cannot be empty")
	}
	if cfg.Timeout <= 0 {
		return errors.New("upstream.timeout must be positive")
	}
	return nil
}
