package weather

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/swim-forecast-service/internal/domain"
	"github.com/couchcryptid/swim-forecast-service/internal/observability"
)

const (
	kindCurrent  = "current"
	kindForecast = "forecast"
)

// DefaultTTL is how long a fetched result is served from the cache.
const DefaultTTL = 10 * time.Minute

// Location is a provider query parameter, either zip=<code>,<country> or q=<city>.
type Location struct {
	Param string
	Value string
}

func (l Location) String() string { return l.Param + "=" + l.Value }

// Conditions is one provider observation, flattened from its JSON shape.
// Description and Icon come from the first condition entry.
type Conditions struct {
	Time        string // "YYYY-MM-DD HH:MM:SS", forecast entries only
	Temp        float64
	FeelsLike   float64
	Humidity    float64
	Description string
	Icon        string
	WindSpeed   float64
	Rain1h      *float64
	Rain3h      *float64
}

// Provider calls the weather API. Non-2xx responses are returned as *ProviderError.
type Provider interface {
	Current(ctx context.Context, loc Location, apiKey string) (Conditions, error)
	Forecast(ctx context.Context, loc Location, apiKey string) ([]Conditions, error)
}

// SettingsSource supplies the stored API key and postal code.
type SettingsSource interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
}

// Config holds the location and caching defaults.
type Config struct {
	FallbackAPIKey string // used when the stored key is empty
	CountryCode    string
	DefaultCity    string
	TTL            time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for cache freshness and today's date.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithStores replaces the in-memory caches.
func WithStores(current Store[domain.WeatherSnapshot], forecast Store[[]domain.WeatherSnapshot]) Option {
	return func(s *Service) {
		s.current = current
		s.forecast = forecast
	}
}

// Service resolves the configured location, serves recent results from its
// cache and classifies provider failures.
type Service struct {
	settings SettingsSource
	provider Provider
	cfg      Config
	current  Store[domain.WeatherSnapshot]
	forecast Store[[]domain.WeatherSnapshot]
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewService creates a weather Service.
func NewService(settings SettingsSource, provider Provider, cfg Config, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "DE"
	}
	if cfg.DefaultCity == "" {
		cfg.DefaultCity = "Berlin,DE"
	}
	s := &Service{
		settings: settings,
		provider: provider,
		cfg:      cfg,
		current:  NewMemoryStore[domain.WeatherSnapshot](),
		forecast: NewMemoryStore[[]domain.WeatherSnapshot](),
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchCurrentWeather returns today's conditions for the configured location.
func (s *Service) FetchCurrentWeather(ctx context.Context) (domain.WeatherSnapshot, error) {
	return fetchCached(ctx, s, kindCurrent, s.current,
		func(ctx context.Context, loc Location, apiKey string) (domain.WeatherSnapshot, error) {
			c, err := s.provider.Current(ctx, loc, apiKey)
			if err != nil {
				return domain.WeatherSnapshot{}, err
			}
			return currentSnapshot(c, s.clock.Now()), nil
		})
}

// FetchWeatherForecast returns up to five daily snapshots in provider order.
// The returned slice is a copy; callers may modify it without touching the cache.
func (s *Service) FetchWeatherForecast(ctx context.Context) ([]domain.WeatherSnapshot, error) {
	forecast, err := fetchCached(ctx, s, kindForecast, s.forecast,
		func(ctx context.Context, loc Location, apiKey string) ([]domain.WeatherSnapshot, error) {
			entries, err := s.provider.Forecast(ctx, loc, apiKey)
			if err != nil {
				return nil, err
			}
			return dailyForecast(entries), nil
		})
	return slices.Clone(forecast), err
}

func fetchCached[V any](
	ctx context.Context,
	s *Service,
	kind string,
	store Store[V],
	fetch func(context.Context, Location, string) (V, error),
) (V, error) {
	var zero V

	loc, apiKey, err := s.resolve(ctx)
	if err != nil {
		return zero, err
	}

	key := kind + ":" + loc.String() + "|" + apiKey
	if e, ok := store.Get(key); ok && s.clock.Since(e.CapturedAt) < s.cfg.TTL {
		s.metrics.WeatherCache.WithLabelValues(kind, "hit").Inc()
		return e.Value, nil
	}
	s.metrics.WeatherCache.WithLabelValues(kind, "miss").Inc()

	v, err := fetch(ctx, loc, apiKey)
	if err != nil {
		err = classify(err)
		s.logger.Warn("weather fetch failed", "kind", kind, "location", loc.String(), "error", err)
		return zero, err
	}

	store.Set(key, Entry[V]{Value: v, CapturedAt: s.clock.Now()})
	return v, nil
}

// resolve reads the settings and derives the provider location and API key.
func (s *Service) resolve(ctx context.Context) (Location, string, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return Location{}, "", fmt.Errorf("load weather settings: %w", err)
	}

	apiKey := strings.TrimSpace(settings.OpenWeatherAPIKey)
	if apiKey == "" {
		apiKey = s.cfg.FallbackAPIKey
	}
	if apiKey == "" {
		return Location{}, "", ErrNoAPIKey
	}

	if pc := strings.TrimSpace(settings.PostalCode); pc != "" {
		return Location{Param: "zip", Value: pc + "," + s.cfg.CountryCode}, apiKey, nil
	}
	return Location{Param: "q", Value: s.cfg.DefaultCity}, apiKey, nil
}
