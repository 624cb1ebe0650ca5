package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/swim-forecast-service/internal/observability"
	"github.com/couchcryptid/swim-forecast-service/internal/weather"
)

// DefaultBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Client implements weather.Provider using the OpenWeatherMap API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an OpenWeatherMap client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
		metrics:    metrics,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Current fetches the current conditions for loc.
func (c *Client) Current(ctx context.Context, loc weather.Location, apiKey string) (weather.Conditions, error) {
	var p payload
	if err := c.get(ctx, "current", "/weather", loc, apiKey, &p); err != nil {
		return weather.Conditions{}, err
	}
	return p.conditions(), nil
}

// Forecast fetches the 5 day / 3 hour forecast for loc.
func (c *Client) Forecast(ctx context.Context, loc weather.Location, apiKey string) ([]weather.Conditions, error) {
	var fp forecastPayload
	if err := c.get(ctx, "forecast", "/forecast", loc, apiKey, &fp); err != nil {
		return nil, err
	}
	out := make([]weather.Conditions, 0, len(fp.List))
	for _, p := range fp.List {
		out = append(out, p.conditions())
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, kind, path string, loc weather.Location, apiKey string, out any) error {
	params := url.Values{
		loc.Param: {loc.Value},
		"units":   {"metric"},
		"appid":   {apiKey},
	}
	fullURL := c.baseURL + path + "?" + params.Encode()

	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.doRequest(ctx, fullURL, out)
	})
	c.metrics.WeatherAPIDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	c.metrics.WeatherRequests.WithLabelValues(kind, outcome(err)).Inc()

	if err != nil {
		return fmt.Errorf("openweathermap %s: %w", kind, err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error repeats the URL, which carries the API key.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &e)
		return &weather.ProviderError{StatusCode: resp.StatusCode, Message: e.Message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// isSuccessful keeps caller mistakes (bad key, unknown location) and
// cancellations from tripping the breaker.
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var pe *weather.ProviderError
	return errors.As(err, &pe) &&
		pe.StatusCode >= 400 && pe.StatusCode < 500 &&
		pe.StatusCode != http.StatusTooManyRequests
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	var pe *weather.ProviderError
	if errors.As(err, &pe) {
		switch pe.StatusCode {
		case http.StatusUnauthorized:
			return "invalid_key"
		case http.StatusTooManyRequests:
			return "rate_limited"
		case http.StatusNotFound:
			return "not_found"
		}
	}
	return "error"
}

// OpenWeatherMap API response types.

type payload struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain *struct {
		OneHour    *float64 `json:"1h"`
		ThreeHours *float64 `json:"3h"`
	} `json:"rain"`
	DtTxt string `json:"dt_txt"`
}

type forecastPayload struct {
	List []payload `json:"list"`
}

func (p payload) conditions() weather.Conditions {
	c := weather.Conditions{
		Time:      p.DtTxt,
		Temp:      p.Main.Temp,
		FeelsLike: p.Main.FeelsLike,
		Humidity:  p.Main.Humidity,
		WindSpeed: p.Wind.Speed,
	}
	if len(p.Weather) > 0 {
		c.Description = p.Weather[0].Description
		c.Icon = p.Weather[0].Icon
	}
	if p.Rain != nil {
		c.Rain1h = p.Rain.OneHour
		c.Rain3h = p.Rain.ThreeHours
	}
	return c
}
