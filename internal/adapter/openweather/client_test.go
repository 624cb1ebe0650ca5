package openweather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/swim-forecast-service/internal/observability"
	"github.com/couchcryptid/swim-forecast-service/internal/weather"
)

const (
	testKey           = "secret-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var berlin = weather.Location{Param: "q", Value: "Berlin,DE"}

func testClient(baseURL string) (*Client, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return NewClient(baseURL, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics), metrics
}

func TestClient_Current_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "Berlin,DE", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, testKey, r.URL.Query().Get("appid"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `{
			"main": {"temp": 21.4, "feels_like": 20.9, "humidity": 61},
			"weather": [{"description": "leichter Regen", "icon": "10d"}, {"description": "Nebel", "icon": "50d"}],
			"wind": {"speed": 4.1},
			"rain": {"1h": 0.6}
		}`)
	}))
	defer srv.Close()

	c, metrics := testClient(srv.URL)
	got, err := c.Current(context.Background(), berlin, testKey)
	require.NoError(t, err)

	assert.InDelta(t, 21.4, got.Temp, 0.0001)
	assert.InDelta(t, 20.9, got.FeelsLike, 0.0001)
	assert.InDelta(t, 61, got.Humidity, 0.0001)
	assert.Equal(t, "leichter Regen", got.Description)
	assert.Equal(t, "10d", got.Icon)
	assert.InDelta(t, 4.1, got.WindSpeed, 0.0001)
	require.NotNil(t, got.Rain1h)
	assert.InDelta(t, 0.6, *got.Rain1h, 0.0001)
	assert.Nil(t, got.Rain3h)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.WeatherRequests.WithLabelValues("current", "success")), 0)
}

func TestClient_Current_ZipLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10115,DE", r.URL.Query().Get("zip"))
		assert.Empty(t, r.URL.Query().Get("q"))
		_, _ = io.WriteString(w, `{"main": {}, "weather": [], "wind": {}}`)
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL)
	got, err := c.Current(context.Background(), weather.Location{Param: "zip", Value: "10115,DE"}, testKey)
	require.NoError(t, err)
	assert.Empty(t, got.Description)
	assert.Nil(t, got.Rain1h)
}

func TestClient_Forecast_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `{"list": [
			{"dt_txt": "2025-07-19 09:00:00", "main": {"temp": 18}, "weather": [{"description": "Wolken", "icon": "03d"}], "wind": {"speed": 2}},
			{"dt_txt": "2025-07-19 12:00:00", "main": {"temp": 23}, "weather": [{"description": "Regen", "icon": "10d"}], "wind": {"speed": 3}, "rain": {"3h": 1.25}}
		]}`)
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL)
	got, err := c.Forecast(context.Background(), berlin, testKey)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "2025-07-19 09:00:00", got[0].Time)
	assert.Nil(t, got[0].Rain3h)
	assert.Equal(t, "2025-07-19 12:00:00", got[1].Time)
	require.NotNil(t, got[1].Rain3h)
	assert.InDelta(t, 1.25, *got[1].Rain3h, 0.0001)
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		outcome string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"cod":401,"message":"Invalid API key."}`, message: "Invalid API key.", outcome: "invalid_key"},
		{name: "not found", status: http.StatusNotFound, body: `{"cod":"404","message":"city not found"}`, message: "city not found", outcome: "not_found"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"cod":429}`, outcome: "rate_limited"},
		{name: "server error", status: http.StatusInternalServerError, body: "oops", outcome: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c, metrics := testClient(srv.URL)
			_, err := c.Current(context.Background(), berlin, testKey)

			var pe *weather.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.message, pe.Message)
			assert.InDelta(t, 1, testutil.ToFloat64(metrics.WeatherRequests.WithLabelValues("current", tt.outcome)), 0)
		})
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL)
	_, err := c.Current(context.Background(), berlin, testKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_TransportErrorHidesAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	c, _ := testClient(baseURL)
	_, err := c.Current(context.Background(), berlin, testKey)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testKey)
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL)
	for range 5 {
		_, err := c.Current(context.Background(), berlin, testKey)
		require.Error(t, err)
	}

	_, err := c.Current(context.Background(), berlin, testKey)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), hits.Load())
}

func TestClient_BreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("appid") == "bad" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL)
	for i := range 10 {
		key := "bad"
		if i%2 == 0 {
			key = testKey
		}
		_, err := c.Current(context.Background(), berlin, key)
		var pe *weather.ProviderError
		require.ErrorAs(t, err, &pe)
	}
	assert.Equal(t, int32(10), hits.Load())
}

func TestIsSuccessful(t *testing.T) {
	assert.True(t, isSuccessful(nil))
	assert.True(t, isSuccessful(context.Canceled))
	assert.True(t, isSuccessful(&weather.ProviderError{StatusCode: http.StatusUnauthorized}))
	assert.True(t, isSuccessful(&weather.ProviderError{StatusCode: http.StatusNotFound}))
	assert.False(t, isSuccessful(&weather.ProviderError{StatusCode: http.StatusTooManyRequests}))
	assert.False(t, isSuccessful(&weather.ProviderError{StatusCode: http.StatusServiceUnavailable}))
	assert.False(t, isSuccessful(errors.New("connection reset")))
}
