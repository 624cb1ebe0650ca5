package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/swim-forecast-service/internal/domain"
	"github.com/couchcryptid/swim-forecast-service/internal/weather"
)

const (
	defaultRecentDays = 30
	maxRecentDays     = 365
)

func (s *Server) handleRecentVisitors(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentDays
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRecentDays {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit muss zwischen 1 und %d liegen.", maxRecentDays))
			return
		}
		limit = n
	}

	records, err := s.deps.Visitors.ListRecentVisitors(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleYearlyComparison(w http.ResponseWriter, r *http.Request) {
	year := s.deps.Clock.Now().Year()
	from := fmt.Sprintf("%04d-01-01", year-domain.ComparisonYears+1)
	to := fmt.Sprintf("%04d-12-31", year)

	records, err := s.deps.Visitors.ListVisitorsBetween(r.Context(), from, to)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.BuildYearlyComparisons(records, year))
}

func (s *Server) handleVisitorForecast(w http.ResponseWriter, r *http.Request) {
	forecast, err := s.deps.Weather.FetchWeatherForecast(r.Context())
	if err != nil {
		s.writeWeatherError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.PredictVisitorsForForecast(forecast))
}

func (s *Server) handleLatestLiveVisitors(w http.ResponseWriter, r *http.Request) {
	live, err := s.deps.Visitors.LatestLiveVisitorCount(r.Context())
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Keine aktuelle Besucherzahl verfügbar.")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, live)
}

type dashboardResponse struct {
	CurrentWeather *domain.WeatherSnapshot  `json:"current_weather"`
	Forecast       []domain.VisitorForecast `json:"forecast"`
	WeatherError   string                   `json:"weather_error,omitempty"`
	RecentVisitors []domain.VisitorRecord   `json:"recent_visitors"`
	LiveVisitors   *domain.LiveVisitorCount `json:"live_visitors"`
	WinterBreak    bool                     `json:"winter_break"`
}

// handleDashboard gathers every dashboard panel concurrently. Weather
// failures degrade to weather_error; storage failures fail the request.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var (
		resp        = dashboardResponse{WinterBreak: domain.IsWinterBreak(s.deps.Clock.Now())}
		currentErr  error
		forecastErr error
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		snap, err := s.deps.Weather.FetchCurrentWeather(ctx)
		if err != nil {
			currentErr = err
			return nil
		}
		resp.CurrentWeather = &snap
		return nil
	})
	g.Go(func() error {
		forecast, err := s.deps.Weather.FetchWeatherForecast(ctx)
		if err != nil {
			forecastErr = err
			return nil
		}
		resp.Forecast = domain.PredictVisitorsForForecast(forecast)
		return nil
	})
	g.Go(func() error {
		records, err := s.deps.Visitors.ListRecentVisitors(ctx, defaultRecentDays)
		if err != nil {
			return fmt.Errorf("recent visitors: %w", err)
		}
		resp.RecentVisitors = records
		return nil
	})
	g.Go(func() error {
		live, err := s.deps.Visitors.LatestLiveVisitorCount(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("live visitors: %w", err)
		}
		resp.LiveVisitors = &live
		return nil
	})

	if err := g.Wait(); err != nil {
		s.internalError(w, r, err)
		return
	}

	if err := errors.Join(currentErr, forecastErr); err != nil {
		s.logger.Warn("dashboard weather unavailable", "error", err)
		resp.WeatherError = weather.Message(firstErr(currentErr, forecastErr))
	}
	if resp.Forecast == nil {
		resp.Forecast = []domain.VisitorForecast{}
	}
	if resp.RecentVisitors == nil {
		resp.RecentVisitors = []domain.VisitorRecord{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return errors.Join(errs...)
}
