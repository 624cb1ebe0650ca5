package http

import (
	"errors"
	"net/http"

	"github.com/couchcryptid/swim-forecast-service/internal/weather"
)

// rateLimitRetryAfter matches the provider's advice to retry in about 10 minutes.
const rateLimitRetryAfter = "600"

func (s *Server) handleCurrentWeather(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Weather.FetchCurrentWeather(r.Context())
	if err != nil {
		s.writeWeatherError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWeatherForecast(w http.ResponseWriter, r *http.Request) {
	forecast, err := s.deps.Weather.FetchWeatherForecast(r.Context())
	if err != nil {
		s.writeWeatherError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, forecast)
}

func (s *Server) writeWeatherError(w http.ResponseWriter, r *http.Request, err error) {
	status := weatherStatus(err)
	if status == http.StatusInternalServerError {
		s.internalError(w, r, err)
		return
	}
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", rateLimitRetryAfter)
	}
	writeError(w, status, weather.Message(err))
}

func weatherStatus(err error) int {
	switch {
	case errors.Is(err, weather.ErrNoAPIKey):
		return http.StatusPreconditionFailed
	case errors.Is(err, weather.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, weather.ErrLocationNotFound):
		return http.StatusNotFound
	case errors.Is(err, weather.ErrInvalidAPIKey), errors.Is(err, weather.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
