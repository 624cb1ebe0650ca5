package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/swim-forecast-service/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Importer turns uploaded CSV files into stored records.
type Importer interface {
	ImportVisitorData(ctx context.Context, r io.Reader) domain.ImportResult
	ImportWeatherData(ctx context.Context, r io.Reader) domain.ImportResult
}

// WeatherFetcher serves current and forecast weather for the configured location.
type WeatherFetcher interface {
	FetchCurrentWeather(ctx context.Context) (domain.WeatherSnapshot, error)
	FetchWeatherForecast(ctx context.Context) ([]domain.WeatherSnapshot, error)
}

// SettingsStore reads and updates the settings row.
type SettingsStore interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
	UpdateSettings(ctx context.Context, upd domain.SettingsUpdate) (domain.Settings, error)
}

// VisitorReader serves stored visitor data.
type VisitorReader interface {
	ListRecentVisitors(ctx context.Context, limit int) ([]domain.VisitorRecord, error)
	ListVisitorsBetween(ctx context.Context, from, to string) ([]domain.VisitorRecord, error)
	LatestLiveVisitorCount(ctx context.Context) (domain.LiveVisitorCount, error)
}

// Dependencies are the collaborators behind the API routes.
type Dependencies struct {
	Ready    ReadinessChecker
	Importer Importer
	Weather  WeatherFetcher
	Settings SettingsStore
	Visitors VisitorReader
	Clock    clockwork.Clock // defaults to the real clock
}

// Server exposes the dashboard API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Dependencies
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, deps Dependencies, logger *slog.Logger) *Server {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/import/visitors", s.handleImport(domain.ImportVisitors))
	mux.HandleFunc("POST /api/import/weather", s.handleImport(domain.ImportWeather))

	mux.HandleFunc("GET /api/weather/current", s.handleCurrentWeather)
	mux.HandleFunc("GET /api/weather/forecast", s.handleWeatherForecast)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)

	mux.HandleFunc("GET /api/visitors/recent", s.handleRecentVisitors)
	mux.HandleFunc("GET /api/visitors/comparison", s.handleYearlyComparison)
	mux.HandleFunc("GET /api/visitors/forecast", s.handleVisitorForecast)
	mux.HandleFunc("GET /api/live-visitors/latest", s.handleLatestLiveVisitors)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

const msgInternal = "Interner Fehler. Bitte später erneut versuchen."

// internalError logs err and answers with a generic 500.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, msgInternal)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
