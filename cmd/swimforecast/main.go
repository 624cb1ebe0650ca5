package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/swim-forecast-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/swim-forecast-service/internal/adapter/kafka"
	"github.com/couchcryptid/swim-forecast-service/internal/adapter/openweather"
	"github.com/couchcryptid/swim-forecast-service/internal/adapter/postgres"
	"github.com/couchcryptid/swim-forecast-service/internal/config"
	"github.com/couchcryptid/swim-forecast-service/internal/observability"
	"github.com/couchcryptid/swim-forecast-service/internal/pipeline"
	"github.com/couchcryptid/swim-forecast-service/internal/scheduler"
	"github.com/couchcryptid/swim-forecast-service/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close() //nolint:errcheck // process exit

	owClient := openweather.NewClient(cfg.OpenWeatherBaseURL, cfg.OpenWeatherTimeout, logger, metrics)
	weatherSvc := weather.NewService(repo, owClient, weather.Config{
		FallbackAPIKey: cfg.OpenWeatherAPIKey,
		CountryCode:    cfg.WeatherCountryCode,
		DefaultCity:    cfg.WeatherDefaultCity,
		TTL:            cfg.WeatherCacheTTL,
	}, logger, metrics, weather.WithClock(clock))

	mode, err := pipeline.ParseMode(cfg.ImportMode)
	if err != nil {
		logger.Error("invalid import mode", "error", err)
		os.Exit(1)
	}
	importOpts := []pipeline.Option{pipeline.WithClock(clock)}

	// Import events are published only when KAFKA_ENABLED is set.
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		importOpts = append(importOpts, pipeline.WithPublisher(writer))
		logger.Info("import publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaImportTopic)
	}
	importer := pipeline.NewImporter(repo, logger, metrics, mode, importOpts...)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Dependencies{
		Ready:    repo,
		Importer: importer,
		Weather:  weatherSvc,
		Settings: repo,
		Visitors: repo,
		Clock:    clock,
	}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	recorderDone := make(chan struct{})
	if cfg.WeatherRecordInterval > 0 {
		recorder, err := scheduler.NewRecorder(weatherSvc, repo, cfg.WeatherRecordInterval, clock, logger, metrics)
		if err != nil {
			logger.Error("failed to create weather recorder", "error", err)
			os.Exit(1)
		}
		go func() {
			defer close(recorderDone)
			if err := recorder.Run(ctx); err != nil {
				logger.Error("weather recorder error", "error", err)
			}
		}()
	} else {
		close(recorderDone)
		logger.Info("weather recorder disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-recorderDone:
	case <-shutdownCtx.Done():
		logger.Warn("weather recorder did not stop in time")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
