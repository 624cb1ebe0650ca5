// Command import loads a visitor or weather CSV file into the database
// without going through the HTTP API.
//
// Usage:
//
//	go run ./cmd/import -kind visitors -file besucher.csv
//	go run ./cmd/import -kind weather -mode skip-invalid-rows < wetter.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "github.com/couchcryptid/swim-forecast-service/internal/adapter/kafka"
	"github.com/couchcryptid/swim-forecast-service/internal/adapter/postgres"
	"github.com/couchcryptid/swim-forecast-service/internal/config"
	"github.com/couchcryptid/swim-forecast-service/internal/domain"
	"github.com/couchcryptid/swim-forecast-service/internal/observability"
	"github.com/couchcryptid/swim-forecast-service/internal/pipeline"
)

func main() {
	kind := flag.String("kind", "", "import kind: visitors or weather")
	file := flag.String("file", "-", "CSV file to import, - for stdin")
	mode := flag.String("mode", "", "row failure policy, overrides IMPORT_MODE")
	flag.Parse()

	if *kind != string(domain.ImportVisitors) && *kind != string(domain.ImportWeather) {
		flag.Usage()
		os.Exit(2)
	}

	os.Exit(run(domain.ImportKind(*kind), *file, *mode))
}

func run(kind domain.ImportKind, path, modeFlag string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	if modeFlag != "" {
		cfg.ImportMode = modeFlag
	}
	mode, err := pipeline.ParseMode(cfg.ImportMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mode: %v\n", err)
		return 2
	}

	in, err := openInput(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", path, err)
		return 1
	}
	defer in.Close() //nolint:errcheck // read-only

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.NewLogger(cfg)
	repo, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database: %v\n", err)
		return 1
	}
	defer repo.Close() //nolint:errcheck // process exit

	var opts []pipeline.Option
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer writer.Close() //nolint:errcheck // best effort
		opts = append(opts, pipeline.WithPublisher(writer))
	}
	importer := pipeline.NewImporter(repo, logger, observability.NewMetrics(), mode, opts...)

	var res domain.ImportResult
	if kind == domain.ImportWeather {
		res = importer.ImportWeatherData(ctx, in)
	} else {
		res = importer.ImportVisitorData(ctx, in)
	}

	fmt.Println(res.Message)
	if !res.Success {
		return 1
	}
	return 0
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
