package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/swim-forecast-service/internal/domain"
	"github.com/couchcryptid/swim-forecast-service/internal/observability"
)

// User-facing import messages.
const (
	MsgNoValidData   = "Keine gültigen Daten in der CSV-Datei gefunden."
	MsgParseFailed   = "Fehler beim Parsen der CSV-Datei."
	MsgImportFailed  = "Fehler beim Importieren der Daten."
	msgVisitorsSaved = "%d Besucherdaten erfolgreich importiert."
	msgWeatherSaved  = "%d Wetterdaten erfolgreich importiert."
)

// Mode selects how an import treats a row that has its required columns
// but cannot be normalized (bad date, non-numeric count, ...).
type Mode string

const (
	// FailWholeBatch aborts the import on the first invalid row.
	FailWholeBatch Mode = "fail-whole-batch"
	// SkipInvalidRows drops invalid rows and imports the rest.
	SkipInvalidRows Mode = "skip-invalid-rows"
)

// ParseMode validates a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case FailWholeBatch, SkipInvalidRows:
		return m, nil
	default:
		return "", fmt.Errorf("unknown import mode %q", s)
	}
}

// BatchLoader persists a whole import in one call. An error means nothing was stored.
type BatchLoader interface {
	InsertVisitorData(ctx context.Context, records []domain.VisitorRecord) error
	InsertWeatherData(ctx context.Context, records []domain.WeatherRecord) error
}

// Publisher announces successfully stored imports.
type Publisher interface {
	PublishBatch(ctx context.Context, batch domain.ImportedBatch) error
}

// Option configures an Importer.
type Option func(*Importer)

// WithPublisher notifies p after every successful insert.
func WithPublisher(p Publisher) Option {
	return func(i *Importer) { i.publisher = p }
}

// WithClock sets the clock used for created_at defaults.
func WithClock(c clockwork.Clock) Option {
	return func(i *Importer) { i.clock = c }
}

// Importer turns uploaded CSV files into validated records and stores them.
type Importer struct {
	loader    BatchLoader
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	mode      Mode
}

// NewImporter creates an Importer writing to loader.
func NewImporter(loader BatchLoader, logger *slog.Logger, metrics *observability.Metrics, mode Mode, opts ...Option) *Importer {
	i := &Importer{
		loader:  loader,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
		mode:    mode,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ImportVisitorData imports a visitor CSV with at least date and count columns.
func (i *Importer) ImportVisitorData(ctx context.Context, r io.Reader) domain.ImportResult {
	return runImport(ctx, i, r, importer[domain.VisitorRecord]{
		kind:    domain.ImportVisitors,
		build:   visitorFromRow,
		insert:  i.loader.InsertVisitorData,
		success: msgVisitorsSaved,
		batch: func(recs []domain.VisitorRecord, at time.Time) domain.ImportedBatch {
			return domain.ImportedBatch{Kind: domain.ImportVisitors, Visitors: recs, ImportedAt: at}
		},
	})
}

// ImportWeatherData imports a weather CSV with date, temperature and condition columns.
func (i *Importer) ImportWeatherData(ctx context.Context, r io.Reader) domain.ImportResult {
	return runImport(ctx, i, r, importer[domain.WeatherRecord]{
		kind:    domain.ImportWeather,
		build:   weatherFromRow,
		insert:  i.loader.InsertWeatherData,
		success: msgWeatherSaved,
		batch: func(recs []domain.WeatherRecord, at time.Time) domain.ImportedBatch {
			return domain.ImportedBatch{Kind: domain.ImportWeather, Weather: recs, ImportedAt: at}
		},
	})
}

type importer[T any] struct {
	kind    domain.ImportKind
	build   func(row, time.Time) (T, error)
	insert  func(context.Context, []T) error
	batch   func([]T, time.Time) domain.ImportedBatch
	success string
}

func runImport[T any](ctx context.Context, imp *Importer, r io.Reader, format importer[T]) domain.ImportResult {
	kind := string(format.kind)
	logger := imp.logger.With("kind", kind)

	t, err := readTable(r)
	if err != nil {
		logger.Warn("csv parse failed", "error", err)
		imp.metrics.Imports.WithLabelValues(kind, "parse_error").Inc()
		return domain.ImportResult{Message: MsgParseFailed}
	}

	now := imp.clock.Now()
	records := make([]T, 0, len(t.rows))
	var dropped, invalid int
	for _, row := range t.rows {
		rec, err := format.build(row, now)
		switch {
		case err == nil:
			records = append(records, rec)
		case errors.Is(err, errIncomplete):
			dropped++
		case imp.mode == SkipInvalidRows:
			invalid++
			logger.Warn("skipping invalid row", "error", err)
		default:
			logger.Error("import aborted on invalid row", "error", err)
			imp.addRows(kind, "dropped", dropped)
			imp.addRows(kind, "invalid", 1)
			imp.metrics.Imports.WithLabelValues(kind, "failed").Inc()
			return domain.ImportResult{Message: MsgImportFailed}
		}
	}
	imp.addRows(kind, "dropped", dropped)
	imp.addRows(kind, "invalid", invalid)

	if len(records) == 0 {
		logger.Info("csv contained no valid rows", "rows", len(t.rows))
		imp.metrics.Imports.WithLabelValues(kind, "empty").Inc()
		return domain.ImportResult{Message: MsgNoValidData}
	}

	if err := format.insert(ctx, records); err != nil {
		logger.Error("batch insert failed", "error", err, "records", len(records))
		imp.metrics.Imports.WithLabelValues(kind, "failed").Inc()
		return domain.ImportResult{Message: MsgImportFailed}
	}

	imp.addRows(kind, "imported", len(records))
	imp.metrics.Imports.WithLabelValues(kind, "success").Inc()
	logger.Info("import stored", "records", len(records), "dropped", dropped, "invalid", invalid)

	imp.publish(ctx, format.batch(records, now))

	return domain.ImportResult{
		Success: true,
		Message: fmt.Sprintf(format.success, len(records)),
		Count:   len(records),
	}
}

// publish hands the stored batch to the publisher. Failures are logged only;
// the import has already succeeded.
func (i *Importer) publish(ctx context.Context, batch domain.ImportedBatch) {
	if i.publisher == nil {
		return
	}
	kind := string(batch.Kind)
	if err := i.publisher.PublishBatch(ctx, batch); err != nil {
		i.logger.Warn("publish import batch failed", "error", err, "kind", kind, "records", batch.Len())
		i.metrics.Published.WithLabelValues(kind, "error").Inc()
		return
	}
	i.metrics.Published.WithLabelValues(kind, "success").Inc()
}

func (i *Importer) addRows(kind, outcome string, n int) {
	if n > 0 {
		i.metrics.ImportRows.WithLabelValues(kind, outcome).Add(float64(n))
	}
}
