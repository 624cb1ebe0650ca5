package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/swim-forecast-service/internal/config"
	"github.com/couchcryptid/swim-forecast-service/internal/domain"
)

// Header keys set on every published record.
const (
	HeaderRecordType = "record_type"
	HeaderImportedAt = "imported_at"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes imported records to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured import topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaImportTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishBatch sends one message per record in a single WriteMessages call.
// Records are keyed by date so every version of a day lands on one partition.
func (w *Writer) PublishBatch(ctx context.Context, batch domain.ImportedBatch) error {
	msgs, err := batchMessages(batch)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d %s records: %w", len(msgs), batch.Kind, err)
	}
	w.logger.Debug("import batch published", "kind", string(batch.Kind), "records", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func batchMessages(batch domain.ImportedBatch) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, 0, batch.Len())
	switch batch.Kind {
	case domain.ImportVisitors:
		for _, r := range batch.Visitors {
			msg, err := serializeToMessage(batch, r.Date, r)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, msg)
		}
	case domain.ImportWeather:
		for _, r := range batch.Weather {
			msg, err := serializeToMessage(batch, r.Date, r)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, msg)
		}
	default:
		return nil, fmt.Errorf("unknown import kind %q", batch.Kind)
	}
	return msgs, nil
}

// serializeToMessage marshals one imported record into a Kafka message.
func serializeToMessage(batch domain.ImportedBatch, date string, record any) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record: %w", batch.Kind, err)
	}
	return kafkago.Message{
		Key:   []byte(date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderRecordType, Value: []byte(batch.Kind)},
			{Key: HeaderImportedAt, Value: []byte(batch.ImportedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
