package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/asos-pressure-etl/internal/config"
	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

// Writer announces ingested months on a Kafka topic.
// It implements pipeline.Notifier.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured ingest topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Notify publishes one ingest event keyed by station and month, so all
// events for a month land on the same partition.
func (w *Writer) Notify(ctx context.Context, event domain.IngestEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write ingest event: %w", err)
	}
	w.logger.Debug("ingest event published", "id", event.ID, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// messageKey renders e.g. "KMLB-201701".
func messageKey(event domain.IngestEvent) string {
	return fmt.Sprintf("%s-%04d%02d", event.Station, event.Year, event.Month)
}

// serializeToMessage marshals an IngestEvent into a Kafka message.
func serializeToMessage(event domain.IngestEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize ingest event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey(event)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station", Value: []byte(event.Station)},
			{Key: "processed_at", Value: []byte(event.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
