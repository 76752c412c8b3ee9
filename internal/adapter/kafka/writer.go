// Package kafka streams published sensor records to a sink topic for
// downstream automations and archival.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/cfa-fire-forecast/internal/config"
	"github.com/couchcryptid/cfa-fire-forecast/internal/sensor"
)

// Writer produces sensor records to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Publish serializes and writes one district record to the sink topic.
func (w *Writer) Publish(ctx context.Context, record sensor.Record) error {
	msg, err := serializeToMessage(record)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the underlying producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Record into a Kafka message keyed by
// district slug, so per-district ordering is preserved within a partition.
func serializeToMessage(record sensor.Record) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize sensor record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(record.DistrictSlug),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "district", Value: []byte(record.DistrictSlug)},
			{Key: "health", Value: []byte(record.Health)},
			{Key: "projected_at", Value: []byte(record.ProjectedAt.Format(time.RFC3339))},
		},
	}, nil
}
