package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flood-activation-etl/internal/config"
	"github.com/couchcryptid/flood-activation-etl/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes collected activations to a Kafka topic, keyed by
// activation ID.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes events in a single WriteMessages call.
// Synthetic placeholder events are never published.
func (w *Writer) Publish(ctx context.Context, runID string, events []domain.DisasterEvent) (int, error) {
	msgs := make([]kafkago.Message, 0, len(events))
	for i := range events {
		if events[i].Synthetic {
			continue
		}
		msg, err := serializeToMessage(runID, events[i])
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("publish %d activations: %w", len(msgs), err)
	}
	w.logger.Debug("published activations", "events", len(msgs), "run_id", runID)
	return len(msgs), nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a DisasterEvent into a Kafka message.
func serializeToMessage(runID string, event domain.DisasterEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize activation %s: %w", event.ActivationID, err)
	}
	severity := ""
	if event.Severity != nil {
		severity = *event.Severity
	}
	return kafkago.Message{
		Key:   []byte(event.ActivationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "region", Value: []byte(event.Location.Region)},
			{Key: "severity", Value: []byte(severity)},
			{Key: "collected_at", Value: []byte(event.CollectedAt.Format(time.RFC3339))},
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}
