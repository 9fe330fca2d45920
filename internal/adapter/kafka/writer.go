package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/casemap-service/internal/config"
	"github.com/couchcryptid/casemap-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys set on every snapshot message.
const (
	HeaderDate       = "date"
	HeaderAtomic     = "atomic_features"
	HeaderUnresolved = "unresolved_features"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes day snapshots to a Kafka topic, keyed by date so that a
// compacted topic keeps only the newest snapshot per day.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSnapshotTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes one snapshot.
func (w *Writer) Publish(ctx context.Context, snap domain.DaySnapshot) error {
	msg, err := serializeToMessage(snap)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", snap.Date, err)
	}
	w.logger.Debug("snapshot published", "date", snap.Date, "bytes", len(msg.Value))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a DaySnapshot into a Kafka message.
func serializeToMessage(snap domain.DaySnapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(snap.Date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderDate, Value: []byte(snap.Date)},
			{Key: HeaderAtomic, Value: []byte(strconv.Itoa(len(snap.Atomic)))},
			{Key: HeaderUnresolved, Value: []byte(strconv.Itoa(snap.Unresolved))},
		},
	}, nil
}

// DecodeMessage parses a snapshot message produced by Writer.
func DecodeMessage(msg kafkago.Message) (domain.DaySnapshot, error) {
	var snap domain.DaySnapshot
	if err := json.Unmarshal(msg.Value, &snap); err != nil {
		return domain.DaySnapshot{}, fmt.Errorf("decode snapshot %s: %w", msg.Key, err)
	}
	if snap.Date != string(msg.Key) {
		return domain.DaySnapshot{}, fmt.Errorf("decode snapshot: key %q does not match date %q", msg.Key, snap.Date)
	}
	return snap, nil
}
