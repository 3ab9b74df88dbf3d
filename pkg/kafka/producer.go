// Package kafka publishes player lifecycle events.
package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Producer writes player events to a topic
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string      `koanf:"brokers"`
	Topic        string        `koanf:"topic"`
	BatchSize    int           `koanf:"batch_size"`
	BatchTimeout time.Duration `koanf:"batch_timeout"`
	RequiredAcks int           `koanf:"required_acks"`
	Compression  string        `koanf:"compression"`
}

// NewProducer creates a new Kafka producer. No connection is made until the first write.
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compressionCodec(cfg.Compression),
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

func compressionCodec(name string) kafka.Compression {
	switch name {
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	case "none":
		return 0
	default:
		return kafka.Snappy
	}
}

// Close flushes pending messages and closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// PlayerEvent is the payload of every player lifecycle event
type PlayerEvent struct {
	EventID         string    `json:"event_id"`
	EventType       string    `json:"event_type"`
	SchemaVersion   string    `json:"schema_version"`
	PlayerID        int64     `json:"player_id"`
	TeamID          *int64    `json:"team_id,omitempty"`
	JerseyNumber    *int      `json:"jersey_number,omitempty"`
	MatchedPlayerID *int64    `json:"matched_player_id,omitempty"`
	MergedPlayerID  *int64    `json:"merged_player_id,omitempty"`
	MatchType       string    `json:"match_type,omitempty"`
	SimilarityScore float64   `json:"similarity_score,omitempty"`
	MatchedFields   []string  `json:"matched_fields,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// PublishPlayerEvent publishes a player event keyed by player id
func (p *Producer) PublishPlayerEvent(ctx context.Context, event *PlayerEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishPlayerEvent")
	defer span.End()

	msg, err := p.message(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish player event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"event_id":   event.EventID,
		"player_id":  event.PlayerID,
	}).Debug("Published player event")

	return nil
}

// message fills in the event envelope and encodes it
func (p *Producer) message(event *PlayerEvent) (kafka.Message, error) {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.SchemaVersion == "" {
		event.SchemaVersion = SchemaVersion
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Topic: p.topic,
		Key:   []byte(strconv.FormatInt(event.PlayerID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
			{Key: "schema_version", Value: []byte(event.SchemaVersion)},
		},
	}, nil
}
