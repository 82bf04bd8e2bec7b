// Package kafka publishes recorded turns to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/papercomputeco/seagent/pkg/eventstream"
	"github.com/papercomputeco/seagent/pkg/logger"
)

const (
	defaultBatchTimeout = 10 * time.Millisecond
	defaultWriteTimeout = 10 * time.Second
)

// Config configures a Publisher.
type Config struct {
	Brokers []string
	Topic   string

	// MaxAttempts bounds delivery retries per message (kafka-go default when 0).
	MaxAttempts int

	// WriteTimeout bounds one write (defaults to 10s).
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// Publisher writes one JSON message per turn, keyed by chat ID so the turns
// of a chat stay ordered within a partition.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewPublisher creates a Publisher. No connection is made until the first
// publish.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if c.Topic == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}

	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultWriteTimeout
	}

	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}

	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(c.Brokers...),
			Topic:                  c.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			MaxAttempts:            c.MaxAttempts,
			BatchTimeout:           defaultBatchTimeout,
			WriteTimeout:           c.WriteTimeout,
			AllowAutoTopicCreation: true,
		},
		logger: l,
	}, nil
}

// PublishTurn writes event to the topic.
func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnRecordedEvent) error {
	msg, err := Message(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing turn %s: %w", event.Turn.ID, err)
	}

	p.logger.Debug("published turn event",
		"topic", p.writer.Topic,
		"event_id", event.EventID,
		"turn_id", event.Turn.ID,
	)
	return nil
}

// Close flushes pending writes and closes broker connections.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Message encodes event as a Kafka message.
func Message(event *eventstream.TurnRecordedEvent) (kafka.Message, error) {
	if event == nil {
		return kafka.Message{}, eventstream.ErrNilTurnEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding turn event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(strconv.Itoa(event.Turn.ChatID)),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(strconv.Itoa(event.SchemaVersion))},
		},
	}, nil
}
