// Package kafka publishes turn events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/logger"
)

// DefaultTopic is used when Config.Topic is empty.
const DefaultTopic = "recall.turns"

// writer is the subset of *kafkago.Writer the publisher uses.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds each write. Zero uses kafka-go's default.
	WriteTimeout time.Duration
}

// Publisher writes one message per event, keyed by user id so a user's
// events stay ordered within a partition.
type Publisher struct {
	w      writer
	topic  string
	logger *slog.Logger
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(c Config, log *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		WriteTimeout:           c.WriteTimeout,
		AllowAutoTopicCreation: true,
	}

	return newPublisher(w, topic, log), nil
}

func newPublisher(w writer, topic string, log *slog.Logger) *Publisher {
	return &Publisher{w: w, topic: topic, logger: logger.OrNop(log)}
}

// PublishTurn serializes event as JSON and writes it synchronously.
func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: marshaling event: %v", eventstream.ErrPublish, err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Session.UserID),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: writing to %s: %v", eventstream.ErrPublish, p.topic, err)
	}

	p.logger.Debug("published turn event",
		"topic", p.topic,
		"event_id", event.EventID,
	)
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
