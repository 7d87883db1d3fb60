package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
	"github.com/kevin07696/booking-payment-service/pkg/observability"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes payment lifecycle events to a Kafka topic, keyed by booking
// id so a booking's events stay ordered within a partition.
type Publisher struct {
	writer  messageWriter
	brokers []string
	logger  *zap.Logger
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a producer for topic
func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	return &Publisher{writer: writer, brokers: brokers, logger: logger}
}

// Publish serializes event as JSON. Missing ids and timestamps are filled in.
func (p *Publisher) Publish(ctx context.Context, event ports.PaymentEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.BookingID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		observability.RecordEventPublishFailure(string(event.Type))
		return fmt.Errorf("write %s event: %w", event.Type, err)
	}

	p.logger.Debug("Published payment event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("booking_id", event.BookingID),
	)
	return nil
}

// Ping dials the first reachable broker
func (p *Publisher) Ping(ctx context.Context) error {
	var errs []error
	for _, broker := range p.brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return conn.Close()
	}
	if len(errs) == 0 {
		return errors.New("no kafka brokers configured")
	}
	return fmt.Errorf("kafka unreachable: %w", errors.Join(errs...))
}

// Close flushes pending writes
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops events. Used when no brokers are configured.
type NoopPublisher struct {
	logger *zap.Logger
}

var _ ports.EventPublisher = (*NoopPublisher)(nil)

// NewNoopPublisher creates a publisher that only logs
func NewNoopPublisher(logger *zap.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) Publish(ctx context.Context, event ports.PaymentEvent) error {
	p.logger.Debug("Event publishing disabled, dropping event",
		zap.String("type", string(event.Type)),
		zap.String("booking_id", event.BookingID),
	)
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
