package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wallet-reconciler/config"
	"wallet-reconciler/internal/core/domain"

	"github.com/segmentio/kafka-go"
)

const eventTypeDepositCredited = "deposit_credited"

// messageWriter is the subset of *kafka.Writer used by Publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements ports.EventPublisher on a Kafka topic.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a publisher writing to cfg.Topic. Messages are keyed
// by fingerprint so redeliveries of one deposit land on the same partition.
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// PublishDepositCredited writes one event for a committed deposit.
func (p *Publisher) PublishDepositCredited(ctx context.Context, evt domain.DepositCredited) error {
	msg, err := depositMessage(evt)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write deposit_credited: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func depositMessage(evt domain.DepositCredited) (kafka.Message, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal deposit event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(evt.Fingerprint),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventTypeDepositCredited)},
		},
		Time: evt.CreditedAt,
	}, nil
}
