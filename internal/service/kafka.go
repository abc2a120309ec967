package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventPublisher writes notifications to a single topic, keyed by
// account id so events for one account stay on one partition.
type KafkaEventPublisher struct {
	writer kafkaWriter
	topic  string
	logger *slog.Logger
}

func NewKafkaEventPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaEventPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newKafkaEventPublisher(writer, topic, logger)
}

func newKafkaEventPublisher(writer kafkaWriter, topic string, logger *slog.Logger) *KafkaEventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaEventPublisher{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, key string, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write to topic %s: %w", p.topic, err)
	}

	p.logger.DebugContext(ctx, "Kafka message sent",
		slog.String("topic", p.topic),
		slog.String("key", key))
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}
