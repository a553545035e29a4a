package repository

import (
	"context"
	"fmt"

	"MarketBrief/internal/domain/models"
	domrepo "MarketBrief/internal/domain/repository"
	pkgkafka "MarketBrief/pkg/kafka"
)

// messagePublisher is satisfied by *pkg/kafka.Producer.
type messagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaPublisher announces snapshots on a Kafka topic, keyed by as-of date.
type KafkaPublisher struct {
	producer messagePublisher
	topic    string
}

var _ domrepo.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishSnapshot(ctx context.Context, ev *models.SnapshotEvent) error {
	if ev == nil {
		return nil
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(ev.AsOf), ev); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", ev.RunID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
