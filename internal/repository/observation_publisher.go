package repository

import (
	"context"

	"ForePull/internal/domain/models"
	pkgkafka "ForePull/pkg/kafka"
)

// KafkaObservationPublisher implements ObservationPublisher for Kafka.
type KafkaObservationPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaObservationPublisher creates a Kafka observation publisher.
func NewKafkaObservationPublisher(producer *pkgkafka.Producer, topic string) *KafkaObservationPublisher {
	return &KafkaObservationPublisher{producer: producer, topic: topic}
}

func (p *KafkaObservationPublisher) Publish(ctx context.Context, o *models.Observation) error {
	return p.producer.Publish(ctx, p.topic, []byte(o.Segment), map[string]interface{}{
		"segment": o.Segment,
		"t":       o.Timestamp.Unix(),
		"v":       o.Value,
	})
}

func (p *KafkaObservationPublisher) PublishBatch(ctx context.Context, obs []*models.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(obs))
	for i, o := range obs {
		msgs[i] = pkgkafka.Message{
			Key: []byte(o.Segment),
			Value: map[string]interface{}{
				"segment": o.Segment,
				"t":       o.Timestamp.Unix(),
				"v":       o.Value,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaObservationPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
