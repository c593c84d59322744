package notifications

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"

	"orderservice/internal/platform/kafka"
)

// KafkaPublisher bridges the notifier onto the external publish channel.
// The event name rides in the message key so consumers can filter without
// decoding the payload.
type KafkaPublisher struct {
	producer kafka.Producer
}

func NewKafkaPublisher(producer kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.producer.WriteMessage(ctx, kafkago.Message{
		Key:   []byte(event),
		Value: body,
	})
}
