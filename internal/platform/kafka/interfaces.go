package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Producer is the outbound half of the publish channel: fire-and-forget
// broadcast of notification and order-result events.
type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// Consumer is the inbound order-request stream.
type Consumer interface {
	ReadMessage(ctx context.Context) (*kafka.Message, error)
	Close() error
}
