package orders

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"orderservice/internal/platform/kafka"
	"orderservice/internal/platform/observability"
)

// ConsumerService is the inbound request loop.
type ConsumerService interface {
	Start(ctx context.Context) error
}

// KafkaConsumerService reads OrderRequested messages until the context is
// cancelled. Each message runs independently; a handler failure never stops
// the loop.
type KafkaConsumerService struct {
	consumer       kafka.Consumer
	messageHandler MessageHandler
	logger         observability.Logger
}

func NewConsumerService(consumer kafka.Consumer, messageHandler MessageHandler, logger observability.Logger) ConsumerService {
	return &KafkaConsumerService{
		consumer:       consumer,
		messageHandler: messageHandler,
		logger:         logger,
	}
}

func (c *KafkaConsumerService) Start(ctx context.Context) error {
	c.logger.Info("Kafka consumer started. Waiting for order requests...")

	for {
		msg, err := c.consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("Context done, exiting Kafka read loop.", zap.Error(err))
				break
			}
			c.logger.Error("Error reading from Kafka", zap.Error(err))
			continue
		}

		if err := c.messageHandler.HandleOrderRequested(ctx, *msg); err != nil {
			continue
		}
	}

	c.logger.Info("Consumer service finished. Shutting down...")
	return nil
}
