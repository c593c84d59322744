package orders

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/platform/kafka"
	"orderservice/internal/platform/observability"
)

// MessageHandler defines the interface for processing incoming messages.
type MessageHandler interface {
	HandleOrderRequested(ctx context.Context, msg kafkago.Message) error
}

// KafkaMessageHandler drives the coordinator from the order-request topic
// and publishes placement results.
type KafkaMessageHandler struct {
	coordinator *Coordinator
	producer    kafka.Producer
	logger      observability.Logger
}

func NewMessageHandler(coordinator *Coordinator, producer kafka.Producer, logger observability.Logger) MessageHandler {
	return &KafkaMessageHandler{
		coordinator: coordinator,
		producer:    producer,
		logger:      logger,
	}
}

// HandleOrderRequested processes one OrderRequested message. Malformed
// payloads and business-rule rejections are terminal for the message,
// never retried; only infrastructure failures propagate to the loop.
func (h *KafkaMessageHandler) HandleOrderRequested(ctx context.Context, msg kafkago.Message) error {
	msgCtx := h.extractTraceContext(ctx, msg.Headers)

	var req OrderRequestedEvent
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		h.logger.Error("Invalid JSON in OrderRequested event",
			zap.Error(err),
			zap.ByteString("raw_value", msg.Value),
		)
		return nil
	}

	order, err := h.coordinator.PlaceOrder(msgCtx, PlaceOrderRequest{
		CustomerName: req.CustomerName,
		PaymentMode:  req.PaymentMode,
		Items:        req.Items,
	})
	if err != nil {
		if domain.IsValidation(err) || domain.IsStockError(err) {
			h.logger.Warn("Order rejected", zap.Error(err))
			return h.publish(msgCtx, nil, OrderRejectedEvent{Reason: err.Error()})
		}
		h.logger.Error("Failed to place order", zap.Error(err))
		return err
	}

	return h.publish(msgCtx, []byte(order.ID), OrderPlacedEvent{
		OrderID: order.ID,
		Total:   order.Total.String(),
		Status:  string(order.Status),
	})
}

func (h *KafkaMessageHandler) publish(ctx context.Context, key []byte, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to serialize order result event", zap.Error(err))
		return err
	}

	if err := h.producer.WriteMessage(ctx, kafkago.Message{Key: key, Value: payload}); err != nil {
		h.logger.Error("Failed to publish order result event", zap.Error(err))
		return err
	}
	return nil
}

// extractTraceContext extracts OpenTelemetry trace context from Kafka message headers
func (h *KafkaMessageHandler) extractTraceContext(ctx context.Context, headers []kafkago.Header) context.Context {
	propagator := otel.GetTextMapPropagator()
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		carrier[string(header.Key)] = string(header.Value)
	}
	return propagator.Extract(ctx, carrier)
}
