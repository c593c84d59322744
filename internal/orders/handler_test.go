package orders_test

import (
	"context"
	"encoding/json"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orderservice/internal/orders"
	"orderservice/internal/storage/memory"
)

type capturingProducer struct {
	messages []kafkago.Message
}

func (p *capturingProducer) WriteMessage(ctx context.Context, msg kafkago.Message) error {
	p.messages = append(p.messages, msg)
	return nil
}

func (p *capturingProducer) Close() error { return nil }

func TestHandleOrderRequestedPublishesPlacedEvent(t *testing.T) {
	store := memory.NewStore()
	seedProduct(t, store, "p1", "Lamp", "10.00", 30)
	producer := &capturingProducer{}
	handler := orders.NewMessageHandler(newCoordinator(store), producer, zap.NewNop())

	payload, err := json.Marshal(orders.OrderRequestedEvent{
		CustomerName: "Ada",
		PaymentMode:  "card",
		Items:        []orders.LineRequest{{ProductID: "p1", Quantity: 3}},
	})
	require.NoError(t, err)

	require.NoError(t, handler.HandleOrderRequested(context.Background(), kafkago.Message{Value: payload}))
	require.Len(t, producer.messages, 1)

	var placed orders.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(producer.messages[0].Value, &placed))
	total, err := decimal.NewFromString(placed.Total)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(30)), "got %s", placed.Total)
	assert.Equal(t, "Pending", placed.Status)
	assert.NotEmpty(t, placed.OrderID)
}

func TestHandleOrderRequestedRejectsBusinessFailures(t *testing.T) {
	store := memory.NewStore()
	seedProduct(t, store, "p1", "Lamp", "10.00", 1)
	producer := &capturingProducer{}
	handler := orders.NewMessageHandler(newCoordinator(store), producer, zap.NewNop())

	payload, err := json.Marshal(orders.OrderRequestedEvent{
		CustomerName: "Ada",
		PaymentMode:  "card",
		Items:        []orders.LineRequest{{ProductID: "p1", Quantity: 5}},
	})
	require.NoError(t, err)

	// A rejection is terminal for the message, not an error for the loop.
	require.NoError(t, handler.HandleOrderRequested(context.Background(), kafkago.Message{Value: payload}))
	require.Len(t, producer.messages, 1)

	var rejected orders.OrderRejectedEvent
	require.NoError(t, json.Unmarshal(producer.messages[0].Value, &rejected))
	assert.Contains(t, rejected.Reason, "insufficient stock")
}

func TestHandleOrderRequestedDropsMalformedPayload(t *testing.T) {
	store := memory.NewStore()
	producer := &capturingProducer{}
	handler := orders.NewMessageHandler(newCoordinator(store), producer, zap.NewNop())

	err := handler.HandleOrderRequested(context.Background(), kafkago.Message{Value: []byte("{not json")})
	assert.NoError(t, err)
	assert.Empty(t, producer.messages)
}
