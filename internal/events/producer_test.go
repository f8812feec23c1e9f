package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerWithoutBrokers(t *testing.T) {
	assert.Nil(t, NewProducer("", "orders.events", "bijouterie-be"))
	assert.Nil(t, NewProducer("   ", "orders.events", "bijouterie-be"))
}

func TestNilProducerIsSafe(t *testing.T) {
	var p *Producer

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), EventOrderCreated, "order-1",
			OrderCreatedPayload{OrderID: "order-1"})
	})
	assert.NoError(t, p.Close())
}

func TestEnvelopeShape(t *testing.T) {
	payload, err := json.Marshal(OrderPaidPayload{
		OrderID:    "order-1",
		PaymentRef: "pi_123",
		Provider:   "stripe",
	})
	require.NoError(t, err)

	ev := Envelope{
		EventID:       "evt-1",
		EventType:     EventOrderPaid,
		EventVersion:  1,
		Producer:      "bijouterie-be",
		CorrelationID: "order-1",
		Payload:       payload,
	}

	out, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "OrderPaid", decoded["event_type"])
	assert.Equal(t, "order-1", decoded["correlation_id"])

	inner, ok := decoded["payload"].(map[string]any)
	require.True(t, ok, "payload must stay a JSON object, not a quoted string")
	assert.Equal(t, "pi_123", inner["payment_ref"])
}

func TestPartitionKeyFollowsOrder(t *testing.T) {
	// All events for one order must land on the same partition.
	assert.Equal(t, PartitionKey("order-1"), PartitionKey("order-1"))
	assert.NotEqual(t, PartitionKey("order-1"), PartitionKey("order-2"))
}
