package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishJSON(t *testing.T) {
	bus := NewEventBus()

	var received []*Event
	bus.Subscribe(EventPaymentSettled, func(event *Event) error {
		received = append(received, event)
		return nil
	})

	payload := PaymentEventPayload{PaymentID: 1, OrderID: 2, Amount: 400, Status: "success"}
	require.NoError(t, bus.PublishJSON(EventPaymentSettled, payload))

	require.Len(t, received, 1)
	assert.Equal(t, EventPaymentSettled, received[0].Type)
	assert.False(t, received[0].CreatedAt.IsZero())

	var got PaymentEventPayload
	require.NoError(t, json.Unmarshal(received[0].Payload, &got))
	assert.Equal(t, payload, got)
}

func TestEventBus_OnlyMatchingSubscribers(t *testing.T) {
	bus := NewEventBus()

	var settled, failed int
	bus.Subscribe(EventPaymentSettled, func(event *Event) error {
		settled++
		return nil
	})
	bus.Subscribe(EventPaymentFailed, func(event *Event) error {
		failed++
		return nil
	})

	require.NoError(t, bus.PublishJSON(EventPaymentFailed, PaymentEventPayload{PaymentID: 1}))

	assert.Equal(t, 0, settled)
	assert.Equal(t, 1, failed)
}

func TestEventBus_NilBusIsNoop(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, BookingEventPayload{BookingID: 1}))
}
