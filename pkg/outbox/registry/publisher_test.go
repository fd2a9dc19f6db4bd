package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/freshbasket/storefront-backend/pkg/config"
	"github.com/freshbasket/storefront-backend/pkg/db/models"
	"github.com/freshbasket/storefront-backend/pkg/enums"
	"github.com/freshbasket/storefront-backend/pkg/outbox"
	"github.com/freshbasket/storefront-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	userID := uuid.New()
	orderID := "ORD-1"
	payloadBytes := mustMarshal(t, payloads.LoyaltyPointsEarnedEvent{
		TransactionID: uuid.New(),
		UserID:        userID,
		Points:        120,
		Balance:       1120,
		OrderID:       &orderID,
	})

	event := models.OutboxEvent{
		EventType:     enums.EventLoyaltyPointsEarned,
		AggregateType: enums.AggregateLoyaltyAccount,
		AggregateID:   userID,
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "loyalty-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.LoyaltyPointsEarnedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.Points != 120 || payload.OrderID == nil || *payload.OrderID != orderID {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
}

func TestEventRegistryResolvesBarcodeEvents(t *testing.T) {
	reg := newTestEventRegistry(t)
	payloadBytes := mustMarshal(t, payloads.BarcodeLifecycleEvent{
		BarcodeID:     uuid.New(),
		Code:          "FBABCDEFGHJK",
		Status:        "cancelled",
		PointsValue:   2000,
		MonetaryValue: "70.00",
	})

	for _, eventType := range []enums.OutboxEventType{
		enums.EventBarcodeIssued,
		enums.EventBarcodeCancelled,
		enums.EventBarcodeUsed,
		enums.EventBarcodeExpired,
	} {
		resolved, err := reg.Resolve(models.OutboxEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateBarcode,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, payloadBytes),
		})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", eventType, err)
		}
		if _, ok := resolved.Payload.(*payloads.BarcodeLifecycleEvent); !ok {
			t.Fatalf("%s: unexpected payload type %T", eventType, resolved.Payload)
		}
	}
}

func TestEventRegistryResolveUnknownEvent(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.OutboxEventType("order_created"),
		AggregateType: enums.AggregateLoyaltyAccount,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"reason":"none"}`)),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %T", err)
	}
}

func TestEventRegistryResolveAggregateMismatch(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventLoyaltyPointsRedeemed,
		AggregateType: enums.AggregateBarcode,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"points":1000}`)),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func TestEventRegistryResolveMissingAggregateID(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventLoyaltyPointsRedeemed,
		AggregateType: enums.AggregateLoyaltyAccount,
		AggregateID:   uuid.Nil,
		Payload:       mustEnvelope(t, []byte(`{}`)),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func TestEventRegistryResolveNullPayload(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventBarcodeIssued,
		AggregateType: enums.AggregateBarcode,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte("null")),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{}); err == nil {
		t.Fatalf("expected error for missing topic")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{LoyaltyTopic: "loyalty-topic"})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
