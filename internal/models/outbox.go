package models

import (
	"encoding/json"
	"time"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// Event types written by the domain services
const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
	EventOrderCancelled     = "order_cancelled"
	EventPayoutRequested    = "payout_requested"
	EventPayoutApproved     = "payout_approved"
	EventPayoutRejected     = "payout_rejected"
	EventPayoutProcessed    = "payout_processed"
)

// OutboxMessage is a domain event persisted in the same transaction as the
// state change it describes, published to Kafka by the outbox processor.
type OutboxMessage struct {
	ID                 int64        `db:"id" json:"id"`
	AggregateType      string       `db:"aggregate_type" json:"aggregate_type"`
	AggregateID        string       `db:"aggregate_id" json:"aggregate_id"`
	EventType          string       `db:"event_type" json:"event_type"`
	Payload            []byte       `db:"payload" json:"payload"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	ProcessedAt        *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
	ProcessingAttempts int          `db:"processing_attempts" json:"processing_attempts"`
	LastError          *string      `db:"last_error" json:"last_error,omitempty"`
	Status             OutboxStatus `db:"status" json:"status"`
}

// OutboxMessageEvent is the envelope serialized into the outbox payload
type OutboxMessageEvent struct {
	EventType   string      `json:"event_type"`
	EventID     string      `json:"event_id"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Data        interface{} `json:"data"`
}

func newOutboxMessage(aggregateType, aggregateID, eventType string, data interface{}) (*OutboxMessage, error) {
	event := OutboxMessageEvent{
		EventType:   eventType,
		EventID:     GenerateID("evt"),
		AggregateID: aggregateID,
		OccurredAt:  GetCurrentTime(),
		Data:        data,
	}

	payload, err := json.Marshal(event)

	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     GetCurrentTime(),
		Status:        OutboxStatusPending,
	}, nil
}

// NewOrderCreatedEvent creates the event written alongside a new order
func NewOrderCreatedEvent(order *Order) (*OutboxMessage, error) {
	return newOutboxMessage("order", order.ID, EventOrderCreated, order)
}

// NewOrderStatusChangedEvent creates the event for an order status change
func NewOrderStatusChangedEvent(order *Order, oldStatus OrderStatus) (*OutboxMessage, error) {
	return newOutboxMessage("order", order.ID, EventOrderStatusChanged, map[string]interface{}{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"old_status":  oldStatus,
		"new_status":  order.Status,
	})
}

// NewOrderCancelledEvent creates the event for an order cancellation
func NewOrderCancelledEvent(order *Order, oldStatus OrderStatus) (*OutboxMessage, error) {
	return newOutboxMessage("order", order.ID, EventOrderCancelled, map[string]interface{}{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"old_status":  oldStatus,
	})
}

// NewPayoutRequestedEvent creates the event written alongside a new payout request
func NewPayoutRequestedEvent(payout *Payout) (*OutboxMessage, error) {
	return newOutboxMessage("payout", payout.ID, EventPayoutRequested, payout)
}

// NewPayoutDecisionEvent creates the event for an approve/reject/process transition
func NewPayoutDecisionEvent(payout *Payout, eventType string, actorID string) (*OutboxMessage, error) {
	return newOutboxMessage("payout", payout.ID, eventType, map[string]interface{}{
		"payout_id":  payout.ID,
		"farmer_id":  payout.FarmerID,
		"amount":     payout.Amount,
		"net_amount": payout.NetAmount,
		"status":     payout.Status,
		"actor_id":   actorID,
	})
}
