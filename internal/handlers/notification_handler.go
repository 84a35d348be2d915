package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/agrimarket/marketplace-api/internal/clients"
	"github.com/agrimarket/marketplace-api/internal/models"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

// NotificationHandler consumes marketplace events and sends customer and farmer
// emails through the mail gateway. Delivery is best effort; a failed email is
// logged and the message is still committed, the domain state never depends on it.
type NotificationHandler struct {
	mailer *clients.MailerClient
	logger logger.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(mailer *clients.MailerClient, logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		mailer: mailer,
		logger: logger,
	}
}

// HandleMessage processes one consumed Kafka message
func (h *NotificationHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.OutboxMessageEvent

	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Failed to parse event payload",
			"error", err,
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset)
		// Unparseable payloads are not retryable
		return nil
	}

	email, ok := h.emailFor(&event)

	if !ok {
		h.logger.Debug("No notification for event type", "eventType", event.EventType)
		return nil
	}

	if err := h.mailer.SendEmail(ctx, email); err != nil {
		h.logger.Warn("Failed to send notification email",
			"error", err,
			"eventType", event.EventType,
			"aggregateID", event.AggregateID)
		return nil
	}

	h.logger.Info("Notification sent",
		"eventType", event.EventType,
		"aggregateID", event.AggregateID)

	return nil
}

func (h *NotificationHandler) emailFor(event *models.OutboxMessageEvent) (*clients.EmailRequest, bool) {
	data, _ := event.Data.(map[string]interface{})

	switch event.EventType {
	case models.EventOrderCreated:
		return &clients.EmailRequest{
			To:       recipientFor(data, "customer_id"),
			Subject:  "Your order has been placed",
			Body:     fmt.Sprintf("Order %s has been received and is pending confirmation.", event.AggregateID),
			Template: "order_created",
		}, true

	case models.EventOrderStatusChanged:
		return &clients.EmailRequest{
			To:       recipientFor(data, "customer_id"),
			Subject:  fmt.Sprintf("Order %s update", event.AggregateID),
			Body:     fmt.Sprintf("Order %s is now %v.", event.AggregateID, data["new_status"]),
			Template: "order_status_changed",
		}, true

	case models.EventOrderCancelled:
		return &clients.EmailRequest{
			To:       recipientFor(data, "customer_id"),
			Subject:  fmt.Sprintf("Order %s cancelled", event.AggregateID),
			Body:     fmt.Sprintf("Order %s has been cancelled and any reserved stock released.", event.AggregateID),
			Template: "order_cancelled",
		}, true

	case models.EventPayoutApproved:
		return &clients.EmailRequest{
			To:       recipientFor(data, "farmer_id"),
			Subject:  "Payout approved",
			Body:     fmt.Sprintf("Payout %s has been approved and will be transferred shortly.", event.AggregateID),
			Template: "payout_approved",
		}, true

	case models.EventPayoutRejected:
		return &clients.EmailRequest{
			To:       recipientFor(data, "farmer_id"),
			Subject:  "Payout rejected",
			Body:     fmt.Sprintf("Payout %s was rejected. Check your payout history for the reason.", event.AggregateID),
			Template: "payout_rejected",
		}, true

	case models.EventPayoutProcessed:
		return &clients.EmailRequest{
			To:       recipientFor(data, "farmer_id"),
			Subject:  "Payout completed",
			Body:     fmt.Sprintf("Payout %s has been transferred to your bank account.", event.AggregateID),
			Template: "payout_processed",
		}, true
	}

	return nil, false
}

// recipientFor resolves the user the notification addresses. The mail gateway
// looks up the actual address from the user ID.
func recipientFor(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}

	if v, ok := data[key].(string); ok {
		return v
	}

	return ""
}
