package outbox

import (
	"context"
	"encoding/json"

	"github.com/agrimarket/marketplace-api/internal/models"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

// LoggingHandler writes the event to the log instead of a broker. It stands in
// for the Kafka handler in environments without a broker.
type LoggingHandler struct {
	logger logger.Logger
}

// NewLoggingHandler creates a new LoggingHandler
func NewLoggingHandler(logger logger.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger}
}

// HandleMessage logs the event envelope
func (h *LoggingHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	var event models.OutboxMessageEvent

	if err := json.Unmarshal(message.Payload, &event); err != nil {
		h.logger.Warn("Outbox payload is not an event envelope", "messageID", message.ID, "error", err)
		h.logger.Info("Event", "eventType", message.EventType, "aggregateID", message.AggregateID)
		return nil
	}

	h.logger.Info("Event",
		"eventType", event.EventType,
		"eventID", event.EventID,
		"aggregateID", event.AggregateID,
		"occurredAt", event.OccurredAt)

	return nil
}
