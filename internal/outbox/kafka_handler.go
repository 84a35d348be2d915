package outbox

import (
	"context"
	"fmt"

	"github.com/agrimarket/marketplace-api/internal/models"
	"github.com/agrimarket/marketplace-api/pkg/kafka"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

// KafkaHandler publishes outbox payloads to a Kafka topic, keyed by the
// aggregate ID so all events for one order or payout land on the same partition.
type KafkaHandler struct {
	producer *kafka.Producer
	topic    string
	logger   logger.Logger
}

// NewKafkaHandler creates a KafkaHandler for the given topic
func NewKafkaHandler(producer *kafka.Producer, topic string, logger logger.Logger) *KafkaHandler {
	return &KafkaHandler{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// HandleMessage publishes the message payload to Kafka
func (h *KafkaHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	err := h.producer.SendMessage(ctx, h.topic, message.AggregateID, message.Payload)

	if err != nil {
		return fmt.Errorf("failed to publish message %d to topic %s: %w", message.ID, h.topic, err)
	}

	h.logger.Debug("Event published to Kafka",
		"topic", h.topic,
		"eventType", message.EventType,
		"aggregateID", message.AggregateID)

	return nil
}
