package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agrimarket/marketplace-api/internal/models"
	"github.com/agrimarket/marketplace-api/internal/repository"
	"github.com/agrimarket/marketplace-api/pkg/logger"
	"github.com/agrimarket/marketplace-api/pkg/retry"
)

// MessageHandler handles one outbox message, typically by publishing it
type MessageHandler interface {
	HandleMessage(ctx context.Context, message *models.OutboxMessage) error
}

// Processor polls the outbox table and dispatches pending messages to the
// handler registered for their event type. Messages that exhaust MaxRetries
// are moved to the dead letter queue when UseDLQ is set, otherwise marked failed.
type Processor struct {
	outboxRepo *repository.OutboxRepository
	dlqRepo    *repository.DeadLetterRepository
	handlers   map[string]MessageHandler
	config     *ProcessorConfig
	logger     logger.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	running    bool
	mu         sync.Mutex
}

// ProcessorConfig holds the configuration for the Processor
type ProcessorConfig struct {
	PollingInterval time.Duration
	BatchSize       int
	MaxRetries      int
	BackoffStrategy retry.BackoffStrategy
	UseDLQ          bool
}

// NewProcessor creates a new outbox Processor
func NewProcessor(
	outboxRepo *repository.OutboxRepository,
	dlqRepo *repository.DeadLetterRepository,
	config *ProcessorConfig,
	logger logger.Logger,
) *Processor {
	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		outboxRepo: outboxRepo,
		dlqRepo:    dlqRepo,
		handlers:   make(map[string]MessageHandler),
		config:     config,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// RegisterHandler registers a message handler for a specific event type
func (p *Processor) RegisterHandler(eventType string, handler MessageHandler) {
	p.handlers[eventType] = handler
}

// Start starts the outbox processor
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		p.loop()
	}()

	p.logger.Info("Outbox processor started",
		"pollingInterval", p.config.PollingInterval,
		"batchSize", p.config.BatchSize)
}

// Stop stops the outbox processor and waits for the in-flight batch
func (p *Processor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	p.wg.Wait()
	p.running = false

	p.logger.Info("Outbox processor stopped")
}

func (p *Processor) loop() {
	ticker := time.NewTicker(p.config.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if err := p.processBatch(); err != nil {
				p.logger.Error("Failed to process outbox batch", "error", err)
			}
		}
	}
}

func (p *Processor) processBatch() error {
	ctx, cancel := context.WithTimeout(p.ctx, p.config.PollingInterval)
	defer cancel()

	messages, err := p.outboxRepo.GetPendingMessages(ctx, p.config.BatchSize)

	if err != nil {
		return fmt.Errorf("failed to get pending messages: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	p.logger.Debug("Processing batch of outbox messages", "count", len(messages))

	for _, msg := range messages {
		if err := p.processMessage(ctx, msg); err != nil {
			p.logger.Error("Failed to process message",
				"error", err,
				"messageID", msg.ID,
				"aggregateID", msg.AggregateID,
				"eventType", msg.EventType)
			// Keep going; one poisoned message must not starve the batch
			continue
		}
	}

	return nil
}

func (p *Processor) processMessage(ctx context.Context, msg *models.OutboxMessage) error {
	if err := p.outboxRepo.MarkAsProcessing(ctx, msg.ID); err != nil {
		return fmt.Errorf("failed to mark message as processing: %w", err)
	}

	handler, exists := p.handlers[msg.EventType]

	if !exists {
		errorMsg := fmt.Sprintf("no handler registered for event type: %s", msg.EventType)
		p.logger.Error(errorMsg, "messageID", msg.ID)

		if err := p.outboxRepo.MarkAsFailed(ctx, msg.ID, errorMsg); err != nil {
			p.logger.Error("Failed to mark message as failed", "error", err, "messageID", msg.ID)
		}

		return fmt.Errorf("%s", errorMsg)
	}

	err := handler.HandleMessage(ctx, msg)

	if err != nil {
		// MarkAsProcessing already bumped the attempt counter
		if msg.ProcessingAttempts+1 >= p.config.MaxRetries {
			return p.exhaust(ctx, msg, err)
		}

		p.logger.Warn("Message processing failed, will retry",
			"error", err,
			"messageID", msg.ID,
			"attempt", msg.ProcessingAttempts+1)

		if markErr := p.outboxRepo.MarkAsPending(ctx, msg.ID); markErr != nil {
			p.logger.Error("Failed to requeue message", "error", markErr, "messageID", msg.ID)
		}

		return err
	}

	if err := p.outboxRepo.MarkAsCompleted(ctx, msg.ID); err != nil {
		p.logger.Error("Failed to mark message as completed", "error", err, "messageID", msg.ID)
		return fmt.Errorf("failed to mark message as completed: %w", err)
	}

	p.logger.Debug("Outbox message published",
		"messageID", msg.ID,
		"aggregateID", msg.AggregateID,
		"eventType", msg.EventType)

	return nil
}

// exhaust retires a message that hit MaxRetries: dead-letter it if configured,
// otherwise leave it in the failed state for manual inspection.
func (p *Processor) exhaust(ctx context.Context, msg *models.OutboxMessage, cause error) error {
	errorMsg := fmt.Sprintf("max retries reached: %s", cause.Error())
	p.logger.Error(errorMsg, "messageID", msg.ID, "attempts", msg.ProcessingAttempts+1)

	if markErr := p.outboxRepo.MarkAsFailed(ctx, msg.ID, errorMsg); markErr != nil {
		p.logger.Error("Failed to mark message as failed", "error", markErr, "messageID", msg.ID)
	}

	if p.config.UseDLQ && p.dlqRepo != nil {
		deadLetter := models.NewDeadLetterMessage(msg, cause.Error(), "publish retries exhausted")

		if dlqErr := p.dlqRepo.Create(ctx, deadLetter); dlqErr != nil {
			p.logger.Error("Failed to dead-letter message", "error", dlqErr, "messageID", msg.ID)
		} else {
			p.logger.Info("Message moved to dead letter queue",
				"messageID", msg.ID,
				"deadLetterID", deadLetter.ID)
		}
	}

	return fmt.Errorf("message failed after %d attempts: %w", msg.ProcessingAttempts+1, cause)
}
