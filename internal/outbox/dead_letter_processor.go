package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agrimarket/marketplace-api/internal/models"
	"github.com/agrimarket/marketplace-api/internal/repository"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

// DeadLetterProcessor periodically retries dead-lettered events. Messages that
// publish successfully are marked resolved; messages past MaxRetries stay put
// until an operator retries or discards them through the admin API.
type DeadLetterProcessor struct {
	dlqRepo  *repository.DeadLetterRepository
	handlers map[string]MessageHandler
	config   *DeadLetterConfig
	logger   logger.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// DeadLetterConfig holds the configuration for the DeadLetterProcessor
type DeadLetterConfig struct {
	PollingInterval time.Duration
	BatchSize       int
	MaxRetries      int
}

// NewDeadLetterProcessor creates a new DeadLetterProcessor
func NewDeadLetterProcessor(
	dlqRepo *repository.DeadLetterRepository,
	config *DeadLetterConfig,
	logger logger.Logger,
) *DeadLetterProcessor {
	ctx, cancel := context.WithCancel(context.Background())

	return &DeadLetterProcessor{
		dlqRepo:  dlqRepo,
		handlers: make(map[string]MessageHandler),
		config:   config,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RegisterHandler registers a message handler for a specific event type
func (p *DeadLetterProcessor) RegisterHandler(eventType string, handler MessageHandler) {
	p.handlers[eventType] = handler
}

// Start starts the dead letter processor
func (p *DeadLetterProcessor) Start() {
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

	p.logger.Info("Dead letter processor started",
		"pollingInterval", p.config.PollingInterval,
		"batchSize", p.config.BatchSize)
}

// Stop stops the dead letter processor
func (p *DeadLetterProcessor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	p.wg.Wait()
	p.running = false

	p.logger.Info("Dead letter processor stopped")
}

func (p *DeadLetterProcessor) loop() {
	ticker := time.NewTicker(p.config.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if err := p.processBatch(); err != nil {
				p.logger.Error("Failed to process dead letter batch", "error", err)
			}
		}
	}
}

func (p *DeadLetterProcessor) processBatch() error {
	ctx, cancel := context.WithTimeout(p.ctx, p.config.PollingInterval)
	defer cancel()

	messages, err := p.dlqRepo.GetPending(ctx, p.config.BatchSize)

	if err != nil {
		return fmt.Errorf("failed to get pending dead letter messages: %w", err)
	}

	for _, msg := range messages {
		if err := p.retryMessage(ctx, msg); err != nil {
			p.logger.Warn("Dead letter retry failed",
				"error", err,
				"deadLetterID", msg.ID,
				"eventType", msg.EventType,
				"retryCount", msg.RetryCount+1)
		}
	}

	return nil
}

// RetryMessage retries one dead-lettered message on demand, used by the admin API
func (p *DeadLetterProcessor) RetryMessage(ctx context.Context, id int64) error {
	msg, err := p.dlqRepo.GetByID(ctx, id)

	if err != nil {
		return err
	}

	return p.retryMessage(ctx, msg)
}

func (p *DeadLetterProcessor) retryMessage(ctx context.Context, msg *models.DeadLetterMessage) error {
	handler, exists := p.handlers[msg.EventType]

	if !exists {
		return fmt.Errorf("no handler registered for event type: %s", msg.EventType)
	}

	if err := p.dlqRepo.MarkRetrying(ctx, msg.ID); err != nil {
		return err
	}

	// Reconstruct the original shape the handlers expect
	outboxMsg := &models.OutboxMessage{
		ID:            msg.OriginalMessageID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       msg.Payload,
		CreatedAt:     msg.CreatedAt,
	}

	err := handler.HandleMessage(ctx, outboxMsg)

	if err != nil {
		if msg.RetryCount+1 < p.config.MaxRetries {
			if markErr := p.dlqRepo.MarkPending(ctx, msg.ID); markErr != nil {
				p.logger.Error("Failed to requeue dead letter message", "error", markErr, "deadLetterID", msg.ID)
			}
		}
		return err
	}

	if err := p.dlqRepo.MarkResolved(ctx, msg.ID); err != nil {
		return err
	}

	p.logger.Info("Dead letter message resolved",
		"deadLetterID", msg.ID,
		"originalMessageID", msg.OriginalMessageID,
		"eventType", msg.EventType)

	return nil
}
