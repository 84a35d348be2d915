package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agrimarket/marketplace-api/internal/database"
	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

// DeadLetterRepository handles database operations for dead-lettered events
type DeadLetterRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewDeadLetterRepository creates a new DeadLetterRepository
func NewDeadLetterRepository(db *database.Database, logger logger.Logger) *DeadLetterRepository {
	return &DeadLetterRepository{
		db:     db,
		logger: logger,
	}
}

const deadLetterColumns = `id, original_message_id, aggregate_type, aggregate_id, event_type, payload,
	error_message, failure_reason, retry_count, last_retry_at, status, created_at, resolved_at`

// Create inserts a new dead letter message
func (r *DeadLetterRepository) Create(ctx context.Context, message *models.DeadLetterMessage) error {
	query := `
		INSERT INTO dead_letter_messages (
			original_message_id, aggregate_type, aggregate_id, event_type, payload,
			error_message, failure_reason, retry_count, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var id int64

	err := r.db.DB.QueryRowContext(
		ctx,
		query,
		message.OriginalMessageID,
		message.AggregateType,
		message.AggregateID,
		message.EventType,
		message.Payload,
		message.ErrorMessage,
		message.FailureReason,
		message.RetryCount,
		message.Status,
		message.CreatedAt,
	).Scan(&id)

	if err != nil {
		r.logger.Error("Failed to create dead letter message", "error", err)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	message.ID = id
	return nil
}

// GetByID retrieves a dead letter message by its ID
func (r *DeadLetterRepository) GetByID(ctx context.Context, id int64) (*models.DeadLetterMessage, error) {
	var message models.DeadLetterMessage
	err := r.db.DB.GetContext(ctx, &message,
		`SELECT `+deadLetterColumns+` FROM dead_letter_messages WHERE id = $1`, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("dead letter message %d not found", id))
		}
		r.logger.Error("Failed to get dead letter message", "error", err, "messageID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &message, nil
}

// GetPending retrieves pending dead letter messages, oldest first
func (r *DeadLetterRepository) GetPending(ctx context.Context, limit int) ([]*models.DeadLetterMessage, error) {
	var messages []*models.DeadLetterMessage
	err := r.db.DB.SelectContext(ctx, &messages,
		`SELECT `+deadLetterColumns+` FROM dead_letter_messages WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		models.DeadLetterStatusPending, limit)

	if err != nil {
		r.logger.Error("Failed to get pending dead letter messages", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return messages, nil
}

// GetAll retrieves dead letter messages with pagination
func (r *DeadLetterRepository) GetAll(ctx context.Context, limit, offset int) ([]*models.DeadLetterMessage, error) {
	var messages []*models.DeadLetterMessage
	err := r.db.DB.SelectContext(ctx, &messages,
		`SELECT `+deadLetterColumns+` FROM dead_letter_messages ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)

	if err != nil {
		r.logger.Error("Failed to get dead letter messages", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return messages, nil
}

// MarkRetrying bumps the retry counter and records the attempt time
func (r *DeadLetterRepository) MarkRetrying(ctx context.Context, id int64) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $1, retry_count = retry_count + 1, last_retry_at = $2
		WHERE id = $3
	`

	_, err := r.db.DB.ExecContext(ctx, query, models.DeadLetterStatusRetrying, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to mark dead letter message as retrying", "error", err, "messageID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// MarkResolved flips the message to resolved
func (r *DeadLetterRepository) MarkResolved(ctx context.Context, id int64) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $1, resolved_at = $2
		WHERE id = $3
	`

	_, err := r.db.DB.ExecContext(ctx, query, models.DeadLetterStatusResolved, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to mark dead letter message as resolved", "error", err, "messageID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// MarkPending returns the message to the pending state for another retry cycle
func (r *DeadLetterRepository) MarkPending(ctx context.Context, id int64) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $1
		WHERE id = $2
	`

	_, err := r.db.DB.ExecContext(ctx, query, models.DeadLetterStatusPending, id)

	if err != nil {
		r.logger.Error("Failed to mark dead letter message as pending", "error", err, "messageID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// MarkDiscarded flips the message to discarded; it will not be retried again
func (r *DeadLetterRepository) MarkDiscarded(ctx context.Context, id int64) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $1, resolved_at = $2
		WHERE id = $3
	`

	_, err := r.db.DB.ExecContext(ctx, query, models.DeadLetterStatusDiscarded, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to mark dead letter message as discarded", "error", err, "messageID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}
