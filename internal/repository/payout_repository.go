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

// PayoutRepository handles database operations for payout requests
type PayoutRepository struct {
	db         *database.Database
	walletRepo *WalletRepository
	outboxRepo *OutboxRepository
	logger     logger.Logger
}

// NewPayoutRepository creates a new PayoutRepository
func NewPayoutRepository(db *database.Database, walletRepo *WalletRepository, outboxRepo *OutboxRepository, logger logger.Logger) *PayoutRepository {
	return &PayoutRepository{
		db:         db,
		walletRepo: walletRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

const payoutColumns = `id, farmer_id, amount, fee, net_amount, status,
	bank_name, bank_account, account_holder,
	approved_by, approved_at, approval_note,
	rejected_by, rejected_at, rejection_reason,
	processed_by, processed_at, transaction_id,
	created_at, updated_at`

// Create inserts a pending payout request and its outbox event in one transaction
func (r *PayoutRepository) Create(ctx context.Context, payout *models.Payout, outboxMsg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payouts (id, farmer_id, amount, fee, net_amount, status, bank_name, bank_account, account_holder, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, payout.ID, payout.FarmerID, payout.Amount, payout.Fee, payout.NetAmount, payout.Status,
		payout.BankName, payout.BankAccount, payout.AccountHolder, payout.CreatedAt, payout.UpdatedAt)

	if err != nil {
		r.logger.Error("Failed to create payout", "error", err, "payoutID", payout.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err = r.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a payout by its ID
func (r *PayoutRepository) GetByID(ctx context.Context, id string) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.DB.GetContext(ctx, &payout, `SELECT `+payoutColumns+` FROM payouts WHERE id = $1`, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("payout %s not found", id))
		}
		r.logger.Error("Failed to get payout by ID", "error", err, "payoutID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &payout, nil
}

// GetAll retrieves payouts, optionally filtered by status
func (r *PayoutRepository) GetAll(ctx context.Context, status models.PayoutStatus, limit, offset int) ([]*models.Payout, error) {
	var payouts []*models.Payout
	var err error

	if status != "" {
		err = r.db.DB.SelectContext(ctx, &payouts,
			`SELECT `+payoutColumns+` FROM payouts WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			status, limit, offset)
	} else {
		err = r.db.DB.SelectContext(ctx, &payouts,
			`SELECT `+payoutColumns+` FROM payouts ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset)
	}

	if err != nil {
		r.logger.Error("Failed to get payouts", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return payouts, nil
}

// GetByFarmerID retrieves all payout requests made by a farmer
func (r *PayoutRepository) GetByFarmerID(ctx context.Context, farmerID string, limit, offset int) ([]*models.Payout, error) {
	var payouts []*models.Payout
	err := r.db.DB.SelectContext(ctx, &payouts,
		`SELECT `+payoutColumns+` FROM payouts WHERE farmer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		farmerID, limit, offset)

	if err != nil {
		r.logger.Error("Failed to get payouts by farmer", "error", err, "farmerID", farmerID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return payouts, nil
}

// Approve flips the payout from pending to approved and debits the farmer's
// wallet in the same transaction. The wallet debit is conditional, so a
// balance that shrank since request time fails the approval and the payout
// stays pending.
func (r *PayoutRepository) Approve(ctx context.Context, payout *models.Payout, walletID string, outboxMsg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE payouts
		SET status = $1, approved_by = $2, approved_at = $3, approval_note = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`, models.PayoutStatusApproved, payout.ApprovedBy, payout.ApprovedAt, payout.ApprovalNote,
		models.GetCurrentTime(), payout.ID, models.PayoutStatusPending)

	if err != nil {
		r.logger.Error("Failed to approve payout", "error", err, "payoutID", payout.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := requireRow(result, payout.ID); err != nil {
		return err
	}

	description := fmt.Sprintf("payout %s approved", payout.ID)

	if err = r.walletRepo.DebitForPayoutInTx(tx, walletID, payout.Amount, description); err != nil {
		return err
	}

	if err = r.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// Reject flips the payout from pending to rejected; the wallet is untouched
func (r *PayoutRepository) Reject(ctx context.Context, payout *models.Payout, outboxMsg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE payouts
		SET status = $1, rejected_by = $2, rejected_at = $3, rejection_reason = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`, models.PayoutStatusRejected, payout.RejectedBy, payout.RejectedAt, payout.RejectionReason,
		models.GetCurrentTime(), payout.ID, models.PayoutStatusPending)

	if err != nil {
		r.logger.Error("Failed to reject payout", "error", err, "payoutID", payout.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := requireRow(result, payout.ID); err != nil {
		return err
	}

	if err = r.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// Process flips the payout from approved to processed. The wallet was debited
// at approval, so this is bookkeeping only.
func (r *PayoutRepository) Process(ctx context.Context, payout *models.Payout, outboxMsg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE payouts
		SET status = $1, processed_by = $2, processed_at = $3, transaction_id = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`, models.PayoutStatusProcessed, payout.ProcessedBy, payout.ProcessedAt, payout.TransactionID,
		models.GetCurrentTime(), payout.ID, models.PayoutStatusApproved)

	if err != nil {
		r.logger.Error("Failed to process payout", "error", err, "payoutID", payout.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := requireRow(result, payout.ID); err != nil {
		return err
	}

	if err = r.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

func requireRow(result sql.Result, payoutID string) error {
	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("payout %s was modified concurrently", payoutID))
	}

	return nil
}
