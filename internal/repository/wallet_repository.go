package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/agrimarket/marketplace-api/internal/database"
	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

// WalletRepository handles database operations for wallets and their transactions
type WalletRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewWalletRepository creates a new WalletRepository
func NewWalletRepository(db *database.Database, logger logger.Logger) *WalletRepository {
	return &WalletRepository{
		db:     db,
		logger: logger,
	}
}

const walletColumns = `id, user_id, balance, currency, created_at, updated_at`

// GetOrCreate returns the user's wallet, creating an empty one if absent.
// ON CONFLICT DO NOTHING keeps concurrent first touches from racing.
func (r *WalletRepository) GetOrCreate(ctx context.Context, userID, currency string) (*models.Wallet, error) {
	wallet, err := r.getByUserID(ctx, userID)

	if err == nil {
		return wallet, nil
	}

	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	fresh := models.NewWallet(userID, currency)

	_, err = r.db.DB.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO NOTHING
	`, fresh.ID, fresh.UserID, fresh.Balance, fresh.Currency, fresh.CreatedAt, fresh.UpdatedAt)

	if err != nil {
		r.logger.Error("Failed to create wallet", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return r.getByUserID(ctx, userID)
}

func (r *WalletRepository) getByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.DB.GetContext(ctx, &wallet, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("wallet for user %s not found", userID))
		}
		r.logger.Error("Failed to get wallet", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &wallet, nil
}

// Credit increments the wallet balance and writes the paired transaction
// record in one database transaction.
func (r *WalletRepository) Credit(ctx context.Context, walletID string, amount float64, description string) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	if err = r.creditInTx(tx, walletID, amount, description); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// Debit decrements the wallet balance with a conditional update and writes
// the paired transaction record. The ledger itself refuses to go negative.
func (r *WalletRepository) Debit(ctx context.Context, walletID string, amount float64, description string) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	if err = r.debitInTx(tx, walletID, amount, description); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// Transfer moves funds between two wallets as one atomic transaction: a
// conditional debit, a credit, and both audit records. A fault anywhere rolls
// the whole thing back, so the ledger can never end up half-transferred.
func (r *WalletRepository) Transfer(ctx context.Context, fromWalletID, toWalletID string, amount float64, description string) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	if err = r.debitInTx(tx, fromWalletID, amount, description); err != nil {
		return err
	}

	if err = r.creditInTx(tx, toWalletID, amount, description); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

func (r *WalletRepository) creditInTx(tx *sqlx.Tx, walletID string, amount float64, description string) error {
	result, err := tx.Exec(`
		UPDATE wallets
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
	`, walletID, amount)

	if err != nil {
		r.logger.Error("Failed to credit wallet", "error", err, "walletID", walletID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("wallet %s not found", walletID))
	}

	return r.insertTransactionInTx(tx, models.NewWalletTransaction(walletID, models.TransactionTypeCredit, amount, description))
}

func (r *WalletRepository) debitInTx(tx *sqlx.Tx, walletID string, amount float64, description string) error {
	result, err := tx.Exec(`
		UPDATE wallets
		SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2
	`, walletID, amount)

	if err != nil {
		r.logger.Error("Failed to debit wallet", "error", err, "walletID", walletID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		var exists bool

		if err := tx.Get(&exists, `SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1)`, walletID); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}

		if !exists {
			return apperrors.NewNotFoundError(fmt.Sprintf("wallet %s not found", walletID))
		}

		return apperrors.NewInsufficientFundsError(fmt.Sprintf("insufficient funds in wallet %s", walletID))
	}

	return r.insertTransactionInTx(tx, models.NewWalletTransaction(walletID, models.TransactionTypeDebit, amount, description))
}

func (r *WalletRepository) insertTransactionInTx(tx *sqlx.Tx, txn *models.WalletTransaction) error {
	_, err := tx.Exec(`
		INSERT INTO wallet_transactions (id, wallet_id, type, amount, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, txn.ID, txn.WalletID, txn.Type, txn.Amount, txn.Description, txn.Status, txn.CreatedAt)

	if err != nil {
		r.logger.Error("Failed to insert wallet transaction", "error", err, "walletID", txn.WalletID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetTransactions retrieves a wallet's transaction history, newest first
func (r *WalletRepository) GetTransactions(ctx context.Context, walletID string, limit, offset int) ([]*models.WalletTransaction, error) {
	query := `
		SELECT id, wallet_id, type, amount, description, status, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var txns []*models.WalletTransaction
	err := r.db.DB.SelectContext(ctx, &txns, query, walletID, limit, offset)

	if err != nil {
		r.logger.Error("Failed to get wallet transactions", "error", err, "walletID", walletID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return txns, nil
}

// DebitForPayoutInTx exposes the conditional debit for the payout approval
// transaction, which must debit the wallet and flip the payout atomically.
func (r *WalletRepository) DebitForPayoutInTx(tx *sqlx.Tx, walletID string, amount float64, description string) error {
	return r.debitInTx(tx, walletID, amount, description)
}
