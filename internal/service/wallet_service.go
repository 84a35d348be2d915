package service

import (
	"context"
	"fmt"

	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
	"github.com/agrimarket/marketplace-api/pkg/middleware"
)

// WalletStore is the persistence surface the wallet service needs
type WalletStore interface {
	GetOrCreate(ctx context.Context, userID, currency string) (*models.Wallet, error)
	Credit(ctx context.Context, walletID string, amount float64, description string) error
	Debit(ctx context.Context, walletID string, amount float64, description string) error
	Transfer(ctx context.Context, fromWalletID, toWalletID string, amount float64, description string) error
	GetTransactions(ctx context.Context, walletID string, limit, offset int) ([]*models.WalletTransaction, error)
}

// WalletService handles wallet ledger operations
type WalletService struct {
	wallets  WalletStore
	currency string
	logger   logger.Logger
}

// NewWalletService creates a new WalletService
func NewWalletService(wallets WalletStore, currency string, logger logger.Logger) *WalletService {
	return &WalletService{
		wallets:  wallets,
		currency: currency,
		logger:   logger,
	}
}

// GetWallet returns the user's wallet, creating an empty one on first touch
func (s *WalletService) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	return s.wallets.GetOrCreate(ctx, userID, s.currency)
}

// Credit adds funds to the user's wallet and records the transaction
func (s *WalletService) Credit(ctx context.Context, userID string, amount float64, description string) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, apperrors.NewValidationError("credit amount must be positive")
	}

	wallet, err := s.wallets.GetOrCreate(ctx, userID, s.currency)

	if err != nil {
		return nil, err
	}

	if err := s.wallets.Credit(ctx, wallet.ID, amount, description); err != nil {
		return nil, err
	}

	s.logger.Info("Wallet credited", "walletID", wallet.ID, "userID", userID, "amount", amount)

	return s.wallets.GetOrCreate(ctx, userID, s.currency)
}

// Debit removes funds from the user's wallet; the ledger refuses to go negative
func (s *WalletService) Debit(ctx context.Context, userID string, amount float64, description string) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, apperrors.NewValidationError("debit amount must be positive")
	}

	wallet, err := s.wallets.GetOrCreate(ctx, userID, s.currency)

	if err != nil {
		return nil, err
	}

	if err := s.wallets.Debit(ctx, wallet.ID, amount, description); err != nil {
		return nil, err
	}

	s.logger.Info("Wallet debited", "walletID", wallet.ID, "userID", userID, "amount", amount)

	return s.wallets.GetOrCreate(ctx, userID, s.currency)
}

// Transfer moves funds between two users' wallets atomically
func (s *WalletService) Transfer(ctx context.Context, fromUserID, toUserID string, amount float64, description string) error {
	if amount <= 0 {
		return apperrors.NewValidationError("transfer amount must be positive")
	}

	if fromUserID == toUserID {
		return apperrors.NewValidationError("cannot transfer to the same wallet")
	}

	fromWallet, err := s.wallets.GetOrCreate(ctx, fromUserID, s.currency)

	if err != nil {
		return err
	}

	toWallet, err := s.wallets.GetOrCreate(ctx, toUserID, s.currency)

	if err != nil {
		return err
	}

	if description == "" {
		description = fmt.Sprintf("transfer from %s to %s", fromUserID, toUserID)
	}

	if err := s.wallets.Transfer(ctx, fromWallet.ID, toWallet.ID, amount, description); err != nil {
		middleware.RecordDomainOperation("wallet_transfer", false)
		return err
	}

	middleware.RecordDomainOperation("wallet_transfer", true)
	s.logger.Info("Transfer completed",
		"fromWallet", fromWallet.ID,
		"toWallet", toWallet.ID,
		"amount", amount)

	return nil
}

// GetTransactions returns the user's wallet history, newest first
func (s *WalletService) GetTransactions(ctx context.Context, userID string, limit, offset int) ([]*models.WalletTransaction, error) {
	wallet, err := s.wallets.GetOrCreate(ctx, userID, s.currency)

	if err != nil {
		return nil, err
	}

	return s.wallets.GetTransactions(ctx, wallet.ID, limit, offset)
}
