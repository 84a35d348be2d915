package service

import (
	"context"
	"fmt"

	"github.com/agrimarket/marketplace-api/internal/config"
	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
	"github.com/agrimarket/marketplace-api/pkg/middleware"
)

// PayoutStore is the persistence surface the payout service needs
type PayoutStore interface {
	Create(ctx context.Context, payout *models.Payout, outboxMsg *models.OutboxMessage) error
	GetByID(ctx context.Context, id string) (*models.Payout, error)
	GetAll(ctx context.Context, status models.PayoutStatus, limit, offset int) ([]*models.Payout, error)
	GetByFarmerID(ctx context.Context, farmerID string, limit, offset int) ([]*models.Payout, error)
	Approve(ctx context.Context, payout *models.Payout, walletID string, outboxMsg *models.OutboxMessage) error
	Reject(ctx context.Context, payout *models.Payout, outboxMsg *models.OutboxMessage) error
	Process(ctx context.Context, payout *models.Payout, outboxMsg *models.OutboxMessage) error
}

// PayoutService handles the payout request workflow
type PayoutService struct {
	payouts  PayoutStore
	wallets  WalletStore
	platform config.PlatformConfig
	logger   logger.Logger
}

// NewPayoutService creates a new PayoutService
func NewPayoutService(payouts PayoutStore, wallets WalletStore, platform config.PlatformConfig, logger logger.Logger) *PayoutService {
	return &PayoutService{
		payouts:  payouts,
		wallets:  wallets,
		platform: platform,
		logger:   logger,
	}
}

// RequestPayout creates a pending payout if the amount clears the platform
// minimum and the farmer's wallet covers it. Funds are not reserved here; the
// balance is re-checked when the payout is approved.
func (s *PayoutService) RequestPayout(ctx context.Context, farmerID string, amount float64, bank models.BankDetails) (*models.Payout, error) {
	if amount < s.platform.MinPayoutAmount {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("payout amount %.2f is below the platform minimum %.2f", amount, s.platform.MinPayoutAmount))
	}

	if bank.BankName == "" || bank.BankAccount == "" || bank.AccountHolder == "" {
		return nil, apperrors.NewValidationError("bank details are required")
	}

	wallet, err := s.wallets.GetOrCreate(ctx, farmerID, s.platform.WalletCurrency)

	if err != nil {
		return nil, err
	}

	if wallet.Balance < amount {
		return nil, apperrors.NewInsufficientFundsError(
			fmt.Sprintf("wallet balance %.2f does not cover payout of %.2f", wallet.Balance, amount))
	}

	payout := models.NewPayout(farmerID, amount, s.platform.PlatformFeePct, bank)

	outboxMsg, err := models.NewPayoutRequestedEvent(payout)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	if err := s.payouts.Create(ctx, payout, outboxMsg); err != nil {
		middleware.RecordDomainOperation("payout_request", false)
		return nil, err
	}

	middleware.RecordDomainOperation("payout_request", true)
	s.logger.Info("Payout requested",
		"payoutID", payout.ID,
		"farmerID", farmerID,
		"amount", amount,
		"netAmount", payout.NetAmount)

	return payout, nil
}

// ApprovePayout moves a pending payout to approved and debits the farmer's
// wallet. The debit re-checks the balance inside the store transaction; a
// stale request-time check cannot drive the balance negative.
func (s *PayoutService) ApprovePayout(ctx context.Context, payoutID, adminID string, note string) (*models.Payout, error) {
	payout, err := s.payouts.GetByID(ctx, payoutID)

	if err != nil {
		return nil, err
	}

	if !payout.Status.CanTransitionTo(models.PayoutStatusApproved) {
		return nil, apperrors.NewInvalidTransitionError(
			payout.Status.TransitionError(models.PayoutStatusApproved).Error())
	}

	wallet, err := s.wallets.GetOrCreate(ctx, payout.FarmerID, s.platform.WalletCurrency)

	if err != nil {
		return nil, err
	}

	now := models.GetCurrentTime()
	payout.Status = models.PayoutStatusApproved
	payout.ApprovedBy = &adminID
	payout.ApprovedAt = &now

	if note != "" {
		payout.ApprovalNote = &note
	}

	outboxMsg, err := models.NewPayoutDecisionEvent(payout, models.EventPayoutApproved, adminID)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	if err := s.payouts.Approve(ctx, payout, wallet.ID, outboxMsg); err != nil {
		middleware.RecordDomainOperation("payout_approve", false)
		return nil, err
	}

	middleware.RecordDomainOperation("payout_approve", true)
	s.logger.Info("Payout approved", "payoutID", payout.ID, "adminID", adminID, "amount", payout.Amount)

	return payout, nil
}

// RejectPayout moves a pending payout to rejected with a mandatory reason.
// The wallet is untouched.
func (s *PayoutService) RejectPayout(ctx context.Context, payoutID, adminID, reason string) (*models.Payout, error) {
	if reason == "" {
		return nil, apperrors.NewValidationError("rejection reason is required")
	}

	payout, err := s.payouts.GetByID(ctx, payoutID)

	if err != nil {
		return nil, err
	}

	if !payout.Status.CanTransitionTo(models.PayoutStatusRejected) {
		return nil, apperrors.NewInvalidTransitionError(
			payout.Status.TransitionError(models.PayoutStatusRejected).Error())
	}

	now := models.GetCurrentTime()
	payout.Status = models.PayoutStatusRejected
	payout.RejectedBy = &adminID
	payout.RejectedAt = &now
	payout.RejectionReason = &reason

	outboxMsg, err := models.NewPayoutDecisionEvent(payout, models.EventPayoutRejected, adminID)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	if err := s.payouts.Reject(ctx, payout, outboxMsg); err != nil {
		middleware.RecordDomainOperation("payout_reject", false)
		return nil, err
	}

	middleware.RecordDomainOperation("payout_reject", true)
	s.logger.Info("Payout rejected", "payoutID", payout.ID, "adminID", adminID, "reason", reason)

	return payout, nil
}

// ProcessPayout marks an approved payout as paid out through the external
// channel. The wallet was already debited at approval.
func (s *PayoutService) ProcessPayout(ctx context.Context, payoutID, adminID, transactionID string) (*models.Payout, error) {
	if transactionID == "" {
		return nil, apperrors.NewValidationError("external transaction id is required")
	}

	payout, err := s.payouts.GetByID(ctx, payoutID)

	if err != nil {
		return nil, err
	}

	if !payout.Status.CanTransitionTo(models.PayoutStatusProcessed) {
		return nil, apperrors.NewInvalidTransitionError(
			payout.Status.TransitionError(models.PayoutStatusProcessed).Error())
	}

	now := models.GetCurrentTime()
	payout.Status = models.PayoutStatusProcessed
	payout.ProcessedBy = &adminID
	payout.ProcessedAt = &now
	payout.TransactionID = &transactionID

	outboxMsg, err := models.NewPayoutDecisionEvent(payout, models.EventPayoutProcessed, adminID)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	if err := s.payouts.Process(ctx, payout, outboxMsg); err != nil {
		middleware.RecordDomainOperation("payout_process", false)
		return nil, err
	}

	middleware.RecordDomainOperation("payout_process", true)
	s.logger.Info("Payout processed", "payoutID", payout.ID, "adminID", adminID, "transactionID", transactionID)

	return payout, nil
}

// GetPayout retrieves a payout by ID
func (s *PayoutService) GetPayout(ctx context.Context, id string) (*models.Payout, error) {
	return s.payouts.GetByID(ctx, id)
}

// GetAllPayouts retrieves payouts, optionally filtered by status
func (s *PayoutService) GetAllPayouts(ctx context.Context, status models.PayoutStatus, limit, offset int) ([]*models.Payout, error) {
	return s.payouts.GetAll(ctx, status, limit, offset)
}

// GetFarmerPayouts retrieves a farmer's payout requests
func (s *PayoutService) GetFarmerPayouts(ctx context.Context, farmerID string, limit, offset int) ([]*models.Payout, error) {
	return s.payouts.GetByFarmerID(ctx, farmerID, limit, offset)
}
