package service

import (
	"context"
	"errors"
	"testing"

	"github.com/agrimarket/marketplace-api/internal/config"
	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

var testPlatform = config.PlatformConfig{
	MinPayoutAmount: 100,
	PlatformFeePct:  5,
	WalletCurrency:  "USD",
}

var testBank = models.BankDetails{
	BankName:      "AgriBank",
	BankAccount:   "123456",
	AccountHolder: "A Farmer",
}

func newPayoutFixture(t *testing.T, balance float64) (*PayoutService, *fakeWalletStore) {
	t.Helper()
	ctx := context.Background()

	wallets := newFakeWalletStore()
	wallet, err := wallets.GetOrCreate(ctx, "farmer-1", "USD")

	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	if balance > 0 {
		if err := wallets.Credit(ctx, wallet.ID, balance, "settlement"); err != nil {
			t.Fatalf("Credit failed: %v", err)
		}
	}

	svc := NewPayoutService(newFakePayoutStore(wallets), wallets, testPlatform, logger.NopLogger{})
	return svc, wallets
}

func TestPayoutLifecycle(t *testing.T) {
	svc, wallets := newPayoutFixture(t, 500)
	ctx := context.Background()

	payout, err := svc.RequestPayout(ctx, "farmer-1", 200, testBank)

	if err != nil {
		t.Fatalf("RequestPayout failed: %v", err)
	}

	if payout.Status != models.PayoutStatusPending {
		t.Errorf("status = %s, want pending", payout.Status)
	}

	if payout.Fee != 10 || payout.NetAmount != 190 {
		t.Errorf("fee/net = %.2f/%.2f, want 10.00/190.00", payout.Fee, payout.NetAmount)
	}

	// Requesting does not reserve funds
	if got := wallets.balance("farmer-1"); got != 500 {
		t.Errorf("balance after request = %.2f, want 500.00", got)
	}

	approved, err := svc.ApprovePayout(ctx, payout.ID, "admin-1", "looks good")

	if err != nil {
		t.Fatalf("ApprovePayout failed: %v", err)
	}

	if approved.Status != models.PayoutStatusApproved {
		t.Errorf("status = %s, want approved", approved.Status)
	}

	if approved.ApprovedBy == nil || *approved.ApprovedBy != "admin-1" {
		t.Error("approval should record the admin")
	}

	if got := wallets.balance("farmer-1"); got != 300 {
		t.Errorf("balance after approval = %.2f, want 300.00", got)
	}

	processed, err := svc.ProcessPayout(ctx, payout.ID, "admin-1", "TX1")

	if err != nil {
		t.Fatalf("ProcessPayout failed: %v", err)
	}

	if processed.Status != models.PayoutStatusProcessed {
		t.Errorf("status = %s, want processed", processed.Status)
	}

	if processed.TransactionID == nil || *processed.TransactionID != "TX1" {
		t.Error("processing should record the external transaction id")
	}

	// Processing does not debit a second time
	if got := wallets.balance("farmer-1"); got != 300 {
		t.Errorf("balance after processing = %.2f, want 300.00", got)
	}
}

func TestRequestPayoutBelowMinimum(t *testing.T) {
	svc, _ := newPayoutFixture(t, 500)
	ctx := context.Background()

	_, err := svc.RequestPayout(ctx, "farmer-1", 50, testBank)

	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	payouts, _ := svc.GetFarmerPayouts(ctx, "farmer-1", 10, 0)

	if len(payouts) != 0 {
		t.Errorf("rejected request should not be persisted, found %d", len(payouts))
	}
}

func TestRequestPayoutInsufficientBalance(t *testing.T) {
	svc, _ := newPayoutFixture(t, 150)
	ctx := context.Background()

	_, err := svc.RequestPayout(ctx, "farmer-1", 200, testBank)

	if !errors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds error, got %v", err)
	}
}

func TestRequestPayoutRequiresBankDetails(t *testing.T) {
	svc, _ := newPayoutFixture(t, 500)
	ctx := context.Background()

	_, err := svc.RequestPayout(ctx, "farmer-1", 200, models.BankDetails{BankName: "AgriBank"})

	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApprovePayoutRechecksBalance(t *testing.T) {
	svc, wallets := newPayoutFixture(t, 500)
	ctx := context.Background()

	payout, err := svc.RequestPayout(ctx, "farmer-1", 200, testBank)

	if err != nil {
		t.Fatalf("RequestPayout failed: %v", err)
	}

	// Balance drains between request and approval
	wallet, _ := wallets.GetOrCreate(ctx, "farmer-1", "USD")

	if err := wallets.Debit(ctx, wallet.ID, 400, "another payout"); err != nil {
		t.Fatalf("Debit failed: %v", err)
	}

	_, err = svc.ApprovePayout(ctx, payout.ID, "admin-1", "")

	if !errors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds error, got %v", err)
	}

	// Failed approval leaves the payout pending and the wallet untouched
	stored, _ := svc.GetPayout(ctx, payout.ID)

	if stored.Status != models.PayoutStatusPending {
		t.Errorf("status after failed approval = %s, want pending", stored.Status)
	}

	if got := wallets.balance("farmer-1"); got != 100 {
		t.Errorf("balance = %.2f, want 100.00", got)
	}
}

func TestRejectPayout(t *testing.T) {
	svc, wallets := newPayoutFixture(t, 500)
	ctx := context.Background()

	payout, _ := svc.RequestPayout(ctx, "farmer-1", 200, testBank)

	if _, err := svc.RejectPayout(ctx, payout.ID, "admin-1", ""); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("rejection without a reason should fail validation, got %v", err)
	}

	rejected, err := svc.RejectPayout(ctx, payout.ID, "admin-1", "suspicious account")

	if err != nil {
		t.Fatalf("RejectPayout failed: %v", err)
	}

	if rejected.Status != models.PayoutStatusRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}

	if rejected.RejectionReason == nil || *rejected.RejectionReason != "suspicious account" {
		t.Error("rejection should record the reason")
	}

	if got := wallets.balance("farmer-1"); got != 500 {
		t.Errorf("rejection must not touch the wallet, balance = %.2f", got)
	}

	// Terminal; cannot be approved afterwards
	if _, err := svc.ApprovePayout(ctx, payout.ID, "admin-1", ""); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("approving a rejected payout should be rejected, got %v", err)
	}
}

func TestProcessPayoutRequiresApproval(t *testing.T) {
	svc, _ := newPayoutFixture(t, 500)
	ctx := context.Background()

	payout, _ := svc.RequestPayout(ctx, "farmer-1", 200, testBank)

	if _, err := svc.ProcessPayout(ctx, payout.ID, "admin-1", "TX1"); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("processing a pending payout should be rejected, got %v", err)
	}

	if _, err := svc.ProcessPayout(ctx, payout.ID, "admin-1", ""); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("processing without a transaction id should fail validation, got %v", err)
	}
}
