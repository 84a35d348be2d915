package models

import (
	"time"
)

// Wallet is the per-user running balance. One wallet per user, created lazily.
type Wallet struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Balance   float64   `db:"balance" json:"balance"`
	Currency  string    `db:"currency" json:"currency"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewWallet creates an empty wallet for the given user
func NewWallet(userID, currency string) *Wallet {
	now := GetCurrentTime()

	return &Wallet{
		ID:        GenerateID("wal"),
		UserID:    userID,
		Balance:   0,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransactionType distinguishes credits from debits on a wallet
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// WalletTransaction is the audit record paired with every balance mutation
type WalletTransaction struct {
	ID          string          `db:"id" json:"id"`
	WalletID    string          `db:"wallet_id" json:"wallet_id"`
	Type        TransactionType `db:"type" json:"type"`
	Amount      float64         `db:"amount" json:"amount"`
	Description string          `db:"description" json:"description,omitempty"`
	Status      string          `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// NewWalletTransaction creates a completed transaction record
func NewWalletTransaction(walletID string, txType TransactionType, amount float64, description string) *WalletTransaction {
	return &WalletTransaction{
		ID:          GenerateID("txn"),
		WalletID:    walletID,
		Type:        txType,
		Amount:      amount,
		Description: description,
		Status:      "completed",
		CreatedAt:   GetCurrentTime(),
	}
}
