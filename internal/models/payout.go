package models

import (
	"fmt"
	"time"
)

// PayoutStatus represents the status of a payout request
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusApproved  PayoutStatus = "approved"
	PayoutStatusRejected  PayoutStatus = "rejected"
	PayoutStatusProcessed PayoutStatus = "processed"
)

// payoutTransitions is the single source of truth for the payout workflow:
// pending may be approved or rejected; approved may be processed.
var payoutTransitions = map[PayoutStatus]map[PayoutStatus]bool{
	PayoutStatusPending:   {PayoutStatusApproved: true, PayoutStatusRejected: true},
	PayoutStatusApproved:  {PayoutStatusProcessed: true},
	PayoutStatusRejected:  {},
	PayoutStatusProcessed: {},
}

// CanTransitionTo reports whether the status may move to the target status
func (s PayoutStatus) CanTransitionTo(target PayoutStatus) bool {
	return payoutTransitions[s][target]
}

// IsTerminal reports whether no further transitions are allowed
func (s PayoutStatus) IsTerminal() bool {
	return len(payoutTransitions[s]) == 0
}

// TransitionError builds the caller-facing message for a rejected transition
func (s PayoutStatus) TransitionError(target PayoutStatus) error {
	return fmt.Errorf("invalid transition from %q to %q", s, target)
}

// BankDetails is the snapshot of the destination account taken at request time
type BankDetails struct {
	BankName      string `db:"bank_name" json:"bank_name"`
	BankAccount   string `db:"bank_account" json:"bank_account"`
	AccountHolder string `db:"account_holder" json:"account_holder"`
}

// Payout is a farmer's request to withdraw wallet balance to a bank account
type Payout struct {
	ID        string       `db:"id" json:"id"`
	FarmerID  string       `db:"farmer_id" json:"farmer_id"`
	Amount    float64      `db:"amount" json:"amount"`
	Fee       float64      `db:"fee" json:"fee"`
	NetAmount float64      `db:"net_amount" json:"net_amount"`
	Status    PayoutStatus `db:"status" json:"status"`

	BankDetails

	ApprovedBy      *string    `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	ApprovalNote    *string    `db:"approval_note" json:"approval_note,omitempty"`
	RejectedBy      *string    `db:"rejected_by" json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `db:"rejected_at" json:"rejected_at,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ProcessedBy     *string    `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt     *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	TransactionID   *string    `db:"transaction_id" json:"transaction_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PayoutFee computes the platform fee for a payout amount at the given percentage
func PayoutFee(amount, feePct float64) float64 {
	return amount * feePct / 100
}

// NewPayout creates a pending payout request. The fee and net amount are
// computed and stored at creation time.
func NewPayout(farmerID string, amount, feePct float64, bank BankDetails) *Payout {
	now := GetCurrentTime()
	fee := PayoutFee(amount, feePct)

	return &Payout{
		ID:          GenerateID("pay"),
		FarmerID:    farmerID,
		Amount:      amount,
		Fee:         fee,
		NetAmount:   amount - fee,
		Status:      PayoutStatusPending,
		BankDetails: bank,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
