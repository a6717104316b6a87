package domain

import (
	"time"

	"github.com/google/uuid"
)

// PayoutStatus is the withdrawal request state machine:
// PENDING -> {APPROVED -> PAID} | REJECTED | CANCELLED.
// PAID, REJECTED and CANCELLED are terminal.
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "PENDING"
	PayoutStatusApproved  PayoutStatus = "APPROVED"
	PayoutStatusPaid      PayoutStatus = "PAID"
	PayoutStatusRejected  PayoutStatus = "REJECTED"
	PayoutStatusCancelled PayoutStatus = "CANCELLED"
)

// IsTerminal returns true if no further transition is permitted.
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutStatusPaid || s == PayoutStatusRejected || s == PayoutStatusCancelled
}

// CanTransitionTo reports whether the state machine permits the move.
func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	switch s {
	case PayoutStatusPending:
		return next == PayoutStatusApproved || next == PayoutStatusRejected || next == PayoutStatusCancelled
	case PayoutStatusApproved:
		return next == PayoutStatusPaid
	default:
		return false
	}
}

// BankDetails is the destination of a simulated bank transfer.
type BankDetails struct {
	BankName      string `json:"bank_name"`
	BankAccount   string `json:"bank_account"`
	AccountHolder string `json:"account_holder"`
}

// PayoutRequest is one withdrawal attempt. Its amount is escrowed in the
// wallet (PendingWithdraw) while the request is outstanding. Immutable
// once in a terminal state.
type PayoutRequest struct {
	ID              uuid.UUID    `json:"id"`
	InstructorID    uuid.UUID    `json:"instructor_id"`
	Amount          int64        `json:"amount"`
	Status          PayoutStatus `json:"status"`
	Bank            BankDetails  `json:"bank"`
	Note            *string      `json:"note,omitempty"`
	RejectionReason *string      `json:"rejection_reason,omitempty"`
	ProcessedBy     *uuid.UUID   `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time   `json:"processed_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// IsOutstanding returns true while the amount is still escrowed.
func (p *PayoutRequest) IsOutstanding() bool {
	return p.Status == PayoutStatusPending || p.Status == PayoutStatusApproved
}

// PayoutTransaction is the immutable record of one completed settlement
// (simulated bank transfer). Created exactly once when a request is PAID.
type PayoutTransaction struct {
	ID              uuid.UUID   `json:"id"`
	PayoutRequestID uuid.UUID   `json:"payout_request_id"`
	InstructorID    uuid.UUID   `json:"instructor_id"`
	Amount          int64       `json:"amount"`
	Bank            BankDetails `json:"bank"`
	TransactionRef  string      `json:"transaction_ref"`
	ProcessedBy     uuid.UUID   `json:"processed_by"`
	CreatedAt       time.Time   `json:"created_at"`
}
