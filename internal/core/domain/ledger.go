package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntryType is the closed set of wallet transaction kinds. Each
// carries one sign rule; there is no open-ended polymorphism here.
type LedgerEntryType string

const (
	LedgerTypeEarning    LedgerEntryType = "EARNING"
	LedgerTypePayout     LedgerEntryType = "PAYOUT"
	LedgerTypeRefund     LedgerEntryType = "REFUND"
	LedgerTypeAdjustment LedgerEntryType = "ADJUSTMENT"
)

// Sign returns the direction of the balance movement for the entry type:
// +1 for credits, -1 for debits, 0 for adjustments (which carry their own
// sign in the amount).
func (t LedgerEntryType) Sign() int64 {
	switch t {
	case LedgerTypeEarning:
		return 1
	case LedgerTypePayout, LedgerTypeRefund:
		return -1
	default:
		return 0
	}
}

// ReferenceType names the entity a ledger entry points back to.
type ReferenceType string

const (
	ReferenceTypeRevenue    ReferenceType = "REVENUE"
	ReferenceTypePayout     ReferenceType = "PAYOUT"
	ReferenceTypeAdjustment ReferenceType = "ADJUSTMENT"
)

// WalletTransaction is one append-only ledger entry. Amount is signed;
// BalanceAfter snapshots the wallet balance immediately after the entry.
// Entries are never updated or deleted.
type WalletTransaction struct {
	ID            uuid.UUID       `json:"id"`
	InstructorID  uuid.UUID       `json:"instructor_id"`
	Type          LedgerEntryType `json:"type"`
	Amount        int64           `json:"amount"`
	BalanceAfter  int64           `json:"balance_after"`
	ReferenceID   uuid.UUID       `json:"reference_id"`
	ReferenceType ReferenceType   `json:"reference_type"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ReplayLedger walks entries in creation order and verifies the chain:
// each BalanceAfter must equal the previous BalanceAfter plus the entry's
// signed amount. It returns the final balance and whether the chain holds.
func ReplayLedger(entries []WalletTransaction) (int64, bool) {
	var running int64
	for i := range entries {
		running += entries[i].Amount
		if entries[i].BalanceAfter != running {
			return running, false
		}
	}
	return running, true
}
