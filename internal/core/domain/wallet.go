package domain

import (
	"time"

	"github.com/google/uuid"
)

// InstructorWallet holds the running balance of one instructor's earnings.
// All amounts are in minor currency units. Created lazily on first credit,
// never deleted. Invariant: Balance >= PendingWithdraw except after a
// post-payout refund (preserved source behaviour, see RefundService).
type InstructorWallet struct {
	ID              uuid.UUID `json:"id"`
	InstructorID    uuid.UUID `json:"instructor_id"`
	Balance         int64     `json:"balance"`
	TotalEarnings   int64     `json:"total_earnings"`
	TotalWithdrawn  int64     `json:"total_withdrawn"`
	PendingWithdraw int64     `json:"pending_withdraw"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Available returns the balance not reserved by outstanding payout requests.
func (w *InstructorWallet) Available() int64 {
	return w.Balance - w.PendingWithdraw
}

// NewWallet returns a zero-balance wallet for the instructor.
func NewWallet(instructorID uuid.UUID, now time.Time) *InstructorWallet {
	return &InstructorWallet{
		ID:           uuid.New(),
		InstructorID: instructorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
