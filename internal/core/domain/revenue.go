package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RevenueStatus represents the lifecycle state of a revenue record.
type RevenueStatus string

const (
	RevenueStatusActive   RevenueStatus = "ACTIVE"
	RevenueStatusRefunded RevenueStatus = "REFUNDED"
)

// RevenueRecord is the immutable record of one course sale's earnings
// split, one per (payment, instructor, course) triple. The only permitted
// post-creation mutation is the ACTIVE -> REFUNDED transition with a
// reason; records are never deleted.
type RevenueRecord struct {
	ID                uuid.UUID       `json:"id"`
	CourseID          uuid.UUID       `json:"course_id"`
	EnrollmentID      uuid.UUID       `json:"enrollment_id"`
	PaymentID         uuid.UUID       `json:"payment_id"`
	InstructorID      uuid.UUID       `json:"instructor_id"`
	StudentID         uuid.UUID       `json:"student_id"`
	TotalAmount       int64           `json:"total_amount"`
	InstructorEarning int64           `json:"instructor_earning"`
	PlatformFee       int64           `json:"platform_fee"`
	InstructorPercent decimal.Decimal `json:"instructor_percent"`
	Status            RevenueStatus   `json:"status"`
	RefundReason      *string         `json:"refund_reason,omitempty"`
	GatewayTxnRef     string          `json:"gateway_txn_ref"`
	GatewayTxnNo      string          `json:"gateway_txn_no,omitempty"`
	GatewayRespCode   string          `json:"gateway_resp_code,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	RefundedAt        *time.Time      `json:"refunded_at,omitempty"`
}

// IsActive returns true if the record has not been refunded.
func (r *RevenueRecord) IsActive() bool {
	return r.Status == RevenueStatusActive
}

// SplitRevenue computes the instructor/platform split of a sale price.
// The earning is price * percent rounded half-up; the fee is the price
// minus the earning so that earning + fee equals the price exactly.
func SplitRevenue(price int64, percent decimal.Decimal) (earning, fee int64) {
	earning = decimal.NewFromInt(price).Mul(percent).Round(0).IntPart()
	fee = price - earning
	return earning, fee
}
