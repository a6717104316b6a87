package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is one purchased course line inside a confirmed payment.
// InstructorPercent is optional; a nil value means the platform default
// applies. A zero InstructorID means the owning instructor could not be
// resolved and the item is skipped during distribution.
type OrderItem struct {
	CourseID          uuid.UUID        `json:"course_id"`
	EnrollmentID      uuid.UUID        `json:"enrollment_id"`
	InstructorID      uuid.UUID        `json:"instructor_id"`
	Price             int64            `json:"price"`
	InstructorPercent *decimal.Decimal `json:"instructor_percent,omitempty"`
}

// PaymentConfirmation is the input handed over by the payment gateway
// collaborator once a payment has been validated. GatewayTxnRef is the
// idempotency key for revenue distribution.
type PaymentConfirmation struct {
	PaymentID     uuid.UUID   `json:"payment_id"`
	StudentID     uuid.UUID   `json:"student_id"`
	OrderItems    []OrderItem `json:"order_items"`
	GatewayTxnRef string      `json:"gateway_txn_ref"`
	GatewayTxnNo  string      `json:"gateway_txn_no"`
	GatewayCode   string      `json:"gateway_resp_code"`
	GatewayAmount int64       `json:"gateway_amount"`
	OrderInfo     string      `json:"gateway_order_info"`
}
