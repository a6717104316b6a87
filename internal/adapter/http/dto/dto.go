package dto

import (
	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

// OrderItemPayload is one purchased course line in a payment webhook.
type OrderItemPayload struct {
	CourseID          string           `json:"course_id" binding:"required,uuid"`
	EnrollmentID      string           `json:"enrollment_id" binding:"required,uuid"`
	InstructorID      string           `json:"instructor_id" binding:"omitempty,uuid"`
	Price             int64            `json:"price" binding:"required"`
	InstructorPercent *decimal.Decimal `json:"instructor_percent,omitempty"`
}

// PaymentWebhookRequest is the gateway's payment confirmation payload.
type PaymentWebhookRequest struct {
	PaymentID     string             `json:"payment_id" binding:"required,uuid"`
	StudentID     string             `json:"student_id" binding:"required,uuid"`
	GatewayTxnRef string             `json:"gateway_txn_ref" binding:"required,max=100,safe_id"`
	GatewayTxnNo  string             `json:"gateway_txn_no" binding:"omitempty,max=100,safe_id"`
	GatewayCode   string             `json:"gateway_resp_code" binding:"omitempty,max=10"`
	GatewayAmount int64              `json:"gateway_amount" binding:"required,gt=0"`
	OrderInfo     string             `json:"gateway_order_info" binding:"omitempty,max=255"`
	OrderItems    []OrderItemPayload `json:"order_items" binding:"required,min=1,dive"`
}

// RefundWebhookRequest is the gateway's refund notification payload.
type RefundWebhookRequest struct {
	GatewayTxnRef string `json:"gateway_txn_ref" binding:"required,max=100,safe_id"`
	Reason        string `json:"reason" binding:"required,max=255"`
}

// DistributionResponse summarises one processed payment webhook.
type DistributionResponse struct {
	GatewayTxnRef string   `json:"gateway_txn_ref"`
	Distributed   int      `json:"distributed"`
	Skipped       int      `json:"skipped"`
	Duplicate     bool     `json:"duplicate"`
	RecordIDs     []string `json:"record_ids"`
}

// CreatePayoutRequest is the instructor's withdrawal request body.
type CreatePayoutRequest struct {
	Amount        int64   `json:"amount" binding:"required,gt=0"`
	BankName      string  `json:"bank_name" binding:"required,min=1,max=100"`
	BankAccount   string  `json:"bank_account" binding:"required,min=1,max=50"`
	AccountHolder string  `json:"account_holder" binding:"required,min=1,max=100"`
	Note          *string `json:"note,omitempty" binding:"omitempty,max=255"`
}

// PayoutDecisionRequest is the admin approval/rejection body.
type PayoutDecisionRequest struct {
	Approve         bool   `json:"approve"`
	RejectionReason string `json:"rejection_reason" binding:"omitempty,max=255"`
}

// AdjustmentRequest is the admin manual correction body. Amount is signed.
type AdjustmentRequest struct {
	Amount      int64  `json:"amount" binding:"required"`
	Description string `json:"description" binding:"required,min=1,max=255"`
}

// PayoutResponse is the API view of a payout request.
type PayoutResponse struct {
	ID              string  `json:"id"`
	InstructorID    string  `json:"instructor_id"`
	Amount          int64   `json:"amount"`
	Status          string  `json:"status"`
	BankName        string  `json:"bank_name"`
	BankAccount     string  `json:"bank_account"`
	AccountHolder   string  `json:"account_holder"`
	Note            *string `json:"note,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	ProcessedAt     *string `json:"processed_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// LedgerEntryResponse is the API view of one wallet transaction.
type LedgerEntryResponse struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Amount        int64  `json:"amount"`
	BalanceAfter  int64  `json:"balance_after"`
	ReferenceID   string `json:"reference_id"`
	ReferenceType string `json:"reference_type"`
	Description   string `json:"description,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// PayoutListResponse wraps a paginated payout request list.
type PayoutListResponse struct {
	Items      []PayoutResponse `json:"items"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// LedgerListResponse wraps a paginated wallet transaction list.
type LedgerListResponse struct {
	Items      []LedgerEntryResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// TotalPages computes the page count for a paginated envelope.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// FromPayout converts a domain payout request to its API view.
func FromPayout(p *domain.PayoutRequest) PayoutResponse {
	resp := PayoutResponse{
		ID:              p.ID.String(),
		InstructorID:    p.InstructorID.String(),
		Amount:          p.Amount,
		Status:          string(p.Status),
		BankName:        p.Bank.BankName,
		BankAccount:     p.Bank.BankAccount,
		AccountHolder:   p.Bank.AccountHolder,
		Note:            p.Note,
		RejectionReason: p.RejectionReason,
		CreatedAt:       p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if p.ProcessedAt != nil {
		s := p.ProcessedAt.UTC().Format("2006-01-02T15:04:05Z")
		resp.ProcessedAt = &s
	}
	return resp
}

// FromLedgerEntry converts a domain wallet transaction to its API view.
func FromLedgerEntry(e *domain.WalletTransaction) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:            e.ID.String(),
		Type:          string(e.Type),
		Amount:        e.Amount,
		BalanceAfter:  e.BalanceAfter,
		ReferenceID:   e.ReferenceID.String(),
		ReferenceType: string(e.ReferenceType),
		Description:   e.Description,
		CreatedAt:     e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// FromDistributionResult converts a distribution outcome to its API view.
func FromDistributionResult(r *ports.DistributionResult) DistributionResponse {
	ids := make([]string, 0, len(r.RecordIDs))
	for _, id := range r.RecordIDs {
		ids = append(ids, id.String())
	}
	return DistributionResponse{
		GatewayTxnRef: r.GatewayTxnRef,
		Distributed:   r.Distributed,
		Skipped:       r.Skipped,
		Duplicate:     r.Duplicate,
		RecordIDs:     ids,
	}
}
