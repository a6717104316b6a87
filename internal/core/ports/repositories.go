package ports

import (
	"context"

	"revenue-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for instructor wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for
// pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.InstructorWallet) error
	GetByInstructorID(ctx context.Context, instructorID uuid.UUID) (*domain.InstructorWallet, error)
	GetByInstructorIDForUpdate(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID) (*domain.InstructorWallet, error)
	// UpdateCounters writes all four balance counters of the wallet row.
	UpdateCounters(ctx context.Context, tx pgx.Tx, wallet *domain.InstructorWallet) error
	// GetPlatformTotals sums balance, earnings, withdrawn and escrow
	// across all wallets (dashboard rollup).
	GetPlatformTotals(ctx context.Context) (*WalletTotals, error)
}

// WalletTotals holds platform-wide wallet sums.
type WalletTotals struct {
	Wallets         int64
	Balance         int64
	TotalEarnings   int64
	TotalWithdrawn  int64
	PendingWithdraw int64
}

// RevenueRepository defines persistence operations for revenue records.
type RevenueRepository interface {
	Create(ctx context.Context, tx pgx.Tx, record *domain.RevenueRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RevenueRecord, error)
	// ExistsByGatewayRef reports whether any record was created for the
	// gateway transaction reference (idempotency check).
	ExistsByGatewayRef(ctx context.Context, gatewayTxnRef string) (bool, error)
	// ListByGatewayRef returns all records of one gateway payment.
	ListByGatewayRef(ctx context.Context, gatewayTxnRef string) ([]domain.RevenueRecord, error)
	// MarkRefunded transitions ACTIVE -> REFUNDED with a reason. Returns
	// the number of rows changed; 0 means the record was not ACTIVE.
	MarkRefunded(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string) (int64, error)
	// GetRevenueStats sums ACTIVE records for the dashboard.
	GetRevenueStats(ctx context.Context) (*RevenueStats, error)
}

// RevenueStats holds platform-wide revenue sums over ACTIVE records.
type RevenueStats struct {
	Records           int64
	Refunded          int64
	GrossRevenue      int64
	InstructorEarning int64
	PlatformFee       int64
}

// LedgerRepository defines persistence for the append-only wallet
// transaction log. Entries are never updated or deleted.
type LedgerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error
	List(ctx context.Context, params LedgerListParams) ([]domain.WalletTransaction, int64, error)
	// ListAllByInstructor returns every entry in creation order, for
	// ledger replay verification.
	ListAllByInstructor(ctx context.Context, instructorID uuid.UUID) ([]domain.WalletTransaction, error)
}

// LedgerListParams holds filter + pagination for the ledger listing.
type LedgerListParams struct {
	InstructorID uuid.UUID
	Type         *domain.LedgerEntryType
	Page         int
	PageSize     int
}

// PayoutRepository defines persistence operations for payout requests.
type PayoutRepository interface {
	Create(ctx context.Context, tx pgx.Tx, request *domain.PayoutRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PayoutRequest, error)
	// CountOutstanding counts PENDING + APPROVED requests of an instructor.
	CountOutstanding(ctx context.Context, instructorID uuid.UUID) (int64, error)
	// TransitionStatus performs a compare-and-swap status update, writing
	// the decision fields. Returns the number of rows changed; 0 means
	// the request was not in the expected `from` state.
	TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.PayoutStatus, update PayoutDecisionUpdate) (int64, error)
	List(ctx context.Context, params PayoutListParams) ([]domain.PayoutRequest, int64, error)
	// GetPayoutStats sums requests per status for the dashboard.
	GetPayoutStats(ctx context.Context) (*PayoutStats, error)
}

// PayoutDecisionUpdate carries the optional fields written on a status
// transition.
type PayoutDecisionUpdate struct {
	RejectionReason *string
	ProcessedBy     *uuid.UUID
}

// PayoutListParams holds filter + pagination for listing payout requests.
type PayoutListParams struct {
	InstructorID *uuid.UUID
	Status       *domain.PayoutStatus
	Page         int
	PageSize     int
}

// PayoutStats holds platform-wide payout sums.
type PayoutStats struct {
	PendingCount   int64
	PendingAmount  int64
	ApprovedCount  int64
	ApprovedAmount int64
	PaidCount      int64
	PaidAmount     int64
	RejectedCount  int64
}

// PayoutTransactionRepository persists completed settlements.
type PayoutTransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.PayoutTransaction) error
	GetByPayoutRequestID(ctx context.Context, requestID uuid.UUID) (*domain.PayoutTransaction, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
