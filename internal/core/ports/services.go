package ports

import (
	"context"
	"time"

	"revenue-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletStore is the single write path to instructor wallets. Operations
// run inside the caller's database transaction so that a wallet mutation
// and its surrounding workflow commit or roll back as one unit. Every
// balance mutation appends exactly one ledger entry; callers never write
// the log directly.
type WalletStore interface {
	// Credit adds earning to balance and totalEarnings (EARNING entry).
	// Creates a zero wallet on first credit for an unknown instructor.
	Credit(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID, amount int64, ref LedgerRef) (*domain.InstructorWallet, error)
	// Debit removes amount from balance and totalEarnings (REFUND entry).
	// The balance may go negative (post-payout refund, preserved policy).
	Debit(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID, amount int64, ref LedgerRef) (*domain.InstructorWallet, error)
	// Reserve escrows amount into pendingWithdraw; fails with
	// InsufficientBalance when available < amount. No ledger entry.
	Reserve(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID, amount int64) (*domain.InstructorWallet, error)
	// Release returns escrowed amount to available balance. No ledger entry.
	Release(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID, amount int64) (*domain.InstructorWallet, error)
	// Settle finalises a payout: balance, pendingWithdraw down and
	// totalWithdrawn up by the same amount (PAYOUT entry).
	Settle(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID, amount int64, ref LedgerRef) (*domain.InstructorWallet, error)
	// Adjust applies a signed manual correction to the balance
	// (ADJUSTMENT entry).
	Adjust(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID, amount int64, ref LedgerRef) (*domain.InstructorWallet, error)
}

// LedgerRef identifies the entity that caused a wallet mutation.
type LedgerRef struct {
	ID          uuid.UUID
	Type        domain.ReferenceType
	Description string
}

// DistributionService is the revenue distributor contract.
type DistributionService interface {
	// DistributeRevenue splits each order item of a confirmed payment,
	// writes the revenue records and credits the instructor wallets.
	// A repeated gateway transaction reference is a no-op, not an error.
	DistributeRevenue(ctx context.Context, payment domain.PaymentConfirmation) (*DistributionResult, error)
}

// DistributionResult summarises one distribution call.
type DistributionResult struct {
	GatewayTxnRef string      `json:"gateway_txn_ref"`
	Distributed   int         `json:"distributed"`
	Skipped       int         `json:"skipped"`
	Duplicate     bool        `json:"duplicate"`
	RecordIDs     []uuid.UUID `json:"record_ids"`
}

// PayoutService is the withdrawal workflow contract.
type PayoutService interface {
	CreateRequest(ctx context.Context, actor domain.Actor, req CreatePayoutRequest) (*domain.PayoutRequest, error)
	// Decide approves or rejects a PENDING request. Approval settles
	// synchronously; a settlement failure leaves the request APPROVED.
	Decide(ctx context.Context, actor domain.Actor, requestID uuid.UUID, decision PayoutDecision) (*domain.PayoutRequest, error)
	Cancel(ctx context.Context, actor domain.Actor, requestID uuid.UUID) (*domain.PayoutRequest, error)
	Get(ctx context.Context, actor domain.Actor, requestID uuid.UUID) (*domain.PayoutRequest, error)
	List(ctx context.Context, actor domain.Actor, params PayoutListParams) ([]domain.PayoutRequest, int64, error)
}

// CreatePayoutRequest holds validated input for a new withdrawal.
type CreatePayoutRequest struct {
	Amount int64
	Bank   domain.BankDetails
	Note   *string
}

// PayoutDecision is the admin approval/rejection input.
type PayoutDecision struct {
	Approve         bool
	RejectionReason string
}

// RefundService reverses distributed revenue after a gateway refund.
type RefundService interface {
	ProcessRefund(ctx context.Context, gatewayTxnRef string, reason string) error
}

// ReportingService serves wallet views, ledger listings and the
// operational dashboard. Read-only.
type ReportingService interface {
	GetWalletBalance(ctx context.Context, instructorID uuid.UUID) (*WalletBalance, error)
	ListWalletTransactions(ctx context.Context, actor domain.Actor, params LedgerListParams) ([]domain.WalletTransaction, int64, error)
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
	// VerifyLedger replays an instructor's ledger and checks the
	// balanceAfter chain against the wallet balance.
	VerifyLedger(ctx context.Context, instructorID uuid.UUID) (*LedgerVerification, error)
}

// WalletBalance is the instructor-facing wallet view.
type WalletBalance struct {
	Balance          int64 `json:"balance"`
	TotalEarnings    int64 `json:"total_earnings"`
	TotalWithdrawn   int64 `json:"total_withdrawn"`
	PendingWithdraw  int64 `json:"pending_withdraw"`
	AvailableBalance int64 `json:"available_balance"`
}

// DashboardStats aggregates platform totals. Not transactionally
// consistent across stores; acceptable for a dashboard.
type DashboardStats struct {
	Revenue RevenueStats `json:"revenue"`
	Payouts PayoutStats  `json:"payouts"`
	Wallets WalletTotals `json:"wallets"`
}

// LedgerVerification is the result of a ledger replay.
type LedgerVerification struct {
	InstructorID  uuid.UUID `json:"instructor_id"`
	Entries       int       `json:"entries"`
	ChainIntact   bool      `json:"chain_intact"`
	ReplayBalance int64     `json:"replay_balance"`
	WalletBalance int64     `json:"wallet_balance"`
	Consistent    bool      `json:"consistent"`
}

// AdjustmentService applies manual ledger corrections (admin only).
type AdjustmentService interface {
	Adjust(ctx context.Context, actor domain.Actor, instructorID uuid.UUID, amount int64, description string) (*domain.WalletTransaction, error)
}

// Authorizer is the single authorization capability injected into the
// workflows instead of per-method role checks.
type Authorizer interface {
	// CanAccessWallet reports whether the actor may read or operate on
	// the given instructor's wallet and requests.
	CanAccessWallet(actor domain.Actor, instructorID uuid.UUID) bool
	// CanManagePayouts reports whether the actor may approve or reject
	// payout requests and issue refunds/adjustments.
	CanManagePayouts(actor domain.Actor) bool
}

// TokenService validates the identity hand-off from the external
// authentication collaborator.
type TokenService interface {
	Generate(actor domain.Actor, expiry time.Duration) (string, time.Time, error)
	Validate(tokenString string) (*domain.Actor, error)
}

// SignatureService verifies gateway webhook HMAC-SHA256 signatures.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, body string) string
}

// IdempotencyCache is the Redis fast-path check on gateway transaction
// references, in front of the database uniqueness guarantee.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // cached result JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
