package integration

import (
	"context"
	"sort"
	"sync"

	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.InstructorWallet // keyed by instructor ID
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.InstructorWallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.InstructorWallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.InstructorID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByInstructorID(ctx context.Context, instructorID uuid.UUID) (*domain.InstructorWallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[instructorID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByInstructorIDForUpdate(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID) (*domain.InstructorWallet, error) {
	return r.GetByInstructorID(ctx, instructorID)
}

func (r *inMemoryWalletRepo) UpdateCounters(ctx context.Context, tx pgx.Tx, w *domain.InstructorWallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.wallets[w.InstructorID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Balance = w.Balance
	stored.TotalEarnings = w.TotalEarnings
	stored.TotalWithdrawn = w.TotalWithdrawn
	stored.PendingWithdraw = w.PendingWithdraw
	stored.UpdatedAt = w.UpdatedAt
	return nil
}

func (r *inMemoryWalletRepo) GetPlatformTotals(ctx context.Context) (*ports.WalletTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	totals := &ports.WalletTotals{}
	for _, w := range r.wallets {
		totals.Wallets++
		totals.Balance += w.Balance
		totals.TotalEarnings += w.TotalEarnings
		totals.TotalWithdrawn += w.TotalWithdrawn
		totals.PendingWithdraw += w.PendingWithdraw
	}
	return totals, nil
}

// --- In-Memory Revenue Repo ---

type inMemoryRevenueRepo struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*domain.RevenueRecord
}

func newInMemoryRevenueRepo() *inMemoryRevenueRepo {
	return &inMemoryRevenueRepo{records: make(map[uuid.UUID]*domain.RevenueRecord)}
}

func (r *inMemoryRevenueRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.RevenueRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *inMemoryRevenueRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.RevenueRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *inMemoryRevenueRepo) ExistsByGatewayRef(ctx context.Context, gatewayTxnRef string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.GatewayTxnRef == gatewayTxnRef {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryRevenueRepo) ListByGatewayRef(ctx context.Context, gatewayTxnRef string) ([]domain.RevenueRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.RevenueRecord
	for _, rec := range r.records {
		if rec.GatewayTxnRef == gatewayTxnRef {
			result = append(result, *rec)
		}
	}
	// same order as the SQL listing: created_at with instructor_id tiebreak
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].InstructorID.String() < result[j].InstructorID.String()
	})
	return result, nil
}

func (r *inMemoryRevenueRepo) MarkRefunded(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Status != domain.RevenueStatusActive {
		return 0, nil
	}
	rec.Status = domain.RevenueStatusRefunded
	rec.RefundReason = &reason
	return 1, nil
}

func (r *inMemoryRevenueRepo) GetRevenueStats(ctx context.Context) (*ports.RevenueStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.RevenueStats{}
	for _, rec := range r.records {
		if rec.Status == domain.RevenueStatusRefunded {
			stats.Refunded++
			continue
		}
		stats.Records++
		stats.GrossRevenue += rec.TotalAmount
		stats.InstructorEarning += rec.InstructorEarning
		stats.PlatformFee += rec.PlatformFee
	}
	return stats, nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries []domain.WalletTransaction // append order = creation order
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{}
}

func (r *inMemoryLedgerRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *inMemoryLedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.WalletTransaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.WalletTransaction
	for _, e := range r.entries {
		if e.InstructorID != params.InstructorID {
			continue
		}
		if params.Type != nil && e.Type != *params.Type {
			continue
		}
		matched = append(matched, e)
	}
	// newest first, as the SQL listing orders by created_at DESC
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))

	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return []domain.WalletTransaction{}, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *inMemoryLedgerRepo) ListAllByInstructor(ctx context.Context, instructorID uuid.UUID) ([]domain.WalletTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WalletTransaction
	for _, e := range r.entries {
		if e.InstructorID == instructorID {
			result = append(result, e)
		}
	}
	return result, nil
}

// --- In-Memory Payout Repo ---

type inMemoryPayoutRepo struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*domain.PayoutRequest
}

func newInMemoryPayoutRepo() *inMemoryPayoutRepo {
	return &inMemoryPayoutRepo{requests: make(map[uuid.UUID]*domain.PayoutRequest)}
}

func (r *inMemoryPayoutRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.PayoutRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *inMemoryPayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *inMemoryPayoutRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PayoutRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryPayoutRepo) CountOutstanding(ctx context.Context, instructorID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, req := range r.requests {
		if req.InstructorID == instructorID && req.IsOutstanding() {
			count++
		}
	}
	return count, nil
}

func (r *inMemoryPayoutRepo) TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.PayoutStatus, update ports.PayoutDecisionUpdate) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != from {
		return 0, nil
	}
	req.Status = to
	if update.RejectionReason != nil {
		req.RejectionReason = update.RejectionReason
	}
	if update.ProcessedBy != nil {
		req.ProcessedBy = update.ProcessedBy
	}
	return 1, nil
}

func (r *inMemoryPayoutRepo) List(ctx context.Context, params ports.PayoutListParams) ([]domain.PayoutRequest, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.PayoutRequest
	for _, req := range r.requests {
		if params.InstructorID != nil && req.InstructorID != *params.InstructorID {
			continue
		}
		if params.Status != nil && req.Status != *params.Status {
			continue
		}
		matched = append(matched, *req)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))

	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return []domain.PayoutRequest{}, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *inMemoryPayoutRepo) GetPayoutStats(ctx context.Context) (*ports.PayoutStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.PayoutStats{}
	for _, req := range r.requests {
		switch req.Status {
		case domain.PayoutStatusPending:
			stats.PendingCount++
			stats.PendingAmount += req.Amount
		case domain.PayoutStatusApproved:
			stats.ApprovedCount++
			stats.ApprovedAmount += req.Amount
		case domain.PayoutStatusPaid:
			stats.PaidCount++
			stats.PaidAmount += req.Amount
		case domain.PayoutStatusRejected:
			stats.RejectedCount++
		}
	}
	return stats, nil
}

// --- In-Memory Payout Transaction Repo ---

type inMemoryPayoutTxRepo struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*domain.PayoutTransaction // keyed by payout request ID
}

func newInMemoryPayoutTxRepo() *inMemoryPayoutTxRepo {
	return &inMemoryPayoutTxRepo{transactions: make(map[uuid.UUID]*domain.PayoutTransaction)}
}

func (r *inMemoryPayoutTxRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.PayoutTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.transactions[t.PayoutRequestID] = &cp
	return nil
}

func (r *inMemoryPayoutTxRepo) GetByPayoutRequestID(ctx context.Context, requestID uuid.UUID) (*domain.PayoutTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transactions[requestID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// --- In-Memory Transactor (serializing, rollback-aware) ---

// memSnapshotter is implemented by the in-memory stores so a rolled-back
// transaction can undo its writes.
type memSnapshotter interface {
	snapshot() any
	restore(snap any)
}

func (r *inMemoryWalletRepo) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make(map[uuid.UUID]*domain.InstructorWallet, len(r.wallets))
	for k, v := range r.wallets {
		w := *v
		cp[k] = &w
	}
	return cp
}

func (r *inMemoryWalletRepo) restore(snap any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets = snap.(map[uuid.UUID]*domain.InstructorWallet)
}

func (r *inMemoryRevenueRepo) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make(map[uuid.UUID]*domain.RevenueRecord, len(r.records))
	for k, v := range r.records {
		rec := *v
		cp[k] = &rec
	}
	return cp
}

func (r *inMemoryRevenueRepo) restore(snap any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = snap.(map[uuid.UUID]*domain.RevenueRecord)
}

func (r *inMemoryLedgerRepo) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.WalletTransaction(nil), r.entries...)
}

func (r *inMemoryLedgerRepo) restore(snap any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = snap.([]domain.WalletTransaction)
}

func (r *inMemoryPayoutRepo) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make(map[uuid.UUID]*domain.PayoutRequest, len(r.requests))
	for k, v := range r.requests {
		req := *v
		cp[k] = &req
	}
	return cp
}

func (r *inMemoryPayoutRepo) restore(snap any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = snap.(map[uuid.UUID]*domain.PayoutRequest)
}

func (r *inMemoryPayoutTxRepo) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make(map[uuid.UUID]*domain.PayoutTransaction, len(r.transactions))
	for k, v := range r.transactions {
		t := *v
		cp[k] = &t
	}
	return cp
}

func (r *inMemoryPayoutTxRepo) restore(snap any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = snap.(map[uuid.UUID]*domain.PayoutTransaction)
}

// inMemoryTransactor hands out transactions that hold a single global lock
// from Begin until Commit/Rollback. That mimics the row-level serialization
// the real repositories get from SELECT ... FOR UPDATE, so concurrent
// wallet workflows execute one at a time like they would in PostgreSQL.
// Begin snapshots every registered store; Rollback restores the snapshot,
// so an aborted workflow leaves no partial writes behind.
type inMemoryTransactor struct {
	mu     sync.Mutex
	stores []memSnapshotter
}

func newInMemoryTransactor(stores ...memSnapshotter) *inMemoryTransactor {
	return &inMemoryTransactor{stores: stores}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	snaps := make([]any, len(t.stores))
	for i, s := range t.stores {
		snaps[i] = s.snapshot()
	}
	return &memTx{owner: t, snaps: snaps}, nil
}

// memTx is a pgx.Tx stub that releases the transactor lock exactly once.
type memTx struct {
	mu    sync.Mutex
	done  bool
	owner *inMemoryTransactor
	snaps []any
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *memTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.owner.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	for i, s := range t.owner.stores {
		s.restore(t.snaps[i])
	}
	t.done = true
	t.owner.mu.Unlock()
	return nil
}
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }
