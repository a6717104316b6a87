package postgres

import (
	"context"
	"errors"
	"fmt"

	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, instructor_id, balance, total_earnings, total_withdrawn, pending_withdraw, created_at, updated_at`

// Create inserts a new wallet within a database transaction. Wallets are
// created lazily on first credit, so creation always happens inside the
// crediting transaction.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.InstructorWallet) error {
	query := `INSERT INTO instructor_wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.InstructorID, w.Balance, w.TotalEarnings,
		w.TotalWithdrawn, w.PendingWithdraw, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByInstructorID fetches a wallet without locking.
func (r *WalletRepo) GetByInstructorID(ctx context.Context, instructorID uuid.UUID) (*domain.InstructorWallet, error) {
	query := `SELECT ` + walletColumns + ` FROM instructor_wallets WHERE instructor_id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, instructorID))
}

// GetByInstructorIDForUpdate fetches a wallet with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByInstructorIDForUpdate(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID) (*domain.InstructorWallet, error) {
	query := `SELECT ` + walletColumns + ` FROM instructor_wallets WHERE instructor_id = $1 FOR UPDATE`
	return scanWallet(tx.QueryRow(ctx, query, instructorID))
}

// UpdateCounters writes all four balance counters within a transaction.
func (r *WalletRepo) UpdateCounters(ctx context.Context, tx pgx.Tx, w *domain.InstructorWallet) error {
	query := `UPDATE instructor_wallets
		SET balance = $1, total_earnings = $2, total_withdrawn = $3, pending_withdraw = $4, updated_at = NOW()
		WHERE id = $5`

	tag, err := tx.Exec(ctx, query,
		w.Balance, w.TotalEarnings, w.TotalWithdrawn, w.PendingWithdraw, w.ID,
	)
	if err != nil {
		return fmt.Errorf("update wallet counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", w.ID)
	}
	return nil
}

// GetPlatformTotals sums the wallet counters across all instructors.
func (r *WalletRepo) GetPlatformTotals(ctx context.Context) (*ports.WalletTotals, error) {
	query := `SELECT
		COUNT(*),
		COALESCE(SUM(balance), 0),
		COALESCE(SUM(total_earnings), 0),
		COALESCE(SUM(total_withdrawn), 0),
		COALESCE(SUM(pending_withdraw), 0)
		FROM instructor_wallets`

	totals := &ports.WalletTotals{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&totals.Wallets, &totals.Balance, &totals.TotalEarnings,
		&totals.TotalWithdrawn, &totals.PendingWithdraw,
	)
	if err != nil {
		return nil, fmt.Errorf("get wallet totals: %w", err)
	}
	return totals, nil
}

func scanWallet(row pgx.Row) (*domain.InstructorWallet, error) {
	w := &domain.InstructorWallet{}
	err := row.Scan(
		&w.ID, &w.InstructorID, &w.Balance, &w.TotalEarnings,
		&w.TotalWithdrawn, &w.PendingWithdraw, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
