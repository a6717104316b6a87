package postgres

import (
	"context"
	"errors"
	"fmt"

	"revenue-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PayoutTransactionRepo implements ports.PayoutTransactionRepository.
// The table enforces UNIQUE (transaction_ref) and one row per request.
type PayoutTransactionRepo struct {
	pool Pool
}

// NewPayoutTransactionRepo creates a new PayoutTransactionRepo.
func NewPayoutTransactionRepo(pool Pool) *PayoutTransactionRepo {
	return &PayoutTransactionRepo{pool: pool}
}

// Create inserts the settlement record within the settling transaction.
func (r *PayoutTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.PayoutTransaction) error {
	query := `INSERT INTO payout_transactions
		(id, payout_request_id, instructor_id, amount, bank_name, bank_account, account_holder, transaction_ref, processed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.PayoutRequestID, t.InstructorID, t.Amount,
		t.Bank.BankName, t.Bank.BankAccount, t.Bank.AccountHolder,
		t.TransactionRef, t.ProcessedBy, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payout transaction: %w", err)
	}
	return nil
}

// GetByPayoutRequestID fetches the settlement record of a paid request.
func (r *PayoutTransactionRepo) GetByPayoutRequestID(ctx context.Context, requestID uuid.UUID) (*domain.PayoutTransaction, error) {
	query := `SELECT id, payout_request_id, instructor_id, amount, bank_name, bank_account, account_holder, transaction_ref, processed_by, created_at
		FROM payout_transactions WHERE payout_request_id = $1`

	t := &domain.PayoutTransaction{}
	err := r.pool.QueryRow(ctx, query, requestID).Scan(
		&t.ID, &t.PayoutRequestID, &t.InstructorID, &t.Amount,
		&t.Bank.BankName, &t.Bank.BankAccount, &t.Bank.AccountHolder,
		&t.TransactionRef, &t.ProcessedBy, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payout transaction: %w", err)
	}
	return t, nil
}
