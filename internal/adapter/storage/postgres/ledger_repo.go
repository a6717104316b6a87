package postgres

import (
	"context"
	"fmt"
	"strings"

	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. The wallet_transactions
// table is append-only: there is no update or delete path here.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

const ledgerColumns = `id, instructor_id, type, amount, balance_after, reference_id, reference_type, description, created_at`

// Create appends a ledger entry within a database transaction.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.WalletTransaction) error {
	query := `INSERT INTO wallet_transactions (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.InstructorID, e.Type, e.Amount, e.BalanceAfter,
		e.ReferenceID, e.ReferenceType, e.Description, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// List fetches ledger entries with filtering and pagination, newest first.
func (r *LedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.WalletTransaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("instructor_id = $%d", argIdx))
	args = append(args, params.InstructorID)
	argIdx++

	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM wallet_transactions %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT `+ledgerColumns+` FROM wallet_transactions %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries, err := collectLedgerRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListAllByInstructor returns every entry in creation order for replay.
func (r *LedgerRepo) ListAllByInstructor(ctx context.Context, instructorID uuid.UUID) ([]domain.WalletTransaction, error) {
	query := `SELECT ` + ledgerColumns + ` FROM wallet_transactions WHERE instructor_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, instructorID)
	if err != nil {
		return nil, fmt.Errorf("list ledger for replay: %w", err)
	}
	defer rows.Close()

	return collectLedgerRows(rows)
}

func collectLedgerRows(rows pgx.Rows) ([]domain.WalletTransaction, error) {
	var entries []domain.WalletTransaction
	for rows.Next() {
		e := domain.WalletTransaction{}
		err := rows.Scan(
			&e.ID, &e.InstructorID, &e.Type, &e.Amount, &e.BalanceAfter,
			&e.ReferenceID, &e.ReferenceType, &e.Description, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, nil
}
