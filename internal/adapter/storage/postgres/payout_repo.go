package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PayoutRepo implements ports.PayoutRepository.
type PayoutRepo struct {
	pool Pool
}

// NewPayoutRepo creates a new PayoutRepo.
func NewPayoutRepo(pool Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

const payoutColumns = `id, instructor_id, amount, status, bank_name, bank_account, account_holder,
		note, rejection_reason, processed_by, processed_at, created_at, updated_at`

// Create inserts a payout request within a database transaction, so the
// escrow reservation and the PENDING record commit together.
func (r *PayoutRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.PayoutRequest) error {
	query := `INSERT INTO payout_requests (` + payoutColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.InstructorID, p.Amount, p.Status,
		p.Bank.BankName, p.Bank.BankAccount, p.Bank.AccountHolder,
		p.Note, p.RejectionReason, p.ProcessedBy, p.ProcessedAt,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payout request: %w", err)
	}
	return nil
}

// GetByID fetches a payout request without locking.
func (r *PayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1`
	return scanPayout(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a payout request with pessimistic locking.
// This MUST be called within a transaction.
func (r *PayoutRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1 FOR UPDATE`
	return scanPayout(tx.QueryRow(ctx, query, id))
}

// CountOutstanding counts PENDING + APPROVED requests of an instructor.
func (r *PayoutRepo) CountOutstanding(ctx context.Context, instructorID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM payout_requests
		WHERE instructor_id = $1 AND status IN ('PENDING', 'APPROVED')`

	var count int64
	if err := r.pool.QueryRow(ctx, query, instructorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count outstanding payouts: %w", err)
	}
	return count, nil
}

// TransitionStatus performs a compare-and-swap status update. The WHERE
// clause on the current status is the guard: RowsAffected() == 0 means
// another call already moved the request out of `from`.
func (r *PayoutRepo) TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.PayoutStatus, update ports.PayoutDecisionUpdate) (int64, error) {
	query := `UPDATE payout_requests
		SET status = $1, rejection_reason = COALESCE($2, rejection_reason),
			processed_by = COALESCE($3, processed_by),
			processed_at = CASE WHEN $3::uuid IS NULL THEN processed_at ELSE NOW() END,
			updated_at = NOW()
		WHERE id = $4 AND status = $5`

	tag, err := tx.Exec(ctx, query, to, update.RejectionReason, update.ProcessedBy, id, from)
	if err != nil {
		return 0, fmt.Errorf("transition payout status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// List fetches payout requests with filtering and pagination, newest first.
func (r *PayoutRepo) List(ctx context.Context, params ports.PayoutListParams) ([]domain.PayoutRequest, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.InstructorID != nil {
		conditions = append(conditions, fmt.Sprintf("instructor_id = $%d", argIdx))
		args = append(args, *params.InstructorID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM payout_requests %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payout requests: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT `+payoutColumns+` FROM payout_requests %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payout requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.PayoutRequest
	for rows.Next() {
		p := domain.PayoutRequest{}
		err := rows.Scan(
			&p.ID, &p.InstructorID, &p.Amount, &p.Status,
			&p.Bank.BankName, &p.Bank.BankAccount, &p.Bank.AccountHolder,
			&p.Note, &p.RejectionReason, &p.ProcessedBy, &p.ProcessedAt,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan payout row: %w", err)
		}
		requests = append(requests, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate payout rows: %w", err)
	}
	return requests, total, nil
}

// GetPayoutStats sums requests per status for the dashboard.
func (r *PayoutRepo) GetPayoutStats(ctx context.Context) (*ports.PayoutStats, error) {
	query := `SELECT
		COUNT(*) FILTER (WHERE status = 'PENDING'),
		COALESCE(SUM(amount) FILTER (WHERE status = 'PENDING'), 0),
		COUNT(*) FILTER (WHERE status = 'APPROVED'),
		COALESCE(SUM(amount) FILTER (WHERE status = 'APPROVED'), 0),
		COUNT(*) FILTER (WHERE status = 'PAID'),
		COALESCE(SUM(amount) FILTER (WHERE status = 'PAID'), 0),
		COUNT(*) FILTER (WHERE status = 'REJECTED')
		FROM payout_requests`

	stats := &ports.PayoutStats{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.PendingCount, &stats.PendingAmount,
		&stats.ApprovedCount, &stats.ApprovedAmount,
		&stats.PaidCount, &stats.PaidAmount,
		&stats.RejectedCount,
	)
	if err != nil {
		return nil, fmt.Errorf("get payout stats: %w", err)
	}
	return stats, nil
}

func scanPayout(row pgx.Row) (*domain.PayoutRequest, error) {
	p := &domain.PayoutRequest{}
	err := row.Scan(
		&p.ID, &p.InstructorID, &p.Amount, &p.Status,
		&p.Bank.BankName, &p.Bank.BankAccount, &p.Bank.AccountHolder,
		&p.Note, &p.RejectionReason, &p.ProcessedBy, &p.ProcessedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payout request: %w", err)
	}
	return p, nil
}
