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

// RevenueRepo implements ports.RevenueRepository.
type RevenueRepo struct {
	pool Pool
}

// NewRevenueRepo creates a new RevenueRepo.
func NewRevenueRepo(pool Pool) *RevenueRepo {
	return &RevenueRepo{pool: pool}
}

const revenueColumns = `id, course_id, enrollment_id, payment_id, instructor_id, student_id,
		total_amount, instructor_earning, platform_fee, instructor_percent,
		status, refund_reason, gateway_txn_ref, gateway_txn_no, gateway_resp_code,
		created_at, refunded_at`

// Create inserts a revenue record within a database transaction. The
// table enforces UNIQUE (gateway_txn_ref, course_id).
func (r *RevenueRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.RevenueRecord) error {
	query := `INSERT INTO revenue_records (` + revenueColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := tx.Exec(ctx, query,
		rec.ID, rec.CourseID, rec.EnrollmentID, rec.PaymentID, rec.InstructorID, rec.StudentID,
		rec.TotalAmount, rec.InstructorEarning, rec.PlatformFee, rec.InstructorPercent,
		rec.Status, rec.RefundReason, rec.GatewayTxnRef, rec.GatewayTxnNo, rec.GatewayRespCode,
		rec.CreatedAt, rec.RefundedAt,
	)
	if err != nil {
		return fmt.Errorf("insert revenue record: %w", err)
	}
	return nil
}

// GetByID fetches a revenue record by UUID.
func (r *RevenueRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.RevenueRecord, error) {
	query := `SELECT ` + revenueColumns + ` FROM revenue_records WHERE id = $1`
	return scanRevenueRow(r.pool.QueryRow(ctx, query, id))
}

// ExistsByGatewayRef reports whether any record exists for the gateway
// transaction reference.
func (r *RevenueRepo) ExistsByGatewayRef(ctx context.Context, gatewayTxnRef string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM revenue_records WHERE gateway_txn_ref = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, gatewayTxnRef).Scan(&exists); err != nil {
		return false, fmt.Errorf("check gateway ref exists: %w", err)
	}
	return exists, nil
}

// ListByGatewayRef returns all records of one gateway payment, oldest
// first. Records of one distribution share a timestamp, so instructor_id
// breaks the tie: refund callers lock wallets in this order, and a
// deterministic order keeps concurrent refunds deadlock-free.
func (r *RevenueRepo) ListByGatewayRef(ctx context.Context, gatewayTxnRef string) ([]domain.RevenueRecord, error) {
	query := `SELECT ` + revenueColumns + ` FROM revenue_records WHERE gateway_txn_ref = $1 ORDER BY created_at, instructor_id`

	rows, err := r.pool.Query(ctx, query, gatewayTxnRef)
	if err != nil {
		return nil, fmt.Errorf("list revenue by gateway ref: %w", err)
	}
	defer rows.Close()

	var records []domain.RevenueRecord
	for rows.Next() {
		rec := domain.RevenueRecord{}
		if err := scanRevenueInto(rows, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revenue rows: %w", err)
	}
	return records, nil
}

// MarkRefunded transitions ACTIVE -> REFUNDED with a reason. Returns the
// number of rows changed; the status guard makes double refunds a no-op
// at the storage layer.
func (r *RevenueRepo) MarkRefunded(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string) (int64, error) {
	query := `UPDATE revenue_records
		SET status = 'REFUNDED', refund_reason = $1, refunded_at = NOW()
		WHERE id = $2 AND status = 'ACTIVE'`

	tag, err := tx.Exec(ctx, query, reason, id)
	if err != nil {
		return 0, fmt.Errorf("mark revenue refunded: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetRevenueStats sums ACTIVE records for the dashboard.
func (r *RevenueRepo) GetRevenueStats(ctx context.Context) (*ports.RevenueStats, error) {
	query := `SELECT
		COUNT(*) FILTER (WHERE status = 'ACTIVE'),
		COUNT(*) FILTER (WHERE status = 'REFUNDED'),
		COALESCE(SUM(total_amount) FILTER (WHERE status = 'ACTIVE'), 0),
		COALESCE(SUM(instructor_earning) FILTER (WHERE status = 'ACTIVE'), 0),
		COALESCE(SUM(platform_fee) FILTER (WHERE status = 'ACTIVE'), 0)
		FROM revenue_records`

	stats := &ports.RevenueStats{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.Records, &stats.Refunded, &stats.GrossRevenue,
		&stats.InstructorEarning, &stats.PlatformFee,
	)
	if err != nil {
		return nil, fmt.Errorf("get revenue stats: %w", err)
	}
	return stats, nil
}

func scanRevenueRow(row pgx.Row) (*domain.RevenueRecord, error) {
	rec := &domain.RevenueRecord{}
	if err := scanRevenueInto(row, rec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func scanRevenueInto(row pgx.Row, rec *domain.RevenueRecord) error {
	err := row.Scan(
		&rec.ID, &rec.CourseID, &rec.EnrollmentID, &rec.PaymentID, &rec.InstructorID, &rec.StudentID,
		&rec.TotalAmount, &rec.InstructorEarning, &rec.PlatformFee, &rec.InstructorPercent,
		&rec.Status, &rec.RefundReason, &rec.GatewayTxnRef, &rec.GatewayTxnNo, &rec.GatewayRespCode,
		&rec.CreatedAt, &rec.RefundedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return fmt.Errorf("scan revenue record: %w", err)
	}
	return nil
}
