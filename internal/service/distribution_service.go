package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"
	"revenue-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const distributionCacheTTL = 24 * time.Hour

// DistributionServiceImpl implements ports.DistributionService.
type DistributionServiceImpl struct {
	revenueRepo    ports.RevenueRepository
	walletStore    ports.WalletStore
	idempCache     ports.IdempotencyCache
	transactor     ports.DBTransactor
	defaultPercent decimal.Decimal
	log            zerolog.Logger
}

// NewDistributionService creates a new DistributionServiceImpl.
// defaultPercent is the platform-wide instructor share applied to order
// items that carry no per-item override.
func NewDistributionService(
	revenueRepo ports.RevenueRepository,
	walletStore ports.WalletStore,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	defaultPercent decimal.Decimal,
	log zerolog.Logger,
) *DistributionServiceImpl {
	return &DistributionServiceImpl{
		revenueRepo:    revenueRepo,
		walletStore:    walletStore,
		idempCache:     idempCache,
		transactor:     transactor,
		defaultPercent: defaultPercent,
		log:            log,
	}
}

// DistributeRevenue splits each order item of a confirmed payment, writes
// the revenue records and credits the instructor wallets, all in one
// database transaction. A repeated gateway transaction reference is a
// no-op returning the original result.
func (s *DistributionServiceImpl) DistributeRevenue(ctx context.Context, payment domain.PaymentConfirmation) (*ports.DistributionResult, error) {
	if payment.GatewayTxnRef == "" {
		return nil, apperror.Validation("gateway transaction reference is required")
	}
	if len(payment.OrderItems) == 0 {
		return nil, apperror.Validation("payment has no order items")
	}

	// Layer 1: Redis idempotency check
	cached, err := s.idempCache.Get(ctx, payment.GatewayTxnRef)
	if err != nil {
		s.log.Warn().Err(err).Str("gateway_txn_ref", payment.GatewayTxnRef).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return s.unmarshalCachedResult(cached)
	}

	// Layer 2: DB idempotency check
	exists, err := s.revenueRepo.ExistsByGatewayRef(ctx, payment.GatewayTxnRef)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("db idempotency check: %w", err))
	}
	if exists {
		s.log.Info().Str("gateway_txn_ref", payment.GatewayTxnRef).Msg("revenue already distributed, skipping")
		return &ports.DistributionResult{GatewayTxnRef: payment.GatewayTxnRef, Duplicate: true}, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	result := &ports.DistributionResult{GatewayTxnRef: payment.GatewayTxnRef}
	now := time.Now().UTC()

	for _, item := range payment.OrderItems {
		if item.InstructorID == uuid.Nil {
			s.log.Warn().
				Str("gateway_txn_ref", payment.GatewayTxnRef).
				Str("course_id", item.CourseID.String()).
				Msg("order item has no resolvable instructor, skipping")
			result.Skipped++
			continue
		}
		if item.Price <= 0 {
			result.Skipped++
			continue
		}

		percent := s.defaultPercent
		if item.InstructorPercent != nil {
			percent = *item.InstructorPercent
		}
		earning, fee := domain.SplitRevenue(item.Price, percent)

		record := &domain.RevenueRecord{
			ID:                uuid.New(),
			CourseID:          item.CourseID,
			EnrollmentID:      item.EnrollmentID,
			PaymentID:         payment.PaymentID,
			InstructorID:      item.InstructorID,
			StudentID:         payment.StudentID,
			TotalAmount:       item.Price,
			InstructorEarning: earning,
			PlatformFee:       fee,
			InstructorPercent: percent,
			Status:            domain.RevenueStatusActive,
			GatewayTxnRef:     payment.GatewayTxnRef,
			GatewayTxnNo:      payment.GatewayTxnNo,
			GatewayRespCode:   payment.GatewayCode,
			CreatedAt:         now,
		}
		if err := s.revenueRepo.Create(ctx, dbTx, record); err != nil {
			// A racing delivery of the same payment can slip past the
			// existence check; the unique (gateway_txn_ref, course_id)
			// constraint catches the loser, which answers as a no-op
			// like any other duplicate.
			if isUniqueViolation(err) {
				s.log.Info().
					Str("gateway_txn_ref", payment.GatewayTxnRef).
					Msg("lost insert race to concurrent duplicate, skipping")
				return &ports.DistributionResult{GatewayTxnRef: payment.GatewayTxnRef, Duplicate: true}, nil
			}
			return nil, apperror.ErrDatabaseError(fmt.Errorf("create revenue record: %w", err))
		}

		ref := ports.LedgerRef{
			ID:          record.ID,
			Type:        domain.ReferenceTypeRevenue,
			Description: fmt.Sprintf("revenue share for course %s", item.CourseID),
		}
		if _, err := s.walletStore.Credit(ctx, dbTx, item.InstructorID, earning, ref); err != nil {
			return nil, err
		}

		result.Distributed++
		result.RecordIDs = append(result.RecordIDs, record.ID)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	// Post-process: cache in Redis (best-effort)
	if respJSON, err := json.Marshal(result); err == nil {
		if err := s.idempCache.Set(ctx, payment.GatewayTxnRef, respJSON, distributionCacheTTL); err != nil {
			s.log.Warn().Err(err).Str("gateway_txn_ref", payment.GatewayTxnRef).Msg("failed to cache distribution result in redis")
		}
	}

	s.log.Info().
		Str("gateway_txn_ref", payment.GatewayTxnRef).
		Int("distributed", result.Distributed).
		Int("skipped", result.Skipped).
		Msg("revenue distributed")

	return result, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *DistributionServiceImpl) unmarshalCachedResult(data []byte) (*ports.DistributionResult, error) {
	result := &ports.DistributionResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached result: %w", err))
	}
	result.Duplicate = true
	return result, nil
}
