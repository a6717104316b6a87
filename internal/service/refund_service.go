package service

import (
	"context"
	"fmt"

	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"
	"revenue-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// RefundServiceImpl implements ports.RefundService.
type RefundServiceImpl struct {
	revenueRepo ports.RevenueRepository
	walletStore ports.WalletStore
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewRefundService creates a new RefundServiceImpl.
func NewRefundService(
	revenueRepo ports.RevenueRepository,
	walletStore ports.WalletStore,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *RefundServiceImpl {
	return &RefundServiceImpl{
		revenueRepo: revenueRepo,
		walletStore: walletStore,
		transactor:  transactor,
		log:         log,
	}
}

// ProcessRefund reverses every ACTIVE revenue record of a gateway payment:
// each record flips to REFUNDED and its instructor's wallet is debited by
// the recorded earning, all in one database transaction. The debit may
// drive the balance negative when the earning was already paid out.
func (s *RefundServiceImpl) ProcessRefund(ctx context.Context, gatewayTxnRef string, reason string) error {
	if gatewayTxnRef == "" {
		return apperror.Validation("gateway transaction reference is required")
	}
	if reason == "" {
		return apperror.Validation("refund reason is required")
	}

	records, err := s.revenueRepo.ListByGatewayRef(ctx, gatewayTxnRef)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("list revenue records: %w", err))
	}
	if len(records) == 0 {
		return apperror.ErrNotFound("revenue record")
	}

	active := 0
	for i := range records {
		if records[i].IsActive() {
			active++
		}
	}
	if active == 0 {
		return apperror.ErrAlreadyRefunded()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	reversed := 0
	for i := range records {
		record := &records[i]
		if !record.IsActive() {
			continue
		}

		// The status guard makes the flip race-safe: a concurrent refund
		// of the same record reverses it exactly once.
		affected, err := s.revenueRepo.MarkRefunded(ctx, dbTx, record.ID, reason)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("mark revenue refunded: %w", err))
		}
		if affected == 0 {
			continue
		}

		ref := ports.LedgerRef{
			ID:          record.ID,
			Type:        domain.ReferenceTypeRevenue,
			Description: fmt.Sprintf("refund of course %s: %s", record.CourseID, reason),
		}
		if _, err := s.walletStore.Debit(ctx, dbTx, record.InstructorID, record.InstructorEarning, ref); err != nil {
			return err
		}
		reversed++
	}

	if reversed == 0 {
		return apperror.ErrAlreadyRefunded()
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("gateway_txn_ref", gatewayTxnRef).
		Int("reversed", reversed).
		Str("reason", reason).
		Msg("refund processed")

	return nil
}
