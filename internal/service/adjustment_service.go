package service

import (
	"context"
	"fmt"

	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"
	"revenue-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AdjustmentServiceImpl implements ports.AdjustmentService. The wallet
// store appends the ledger entry as part of the balance mutation, so the
// service needs no ledger access of its own.
type AdjustmentServiceImpl struct {
	walletStore ports.WalletStore
	transactor  ports.DBTransactor
	authz       ports.Authorizer
	log         zerolog.Logger
}

// NewAdjustmentService creates a new AdjustmentServiceImpl.
func NewAdjustmentService(
	walletStore ports.WalletStore,
	transactor ports.DBTransactor,
	authz ports.Authorizer,
	log zerolog.Logger,
) *AdjustmentServiceImpl {
	return &AdjustmentServiceImpl{
		walletStore: walletStore,
		transactor:  transactor,
		authz:       authz,
		log:         log,
	}
}

// Adjust applies a signed manual correction to an instructor's balance
// and returns the appended ledger entry.
func (s *AdjustmentServiceImpl) Adjust(ctx context.Context, actor domain.Actor, instructorID uuid.UUID, amount int64, description string) (*domain.WalletTransaction, error) {
	if !s.authz.CanManagePayouts(actor) {
		return nil, apperror.ErrUnauthorized()
	}
	if amount == 0 {
		return nil, apperror.Validation("adjustment amount must be non-zero")
	}
	if description == "" {
		return nil, apperror.Validation("adjustment description is required")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	ref := ports.LedgerRef{
		ID:          uuid.New(),
		Type:        domain.ReferenceTypeAdjustment,
		Description: description,
	}
	wallet, err := s.walletStore.Adjust(ctx, dbTx, instructorID, amount, ref)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("instructor_id", instructorID.String()).
		Str("admin_id", actor.ID.String()).
		Int64("amount", amount).
		Msg("manual wallet adjustment applied")

	return &domain.WalletTransaction{
		InstructorID:  instructorID,
		Type:          domain.LedgerTypeAdjustment,
		Amount:        amount,
		BalanceAfter:  wallet.Balance,
		ReferenceID:   ref.ID,
		ReferenceType: ref.Type,
		Description:   description,
		CreatedAt:     wallet.UpdatedAt,
	}, nil
}
