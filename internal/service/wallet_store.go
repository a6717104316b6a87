package service

import (
	"context"
	"fmt"
	"time"

	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"
	"revenue-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// WalletStoreImpl implements ports.WalletStore. It is the only write path
// to instructor wallets: every balance mutation appends exactly one ledger
// entry in the same database transaction, escrow moves append none.
type WalletStoreImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	log        zerolog.Logger
}

// NewWalletStore creates a new WalletStoreImpl.
func NewWalletStore(walletRepo ports.WalletRepository, ledgerRepo ports.LedgerRepository, log zerolog.Logger) *WalletStoreImpl {
	return &WalletStoreImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		log:        log,
	}
}

// Credit adds an earning to the wallet, creating it on first use.
func (s *WalletStoreImpl) Credit(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID, amount int64, ref ports.LedgerRef) (*domain.InstructorWallet, error) {
	if amount <= 0 {
		return nil, apperror.Validation("credit amount must be positive")
	}

	wallet, err := s.lockOrCreate(ctx, tx, instructorID)
	if err != nil {
		return nil, err
	}

	wallet.Balance += amount
	wallet.TotalEarnings += amount

	if err := s.apply(ctx, tx, wallet, domain.LedgerTypeEarning, amount, ref); err != nil {
		return nil, err
	}
	return wallet, nil
}

// Debit removes a refunded earning. The balance may go negative when the
// earning was already withdrawn; that is logged, not rejected.
func (s *WalletStoreImpl) Debit(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID, amount int64, ref ports.LedgerRef) (*domain.InstructorWallet, error) {
	if amount <= 0 {
		return nil, apperror.Validation("debit amount must be positive")
	}

	wallet, err := s.lock(ctx, tx, instructorID)
	if err != nil {
		return nil, err
	}

	wallet.Balance -= amount
	wallet.TotalEarnings -= amount

	if wallet.Balance < 0 {
		s.log.Warn().
			Str("instructor_id", instructorID.String()).
			Int64("balance", wallet.Balance).
			Msg("wallet balance went negative after debit")
	}

	if err := s.apply(ctx, tx, wallet, domain.LedgerTypeRefund, -amount, ref); err != nil {
		return nil, err
	}
	return wallet, nil
}

// Reserve escrows amount into PendingWithdraw. No ledger entry: the
// balance itself does not move.
func (s *WalletStoreImpl) Reserve(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID, amount int64) (*domain.InstructorWallet, error) {
	if amount <= 0 {
		return nil, apperror.Validation("reserve amount must be positive")
	}

	wallet, err := s.lock(ctx, tx, instructorID)
	if err != nil {
		return nil, err
	}
	if wallet.Available() < amount {
		return nil, apperror.ErrInsufficientBalance()
	}

	wallet.PendingWithdraw += amount
	if err := s.walletRepo.UpdateCounters(ctx, tx, wallet); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("reserve: %w", err))
	}
	return wallet, nil
}

// Release returns escrowed amount to the available balance. No ledger entry.
func (s *WalletStoreImpl) Release(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID, amount int64) (*domain.InstructorWallet, error) {
	if amount <= 0 {
		return nil, apperror.Validation("release amount must be positive")
	}

	wallet, err := s.lock(ctx, tx, instructorID)
	if err != nil {
		return nil, err
	}

	wallet.PendingWithdraw -= amount
	if wallet.PendingWithdraw < 0 {
		return nil, apperror.InternalError(fmt.Errorf("release %d exceeds pending withdraw of instructor %s", amount, instructorID))
	}

	if err := s.walletRepo.UpdateCounters(ctx, tx, wallet); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("release: %w", err))
	}
	return wallet, nil
}

// Settle finalises a payout: the escrowed amount leaves the wallet.
func (s *WalletStoreImpl) Settle(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID, amount int64, ref ports.LedgerRef) (*domain.InstructorWallet, error) {
	if amount <= 0 {
		return nil, apperror.Validation("settle amount must be positive")
	}

	wallet, err := s.lock(ctx, tx, instructorID)
	if err != nil {
		return nil, err
	}
	if wallet.PendingWithdraw < amount {
		return nil, apperror.InternalError(fmt.Errorf("settle %d exceeds pending withdraw of instructor %s", amount, instructorID))
	}

	wallet.Balance -= amount
	wallet.PendingWithdraw -= amount
	wallet.TotalWithdrawn += amount

	if err := s.apply(ctx, tx, wallet, domain.LedgerTypePayout, -amount, ref); err != nil {
		return nil, err
	}
	return wallet, nil
}

// Adjust applies a signed manual correction.
func (s *WalletStoreImpl) Adjust(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID, amount int64, ref ports.LedgerRef) (*domain.InstructorWallet, error) {
	if amount == 0 {
		return nil, apperror.Validation("adjustment amount must be non-zero")
	}

	wallet, err := s.lock(ctx, tx, instructorID)
	if err != nil {
		return nil, err
	}

	wallet.Balance += amount

	if err := s.apply(ctx, tx, wallet, domain.LedgerTypeAdjustment, amount, ref); err != nil {
		return nil, err
	}
	return wallet, nil
}

// lock fetches the wallet FOR UPDATE; missing wallet is an error.
func (s *WalletStoreImpl) lock(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID) (*domain.InstructorWallet, error) {
	wallet, err := s.walletRepo.GetByInstructorIDForUpdate(ctx, tx, instructorID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return wallet, nil
}

// lockOrCreate fetches the wallet FOR UPDATE, creating a zero wallet for
// a first-time instructor. The insert runs inside the caller's tx, so a
// concurrent first credit serialises on the unique instructor_id.
func (s *WalletStoreImpl) lockOrCreate(ctx context.Context, tx pgx.Tx, instructorID uuid.UUID) (*domain.InstructorWallet, error) {
	wallet, err := s.walletRepo.GetByInstructorIDForUpdate(ctx, tx, instructorID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet != nil {
		return wallet, nil
	}

	wallet = domain.NewWallet(instructorID, time.Now().UTC())
	if err := s.walletRepo.Create(ctx, tx, wallet); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().
		Str("instructor_id", instructorID.String()).
		Str("wallet_id", wallet.ID.String()).
		Msg("wallet created on first credit")
	return wallet, nil
}

// apply persists the updated counters and appends the ledger entry.
// amount is signed and must match the mutation already applied to wallet.
func (s *WalletStoreImpl) apply(ctx context.Context, tx pgx.Tx, wallet *domain.InstructorWallet, entryType domain.LedgerEntryType, amount int64, ref ports.LedgerRef) error {
	wallet.UpdatedAt = time.Now().UTC()
	if err := s.walletRepo.UpdateCounters(ctx, tx, wallet); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("update wallet counters: %w", err))
	}

	entry := &domain.WalletTransaction{
		ID:            uuid.New(),
		InstructorID:  wallet.InstructorID,
		Type:          entryType,
		Amount:        amount,
		BalanceAfter:  wallet.Balance,
		ReferenceID:   ref.ID,
		ReferenceType: ref.Type,
		Description:   ref.Description,
		CreatedAt:     wallet.UpdatedAt,
	}
	if err := s.ledgerRepo.Create(ctx, tx, entry); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("append ledger entry: %w", err))
	}
	return nil
}
