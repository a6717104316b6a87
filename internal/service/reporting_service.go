package service

import (
	"context"
	"fmt"

	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"
	"revenue-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	walletRepo  ports.WalletRepository
	revenueRepo ports.RevenueRepository
	payoutRepo  ports.PayoutRepository
	ledgerRepo  ports.LedgerRepository
	authz       ports.Authorizer
}

// NewReportingService creates a new reporting service.
func NewReportingService(
	walletRepo ports.WalletRepository,
	revenueRepo ports.RevenueRepository,
	payoutRepo ports.PayoutRepository,
	ledgerRepo ports.LedgerRepository,
	authz ports.Authorizer,
) ports.ReportingService {
	return &reportingService{
		walletRepo:  walletRepo,
		revenueRepo: revenueRepo,
		payoutRepo:  payoutRepo,
		ledgerRepo:  ledgerRepo,
		authz:       authz,
	}
}

// GetWalletBalance returns the current wallet view of an instructor.
// An instructor without a wallet yet reads as all zeros.
func (s *reportingService) GetWalletBalance(ctx context.Context, instructorID uuid.UUID) (*ports.WalletBalance, error) {
	wallet, err := s.walletRepo.GetByInstructorID(ctx, instructorID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return &ports.WalletBalance{}, nil
	}
	return &ports.WalletBalance{
		Balance:          wallet.Balance,
		TotalEarnings:    wallet.TotalEarnings,
		TotalWithdrawn:   wallet.TotalWithdrawn,
		PendingWithdraw:  wallet.PendingWithdraw,
		AvailableBalance: wallet.Available(),
	}, nil
}

// ListWalletTransactions returns a page of an instructor's ledger,
// newest first. Instructors only ever see their own.
func (s *reportingService) ListWalletTransactions(ctx context.Context, actor domain.Actor, params ports.LedgerListParams) ([]domain.WalletTransaction, int64, error) {
	if !s.authz.CanAccessWallet(actor, params.InstructorID) {
		return nil, 0, apperror.ErrUnauthorized()
	}
	entries, total, err := s.ledgerRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list ledger entries: %w", err))
	}
	return entries, total, nil
}

// GetDashboardStats aggregates platform totals from the three stores.
// The reads are not one snapshot; good enough for a dashboard.
func (s *reportingService) GetDashboardStats(ctx context.Context) (*ports.DashboardStats, error) {
	revenue, err := s.revenueRepo.GetRevenueStats(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("revenue stats: %w", err))
	}
	payouts, err := s.payoutRepo.GetPayoutStats(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("payout stats: %w", err))
	}
	wallets, err := s.walletRepo.GetPlatformTotals(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("wallet totals: %w", err))
	}
	return &ports.DashboardStats{
		Revenue: *revenue,
		Payouts: *payouts,
		Wallets: *wallets,
	}, nil
}

// VerifyLedger replays an instructor's full ledger in creation order and
// checks both the balanceAfter chain and the final balance against the
// wallet row.
func (s *reportingService) VerifyLedger(ctx context.Context, instructorID uuid.UUID) (*ports.LedgerVerification, error) {
	wallet, err := s.walletRepo.GetByInstructorID(ctx, instructorID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	entries, err := s.ledgerRepo.ListAllByInstructor(ctx, instructorID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list ledger: %w", err))
	}

	replayBalance, intact := domain.ReplayLedger(entries)
	return &ports.LedgerVerification{
		InstructorID:  instructorID,
		Entries:       len(entries),
		ChainIntact:   intact,
		ReplayBalance: replayBalance,
		WalletBalance: wallet.Balance,
		Consistent:    intact && replayBalance == wallet.Balance,
	}, nil
}
