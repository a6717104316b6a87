package service

import (
	"context"
	"fmt"
	"time"

	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"
	"revenue-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PayoutServiceImpl implements ports.PayoutService.
type PayoutServiceImpl struct {
	payoutRepo   ports.PayoutRepository
	payoutTxRepo ports.PayoutTransactionRepository
	walletStore  ports.WalletStore
	transactor   ports.DBTransactor
	authz        ports.Authorizer
	minPayout    int64
	log          zerolog.Logger
}

// NewPayoutService creates a new PayoutServiceImpl.
func NewPayoutService(
	payoutRepo ports.PayoutRepository,
	payoutTxRepo ports.PayoutTransactionRepository,
	walletStore ports.WalletStore,
	transactor ports.DBTransactor,
	authz ports.Authorizer,
	minPayout int64,
	log zerolog.Logger,
) *PayoutServiceImpl {
	return &PayoutServiceImpl{
		payoutRepo:   payoutRepo,
		payoutTxRepo: payoutTxRepo,
		walletStore:  walletStore,
		transactor:   transactor,
		authz:        authz,
		minPayout:    minPayout,
		log:          log,
	}
}

// CreateRequest opens a PENDING withdrawal and escrows its amount. One
// outstanding request per instructor at a time.
func (s *PayoutServiceImpl) CreateRequest(ctx context.Context, actor domain.Actor, req ports.CreatePayoutRequest) (*domain.PayoutRequest, error) {
	if req.Amount < s.minPayout {
		return nil, apperror.ErrBelowMinPayout(s.minPayout)
	}
	if req.Bank.BankName == "" || req.Bank.BankAccount == "" || req.Bank.AccountHolder == "" {
		return nil, apperror.Validation("bank details are required")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Escrow under the wallet row lock.
	if _, err := s.walletStore.Reserve(ctx, dbTx, actor.ID, req.Amount); err != nil {
		return nil, err
	}

	// Counted only after the wallet lock is held: racing creates from
	// one instructor serialise on that lock, so the later one sees the
	// earlier request already committed. Counting before the lock lets
	// both see zero and both commit.
	outstanding, err := s.payoutRepo.CountOutstanding(ctx, actor.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("count outstanding payouts: %w", err))
	}
	if outstanding > 0 {
		return nil, apperror.ErrOutstandingPayoutExists()
	}

	now := time.Now().UTC()
	request := &domain.PayoutRequest{
		ID:           uuid.New(),
		InstructorID: actor.ID,
		Amount:       req.Amount,
		Status:       domain.PayoutStatusPending,
		Bank:         req.Bank,
		Note:         req.Note,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.payoutRepo.Create(ctx, dbTx, request); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create payout request: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("request_id", request.ID.String()).
		Str("instructor_id", actor.ID.String()).
		Int64("amount", req.Amount).
		Msg("payout request created")

	return request, nil
}

// Decide approves or rejects a PENDING request. Approval is committed
// first, then settlement runs in its own transaction: a settlement
// failure leaves the request APPROVED, and calling Decide again with
// approve=true retries the settlement alone.
func (s *PayoutServiceImpl) Decide(ctx context.Context, actor domain.Actor, requestID uuid.UUID, decision ports.PayoutDecision) (*domain.PayoutRequest, error) {
	if !s.authz.CanManagePayouts(actor) {
		return nil, apperror.ErrUnauthorized()
	}
	if !decision.Approve && decision.RejectionReason == "" {
		return nil, apperror.ErrRejectionReasonRequired()
	}

	request, err := s.payoutRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get payout request: %w", err))
	}
	if request == nil {
		return nil, apperror.ErrNotFound("payout request")
	}

	switch {
	case decision.Approve && request.Status == domain.PayoutStatusPending:
		if err := s.approve(ctx, requestID, actor.ID); err != nil {
			return nil, err
		}
		return s.settle(ctx, requestID, actor.ID)
	case decision.Approve && request.Status == domain.PayoutStatusApproved:
		// Settlement retry after an earlier failure.
		return s.settle(ctx, requestID, actor.ID)
	case !decision.Approve && request.Status == domain.PayoutStatusPending:
		return s.reject(ctx, requestID, actor.ID, decision.RejectionReason)
	default:
		return nil, apperror.ErrInvalidStateTransition(string(request.Status))
	}
}

// approve moves PENDING -> APPROVED in its own transaction.
func (s *PayoutServiceImpl) approve(ctx context.Context, requestID, adminID uuid.UUID) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	affected, err := s.payoutRepo.TransitionStatus(ctx, dbTx, requestID,
		domain.PayoutStatusPending, domain.PayoutStatusApproved,
		ports.PayoutDecisionUpdate{ProcessedBy: &adminID})
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("approve payout: %w", err))
	}
	if affected == 0 {
		return apperror.ErrInvalidStateTransition(string(domain.PayoutStatusPending))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("request_id", requestID.String()).Str("admin_id", adminID.String()).Msg("payout request approved")
	return nil
}

// settle performs the simulated bank transfer atomically: the settlement
// record, the wallet movement and APPROVED -> PAID commit together.
func (s *PayoutServiceImpl) settle(ctx context.Context, requestID, adminID uuid.UUID) (*domain.PayoutRequest, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	request, err := s.payoutRepo.GetByIDForUpdate(ctx, dbTx, requestID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock payout request: %w", err))
	}
	if request == nil {
		return nil, apperror.ErrNotFound("payout request")
	}
	if request.Status != domain.PayoutStatusApproved {
		return nil, apperror.ErrInvalidStateTransition(string(request.Status))
	}

	now := time.Now().UTC()
	payoutTx := &domain.PayoutTransaction{
		ID:              uuid.New(),
		PayoutRequestID: request.ID,
		InstructorID:    request.InstructorID,
		Amount:          request.Amount,
		Bank:            request.Bank,
		TransactionRef:  fmt.Sprintf("PAYOUT-%s-%d", request.ID.String()[:8], now.UnixMilli()),
		ProcessedBy:     adminID,
		CreatedAt:       now,
	}
	if err := s.payoutTxRepo.Create(ctx, dbTx, payoutTx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create payout transaction: %w", err))
	}

	ref := ports.LedgerRef{
		ID:          request.ID,
		Type:        domain.ReferenceTypePayout,
		Description: fmt.Sprintf("payout %s", payoutTx.TransactionRef),
	}
	if _, err := s.walletStore.Settle(ctx, dbTx, request.InstructorID, request.Amount, ref); err != nil {
		s.log.Error().Err(err).Str("request_id", requestID.String()).Msg("payout settlement failed, request stays approved")
		return nil, err
	}

	affected, err := s.payoutRepo.TransitionStatus(ctx, dbTx, requestID,
		domain.PayoutStatusApproved, domain.PayoutStatusPaid,
		ports.PayoutDecisionUpdate{ProcessedBy: &adminID})
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("mark payout paid: %w", err))
	}
	if affected == 0 {
		return nil, apperror.ErrInvalidStateTransition(string(domain.PayoutStatusApproved))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("request_id", requestID.String()).
		Str("transaction_ref", payoutTx.TransactionRef).
		Int64("amount", request.Amount).
		Msg("payout settled")

	return s.reload(ctx, requestID)
}

// reject moves PENDING -> REJECTED and releases the escrow.
func (s *PayoutServiceImpl) reject(ctx context.Context, requestID, adminID uuid.UUID, reason string) (*domain.PayoutRequest, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	request, err := s.payoutRepo.GetByIDForUpdate(ctx, dbTx, requestID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock payout request: %w", err))
	}
	if request == nil {
		return nil, apperror.ErrNotFound("payout request")
	}

	affected, err := s.payoutRepo.TransitionStatus(ctx, dbTx, requestID,
		domain.PayoutStatusPending, domain.PayoutStatusRejected,
		ports.PayoutDecisionUpdate{RejectionReason: &reason, ProcessedBy: &adminID})
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("reject payout: %w", err))
	}
	if affected == 0 {
		return nil, apperror.ErrInvalidStateTransition(string(request.Status))
	}

	if _, err := s.walletStore.Release(ctx, dbTx, request.InstructorID, request.Amount); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("request_id", requestID.String()).
		Str("admin_id", adminID.String()).
		Str("reason", reason).
		Msg("payout request rejected")

	return s.reload(ctx, requestID)
}

// Cancel lets an instructor withdraw their own PENDING request.
func (s *PayoutServiceImpl) Cancel(ctx context.Context, actor domain.Actor, requestID uuid.UUID) (*domain.PayoutRequest, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	request, err := s.payoutRepo.GetByIDForUpdate(ctx, dbTx, requestID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock payout request: %w", err))
	}
	if request == nil {
		return nil, apperror.ErrNotFound("payout request")
	}
	if !s.authz.CanAccessWallet(actor, request.InstructorID) {
		return nil, apperror.ErrUnauthorized()
	}

	affected, err := s.payoutRepo.TransitionStatus(ctx, dbTx, requestID,
		domain.PayoutStatusPending, domain.PayoutStatusCancelled,
		ports.PayoutDecisionUpdate{})
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("cancel payout: %w", err))
	}
	if affected == 0 {
		return nil, apperror.ErrInvalidStateTransition(string(request.Status))
	}

	if _, err := s.walletStore.Release(ctx, dbTx, request.InstructorID, request.Amount); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("request_id", requestID.String()).Msg("payout request cancelled")

	return s.reload(ctx, requestID)
}

// Get fetches one payout request, enforcing wallet access.
func (s *PayoutServiceImpl) Get(ctx context.Context, actor domain.Actor, requestID uuid.UUID) (*domain.PayoutRequest, error) {
	request, err := s.payoutRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get payout request: %w", err))
	}
	if request == nil {
		return nil, apperror.ErrNotFound("payout request")
	}
	if !s.authz.CanAccessWallet(actor, request.InstructorID) {
		return nil, apperror.ErrUnauthorized()
	}
	return request, nil
}

// List fetches payout requests. Instructors only ever see their own.
func (s *PayoutServiceImpl) List(ctx context.Context, actor domain.Actor, params ports.PayoutListParams) ([]domain.PayoutRequest, int64, error) {
	if !actor.IsStaff() {
		params.InstructorID = &actor.ID
	}
	requests, total, err := s.payoutRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list payout requests: %w", err))
	}
	return requests, total, nil
}

func (s *PayoutServiceImpl) reload(ctx context.Context, requestID uuid.UUID) (*domain.PayoutRequest, error) {
	request, err := s.payoutRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("reload payout request: %w", err))
	}
	if request == nil {
		return nil, apperror.ErrNotFound("payout request")
	}
	return request, nil
}
