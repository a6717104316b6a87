package service

import (
	"context"
	"testing"

	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports/mocks"
	"revenue-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type refundDeps struct {
	svc         *RefundServiceImpl
	revenueRepo *mocks.MockRevenueRepository
	walletStore *mocks.MockWalletStore
	transactor  *mocks.MockDBTransactor
	ctrl        *gomock.Controller
}

func setupRefundService(t *testing.T) *refundDeps {
	ctrl := gomock.NewController(t)
	d := &refundDeps{
		revenueRepo: mocks.NewMockRevenueRepository(ctrl),
		walletStore: mocks.NewMockWalletStore(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewRefundService(d.revenueRepo, d.walletStore, d.transactor, zerolog.Nop())
	return d
}

func activeRecord(gatewayTxnRef string, earning int64) domain.RevenueRecord {
	return domain.RevenueRecord{
		ID:                uuid.New(),
		CourseID:          uuid.New(),
		InstructorID:      uuid.New(),
		TotalAmount:       earning * 10 / 7,
		InstructorEarning: earning,
		InstructorPercent: decimal.RequireFromString("0.70"),
		Status:            domain.RevenueStatusActive,
		GatewayTxnRef:     gatewayTxnRef,
	}
}

func TestRefundService_ProcessRefund_Success(t *testing.T) {
	d := setupRefundService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ref := "VNP20260114123456"
	record := activeRecord(ref, 70000)
	tx := &mockTx{}

	d.revenueRepo.EXPECT().ListByGatewayRef(ctx, ref).Return([]domain.RevenueRecord{record}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.revenueRepo.EXPECT().MarkRefunded(ctx, tx, record.ID, "student dispute").Return(int64(1), nil)
	d.walletStore.EXPECT().Debit(ctx, tx, record.InstructorID, int64(70000), gomock.Any()).
		Return(&domain.InstructorWallet{Balance: 0}, nil)

	err := d.svc.ProcessRefund(ctx, ref, "student dispute")
	require.NoError(t, err)
}

func TestRefundService_ProcessRefund_MultipleRecords(t *testing.T) {
	d := setupRefundService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ref := "VNP20260114123456"
	rec1 := activeRecord(ref, 70000)
	rec2 := activeRecord(ref, 35000)
	tx := &mockTx{}

	d.revenueRepo.EXPECT().ListByGatewayRef(ctx, ref).Return([]domain.RevenueRecord{rec1, rec2}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.revenueRepo.EXPECT().MarkRefunded(ctx, tx, rec1.ID, "refund").Return(int64(1), nil)
	d.walletStore.EXPECT().Debit(ctx, tx, rec1.InstructorID, int64(70000), gomock.Any()).
		Return(&domain.InstructorWallet{}, nil)
	d.revenueRepo.EXPECT().MarkRefunded(ctx, tx, rec2.ID, "refund").Return(int64(1), nil)
	d.walletStore.EXPECT().Debit(ctx, tx, rec2.InstructorID, int64(35000), gomock.Any()).
		Return(&domain.InstructorWallet{}, nil)

	err := d.svc.ProcessRefund(ctx, ref, "refund")
	require.NoError(t, err)
}

func TestRefundService_ProcessRefund_AlreadyRefunded(t *testing.T) {
	d := setupRefundService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ref := "VNP20260114123456"
	record := activeRecord(ref, 70000)
	record.Status = domain.RevenueStatusRefunded

	d.revenueRepo.EXPECT().ListByGatewayRef(ctx, ref).Return([]domain.RevenueRecord{record}, nil)

	err := d.svc.ProcessRefund(ctx, ref, "refund")
	require.Error(t, err)

	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "REV_001", appErr.Code)
}

func TestRefundService_ProcessRefund_UnknownRef(t *testing.T) {
	d := setupRefundService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.revenueRepo.EXPECT().ListByGatewayRef(ctx, "VNP000").Return(nil, nil)

	err := d.svc.ProcessRefund(ctx, "VNP000", "refund")
	require.Error(t, err)

	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "LED_001", appErr.Code)
}

func TestRefundService_ProcessRefund_SkipsConcurrentlyRefunded(t *testing.T) {
	d := setupRefundService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ref := "VNP20260114123456"
	record := activeRecord(ref, 70000)
	tx := &mockTx{}

	d.revenueRepo.EXPECT().ListByGatewayRef(ctx, ref).Return([]domain.RevenueRecord{record}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	// Another refund won the race: status guard touches no rows, no debit.
	d.revenueRepo.EXPECT().MarkRefunded(ctx, tx, record.ID, "refund").Return(int64(0), nil)

	err := d.svc.ProcessRefund(ctx, ref, "refund")
	require.Error(t, err)

	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "REV_001", appErr.Code)
}

func TestRefundService_ProcessRefund_RequiresReason(t *testing.T) {
	d := setupRefundService(t)
	defer d.ctrl.Finish()

	err := d.svc.ProcessRefund(context.Background(), "VNP20260114123456", "")
	require.Error(t, err)

	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "VAL_001", appErr.Code)
}
