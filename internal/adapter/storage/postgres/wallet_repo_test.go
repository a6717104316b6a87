package postgres

import (
	"context"
	"testing"
	"time"

	"revenue-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(instructorID uuid.UUID) *domain.InstructorWallet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.InstructorWallet{
		ID:              uuid.New(),
		InstructorID:    instructorID,
		Balance:         70000,
		TotalEarnings:   70000,
		TotalWithdrawn:  0,
		PendingWithdraw: 0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func walletTestColumns() []string {
	return []string{"id", "instructor_id", "balance", "total_earnings", "total_withdrawn", "pending_withdraw", "created_at", "updated_at"}
}

func walletRow(w *domain.InstructorWallet) *pgxmock.Rows {
	return pgxmock.NewRows(walletTestColumns()).AddRow(
		w.ID, w.InstructorID, w.Balance, w.TotalEarnings,
		w.TotalWithdrawn, w.PendingWithdraw, w.CreatedAt, w.UpdatedAt,
	)
}

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO instructor_wallets").
		WithArgs(w.ID, w.InstructorID, w.Balance, w.TotalEarnings,
			w.TotalWithdrawn, w.PendingWithdraw, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByInstructorID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM instructor_wallets WHERE instructor_id").
		WithArgs(w.InstructorID).
		WillReturnRows(walletRow(w))

	result, err := repo.GetByInstructorID(context.Background(), w.InstructorID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.Equal(t, int64(70000), result.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByInstructorID_Missing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	instructorID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM instructor_wallets WHERE instructor_id").
		WithArgs(instructorID).
		WillReturnRows(pgxmock.NewRows(walletTestColumns()))

	result, err := repo.GetByInstructorID(context.Background(), instructorID)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByInstructorIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM instructor_wallets WHERE instructor_id .+ FOR UPDATE").
		WithArgs(w.InstructorID).
		WillReturnRows(walletRow(w))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByInstructorIDForUpdate(context.Background(), tx, w.InstructorID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateCounters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())
	w.Balance = 10000
	w.TotalWithdrawn = 60000

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE instructor_wallets").
		WithArgs(w.Balance, w.TotalEarnings, w.TotalWithdrawn, w.PendingWithdraw, w.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateCounters(context.Background(), tx, w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateCounters_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE instructor_wallets").
		WithArgs(w.Balance, w.TotalEarnings, w.TotalWithdrawn, w.PendingWithdraw, w.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateCounters(context.Background(), tx, w)
	assert.Error(t, err)
}

func TestWalletRepo_GetPlatformTotals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM instructor_wallets").
		WillReturnRows(pgxmock.NewRows([]string{"count", "balance", "earnings", "withdrawn", "pending"}).
			AddRow(int64(3), int64(150000), int64(210000), int64(60000), int64(20000)))

	totals, err := repo.GetPlatformTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.Wallets)
	assert.Equal(t, int64(150000), totals.Balance)
	assert.Equal(t, int64(20000), totals.PendingWithdraw)
	assert.NoError(t, mock.ExpectationsWereMet())
}
