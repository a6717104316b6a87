package integration

import (
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"revenue-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The in-memory transactor serializes whole transactions the way row
// locks do in PostgreSQL, but checks services run BEFORE opening a
// transaction (the gateway-ref existence probe) still race. Assertions
// on those paths pin the invariants that must hold regardless of
// interleaving, not exact request counts.

func TestConcurrentDuplicateWebhooks(t *testing.T) {
	app := newTestApp(t)
	instructorID := uuid.New()
	payload := paymentPayload("TXNC001", instructorID, 100_000)

	const workers = 10
	var completed atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			resp := app.postWebhook(t, "/api/v1/webhooks/payments", payload)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				completed.Add(1)
			}
		}()
	}
	wg.Wait()

	// every request resolves, either distributing or short-circuiting
	assert.Equal(t, int64(workers), completed.Load())

	wallet, err := app.wallets.GetByInstructorID(t.Context(), instructorID)
	require.NoError(t, err)
	require.NotNil(t, wallet)

	// a distribution credits exactly 70,000; racing requests may slip
	// past the pre-transaction existence probe, but the balance is
	// always a whole number of distributions and never zero
	const earning = int64(70_000)
	assert.GreaterOrEqual(t, wallet.Balance, earning)
	assert.Zero(t, wallet.Balance%earning)
	assert.LessOrEqual(t, wallet.Balance, earning*workers)

	// the ledger chain stays intact because every credit appends its
	// entry inside the serialized transaction
	entries, err := app.ledger.ListAllByInstructor(t.Context(), instructorID)
	require.NoError(t, err)
	replayed, intact := domain.ReplayLedger(entries)
	assert.True(t, intact)
	assert.Equal(t, wallet.Balance, replayed)
}

func TestConcurrentPayoutCreates(t *testing.T) {
	app := newTestApp(t)
	instructorID := uuid.New()
	instructorJWT := app.instructorToken(t, instructorID)

	// fund the wallet with 140,000
	resp := app.postWebhook(t, "/api/v1/webhooks/payments", paymentPayload("TXNC002", instructorID, 200_000))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// ten racing requests for 100,000 each; only one can fit the balance
	const workers = 10
	var created, refused atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			r := app.doJSON(t, http.MethodPost, "/api/v1/payouts", instructorJWT, map[string]any{
				"amount":         100_000,
				"bank_name":      "Vietcombank",
				"bank_account":   "0123456789",
				"account_holder": "NGUYEN VAN A",
			})
			r.Body.Close()
			switch r.StatusCode {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusConflict, http.StatusUnprocessableEntity:
				refused.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created.Load())
	assert.Equal(t, int64(workers-1), refused.Load())

	wallet, err := app.wallets.GetByInstructorID(t.Context(), instructorID)
	require.NoError(t, err)
	require.NotNil(t, wallet)
	assert.Equal(t, int64(100_000), wallet.PendingWithdraw)
	assert.LessOrEqual(t, wallet.PendingWithdraw, wallet.Balance)
}

func TestConcurrentPayoutCreates_AllFitBalance(t *testing.T) {
	app := newTestApp(t)
	instructorID := uuid.New()
	instructorJWT := app.instructorToken(t, instructorID)

	// fund the wallet with 700,000 so every racing request fits
	resp := app.postWebhook(t, "/api/v1/webhooks/payments", paymentPayload("TXNC004", instructorID, 1_000_000))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// the balance can hold all of them, so only the outstanding-count
	// check (taken under the wallet lock) keeps it to one open request
	const workers = 10
	var created, refused atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			r := app.doJSON(t, http.MethodPost, "/api/v1/payouts", instructorJWT, map[string]any{
				"amount":         60_000,
				"bank_name":      "Vietcombank",
				"bank_account":   "0123456789",
				"account_holder": "NGUYEN VAN A",
			})
			r.Body.Close()
			switch r.StatusCode {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusConflict:
				refused.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created.Load())
	assert.Equal(t, int64(workers-1), refused.Load())

	outstanding, err := app.payouts.CountOutstanding(t.Context(), instructorID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), outstanding)

	wallet, err := app.wallets.GetByInstructorID(t.Context(), instructorID)
	require.NoError(t, err)
	assert.Equal(t, int64(60_000), wallet.PendingWithdraw)
}

func TestConcurrentPayoutDecisions(t *testing.T) {
	app := newTestApp(t)
	instructorID := uuid.New()
	instructorJWT := app.instructorToken(t, instructorID)

	resp := app.postWebhook(t, "/api/v1/webhooks/payments", paymentPayload("TXNC003", instructorID, 200_000))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	createResp := app.doJSON(t, http.MethodPost, "/api/v1/payouts", instructorJWT, map[string]any{
		"amount":         100_000,
		"bank_name":      "Vietcombank",
		"bank_account":   "0123456789",
		"account_holder": "NGUYEN VAN A",
	})
	require.Equal(t, http.StatusCreated, createResp.StatusCode)
	var payout struct {
		ID string `json:"id"`
	}
	decodeData(t, createResp, &payout)

	// several staff approving at once; the compare-and-swap transition
	// lets exactly one through
	const workers = 5
	staffJWT := app.staffToken(t)
	var approved, conflicted atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			r := app.doJSON(t, http.MethodPost, "/api/v1/admin/payouts/"+payout.ID+"/decision", staffJWT, map[string]any{
				"approve": true,
			})
			r.Body.Close()
			switch r.StatusCode {
			case http.StatusOK:
				approved.Add(1)
			case http.StatusConflict:
				conflicted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), approved.Load())
	assert.Equal(t, int64(workers-1), conflicted.Load())

	// the wallet settled exactly once
	wallet, err := app.wallets.GetByInstructorID(t.Context(), instructorID)
	require.NoError(t, err)
	assert.Equal(t, int64(40_000), wallet.Balance)
	assert.Equal(t, int64(0), wallet.PendingWithdraw)
	assert.Equal(t, int64(100_000), wallet.TotalWithdrawn)

	stored, err := app.payouts.GetByID(t.Context(), uuid.MustParse(payout.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPaid, stored.Status)
}
