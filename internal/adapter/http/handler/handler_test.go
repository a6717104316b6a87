package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"revenue-ledger/internal/adapter/http/dto"
	"revenue-ledger/internal/adapter/http/middleware"
	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"
	"revenue-ledger/internal/core/ports/mocks"
	"revenue-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJSONContext(t *testing.T, method, path string, payload interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, &body)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func setActor(c *gin.Context, role domain.Role) domain.Actor {
	actor := domain.Actor{ID: uuid.New(), Role: role}
	c.Set(middleware.CtxActor, actor)
	return actor
}

// --- Webhook Handler Tests ---

func validPaymentWebhook() dto.PaymentWebhookRequest {
	return dto.PaymentWebhookRequest{
		PaymentID:     uuid.NewString(),
		StudentID:     uuid.NewString(),
		GatewayTxnRef: "VNP20260114123456",
		GatewayTxnNo:  "14585399",
		GatewayCode:   "00",
		GatewayAmount: 150000,
		OrderItems: []dto.OrderItemPayload{
			{
				CourseID:     uuid.NewString(),
				EnrollmentID: uuid.NewString(),
				InstructorID: uuid.NewString(),
				Price:        150000,
			},
		},
	}
}

func TestHandlePayment_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDist := mocks.NewMockDistributionService(ctrl)
	h := NewWebhookHandler(mockDist, nil)

	req := validPaymentWebhook()
	recordID := uuid.New()

	mockDist.EXPECT().DistributeRevenue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, payment domain.PaymentConfirmation) (*ports.DistributionResult, error) {
			assert.Equal(t, req.GatewayTxnRef, payment.GatewayTxnRef)
			require.Len(t, payment.OrderItems, 1)
			assert.Equal(t, int64(150000), payment.OrderItems[0].Price)
			return &ports.DistributionResult{
				GatewayTxnRef: payment.GatewayTxnRef,
				Distributed:   1,
				RecordIDs:     []uuid.UUID{recordID},
			}, nil
		})

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/webhooks/payments", req)
	h.HandlePayment(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, req.GatewayTxnRef, data["gateway_txn_ref"])
	assert.Equal(t, float64(1), data["distributed"])
}

func TestHandlePayment_MissingItems(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDist := mocks.NewMockDistributionService(ctrl)
	h := NewWebhookHandler(mockDist, nil)

	req := validPaymentWebhook()
	req.OrderItems = nil

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/webhooks/payments", req)
	h.HandlePayment(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePayment_UnresolvedInstructorBecomesNilUUID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDist := mocks.NewMockDistributionService(ctrl)
	h := NewWebhookHandler(mockDist, nil)

	req := validPaymentWebhook()
	req.OrderItems[0].InstructorID = ""

	mockDist.EXPECT().DistributeRevenue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, payment domain.PaymentConfirmation) (*ports.DistributionResult, error) {
			assert.Equal(t, uuid.Nil, payment.OrderItems[0].InstructorID)
			return &ports.DistributionResult{GatewayTxnRef: payment.GatewayTxnRef, Skipped: 1}, nil
		})

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/webhooks/payments", req)
	h.HandlePayment(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleRefund_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRefund := mocks.NewMockRefundService(ctrl)
	h := NewWebhookHandler(nil, mockRefund)

	mockRefund.EXPECT().ProcessRefund(gomock.Any(), "VNP20260114123456", "student chargeback").Return(nil)

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/webhooks/refunds", dto.RefundWebhookRequest{
		GatewayTxnRef: "VNP20260114123456",
		Reason:        "student chargeback",
	})
	h.HandleRefund(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "REVERSED", data["status"])
}

func TestHandleRefund_AlreadyRefunded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRefund := mocks.NewMockRefundService(ctrl)
	h := NewWebhookHandler(nil, mockRefund)

	mockRefund.EXPECT().ProcessRefund(gomock.Any(), gomock.Any(), gomock.Any()).Return(apperror.ErrAlreadyRefunded())

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/webhooks/refunds", dto.RefundWebhookRequest{
		GatewayTxnRef: "VNP20260114123456",
		Reason:        "duplicate notification",
	})
	h.HandleRefund(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

// --- Payout Handler Tests ---

func validCreatePayout() dto.CreatePayoutRequest {
	return dto.CreatePayoutRequest{
		Amount:        100000,
		BankName:      "Vietcombank",
		BankAccount:   "0123456789",
		AccountHolder: "NGUYEN VAN A",
	}
}

func TestCreatePayout_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayout := mocks.NewMockPayoutService(ctrl)
	h := NewPayoutHandler(mockPayout)

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/payouts", validCreatePayout())
	actor := setActor(c, domain.RoleInstructor)

	requestID := uuid.New()
	mockPayout.EXPECT().CreateRequest(gomock.Any(), actor, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Actor, req ports.CreatePayoutRequest) (*domain.PayoutRequest, error) {
			assert.Equal(t, int64(100000), req.Amount)
			assert.Equal(t, "Vietcombank", req.Bank.BankName)
			return &domain.PayoutRequest{
				ID:           requestID,
				InstructorID: actor.ID,
				Amount:       req.Amount,
				Status:       domain.PayoutStatusPending,
				Bank:         req.Bank,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			}, nil
		})

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, requestID.String(), data["id"])
	assert.Equal(t, "PENDING", data["status"])
}

func TestCreatePayout_NoActor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayout := mocks.NewMockPayoutService(ctrl)
	h := NewPayoutHandler(mockPayout)

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/payouts", validCreatePayout())
	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreatePayout_BelowMinimum(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayout := mocks.NewMockPayoutService(ctrl)
	h := NewPayoutHandler(mockPayout)

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/payouts", validCreatePayout())
	setActor(c, domain.RoleInstructor)

	mockPayout.EXPECT().CreateRequest(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrBelowMinPayout(50000))

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VAL_002", resp["error_code"])
}

func TestDecidePayout_Approve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayout := mocks.NewMockPayoutService(ctrl)
	h := NewPayoutHandler(mockPayout)

	requestID := uuid.New()
	c, w := newJSONContext(t, http.MethodPost, "/api/v1/admin/payouts/"+requestID.String()+"/decision",
		dto.PayoutDecisionRequest{Approve: true})
	c.Params = gin.Params{{Key: "id", Value: requestID.String()}}
	actor := setActor(c, domain.RoleAdmin)

	mockPayout.EXPECT().Decide(gomock.Any(), actor, requestID, ports.PayoutDecision{Approve: true}).
		Return(&domain.PayoutRequest{
			ID:           requestID,
			InstructorID: uuid.New(),
			Amount:       100000,
			Status:       domain.PayoutStatusPaid,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}, nil)

	h.Decide(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "PAID", data["status"])
}

func TestDecidePayout_InvalidID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayout := mocks.NewMockPayoutService(ctrl)
	h := NewPayoutHandler(mockPayout)

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/admin/payouts/not-a-uuid/decision",
		dto.PayoutDecisionRequest{Approve: true})
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	setActor(c, domain.RoleAdmin)

	h.Decide(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelPayout_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayout := mocks.NewMockPayoutService(ctrl)
	h := NewPayoutHandler(mockPayout)

	requestID := uuid.New()
	c, w := newJSONContext(t, http.MethodPost, "/api/v1/payouts/"+requestID.String()+"/cancel", nil)
	c.Params = gin.Params{{Key: "id", Value: requestID.String()}}
	actor := setActor(c, domain.RoleInstructor)

	mockPayout.EXPECT().Cancel(gomock.Any(), actor, requestID).Return(&domain.PayoutRequest{
		ID:           requestID,
		InstructorID: actor.ID,
		Amount:       100000,
		Status:       domain.PayoutStatusCancelled,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}, nil)

	h.Cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListPayouts_WithStatusFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayout := mocks.NewMockPayoutService(ctrl)
	h := NewPayoutHandler(mockPayout)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/payouts?status=PENDING&page=2&page_size=10", nil)
	actor := setActor(c, domain.RoleInstructor)

	mockPayout.EXPECT().List(gomock.Any(), actor, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Actor, params ports.PayoutListParams) ([]domain.PayoutRequest, int64, error) {
			require.NotNil(t, params.Status)
			assert.Equal(t, domain.PayoutStatusPending, *params.Status)
			assert.Equal(t, 2, params.Page)
			assert.Equal(t, 10, params.PageSize)
			return []domain.PayoutRequest{{
				ID:           uuid.New(),
				InstructorID: actor.ID,
				Amount:       100000,
				Status:       domain.PayoutStatusPending,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			}}, 11, nil
		})

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(11), data["total"])
	assert.Equal(t, float64(2), data["total_pages"])
}

// --- Wallet Handler Tests ---

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReporting := mocks.NewMockReportingService(ctrl)
	h := NewWalletHandler(mockReporting, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	actor := setActor(c, domain.RoleInstructor)

	mockReporting.EXPECT().GetWalletBalance(gomock.Any(), actor.ID).Return(&ports.WalletBalance{
		Balance:          250000,
		TotalEarnings:    400000,
		TotalWithdrawn:   150000,
		PendingWithdraw:  50000,
		AvailableBalance: 200000,
	}, nil)

	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(250000), data["balance"])
	assert.Equal(t, float64(200000), data["available_balance"])
}

func TestListTransactions_TypeFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReporting := mocks.NewMockReportingService(ctrl)
	h := NewWalletHandler(mockReporting, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallet/transactions?type=EARNING", nil)
	actor := setActor(c, domain.RoleInstructor)

	mockReporting.EXPECT().ListWalletTransactions(gomock.Any(), actor, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Actor, params ports.LedgerListParams) ([]domain.WalletTransaction, int64, error) {
			assert.Equal(t, actor.ID, params.InstructorID)
			require.NotNil(t, params.Type)
			assert.Equal(t, domain.LedgerTypeEarning, *params.Type)
			return []domain.WalletTransaction{{
				ID:            uuid.New(),
				InstructorID:  actor.ID,
				Type:          domain.LedgerTypeEarning,
				Amount:        70000,
				BalanceAfter:  70000,
				ReferenceID:   uuid.New(),
				ReferenceType: domain.ReferenceTypeRevenue,
				CreatedAt:     time.Now(),
			}}, 1, nil
		})

	h.ListTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	entry := items[0].(map[string]interface{})
	assert.Equal(t, "EARNING", entry["type"])
	assert.Equal(t, float64(70000), entry["amount"])
}

func TestAdjust_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAdjust := mocks.NewMockAdjustmentService(ctrl)
	h := NewWalletHandler(nil, mockAdjust)

	instructorID := uuid.New()
	c, w := newJSONContext(t, http.MethodPost, "/api/v1/admin/wallets/"+instructorID.String()+"/adjustments",
		dto.AdjustmentRequest{Amount: -30000, Description: "clawback for disputed sale"})
	c.Params = gin.Params{{Key: "instructorId", Value: instructorID.String()}}
	actor := setActor(c, domain.RoleAdmin)

	mockAdjust.EXPECT().Adjust(gomock.Any(), actor, instructorID, int64(-30000), "clawback for disputed sale").
		Return(&domain.WalletTransaction{
			ID:            uuid.New(),
			InstructorID:  instructorID,
			Type:          domain.LedgerTypeAdjustment,
			Amount:        -30000,
			BalanceAfter:  40000,
			ReferenceID:   uuid.New(),
			ReferenceType: domain.ReferenceTypeAdjustment,
			Description:   "clawback for disputed sale",
			CreatedAt:     time.Now(),
		}, nil)

	h.Adjust(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ADJUSTMENT", data["type"])
	assert.Equal(t, float64(-30000), data["amount"])
}

func TestVerifyLedger_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReporting := mocks.NewMockReportingService(ctrl)
	h := NewWalletHandler(mockReporting, nil)

	instructorID := uuid.New()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/admin/wallets/"+instructorID.String()+"/verify", nil)
	c.Params = gin.Params{{Key: "instructorId", Value: instructorID.String()}}
	setActor(c, domain.RoleAdmin)

	mockReporting.EXPECT().VerifyLedger(gomock.Any(), instructorID).Return(&ports.LedgerVerification{
		InstructorID:  instructorID,
		Entries:       3,
		ChainIntact:   true,
		ReplayBalance: 40000,
		WalletBalance: 40000,
		Consistent:    true,
	}, nil)

	h.VerifyLedger(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["consistent"])
}

// --- Dashboard Handler Tests ---

func TestGetStats_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReporting := mocks.NewMockReportingService(ctrl)
	h := NewDashboardHandler(mockReporting)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard/stats", nil)
	setActor(c, domain.RoleAdmin)

	mockReporting.EXPECT().GetDashboardStats(gomock.Any()).Return(&ports.DashboardStats{
		Revenue: ports.RevenueStats{Records: 10, GrossRevenue: 1500000, InstructorEarning: 1050000, PlatformFee: 450000},
		Payouts: ports.PayoutStats{PendingCount: 2, PendingAmount: 200000},
		Wallets: ports.WalletTotals{Wallets: 4, Balance: 850000},
	}, nil)

	h.GetStats(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	revenue := data["revenue"].(map[string]interface{})
	assert.Equal(t, float64(1500000), revenue["GrossRevenue"])
}

func TestGetStats_ServiceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReporting := mocks.NewMockReportingService(ctrl)
	h := NewDashboardHandler(mockReporting)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard/stats", nil)
	setActor(c, domain.RoleAdmin)

	mockReporting.EXPECT().GetDashboardStats(gomock.Any()).
		Return(nil, apperror.ErrDatabaseError(errors.New("connection refused")))

	h.GetStats(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// --- Health Check Tests ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis", err: errors.New("connection refused")})(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
}
