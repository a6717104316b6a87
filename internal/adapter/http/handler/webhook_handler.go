package handler

import (
	"revenue-ledger/internal/adapter/http/dto"
	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"
	"revenue-ledger/pkg/apperror"
	"revenue-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookHandler handles payment gateway callbacks.
type WebhookHandler struct {
	distributionSvc ports.DistributionService
	refundSvc       ports.RefundService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(distributionSvc ports.DistributionService, refundSvc ports.RefundService) *WebhookHandler {
	return &WebhookHandler{distributionSvc: distributionSvc, refundSvc: refundSvc}
}

// HandlePayment handles POST /api/v1/webhooks/payments.
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	var req dto.PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	payment, err := toPaymentConfirmation(req)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.distributionSvc.DistributeRevenue(c.Request.Context(), payment)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromDistributionResult(result))
}

// HandleRefund handles POST /api/v1/webhooks/refunds.
func (h *WebhookHandler) HandleRefund(c *gin.Context) {
	var req dto.RefundWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	if err := h.refundSvc.ProcessRefund(c.Request.Context(), req.GatewayTxnRef, req.Reason); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"gateway_txn_ref": req.GatewayTxnRef, "status": "REVERSED"})
}

// toPaymentConfirmation converts the webhook payload to the domain input.
func toPaymentConfirmation(req dto.PaymentWebhookRequest) (domain.PaymentConfirmation, error) {
	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		return domain.PaymentConfirmation{}, err
	}
	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		return domain.PaymentConfirmation{}, err
	}

	items := make([]domain.OrderItem, 0, len(req.OrderItems))
	for _, it := range req.OrderItems {
		courseID, err := uuid.Parse(it.CourseID)
		if err != nil {
			return domain.PaymentConfirmation{}, err
		}
		enrollmentID, err := uuid.Parse(it.EnrollmentID)
		if err != nil {
			return domain.PaymentConfirmation{}, err
		}
		// An unresolvable instructor arrives as an empty string; keep the
		// zero UUID so the distributor can skip the item.
		instructorID := uuid.Nil
		if it.InstructorID != "" {
			instructorID, err = uuid.Parse(it.InstructorID)
			if err != nil {
				return domain.PaymentConfirmation{}, err
			}
		}
		items = append(items, domain.OrderItem{
			CourseID:          courseID,
			EnrollmentID:      enrollmentID,
			InstructorID:      instructorID,
			Price:             it.Price,
			InstructorPercent: it.InstructorPercent,
		})
	}

	return domain.PaymentConfirmation{
		PaymentID:     paymentID,
		StudentID:     studentID,
		OrderItems:    items,
		GatewayTxnRef: req.GatewayTxnRef,
		GatewayTxnNo:  req.GatewayTxnNo,
		GatewayCode:   req.GatewayCode,
		GatewayAmount: req.GatewayAmount,
		OrderInfo:     req.OrderInfo,
	}, nil
}
