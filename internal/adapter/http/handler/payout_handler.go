package handler

import (
	"strconv"

	"revenue-ledger/internal/adapter/http/dto"
	"revenue-ledger/internal/adapter/http/middleware"
	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"
	"revenue-ledger/pkg/apperror"
	"revenue-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PayoutHandler handles payout request endpoints.
type PayoutHandler struct {
	payoutSvc ports.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler.
func NewPayoutHandler(payoutSvc ports.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutSvc: payoutSvc}
}

// Create handles POST /api/v1/payouts.
func (h *PayoutHandler) Create(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.payoutSvc.CreateRequest(c.Request.Context(), actor, ports.CreatePayoutRequest{
		Amount: req.Amount,
		Bank: domain.BankDetails{
			BankName:      req.BankName,
			BankAccount:   req.BankAccount,
			AccountHolder: req.AccountHolder,
		},
		Note: req.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromPayout(result))
}

// Get handles GET /api/v1/payouts/:id.
func (h *PayoutHandler) Get(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payout request id"))
		return
	}

	result, err := h.payoutSvc.Get(c.Request.Context(), actor, requestID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromPayout(result))
}

// List handles GET /api/v1/payouts and GET /api/v1/admin/payouts.
// Non-staff actors only ever see their own requests.
func (h *PayoutHandler) List(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, pageSize := pagination(c)
	params := ports.PayoutListParams{Page: page, PageSize: pageSize}

	if s := c.Query("status"); s != "" {
		status := domain.PayoutStatus(s)
		params.Status = &status
	}
	if iid := c.Query("instructor_id"); iid != "" {
		id, err := uuid.Parse(iid)
		if err != nil {
			response.Error(c, apperror.Validation("invalid instructor_id"))
			return
		}
		params.InstructorID = &id
	}

	requests, total, err := h.payoutSvc.List(c.Request.Context(), actor, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.PayoutResponse, 0, len(requests))
	for i := range requests {
		items = append(items, dto.FromPayout(&requests[i]))
	}

	response.OK(c, dto.PayoutListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: dto.TotalPages(total, pageSize),
	})
}

// Cancel handles POST /api/v1/payouts/:id/cancel.
func (h *PayoutHandler) Cancel(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payout request id"))
		return
	}

	result, err := h.payoutSvc.Cancel(c.Request.Context(), actor, requestID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromPayout(result))
}

// Decide handles POST /api/v1/admin/payouts/:id/decision.
func (h *PayoutHandler) Decide(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payout request id"))
		return
	}

	var req dto.PayoutDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.payoutSvc.Decide(c.Request.Context(), actor, requestID, ports.PayoutDecision{
		Approve:         req.Approve,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromPayout(result))
}

// pagination reads page/page_size query params with bounds.
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
