package handler

import (
	"revenue-ledger/internal/adapter/http/dto"
	"revenue-ledger/internal/adapter/http/middleware"
	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"
	"revenue-ledger/pkg/apperror"
	"revenue-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles instructor wallet endpoints.
type WalletHandler struct {
	reportingSvc  ports.ReportingService
	adjustmentSvc ports.AdjustmentService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(reportingSvc ports.ReportingService, adjustmentSvc ports.AdjustmentService) *WalletHandler {
	return &WalletHandler{reportingSvc: reportingSvc, adjustmentSvc: adjustmentSvc}
}

// GetBalance handles GET /api/v1/wallet.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balance, err := h.reportingSvc.GetWalletBalance(c.Request.Context(), actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, balance)
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, pageSize := pagination(c)
	params := ports.LedgerListParams{
		InstructorID: actor.ID,
		Page:         page,
		PageSize:     pageSize,
	}

	// Staff may inspect any instructor's ledger.
	if iid := c.Query("instructor_id"); iid != "" {
		id, err := uuid.Parse(iid)
		if err != nil {
			response.Error(c, apperror.Validation("invalid instructor_id"))
			return
		}
		params.InstructorID = id
	}
	if t := c.Query("type"); t != "" {
		entryType := domain.LedgerEntryType(t)
		params.Type = &entryType
	}

	entries, total, err := h.reportingSvc.ListWalletTransactions(c.Request.Context(), actor, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.FromLedgerEntry(&entries[i]))
	}

	response.OK(c, dto.LedgerListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: dto.TotalPages(total, pageSize),
	})
}

// Adjust handles POST /api/v1/admin/wallets/:instructorId/adjustments.
func (h *WalletHandler) Adjust(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	instructorID, err := uuid.Parse(c.Param("instructorId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid instructor id"))
		return
	}

	var req dto.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	entry, err := h.adjustmentSvc.Adjust(c.Request.Context(), actor, instructorID, req.Amount, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromLedgerEntry(entry))
}

// VerifyLedger handles GET /api/v1/admin/wallets/:instructorId/verify.
func (h *WalletHandler) VerifyLedger(c *gin.Context) {
	instructorID, err := uuid.Parse(c.Param("instructorId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid instructor id"))
		return
	}

	verification, err := h.reportingSvc.VerifyLedger(c.Request.Context(), instructorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, verification)
}
