package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/http/handlers/common"
	"github.com/ignatzorin/studgig-backend/internal/http/response"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
	"github.com/ignatzorin/studgig-backend/internal/service"
)

// EscrowHandler обслуживает маршруты сделок.
type EscrowHandler struct {
	escrow *service.EscrowService
}

func NewEscrowHandler(escrow *service.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrow: escrow}
}

// Create POST /escrow
// Клиентом сделки всегда выступает текущий пользователь.
func (h *EscrowHandler) Create(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	var req struct {
		ProviderID  uuid.UUID       `json:"provider_id" binding:"required"`
		Amount      decimal.Decimal `json:"amount"`
		SourceKind  *string         `json:"source_kind"`
		SourceID    *uuid.UUID      `json:"source_id"`
		Description string          `json:"description" binding:"max=500"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	input := service.CreateHoldInput{
		ClientID:    userID,
		ProviderID:  req.ProviderID,
		Amount:      req.Amount,
		SourceID:    req.SourceID,
		Description: req.Description,
	}
	if req.SourceKind != nil {
		kind := valueobject.SubjectKind(*req.SourceKind)
		switch kind {
		case valueobject.SubjectJob, valueobject.SubjectSkill, valueobject.SubjectMaterial:
		default:
			response.Error(c, apperror.New(apperror.ErrCodeValidation, "некорректный тип источника"))
			return
		}
		input.SourceKind = &kind
	}

	hold, err := h.escrow.CreateHold(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, hold)
}

// List GET /escrow
func (h *EscrowHandler) List(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	holds, err := h.escrow.ListHolds(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, holds, len(holds), limit, offset)
}

// Get GET /escrow/:id
func (h *EscrowHandler) Get(c *gin.Context) {
	h.act(c, h.escrow.GetHold)
}

// Start POST /escrow/:id/start
func (h *EscrowHandler) Start(c *gin.Context) {
	h.act(c, h.escrow.MarkInProgress)
}

// Complete POST /escrow/:id/complete
func (h *EscrowHandler) Complete(c *gin.Context) {
	h.act(c, h.escrow.MarkCompleted)
}

// Release POST /escrow/:id/release
func (h *EscrowHandler) Release(c *gin.Context) {
	h.act(c, h.escrow.Release)
}

// Dispute POST /escrow/:id/dispute
func (h *EscrowHandler) Dispute(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required,max=2000"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	h.act(c, func(ctx context.Context, holdID, userID uuid.UUID) (*models.EscrowHold, error) {
		return h.escrow.Dispute(ctx, holdID, userID, req.Reason)
	})
}

func (h *EscrowHandler) act(c *gin.Context, fn func(ctx context.Context, holdID, userID uuid.UUID) (*models.EscrowHold, error)) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	holdID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	hold, err := fn(c.Request.Context(), holdID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, hold)
}
