package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/http/handlers/common"
	"github.com/ignatzorin/studgig-backend/internal/http/response"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/service"
)

// InteractionHandler обслуживает отклики на работы и запросы по навыкам и материалам.
type InteractionHandler struct {
	interactions *service.InteractionService
}

func NewInteractionHandler(interactions *service.InteractionService) *InteractionHandler {
	return &InteractionHandler{interactions: interactions}
}

// Submit POST /interactions
func (h *InteractionHandler) Submit(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	var req struct {
		Kind           string           `json:"kind" binding:"required"`
		SubjectID      uuid.UUID        `json:"subject_id" binding:"required"`
		CoverLetter    *string          `json:"cover_letter" binding:"omitempty,max=5000"`
		ProposedAmount *decimal.Decimal `json:"proposed_amount"`
		Message        *string          `json:"message" binding:"omitempty,max=5000"`
		Quantity       *int             `json:"quantity"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	interaction, err := h.interactions.Submit(c.Request.Context(), userID, service.SubmitInteractionInput{
		Kind:           req.Kind,
		SubjectID:      req.SubjectID,
		CoverLetter:    req.CoverLetter,
		ProposedAmount: req.ProposedAmount,
		Message:        req.Message,
		Quantity:       req.Quantity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, interaction)
}

// List GET /interactions?role=requester|owner
func (h *InteractionHandler) List(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	items, err := h.interactions.List(c.Request.Context(), userID, c.DefaultQuery("role", models.RoleRequester), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, items, len(items), limit, offset)
}

// Get GET /interactions/:id
func (h *InteractionHandler) Get(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	interaction, err := h.interactions.Get(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, interaction)
}

// UpdateStatus PUT /interactions/:id/status
// При принятии в ответе возвращается и созданная работа.
func (h *InteractionHandler) UpdateStatus(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	interaction, work, err := h.interactions.UpdateStatus(c.Request.Context(), id, userID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"interaction":     interaction,
		"work_assignment": work,
	})
}

// EnsureAssignment POST /interactions/:id/assignment
func (h *InteractionHandler) EnsureAssignment(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	work, err := h.interactions.EnsureAssignment(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, work)
}
