package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/http/handlers/common"
	"github.com/ignatzorin/studgig-backend/internal/http/response"
	"github.com/ignatzorin/studgig-backend/internal/service"
)

// WorkAssignmentHandler обслуживает маршруты работ.
type WorkAssignmentHandler struct {
	works *service.WorkAssignmentService
}

func NewWorkAssignmentHandler(works *service.WorkAssignmentService) *WorkAssignmentHandler {
	return &WorkAssignmentHandler{works: works}
}

// List GET /work-assignments
func (h *WorkAssignmentHandler) List(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	works, err := h.works.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, works, len(works), limit, offset)
}

// Get GET /work-assignments/:id
func (h *WorkAssignmentHandler) Get(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	work, err := h.works.Get(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, work)
}

// UpdateStatus PUT /work-assignments/:id/status
func (h *WorkAssignmentHandler) UpdateStatus(c *gin.Context) {
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

	work, err := h.works.UpdateStatus(c.Request.Context(), id, userID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, work)
}

// Fund POST /work-assignments/:id/fund
// Тело необязательно; без суммы резервируется цена объявления.
func (h *WorkAssignmentHandler) Fund(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Amount *decimal.Decimal `json:"amount"`
	}
	if c.Request.ContentLength > 0 && !common.BindJSON(c, &req) {
		return
	}

	work, err := h.works.Fund(c.Request.Context(), id, userID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, work)
}

// GenerateInvoice POST /work-assignments/:id/invoice
func (h *WorkAssignmentHandler) GenerateInvoice(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Amount *decimal.Decimal `json:"amount"`
	}
	if c.Request.ContentLength > 0 && !common.BindJSON(c, &req) {
		return
	}

	invoice, err := h.works.GenerateInvoice(c.Request.Context(), id, userID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, invoice)
}
