package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/studgig-backend/internal/http/handlers/common"
	"github.com/ignatzorin/studgig-backend/internal/http/response"
	"github.com/ignatzorin/studgig-backend/internal/service"
)

// InvoiceHandler обслуживает маршруты счетов.
type InvoiceHandler struct {
	invoices *service.InvoiceService
}

func NewInvoiceHandler(invoices *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// List GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	invoices, err := h.invoices.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, invoices, len(invoices), limit, offset)
}

// Get GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoices.Get(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, invoice)
}

// UpdateStatus PUT /invoices/:id/status
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
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

	invoice, err := h.invoices.UpdateStatus(c.Request.Context(), id, userID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, invoice)
}
