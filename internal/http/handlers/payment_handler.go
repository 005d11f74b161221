package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/http/handlers/common"
	"github.com/ignatzorin/studgig-backend/internal/http/response"
	"github.com/ignatzorin/studgig-backend/internal/service"
)

// maxCallbackBody ограничение тела обратного вызова шлюза.
const maxCallbackBody = 64 * 1024

// SignatureHeader заголовок с HMAC-подписью обратного вызова.
const SignatureHeader = "X-Signature"

// PaymentHandler кошелёк пользователя и обратные вызовы платёжных шлюзов.
type PaymentHandler struct {
	ledger *service.LedgerService
}

func NewPaymentHandler(ledger *service.LedgerService) *PaymentHandler {
	return &PaymentHandler{ledger: ledger}
}

// GetWallet GET /wallet
func (h *PaymentHandler) GetWallet(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	wallet, err := h.ledger.GetWallet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, wallet)
}

// ListTransactions GET /wallet/transactions
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	entries, err := h.ledger.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, entries, len(entries), limit, offset)
}

// Deposit POST /wallet/deposits
func (h *PaymentHandler) Deposit(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	var req struct {
		Amount  decimal.Decimal `json:"amount"`
		Gateway string          `json:"gateway" binding:"required"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.ledger.InitiateDeposit(c.Request.Context(), userID, req.Amount, req.Gateway)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Withdraw POST /wallet/withdrawals
func (h *PaymentHandler) Withdraw(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	entry, err := h.ledger.Withdraw(c.Request.Context(), userID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Callback POST /payments/callbacks/:gateway/:event
// Неизвестные ссылки подтверждаются 200, чтобы шлюз не повторял доставку.
func (h *PaymentHandler) Callback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		response.BadRequest(c, "не удалось прочитать тело запроса")
		return
	}

	err = h.ledger.HandleCallback(c.Request.Context(), c.Param("gateway"), c.Param("event"), body, c.GetHeader(SignatureHeader))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Response{Success: true})
}
