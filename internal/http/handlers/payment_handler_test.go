package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/studgig-backend/internal/http/middleware"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/payment"
	"github.com/ignatzorin/studgig-backend/internal/repository/memory"
	"github.com/ignatzorin/studgig-backend/internal/service"
)

type nopNotifier struct{}

func (nopNotifier) Notify(uuid.UUID, string, string, string, uuid.UUID, string) {}

func newPaymentHandler(t *testing.T) (*PaymentHandler, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	directory := service.NewDirectory(store, store, service.NewCacheService())
	ledger := service.NewLedgerService(store, payment.NewRegistry(), directory, nopNotifier{}, time.Second)
	return NewPaymentHandler(ledger), store
}

// asUser подставляет пользователя в контекст так же, как AuthMiddleware.
func asUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, userID)
		c.Next()
	}
}

func TestPaymentHandler_GetWallet_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newPaymentHandler(t)
	r := gin.New()
	r.GET("/wallet", handler.GetWallet)

	req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentHandler_GetWallet_CreatesEmptyWallet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newPaymentHandler(t)
	userID := uuid.New()
	r := gin.New()
	r.GET("/wallet", asUser(userID), handler.GetWallet)

	req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data models.Wallet `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, userID, body.Data.UserID)
	assert.True(t, body.Data.Balance.IsZero())
}

func TestPaymentHandler_Withdraw(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, store := newPaymentHandler(t)
	userID := uuid.New()
	_, err := store.AdjustBalance(context.Background(), &models.LedgerEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Description: "Пополнение",
		Amount:      decimal.NewFromInt(500),
		Kind:        models.EntryKindDeposit,
		Status:      models.EntryStatusCompleted,
	})
	require.NoError(t, err)

	r := gin.New()
	r.POST("/wallet/withdrawals", asUser(userID), handler.Withdraw)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"amount":`, http.StatusBadRequest},
		{"negative amount", `{"amount":"-5"}`, http.StatusBadRequest},
		{"below minimum", `{"amount":"50"}`, http.StatusBadRequest},
		{"insufficient funds", `{"amount":"800"}`, http.StatusUnprocessableEntity},
		{"ok", `{"amount":"150"}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/wallet/withdrawals", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}

	wallet, err := store.GetOrCreateWallet(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(350).Equal(wallet.Balance))
}

func TestPaymentHandler_Callback_UnknownGateway(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newPaymentHandler(t)
	r := gin.New()
	r.POST("/callbacks/:gateway/:event", handler.Callback)

	req := httptest.NewRequest(http.MethodPost, "/callbacks/nope/ipn", bytes.NewBufferString(`{}`))
	req.Header.Set(SignatureHeader, "x")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
