package router

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

	"github.com/ignatzorin/studgig-backend/internal/config"
	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/http/handlers"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/payment"
	"github.com/ignatzorin/studgig-backend/internal/repository/memory"
	"github.com/ignatzorin/studgig-backend/internal/service"
	"github.com/ignatzorin/studgig-backend/internal/ws"
)

const gatewaySecret = "gateway-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiEnv struct {
	engine *gin.Engine
	store  *memory.Store
	tokens *service.TokenManager
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"gateway_url":"https://pay.example.com/checkout"}`))
	}))
	t.Cleanup(gateway.Close)

	cfg := &config.Config{
		Env:                    "test",
		AllowedOrigins:         []string{"http://localhost:3000"},
		RateLimitLimit:         1000,
		RateLimitPeriod:        time.Minute,
		PaymentCallbackBaseURL: "http://localhost:8080/api/payments/callbacks",
	}

	store := memory.NewStore()
	notifications := memory.NewNotificationStore()

	hub := ws.NewHub(ctx)
	go hub.Run()
	dispatcher := service.NewNotificationDispatcher(notifications, hub, 64, 1)
	dispatcher.Start(ctx)

	directory := service.NewDirectory(store, store, service.NewCacheService())
	providers := payment.NewRegistry(payment.NewGatewayClient(gateway.Client(), config.GatewayConfig{
		Name:    "kaspi",
		BaseURL: gateway.URL,
		Secret:  gatewaySecret,
	}, cfg.PaymentCallbackBaseURL))

	ledger := service.NewLedgerService(store, providers, directory, dispatcher, time.Second)
	escrow := service.NewEscrowService(store, dispatcher)
	invoices := service.NewInvoiceService(store, memory.NewSequencer(), directory, dispatcher, service.DefaultInvoiceDueDays)
	works := service.NewWorkAssignmentService(store, directory, invoices, escrow, dispatcher)
	interactions := service.NewInteractionService(store, directory, works, dispatcher)
	tokens := service.NewTokenManager("router-test-secret", time.Hour)

	engine := SetupRouter(cfg, tokens, Handlers{
		Health:       handlers.NewHealthHandler(nil, config.StorageDriverMemory),
		Payment:      handlers.NewPaymentHandler(ledger),
		Escrow:       handlers.NewEscrowHandler(escrow),
		Interaction:  handlers.NewInteractionHandler(interactions),
		Work:         handlers.NewWorkAssignmentHandler(works),
		Invoice:      handlers.NewInvoiceHandler(invoices),
		Notification: handlers.NewNotificationHandler(service.NewNotificationService(notifications)),
		WS:           handlers.NewWSHandler(hub, tokens, cfg.AllowedOrigins),
	})

	return &apiEnv{engine: engine, store: store, tokens: tokens}
}

func (e *apiEnv) user(t *testing.T, name string) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	e.store.PutUser(models.User{ID: id, Email: name + "@campus.test", DisplayName: name})
	token, err := e.tokens.GenerateAccess(id, "student")
	require.NoError(t, err)
	return id, token
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (e *apiEnv) callback(t *testing.T, event string, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/callbacks/kaspi/"+event, bytes.NewReader(body))
	req.Header.Set(handlers.SignatureHeader, signature)
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func (e *apiEnv) balance(t *testing.T, token string) decimal.Decimal {
	t.Helper()
	w, env := e.do(t, http.MethodGet, "/api/wallet", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	return decode[models.Wallet](t, env.Data).Balance
}

func TestRouter_Health(t *testing.T) {
	e := newAPIEnv(t)

	w, _ := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storage":"memory"`)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	e := newAPIEnv(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/wallet"},
		{http.MethodPost, "/api/escrow"},
		{http.MethodGet, "/api/interactions"},
		{http.MethodGet, "/api/work-assignments"},
		{http.MethodGet, "/api/invoices"},
		{http.MethodGet, "/api/notifications/unread/count"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w, env := e.do(t, p.method, p.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
		})
	}

	w, _ := e.do(t, http.MethodGet, "/api/wallet", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_InvalidIDIsBadRequest(t *testing.T) {
	e := newAPIEnv(t)
	_, token := e.user(t, "alice")

	w, _ := e.do(t, http.MethodGet, "/api/escrow/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_DepositThroughGateway(t *testing.T) {
	e := newAPIEnv(t)
	_, token := e.user(t, "alice")

	w, env := e.do(t, http.MethodPost, "/api/wallet/deposits", token, map[string]string{
		"amount":  "1500",
		"gateway": "kaspi",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode[service.DepositResult](t, env.Data)
	assert.Equal(t, "https://pay.example.com/checkout", result.GatewayURL)
	assert.Equal(t, models.EntryStatusPending, result.Entry.Status)
	assert.True(t, e.balance(t, token).IsZero())

	body := []byte(`{"transaction_id":"` + result.Entry.ID.String() + `","amount":"1500.00","status":"VALID"}`)

	w = e.callback(t, payment.EventIPN, body, "deadbeef")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.True(t, e.balance(t, token).IsZero())

	for i := 0; i < 2; i++ {
		w = e.callback(t, payment.EventIPN, body, payment.Sign(body, gatewaySecret))
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.True(t, decimal.NewFromInt(1500).Equal(e.balance(t, token)))

	w, env = e.do(t, http.MethodGet, "/api/wallet/transactions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]models.LedgerEntry](t, env.Data)
	require.Len(t, entries, 1)
	assert.Equal(t, models.EntryStatusCompleted, entries[0].Status)
}

func TestRouter_UnknownGatewayDeposit(t *testing.T) {
	e := newAPIEnv(t)
	_, token := e.user(t, "alice")

	w, env := e.do(t, http.MethodPost, "/api/wallet/deposits", token, map[string]string{
		"amount":  "100",
		"gateway": "paypal",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

// Полный цикл: отклик, принятие, резерв, завершение, счёт и выплата.
func TestRouter_GigLifecycle(t *testing.T) {
	e := newAPIEnv(t)
	clientID, clientToken := e.user(t, "poster")
	providerID, providerToken := e.user(t, "student")

	jobID := uuid.New()
	e.store.PutSubject(models.Subject{
		ID:      jobID,
		Kind:    valueobject.SubjectJob,
		OwnerID: clientID,
		Title:   "Лендинг для кафе",
		Price:   decimal.NewFromInt(1200),
	})
	_, err := e.store.AdjustBalance(context.Background(), &models.LedgerEntry{
		ID:          uuid.New(),
		UserID:      clientID,
		Description: "Пополнение",
		Amount:      decimal.NewFromInt(1500),
		Kind:        models.EntryKindDeposit,
		Status:      models.EntryStatusCompleted,
	})
	require.NoError(t, err)

	w, env := e.do(t, http.MethodPost, "/api/interactions", providerToken, map[string]any{
		"kind":       string(valueobject.InteractionJobApplication),
		"subject_id": jobID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	interaction := decode[models.Interaction](t, env.Data)

	w, _ = e.do(t, http.MethodPost, "/api/interactions", providerToken, map[string]any{
		"kind":       string(valueobject.InteractionJobApplication),
		"subject_id": jobID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = e.do(t, http.MethodPut, "/api/interactions/"+interaction.ID.String()+"/status", providerToken, map[string]string{
		"status": string(valueobject.InteractionStatusAccepted),
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = e.do(t, http.MethodPut, "/api/interactions/"+interaction.ID.String()+"/status", clientToken, map[string]string{
		"status": string(valueobject.InteractionStatusAccepted),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accepted := decode[struct {
		Interaction models.Interaction     `json:"interaction"`
		Work        *models.WorkAssignment `json:"work_assignment"`
	}](t, env.Data)
	require.NotNil(t, accepted.Work)
	assert.Equal(t, providerID, accepted.Work.ProviderID)
	assert.Equal(t, clientID, accepted.Work.ClientID)
	workPath := "/api/work-assignments/" + accepted.Work.ID.String()

	w, env = e.do(t, http.MethodPost, workPath+"/fund", clientToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	funded := decode[models.WorkAssignment](t, env.Data)
	require.NotNil(t, funded.EscrowHoldID)
	assert.True(t, decimal.NewFromInt(300).Equal(e.balance(t, clientToken)))

	w, _ = e.do(t, http.MethodPut, workPath+"/status", providerToken, map[string]string{
		"status": string(valueobject.WorkStatusCompleted),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = e.do(t, http.MethodGet, "/api/invoices", providerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	invoices := decode[[]models.Invoice](t, env.Data)
	require.Len(t, invoices, 1)
	assert.True(t, decimal.NewFromInt(1200).Equal(invoices[0].Amount))
	assert.Equal(t, valueobject.InvoiceStatusPending, invoices[0].Status)

	holdPath := "/api/escrow/" + funded.EscrowHoldID.String()
	w, _ = e.do(t, http.MethodPost, holdPath+"/release", providerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = e.do(t, http.MethodPost, holdPath+"/release", clientToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, valueobject.EscrowStatusReleased, decode[models.EscrowHold](t, env.Data).Status)
	assert.True(t, decimal.NewFromInt(1200).Equal(e.balance(t, providerToken)))

	w, _ = e.do(t, http.MethodPost, holdPath+"/release", clientToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = e.do(t, http.MethodPut, "/api/invoices/"+invoices[0].ID.String()+"/status", providerToken, map[string]string{
		"status": string(valueobject.InvoiceStatusPaid),
	})
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Eventually(t, func() bool {
		w, env := e.do(t, http.MethodGet, "/api/notifications/unread/count", providerToken, nil)
		if w.Code != http.StatusOK {
			return false
		}
		return decode[struct {
			Count int `json:"count"`
		}](t, env.Data).Count > 0
	}, 2*time.Second, 20*time.Millisecond)

	w, _ = e.do(t, http.MethodPut, "/api/notifications/read-all", providerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_EscrowDispute(t *testing.T) {
	e := newAPIEnv(t)
	clientID, clientToken := e.user(t, "poster")
	providerID, providerToken := e.user(t, "student")

	_, err := e.store.AdjustBalance(context.Background(), &models.LedgerEntry{
		ID:          uuid.New(),
		UserID:      clientID,
		Description: "Пополнение",
		Amount:      decimal.NewFromInt(500),
		Kind:        models.EntryKindDeposit,
		Status:      models.EntryStatusCompleted,
	})
	require.NoError(t, err)

	w, env := e.do(t, http.MethodPost, "/api/escrow", clientToken, map[string]any{
		"provider_id": providerID,
		"amount":      "400",
		"description": "Конспекты по матанализу",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	hold := decode[models.EscrowHold](t, env.Data)
	holdPath := "/api/escrow/" + hold.ID.String()

	w, _ = e.do(t, http.MethodPost, holdPath+"/start", providerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = e.do(t, http.MethodPost, holdPath+"/dispute", clientToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = e.do(t, http.MethodPost, holdPath+"/dispute", clientToken, map[string]string{"reason": "работа не сдана"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, valueobject.EscrowStatusDisputed, decode[models.EscrowHold](t, env.Data).Status)

	w, _ = e.do(t, http.MethodPost, holdPath+"/release", clientToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, decimal.NewFromInt(100).Equal(e.balance(t, clientToken)))
	assert.True(t, e.balance(t, providerToken).IsZero())

	w, env = e.do(t, http.MethodGet, "/api/escrow", providerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.EscrowHold](t, env.Data), 1)
}
