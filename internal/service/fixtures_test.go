package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/payment"
	"github.com/ignatzorin/studgig-backend/internal/repository/memory"
)

type notification struct {
	UserID        uuid.UUID
	Title         string
	Kind          string
	ReferenceID   uuid.UUID
	ReferenceType string
}

// recordingNotifier запоминает уведомления вместо доставки.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) Notify(userID uuid.UUID, title, _ string, kind string, referenceID uuid.UUID, referenceType string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{
		UserID:        userID,
		Title:         title,
		Kind:          kind,
		ReferenceID:   referenceID,
		ReferenceType: referenceType,
	})
}

func (n *recordingNotifier) For(userID uuid.UUID) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification
	for _, e := range n.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// fakeProvider шлюз с HMAC-подписью и настраиваемым ответом.
type fakeProvider struct {
	name   string
	secret string
	url    string
	err    error
	delay  time.Duration

	mu       sync.Mutex
	requests []payment.InitiateRequest
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Initiate(ctx context.Context, req payment.InitiateRequest) (string, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if p.err != nil {
		return "", p.err
	}
	return p.url + "/" + req.TransactionID, nil
}

func (p *fakeProvider) VerifySignature(body []byte, signature string) bool {
	return hmac.Equal([]byte(p.sign(body)), []byte(signature))
}

func (p *fakeProvider) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(p.secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type testEnv struct {
	store     *memory.Store
	notifier  *recordingNotifier
	provider  *fakeProvider
	directory *Directory

	ledger       *LedgerService
	escrow       *EscrowService
	invoices     *InvoiceService
	works        *WorkAssignmentService
	interactions *InteractionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	notifier := &recordingNotifier{}
	provider := &fakeProvider{name: "kaspi", secret: "test-secret", url: "https://pay.example.com"}
	directory := NewDirectory(store, store, NewCacheService())

	escrow := NewEscrowService(store, notifier)
	invoices := NewInvoiceService(store, memory.NewSequencer(), directory, notifier, DefaultInvoiceDueDays)
	works := NewWorkAssignmentService(store, directory, invoices, escrow, notifier)

	return &testEnv{
		store:        store,
		notifier:     notifier,
		provider:     provider,
		directory:    directory,
		ledger:       NewLedgerService(store, payment.NewRegistry(provider), directory, notifier, time.Second),
		escrow:       escrow,
		invoices:     invoices,
		works:        works,
		interactions: NewInteractionService(store, directory, works, notifier),
	}
}

func (e *testEnv) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	e.store.PutUser(models.User{ID: id, Email: name + "@campus.test", DisplayName: name})
	return id
}

func (e *testEnv) subject(t *testing.T, kind valueobject.SubjectKind, ownerID uuid.UUID, title string, price int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	e.store.PutSubject(models.Subject{ID: id, Kind: kind, OwnerID: ownerID, Title: title, Price: decimal.NewFromInt(price)})
	return id
}

func (e *testEnv) fund(t *testing.T, userID uuid.UUID, amount int64) {
	t.Helper()
	_, err := e.ledger.AdjustBalance(context.Background(), userID, decimal.NewFromInt(amount), models.EntryKindDeposit, "Пополнение")
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	wallet, err := e.ledger.GetWallet(context.Background(), userID)
	require.NoError(t, err)
	return wallet.Balance
}

// acceptedJob создаёт работу, отклик исполнителя на неё и принимает его.
func (e *testEnv) acceptedJob(t *testing.T, price int64) (client, provider uuid.UUID, work *models.WorkAssignment) {
	t.Helper()
	ctx := context.Background()
	client = e.user(t, "poster")
	provider = e.user(t, "student")
	jobID := e.subject(t, valueobject.SubjectJob, client, "Лендинг для кафе", price)

	interaction, err := e.interactions.Submit(ctx, provider, SubmitInteractionInput{
		Kind:      string(valueobject.InteractionJobApplication),
		SubjectID: jobID,
	})
	require.NoError(t, err)

	_, work, err = e.interactions.UpdateStatus(ctx, interaction.ID, client, string(valueobject.InteractionStatusAccepted))
	require.NoError(t, err)
	require.NotNil(t, work)
	return client, provider, work
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
