package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/repository"
)

func deposit(t *testing.T, store *Store, userID uuid.UUID, amount int64) {
	t.Helper()
	_, err := store.AdjustBalance(context.Background(), &models.LedgerEntry{
		UserID: userID, Amount: decimal.NewFromInt(amount),
		Kind: models.EntryKindDeposit, Status: models.EntryStatusCompleted,
	})
	require.NoError(t, err)
}

func TestStore_AdjustBalance_NeverNegative(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	userID := uuid.New()
	deposit(t, store, userID, 100)

	_, err := store.AdjustBalance(ctx, &models.LedgerEntry{
		UserID: userID, Amount: decimal.NewFromInt(-150),
		Kind: models.EntryKindWithdrawal, Status: models.EntryStatusPending,
	})
	assert.ErrorIs(t, err, repository.ErrInsufficientFunds)

	wallet, err := store.GetOrCreateWallet(ctx, userID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(100)))

	entries, err := store.ListEntries(ctx, userID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_ConcurrentDebits_KeepBalanceNonNegative(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	userID := uuid.New()
	deposit(t, store, userID, 1000)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AdjustBalance(ctx, &models.LedgerEntry{
				UserID: userID, Amount: decimal.NewFromInt(-30),
				Kind: models.EntryKindWithdrawal, Status: models.EntryStatusPending,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	wallet, err := store.GetOrCreateWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 33, succeeded)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(10)))
}

func TestStore_ReleaseHold_ExactlyOnceUnderRace(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	clientID, providerID := uuid.New(), uuid.New()
	deposit(t, store, clientID, 500)

	hold := &models.EscrowHold{ClientID: clientID, ProviderID: providerID, Amount: decimal.NewFromInt(200)}
	require.NoError(t, store.CreateHold(ctx, hold))

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		successes    int
		invalidState int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ReleaseHold(ctx, hold.ID)
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				successes++
			case repository.ErrInvalidState:
				invalidState++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 9, invalidState)

	provider, _ := store.GetOrCreateWallet(ctx, providerID)
	client, _ := store.GetOrCreateWallet(ctx, clientID)
	assert.True(t, provider.Balance.Equal(decimal.NewFromInt(200)))
	assert.True(t, client.Balance.Equal(decimal.NewFromInt(300)))
}

func TestStore_DisputeHold_KeepsFundsImmobilized(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	clientID, providerID := uuid.New(), uuid.New()
	deposit(t, store, clientID, 300)

	hold := &models.EscrowHold{ClientID: clientID, ProviderID: providerID, Amount: decimal.NewFromInt(100)}
	require.NoError(t, store.CreateHold(ctx, hold))

	disputed, err := store.DisputeHold(ctx, hold.ID, "работа не сдана")
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusDisputed, disputed.Status)

	_, err = store.ReleaseHold(ctx, hold.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidState)

	entries, err := store.ListEntries(ctx, clientID, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, models.EntryKindPayment, entries[0].Kind)
	assert.Equal(t, models.EntryStatusPending, entries[0].Status)

	client, _ := store.GetOrCreateWallet(ctx, clientID)
	assert.True(t, client.Balance.Equal(decimal.NewFromInt(200)))
}

func TestStore_HoldEntryDescriptions(t *testing.T) {
	tests := []struct {
		name        string
		description string
		escrow      string
		release     string
	}{
		{"with description", "Курсовая", "Заморозка средств: Курсовая", "Получение оплаты: Курсовая"},
		{"empty description", "", "Заморозка средств", "Получение оплаты"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			ctx := context.Background()
			clientID, providerID := uuid.New(), uuid.New()
			deposit(t, store, clientID, 100)

			hold := &models.EscrowHold{ClientID: clientID, ProviderID: providerID, Amount: decimal.NewFromInt(40), Description: tt.description}
			require.NoError(t, store.CreateHold(ctx, hold))
			_, err := store.ReleaseHold(ctx, hold.ID)
			require.NoError(t, err)

			clientEntries, err := store.ListEntries(ctx, clientID, 10, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.escrow, clientEntries[0].Description)

			providerEntries, err := store.ListEntries(ctx, providerID, 10, 0)
			require.NoError(t, err)
			require.Len(t, providerEntries, 1)
			assert.Equal(t, tt.release, providerEntries[0].Description)
		})
	}
}

func TestStore_RejectedEntryLeavesBalanceUntouched(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	userID := uuid.New()
	ref := uuid.NewString()
	payout := func() *models.LedgerEntry {
		return &models.LedgerEntry{
			UserID: userID, Amount: decimal.NewFromInt(-20),
			Kind: models.EntryKindWithdrawal, Status: models.EntryStatusPending,
			ReferenceID: models.StringPtr(ref), ReferenceType: models.StringPtr(models.ReferenceTypePayout),
		}
	}
	deposit(t, store, userID, 100)

	_, err := store.AdjustBalance(ctx, payout())
	require.NoError(t, err)
	_, err = store.AdjustBalance(ctx, payout())
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)

	_, err = store.AdjustBalance(ctx, &models.LedgerEntry{
		UserID: userID, Amount: decimal.NewFromInt(5),
		Kind: "bogus", Status: models.EntryStatusCompleted,
	})
	assert.ErrorIs(t, err, repository.ErrInvalidState)

	wallet, err := store.GetOrCreateWallet(ctx, userID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(80)))

	entries, err := store.ListEntries(ctx, userID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStore_ReconcileDeposit_Idempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	userID := uuid.New()

	entry := &models.LedgerEntry{
		ID: uuid.New(), UserID: userID, Amount: decimal.NewFromInt(250),
		Kind: models.EntryKindDeposit, Status: models.EntryStatusPending,
	}
	entry.ReferenceID = models.StringPtr(entry.ID.String())
	require.NoError(t, store.AppendEntry(ctx, entry))

	_, applied, err := store.ReconcileByReference(ctx, *entry.ReferenceID, models.EntryStatusCompleted)
	require.NoError(t, err)
	assert.True(t, applied)

	_, applied, err = store.ReconcileByReference(ctx, *entry.ReferenceID, models.EntryStatusCompleted)
	require.NoError(t, err)
	assert.False(t, applied)

	_, applied, err = store.ReconcileByReference(ctx, *entry.ReferenceID, models.EntryStatusFailed)
	require.NoError(t, err)
	assert.False(t, applied)

	wallet, _ := store.GetOrCreateWallet(ctx, userID)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(250)))
}

func TestStore_ReconcileUnknownReference(t *testing.T) {
	store := NewStore()
	_, _, err := store.ReconcileByReference(context.Background(), uuid.NewString(), models.EntryStatusCompleted)
	assert.ErrorIs(t, err, repository.ErrUnknownReference)
}

func TestStore_ReconcileFailedWithdrawal_Refunds(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	userID := uuid.New()
	deposit(t, store, userID, 500)

	entry := &models.LedgerEntry{
		ID: uuid.New(), UserID: userID, Amount: decimal.NewFromInt(-200),
		Kind: models.EntryKindWithdrawal, Status: models.EntryStatusPending,
		ReferenceType: models.StringPtr(models.ReferenceTypePayout),
	}
	entry.ReferenceID = models.StringPtr(entry.ID.String())
	_, err := store.AdjustBalance(ctx, entry)
	require.NoError(t, err)

	_, applied, err := store.ReconcileByReference(ctx, entry.ID.String(), models.EntryStatusFailed)
	require.NoError(t, err)
	assert.True(t, applied)

	wallet, _ := store.GetOrCreateWallet(ctx, userID)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(500)))

	entries, _ := store.ListEntries(ctx, userID, 10, 0)
	assert.Len(t, entries, 3)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(200)))
}

func TestStore_AttachHold_OnlyOnce(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	clientID, providerID := uuid.New(), uuid.New()
	deposit(t, store, clientID, 1000)

	work := &models.WorkAssignment{
		InteractionID: uuid.New(), ProviderID: providerID, ClientID: clientID,
		Status: valueobject.WorkStatusInProgress,
	}
	work.SetSubject(valueobject.SubjectJob, uuid.New())
	created, err := store.CreateAssignment(ctx, work)
	require.NoError(t, err)
	require.True(t, created)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		attached int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AttachHold(ctx, work.ID, &models.EscrowHold{
				ClientID: clientID, ProviderID: providerID, Amount: decimal.NewFromInt(100),
			})
			if err == nil {
				mu.Lock()
				attached++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, attached)
	client, _ := store.GetOrCreateWallet(ctx, clientID)
	assert.True(t, client.Balance.Equal(decimal.NewFromInt(900)))
}

func TestStore_CreateAssignment_IdempotentPerInteraction(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	interactionID := uuid.New()

	first := &models.WorkAssignment{InteractionID: interactionID, Status: valueobject.WorkStatusInProgress}
	created, err := store.CreateAssignment(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	second := &models.WorkAssignment{InteractionID: interactionID, Status: valueobject.WorkStatusInProgress}
	created, err = store.CreateAssignment(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestSequencer_ConcurrentNextIsUnique(t *testing.T) {
	seq := NewSequencer()
	ctx := context.Background()

	const n = 100
	values := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := seq.Next(ctx, 2026)
			if err == nil {
				values <- v
			}
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int64]struct{})
	for v := range values {
		seen[v] = struct{}{}
	}
	assert.Len(t, seen, n)

	next, err := seq.Next(ctx, 2027)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
}

func TestNotificationStore(t *testing.T) {
	store := NewNotificationStore()
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, store.Create(ctx, &models.Notification{UserID: userID, Title: "a"}))
	second := &models.Notification{UserID: userID, Title: "b"}
	require.NoError(t, store.Create(ctx, second))

	count, err := store.CountUnread(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.ErrorIs(t, store.MarkAsRead(ctx, second.ID, uuid.New()), repository.ErrNotFound)
	require.NoError(t, store.MarkAsRead(ctx, second.ID, userID))

	unread, err := store.List(ctx, userID, 10, 0, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "a", unread[0].Title)

	require.NoError(t, store.MarkAllAsRead(ctx, userID))
	count, _ = store.CountUnread(ctx, userID)
	assert.Equal(t, 0, count)
}
