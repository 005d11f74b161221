package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
)

func TestWorkAssignmentService_CompleteCreatesInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, provider, work := env.acceptedJob(t, 1200)

	assert.Equal(t, provider, work.ProviderID)
	assert.Equal(t, client, work.ClientID)
	assert.Equal(t, valueobject.WorkStatusInProgress, work.Status)
	assert.Nil(t, work.EndDate)

	completed, err := env.works.UpdateStatus(ctx, work.ID, provider, string(valueobject.WorkStatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, valueobject.WorkStatusCompleted, completed.Status)
	assert.NotNil(t, completed.EndDate)

	invoices, err := env.invoices.List(ctx, provider, 10, 0)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.True(t, dec("1200").Equal(invoices[0].Amount))
	assert.Equal(t, "Лендинг для кафе", invoices[0].Title)
	assert.Equal(t, "poster", invoices[0].ClientName)
	assert.Equal(t, work.ID, invoices[0].WorkAssignmentID)

	// Повторное выставление возвращает тот же счёт.
	again, err := env.works.GenerateInvoice(ctx, work.ID, provider, nil)
	require.NoError(t, err)
	assert.Equal(t, invoices[0].ID, again.ID)

	_, err = env.works.UpdateStatus(ctx, work.ID, client, string(valueobject.WorkStatusInProgress))
	assert.True(t, apperror.IsInvalidState(err))
}

func TestWorkAssignmentService_CompleteKeepsStatusWhenInvoiceFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, provider, work := env.acceptedJob(t, 0)

	completed, err := env.works.UpdateStatus(ctx, work.ID, provider, string(valueobject.WorkStatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, valueobject.WorkStatusCompleted, completed.Status)
	assert.NotNil(t, completed.EndDate)

	stored, err := env.works.Get(ctx, work.ID, provider)
	require.NoError(t, err)
	assert.Equal(t, valueobject.WorkStatusCompleted, stored.Status)

	invoices, err := env.invoices.List(ctx, provider, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, invoices)

	// Без суммы повтор падает так же.
	_, err = env.works.GenerateInvoice(ctx, work.ID, provider, nil)
	assert.True(t, apperror.IsValidation(err))

	amount := dec("900")
	invoice, err := env.works.GenerateInvoice(ctx, work.ID, provider, &amount)
	require.NoError(t, err)
	assert.True(t, amount.Equal(invoice.Amount))
	assert.Equal(t, work.ID, invoice.WorkAssignmentID)

	again, err := env.works.GenerateInvoice(ctx, work.ID, provider, nil)
	require.NoError(t, err)
	assert.Equal(t, invoice.ID, again.ID)

	invoices, err = env.invoices.List(ctx, provider, 10, 0)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
}

func TestWorkAssignmentService_UpdateStatus_Transitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, provider, work := env.acceptedJob(t, 500)

	_, err := env.works.UpdateStatus(ctx, work.ID, uuid.New(), string(valueobject.WorkStatusPaused))
	assert.True(t, apperror.IsForbidden(err))

	_, err = env.works.UpdateStatus(ctx, work.ID, client, "done")
	assert.True(t, apperror.IsValidation(err))

	_, err = env.works.UpdateStatus(ctx, work.ID, client, string(valueobject.WorkStatusInProgress))
	assert.True(t, apperror.IsInvalidState(err))

	paused, err := env.works.UpdateStatus(ctx, work.ID, client, string(valueobject.WorkStatusPaused))
	require.NoError(t, err)
	assert.Equal(t, valueobject.WorkStatusPaused, paused.Status)

	resumed, err := env.works.UpdateStatus(ctx, work.ID, provider, string(valueobject.WorkStatusInProgress))
	require.NoError(t, err)
	assert.Equal(t, valueobject.WorkStatusInProgress, resumed.Status)

	cancelled, err := env.works.UpdateStatus(ctx, work.ID, client, string(valueobject.WorkStatusCancelled))
	require.NoError(t, err)
	assert.Nil(t, cancelled.EndDate)

	invoices, err := env.invoices.List(ctx, provider, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, invoices)

	_, err = env.works.GenerateInvoice(ctx, work.ID, provider, nil)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestWorkAssignmentService_Fund(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, provider, work := env.acceptedJob(t, 400)
	env.fund(t, client, 1000)

	_, err := env.works.Fund(ctx, work.ID, provider, nil)
	assert.True(t, apperror.IsForbidden(err))

	funded, err := env.works.Fund(ctx, work.ID, client, nil)
	require.NoError(t, err)
	require.NotNil(t, funded.EscrowHoldID)
	assert.True(t, dec("600").Equal(env.balance(t, client)))

	hold, err := env.escrow.GetHold(ctx, *funded.EscrowHoldID, provider)
	require.NoError(t, err)
	assert.True(t, dec("400").Equal(hold.Amount))
	require.NotNil(t, hold.SourceKind)
	assert.Equal(t, string(valueobject.SubjectJob), *hold.SourceKind)

	_, err = env.works.Fund(ctx, work.ID, client, nil)
	assert.True(t, apperror.IsInvalidState(err))
	assert.True(t, dec("600").Equal(env.balance(t, client)))

	// Завершение работы переводит сделку в completed, выплата остаётся за клиентом.
	_, err = env.works.UpdateStatus(ctx, work.ID, provider, string(valueobject.WorkStatusCompleted))
	require.NoError(t, err)
	hold, err = env.escrow.GetHold(ctx, hold.ID, client)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusCompleted, hold.Status)
	assert.True(t, env.balance(t, provider).IsZero())

	_, err = env.escrow.Release(ctx, hold.ID, client)
	require.NoError(t, err)
	assert.True(t, dec("400").Equal(env.balance(t, provider)))
}

func TestWorkAssignmentService_Fund_CustomAmount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, _, work := env.acceptedJob(t, 400)
	env.fund(t, client, 100)

	_, err := env.works.Fund(ctx, work.ID, client, nil)
	assert.True(t, apperror.IsInsufficientFunds(err))

	amount := dec("75.50")
	funded, err := env.works.Fund(ctx, work.ID, client, &amount)
	require.NoError(t, err)
	require.NotNil(t, funded.EscrowHoldID)
	assert.True(t, dec("24.50").Equal(env.balance(t, client)))
}

func TestWorkAssignmentService_CancelAfterFunding_KeepsHold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, provider, work := env.acceptedJob(t, 300)
	env.fund(t, client, 300)

	funded, err := env.works.Fund(ctx, work.ID, client, nil)
	require.NoError(t, err)

	_, err = env.works.UpdateStatus(ctx, work.ID, client, string(valueobject.WorkStatusCancelled))
	require.NoError(t, err)

	hold, err := env.escrow.GetHold(ctx, *funded.EscrowHoldID, client)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusFunded, hold.Status)
	assert.True(t, env.balance(t, client).IsZero())

	for _, party := range []uuid.UUID{client, provider} {
		var escrowEvents int
		for _, e := range env.notifier.For(party) {
			if e.Kind == models.NotificationEscrow && e.ReferenceID == hold.ID {
				escrowEvents++
			}
		}
		assert.GreaterOrEqual(t, escrowEvents, 1)
	}

	_, err = env.works.Fund(ctx, work.ID, client, nil)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestWorkAssignmentService_GetAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, provider, work := env.acceptedJob(t, 300)

	got, err := env.works.Get(ctx, work.ID, client)
	require.NoError(t, err)
	assert.Equal(t, work.ID, got.ID)

	_, err = env.works.Get(ctx, work.ID, uuid.New())
	assert.True(t, apperror.IsForbidden(err))

	_, err = env.works.Get(ctx, uuid.New(), client)
	assert.True(t, apperror.IsNotFound(err))

	list, err := env.works.List(ctx, provider, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = env.works.GenerateInvoice(ctx, work.ID, client, nil)
	assert.True(t, apperror.IsForbidden(err))
}
