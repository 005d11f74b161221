package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/logger"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
	"github.com/ignatzorin/studgig-backend/internal/validation"
)

type EscrowRepository interface {
	CreateHold(ctx context.Context, hold *models.EscrowHold) error
	GetHold(ctx context.Context, id uuid.UUID) (*models.EscrowHold, error)
	ListHolds(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.EscrowHold, error)
	TransitionHold(ctx context.Context, id uuid.UUID, from []valueobject.EscrowStatus, to valueobject.EscrowStatus) (*models.EscrowHold, error)
	ReleaseHold(ctx context.Context, id uuid.UUID) (*models.EscrowHold, error)
	DisputeHold(ctx context.Context, id uuid.UUID, reason string) (*models.EscrowHold, error)
}

// CreateHoldInput параметры новой сделки.
type CreateHoldInput struct {
	ClientID    uuid.UUID
	ProviderID  uuid.UUID
	Amount      decimal.Decimal
	SourceKind  *valueobject.SubjectKind
	SourceID    *uuid.UUID
	Description string
}

// EscrowService управляет удержаниями средств между клиентом и исполнителем.
type EscrowService struct {
	repo     EscrowRepository
	notifier Notifier
}

func NewEscrowService(repo EscrowRepository, notifier Notifier) *EscrowService {
	return &EscrowService{repo: repo, notifier: notifier}
}

// NewHold проверяет параметры и собирает удержание для сохранения.
func NewHold(in CreateHoldInput) (*models.EscrowHold, error) {
	amount, err := valueobject.NewPositiveAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if in.ClientID == in.ProviderID {
		return nil, apperror.New(apperror.ErrCodeValidation, "клиент и исполнитель должны различаться")
	}
	if (in.SourceKind == nil) != (in.SourceID == nil) {
		return nil, apperror.New(apperror.ErrCodeValidation, "источник сделки указан не полностью")
	}

	description := validation.Sanitize(in.Description)
	if err := validation.ValidateLength("описание", description, 0, validation.MaxHoldDescriptionLength); err != nil {
		return nil, err
	}

	hold := &models.EscrowHold{
		ClientID:    in.ClientID,
		ProviderID:  in.ProviderID,
		Amount:      amount,
		SourceID:    in.SourceID,
		Description: description,
	}
	if in.SourceKind != nil {
		kind := string(*in.SourceKind)
		hold.SourceKind = &kind
	}
	return hold, nil
}

// CreateHold списывает сумму с кошелька клиента и создаёт сделку в статусе funded.
func (s *EscrowService) CreateHold(ctx context.Context, in CreateHoldInput) (*models.EscrowHold, error) {
	hold, err := NewHold(in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateHold(ctx, hold); err != nil {
		return nil, storeError(err, apperror.ErrHoldNotFound, "")
	}

	s.notifier.Notify(hold.ProviderID, "Средства зарезервированы",
		"Клиент зарезервировал "+hold.Amount.StringFixed(2)+" по сделке",
		models.NotificationEscrow, hold.ID, models.ReferenceTypeEscrowHold)
	return hold, nil
}

// Release выплачивает удержанные средства исполнителю. Доступно только клиенту.
func (s *EscrowService) Release(ctx context.Context, holdID, requesterID uuid.UUID) (*models.EscrowHold, error) {
	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		return nil, storeError(err, apperror.ErrHoldNotFound, "")
	}
	if hold.ClientID != requesterID {
		return nil, apperror.ErrForbidden
	}

	released, err := s.repo.ReleaseHold(ctx, holdID)
	if err != nil {
		return nil, storeError(err, apperror.ErrHoldNotFound, "сделку нельзя выплатить в текущем статусе")
	}

	logger.Log.WithFields(map[string]interface{}{
		"hold_id":     released.ID,
		"provider_id": released.ProviderID,
		"amount":      released.Amount.String(),
	}).Info("escrow service: средства выплачены")

	s.notifier.Notify(released.ProviderID, "Оплата получена",
		"На ваш баланс зачислено "+released.Amount.StringFixed(2),
		models.NotificationEscrow, released.ID, models.ReferenceTypeEscrowHold)
	return released, nil
}

// Dispute открывает спор по сделке. Доступно только клиенту, средства остаются удержанными.
func (s *EscrowService) Dispute(ctx context.Context, holdID, requesterID uuid.UUID, reason string) (*models.EscrowHold, error) {
	reason, err := validation.Text("причина спора", reason, validation.MaxDisputeReasonLength)
	if err != nil {
		return nil, err
	}

	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		return nil, storeError(err, apperror.ErrHoldNotFound, "")
	}
	if hold.ClientID != requesterID {
		return nil, apperror.ErrForbidden
	}

	disputed, err := s.repo.DisputeHold(ctx, holdID, reason)
	if err != nil {
		return nil, storeError(err, apperror.ErrHoldNotFound, "спор нельзя открыть в текущем статусе")
	}

	logger.Log.WithFields(map[string]interface{}{
		"hold_id": disputed.ID,
		"reason":  reason,
	}).Warn("escrow service: открыт спор, требуется ручной разбор")

	s.notifier.Notify(disputed.ProviderID, "Открыт спор по сделке", reason,
		models.NotificationEscrow, disputed.ID, models.ReferenceTypeEscrowHold)
	return disputed, nil
}

// MarkInProgress отмечает начало работы по сделке. Доступно любой стороне.
func (s *EscrowService) MarkInProgress(ctx context.Context, holdID, requesterID uuid.UUID) (*models.EscrowHold, error) {
	return s.progress(ctx, holdID, requesterID, valueobject.EscrowStatusInProgress)
}

// MarkCompleted отмечает завершение работы по сделке. Доступно любой стороне.
func (s *EscrowService) MarkCompleted(ctx context.Context, holdID, requesterID uuid.UUID) (*models.EscrowHold, error) {
	return s.progress(ctx, holdID, requesterID, valueobject.EscrowStatusCompleted)
}

// CompleteHold переводит сделку в completed без проверки участника.
// Вызывается при завершении работы, к которой привязана сделка.
func (s *EscrowService) CompleteHold(ctx context.Context, holdID uuid.UUID) (*models.EscrowHold, error) {
	to := valueobject.EscrowStatusCompleted
	hold, err := s.repo.TransitionHold(ctx, holdID, to.Predecessors(), to)
	if err != nil {
		return nil, storeError(err, apperror.ErrHoldNotFound, "сделку нельзя перевести в этот статус")
	}
	return hold, nil
}

// GetHold возвращает сделку участнику.
func (s *EscrowService) GetHold(ctx context.Context, holdID, requesterID uuid.UUID) (*models.EscrowHold, error) {
	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		return nil, storeError(err, apperror.ErrHoldNotFound, "")
	}
	if !hold.IsParticipant(requesterID) {
		return nil, apperror.ErrForbidden
	}
	return hold, nil
}

// ListHolds возвращает сделки пользователя.
func (s *EscrowService) ListHolds(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.EscrowHold, error) {
	limit, offset = normalizePage(limit, offset)
	holds, err := s.repo.ListHolds(ctx, userID, limit, offset)
	if err != nil {
		return nil, storeError(err, apperror.ErrHoldNotFound, "")
	}
	return holds, nil
}

func (s *EscrowService) progress(ctx context.Context, holdID, requesterID uuid.UUID, to valueobject.EscrowStatus) (*models.EscrowHold, error) {
	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		return nil, storeError(err, apperror.ErrHoldNotFound, "")
	}
	if !hold.IsParticipant(requesterID) {
		return nil, apperror.ErrForbidden
	}

	updated, err := s.repo.TransitionHold(ctx, holdID, to.Predecessors(), to)
	if err != nil {
		return nil, storeError(err, apperror.ErrHoldNotFound, "сделку нельзя перевести в этот статус")
	}

	counterparty := updated.ClientID
	if requesterID == updated.ClientID {
		counterparty = updated.ProviderID
	}
	s.notifier.Notify(counterparty, "Статус сделки изменён", "Новый статус: "+string(to),
		models.NotificationEscrow, updated.ID, models.ReferenceTypeEscrowHold)
	return updated, nil
}
