package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/logger"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
)

type WorkAssignmentRepository interface {
	CreateAssignment(ctx context.Context, work *models.WorkAssignment) (bool, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (*models.WorkAssignment, error)
	GetAssignmentByInteraction(ctx context.Context, interactionID uuid.UUID) (*models.WorkAssignment, error)
	ListAssignments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WorkAssignment, error)
	TransitionAssignment(ctx context.Context, id uuid.UUID, from []valueobject.WorkStatus, to valueobject.WorkStatus, endDate *time.Time) (*models.WorkAssignment, error)
	AttachHold(ctx context.Context, workID uuid.UUID, hold *models.EscrowHold) (*models.WorkAssignment, error)
}

type invoiceGenerator interface {
	CreateFromWorkAssignment(ctx context.Context, work *models.WorkAssignment, amount *decimal.Decimal) (*models.Invoice, error)
}

type holdCompleter interface {
	CompleteHold(ctx context.Context, holdID uuid.UUID) (*models.EscrowHold, error)
}

// WorkAssignmentService ведёт работы, созданные из принятых откликов.
type WorkAssignmentService struct {
	repo      WorkAssignmentRepository
	directory *Directory
	invoices  invoiceGenerator
	escrow    holdCompleter
	notifier  Notifier
	now       func() time.Time
}

func NewWorkAssignmentService(repo WorkAssignmentRepository, directory *Directory, invoices invoiceGenerator, escrow holdCompleter, notifier Notifier) *WorkAssignmentService {
	return &WorkAssignmentService{
		repo:      repo,
		directory: directory,
		invoices:  invoices,
		escrow:    escrow,
		notifier:  notifier,
		now:       time.Now,
	}
}

// CreateFromInteraction создаёт работу по принятому отклику.
// Для одного отклика создаётся ровно одна работа, повторный вызов возвращает её же.
func (s *WorkAssignmentService) CreateFromInteraction(ctx context.Context, interaction *models.Interaction) (*models.WorkAssignment, error) {
	if interaction.Status != valueobject.InteractionStatusAccepted {
		return nil, apperror.InvalidState("работа создаётся только по принятому отклику")
	}

	kind := interaction.Kind.SubjectKind()
	subject, err := s.directory.Subject(ctx, kind, interaction.SubjectID)
	if err != nil {
		return nil, err
	}

	work := &models.WorkAssignment{
		InteractionID: interaction.ID,
		ProviderID:    interaction.Provider(),
		ClientID:      interaction.Client(),
		Title:         subject.Title,
		Status:        valueobject.WorkStatusInProgress,
		StartDate:     s.now(),
	}
	work.SetSubject(kind, interaction.SubjectID)

	created, err := s.repo.CreateAssignment(ctx, work)
	if err != nil {
		return nil, storeError(err, apperror.ErrAssignmentNotFound, "")
	}
	if !created {
		return work, nil
	}

	logger.Log.WithFields(map[string]interface{}{
		"work_assignment_id": work.ID,
		"interaction_id":     interaction.ID,
		"provider_id":        work.ProviderID,
		"client_id":          work.ClientID,
	}).Info("work assignment service: работа создана")

	for _, userID := range []uuid.UUID{work.ProviderID, work.ClientID} {
		s.notifier.Notify(userID, "Работа начата", work.Title,
			models.NotificationWork, work.ID, models.ReferenceTypeWorkAssignment)
	}
	return work, nil
}

// UpdateStatus меняет статус работы. Доступно исполнителю и заказчику.
// При завершении выставляется счёт; ошибка выставления не откатывает статус.
func (s *WorkAssignmentService) UpdateStatus(ctx context.Context, workID, userID uuid.UUID, status string) (*models.WorkAssignment, error) {
	to, err := valueobject.NewWorkStatus(status)
	if err != nil {
		return nil, err
	}

	work, err := s.repo.GetAssignment(ctx, workID)
	if err != nil {
		return nil, storeError(err, apperror.ErrAssignmentNotFound, "")
	}
	if !work.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	if !work.Status.CanTransitionTo(to) {
		return nil, apperror.InvalidState("недопустимый переход статуса работы")
	}

	var endDate *time.Time
	if to == valueobject.WorkStatusCompleted {
		now := s.now()
		endDate = &now
	}

	updated, err := s.repo.TransitionAssignment(ctx, workID, to.Predecessors(), to, endDate)
	if err != nil {
		return nil, storeError(err, apperror.ErrAssignmentNotFound, "статус работы уже изменён")
	}

	fields := map[string]interface{}{
		"work_assignment_id": updated.ID,
		"status":             string(to),
		"user_id":            userID,
	}

	switch to {
	case valueobject.WorkStatusCompleted:
		s.onCompleted(ctx, updated, fields)
	case valueobject.WorkStatusCancelled:
		if updated.EscrowHoldID != nil {
			fields["hold_id"] = *updated.EscrowHoldID
			logger.Log.WithFields(fields).Warn("work assignment service: работа отменена после оплаты, средства остаются в escrow")
			for _, party := range []uuid.UUID{updated.ProviderID, updated.ClientID} {
				s.notifier.Notify(party, "Работа отменена",
					"Средства по сделке остаются зарезервированы до ручного разбора",
					models.NotificationEscrow, *updated.EscrowHoldID, models.ReferenceTypeEscrowHold)
			}
		}
	}

	s.notifier.Notify(updated.Counterparty(userID), "Статус работы изменён", updated.Title+": "+to.Label(),
		models.NotificationWork, updated.ID, models.ReferenceTypeWorkAssignment)
	return updated, nil
}

func (s *WorkAssignmentService) onCompleted(ctx context.Context, work *models.WorkAssignment, fields map[string]interface{}) {
	if _, err := s.invoices.CreateFromWorkAssignment(ctx, work, nil); err != nil {
		fields["error"] = err.Error()
		logger.Log.WithFields(fields).Error("work assignment service: не удалось выставить счёт по завершённой работе")
		delete(fields, "error")
	}

	if work.EscrowHoldID == nil {
		return
	}
	if _, err := s.escrow.CompleteHold(ctx, *work.EscrowHoldID); err != nil {
		fields["hold_id"] = *work.EscrowHoldID
		fields["error"] = err.Error()
		logger.Log.WithFields(fields).Warn("work assignment service: не удалось отметить сделку завершённой")
	}
}

// Fund резервирует оплату работы через escrow. Доступно только заказчику.
// Без amount резервируется цена объявления.
func (s *WorkAssignmentService) Fund(ctx context.Context, workID, userID uuid.UUID, amount *decimal.Decimal) (*models.WorkAssignment, error) {
	work, err := s.repo.GetAssignment(ctx, workID)
	if err != nil {
		return nil, storeError(err, apperror.ErrAssignmentNotFound, "")
	}
	if work.ClientID != userID {
		return nil, apperror.ErrForbidden
	}
	if work.EscrowHoldID != nil || work.Status.IsTerminal() {
		return nil, apperror.InvalidState("работа уже оплачена или закрыта")
	}

	kind, subjectID := work.Subject()
	total := decimal.Zero
	if amount != nil {
		total = *amount
	} else {
		subject, err := s.directory.Subject(ctx, kind, subjectID)
		if err != nil {
			return nil, err
		}
		total = subject.Price
	}

	hold, err := NewHold(CreateHoldInput{
		ClientID:    work.ClientID,
		ProviderID:  work.ProviderID,
		Amount:      total,
		SourceKind:  &kind,
		SourceID:    &subjectID,
		Description: work.Title,
	})
	if err != nil {
		return nil, err
	}

	funded, err := s.repo.AttachHold(ctx, workID, hold)
	if err != nil {
		return nil, storeError(err, apperror.ErrAssignmentNotFound, "работа уже оплачена или закрыта")
	}

	logger.Log.WithFields(map[string]interface{}{
		"work_assignment_id": funded.ID,
		"hold_id":            hold.ID,
		"amount":             hold.Amount.String(),
	}).Info("work assignment service: работа оплачена через escrow")

	s.notifier.Notify(funded.ProviderID, "Работа оплачена",
		"Заказчик зарезервировал "+hold.Amount.StringFixed(2)+" за "+funded.Title,
		models.NotificationEscrow, hold.ID, models.ReferenceTypeEscrowHold)
	return funded, nil
}

// GenerateInvoice повторно выставляет счёт по завершённой работе. Доступно только исполнителю.
// amount задаётся, когда цену объявления выставить нельзя.
func (s *WorkAssignmentService) GenerateInvoice(ctx context.Context, workID, userID uuid.UUID, amount *decimal.Decimal) (*models.Invoice, error) {
	work, err := s.repo.GetAssignment(ctx, workID)
	if err != nil {
		return nil, storeError(err, apperror.ErrAssignmentNotFound, "")
	}
	if work.ProviderID != userID {
		return nil, apperror.ErrForbidden
	}
	if work.Status != valueobject.WorkStatusCompleted {
		return nil, apperror.InvalidState("счёт выставляется только по завершённой работе")
	}
	return s.invoices.CreateFromWorkAssignment(ctx, work, amount)
}

// Get возвращает работу участнику.
func (s *WorkAssignmentService) Get(ctx context.Context, workID, userID uuid.UUID) (*models.WorkAssignment, error) {
	work, err := s.repo.GetAssignment(ctx, workID)
	if err != nil {
		return nil, storeError(err, apperror.ErrAssignmentNotFound, "")
	}
	if !work.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return work, nil
}

// List возвращает работы пользователя.
func (s *WorkAssignmentService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WorkAssignment, error) {
	limit, offset = normalizePage(limit, offset)
	works, err := s.repo.ListAssignments(ctx, userID, limit, offset)
	if err != nil {
		return nil, storeError(err, apperror.ErrAssignmentNotFound, "")
	}
	return works, nil
}
