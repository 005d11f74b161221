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

type InteractionRepository interface {
	CreateInteraction(ctx context.Context, interaction *models.Interaction) error
	GetInteraction(ctx context.Context, id uuid.UUID) (*models.Interaction, error)
	ListInteractions(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]models.Interaction, error)
	TransitionInteraction(ctx context.Context, id uuid.UUID, from []valueobject.InteractionStatus, to valueobject.InteractionStatus) (*models.Interaction, error)
}

type assignmentCreator interface {
	CreateFromInteraction(ctx context.Context, interaction *models.Interaction) (*models.WorkAssignment, error)
}

// SubmitInteractionInput данные отклика или запроса.
type SubmitInteractionInput struct {
	Kind           string
	SubjectID      uuid.UUID
	CoverLetter    *string
	ProposedAmount *decimal.Decimal
	Message        *string
	Quantity       *int
}

// InteractionService машина состояний откликов на работы и запросов по навыкам и материалам.
type InteractionService struct {
	repo        InteractionRepository
	directory   *Directory
	assignments assignmentCreator
	notifier    Notifier
}

func NewInteractionService(repo InteractionRepository, directory *Directory, assignments assignmentCreator, notifier Notifier) *InteractionService {
	return &InteractionService{
		repo:        repo,
		directory:   directory,
		assignments: assignments,
		notifier:    notifier,
	}
}

// Submit создаёт отклик от имени requesterID.
func (s *InteractionService) Submit(ctx context.Context, requesterID uuid.UUID, in SubmitInteractionInput) (*models.Interaction, error) {
	kind, err := valueobject.NewInteractionKind(in.Kind)
	if err != nil {
		return nil, err
	}

	interaction := &models.Interaction{
		Kind:        kind,
		RequesterID: requesterID,
		SubjectID:   in.SubjectID,
		Status:      valueobject.InteractionStatusSubmitted,
	}

	if kind == valueobject.InteractionJobApplication {
		if in.ProposedAmount != nil {
			amount, err := valueobject.NewPositiveAmount(*in.ProposedAmount)
			if err != nil {
				return nil, err
			}
			interaction.ProposedAmount = &amount
		}
		if interaction.CoverLetter, err = validation.OptionalText("сопроводительное письмо", in.CoverLetter, validation.MaxCoverLetterLength); err != nil {
			return nil, err
		}
	} else {
		if in.Quantity != nil && *in.Quantity <= 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "количество должно быть положительным")
		}
		if interaction.Message, err = validation.OptionalText("сообщение", in.Message, validation.MaxMessageLength); err != nil {
			return nil, err
		}
		interaction.Quantity = in.Quantity
	}

	subject, err := s.directory.Subject(ctx, kind.SubjectKind(), in.SubjectID)
	if err != nil {
		return nil, err
	}
	if subject.OwnerID == requesterID {
		return nil, apperror.ErrSelfInteractionForbidden
	}
	interaction.OwnerID = subject.OwnerID

	if err := s.repo.CreateInteraction(ctx, interaction); err != nil {
		if apperror.CodeOf(storeError(err, apperror.ErrInteractionNotFound, "")) == apperror.ErrCodeConflict {
			return nil, apperror.ErrDuplicateInteraction
		}
		return nil, storeError(err, apperror.ErrInteractionNotFound, "")
	}

	logger.Log.WithFields(map[string]interface{}{
		"interaction_id": interaction.ID,
		"kind":           string(kind),
		"requester_id":   requesterID,
		"subject_id":     in.SubjectID,
	}).Info("interaction service: отклик создан")

	name := s.directory.DisplayName(ctx, requesterID, "Пользователь")
	s.notifier.Notify(interaction.OwnerID, "Новый отклик", name+": "+subject.Title,
		models.NotificationInteraction, interaction.ID, models.ReferenceTypeInteraction)
	return interaction.WithLabel(), nil
}

// UpdateStatus меняет статус отклика с проверкой роли.
// При принятии создаётся работа; ошибка её создания не откатывает принятие.
func (s *InteractionService) UpdateStatus(ctx context.Context, interactionID, userID uuid.UUID, status string) (*models.Interaction, *models.WorkAssignment, error) {
	to, err := valueobject.NewInteractionStatus(status)
	if err != nil {
		return nil, nil, err
	}

	interaction, err := s.repo.GetInteraction(ctx, interactionID)
	if err != nil {
		return nil, nil, storeError(err, apperror.ErrInteractionNotFound, "")
	}
	if err := authorizeInteractionTransition(interaction, userID, to); err != nil {
		return nil, nil, err
	}
	if !interaction.Status.CanTransitionTo(to) {
		return nil, nil, apperror.InvalidState("недопустимый переход статуса отклика")
	}

	updated, err := s.repo.TransitionInteraction(ctx, interactionID, to.Predecessors(), to)
	if err != nil {
		return nil, nil, storeError(err, apperror.ErrInteractionNotFound, "статус отклика уже изменён")
	}
	updated.WithLabel()

	s.notifier.Notify(updated.Counterparty(userID), "Статус отклика изменён", updated.StatusLabel,
		models.NotificationInteraction, updated.ID, models.ReferenceTypeInteraction)

	if to != valueobject.InteractionStatusAccepted {
		return updated, nil, nil
	}

	work, err := s.assignments.CreateFromInteraction(ctx, updated)
	if err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"interaction_id": updated.ID,
			"error":          err.Error(),
		}).Error("interaction service: отклик принят, но работа не создана")
		return updated, nil, nil
	}
	return updated, work, nil
}

// EnsureAssignment повторно создаёт работу для принятого отклика. Доступно участникам.
func (s *InteractionService) EnsureAssignment(ctx context.Context, interactionID, userID uuid.UUID) (*models.WorkAssignment, error) {
	interaction, err := s.Get(ctx, interactionID, userID)
	if err != nil {
		return nil, err
	}
	return s.assignments.CreateFromInteraction(ctx, interaction)
}

// Get возвращает отклик участнику.
func (s *InteractionService) Get(ctx context.Context, interactionID, userID uuid.UUID) (*models.Interaction, error) {
	interaction, err := s.repo.GetInteraction(ctx, interactionID)
	if err != nil {
		return nil, storeError(err, apperror.ErrInteractionNotFound, "")
	}
	if interaction.RequesterID != userID && interaction.OwnerID != userID {
		return nil, apperror.ErrForbidden
	}
	return interaction.WithLabel(), nil
}

// List возвращает отклики пользователя как автора (requester) или владельца объявления (owner).
func (s *InteractionService) List(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]models.Interaction, error) {
	if role == "" {
		role = models.RoleRequester
	}
	if role != models.RoleRequester && role != models.RoleOwner {
		return nil, apperror.New(apperror.ErrCodeValidation, "role должен быть requester или owner")
	}

	limit, offset = normalizePage(limit, offset)
	items, err := s.repo.ListInteractions(ctx, userID, role, limit, offset)
	if err != nil {
		return nil, storeError(err, apperror.ErrInteractionNotFound, "")
	}
	for i := range items {
		items[i].WithLabel()
	}
	return items, nil
}

// authorizeInteractionTransition проверяет, что пользователь может выставить статус.
func authorizeInteractionTransition(interaction *models.Interaction, userID uuid.UUID, to valueobject.InteractionStatus) error {
	if interaction.RequesterID != userID && interaction.OwnerID != userID {
		return apperror.ErrForbidden
	}
	if interaction.Status.IsTerminal() {
		return apperror.InvalidState("отклик уже закрыт")
	}

	switch to {
	case valueobject.InteractionStatusWithdrawn:
		if userID != interaction.RequesterID {
			return apperror.ErrForbidden
		}
	case valueobject.InteractionStatusReviewing, valueobject.InteractionStatusAccepted, valueobject.InteractionStatusRejected:
		if userID != interaction.OwnerID {
			return apperror.ErrForbidden
		}
	default:
		return apperror.InvalidState("вернуть отклик в исходный статус нельзя")
	}
	return nil
}
