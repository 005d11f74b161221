package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/repository"
)

// ---- Interactions ----

// CreateInteraction создаёт отклик. Повтор для той же пары даёт ErrAlreadyExists.
func (s *Store) CreateInteraction(_ context.Context, interaction *models.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := interactionKey{requester: interaction.RequesterID, kind: interaction.Kind, subject: interaction.SubjectID}
	if _, exists := s.interactionIndex[key]; exists {
		return repository.ErrAlreadyExists
	}

	now := s.now()
	interaction.ID = uuid.New()
	interaction.CreatedAt = now
	interaction.UpdatedAt = now
	stored := *interaction
	s.interactions[interaction.ID] = &stored
	s.interactionIndex[key] = interaction.ID
	return nil
}

// GetInteraction возвращает отклик по идентификатору.
func (s *Store) GetInteraction(_ context.Context, id uuid.UUID) (*models.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	interaction, ok := s.interactions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *interaction
	return &out, nil
}

// ListInteractions возвращает отклики пользователя в роли requester или owner.
func (s *Store) ListInteractions(_ context.Context, userID uuid.UUID, role string, limit, offset int) ([]models.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Interaction{}
	for _, interaction := range s.interactions {
		match := interaction.RequesterID == userID
		if role == models.RoleOwner {
			match = interaction.OwnerID == userID
		}
		if match {
			out = append(out, *interaction)
		}
	}
	sortByCreatedDesc(out, func(i models.Interaction) time.Time { return i.CreatedAt })
	return page(out, limit, offset), nil
}

// TransitionInteraction меняет статус, только если текущий входит в from.
func (s *Store) TransitionInteraction(_ context.Context, id uuid.UUID, from []valueobject.InteractionStatus, to valueobject.InteractionStatus) (*models.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	interaction, ok := s.interactions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !containsStatus(from, interaction.Status) {
		return nil, repository.ErrInvalidState
	}
	interaction.Status = to
	interaction.UpdatedAt = s.now()
	out := *interaction
	return &out, nil
}

// ---- Work assignments ----

// CreateAssignment создаёт работу или возвращает уже созданную для отклика.
func (s *Store) CreateAssignment(_ context.Context, work *models.WorkAssignment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.worksByAnswer[work.InteractionID]; exists {
		*work = *s.works[id]
		return false, nil
	}

	now := s.now()
	work.ID = uuid.New()
	work.CreatedAt = now
	work.UpdatedAt = now
	if work.StartDate.IsZero() {
		work.StartDate = now
	}
	stored := *work
	s.works[work.ID] = &stored
	s.worksByAnswer[work.InteractionID] = work.ID
	return true, nil
}

// GetAssignment возвращает работу по идентификатору.
func (s *Store) GetAssignment(_ context.Context, id uuid.UUID) (*models.WorkAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	work, ok := s.works[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *work
	return &out, nil
}

// GetAssignmentByInteraction возвращает работу, созданную из отклика.
func (s *Store) GetAssignmentByInteraction(_ context.Context, interactionID uuid.UUID) (*models.WorkAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.worksByAnswer[interactionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *s.works[id]
	return &out, nil
}

// ListAssignments возвращает работы пользователя в любой роли.
func (s *Store) ListAssignments(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.WorkAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.WorkAssignment{}
	for _, work := range s.works {
		if work.IsParticipant(userID) {
			out = append(out, *work)
		}
	}
	sortByCreatedDesc(out, func(w models.WorkAssignment) time.Time { return w.CreatedAt })
	return page(out, limit, offset), nil
}

// TransitionAssignment меняет статус, только если текущий входит в from.
func (s *Store) TransitionAssignment(_ context.Context, id uuid.UUID, from []valueobject.WorkStatus, to valueobject.WorkStatus, endDate *time.Time) (*models.WorkAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	work, ok := s.works[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !containsStatus(from, work.Status) {
		return nil, repository.ErrInvalidState
	}
	work.Status = to
	if endDate != nil {
		end := *endDate
		work.EndDate = &end
	}
	work.UpdatedAt = s.now()
	out := *work
	return &out, nil
}

// AttachHold создаёт удержание и привязывает его к работе.
func (s *Store) AttachHold(_ context.Context, workID uuid.UUID, hold *models.EscrowHold) (*models.WorkAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	work, ok := s.works[workID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if work.EscrowHoldID != nil || work.Status.IsTerminal() {
		return nil, repository.ErrInvalidState
	}
	if err := s.insertHold(hold); err != nil {
		return nil, err
	}
	holdID := hold.ID
	work.EscrowHoldID = &holdID
	work.UpdatedAt = s.now()
	out := *work
	return &out, nil
}

// ---- Invoices ----

// CreateInvoice создаёт счёт или возвращает уже созданный для работы.
func (s *Store) CreateInvoice(_ context.Context, invoice *models.Invoice) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.invoicesByWork[invoice.WorkAssignmentID]; exists {
		*invoice = *s.invoices[id]
		return false, nil
	}
	if _, taken := s.invoiceNumbers[invoice.Number]; taken {
		return false, fmt.Errorf("memory store: invoice number %s: %w", invoice.Number, repository.ErrAlreadyExists)
	}

	invoice.ID = uuid.New()
	invoice.CreatedAt = s.now()
	stored := *invoice
	s.invoices[invoice.ID] = &stored
	s.invoicesByWork[invoice.WorkAssignmentID] = invoice.ID
	s.invoiceNumbers[invoice.Number] = struct{}{}
	return true, nil
}

// GetInvoice возвращает счёт по идентификатору.
func (s *Store) GetInvoice(_ context.Context, id uuid.UUID) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invoice, ok := s.invoices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *invoice
	return &out, nil
}

// GetInvoiceByAssignment возвращает счёт работы.
func (s *Store) GetInvoiceByAssignment(_ context.Context, workID uuid.UUID) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.invoicesByWork[workID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *s.invoices[id]
	return &out, nil
}

// ListInvoices возвращает счета исполнителя.
func (s *Store) ListInvoices(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Invoice{}
	for _, invoice := range s.invoices {
		if invoice.UserID == userID {
			out = append(out, *invoice)
		}
	}
	sortByCreatedDesc(out, func(i models.Invoice) time.Time { return i.IssuedDate })
	return page(out, limit, offset), nil
}

// TransitionInvoice меняет статус, только если текущий входит в from.
func (s *Store) TransitionInvoice(_ context.Context, id uuid.UUID, from []valueobject.InvoiceStatus, to valueobject.InvoiceStatus) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invoice, ok := s.invoices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !containsStatus(from, invoice.Status) {
		return nil, repository.ErrInvalidState
	}
	invoice.Status = to
	out := *invoice
	return &out, nil
}

// MarkOverdue переводит просроченные ожидающие счета в overdue.
func (s *Store) MarkOverdue(_ context.Context, now time.Time) ([]models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Invoice{}
	for _, invoice := range s.invoices {
		if invoice.Status == valueobject.InvoiceStatusPending && invoice.DueDate.Before(now) {
			invoice.Status = valueobject.InvoiceStatusOverdue
			out = append(out, *invoice)
		}
	}
	return out, nil
}
