package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/repository"
)

// CreateHold списывает средства клиента и создаёт удержание в статусе funded.
func (s *Store) CreateHold(_ context.Context, hold *models.EscrowHold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertHold(hold)
}

// GetHold возвращает удержание по идентификатору.
func (s *Store) GetHold(_ context.Context, id uuid.UUID) (*models.EscrowHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold, ok := s.holds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *hold
	return &out, nil
}

// ListHolds возвращает удержания, где пользователь клиент или исполнитель.
func (s *Store) ListHolds(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.EscrowHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.EscrowHold{}
	for _, hold := range s.holds {
		if hold.IsParticipant(userID) {
			out = append(out, *hold)
		}
	}
	sortByCreatedDesc(out, func(h models.EscrowHold) time.Time { return h.CreatedAt })
	return page(out, limit, offset), nil
}

// TransitionHold меняет статус, только если текущий входит в from.
func (s *Store) TransitionHold(_ context.Context, id uuid.UUID, from []valueobject.EscrowStatus, to valueobject.EscrowStatus) (*models.EscrowHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold, err := s.casHold(id, from, to)
	if err != nil {
		return nil, err
	}
	out := *hold
	return &out, nil
}

// ReleaseHold переводит удержание в released и зачисляет сумму исполнителю.
func (s *Store) ReleaseHold(_ context.Context, id uuid.UUID) (*models.EscrowHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hold, ok := s.holds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !hold.Status.IsSettleable() {
		return nil, repository.ErrInvalidState
	}
	entry := &models.LedgerEntry{
		UserID:        hold.ProviderID,
		Description:   hold.EntryDescription("Получение оплаты"),
		Amount:        hold.Amount,
		Kind:          models.EntryKindRelease,
		Status:        models.EntryStatusCompleted,
		ReferenceID:   models.StringPtr(hold.ID.String()),
		ReferenceType: models.StringPtr(models.ReferenceTypeEscrowHold),
	}
	if err := s.checkEntry(entry); err != nil {
		return nil, err
	}
	if _, err := s.applyDelta(hold.ProviderID, hold.Amount); err != nil {
		return nil, err
	}

	now := s.now()
	hold.Status = valueobject.EscrowStatusReleased
	hold.UpdatedAt = now
	hold.ReleasedAt = &now
	s.storeEntry(entry)

	out := *hold
	return &out, nil
}

// DisputeHold открывает спор, средства остаются удержанными.
func (s *Store) DisputeHold(_ context.Context, id uuid.UUID, reason string) (*models.EscrowHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hold, ok := s.holds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	entry := &models.LedgerEntry{
		UserID:        hold.ClientID,
		Description:   "Спор: " + reason,
		Amount:        hold.Amount,
		Kind:          models.EntryKindPayment,
		Status:        models.EntryStatusPending,
		ReferenceID:   models.StringPtr(hold.ID.String()),
		ReferenceType: models.StringPtr(models.ReferenceTypeEscrowDispute),
	}
	if err := s.checkEntry(entry); err != nil {
		return nil, err
	}
	hold, err := s.casHold(id, valueobject.SettleableEscrowStatuses, valueobject.EscrowStatusDisputed)
	if err != nil {
		return nil, err
	}
	s.storeEntry(entry)

	out := *hold
	return &out, nil
}

func (s *Store) insertHold(hold *models.EscrowHold) error {
	id := uuid.New()
	entry := &models.LedgerEntry{
		UserID:        hold.ClientID,
		Description:   hold.EntryDescription("Заморозка средств"),
		Amount:        hold.Amount.Neg(),
		Kind:          models.EntryKindEscrow,
		Status:        models.EntryStatusCompleted,
		ReferenceID:   models.StringPtr(id.String()),
		ReferenceType: models.StringPtr(models.ReferenceTypeEscrowHold),
	}
	if err := s.checkEntry(entry); err != nil {
		return err
	}
	if _, err := s.applyDelta(hold.ClientID, hold.Amount.Neg()); err != nil {
		return err
	}

	now := s.now()
	hold.ID = id
	hold.Status = valueobject.EscrowStatusFunded
	hold.CreatedAt = now
	hold.UpdatedAt = now
	stored := *hold
	s.holds[hold.ID] = &stored
	s.storeEntry(entry)
	return nil
}

func (s *Store) casHold(id uuid.UUID, from []valueobject.EscrowStatus, to valueobject.EscrowStatus) (*models.EscrowHold, error) {
	hold, ok := s.holds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !containsStatus(from, hold.Status) {
		return nil, repository.ErrInvalidState
	}
	hold.Status = to
	hold.UpdatedAt = s.now()
	return hold, nil
}

func containsStatus[S comparable](statuses []S, status S) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}
