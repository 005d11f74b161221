// Package memory реализует хранилища ядра в памяти процесса.
// Все операции выполняются под одним мьютексом, что даёт те же гарантии
// атомарности, что и транзакции postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/repository"
)

type subjectKey struct {
	kind valueobject.SubjectKind
	id   uuid.UUID
}

type interactionKey struct {
	requester uuid.UUID
	kind      valueobject.InteractionKind
	subject   uuid.UUID
}

// Store хранит кошельки, журнал, удержания, отклики, работы и счета.
type Store struct {
	mu sync.Mutex

	now func() time.Time

	wallets      map[uuid.UUID]*models.Wallet
	entries      []*models.LedgerEntry
	providerRefs map[string]*models.LedgerEntry

	holds map[uuid.UUID]*models.EscrowHold

	users    map[uuid.UUID]*models.User
	subjects map[subjectKey]*models.Subject

	interactions     map[uuid.UUID]*models.Interaction
	interactionIndex map[interactionKey]uuid.UUID

	works         map[uuid.UUID]*models.WorkAssignment
	worksByAnswer map[uuid.UUID]uuid.UUID

	invoices       map[uuid.UUID]*models.Invoice
	invoicesByWork map[uuid.UUID]uuid.UUID
	invoiceNumbers map[string]struct{}
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{
		now:              time.Now,
		wallets:          make(map[uuid.UUID]*models.Wallet),
		providerRefs:     make(map[string]*models.LedgerEntry),
		holds:            make(map[uuid.UUID]*models.EscrowHold),
		users:            make(map[uuid.UUID]*models.User),
		subjects:         make(map[subjectKey]*models.Subject),
		interactions:     make(map[uuid.UUID]*models.Interaction),
		interactionIndex: make(map[interactionKey]uuid.UUID),
		works:            make(map[uuid.UUID]*models.WorkAssignment),
		worksByAnswer:    make(map[uuid.UUID]uuid.UUID),
		invoices:         make(map[uuid.UUID]*models.Invoice),
		invoicesByWork:   make(map[uuid.UUID]uuid.UUID),
		invoiceNumbers:   make(map[string]struct{}),
	}
}

// PutUser добавляет или заменяет пользователя.
func (s *Store) PutUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users[user.ID] = &user
}

// PutSubject добавляет или заменяет объявление.
func (s *Store) PutSubject(subject models.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = s.now()
	}
	s.subjects[subjectKey{kind: subject.Kind, id: subject.ID}] = &subject
}

// GetUser возвращает пользователя по идентификатору.
func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *user
	return &out, nil
}

// GetSubject возвращает объявление заданного типа.
func (s *Store) GetSubject(_ context.Context, kind valueobject.SubjectKind, id uuid.UUID) (*models.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.subjects[subjectKey{kind: kind, id: id}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *subject
	return &out, nil
}

// ---- Ledger ----

// GetOrCreateWallet возвращает кошелёк пользователя, создаёт если не существует.
func (s *Store) GetOrCreateWallet(_ context.Context, userID uuid.UUID) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *s.wallet(userID)
	return &out, nil
}

// AdjustBalance применяет сумму записи к кошельку и добавляет запись.
func (s *Store) AdjustBalance(_ context.Context, entry *models.LedgerEntry) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEntry(entry); err != nil {
		return nil, err
	}
	wallet, err := s.applyDelta(entry.UserID, entry.Amount)
	if err != nil {
		return nil, err
	}
	s.storeEntry(entry)
	out := *wallet
	return &out, nil
}

// AppendEntry добавляет запись без изменения баланса.
func (s *Store) AppendEntry(_ context.Context, entry *models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertEntry(entry)
}

// GetEntryByReference возвращает запись провайдера по внешней ссылке.
func (s *Store) GetEntryByReference(_ context.Context, referenceID string) (*models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.providerRefs[referenceID]
	if !ok {
		return nil, repository.ErrUnknownReference
	}
	out := *entry
	return &out, nil
}

// ReconcileByReference переводит ожидающую запись провайдера в конечный статус.
func (s *Store) ReconcileByReference(_ context.Context, referenceID, status string) (*models.LedgerEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.providerRefs[referenceID]
	if !ok {
		return nil, false, repository.ErrUnknownReference
	}
	if models.IsTerminalEntryStatus(entry.Status) {
		out := *entry
		return &out, false, nil
	}

	switch {
	case entry.Kind == models.EntryKindDeposit && status == models.EntryStatusCompleted:
		if _, err := s.applyDelta(entry.UserID, entry.Amount); err != nil {
			return nil, false, err
		}
	case entry.Kind == models.EntryKindWithdrawal && status == models.EntryStatusFailed:
		refund := &models.LedgerEntry{
			UserID:      entry.UserID,
			Description: "Возврат средств по неудавшемуся выводу " + referenceID,
			Amount:      entry.Amount.Neg(),
			Kind:        models.EntryKindWithdrawal,
			Status:      models.EntryStatusCompleted,
		}
		if err := s.checkEntry(refund); err != nil {
			return nil, false, err
		}
		if _, err := s.applyDelta(entry.UserID, refund.Amount); err != nil {
			return nil, false, err
		}
		s.storeEntry(refund)
	}

	now := s.now()
	entry.Status = status
	entry.CompletedAt = &now
	out := *entry
	return &out, true, nil
}

// ListEntries возвращает историю транзакций пользователя, новые сначала.
func (s *Store) ListEntries(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.LedgerEntry{}
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].UserID == userID {
			out = append(out, *s.entries[i])
		}
	}
	return page(out, limit, offset), nil
}

// ListStalePending возвращает ожидающие записи провайдера, созданные раньше before.
func (s *Store) ListStalePending(_ context.Context, kind string, before time.Time, limit int) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.LedgerEntry{}
	for _, entry := range s.entries {
		if entry.Kind != kind || entry.Status != models.EntryStatusPending || entry.ReferenceID == nil {
			continue
		}
		if entry.CreatedAt.Before(before) {
			out = append(out, *entry)
		}
	}
	return page(out, limit, 0), nil
}

func (s *Store) wallet(userID uuid.UUID) *models.Wallet {
	wallet, ok := s.wallets[userID]
	if !ok {
		now := s.now()
		wallet = &models.Wallet{UserID: userID, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}
		s.wallets[userID] = wallet
	}
	return wallet
}

func (s *Store) applyDelta(userID uuid.UUID, delta decimal.Decimal) (*models.Wallet, error) {
	wallet := s.wallet(userID)
	newBalance := wallet.Balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, repository.ErrInsufficientFunds
	}
	wallet.Balance = newBalance
	wallet.UpdatedAt = s.now()
	return wallet, nil
}

func (s *Store) insertEntry(entry *models.LedgerEntry) error {
	if err := s.checkEntry(entry); err != nil {
		return err
	}
	s.storeEntry(entry)
	return nil
}

// checkEntry проверяет запись до изменения остального состояния.
func (s *Store) checkEntry(entry *models.LedgerEntry) error {
	if _, ok := models.ValidEntryKinds[entry.Kind]; !ok {
		return repository.ErrInvalidState
	}
	if _, ok := models.ValidEntryStatuses[entry.Status]; !ok {
		return repository.ErrInvalidState
	}
	if isProviderEntry(entry) {
		if _, exists := s.providerRefs[*entry.ReferenceID]; exists {
			return repository.ErrAlreadyExists
		}
	}
	return nil
}

// storeEntry добавляет проверенную checkEntry запись.
func (s *Store) storeEntry(entry *models.LedgerEntry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	now := s.now()
	entry.CreatedAt = now
	if entry.Status != models.EntryStatusPending {
		entry.CompletedAt = &now
	}

	stored := *entry
	s.entries = append(s.entries, &stored)
	if isProviderEntry(entry) {
		s.providerRefs[*entry.ReferenceID] = &stored
	}
}

func isProviderEntry(entry *models.LedgerEntry) bool {
	return entry.ReferenceID != nil &&
		(entry.Kind == models.EntryKindDeposit || entry.Kind == models.EntryKindWithdrawal)
}

// page применяет limit/offset к уже отсортированному срезу.
func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortByCreatedDesc[T any](items []T, created func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return created(items[i]).After(created(items[j]))
	})
}
