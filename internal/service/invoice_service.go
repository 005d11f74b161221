package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/logger"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
)

// DefaultInvoiceDueDays срок оплаты счёта по умолчанию.
const DefaultInvoiceDueDays = 14

type InvoiceRepository interface {
	CreateInvoice(ctx context.Context, invoice *models.Invoice) (bool, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	GetInvoiceByAssignment(ctx context.Context, workID uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Invoice, error)
	TransitionInvoice(ctx context.Context, id uuid.UUID, from []valueobject.InvoiceStatus, to valueobject.InvoiceStatus) (*models.Invoice, error)
	MarkOverdue(ctx context.Context, now time.Time) ([]models.Invoice, error)
}

// InvoiceSequencer выдаёт номера счетов, уникальные в пределах года.
type InvoiceSequencer interface {
	Next(ctx context.Context, year int) (int64, error)
}

// InvoiceService выставляет счета по завершённым работам.
type InvoiceService struct {
	repo      InvoiceRepository
	sequencer InvoiceSequencer
	directory *Directory
	notifier  Notifier
	dueDays   int
	now       func() time.Time
}

func NewInvoiceService(repo InvoiceRepository, sequencer InvoiceSequencer, directory *Directory, notifier Notifier, dueDays int) *InvoiceService {
	if dueDays <= 0 {
		dueDays = DefaultInvoiceDueDays
	}
	return &InvoiceService{
		repo:      repo,
		sequencer: sequencer,
		directory: directory,
		notifier:  notifier,
		dueDays:   dueDays,
		now:       time.Now,
	}
}

// FormatInvoiceNumber собирает номер вида INV-YY-NNNN.
func FormatInvoiceNumber(year int, seq int64) string {
	return fmt.Sprintf("INV-%02d-%04d", year%100, seq)
}

// CreateFromWorkAssignment выставляет счёт исполнителю работы.
// Без amount сумма и название берутся из объявления. Повторный вызов возвращает уже созданный счёт.
func (s *InvoiceService) CreateFromWorkAssignment(ctx context.Context, work *models.WorkAssignment, amount *decimal.Decimal) (*models.Invoice, error) {
	existing, err := s.repo.GetInvoiceByAssignment(ctx, work.ID)
	if err == nil {
		return existing, nil
	}
	if !apperror.IsNotFound(storeError(err, apperror.ErrInvoiceNotFound, "")) {
		return nil, storeError(err, apperror.ErrInvoiceNotFound, "")
	}

	kind, subjectID := work.Subject()
	subject, err := s.directory.Subject(ctx, kind, subjectID)
	if err != nil {
		return nil, err
	}

	total := subject.Price
	if amount != nil {
		total = *amount
	}
	if total, err = valueobject.NewPositiveAmount(total); err != nil {
		return nil, err
	}

	title := work.Title
	if title == "" {
		title = subject.Title
	}

	issued := s.now()
	seq, err := s.sequencer.Next(ctx, issued.Year())
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить номер счёта")
	}

	invoice := &models.Invoice{
		UserID:           work.ProviderID,
		WorkAssignmentID: work.ID,
		Number:           FormatInvoiceNumber(issued.Year(), seq),
		ClientName:       s.directory.DisplayName(ctx, work.ClientID, "Клиент"),
		Title:            title,
		Amount:           total,
		Status:           valueobject.InvoiceStatusPending,
		IssuedDate:       issued,
		DueDate:          issued.AddDate(0, 0, s.dueDays),
	}

	created, err := s.repo.CreateInvoice(ctx, invoice)
	if err != nil {
		return nil, storeError(err, apperror.ErrInvoiceNotFound, "")
	}
	if !created {
		return invoice, nil
	}

	logger.Log.WithFields(map[string]interface{}{
		"invoice_id":         invoice.ID,
		"number":             invoice.Number,
		"work_assignment_id": work.ID,
		"amount":             invoice.Amount.String(),
	}).Info("invoice service: счёт выставлен")

	s.notifier.Notify(work.ProviderID, "Счёт выставлен", "Счёт "+invoice.Number+" на сумму "+invoice.Amount.StringFixed(2),
		models.NotificationInvoice, invoice.ID, models.ReferenceTypeInvoice)
	return invoice, nil
}

// UpdateStatus отмечает счёт оплаченным или отменённым. Доступно только владельцу счёта.
func (s *InvoiceService) UpdateStatus(ctx context.Context, invoiceID, userID uuid.UUID, status string) (*models.Invoice, error) {
	to, err := valueobject.NewInvoiceStatus(status)
	if err != nil {
		return nil, err
	}
	if to != valueobject.InvoiceStatusPaid && to != valueobject.InvoiceStatusCancelled {
		return nil, apperror.New(apperror.ErrCodeValidation, "счёт можно только оплатить или отменить")
	}

	invoice, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, storeError(err, apperror.ErrInvoiceNotFound, "")
	}
	if invoice.UserID != userID {
		return nil, apperror.ErrForbidden
	}

	updated, err := s.repo.TransitionInvoice(ctx, invoiceID, to.Predecessors(), to)
	if err != nil {
		return nil, storeError(err, apperror.ErrInvoiceNotFound, "статус счёта уже нельзя изменить")
	}
	return updated, nil
}

// MarkOverdue переводит просроченные счета в overdue и уведомляет владельцев.
func (s *InvoiceService) MarkOverdue(ctx context.Context) (int, error) {
	invoices, err := s.repo.MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, storeError(err, apperror.ErrInvoiceNotFound, "")
	}
	for _, invoice := range invoices {
		s.notifier.Notify(invoice.UserID, "Счёт просрочен", "Срок оплаты счёта "+invoice.Number+" истёк",
			models.NotificationInvoice, invoice.ID, models.ReferenceTypeInvoice)
	}
	return len(invoices), nil
}

// Get возвращает счёт владельцу.
func (s *InvoiceService) Get(ctx context.Context, invoiceID, userID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, storeError(err, apperror.ErrInvoiceNotFound, "")
	}
	if invoice.UserID != userID {
		return nil, apperror.ErrForbidden
	}
	return invoice, nil
}

// List возвращает счета пользователя.
func (s *InvoiceService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Invoice, error) {
	limit, offset = normalizePage(limit, offset)
	invoices, err := s.repo.ListInvoices(ctx, userID, limit, offset)
	if err != nil {
		return nil, storeError(err, apperror.ErrInvoiceNotFound, "")
	}
	return invoices, nil
}
