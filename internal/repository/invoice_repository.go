package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/repository/common"
)

// InvoiceRepository хранит счета исполнителей.
type InvoiceRepository struct {
	db *sqlx.DB
}

func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// CreateInvoice создаёт счёт. На одну работу приходится один счёт: при повторе
// invoice заполняется существующим и возвращается created=false.
func (r *InvoiceRepository) CreateInvoice(ctx context.Context, invoice *models.Invoice) (bool, error) {
	err := r.db.GetContext(ctx, invoice, `
		INSERT INTO invoices (user_id, work_assignment_id, number, client_name, title, amount, status, issued_date, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (work_assignment_id) DO NOTHING
		RETURNING *
	`,
		invoice.UserID, invoice.WorkAssignmentID, invoice.Number, invoice.ClientName, invoice.Title,
		invoice.Amount, invoice.Status, invoice.IssuedDate, invoice.DueDate,
	)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("invoice repository: create %w", err)
	}

	existing, err := r.GetInvoiceByAssignment(ctx, invoice.WorkAssignmentID)
	if err != nil {
		return false, err
	}
	*invoice = *existing
	return false, nil
}

// GetInvoice возвращает счёт по идентификатору.
func (r *InvoiceRepository) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	return common.GetByID[models.Invoice](ctx, r.db, "invoices", id, ErrNotFound)
}

// GetInvoiceByAssignment возвращает счёт работы.
func (r *InvoiceRepository) GetInvoiceByAssignment(ctx context.Context, workID uuid.UUID) (*models.Invoice, error) {
	return common.GetByField[models.Invoice](ctx, r.db, "invoices", "work_assignment_id", workID, ErrNotFound)
}

// ListInvoices возвращает счета исполнителя.
func (r *InvoiceRepository) ListInvoices(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	err := r.db.SelectContext(ctx, &invoices, `
		SELECT * FROM invoices WHERE user_id = $1
		ORDER BY issued_date DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("invoice repository: list %w", err)
	}
	return invoices, nil
}

// TransitionInvoice меняет статус, только если текущий входит в from.
func (r *InvoiceRepository) TransitionInvoice(ctx context.Context, id uuid.UUID, from []valueobject.InvoiceStatus, to valueobject.InvoiceStatus) (*models.Invoice, error) {
	var invoice models.Invoice
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &invoice, `
			UPDATE invoices SET status = $2
			WHERE id = $1 AND status = ANY($3)
			RETURNING *
		`, id, string(to), common.StatusArgs(from))
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("invoice repository: update status %w", err)
		}
		return missReason(ctx, tx, "invoices", id)
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// MarkOverdue переводит просроченные ожидающие счета в overdue и возвращает их.
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	err := r.db.SelectContext(ctx, &invoices, `
		UPDATE invoices SET status = 'overdue'
		WHERE status = 'pending' AND due_date < $1
		RETURNING *
	`, now)
	if err != nil {
		return nil, fmt.Errorf("invoice repository: mark overdue %w", err)
	}
	return invoices, nil
}

// InvoiceSequenceRepository выдаёт номера счетов из таблицы invoice_sequences.
type InvoiceSequenceRepository struct {
	db *sqlx.DB
}

func NewInvoiceSequenceRepository(db *sqlx.DB) *InvoiceSequenceRepository {
	return &InvoiceSequenceRepository{db: db}
}

// Next увеличивает счётчик года. Upsert берёт блокировку строки года, поэтому
// параллельные вызовы получают разные значения.
func (r *InvoiceSequenceRepository) Next(ctx context.Context, year int) (int64, error) {
	var value int64
	err := r.db.GetContext(ctx, &value, `
		INSERT INTO invoice_sequences (year, last_value) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = invoice_sequences.last_value + 1
		RETURNING last_value
	`, year)
	if err != nil {
		return 0, fmt.Errorf("invoice sequence repository: next %w", err)
	}
	return value, nil
}
