package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
)

// Invoice счёт исполнителя за завершённую работу.
type Invoice struct {
	ID               uuid.UUID                 `db:"id" json:"id"`
	UserID           uuid.UUID                 `db:"user_id" json:"user_id"`
	WorkAssignmentID uuid.UUID                 `db:"work_assignment_id" json:"work_assignment_id"`
	Number           string                    `db:"number" json:"number"`
	ClientName       string                    `db:"client_name" json:"client_name"`
	Title            string                    `db:"title" json:"title"`
	Amount           decimal.Decimal           `db:"amount" json:"amount"`
	Status           valueobject.InvoiceStatus `db:"status" json:"status"`
	IssuedDate       time.Time                 `db:"issued_date" json:"issued_date"`
	DueDate          time.Time                 `db:"due_date" json:"due_date"`
	CreatedAt        time.Time                 `db:"created_at" json:"created_at"`
}
