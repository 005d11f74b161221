package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
)

// Interaction отклик на работу или запрос по навыку/материалу.
// Общие поля обрабатывает машина состояний, остальные зависят от Kind.
type Interaction struct {
	ID          uuid.UUID                     `db:"id" json:"id"`
	Kind        valueobject.InteractionKind   `db:"kind" json:"kind"`
	RequesterID uuid.UUID                     `db:"requester_id" json:"requester_id"`
	OwnerID     uuid.UUID                     `db:"owner_id" json:"owner_id"`
	SubjectID   uuid.UUID                     `db:"subject_id" json:"subject_id"`
	Status      valueobject.InteractionStatus `db:"status" json:"status"`
	StatusLabel string                        `db:"-" json:"status_label"`

	// Поля отклика на работу.
	CoverLetter    *string          `db:"cover_letter" json:"cover_letter,omitempty"`
	ProposedAmount *decimal.Decimal `db:"proposed_amount" json:"proposed_amount,omitempty"`

	// Поля запроса по навыку или материалу.
	Message  *string `db:"message" json:"message,omitempty"`
	Quantity *int    `db:"quantity" json:"quantity,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WithLabel заполняет пользовательское название статуса.
func (i *Interaction) WithLabel() *Interaction {
	i.StatusLabel = i.Status.Label(i.Kind)
	return i
}

// Provider возвращает исполнителя: откликнувшегося на работу или владельца навыка/материала.
func (i *Interaction) Provider() uuid.UUID {
	if i.Kind == valueobject.InteractionJobApplication {
		return i.RequesterID
	}
	return i.OwnerID
}

// Client возвращает заказчика: автора работы или автора запроса.
func (i *Interaction) Client() uuid.UUID {
	if i.Kind == valueobject.InteractionJobApplication {
		return i.OwnerID
	}
	return i.RequesterID
}

// Counterparty возвращает вторую сторону относительно userID.
func (i *Interaction) Counterparty(userID uuid.UUID) uuid.UUID {
	if userID == i.RequesterID {
		return i.OwnerID
	}
	return i.RequesterID
}
