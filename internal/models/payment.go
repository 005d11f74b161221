package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
)

// Wallet представляет баланс пользователя.
type Wallet struct {
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// LedgerEntry строка журнала транзакций. Сумма после вставки не меняется.
type LedgerEntry struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	Description   string          `db:"description" json:"description"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Kind          string          `db:"kind" json:"kind"`
	Status        string          `db:"status" json:"status"`
	ReferenceID   *string         `db:"reference_id" json:"reference_id,omitempty"`
	ReferenceType *string         `db:"reference_type" json:"reference_type,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// EscrowHold средства клиента, удерживаемые платформой до выплаты исполнителю.
type EscrowHold struct {
	ID          uuid.UUID                `db:"id" json:"id"`
	ProviderID  uuid.UUID                `db:"provider_id" json:"provider_id"`
	ClientID    uuid.UUID                `db:"client_id" json:"client_id"`
	Amount      decimal.Decimal          `db:"amount" json:"amount"`
	SourceKind  *string                  `db:"source_kind" json:"source_kind,omitempty"`
	SourceID    *uuid.UUID               `db:"source_id" json:"source_id,omitempty"`
	Description string                   `db:"description" json:"description"`
	Status      valueobject.EscrowStatus `db:"status" json:"status"`
	CreatedAt   time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time                `db:"updated_at" json:"updated_at"`
	ReleasedAt  *time.Time               `db:"released_at" json:"released_at,omitempty"`
}

// IsParticipant сообщает, является ли пользователь стороной сделки.
func (h *EscrowHold) IsParticipant(userID uuid.UUID) bool {
	return h.ClientID == userID || h.ProviderID == userID
}

// EntryDescription описание записи журнала по удержанию.
func (h *EscrowHold) EntryDescription(prefix string) string {
	if h.Description == "" {
		return prefix
	}
	return prefix + ": " + h.Description
}

// StringPtr вспомогательная функция для необязательных строковых полей.
func StringPtr(v string) *string {
	return &v
}
