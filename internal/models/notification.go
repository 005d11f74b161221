package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений
const (
	NotificationInteraction = "interaction"
	NotificationWork        = "work"
	NotificationEscrow      = "escrow"
	NotificationInvoice     = "invoice"
	NotificationWallet      = "wallet"
)

// Notification описывает событие, отправленное пользователю.
type Notification struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	Title         string     `db:"title" json:"title"`
	Message       string     `db:"message" json:"message"`
	Kind          string     `db:"kind" json:"kind"`
	ReferenceID   *uuid.UUID `db:"reference_id" json:"reference_id,omitempty"`
	ReferenceType *string    `db:"reference_type" json:"reference_type,omitempty"`
	IsRead        bool       `db:"is_read" json:"is_read"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
