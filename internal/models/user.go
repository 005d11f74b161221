package models

import (
	"time"

	"github.com/google/uuid"
)

// User сведения о пользователе, нужные для счетов и уведомлений.
// Учётные записи ведёт внешний сервис авторизации.
type User struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	DisplayName string    `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
