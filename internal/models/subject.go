package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
)

// Subject общий вид объявления (работа, навык или материал).
// Для работы OwnerID это заказчик, для навыка и материала это исполнитель.
type Subject struct {
	ID        uuid.UUID               `db:"id" json:"id"`
	Kind      valueobject.SubjectKind `db:"kind" json:"kind"`
	OwnerID   uuid.UUID               `db:"owner_id" json:"owner_id"`
	Title     string                  `db:"title" json:"title"`
	Price     decimal.Decimal         `db:"price" json:"price"`
	CreatedAt time.Time               `db:"created_at" json:"created_at"`
}
