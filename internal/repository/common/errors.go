package common

import (
	"errors"

	"github.com/lib/pq"
)

// Общие ошибки для всех репозиториев
var (
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidState      = errors.New("invalid state transition")
	ErrUnknownReference  = errors.New("unknown external reference")
)

// uniqueViolation код ошибки PostgreSQL для нарушения уникальности.
const uniqueViolation = "23505"

// IsUniqueViolation сообщает, что вставка упала на уникальном ограничении.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
