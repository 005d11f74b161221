package valueobject

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
)

// MoneyScale количество знаков после запятой для всех сумм.
const MoneyScale = 2

// NewPositiveAmount проверяет, что сумма положительна и не содержит долей меньше копейки.
func NewPositiveAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperror.ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(MoneyScale)) {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "сумма может содержать не более двух знаков после запятой")
	}
	return amount.Round(MoneyScale), nil
}

// ParseAmount разбирает сумму из строки запроса.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "некорректная сумма")
	}
	return NewPositiveAmount(amount)
}
