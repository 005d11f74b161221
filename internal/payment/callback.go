package payment

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/models"
)

// События обратных вызовов шлюза
const (
	EventSuccess = "success"
	EventFail    = "fail"
	EventCancel  = "cancel"
	EventIPN     = "ipn"
)

// Callback тело обратного вызова провайдера.
type Callback struct {
	TransactionID string          `json:"transaction_id"`
	ValidationID  string          `json:"validation_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
}

// IsKnownEvent сообщает, обрабатывается ли событие.
func IsKnownEvent(event string) bool {
	switch event {
	case EventSuccess, EventFail, EventCancel, EventIPN:
		return true
	}
	return false
}

// ResolveStatus определяет итоговый статус записи журнала по событию и статусу провайдера.
// ok=false означает, что платёж ещё не завершён и сверять нечего.
func ResolveStatus(event, providerStatus string) (string, bool) {
	switch event {
	case EventFail, EventCancel:
		return models.EntryStatusFailed, true
	case EventSuccess, EventIPN:
		switch strings.ToUpper(providerStatus) {
		case "VALID", "VALIDATED", "SUCCESS", "COMPLETED":
			return models.EntryStatusCompleted, true
		case "FAILED", "CANCELLED", "EXPIRED":
			return models.EntryStatusFailed, true
		}
	}
	return "", false
}
