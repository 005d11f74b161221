package models

// Типы записей журнала
const (
	EntryKindDeposit    = "deposit"
	EntryKindWithdrawal = "withdrawal"
	EntryKindEscrow     = "escrow"
	EntryKindRelease    = "release"
	EntryKindPayment    = "payment"
)

// Статусы записей журнала
const (
	EntryStatusPending   = "pending"
	EntryStatusCompleted = "completed"
	EntryStatusFailed    = "failed"
)

// Типы ссылок записей журнала
const (
	ReferenceTypeEscrowHold    = "escrow_hold"
	ReferenceTypeEscrowDispute = "escrow_dispute"
	ReferenceTypePayout        = "payout"
)

// Типы ссылок уведомлений
const (
	ReferenceTypeInteraction    = "interaction"
	ReferenceTypeWorkAssignment = "work_assignment"
	ReferenceTypeInvoice        = "invoice"
	ReferenceTypeTransaction    = "transaction"
)

// IsTerminalEntryStatus сообщает, что запись больше не меняет статус.
func IsTerminalEntryStatus(status string) bool {
	return status == EntryStatusCompleted || status == EntryStatusFailed
}

// ValidEntryStatuses список допустимых статусов записей журнала
var ValidEntryStatuses = map[string]struct{}{
	EntryStatusPending:   {},
	EntryStatusCompleted: {},
	EntryStatusFailed:    {},
}

// ValidEntryKinds список допустимых типов записей журнала
var ValidEntryKinds = map[string]struct{}{
	EntryKindDeposit:    {},
	EntryKindWithdrawal: {},
	EntryKindEscrow:     {},
	EntryKindRelease:    {},
	EntryKindPayment:    {},
}

// Роли пользователя в выборке откликов
const (
	RoleRequester = "requester"
	RoleOwner     = "owner"
)
