package worker

import (
	"context"
	"time"
)

type depositExpirer interface {
	ExpireStaleDeposits(ctx context.Context, ttl time.Duration) (int, error)
}

type overdueMarker interface {
	MarkOverdue(ctx context.Context) (int, error)
}

// NewDepositExpirer закрывает пополнения, не подтверждённые шлюзом за ttl.
func NewDepositExpirer(ledger depositExpirer, interval, ttl time.Duration) *Sweeper {
	return NewSweeper("deposit_expirer", interval, func(ctx context.Context) (int, error) {
		return ledger.ExpireStaleDeposits(ctx, ttl)
	})
}

// NewOverdueInvoiceMarker переводит просроченные счета в overdue.
func NewOverdueInvoiceMarker(invoices overdueMarker, interval time.Duration) *Sweeper {
	return NewSweeper("overdue_invoices", interval, invoices.MarkOverdue)
}
