package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/repository/common"
)

const entryColumns = `id, user_id, description, amount, kind, status, reference_id, reference_type, created_at, completed_at`

// LedgerRepository хранит кошельки и журнал транзакций.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// GetOrCreateWallet возвращает кошелёк пользователя, создаёт если не существует.
func (r *LedgerRepository) GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if _, err := r.db.ExecContext(ctx, `INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return nil, fmt.Errorf("ledger repository: create wallet %w", err)
	}

	var wallet models.Wallet
	if err := r.db.GetContext(ctx, &wallet, `SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("ledger repository: get wallet %w", err)
	}
	return &wallet, nil
}

// AdjustBalance применяет сумму записи к кошельку и добавляет запись в журнал в одной транзакции.
func (r *LedgerRepository) AdjustBalance(ctx context.Context, entry *models.LedgerEntry) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		wallet, err = applyDelta(ctx, tx, entry.UserID, entry.Amount)
		if err != nil {
			return err
		}
		return insertEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// AppendEntry добавляет запись без изменения баланса (ожидающие операции провайдера).
func (r *LedgerRepository) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		return insertEntry(ctx, tx, entry)
	})
}

// GetEntryByReference возвращает запись провайдера по внешней ссылке.
func (r *LedgerRepository) GetEntryByReference(ctx context.Context, referenceID string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	query := `SELECT ` + entryColumns + ` FROM transactions
		WHERE reference_id = $1 AND kind IN ('deposit', 'withdrawal')`
	if err := r.db.GetContext(ctx, &entry, query, referenceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownReference
		}
		return nil, fmt.Errorf("ledger repository: get by reference %w", err)
	}
	return &entry, nil
}

// ReconcileByReference переводит ожидающую запись провайдера в конечный статус.
// Повторный вызов для уже завершённой записи ничего не меняет и возвращает applied=false.
func (r *LedgerRepository) ReconcileByReference(ctx context.Context, referenceID, status string) (*models.LedgerEntry, bool, error) {
	var (
		entry   models.LedgerEntry
		applied bool
	)

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `SELECT ` + entryColumns + ` FROM transactions
			WHERE reference_id = $1 AND kind IN ('deposit', 'withdrawal')
			FOR UPDATE`
		if err := tx.GetContext(ctx, &entry, query, referenceID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUnknownReference
			}
			return fmt.Errorf("ledger repository: lock entry %w", err)
		}

		if models.IsTerminalEntryStatus(entry.Status) {
			return nil
		}

		if err := tx.GetContext(ctx, &entry.CompletedAt, `
			UPDATE transactions SET status = $2, completed_at = NOW()
			WHERE id = $1
			RETURNING completed_at
		`, entry.ID, status); err != nil {
			return fmt.Errorf("ledger repository: update entry status %w", err)
		}
		entry.Status = status
		applied = true

		switch {
		case entry.Kind == models.EntryKindDeposit && status == models.EntryStatusCompleted:
			if _, err := applyDelta(ctx, tx, entry.UserID, entry.Amount); err != nil {
				return err
			}
		case entry.Kind == models.EntryKindWithdrawal && status == models.EntryStatusFailed:
			refund := entry.Amount.Neg()
			if _, err := applyDelta(ctx, tx, entry.UserID, refund); err != nil {
				return err
			}
			return insertEntry(ctx, tx, &models.LedgerEntry{
				UserID:      entry.UserID,
				Description: fmt.Sprintf("Возврат средств по неудавшемуся выводу %s", referenceID),
				Amount:      refund,
				Kind:        models.EntryKindWithdrawal,
				Status:      models.EntryStatusCompleted,
			})
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &entry, applied, nil
}

// ListEntries возвращает историю транзакций пользователя.
func (r *LedgerRepository) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT `+entryColumns+`
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: list entries %w", err)
	}
	return entries, nil
}

// ListStalePending возвращает ожидающие записи заданного типа, созданные раньше before.
func (r *LedgerRepository) ListStalePending(ctx context.Context, kind string, before time.Time, limit int) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT `+entryColumns+`
		FROM transactions
		WHERE kind = $1 AND status = 'pending' AND reference_id IS NOT NULL AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`, kind, before, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: list stale pending %w", err)
	}
	return entries, nil
}

// applyDelta блокирует кошелёк и меняет баланс. Отрицательный итог даёт ErrInsufficientFunds.
func applyDelta(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta decimal.Decimal) (*models.Wallet, error) {
	if _, err := tx.ExecContext(ctx, `INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return nil, fmt.Errorf("ledger repository: ensure wallet %w", err)
	}

	var wallet models.Wallet
	if err := tx.GetContext(ctx, &wallet, `
		SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE
	`, userID); err != nil {
		return nil, fmt.Errorf("ledger repository: lock wallet %w", err)
	}

	newBalance := wallet.Balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	if err := tx.GetContext(ctx, &wallet, `
		UPDATE wallets SET balance = $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING user_id, balance, created_at, updated_at
	`, userID, newBalance); err != nil {
		return nil, fmt.Errorf("ledger repository: update balance %w", err)
	}
	return &wallet, nil
}

// insertEntry вставляет запись журнала. Идентификатор назначается заранее,
// чтобы его можно было использовать как внешнюю ссылку.
func insertEntry(ctx context.Context, tx *sqlx.Tx, entry *models.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	query := `
		INSERT INTO transactions (id, user_id, description, amount, kind, status, reference_id, reference_type, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CASE WHEN $6 = 'pending' THEN NULL ELSE NOW() END)
		RETURNING created_at, completed_at
	`
	if err := tx.QueryRowxContext(
		ctx, query,
		entry.ID, entry.UserID, entry.Description, entry.Amount, entry.Kind, entry.Status,
		entry.ReferenceID, entry.ReferenceType,
	).Scan(&entry.CreatedAt, &entry.CompletedAt); err != nil {
		return entryInsertError(err)
	}
	return nil
}

// entryInsertError повтор внешней ссылки провайдера даёт ErrAlreadyExists, как в памяти.
func entryInsertError(err error) error {
	if common.IsUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return fmt.Errorf("ledger repository: insert entry %w", err)
}
