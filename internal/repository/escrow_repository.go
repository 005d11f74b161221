package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/repository/common"
)

const holdColumns = `id, provider_id, client_id, amount, source_kind, source_id, description, status, created_at, updated_at, released_at`

// EscrowRepository хранит удержания средств.
type EscrowRepository struct {
	db *sqlx.DB
}

func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

// CreateHold списывает средства клиента и создаёт удержание в статусе funded.
func (r *EscrowRepository) CreateHold(ctx context.Context, hold *models.EscrowHold) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		return insertHold(ctx, tx, hold)
	})
}

// GetHold возвращает удержание по идентификатору.
func (r *EscrowRepository) GetHold(ctx context.Context, id uuid.UUID) (*models.EscrowHold, error) {
	var hold models.EscrowHold
	if err := r.db.GetContext(ctx, &hold, `SELECT `+holdColumns+` FROM escrow_holds WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("escrow repository: get hold %w", err)
	}
	return &hold, nil
}

// ListHolds возвращает удержания, где пользователь клиент или исполнитель.
func (r *EscrowRepository) ListHolds(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.EscrowHold, error) {
	holds := []models.EscrowHold{}
	err := r.db.SelectContext(ctx, &holds, `
		SELECT `+holdColumns+` FROM escrow_holds
		WHERE client_id = $1 OR provider_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: list holds %w", err)
	}
	return holds, nil
}

// TransitionHold меняет статус, только если текущий входит в from.
func (r *EscrowRepository) TransitionHold(ctx context.Context, id uuid.UUID, from []valueobject.EscrowStatus, to valueobject.EscrowStatus) (*models.EscrowHold, error) {
	var hold models.EscrowHold
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		return casHold(ctx, tx, &hold, id, from, to)
	})
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

// ReleaseHold переводит удержание в released и зачисляет сумму исполнителю.
// Из двух одновременных вызовов успешен только один.
func (r *EscrowRepository) ReleaseHold(ctx context.Context, id uuid.UUID) (*models.EscrowHold, error) {
	var hold models.EscrowHold
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := casHold(ctx, tx, &hold, id, valueobject.SettleableEscrowStatuses, valueobject.EscrowStatusReleased); err != nil {
			return err
		}

		if _, err := applyDelta(ctx, tx, hold.ProviderID, hold.Amount); err != nil {
			return err
		}

		return insertEntry(ctx, tx, &models.LedgerEntry{
			UserID:        hold.ProviderID,
			Description:   hold.EntryDescription("Получение оплаты"),
			Amount:        hold.Amount,
			Kind:          models.EntryKindRelease,
			Status:        models.EntryStatusCompleted,
			ReferenceID:   models.StringPtr(hold.ID.String()),
			ReferenceType: models.StringPtr(models.ReferenceTypeEscrowHold),
		})
	})
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

// DisputeHold открывает спор. Средства остаются удержанными до ручного разбора.
func (r *EscrowRepository) DisputeHold(ctx context.Context, id uuid.UUID, reason string) (*models.EscrowHold, error) {
	var hold models.EscrowHold
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := casHold(ctx, tx, &hold, id, valueobject.SettleableEscrowStatuses, valueobject.EscrowStatusDisputed); err != nil {
			return err
		}

		return insertEntry(ctx, tx, &models.LedgerEntry{
			UserID:        hold.ClientID,
			Description:   "Спор: " + reason,
			Amount:        hold.Amount,
			Kind:          models.EntryKindPayment,
			Status:        models.EntryStatusPending,
			ReferenceID:   models.StringPtr(hold.ID.String()),
			ReferenceType: models.StringPtr(models.ReferenceTypeEscrowDispute),
		})
	})
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

// insertHold списывает сумму у клиента, создаёт удержание и запись escrow в журнале.
func insertHold(ctx context.Context, tx *sqlx.Tx, hold *models.EscrowHold) error {
	if _, err := applyDelta(ctx, tx, hold.ClientID, hold.Amount.Neg()); err != nil {
		return err
	}

	hold.Status = valueobject.EscrowStatusFunded
	if err := tx.GetContext(ctx, hold, `
		INSERT INTO escrow_holds (provider_id, client_id, amount, source_kind, source_id, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+holdColumns,
		hold.ProviderID, hold.ClientID, hold.Amount, hold.SourceKind, hold.SourceID, hold.Description, hold.Status,
	); err != nil {
		return fmt.Errorf("escrow repository: insert hold %w", err)
	}

	return insertEntry(ctx, tx, &models.LedgerEntry{
		UserID:        hold.ClientID,
		Description:   hold.EntryDescription("Заморозка средств"),
		Amount:        hold.Amount.Neg(),
		Kind:          models.EntryKindEscrow,
		Status:        models.EntryStatusCompleted,
		ReferenceID:   models.StringPtr(hold.ID.String()),
		ReferenceType: models.StringPtr(models.ReferenceTypeEscrowHold),
	})
}

// casHold атомарно проверяет и меняет статус удержания.
func casHold(ctx context.Context, tx *sqlx.Tx, hold *models.EscrowHold, id uuid.UUID, from []valueobject.EscrowStatus, to valueobject.EscrowStatus) error {
	query := `
		UPDATE escrow_holds
		SET status = $2,
		    updated_at = NOW(),
		    released_at = CASE WHEN $2 = 'released' THEN NOW() ELSE released_at END
		WHERE id = $1 AND status = ANY($3)
		RETURNING ` + holdColumns
	err := tx.GetContext(ctx, hold, query, id, string(to), common.StatusArgs(from))
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("escrow repository: update status %w", err)
	}
	return missReason(ctx, tx, "escrow_holds", id)
}

// missReason отличает отсутствующую строку от неподходящего статуса.
func missReason(ctx context.Context, tx *sqlx.Tx, table string, id uuid.UUID) error {
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("%s: check exists %w", table, err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidState
}
