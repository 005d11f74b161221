package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/repository/common"
)

// WorkAssignmentRepository хранит работы, созданные из принятых откликов.
type WorkAssignmentRepository struct {
	db *sqlx.DB
}

func NewWorkAssignmentRepository(db *sqlx.DB) *WorkAssignmentRepository {
	return &WorkAssignmentRepository{db: db}
}

// CreateAssignment создаёт работу. Если для отклика она уже есть, заполняет work
// существующей записью и возвращает created=false.
func (r *WorkAssignmentRepository) CreateAssignment(ctx context.Context, work *models.WorkAssignment) (bool, error) {
	query := `
		INSERT INTO work_assignments (interaction_id, provider_id, client_id, job_id, skill_id, material_id, title, status, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (interaction_id) DO NOTHING
		RETURNING *
	`
	err := r.db.GetContext(ctx, work, query,
		work.InteractionID, work.ProviderID, work.ClientID, work.JobID, work.SkillID, work.MaterialID,
		work.Title, work.Status, work.StartDate,
	)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("work assignment repository: create %w", err)
	}

	existing, err := r.GetAssignmentByInteraction(ctx, work.InteractionID)
	if err != nil {
		return false, err
	}
	*work = *existing
	return false, nil
}

// GetAssignment возвращает работу по идентификатору.
func (r *WorkAssignmentRepository) GetAssignment(ctx context.Context, id uuid.UUID) (*models.WorkAssignment, error) {
	return common.GetByID[models.WorkAssignment](ctx, r.db, "work_assignments", id, ErrNotFound)
}

// GetAssignmentByInteraction возвращает работу, созданную из отклика.
func (r *WorkAssignmentRepository) GetAssignmentByInteraction(ctx context.Context, interactionID uuid.UUID) (*models.WorkAssignment, error) {
	return common.GetByField[models.WorkAssignment](ctx, r.db, "work_assignments", "interaction_id", interactionID, ErrNotFound)
}

// ListAssignments возвращает работы пользователя в любой роли.
func (r *WorkAssignmentRepository) ListAssignments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WorkAssignment, error) {
	works := []models.WorkAssignment{}
	err := r.db.SelectContext(ctx, &works, `
		SELECT * FROM work_assignments
		WHERE provider_id = $1 OR client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("work assignment repository: list %w", err)
	}
	return works, nil
}

// TransitionAssignment меняет статус, только если текущий входит в from. endDate
// записывается, если передан.
func (r *WorkAssignmentRepository) TransitionAssignment(ctx context.Context, id uuid.UUID, from []valueobject.WorkStatus, to valueobject.WorkStatus, endDate *time.Time) (*models.WorkAssignment, error) {
	var work models.WorkAssignment
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &work, `
			UPDATE work_assignments
			SET status = $2, end_date = COALESCE($4, end_date), updated_at = NOW()
			WHERE id = $1 AND status = ANY($3)
			RETURNING *
		`, id, string(to), common.StatusArgs(from), endDate)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("work assignment repository: update status %w", err)
		}
		return missReason(ctx, tx, "work_assignments", id)
	})
	if err != nil {
		return nil, err
	}
	return &work, nil
}

// AttachHold создаёт удержание и привязывает его к работе в одной транзакции.
// Работа без привязки и в незавершённом статусе, иначе ErrInvalidState.
func (r *WorkAssignmentRepository) AttachHold(ctx context.Context, workID uuid.UUID, hold *models.EscrowHold) (*models.WorkAssignment, error) {
	var work models.WorkAssignment
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		locked, err := common.LockByID[models.WorkAssignment](ctx, tx, "work_assignments", workID, ErrNotFound)
		if err != nil {
			return err
		}
		if locked.EscrowHoldID != nil || locked.Status.IsTerminal() {
			return ErrInvalidState
		}

		if err := insertHold(ctx, tx, hold); err != nil {
			return err
		}

		if err := tx.GetContext(ctx, &work, `
			UPDATE work_assignments SET escrow_hold_id = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, workID, hold.ID); err != nil {
			return fmt.Errorf("work assignment repository: attach hold %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &work, nil
}
