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

// InteractionRepository хранит отклики на работы и запросы по навыкам и материалам.
type InteractionRepository struct {
	db *sqlx.DB
}

func NewInteractionRepository(db *sqlx.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// CreateInteraction создаёт отклик. Повтор для той же пары (автор, объявление) даёт ErrAlreadyExists.
func (r *InteractionRepository) CreateInteraction(ctx context.Context, interaction *models.Interaction) error {
	query := `
		INSERT INTO interactions (kind, requester_id, owner_id, subject_id, status, cover_letter, proposed_amount, message, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		interaction.Kind, interaction.RequesterID, interaction.OwnerID, interaction.SubjectID, interaction.Status,
		interaction.CoverLetter, interaction.ProposedAmount, interaction.Message, interaction.Quantity,
	).Scan(&interaction.ID, &interaction.CreatedAt, &interaction.UpdatedAt); err != nil {
		if common.IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("interaction repository: create %w", err)
	}

	return nil
}

// GetInteraction возвращает отклик по идентификатору.
func (r *InteractionRepository) GetInteraction(ctx context.Context, id uuid.UUID) (*models.Interaction, error) {
	return common.GetByID[models.Interaction](ctx, r.db, "interactions", id, ErrNotFound)
}

// ListInteractions возвращает отклики, где пользователь автор (requester) или владелец объявления (owner).
func (r *InteractionRepository) ListInteractions(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]models.Interaction, error) {
	column := "requester_id"
	if role == models.RoleOwner {
		column = "owner_id"
	}

	interactions := []models.Interaction{}
	query := fmt.Sprintf(`
		SELECT * FROM interactions
		WHERE %s = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, column)
	if err := r.db.SelectContext(ctx, &interactions, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("interaction repository: list %w", err)
	}

	return interactions, nil
}

// TransitionInteraction меняет статус, только если текущий входит в from.
func (r *InteractionRepository) TransitionInteraction(ctx context.Context, id uuid.UUID, from []valueobject.InteractionStatus, to valueobject.InteractionStatus) (*models.Interaction, error) {
	var interaction models.Interaction
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &interaction, `
			UPDATE interactions SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status = ANY($3)
			RETURNING *
		`, id, string(to), common.StatusArgs(from))
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("interaction repository: update status %w", err)
		}
		return missReason(ctx, tx, "interactions", id)
	})
	if err != nil {
		return nil, err
	}
	return &interaction, nil
}
