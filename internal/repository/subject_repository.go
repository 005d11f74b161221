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
)

// subjectQueries приводят таблицы работ, навыков и материалов к общему виду.
var subjectQueries = map[valueobject.SubjectKind]string{
	valueobject.SubjectJob:      `SELECT id, 'job' AS kind, poster_id AS owner_id, title, payment AS price, created_at FROM jobs WHERE id = $1`,
	valueobject.SubjectSkill:    `SELECT id, 'skill' AS kind, user_id AS owner_id, title, price, created_at FROM skills WHERE id = $1`,
	valueobject.SubjectMaterial: `SELECT id, 'material' AS kind, user_id AS owner_id, title, price, created_at FROM materials WHERE id = $1`,
}

// SubjectRepository читает объявления. Их создание и редактирование живут в другом сервисе.
type SubjectRepository struct {
	db *sqlx.DB
}

func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// GetSubject возвращает объявление заданного типа.
func (r *SubjectRepository) GetSubject(ctx context.Context, kind valueobject.SubjectKind, id uuid.UUID) (*models.Subject, error) {
	query, ok := subjectQueries[kind]
	if !ok {
		return nil, ErrNotFound
	}

	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("subject repository: get %s %w", kind, err)
	}
	return &subject, nil
}
