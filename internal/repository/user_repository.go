package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/repository/common"
)

// UserRepository читает сведения о пользователях, заведённых сервисом авторизации.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUser возвращает пользователя по идентификатору.
func (r *UserRepository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetOne[models.User](ctx, r.db, ErrNotFound,
		`SELECT id, email, display_name, created_at FROM users WHERE id = $1`, id)
}
