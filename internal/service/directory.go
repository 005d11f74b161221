package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
)

// SubjectRepository читает объявления (работы, навыки, материалы).
type SubjectRepository interface {
	GetSubject(ctx context.Context, kind valueobject.SubjectKind, id uuid.UUID) (*models.Subject, error)
}

// UserRepository читает сведения о пользователях.
type UserRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

const directoryTTL = 5 * time.Minute

// Directory кэширует объявления и пользователей, к которым часто обращаются переходы.
type Directory struct {
	subjects SubjectRepository
	users    UserRepository
	cache    *CacheService
}

func NewDirectory(subjects SubjectRepository, users UserRepository, cache *CacheService) *Directory {
	return &Directory{subjects: subjects, users: users, cache: cache}
}

// Subject возвращает объявление или apperror.ErrSubjectNotFound.
func (d *Directory) Subject(ctx context.Context, kind valueobject.SubjectKind, id uuid.UUID) (*models.Subject, error) {
	value, err := d.cache.GetOrSet(ctx, SubjectCacheKey(string(kind), id), directoryTTL, func() (interface{}, error) {
		return d.subjects.GetSubject(ctx, kind, id)
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrSubjectNotFound, "")
	}
	subject := *value.(*models.Subject)
	return &subject, nil
}

// DisplayName возвращает имя пользователя для счетов и уведомлений.
// Если пользователь не найден, возвращает fallback.
func (d *Directory) DisplayName(ctx context.Context, userID uuid.UUID, fallback string) string {
	value, err := d.cache.GetOrSet(ctx, UserCacheKey(userID), directoryTTL, func() (interface{}, error) {
		return d.users.GetUser(ctx, userID)
	})
	if err != nil {
		return fallback
	}
	user := value.(*models.User)
	switch {
	case user.DisplayName != "":
		return user.DisplayName
	case user.Email != "":
		return user.Email
	}
	return fallback
}

// Email возвращает email пользователя или пустую строку.
func (d *Directory) Email(ctx context.Context, userID uuid.UUID) string {
	value, err := d.cache.GetOrSet(ctx, UserCacheKey(userID), directoryTTL, func() (interface{}, error) {
		return d.users.GetUser(ctx, userID)
	})
	if err != nil {
		return ""
	}
	return value.(*models.User).Email
}
