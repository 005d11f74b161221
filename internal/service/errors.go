package service

import (
	"errors"

	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
	"github.com/ignatzorin/studgig-backend/internal/repository"
)

// storeError переводит ошибки хранилища в ошибки приложения.
// notFound и invalidState задают текст для конкретной сущности.
func storeError(err error, notFound *apperror.AppError, invalidState string) error {
	var appErr *apperror.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrInvalidState):
		return apperror.InvalidState(invalidState)
	case errors.Is(err, repository.ErrInsufficientFunds):
		return apperror.ErrInsufficientFunds
	case errors.Is(err, repository.ErrUnknownReference):
		return apperror.ErrUnknownReference
	case errors.Is(err, repository.ErrAlreadyExists):
		return apperror.Wrap(err, apperror.ErrCodeConflict, "запись уже существует")
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка хранилища")
}

// normalizePage ограничивает параметры пагинации.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
