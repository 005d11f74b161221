// Package common содержит разбор запроса, общий для всех хэндлеров.
package common

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/studgig-backend/internal/http/middleware"
	"github.com/ignatzorin/studgig-backend/internal/http/response"
	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
)

// Пагинация списков
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ErrUserNotFound в контексте нет пользователя, AuthMiddleware не отработал.
var ErrUserNotFound = errors.New("пользователь не найден в контексте")

// CurrentUserID достаёт пользователя, выставленного AuthMiddleware.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrUserNotFound
	}
	userID, ok := raw.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, ErrUserNotFound
	}
	return userID, nil
}

// RequireUser возвращает пользователя или отвечает 401.
func RequireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, err := CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return uuid.Nil, false
	}
	return userID, true
}

// ParseUUIDParam разбирает UUID из параметра пути или отвечает 400.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "неверный формат "+name)
		return uuid.Nil, false
	}
	return parsed, true
}

// BindJSON разбирает тело запроса или отвечает 400.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное тело запроса"))
		return false
	}
	return true
}

// ParseIntQuery читает целый query-параметр; пустое или нечисловое значение даёт fallback.
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	parsed, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return parsed
}

// GetPagination читает limit и offset, приводя их к допустимому диапазону.
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", DefaultPageLimit)
	offset = ParseIntQuery(c, "offset", 0)
	switch {
	case limit < 1:
		limit = DefaultPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
