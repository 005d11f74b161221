package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/studgig-backend/internal/http/response"
	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
)

// Ключи gin.Context, которые выставляет AuthMiddleware.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// TokenParser проверяет access токен и возвращает пользователя и роль.
type TokenParser interface {
	ParseAccess(token string) (uuid.UUID, string, error)
}

// AuthMiddleware пускает дальше только запросы с валидным Bearer токеном.
func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Abort(c, http.StatusUnauthorized, apperror.ErrCodeUnauthorized, "требуется авторизация")
			return
		}

		userID, role, err := tokens.ParseAccess(raw)
		if err != nil || userID == uuid.Nil {
			response.Abort(c, http.StatusUnauthorized, apperror.ErrCodeUnauthorized, "токен невалиден")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// bearerToken достаёт токен из заголовка Authorization. Схема без учёта регистра.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
