package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/studgig-backend/internal/http/response"
	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
)

// RateLimitMiddleware ограничивает количество запросов с одного ключа.
// Ключ по умолчанию IP клиента; для защищённых маршрутов используется userID.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = 1 * time.Minute
	}

	instance := limiter.New(memory.NewStore(), limiter.Rate{
		Period: period,
		Limit:  limit,
	})

	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, ok := c.Get(ContextUserIDKey); ok {
			key = "user:" + toString(userID)
		}

		context, err := instance.Get(c, key)
		if err != nil {
			response.Abort(c, http.StatusInternalServerError, apperror.ErrCodeInternal, "внутренняя ошибка сервера")
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(context.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(context.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(context.Reset, 10))

		if context.Reached {
			response.Abort(c, http.StatusTooManyRequests, apperror.ErrCodeBadRequest, "слишком много запросов, попробуйте позже")
			return
		}

		c.Next()
	}
}

func toString(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}
