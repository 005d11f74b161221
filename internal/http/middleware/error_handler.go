package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/studgig-backend/internal/http/response"
	"github.com/ignatzorin/studgig-backend/internal/logger"
)

// ErrorHandler отвечает за ошибки, добавленные через c.Error, если хэндлер
// сам не записал ответ. Внутренние ошибки маскируются, AppError отдаются как есть.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()
		logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("Request error")

		response.Error(c, err.Err)
	}
}

// Recovery превращает panic в хэндлере в ответ 500 с логом.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Log.WithFields(logrus.Fields{
			"panic":  recovered,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("Request panic")

		response.Error(c, nil)
		c.Abort()
	})
}
