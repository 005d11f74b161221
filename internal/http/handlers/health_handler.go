package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// HealthHandler предоставляет endpoint для проверки здоровья сервиса.
type HealthHandler struct {
	db      *sqlx.DB
	storage string
}

// NewHealthHandler создаёт новый health handler. db может быть nil для хранилища в памяти.
func NewHealthHandler(db *sqlx.DB, storage string) *HealthHandler {
	return &HealthHandler{db: db, storage: storage}
}

// HealthResponse представляет ответ health check.
type HealthResponse struct {
	Status    string            `json:"status"`
	Storage   string            `json:"storage"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db == nil {
		checks["database"] = "skipped"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := h.db.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "healthy"
		}

		stats := h.db.Stats()
		if stats.MaxOpenConnections > 0 && stats.OpenConnections >= stats.MaxOpenConnections {
			checks["connection_pool"] = "warning: pool exhausted"
		} else {
			checks["connection_pool"] = "healthy"
		}
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Storage:   h.storage,
		Timestamp: time.Now(),
		Checks:    checks,
	})
}
