package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/studgig-backend/internal/http/handlers/common"
	"github.com/ignatzorin/studgig-backend/internal/http/response"
	"github.com/ignatzorin/studgig-backend/internal/service"
)

// NotificationHandler обслуживает маршруты уведомлений.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler создаёт новый хэндлер.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListNotifications обрабатывает GET /notifications.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	unreadOnly := c.Query("unread_only") == "true"

	notifications, err := h.notifications.ListNotifications(c.Request.Context(), userID, limit, offset, unreadOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, notifications, len(notifications), limit, offset)
}

// MarkAsRead обрабатывает PUT /notifications/:id/read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkAsRead(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "уведомление отмечено как прочитанное"})
}

// MarkAllAsRead обрабатывает PUT /notifications/read-all.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	if err := h.notifications.MarkAllAsRead(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "все уведомления отмечены как прочитанные"})
}

// CountUnread обрабатывает GET /notifications/unread/count.
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	count, err := h.notifications.CountUnread(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"count": count})
}
