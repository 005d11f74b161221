package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/repository"
)

// NotificationStore хранит уведомления в памяти.
type NotificationStore struct {
	mu            sync.Mutex
	notifications []*models.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

// Create сохраняет уведомление.
func (s *NotificationStore) Create(_ context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	notification.ID = uuid.New()
	notification.CreatedAt = time.Now()
	stored := *notification
	s.notifications = append(s.notifications, &stored)
	return nil
}

// List возвращает уведомления пользователя, новые сначала.
func (s *NotificationStore) List(_ context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Notification{}
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, *n)
	}
	return page(out, limit, offset), nil
}

// MarkAsRead отмечает уведомление пользователя как прочитанное.
func (s *NotificationStore) MarkAsRead(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return repository.ErrNotFound
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (s *NotificationStore) MarkAllAsRead(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}
