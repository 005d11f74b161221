package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/studgig-backend/internal/goroutine"
	"github.com/ignatzorin/studgig-backend/internal/logger"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
	"github.com/ignatzorin/studgig-backend/internal/repository"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// Notifier приёмник событий о переходах. Вызов не блокирует и не возвращает ошибок.
type Notifier interface {
	Notify(userID uuid.UUID, title, message, kind string, referenceID uuid.UUID, referenceType string)
}

// NotificationPusher доставляет событие подключённым клиентам пользователя.
type NotificationPusher interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// NotificationService отдаёт пользователю его уведомления.
type NotificationService struct {
	repo NotificationRepository
}

// NewNotificationService создаёт новый сервис уведомлений.
func NewNotificationService(repo NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// ListNotifications возвращает список уведомлений пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")
		}
		return err
	}
	return nil
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// NotificationDispatcher очередь исходящих уведомлений. Notify кладёт событие
// в ограниченный буфер и сразу возвращается; при переполнении событие отбрасывается.
type NotificationDispatcher struct {
	repo     NotificationRepository
	pusher   NotificationPusher
	queue    chan models.Notification
	workers  int
	recovery *goroutine.RecoveryHandler
	wg       sync.WaitGroup
}

// NewNotificationDispatcher создаёт диспетчер. pusher может быть nil.
func NewNotificationDispatcher(repo NotificationRepository, pusher NotificationPusher, queueSize, workers int) *NotificationDispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 1
	}
	return &NotificationDispatcher{
		repo:     repo,
		pusher:   pusher,
		queue:    make(chan models.Notification, queueSize),
		workers:  workers,
		recovery: goroutine.NewRecoveryHandler(logger.Log, "notification_dispatcher"),
	}
}

// Start запускает воркеров. Они завершаются после отмены ctx, доставив то, что уже в очереди.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		d.recovery.SafeGoWithContext(ctx, func(ctx context.Context) {
			defer d.wg.Done()
			d.run(ctx)
		})
	}
}

// Wait ждёт завершения воркеров.
func (d *NotificationDispatcher) Wait() {
	d.wg.Wait()
}

// Notify реализует Notifier.
func (d *NotificationDispatcher) Notify(userID uuid.UUID, title, message, kind string, referenceID uuid.UUID, referenceType string) {
	n := models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Kind:    kind,
	}
	if referenceID != uuid.Nil {
		n.ReferenceID = &referenceID
	}
	if referenceType != "" {
		n.ReferenceType = &referenceType
	}

	select {
	case d.queue <- n:
	default:
		logger.Log.WithFields(map[string]interface{}{
			"user_id": userID,
			"kind":    kind,
		}).Warn("notification dispatcher: очередь переполнена, уведомление отброшено")
	}
}

func (d *NotificationDispatcher) run(ctx context.Context) {
	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		case <-ctx.Done():
			for {
				select {
				case n := <-d.queue:
					d.deliver(n)
				default:
					return
				}
			}
		}
	}
}

func (d *NotificationDispatcher) deliver(n models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.repo.Create(ctx, &n); err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"user_id": n.UserID,
			"kind":    n.Kind,
			"error":   err.Error(),
		}).Warn("notification dispatcher: не удалось сохранить уведомление")
		return
	}

	if d.pusher == nil {
		return
	}
	if err := d.pusher.BroadcastToUser(n.UserID, "notification", n); err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"user_id": n.UserID,
			"error":   err.Error(),
		}).Debug("notification dispatcher: не удалось отправить в websocket")
	}
}
