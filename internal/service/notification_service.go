package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vyvozim/hauling-backend/internal/logger"
	"github.com/vyvozim/hauling-backend/internal/models"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/repository"
)

// NotificationServiceRepository описывает зависимости сервиса уведомлений.
type NotificationServiceRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// NotificationPusher доставляет сообщение в открытые WebSocket соединения
// пользователя. Отсутствие соединения не ошибка, уведомление остаётся в ленте.
type NotificationPusher interface {
	SendToUser(userID uuid.UUID, message []byte)
}

// notificationEnvelope формат события в payload и в WebSocket.
type notificationEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// NotificationService сохраняет уведомления в ленту и дублирует их в
// WebSocket. Реализует Notifier для остальных сервисов.
type NotificationService struct {
	repo   NotificationServiceRepository
	pusher NotificationPusher
}

// NewNotificationService создаёт сервис уведомлений.
func NewNotificationService(repo NotificationServiceRepository, pusher NotificationPusher) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher}
}

// BroadcastToUser сохраняет уведомление и отправляет его в WebSocket.
// Вызывается из других сервисов после фиксации доменного события, поэтому
// живёт на собственном таймауте, а не на контексте запроса.
func (s *NotificationService) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	payload, err := json.Marshal(notificationEnvelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("notification service: marshal payload %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notification := &models.Notification{
		UserID:  userID,
		Payload: payload,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		if logger.Log != nil {
			logger.Log.WithField("error", err.Error()).Warn("notification service: не удалось сохранить уведомление")
		}
		return err
	}

	if s.pusher != nil {
		s.pusher.SendToUser(userID, payload)
	}
	return nil
}

// List возвращает ленту уведомлений пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead помечает уведомление прочитанным.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, notificationID, userID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")
		}
		return err
	}
	return nil
}

// MarkAllAsRead помечает все уведомления пользователя прочитанными.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
