package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vyvozim/hauling-backend/internal/logger"
	"github.com/vyvozim/hauling-backend/internal/models"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/repository"
)

// AvailabilityRepository описывает зависимости трекера смен от хранилища.
type AvailabilityRepository interface {
	GetExecutorProfile(ctx context.Context, userID uuid.UUID) (*models.ExecutorProfile, error)
	SetWorking(ctx context.Context, userID uuid.UUID, working bool) error
	TouchActivity(ctx context.Context, userID uuid.UUID) error
	ExpireIdleExecutors(ctx context.Context, idleFor time.Duration) ([]uuid.UUID, error)
}

// Notifier доставляет событие пользователю (WebSocket + таблица notifications).
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// AvailabilityService управляет сменой исполнителя: выход на смену с проверкой
// баланса и верификации, уход со смены и серверный сторожевой таймер
// бездействия. Отметка активности обновляется каждым значимым действием
// исполнителя, так что смена работает как продлеваемая аренда.
type AvailabilityService struct {
	repo              AvailabilityRepository
	notifier          Notifier
	minWorkBalance    decimal.Decimal
	inactivityTimeout time.Duration
}

// NewAvailabilityService создаёт трекер смен.
func NewAvailabilityService(repo AvailabilityRepository, notifier Notifier, minWorkBalance decimal.Decimal, inactivityTimeout time.Duration) *AvailabilityService {
	return &AvailabilityService{
		repo:              repo,
		notifier:          notifier,
		minWorkBalance:    minWorkBalance,
		inactivityTimeout: inactivityTimeout,
	}
}

// StartWork переводит исполнителя на смену.
func (s *AvailabilityService) StartWork(ctx context.Context, executorID uuid.UUID) (*models.ExecutorProfile, error) {
	profile, err := s.getProfile(ctx, executorID)
	if err != nil {
		return nil, err
	}

	if !profile.IsVerified {
		return nil, apperror.ErrNotVerified
	}
	if profile.Balance.LessThan(s.minWorkBalance) {
		return nil, apperror.ErrInsufficientBalance
	}

	if err := s.repo.SetWorking(ctx, executorID, true); err != nil {
		return nil, err
	}
	return s.getProfile(ctx, executorID)
}

// StopWork снимает исполнителя со смены. Уже принятые заказы не затрагиваются.
func (s *AvailabilityService) StopWork(ctx context.Context, executorID uuid.UUID) (*models.ExecutorProfile, error) {
	if _, err := s.getProfile(ctx, executorID); err != nil {
		return nil, err
	}
	if err := s.repo.SetWorking(ctx, executorID, false); err != nil {
		return nil, err
	}
	return s.getProfile(ctx, executorID)
}

// Heartbeat продлевает смену без другого действия.
func (s *AvailabilityService) Heartbeat(ctx context.Context, executorID uuid.UUID) error {
	profile, err := s.getProfile(ctx, executorID)
	if err != nil {
		return err
	}
	if !profile.IsWorking {
		return apperror.ErrNotOnDuty
	}
	return s.repo.TouchActivity(ctx, executorID)
}

// RequireOnDuty проверяет, что исполнитель на смене, и продлевает аренду.
func (s *AvailabilityService) RequireOnDuty(ctx context.Context, executorID uuid.UUID) (*models.ExecutorProfile, error) {
	profile, err := s.getProfile(ctx, executorID)
	if err != nil {
		return nil, err
	}
	if !profile.IsWorking {
		return nil, apperror.ErrNotOnDuty
	}
	if err := s.repo.TouchActivity(ctx, executorID); err != nil {
		return nil, err
	}
	return profile, nil
}

// TouchActivity продлевает аренду после значимого действия.
func (s *AvailabilityService) TouchActivity(ctx context.Context, executorID uuid.UUID) {
	if err := s.repo.TouchActivity(ctx, executorID); err != nil && logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"executor_id": executorID,
			"error":       err.Error(),
		}).Warn("availability: не удалось обновить активность")
	}
}

// RunWatchdog периодически снимает со смены исполнителей без активности.
// Запускается одной горутиной из main и живёт до отмены контекста.
func (s *AvailabilityService) RunWatchdog(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.expireIdle(ctx)
		}
	}
}

// expireIdle выполняет один проход сторожевого таймера.
func (s *AvailabilityService) expireIdle(ctx context.Context) {
	ids, err := s.repo.ExpireIdleExecutors(ctx, s.inactivityTimeout)
	if err != nil {
		if logger.Log != nil {
			logger.Log.WithField("error", err.Error()).Error("availability: сторожевой таймер не смог снять исполнителей со смены")
		}
		return
	}

	for _, id := range ids {
		if logger.Log != nil {
			logger.Log.WithField("executor_id", id).Info("availability: исполнитель снят со смены за бездействие")
		}
		if s.notifier != nil {
			_ = s.notifier.BroadcastToUser(id, models.NotificationWorkAutoStopped, map[string]any{
				"reason": "бездействие дольше допустимого окна",
			})
		}
	}
}

func (s *AvailabilityService) getProfile(ctx context.Context, executorID uuid.UUID) (*models.ExecutorProfile, error) {
	profile, err := s.repo.GetExecutorProfile(ctx, executorID)
	if err != nil {
		if errors.Is(err, repository.ErrExecutorNotFound) {
			return nil, apperror.ErrExecutorNotFound
		}
		return nil, err
	}
	return profile, nil
}
