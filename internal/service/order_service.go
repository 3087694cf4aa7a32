package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vyvozim/hauling-backend/internal/logger"
	"github.com/vyvozim/hauling-backend/internal/models"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/repository"
	"github.com/vyvozim/hauling-backend/internal/validation"
)

// OrderServiceRepository описывает зависимости сервиса заказов от хранилища.
type OrderServiceRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListPendingUnassigned(ctx context.Context, limit, offset int) ([]models.Order, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Order, error)
	ListActiveByExecutor(ctx context.Context, executorID uuid.UUID) ([]models.Order, error)
	ListHistoryByExecutor(ctx context.Context, executorID uuid.UUID, limit, offset int) ([]models.Order, error)
	Accept(ctx context.Context, orderID, executorID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus) (*models.Order, error)
	Cancel(ctx context.Context, orderID, actorID uuid.UUID, reason string) (*models.Order, error)
}

// WorkingExecutorLister возвращает исполнителей на смене для рассылки new_order.
type WorkingExecutorLister interface {
	ListWorkingExecutorIDs(ctx context.Context) ([]uuid.UUID, error)
}

// OnDutyGate проверяет смену исполнителя и продлевает аренду активности.
type OnDutyGate interface {
	RequireOnDuty(ctx context.Context, executorID uuid.UUID) (*models.ExecutorProfile, error)
	TouchActivity(ctx context.Context, executorID uuid.UUID)
}

// CreateOrderInput данные нового заказа.
type CreateOrderInput struct {
	ClientID        uuid.UUID
	VehicleCapacity int
	City            string
	Street          string
	HouseNumber     string
	ScheduledDate   time.Time
	ScheduledTime   string
	Comment         *string
	IsUrgent        bool
}

// OrderService владеет жизненным циклом заказа: создание, выдача исполнителям,
// принятие, выполнение и отмена. Все переходы статусов идут через
// models.CanTransition и условные обновления в репозитории.
type OrderService struct {
	repo      OrderServiceRepository
	duty      OnDutyGate
	executors WorkingExecutorLister
	notifier  Notifier
	now       func() time.Time
}

// NewOrderService создаёт сервис заказов.
func NewOrderService(repo OrderServiceRepository, duty OnDutyGate, executors WorkingExecutorLister, notifier Notifier) *OrderService {
	return &OrderService{
		repo:      repo,
		duty:      duty,
		executors: executors,
		notifier:  notifier,
		now:       time.Now,
	}
}

// CreateOrder создаёт заказ со статусом pending и рассылает new_order
// исполнителям на смене. Цена считается один раз и больше не меняется.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	details := map[string]string{}
	if err := validation.ValidateVehicleCapacity(in.VehicleCapacity); err != nil {
		details["vehicle_capacity"] = err.Error()
	}
	if err := validation.ValidateAddressField("город", in.City, validation.MaxCityLength); err != nil {
		details["city"] = err.Error()
	}
	if err := validation.ValidateAddressField("улица", in.Street, validation.MaxStreetLength); err != nil {
		details["street"] = err.Error()
	}
	if err := validation.ValidateAddressField("номер дома", in.HouseNumber, validation.MaxHouseNumberLength); err != nil {
		details["house_number"] = err.Error()
	}
	if in.Comment != nil {
		if err := validation.ValidateComment(*in.Comment); err != nil {
			details["comment"] = err.Error()
		}
	}

	now := s.now()
	if in.IsUrgent {
		// Срочный заказ подаётся сейчас: дата и время штампуются сервером.
		in.ScheduledDate = now
		in.ScheduledTime = now.Format("15:04")
	} else {
		if err := validation.ValidateScheduledTime(in.ScheduledTime); err != nil {
			details["scheduled_time"] = err.Error()
		}
		if err := validation.ValidateScheduledDate(in.ScheduledDate, now); err != nil {
			details["scheduled_date"] = err.Error()
		}
	}

	if len(details) > 0 {
		return nil, apperror.Validation("некорректные данные заказа", details)
	}

	order := &models.Order{
		ClientID:        in.ClientID,
		Status:          models.OrderStatusPending,
		VehicleCapacity: in.VehicleCapacity,
		City:            in.City,
		Street:          in.Street,
		HouseNumber:     in.HouseNumber,
		ScheduledDate:   in.ScheduledDate,
		ScheduledTime:   in.ScheduledTime,
		Comment:         in.Comment,
		IsUrgent:        in.IsUrgent,
		Price:           models.OrderPrice(in.VehicleCapacity),
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.notifyWorkingExecutors(ctx, order)

	return order, nil
}

// ListAvailableOrders возвращает свободные pending заказы исполнителю на смене.
// Заказы не фильтруются по вместимости машины: любой исполнитель на смене
// видит весь пул.
func (s *OrderService) ListAvailableOrders(ctx context.Context, executorID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if _, err := s.duty.RequireOnDuty(ctx, executorID); err != nil {
		return nil, err
	}
	return s.repo.ListPendingUnassigned(ctx, limit, offset)
}

// AcceptOrder атомарно назначает исполнителя. При конкуренции побеждает
// ровно один, остальные получают ORDER_ALREADY_TAKEN.
func (s *OrderService) AcceptOrder(ctx context.Context, executorID, orderID uuid.UUID) (*models.Order, error) {
	if _, err := s.duty.RequireOnDuty(ctx, executorID); err != nil {
		return nil, err
	}

	order, err := s.repo.Accept(ctx, orderID, executorID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return nil, apperror.ErrOrderNotFound
		case errors.Is(err, repository.ErrOrderAlreadySet):
			return nil, apperror.ErrOrderAlreadyTaken
		}
		return nil, err
	}

	s.notify(order.ClientID, models.NotificationOrderAccepted, orderPayload(order))

	return order, nil
}

// StartOrder переводит принятый заказ в работу.
func (s *OrderService) StartOrder(ctx context.Context, executorID, orderID uuid.UUID) (*models.Order, error) {
	if err := s.requireAssigned(ctx, executorID, orderID); err != nil {
		return nil, err
	}

	order, err := s.transition(ctx, orderID, models.OrderStatusAccepted, models.OrderStatusInProgress)
	if err != nil {
		return nil, err
	}

	s.duty.TouchActivity(ctx, executorID)
	return order, nil
}

// CompleteOrder завершает работу и переводит заказ в ожидание оплаты.
func (s *OrderService) CompleteOrder(ctx context.Context, executorID, orderID uuid.UUID) (*models.Order, error) {
	if err := s.requireAssigned(ctx, executorID, orderID); err != nil {
		return nil, err
	}

	order, err := s.transition(ctx, orderID, models.OrderStatusInProgress, models.OrderStatusAwaitingPayment)
	if err != nil {
		return nil, err
	}

	s.duty.TouchActivity(ctx, executorID)
	s.notify(order.ClientID, models.NotificationOrderCompleted, orderPayload(order))

	return order, nil
}

// CancelOrder отменяет заказ из любого нетерминального статуса.
// Доступно владельцу-клиенту, назначенному исполнителю и администратору.
func (s *OrderService) CancelOrder(ctx context.Context, actorID uuid.UUID, actorRole string, orderID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	allowed := actorRole == models.RoleAdmin ||
		order.ClientID == actorID ||
		(order.ExecutorID != nil && *order.ExecutorID == actorID)
	if !allowed {
		return nil, apperror.ErrForbidden
	}

	if order.Status.IsTerminal() {
		return nil, apperror.ErrInvalidOrderState
	}

	cancelled, err := s.repo.Cancel(ctx, orderID, actorID, reason)
	if err != nil {
		if errors.Is(err, repository.ErrOrderStateStale) {
			return nil, apperror.ErrInvalidOrderState
		}
		return nil, err
	}

	// Уведомляем вторую сторону.
	if cancelled.ExecutorID != nil && *cancelled.ExecutorID != actorID {
		s.notify(*cancelled.ExecutorID, models.NotificationOrderCancelled, orderPayload(cancelled))
	}
	if cancelled.ClientID != actorID {
		s.notify(cancelled.ClientID, models.NotificationOrderCancelled, orderPayload(cancelled))
	}

	return cancelled, nil
}

// GetOrder возвращает заказ с проверкой доступа по роли.
func (s *OrderService) GetOrder(ctx context.Context, actorID uuid.UUID, actorRole string, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch {
	case actorRole == models.RoleAdmin:
	case order.ClientID == actorID:
	case order.ExecutorID != nil && *order.ExecutorID == actorID:
	case actorRole == models.RoleExecutor && order.Status == models.OrderStatusPending:
		// Свободный заказ виден исполнителю до принятия.
	default:
		return nil, apperror.ErrForbidden
	}

	return order, nil
}

// ListClientOrders возвращает заказы клиента.
func (s *OrderService) ListClientOrders(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Order, error) {
	return s.repo.ListByClient(ctx, clientID, limit, offset)
}

// ListExecutorActiveOrders возвращает заказы исполнителя в работе.
func (s *OrderService) ListExecutorActiveOrders(ctx context.Context, executorID uuid.UUID) ([]models.Order, error) {
	return s.repo.ListActiveByExecutor(ctx, executorID)
}

// ListExecutorHistory возвращает завершённые заказы исполнителя.
func (s *OrderService) ListExecutorHistory(ctx context.Context, executorID uuid.UUID, limit, offset int) ([]models.Order, error) {
	return s.repo.ListHistoryByExecutor(ctx, executorID, limit, offset)
}

// requireAssigned проверяет, что заказ назначен именно этому исполнителю.
func (s *OrderService) requireAssigned(ctx context.Context, executorID, orderID uuid.UUID) error {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.ExecutorID == nil || *order.ExecutorID != executorID {
		return apperror.ErrNotAssignedExecutor
	}
	return nil
}

// transition выполняет условный переход через репозиторий.
func (s *OrderService) transition(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus) (*models.Order, error) {
	if !models.CanTransition(from, to) {
		return nil, apperror.ErrInvalidOrderState
	}

	order, err := s.repo.UpdateStatus(ctx, orderID, from, to)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return nil, apperror.ErrOrderNotFound
		case errors.Is(err, repository.ErrOrderStateStale):
			return nil, apperror.ErrInvalidOrderState
		}
		return nil, err
	}
	return order, nil
}

func (s *OrderService) getOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// notifyWorkingExecutors рассылает new_order всем исполнителям на смене.
func (s *OrderService) notifyWorkingExecutors(ctx context.Context, order *models.Order) {
	if s.executors == nil || s.notifier == nil {
		return
	}

	ids, err := s.executors.ListWorkingExecutorIDs(ctx)
	if err != nil {
		if logger.Log != nil {
			logger.Log.WithField("error", err.Error()).Warn("order service: не удалось получить исполнителей для рассылки")
		}
		return
	}

	payload := orderPayload(order)
	for _, id := range ids {
		s.notify(id, models.NotificationNewOrder, payload)
	}
}

func (s *OrderService) notify(userID uuid.UUID, event string, data any) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.BroadcastToUser(userID, event, data)
}

// orderPayload формирует полезную нагрузку уведомления о заказе.
func orderPayload(order *models.Order) map[string]any {
	return map[string]any{
		"order_id": order.ID,
		"status":   order.Status,
		"capacity": order.VehicleCapacity,
		"price":    order.Price,
		"city":     order.City,
	}
}
