package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vyvozim/hauling-backend/internal/logger"
	"github.com/vyvozim/hauling-backend/internal/models"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/repository"
)

// PaymentServiceRepository описывает зависимости сервиса платежей от хранилища.
type PaymentServiceRepository interface {
	SettleOrderPayment(ctx context.Context, payment *models.Payment, executorID uuid.UUID, delta decimal.Decimal, description string) error
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	CreateDeposit(ctx context.Context, deposit *models.Deposit) error
	ConfirmDeposit(ctx context.Context, gatewayRef string) (*models.Deposit, error)
	CreateWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, cardLast4 *string) (*models.Withdrawal, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BalanceTransaction, error)
	ListWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error)
}

// PaymentOrderRepository доступ к заказам для проверки предусловий оплаты.
type PaymentOrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// PaymentConfig пороги и параметры расчётов.
type PaymentConfig struct {
	MinDepositAmount  decimal.Decimal
	MinWithdrawAmount decimal.Decimal
	CommissionPercent decimal.Decimal
	GatewayBaseURL    string
}

// DepositCheckout ответ на запрос пополнения: платёж создан, клиент
// отправляется на страницу шлюза.
type DepositCheckout struct {
	Deposit     *models.Deposit `json:"deposit"`
	CheckoutURL string          `json:"checkout_url"`
}

// PaymentService проводит оплату заказов, пополнения и выводы средств.
// Движения по балансу исполнителя идут только через транзакции репозитория.
type PaymentService struct {
	repo     PaymentServiceRepository
	orders   PaymentOrderRepository
	notifier Notifier
	cfg      PaymentConfig
}

// NewPaymentService создаёт сервис платежей.
func NewPaymentService(repo PaymentServiceRepository, orders PaymentOrderRepository, notifier Notifier, cfg PaymentConfig) *PaymentService {
	return &PaymentService{
		repo:     repo,
		orders:   orders,
		notifier: notifier,
		cfg:      cfg,
	}
}

// PayOrder фиксирует оплату заказа клиентом и проводит расчёт с исполнителем.
// Карта: исполнителю зачисляется сумма за вычетом комиссии. Наличные: деньги
// уже у исполнителя, с баланса списывается комиссия сервиса. Повторная оплата
// того же заказа возвращает ALREADY_PAID без второго движения по балансу.
func (s *PaymentService) PayOrder(ctx context.Context, clientID, orderID uuid.UUID, method string) (*models.Payment, error) {
	if method != models.PaymentMethodCard && method != models.PaymentMethodCash {
		return nil, apperror.Validation("некорректный способ оплаты", map[string]string{
			"method": "допустимы card и cash",
		})
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, err
	}
	if order.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	if order.Status != models.OrderStatusAwaitingPayment {
		if order.Status == models.OrderStatusPaid {
			return nil, apperror.ErrAlreadyPaid
		}
		return nil, apperror.ErrInvalidOrderState
	}
	if order.ExecutorID == nil {
		return nil, apperror.ErrInvalidOrderState
	}

	delta, description := s.settlementDelta(order.Price, method)

	payment := &models.Payment{
		OrderID:  orderID,
		ClientID: clientID,
		Amount:   order.Price,
		Method:   method,
		Status:   models.PaymentStatusCompleted,
	}

	if err := s.repo.SettleOrderPayment(ctx, payment, *order.ExecutorID, delta, description); err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentExists):
			return nil, apperror.ErrAlreadyPaid
		case errors.Is(err, repository.ErrOrderStateToPaid):
			return nil, apperror.ErrInvalidOrderState
		}
		return nil, err
	}

	if s.notifier != nil {
		_ = s.notifier.BroadcastToUser(*order.ExecutorID, models.NotificationPaymentSuccess, map[string]any{
			"order_id": orderID,
			"amount":   order.Price,
			"method":   method,
			"delta":    delta,
		})
	}

	return payment, nil
}

// settlementDelta считает движение по балансу исполнителя для заказа.
func (s *PaymentService) settlementDelta(price decimal.Decimal, method string) (decimal.Decimal, string) {
	commission := price.Mul(s.cfg.CommissionPercent)
	if method == models.PaymentMethodCard {
		return price.Sub(commission), "Оплата заказа картой за вычетом комиссии"
	}
	return commission.Neg(), "Комиссия сервиса с заказа, оплаченного наличными"
}

// GetOrderPayment возвращает платёж по заказу.
func (s *PaymentService) GetOrderPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.GetPaymentByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "платёж по заказу не найден")
		}
		return nil, err
	}
	return payment, nil
}

// CreateDeposit создаёт пополнение и возвращает ссылку на страницу оплаты.
// Баланс зачисляется только после подтверждения шлюзом через ConfirmDeposit.
func (s *PaymentService) CreateDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*DepositCheckout, error) {
	if amount.LessThan(s.cfg.MinDepositAmount) {
		return nil, apperror.Validation("сумма пополнения меньше минимальной", map[string]string{
			"amount": fmt.Sprintf("минимальная сумма пополнения %s ₽", s.cfg.MinDepositAmount.String()),
		})
	}

	deposit := &models.Deposit{
		UserID:     userID,
		Amount:     amount,
		Status:     models.DepositStatusPending,
		GatewayRef: uuid.NewString(),
	}
	if err := s.repo.CreateDeposit(ctx, deposit); err != nil {
		return nil, err
	}

	return &DepositCheckout{
		Deposit:     deposit,
		CheckoutURL: fmt.Sprintf("%s?ref=%s", s.cfg.GatewayBaseURL, deposit.GatewayRef),
	}, nil
}

// ConfirmDeposit обрабатывает подтверждение шлюза. Повторный вебхук по уже
// подтверждённому пополнению не двигает баланс второй раз.
func (s *PaymentService) ConfirmDeposit(ctx context.Context, gatewayRef string) (*models.Deposit, error) {
	deposit, err := s.repo.ConfirmDeposit(ctx, gatewayRef)
	if err != nil {
		if errors.Is(err, repository.ErrDepositNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "пополнение не найдено или уже подтверждено")
		}
		return nil, err
	}

	if s.notifier != nil {
		_ = s.notifier.BroadcastToUser(deposit.UserID, models.NotificationPaymentSuccess, map[string]any{
			"deposit_id": deposit.ID,
			"amount":     deposit.Amount,
		})
	}

	if logger.Log != nil {
		logger.Log.WithField("deposit_id", deposit.ID).Info("payment service: пополнение подтверждено")
	}

	return deposit, nil
}

// CreateWithdrawal создаёт заявку на вывод. Баланс списывается сразу,
// двойное списание исключено блокировкой строки баланса.
func (s *PaymentService) CreateWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, cardLast4 *string) (*models.Withdrawal, error) {
	if amount.LessThan(s.cfg.MinWithdrawAmount) {
		return nil, apperror.Validation("сумма вывода меньше минимальной", map[string]string{
			"amount": fmt.Sprintf("минимальная сумма вывода %s ₽", s.cfg.MinWithdrawAmount.String()),
		})
	}

	withdrawal, err := s.repo.CreateWithdrawal(ctx, userID, amount, cardLast4)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientFunds):
			return nil, apperror.ErrInsufficientFunds
		case errors.Is(err, repository.ErrExecutorNotFound):
			return nil, apperror.ErrExecutorNotFound
		}
		return nil, err
	}
	return withdrawal, nil
}

// ListTransactions возвращает журнал движения средств.
func (s *PaymentService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BalanceTransaction, error) {
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

// ListWithdrawals возвращает заявки на вывод.
func (s *PaymentService) ListWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	return s.repo.ListWithdrawals(ctx, userID, limit, offset)
}
