package models

import "github.com/shopspring/decimal"

// Роли пользователей. Пользователь может держать обе роли одновременно,
// активная роль фиксируется в access токене.
const (
	RoleClient   = "client"
	RoleExecutor = "executor"
	RoleAdmin    = "admin"
)

// ValidRoles список ролей, которые можно выдать при регистрации.
var ValidRoles = map[string]struct{}{
	RoleClient:   {},
	RoleExecutor: {},
}

// Вместимости кузова в кубометрах.
const (
	VehicleCapacity3  = 3
	VehicleCapacity5  = 5
	VehicleCapacity10 = 10
)

// ValidVehicleCapacities допустимые вместимости.
var ValidVehicleCapacities = map[int]struct{}{
	VehicleCapacity3:  {},
	VehicleCapacity5:  {},
	VehicleCapacity10: {},
}

// PricePerCapacityUnit тариф за кубометр в рублях. Цена заказа
// фиксируется при создании и больше не пересчитывается.
var PricePerCapacityUnit = decimal.NewFromInt(600)

// OrderPrice возвращает цену заказа для выбранной вместимости.
func OrderPrice(capacity int) decimal.Decimal {
	return PricePerCapacityUnit.Mul(decimal.NewFromInt(int64(capacity)))
}

// Способы оплаты заказа.
const (
	PaymentMethodCard = "card"
	PaymentMethodCash = "cash"
)

// Статусы платежа.
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Типы балансовых транзакций исполнителя.
const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypeSettlement = "settlement"
	TransactionTypeCommission = "commission"
)

// Статусы пополнений через платёжный шлюз.
const (
	DepositStatusPending   = "pending"
	DepositStatusConfirmed = "confirmed"
	DepositStatusCancelled = "cancelled"
)

// Статусы заявок на вывод средств.
const (
	WithdrawalStatusPending    = "pending"
	WithdrawalStatusProcessing = "processing"
	WithdrawalStatusCompleted  = "completed"
	WithdrawalStatusRejected   = "rejected"
)

// Статусы тикетов поддержки.
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusClosed     = "closed"
)

// Роли отправителей сообщений в тикете.
const (
	MessageSenderUser  = "user"
	MessageSenderAdmin = "admin"
)

// События уведомлений, уходящие в WebSocket и в таблицу notifications.
const (
	NotificationNewOrder        = "new_order"
	NotificationOrderAccepted   = "order_accepted"
	NotificationOrderCompleted  = "order_completed"
	NotificationOrderCancelled  = "order_cancelled"
	NotificationPaymentSuccess  = "payment_success"
	NotificationWorkAutoStopped = "work_auto_stopped"
	NotificationTicketReply     = "ticket_reply"
)
