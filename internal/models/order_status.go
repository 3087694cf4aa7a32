package models

// OrderStatus статус заказа. Единственный источник истины для жизненного
// цикла заказа: любые переходы проверяются через CanTransition.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusAccepted        OrderStatus = "accepted"
	OrderStatusInProgress      OrderStatus = "in_progress"
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	OrderStatusPaid            OrderStatus = "paid"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// orderTransitions задаёт граф переходов. Движение только вперёд,
// отмена доступна из любого нетерминального статуса.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:         {OrderStatusAccepted, OrderStatusCancelled},
	OrderStatusAccepted:        {OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInProgress:      {OrderStatusAwaitingPayment, OrderStatusCancelled},
	OrderStatusAwaitingPayment: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:            {},
	OrderStatusCancelled:       {},
}

// ValidOrderStatuses список валидных статусов заказов.
var ValidOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:         {},
	OrderStatusAccepted:        {},
	OrderStatusInProgress:      {},
	OrderStatusAwaitingPayment: {},
	OrderStatusPaid:            {},
	OrderStatusCancelled:       {},
}

// IsValid проверяет, что статус входит в закрытый набор.
func (s OrderStatus) IsValid() bool {
	_, ok := ValidOrderStatuses[s]
	return ok
}

// IsTerminal возвращает true для статусов, из которых нет переходов.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransition проверяет допустимость перехода from -> to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequiresExecutor возвращает true для статусов, в которых у заказа
// обязан быть назначенный исполнитель.
func (s OrderStatus) RequiresExecutor() bool {
	switch s {
	case OrderStatusAccepted, OrderStatusInProgress, OrderStatusAwaitingPayment, OrderStatusPaid:
		return true
	}
	return false
}
