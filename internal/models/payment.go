package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment оплата заказа. На заказ допускается ровно один платёж,
// уникальность по order_id обеспечивает идемпотентность расчёта.
type Payment struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	OrderID     uuid.UUID       `db:"order_id" json:"order_id"`
	ClientID    uuid.UUID       `db:"client_id" json:"client_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Method      string          `db:"method" json:"method"`
	Status      string          `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// BalanceTransaction запись в журнале движения средств исполнителя.
type BalanceTransaction struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"user_id"`
	OrderID     *uuid.UUID      `db:"order_id" json:"order_id,omitempty"`
	Type        string          `db:"type" json:"type"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Description *string         `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Deposit пополнение баланса через внешний платёжный шлюз.
// Баланс зачисляется только после подтверждения шлюзом.
type Deposit struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"user_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Status      string          `db:"status" json:"status"`
	GatewayRef  string          `db:"gateway_ref" json:"gateway_ref"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ConfirmedAt *time.Time      `db:"confirmed_at" json:"confirmed_at,omitempty"`
}

// Withdrawal заявка на вывод средств. Баланс списывается сразу,
// выплата уходит внешнему шлюзу.
type Withdrawal struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	UserID          uuid.UUID       `db:"user_id" json:"user_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Status          string          `db:"status" json:"status"`
	CardLast4       *string         `db:"card_last4" json:"card_last4,omitempty"`
	RejectionReason *string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt     *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}
