package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order заказ на вывоз мусора. Центральная сущность сервиса.
// Цена фиксируется при создании, статус меняется только по графу
// переходов из order_status.go, исполнитель назначается ровно один раз.
type Order struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	ClientID        uuid.UUID       `db:"client_id" json:"client_id"`
	ExecutorID      *uuid.UUID      `db:"executor_id" json:"executor_id,omitempty"`
	Status          OrderStatus     `db:"status" json:"status"`
	VehicleCapacity int             `db:"vehicle_capacity" json:"vehicle_capacity"`
	City            string          `db:"city" json:"city"`
	Street          string          `db:"street" json:"street"`
	HouseNumber     string          `db:"house_number" json:"house_number"`
	ScheduledDate   time.Time       `db:"scheduled_date" json:"scheduled_date"`
	ScheduledTime   string          `db:"scheduled_time" json:"scheduled_time"`
	Comment         *string         `db:"comment" json:"comment,omitempty"`
	IsUrgent        bool            `db:"is_urgent" json:"is_urgent"`
	Price           decimal.Decimal `db:"price" json:"price"`
	CancelReason    *string         `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledBy     *uuid.UUID      `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	AcceptedAt      *time.Time      `db:"accepted_at" json:"accepted_at,omitempty"`
	CompletedAt     *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	PaidAt          *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}
