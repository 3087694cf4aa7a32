package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// User описывает пользователя сервиса вывоза мусора.
// Один пользователь может совмещать роли клиента и исполнителя.
type User struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	PhoneNumber string         `db:"phone_number" json:"phone_number"`
	Name        string         `db:"name" json:"name"`
	Roles       pq.StringArray `db:"roles" json:"roles"`
	IsBlocked   bool           `db:"is_blocked" json:"is_blocked"`
	IsDeleted   bool           `db:"is_deleted" json:"-"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// HasRole проверяет, выдана ли пользователю роль.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ClientProfile адрес клиента по умолчанию для новых заказов.
type ClientProfile struct {
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	City        string    `db:"city" json:"city"`
	Street      string    `db:"street" json:"street"`
	HouseNumber string    `db:"house_number" json:"house_number"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ExecutorProfile данные исполнителя: машина, верификация, баланс и смена.
// Инвариант: is_working может быть true только при is_verified и
// балансе не ниже минимального порога.
type ExecutorProfile struct {
	UserID          uuid.UUID       `db:"user_id" json:"user_id"`
	VehicleNumber   string          `db:"vehicle_number" json:"vehicle_number"`
	VehicleCapacity int             `db:"vehicle_capacity" json:"vehicle_capacity"`
	IsVerified      bool            `db:"is_verified" json:"is_verified"`
	IsWorking       bool            `db:"is_working" json:"is_working"`
	Balance         decimal.Decimal `db:"balance" json:"balance"`
	Rating          float64         `db:"rating" json:"rating"`
	CompletedOrders int             `db:"completed_orders" json:"completed_orders"`
	LastActivityAt  *time.Time      `db:"last_activity_at" json:"last_activity_at,omitempty"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// ExecutorDocument ссылка на загруженный документ для верификации.
type ExecutorDocument struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Kind      string    `db:"kind" json:"kind"`
	FilePath  string    `db:"file_path" json:"file_path"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Виды документов исполнителя.
const (
	DocumentKindPassport            = "passport"
	DocumentKindDriverLicense       = "driver_license"
	DocumentKindVehicleRegistration = "vehicle_registration"
)

// Session сохранённая сессия с refresh токеном, привязанная к активной роли.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	ActiveRole   string    `db:"active_role" json:"active_role"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SMSCode одноразовый код входа. Сам код хранится только как bcrypt-хеш.
type SMSCode struct {
	ID         uuid.UUID  `db:"id" json:"-"`
	Phone      string     `db:"phone" json:"-"`
	CodeHash   string     `db:"code_hash" json:"-"`
	VerifiedAt *time.Time `db:"verified_at" json:"-"`
	ExpiresAt  time.Time  `db:"expires_at" json:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"-"`
}
