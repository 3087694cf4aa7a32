package models

import (
	"time"

	"github.com/google/uuid"
)

// Ticket обращение в поддержку.
type Ticket struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Subject     string    `db:"subject" json:"subject"`
	Description string    `db:"description" json:"description"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// TicketMessage сообщение в тикете. Закрытый тикет новых сообщений не принимает.
type TicketMessage struct {
	ID         uuid.UUID `db:"id" json:"id"`
	TicketID   uuid.UUID `db:"ticket_id" json:"ticket_id"`
	SenderID   uuid.UUID `db:"sender_id" json:"sender_id"`
	SenderRole string    `db:"sender_role" json:"sender_role"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
