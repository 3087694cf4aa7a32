package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vyvozim/hauling-backend/internal/models"
)

// ErrTicketNotFound возвращается, когда тикет не найден.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketRepository отвечает за тикеты поддержки и их сообщения.
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository создаёт экземпляр репозитория.
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create сохраняет новый тикет в статусе open.
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	query := `
		INSERT INTO tickets (user_id, subject, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		ticket.UserID, ticket.Subject, ticket.Description, models.TicketStatusOpen).
		Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return fmt.Errorf("ticket repository: create %w", err)
	}
	return nil
}

// GetByID возвращает тикет по идентификатору.
func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	query := `
		SELECT id, user_id, subject, description, status, created_at, updated_at
		FROM tickets
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &ticket, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("ticket repository: get by id %w", err)
	}
	return &ticket, nil
}

// ListByUser возвращает тикеты пользователя, свежие первыми.
func (r *TicketRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Ticket, error) {
	var tickets []models.Ticket
	query := `
		SELECT id, user_id, subject, description, status, created_at, updated_at
		FROM tickets
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &tickets, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("ticket repository: list by user %w", err)
	}
	return tickets, nil
}

// UpdateStatus меняет статус тикета.
func (r *TicketRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("ticket repository: update status %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// AddMessage добавляет сообщение в тикет.
func (r *TicketRepository) AddMessage(ctx context.Context, message *models.TicketMessage) error {
	query := `
		INSERT INTO ticket_messages (ticket_id, sender_id, sender_role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		message.TicketID, message.SenderID, message.SenderRole, message.Content).
		Scan(&message.ID, &message.CreatedAt); err != nil {
		return fmt.Errorf("ticket repository: add message %w", err)
	}
	return nil
}

// ListMessages возвращает сообщения тикета в порядке отправки.
func (r *TicketRepository) ListMessages(ctx context.Context, ticketID uuid.UUID) ([]models.TicketMessage, error) {
	var messages []models.TicketMessage
	query := `
		SELECT id, ticket_id, sender_id, sender_role, content, created_at
		FROM ticket_messages
		WHERE ticket_id = $1
		ORDER BY created_at
	`
	if err := r.db.SelectContext(ctx, &messages, query, ticketID); err != nil {
		return nil, fmt.Errorf("ticket repository: list messages %w", err)
	}
	return messages, nil
}
