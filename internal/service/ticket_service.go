package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/vyvozim/hauling-backend/internal/models"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/repository"
	"github.com/vyvozim/hauling-backend/internal/validation"
)

// TicketServiceRepository описывает зависимости сервиса поддержки от хранилища.
type TicketServiceRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Ticket, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	AddMessage(ctx context.Context, message *models.TicketMessage) error
	ListMessages(ctx context.Context, ticketID uuid.UUID) ([]models.TicketMessage, error)
}

// TicketService ведёт тикеты поддержки и переписку в них.
type TicketService struct {
	repo     TicketServiceRepository
	notifier Notifier
}

// NewTicketService создаёт сервис поддержки.
func NewTicketService(repo TicketServiceRepository, notifier Notifier) *TicketService {
	return &TicketService{repo: repo, notifier: notifier}
}

// CreateTicket создаёт тикет в статусе open.
func (s *TicketService) CreateTicket(ctx context.Context, userID uuid.UUID, subject, description string) (*models.Ticket, error) {
	details := map[string]string{}
	if err := validation.ValidateTicketSubject(subject); err != nil {
		details["subject"] = err.Error()
	}
	if err := validation.ValidateTicketDescription(description); err != nil {
		details["description"] = err.Error()
	}
	if len(details) > 0 {
		return nil, apperror.Validation("некорректные данные тикета", details)
	}

	ticket := &models.Ticket{
		UserID:      userID,
		Subject:     subject,
		Description: description,
		Status:      models.TicketStatusOpen,
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetTicket возвращает тикет вместе с сообщениями. Чужие тикеты видит
// только администратор.
func (s *TicketService) GetTicket(ctx context.Context, actorID uuid.UUID, actorRole string, ticketID uuid.UUID) (*models.Ticket, []models.TicketMessage, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if ticket.UserID != actorID && actorRole != models.RoleAdmin {
		return nil, nil, apperror.ErrForbidden
	}

	messages, err := s.repo.ListMessages(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, messages, nil
}

// ListTickets возвращает тикеты пользователя.
func (s *TicketService) ListTickets(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Ticket, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// AddMessage добавляет сообщение в тикет. В закрытый тикет писать нельзя.
// Ответ администратора переводит тикет в работу и уведомляет автора.
func (s *TicketService) AddMessage(ctx context.Context, actorID uuid.UUID, actorRole string, ticketID uuid.UUID, content string) (*models.TicketMessage, error) {
	if err := validation.ValidateMessageContent(content); err != nil {
		return nil, apperror.Validation("некорректное сообщение", map[string]string{
			"content": err.Error(),
		})
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != actorID && actorRole != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	if ticket.Status == models.TicketStatusClosed {
		return nil, apperror.ErrTicketClosed
	}

	senderRole := models.MessageSenderUser
	if actorRole == models.RoleAdmin {
		senderRole = models.MessageSenderAdmin
	}

	message := &models.TicketMessage{
		TicketID:   ticketID,
		SenderID:   actorID,
		SenderRole: senderRole,
		Content:    content,
	}
	if err := s.repo.AddMessage(ctx, message); err != nil {
		return nil, err
	}

	if senderRole == models.MessageSenderAdmin {
		if ticket.Status == models.TicketStatusOpen {
			if err := s.repo.UpdateStatus(ctx, ticketID, models.TicketStatusInProgress); err != nil {
				return nil, err
			}
		}
		if s.notifier != nil {
			_ = s.notifier.BroadcastToUser(ticket.UserID, models.NotificationTicketReply, map[string]any{
				"ticket_id": ticketID,
				"subject":   ticket.Subject,
			})
		}
	}

	return message, nil
}

// CloseTicket закрывает тикет. Доступно автору и администратору.
func (s *TicketService) CloseTicket(ctx context.Context, actorID uuid.UUID, actorRole string, ticketID uuid.UUID) error {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.UserID != actorID && actorRole != models.RoleAdmin {
		return apperror.ErrForbidden
	}
	if ticket.Status == models.TicketStatusClosed {
		return nil
	}
	return s.repo.UpdateStatus(ctx, ticketID, models.TicketStatusClosed)
}

func (s *TicketService) getTicket(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	ticket, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, apperror.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}
