package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vyvozim/hauling-backend/internal/models"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/repository"
)

type mockTicketRepo struct {
	mock.Mock
}

func (m *mockTicketRepo) Create(ctx context.Context, ticket *models.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *mockTicketRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	args := m.Called(ctx, id)
	if ticket, ok := args.Get(0).(*models.Ticket); ok {
		return ticket, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTicketRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Ticket, error) {
	args := m.Called(ctx, userID, limit, offset)
	if tickets, ok := args.Get(0).([]models.Ticket); ok {
		return tickets, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTicketRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockTicketRepo) AddMessage(ctx context.Context, message *models.TicketMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *mockTicketRepo) ListMessages(ctx context.Context, ticketID uuid.UUID) ([]models.TicketMessage, error) {
	args := m.Called(ctx, ticketID)
	if messages, ok := args.Get(0).([]models.TicketMessage); ok {
		return messages, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCreateTicket_Success(t *testing.T) {
	repo := new(mockTicketRepo)
	svc := NewTicketService(repo, new(mockNotifier))

	userID := uuid.New()
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Ticket")).Return(nil)

	ticket, err := svc.CreateTicket(context.Background(), userID, "Не вывезли мусор", "Заказ выполнен не был, машина не приехала")

	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusOpen, ticket.Status)
	assert.Equal(t, userID, ticket.UserID)
}

func TestCreateTicket_Validation(t *testing.T) {
	svc := NewTicketService(new(mockTicketRepo), new(mockNotifier))

	_, err := svc.CreateTicket(context.Background(), uuid.New(), "", "аб")

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeValidation, appErr.Code)
	assert.Contains(t, appErr.Details, "subject")
	assert.Contains(t, appErr.Details, "description")
}

func TestGetTicket_StrangerForbidden(t *testing.T) {
	repo := new(mockTicketRepo)
	svc := NewTicketService(repo, new(mockNotifier))

	ticketID := uuid.New()
	repo.On("GetByID", mock.Anything, ticketID).Return(&models.Ticket{
		ID:     ticketID,
		UserID: uuid.New(),
		Status: models.TicketStatusOpen,
	}, nil)

	_, _, err := svc.GetTicket(context.Background(), uuid.New(), models.RoleClient, ticketID)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestGetTicket_AdminSeesAny(t *testing.T) {
	repo := new(mockTicketRepo)
	svc := NewTicketService(repo, new(mockNotifier))

	ticketID := uuid.New()
	repo.On("GetByID", mock.Anything, ticketID).Return(&models.Ticket{
		ID:     ticketID,
		UserID: uuid.New(),
		Status: models.TicketStatusOpen,
	}, nil)
	repo.On("ListMessages", mock.Anything, ticketID).Return([]models.TicketMessage{}, nil)

	ticket, messages, err := svc.GetTicket(context.Background(), uuid.New(), models.RoleAdmin, ticketID)

	require.NoError(t, err)
	assert.Equal(t, ticketID, ticket.ID)
	assert.Empty(t, messages)
}

func TestAddMessage_ClosedTicket(t *testing.T) {
	repo := new(mockTicketRepo)
	svc := NewTicketService(repo, new(mockNotifier))

	userID, ticketID := uuid.New(), uuid.New()
	repo.On("GetByID", mock.Anything, ticketID).Return(&models.Ticket{
		ID:     ticketID,
		UserID: userID,
		Status: models.TicketStatusClosed,
	}, nil)

	_, err := svc.AddMessage(context.Background(), userID, models.RoleClient, ticketID, "ещё вопрос")

	assert.ErrorIs(t, err, apperror.ErrTicketClosed)
	repo.AssertNotCalled(t, "AddMessage", mock.Anything, mock.Anything)
}

func TestAddMessage_UserMessage(t *testing.T) {
	repo := new(mockTicketRepo)
	svc := NewTicketService(repo, new(mockNotifier))

	userID, ticketID := uuid.New(), uuid.New()
	repo.On("GetByID", mock.Anything, ticketID).Return(&models.Ticket{
		ID:     ticketID,
		UserID: userID,
		Status: models.TicketStatusInProgress,
	}, nil)
	repo.On("AddMessage", mock.Anything, mock.AnythingOfType("*models.TicketMessage")).Return(nil)

	message, err := svc.AddMessage(context.Background(), userID, models.RoleClient, ticketID, "когда ответите?")

	require.NoError(t, err)
	assert.Equal(t, models.MessageSenderUser, message.SenderRole)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, ticketID, mock.Anything)
}

func TestAddMessage_AdminReplyMovesToInProgress(t *testing.T) {
	repo := new(mockTicketRepo)
	notifier := new(mockNotifier)
	svc := NewTicketService(repo, notifier)

	ownerID, adminID, ticketID := uuid.New(), uuid.New(), uuid.New()
	repo.On("GetByID", mock.Anything, ticketID).Return(&models.Ticket{
		ID:      ticketID,
		UserID:  ownerID,
		Subject: "Не вывезли мусор",
		Status:  models.TicketStatusOpen,
	}, nil)
	repo.On("AddMessage", mock.Anything, mock.AnythingOfType("*models.TicketMessage")).Return(nil)
	repo.On("UpdateStatus", mock.Anything, ticketID, models.TicketStatusInProgress).Return(nil)
	notifier.On("BroadcastToUser", ownerID, models.NotificationTicketReply, mock.Anything).Return(nil)

	message, err := svc.AddMessage(context.Background(), adminID, models.RoleAdmin, ticketID, "разбираемся")

	require.NoError(t, err)
	assert.Equal(t, models.MessageSenderAdmin, message.SenderRole)
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestAddMessage_EmptyContent(t *testing.T) {
	svc := NewTicketService(new(mockTicketRepo), new(mockNotifier))

	_, err := svc.AddMessage(context.Background(), uuid.New(), models.RoleClient, uuid.New(), "   ")

	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestCloseTicket_Idempotent(t *testing.T) {
	repo := new(mockTicketRepo)
	svc := NewTicketService(repo, new(mockNotifier))

	userID, ticketID := uuid.New(), uuid.New()
	repo.On("GetByID", mock.Anything, ticketID).Return(&models.Ticket{
		ID:     ticketID,
		UserID: userID,
		Status: models.TicketStatusClosed,
	}, nil)

	err := svc.CloseTicket(context.Background(), userID, models.RoleClient, ticketID)

	require.NoError(t, err)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, ticketID, mock.Anything)
}

func TestCloseTicket_NotFound(t *testing.T) {
	repo := new(mockTicketRepo)
	svc := NewTicketService(repo, new(mockNotifier))

	ticketID := uuid.New()
	repo.On("GetByID", mock.Anything, ticketID).Return(nil, repository.ErrTicketNotFound)

	err := svc.CloseTicket(context.Background(), uuid.New(), models.RoleClient, ticketID)

	assert.ErrorIs(t, err, apperror.ErrTicketNotFound)
}
