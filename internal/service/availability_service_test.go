package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vyvozim/hauling-backend/internal/models"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/repository"
)

type mockAvailabilityRepo struct {
	mock.Mock
}

func (m *mockAvailabilityRepo) GetExecutorProfile(ctx context.Context, userID uuid.UUID) (*models.ExecutorProfile, error) {
	args := m.Called(ctx, userID)
	if profile, ok := args.Get(0).(*models.ExecutorProfile); ok {
		return profile, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAvailabilityRepo) SetWorking(ctx context.Context, userID uuid.UUID, working bool) error {
	args := m.Called(ctx, userID, working)
	return args.Error(0)
}

func (m *mockAvailabilityRepo) TouchActivity(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockAvailabilityRepo) ExpireIdleExecutors(ctx context.Context, idleFor time.Duration) ([]uuid.UUID, error) {
	args := m.Called(ctx, idleFor)
	if ids, ok := args.Get(0).([]uuid.UUID); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func newAvailabilityForTest(repo *mockAvailabilityRepo, notifier *mockNotifier) *AvailabilityService {
	return NewAvailabilityService(repo, notifier, decimal.NewFromInt(200), 30*time.Minute)
}

func verifiedProfile(userID uuid.UUID, balance int64, working bool) *models.ExecutorProfile {
	return &models.ExecutorProfile{
		UserID:     userID,
		IsVerified: true,
		IsWorking:  working,
		Balance:    decimal.NewFromInt(balance),
	}
}

func TestStartWork_Success(t *testing.T) {
	repo := new(mockAvailabilityRepo)
	svc := newAvailabilityForTest(repo, new(mockNotifier))

	executorID := uuid.New()
	repo.On("GetExecutorProfile", mock.Anything, executorID).Return(verifiedProfile(executorID, 500, false), nil).Once()
	repo.On("SetWorking", mock.Anything, executorID, true).Return(nil)
	repo.On("GetExecutorProfile", mock.Anything, executorID).Return(verifiedProfile(executorID, 500, true), nil).Once()

	profile, err := svc.StartWork(context.Background(), executorID)

	require.NoError(t, err)
	assert.True(t, profile.IsWorking)
	repo.AssertExpectations(t)
}

func TestStartWork_NotVerified(t *testing.T) {
	repo := new(mockAvailabilityRepo)
	svc := newAvailabilityForTest(repo, new(mockNotifier))

	executorID := uuid.New()
	profile := verifiedProfile(executorID, 500, false)
	profile.IsVerified = false
	repo.On("GetExecutorProfile", mock.Anything, executorID).Return(profile, nil)

	_, err := svc.StartWork(context.Background(), executorID)

	assert.ErrorIs(t, err, apperror.ErrNotVerified)
	repo.AssertNotCalled(t, "SetWorking", mock.Anything, executorID, true)
}

func TestStartWork_InsufficientBalance(t *testing.T) {
	repo := new(mockAvailabilityRepo)
	svc := newAvailabilityForTest(repo, new(mockNotifier))

	executorID := uuid.New()
	repo.On("GetExecutorProfile", mock.Anything, executorID).Return(verifiedProfile(executorID, 199, false), nil)

	_, err := svc.StartWork(context.Background(), executorID)

	assert.ErrorIs(t, err, apperror.ErrInsufficientBalance)
}

func TestStartWork_BalanceExactlyAtThreshold(t *testing.T) {
	repo := new(mockAvailabilityRepo)
	svc := newAvailabilityForTest(repo, new(mockNotifier))

	executorID := uuid.New()
	repo.On("GetExecutorProfile", mock.Anything, executorID).Return(verifiedProfile(executorID, 200, false), nil)
	repo.On("SetWorking", mock.Anything, executorID, true).Return(nil)

	_, err := svc.StartWork(context.Background(), executorID)

	require.NoError(t, err)
}

func TestStartWork_ProfileNotFound(t *testing.T) {
	repo := new(mockAvailabilityRepo)
	svc := newAvailabilityForTest(repo, new(mockNotifier))

	executorID := uuid.New()
	repo.On("GetExecutorProfile", mock.Anything, executorID).Return(nil, repository.ErrExecutorNotFound)

	_, err := svc.StartWork(context.Background(), executorID)

	assert.ErrorIs(t, err, apperror.ErrExecutorNotFound)
}

func TestStopWork_Success(t *testing.T) {
	repo := new(mockAvailabilityRepo)
	svc := newAvailabilityForTest(repo, new(mockNotifier))

	executorID := uuid.New()
	repo.On("GetExecutorProfile", mock.Anything, executorID).Return(verifiedProfile(executorID, 500, true), nil).Once()
	repo.On("SetWorking", mock.Anything, executorID, false).Return(nil)
	repo.On("GetExecutorProfile", mock.Anything, executorID).Return(verifiedProfile(executorID, 500, false), nil).Once()

	profile, err := svc.StopWork(context.Background(), executorID)

	require.NoError(t, err)
	assert.False(t, profile.IsWorking)
}

func TestHeartbeat_OffDuty(t *testing.T) {
	repo := new(mockAvailabilityRepo)
	svc := newAvailabilityForTest(repo, new(mockNotifier))

	executorID := uuid.New()
	repo.On("GetExecutorProfile", mock.Anything, executorID).Return(verifiedProfile(executorID, 500, false), nil)

	err := svc.Heartbeat(context.Background(), executorID)

	assert.ErrorIs(t, err, apperror.ErrNotOnDuty)
	repo.AssertNotCalled(t, "TouchActivity", mock.Anything, executorID)
}

func TestHeartbeat_ExtendsLease(t *testing.T) {
	repo := new(mockAvailabilityRepo)
	svc := newAvailabilityForTest(repo, new(mockNotifier))

	executorID := uuid.New()
	repo.On("GetExecutorProfile", mock.Anything, executorID).Return(verifiedProfile(executorID, 500, true), nil)
	repo.On("TouchActivity", mock.Anything, executorID).Return(nil)

	err := svc.Heartbeat(context.Background(), executorID)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRequireOnDuty_OffDuty(t *testing.T) {
	repo := new(mockAvailabilityRepo)
	svc := newAvailabilityForTest(repo, new(mockNotifier))

	executorID := uuid.New()
	repo.On("GetExecutorProfile", mock.Anything, executorID).Return(verifiedProfile(executorID, 500, false), nil)

	_, err := svc.RequireOnDuty(context.Background(), executorID)

	assert.ErrorIs(t, err, apperror.ErrNotOnDuty)
}

func TestExpireIdle_NotifiesStoppedExecutors(t *testing.T) {
	repo := new(mockAvailabilityRepo)
	notifier := new(mockNotifier)
	svc := newAvailabilityForTest(repo, notifier)

	first, second := uuid.New(), uuid.New()
	repo.On("ExpireIdleExecutors", mock.Anything, 30*time.Minute).Return([]uuid.UUID{first, second}, nil)
	notifier.On("BroadcastToUser", first, models.NotificationWorkAutoStopped, mock.Anything).Return(nil)
	notifier.On("BroadcastToUser", second, models.NotificationWorkAutoStopped, mock.Anything).Return(nil)

	svc.expireIdle(context.Background())

	notifier.AssertExpectations(t)
}

func TestExpireIdle_NoIdleExecutors(t *testing.T) {
	repo := new(mockAvailabilityRepo)
	notifier := new(mockNotifier)
	svc := newAvailabilityForTest(repo, notifier)

	repo.On("ExpireIdleExecutors", mock.Anything, 30*time.Minute).Return([]uuid.UUID{}, nil)

	svc.expireIdle(context.Background())

	notifier.AssertNotCalled(t, "BroadcastToUser", mock.Anything, mock.Anything, mock.Anything)
}
