package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vyvozim/hauling-backend/internal/models"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/repository"
)

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockAuthRepo) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	args := m.Called(ctx, phone)
	if user, ok := args.Get(0).(*models.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*models.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *mockAuthRepo) AddRole(ctx context.Context, id uuid.UUID, role string) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *mockAuthRepo) Anonymize(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAuthRepo) UpsertClientProfile(ctx context.Context, profile *models.ClientProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockAuthRepo) GetClientProfile(ctx context.Context, userID uuid.UUID) (*models.ClientProfile, error) {
	args := m.Called(ctx, userID)
	if profile, ok := args.Get(0).(*models.ClientProfile); ok {
		return profile, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthRepo) CreateExecutorProfile(ctx context.Context, profile *models.ExecutorProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockAuthRepo) GetExecutorProfile(ctx context.Context, userID uuid.UUID) (*models.ExecutorProfile, error) {
	args := m.Called(ctx, userID)
	if profile, ok := args.Get(0).(*models.ExecutorProfile); ok {
		return profile, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthRepo) AddExecutorDocument(ctx context.Context, doc *models.ExecutorDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockAuthRepo) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockAuthRepo) GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	args := m.Called(ctx, refreshToken)
	if session, ok := args.Get(0).(*models.Session); ok {
		return session, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthRepo) DeleteSession(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *mockAuthRepo) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockAuthRepo) SetWorking(ctx context.Context, userID uuid.UUID, working bool) error {
	args := m.Called(ctx, userID, working)
	return args.Error(0)
}

func (m *mockAuthRepo) SaveSMSCode(ctx context.Context, code *models.SMSCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *mockAuthRepo) GetSMSCode(ctx context.Context, phone string) (*models.SMSCode, error) {
	args := m.Called(ctx, phone)
	if code, ok := args.Get(0).(*models.SMSCode); ok {
		return code, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthRepo) MarkSMSCodeVerified(ctx context.Context, phone string) error {
	args := m.Called(ctx, phone)
	return args.Error(0)
}

func (m *mockAuthRepo) DeleteSMSCode(ctx context.Context, phone string) error {
	args := m.Called(ctx, phone)
	return args.Error(0)
}

type mockOrderCanceller struct {
	mock.Mock
}

func (m *mockOrderCanceller) CancelOpenByClient(ctx context.Context, clientID uuid.UUID, reason string) ([]models.Order, error) {
	args := m.Called(ctx, clientID, reason)
	if orders, ok := args.Get(0).([]models.Order); ok {
		return orders, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderCanceller) CancelOpenByExecutor(ctx context.Context, executorID uuid.UUID, reason string) ([]models.Order, error) {
	args := m.Called(ctx, executorID, reason)
	if orders, ok := args.Get(0).([]models.Order); ok {
		return orders, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSMSSender struct {
	mock.Mock
}

func (m *mockSMSSender) Send(ctx context.Context, phone, text string) error {
	args := m.Called(ctx, phone, text)
	return args.Error(0)
}

func newAuthForTest(repo *mockAuthRepo, orders *mockOrderCanceller, sms *mockSMSSender) *AuthService {
	tokens := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 30*24*time.Hour)
	return NewAuthService(repo, orders, sms, tokens, 5*time.Minute)
}

func hashCode(t *testing.T, code string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestSendCode_InvalidPhone(t *testing.T) {
	svc := newAuthForTest(new(mockAuthRepo), new(mockOrderCanceller), new(mockSMSSender))

	err := svc.SendCode(context.Background(), "12345")

	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestSendCode_NormalizesPhoneAndHashesCode(t *testing.T) {
	repo := new(mockAuthRepo)
	sms := new(mockSMSSender)
	svc := newAuthForTest(repo, new(mockOrderCanceller), sms)

	var saved *models.SMSCode
	repo.On("SaveSMSCode", mock.Anything, mock.AnythingOfType("*models.SMSCode")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.SMSCode)
		}).Return(nil)

	var sentText string
	sms.On("Send", mock.Anything, "+79991234567", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			sentText = args.Get(2).(string)
		}).Return(nil)

	err := svc.SendCode(context.Background(), "89991234567")

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "+79991234567", saved.Phone)

	// в SMS уходит сам код, в базе лежит только его bcrypt-хеш
	code := strings.TrimPrefix(sentText, "Код подтверждения: ")
	require.Len(t, code, 4)
	assert.NotEqual(t, code, saved.CodeHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(saved.CodeHash), []byte(code)))
}

func TestVerifyCode_WrongCode(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthForTest(repo, new(mockOrderCanceller), new(mockSMSSender))

	repo.On("GetSMSCode", mock.Anything, "+79991234567").Return(&models.SMSCode{
		Phone:    "+79991234567",
		CodeHash: hashCode(t, "1234"),
	}, nil)

	_, err := svc.VerifyCode(context.Background(), "+79991234567", "0000", SessionMeta{})

	assert.ErrorIs(t, err, apperror.ErrInvalidCode)
}

func TestVerifyCode_UnknownPhone(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthForTest(repo, new(mockOrderCanceller), new(mockSMSSender))

	repo.On("GetSMSCode", mock.Anything, "+79991234567").Return(nil, repository.ErrSMSCodeNotFound)

	_, err := svc.VerifyCode(context.Background(), "+79991234567", "1234", SessionMeta{})

	assert.ErrorIs(t, err, apperror.ErrInvalidCode)
}

func TestVerifyCode_NewUser(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthForTest(repo, new(mockOrderCanceller), new(mockSMSSender))

	repo.On("GetSMSCode", mock.Anything, "+79991234567").Return(&models.SMSCode{
		Phone:    "+79991234567",
		CodeHash: hashCode(t, "1234"),
	}, nil)
	repo.On("GetByPhone", mock.Anything, "+79991234567").Return(nil, repository.ErrUserNotFound)
	repo.On("MarkSMSCodeVerified", mock.Anything, "+79991234567").Return(nil)

	result, err := svc.VerifyCode(context.Background(), "+79991234567", "1234", SessionMeta{})

	require.NoError(t, err)
	assert.True(t, result.IsNewUser)
	assert.Nil(t, result.Auth)
	repo.AssertExpectations(t)
}

func TestVerifyCode_ExistingUserGetsTokens(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthForTest(repo, new(mockOrderCanceller), new(mockSMSSender))

	user := &models.User{
		ID:          uuid.New(),
		PhoneNumber: "+79991234567",
		Name:        "Иван",
		Roles:       []string{models.RoleClient},
	}
	repo.On("GetSMSCode", mock.Anything, "+79991234567").Return(&models.SMSCode{
		Phone:    "+79991234567",
		CodeHash: hashCode(t, "1234"),
	}, nil)
	repo.On("GetByPhone", mock.Anything, "+79991234567").Return(user, nil)
	repo.On("DeleteSMSCode", mock.Anything, "+79991234567").Return(nil)
	repo.On("CreateSession", mock.Anything, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.VerifyCode(context.Background(), "89991234567", "1234", SessionMeta{UserAgent: "test", IP: "127.0.0.1"})

	require.NoError(t, err)
	assert.False(t, result.IsNewUser)
	require.NotNil(t, result.Auth)
	assert.NotEmpty(t, result.Auth.TokenPair.AccessToken)
	assert.NotEmpty(t, result.Auth.TokenPair.RefreshToken)
	repo.AssertExpectations(t)
}

func verifiedSMSCode(t *testing.T, phone string) *models.SMSCode {
	t.Helper()
	now := time.Now()
	return &models.SMSCode{
		Phone:      phone,
		CodeHash:   hashCode(t, "1234"),
		VerifiedAt: &now,
	}
}

func TestRegisterClient_DuplicateAccount(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthForTest(repo, new(mockOrderCanceller), new(mockSMSSender))

	repo.On("GetSMSCode", mock.Anything, "+79991234567").Return(verifiedSMSCode(t, "+79991234567"), nil)
	repo.On("GetByPhone", mock.Anything, "+79991234567").Return(&models.User{
		ID:    uuid.New(),
		Roles: []string{models.RoleClient},
	}, nil)

	_, err := svc.RegisterClient(context.Background(), RegisterClientInput{
		Phone:       "+79991234567",
		Name:        "Иван",
		City:        "Москва",
		Street:      "Ленина",
		HouseNumber: "10",
	}, SessionMeta{})

	assert.ErrorIs(t, err, apperror.ErrDuplicateAccount)
}

func TestRegisterClient_RequiresVerifiedCode(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthForTest(repo, new(mockOrderCanceller), new(mockSMSSender))

	// код есть, но не подтверждён через verify-code
	repo.On("GetSMSCode", mock.Anything, "+79991234567").Return(&models.SMSCode{
		Phone:    "+79991234567",
		CodeHash: hashCode(t, "1234"),
	}, nil)

	_, err := svc.RegisterClient(context.Background(), RegisterClientInput{
		Phone:       "+79991234567",
		Name:        "Иван",
		City:        "Москва",
		Street:      "Ленина",
		HouseNumber: "10",
	}, SessionMeta{})

	assert.ErrorIs(t, err, apperror.ErrInvalidCode)
}

func TestRegisterExecutor_RequiresAllDocuments(t *testing.T) {
	svc := newAuthForTest(new(mockAuthRepo), new(mockOrderCanceller), new(mockSMSSender))

	_, err := svc.RegisterExecutor(context.Background(), RegisterExecutorInput{
		Phone:           "+79991234567",
		Name:            "Пётр",
		VehicleNumber:   "А123БВ77",
		VehicleCapacity: 5,
		DocumentPaths: map[string]string{
			models.DocumentKindPassport: "u/passport.jpg",
		},
	}, SessionMeta{})

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeValidation, appErr.Code)
	assert.Contains(t, appErr.Details, "documents."+models.DocumentKindDriverLicense)
	assert.Contains(t, appErr.Details, "documents."+models.DocumentKindVehicleRegistration)
}

func TestRegisterExecutor_Success(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthForTest(repo, new(mockOrderCanceller), new(mockSMSSender))

	repo.On("GetSMSCode", mock.Anything, "+79991234567").Return(verifiedSMSCode(t, "+79991234567"), nil)
	repo.On("GetByPhone", mock.Anything, "+79991234567").Return(nil, repository.ErrUserNotFound)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)
	repo.On("CreateExecutorProfile", mock.Anything, mock.AnythingOfType("*models.ExecutorProfile")).Return(nil)
	repo.On("AddExecutorDocument", mock.Anything, mock.AnythingOfType("*models.ExecutorDocument")).Return(nil).Times(3)
	repo.On("DeleteSMSCode", mock.Anything, "+79991234567").Return(nil)
	repo.On("CreateSession", mock.Anything, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.RegisterExecutor(context.Background(), RegisterExecutorInput{
		Phone:           "+79991234567",
		Name:            "Пётр",
		VehicleNumber:   "А123БВ77",
		VehicleCapacity: 5,
		DocumentPaths: map[string]string{
			models.DocumentKindPassport:            "u/passport.jpg",
			models.DocumentKindDriverLicense:       "u/license.jpg",
			models.DocumentKindVehicleRegistration: "u/sts.jpg",
		},
	}, SessionMeta{})

	require.NoError(t, err)
	assert.True(t, result.User.HasRole(models.RoleExecutor))
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	repo.AssertExpectations(t)
}

func TestAddClientRole_AlreadyGranted(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthForTest(repo, new(mockOrderCanceller), new(mockSMSSender))

	userID := uuid.New()
	repo.On("GetByID", mock.Anything, userID).Return(&models.User{
		ID:    userID,
		Roles: []string{models.RoleClient, models.RoleExecutor},
	}, nil)

	_, err := svc.AddClientRole(context.Background(), userID, "Москва", "Ленина", "10")

	assert.ErrorIs(t, err, apperror.ErrAlreadyRegistered)
}

func TestSwitchActiveRole_NotGranted(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthForTest(repo, new(mockOrderCanceller), new(mockSMSSender))

	userID := uuid.New()
	repo.On("GetByID", mock.Anything, userID).Return(&models.User{
		ID:    userID,
		Roles: []string{models.RoleClient},
	}, nil)

	_, err := svc.SwitchActiveRole(context.Background(), userID, models.RoleExecutor, SessionMeta{})

	assert.ErrorIs(t, err, apperror.ErrRoleNotGranted)
}

func TestSwitchActiveRole_ReissuesTokens(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthForTest(repo, new(mockOrderCanceller), new(mockSMSSender))

	userID := uuid.New()
	repo.On("GetByID", mock.Anything, userID).Return(&models.User{
		ID:    userID,
		Roles: []string{models.RoleClient, models.RoleExecutor},
	}, nil)

	var session *models.Session
	repo.On("CreateSession", mock.Anything, mock.AnythingOfType("*models.Session")).
		Run(func(args mock.Arguments) {
			session = args.Get(1).(*models.Session)
		}).Return(nil)

	result, err := svc.SwitchActiveRole(context.Background(), userID, models.RoleExecutor, SessionMeta{})

	require.NoError(t, err)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	require.NotNil(t, session)
	assert.Equal(t, models.RoleExecutor, session.ActiveRole)
}

func TestRefresh_UnknownSession(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthForTest(repo, new(mockOrderCanceller), new(mockSMSSender))

	repo.On("GetSessionByRefreshToken", mock.Anything, "stale-token").Return(nil, repository.ErrUserNotFound)

	_, err := svc.Refresh(context.Background(), "stale-token", SessionMeta{})

	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestDeleteAccount_CancelsOrdersAndAnonymizes(t *testing.T) {
	repo := new(mockAuthRepo)
	orders := new(mockOrderCanceller)
	svc := newAuthForTest(repo, orders, new(mockSMSSender))

	userID := uuid.New()
	repo.On("GetByID", mock.Anything, userID).Return(&models.User{
		ID:    userID,
		Roles: []string{models.RoleClient},
	}, nil)
	orders.On("CancelOpenByClient", mock.Anything, userID, mock.AnythingOfType("string")).Return([]models.Order{}, nil)
	repo.On("DeleteUserSessions", mock.Anything, userID).Return(nil)
	repo.On("Anonymize", mock.Anything, userID).Return(nil)

	err := svc.DeleteAccount(context.Background(), userID)

	require.NoError(t, err)
	repo.AssertExpectations(t)
	orders.AssertExpectations(t)
	orders.AssertNotCalled(t, "CancelOpenByExecutor", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "SetWorking", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteAccount_ExecutorStopsWorkAndCancelsAssignedOrders(t *testing.T) {
	repo := new(mockAuthRepo)
	orders := new(mockOrderCanceller)
	svc := newAuthForTest(repo, orders, new(mockSMSSender))

	userID := uuid.New()
	repo.On("GetByID", mock.Anything, userID).Return(&models.User{
		ID:    userID,
		Roles: []string{models.RoleClient, models.RoleExecutor},
	}, nil)
	orders.On("CancelOpenByClient", mock.Anything, userID, mock.AnythingOfType("string")).Return([]models.Order{}, nil)
	repo.On("SetWorking", mock.Anything, userID, false).Return(nil)
	orders.On("CancelOpenByExecutor", mock.Anything, userID, mock.AnythingOfType("string")).Return([]models.Order{
		{ID: uuid.New(), ExecutorID: &userID, Status: models.OrderStatusCancelled},
	}, nil)
	repo.On("DeleteUserSessions", mock.Anything, userID).Return(nil)
	repo.On("Anonymize", mock.Anything, userID).Return(nil)

	err := svc.DeleteAccount(context.Background(), userID)

	require.NoError(t, err)
	repo.AssertExpectations(t)
	orders.AssertExpectations(t)
}
