package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/vyvozim/hauling-backend/internal/models"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/repository"
	"github.com/vyvozim/hauling-backend/internal/validation"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	AddRole(ctx context.Context, id uuid.UUID, role string) error
	Anonymize(ctx context.Context, id uuid.UUID) error
	UpsertClientProfile(ctx context.Context, profile *models.ClientProfile) error
	GetClientProfile(ctx context.Context, userID uuid.UUID) (*models.ClientProfile, error)
	CreateExecutorProfile(ctx context.Context, profile *models.ExecutorProfile) error
	GetExecutorProfile(ctx context.Context, userID uuid.UUID) (*models.ExecutorProfile, error)
	AddExecutorDocument(ctx context.Context, doc *models.ExecutorDocument) error
	CreateSession(ctx context.Context, session *models.Session) error
	GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error)
	DeleteSession(ctx context.Context, refreshToken string) error
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) error
	SetWorking(ctx context.Context, userID uuid.UUID, working bool) error
	SaveSMSCode(ctx context.Context, code *models.SMSCode) error
	GetSMSCode(ctx context.Context, phone string) (*models.SMSCode, error)
	MarkSMSCodeVerified(ctx context.Context, phone string) error
	DeleteSMSCode(ctx context.Context, phone string) error
}

// AccountOrderCanceller отменяет открытые заказы при удалении аккаунта.
type AccountOrderCanceller interface {
	CancelOpenByClient(ctx context.Context, clientID uuid.UUID, reason string) ([]models.Order, error)
	CancelOpenByExecutor(ctx context.Context, executorID uuid.UUID, reason string) ([]models.Order, error)
}

// SMSSender внешний SMS шлюз. В development используется логирующая заглушка.
type SMSSender interface {
	Send(ctx context.Context, phone, text string) error
}

// AuthService инкапсулирует регистрацию, вход по SMS коду и управление ролями.
type AuthService struct {
	repo         AuthRepository
	orders       AccountOrderCanceller
	sms          SMSSender
	tokenManager *TokenManager
	codeTTL      time.Duration
}

// RegisterClientInput данные регистрации клиента.
type RegisterClientInput struct {
	Phone       string
	Name        string
	City        string
	Street      string
	HouseNumber string
}

// RegisterExecutorInput данные регистрации исполнителя.
type RegisterExecutorInput struct {
	Phone           string
	Name            string
	VehicleNumber   string
	VehicleCapacity int
	DocumentPaths   map[string]string // kind -> путь в хранилище
}

// AuthResult итог регистрации или входа.
type AuthResult struct {
	User      *models.User
	TokenPair *TokenPair
}

// VerifyResult итог проверки SMS кода.
type VerifyResult struct {
	IsNewUser bool
	Auth      *AuthResult
}

// SessionMeta метаданные клиента для сессии.
type SessionMeta struct {
	UserAgent string
	IP        string
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, orders AccountOrderCanceller, sms SMSSender, tokenManager *TokenManager, codeTTL time.Duration) *AuthService {
	return &AuthService{
		repo:         repo,
		orders:       orders,
		sms:          sms,
		tokenManager: tokenManager,
		codeTTL:      codeTTL,
	}
}

// SendCode генерирует одноразовый код и отправляет его через SMS шлюз.
// В базе хранится только bcrypt-хеш кода.
func (s *AuthService) SendCode(ctx context.Context, phone string) error {
	if err := validation.ValidatePhone(phone); err != nil {
		return apperror.Validation(err.Error(), map[string]string{"phone_number": err.Error()})
	}
	phone = validation.NormalizePhone(phone)

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("auth service: не удалось сгенерировать код: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth service: не удалось захешировать код: %w", err)
	}

	record := &models.SMSCode{
		Phone:     phone,
		CodeHash:  string(hash),
		ExpiresAt: time.Now().Add(s.codeTTL),
	}
	if err := s.repo.SaveSMSCode(ctx, record); err != nil {
		return err
	}

	if err := s.sms.Send(ctx, phone, "Код подтверждения: "+code); err != nil {
		return fmt.Errorf("auth service: не удалось отправить SMS: %w", err)
	}
	return nil
}

// VerifyCode проверяет код. Для существующего пользователя выпускает токены,
// для нового помечает код подтверждённым до последующей регистрации.
func (s *AuthService) VerifyCode(ctx context.Context, phone, code string, meta SessionMeta) (*VerifyResult, error) {
	phone = validation.NormalizePhone(phone)

	record, err := s.repo.GetSMSCode(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrSMSCodeNotFound) {
			return nil, apperror.ErrInvalidCode
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)) != nil {
		return nil, apperror.ErrInvalidCode
	}

	user, err := s.repo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			if err := s.repo.MarkSMSCodeVerified(ctx, phone); err != nil {
				return nil, err
			}
			return &VerifyResult{IsNewUser: true}, nil
		}
		return nil, err
	}

	if err := s.repo.DeleteSMSCode(ctx, phone); err != nil {
		return nil, err
	}

	auth, err := s.issueTokens(ctx, user, user.Roles[0], meta)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Auth: auth}, nil
}

// RegisterClient создаёт нового пользователя с ролью клиента.
func (s *AuthService) RegisterClient(ctx context.Context, in RegisterClientInput, meta SessionMeta) (*AuthResult, error) {
	details := map[string]string{}
	if err := validation.ValidatePhone(in.Phone); err != nil {
		details["phone_number"] = err.Error()
	}
	if err := validation.ValidateName(in.Name); err != nil {
		details["name"] = err.Error()
	}
	if err := validation.ValidateAddressField("город", in.City, validation.MaxCityLength); err != nil {
		details["city"] = err.Error()
	}
	if err := validation.ValidateAddressField("улица", in.Street, validation.MaxStreetLength); err != nil {
		details["street"] = err.Error()
	}
	if err := validation.ValidateAddressField("номер дома", in.HouseNumber, validation.MaxHouseNumberLength); err != nil {
		details["house_number"] = err.Error()
	}
	if len(details) > 0 {
		return nil, apperror.Validation("некорректные данные регистрации", details)
	}

	phone := validation.NormalizePhone(in.Phone)
	if err := s.requireVerifiedCode(ctx, phone); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByPhone(ctx, phone); err == nil {
		return nil, apperror.ErrDuplicateAccount
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	user := &models.User{
		PhoneNumber: phone,
		Name:        in.Name,
		Roles:       []string{models.RoleClient},
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	profile := &models.ClientProfile{
		UserID:      user.ID,
		City:        in.City,
		Street:      in.Street,
		HouseNumber: in.HouseNumber,
	}
	if err := s.repo.UpsertClientProfile(ctx, profile); err != nil {
		return nil, err
	}

	if err := s.repo.DeleteSMSCode(ctx, phone); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user, models.RoleClient, meta)
}

// RegisterExecutor создаёт нового пользователя с ролью исполнителя.
// Верификация документов выполняется администратором вне сервиса,
// профиль создаётся с is_verified = false.
func (s *AuthService) RegisterExecutor(ctx context.Context, in RegisterExecutorInput, meta SessionMeta) (*AuthResult, error) {
	details := map[string]string{}
	if err := validation.ValidatePhone(in.Phone); err != nil {
		details["phone_number"] = err.Error()
	}
	if err := validation.ValidateName(in.Name); err != nil {
		details["name"] = err.Error()
	}
	if err := validation.ValidateVehicleNumber(in.VehicleNumber); err != nil {
		details["vehicle_number"] = err.Error()
	}
	if err := validation.ValidateVehicleCapacity(in.VehicleCapacity); err != nil {
		details["vehicle_capacity"] = err.Error()
	}
	for _, kind := range []string{models.DocumentKindPassport, models.DocumentKindDriverLicense, models.DocumentKindVehicleRegistration} {
		if in.DocumentPaths[kind] == "" {
			details["documents."+kind] = "документ обязателен"
		}
	}
	if len(details) > 0 {
		return nil, apperror.Validation("некорректные данные регистрации", details)
	}

	phone := validation.NormalizePhone(in.Phone)
	if err := s.requireVerifiedCode(ctx, phone); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByPhone(ctx, phone); err == nil {
		return nil, apperror.ErrDuplicateAccount
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	user := &models.User{
		PhoneNumber: phone,
		Name:        in.Name,
		Roles:       []string{models.RoleExecutor},
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	profile := &models.ExecutorProfile{
		UserID:          user.ID,
		VehicleNumber:   in.VehicleNumber,
		VehicleCapacity: in.VehicleCapacity,
	}
	if err := s.repo.CreateExecutorProfile(ctx, profile); err != nil {
		return nil, err
	}

	for kind, path := range in.DocumentPaths {
		doc := &models.ExecutorDocument{UserID: user.ID, Kind: kind, FilePath: path}
		if err := s.repo.AddExecutorDocument(ctx, doc); err != nil {
			return nil, err
		}
	}

	if err := s.repo.DeleteSMSCode(ctx, phone); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user, models.RoleExecutor, meta)
}

// AddClientRole выдаёт существующему исполнителю роль клиента.
func (s *AuthService) AddClientRole(ctx context.Context, userID uuid.UUID, city, street, houseNumber string) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.HasRole(models.RoleClient) {
		return nil, apperror.ErrAlreadyRegistered
	}

	details := map[string]string{}
	if err := validation.ValidateAddressField("город", city, validation.MaxCityLength); err != nil {
		details["city"] = err.Error()
	}
	if err := validation.ValidateAddressField("улица", street, validation.MaxStreetLength); err != nil {
		details["street"] = err.Error()
	}
	if err := validation.ValidateAddressField("номер дома", houseNumber, validation.MaxHouseNumberLength); err != nil {
		details["house_number"] = err.Error()
	}
	if len(details) > 0 {
		return nil, apperror.Validation("некорректный адрес", details)
	}

	if err := s.repo.AddRole(ctx, userID, models.RoleClient); err != nil {
		return nil, err
	}
	if err := s.repo.UpsertClientProfile(ctx, &models.ClientProfile{
		UserID: userID, City: city, Street: street, HouseNumber: houseNumber,
	}); err != nil {
		return nil, err
	}

	return s.getUser(ctx, userID)
}

// AddExecutorRole выдаёт существующему клиенту роль исполнителя.
func (s *AuthService) AddExecutorRole(ctx context.Context, userID uuid.UUID, vehicleNumber string, capacity int, documentPaths map[string]string) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.HasRole(models.RoleExecutor) {
		return nil, apperror.ErrAlreadyRegistered
	}

	details := map[string]string{}
	if err := validation.ValidateVehicleNumber(vehicleNumber); err != nil {
		details["vehicle_number"] = err.Error()
	}
	if err := validation.ValidateVehicleCapacity(capacity); err != nil {
		details["vehicle_capacity"] = err.Error()
	}
	if len(details) > 0 {
		return nil, apperror.Validation("некорректные данные исполнителя", details)
	}

	if err := s.repo.AddRole(ctx, userID, models.RoleExecutor); err != nil {
		return nil, err
	}
	if err := s.repo.CreateExecutorProfile(ctx, &models.ExecutorProfile{
		UserID: userID, VehicleNumber: vehicleNumber, VehicleCapacity: capacity,
	}); err != nil {
		return nil, err
	}

	for kind, path := range documentPaths {
		if path == "" {
			continue
		}
		if err := s.repo.AddExecutorDocument(ctx, &models.ExecutorDocument{
			UserID: userID, Kind: kind, FilePath: path,
		}); err != nil {
			return nil, err
		}
	}

	return s.getUser(ctx, userID)
}

// SwitchActiveRole перевыпускает токены под другой ролью пользователя.
func (s *AuthService) SwitchActiveRole(ctx context.Context, userID uuid.UUID, role string, meta SessionMeta) (*AuthResult, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasRole(role) {
		return nil, apperror.ErrRoleNotGranted
	}
	return s.issueTokens(ctx, user, role, meta)
}

// Refresh обменивает refresh токен на новую пару, сохраняя активную роль.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta SessionMeta) (*AuthResult, error) {
	session, err := s.repo.GetSessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, err
	}

	if _, err := s.tokenManager.ParseRefresh(refreshToken); err != nil {
		return nil, apperror.ErrUnauthorized
	}

	user, err := s.getUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteSession(ctx, refreshToken); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user, session.ActiveRole, meta)
}

// Logout удаляет сессию по refresh токену.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.DeleteSession(ctx, refreshToken)
}

// DeleteAccount безвозвратно удаляет аккаунт: снимает исполнителя со смены,
// отменяет открытые заказы с обеих сторон, отзывает сессии и анонимизирует
// данные пользователя.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if _, err := s.orders.CancelOpenByClient(ctx, userID, "аккаунт удалён"); err != nil {
		return err
	}
	if user.HasRole(models.RoleExecutor) {
		if err := s.repo.SetWorking(ctx, userID, false); err != nil {
			return err
		}
		if _, err := s.orders.CancelOpenByExecutor(ctx, userID, "аккаунт удалён"); err != nil {
			return err
		}
	}
	if err := s.repo.DeleteUserSessions(ctx, userID); err != nil {
		return err
	}
	return s.repo.Anonymize(ctx, userID)
}

// GetUser возвращает пользователя по идентификатору.
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.getUser(ctx, userID)
}

// UpdateProfile обновляет имя и адрес пользователя.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, name *string, city, street, houseNumber *string) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name != nil {
		if err := validation.ValidateName(*name); err != nil {
			return nil, apperror.Validation(err.Error(), map[string]string{"name": err.Error()})
		}
		if err := s.repo.UpdateName(ctx, userID, *name); err != nil {
			return nil, err
		}
	}

	if city != nil || street != nil || houseNumber != nil {
		if !user.HasRole(models.RoleClient) {
			return nil, apperror.ErrRoleNotGranted
		}
		profile, err := s.repo.GetClientProfile(ctx, userID)
		if err != nil {
			if !errors.Is(err, repository.ErrUserNotFound) {
				return nil, err
			}
			profile = &models.ClientProfile{UserID: userID}
		}
		if city != nil {
			profile.City = *city
		}
		if street != nil {
			profile.Street = *street
		}
		if houseNumber != nil {
			profile.HouseNumber = *houseNumber
		}
		if err := s.repo.UpsertClientProfile(ctx, profile); err != nil {
			return nil, err
		}
	}

	return s.getUser(ctx, userID)
}

// requireVerifiedCode проверяет, что для номера есть подтверждённый SMS код.
func (s *AuthService) requireVerifiedCode(ctx context.Context, phone string) error {
	record, err := s.repo.GetSMSCode(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrSMSCodeNotFound) {
			return apperror.ErrInvalidCode
		}
		return err
	}
	if record.VerifiedAt == nil {
		return apperror.ErrInvalidCode
	}
	return nil
}

func (s *AuthService) getUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// issueTokens выпускает пару токенов и сохраняет сессию.
func (s *AuthService) issueTokens(ctx context.Context, user *models.User, activeRole string, meta SessionMeta) (*AuthResult, error) {
	pair, _, refreshExp, err := s.tokenManager.GeneratePair(user.ID, activeRole)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось выпустить токены: %w", err)
	}

	session := &models.Session{
		UserID:       user.ID,
		ActiveRole:   activeRole,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    refreshExp,
	}
	if meta.UserAgent != "" {
		session.UserAgent = &meta.UserAgent
	}
	if meta.IP != "" {
		session.IPAddress = &meta.IP
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return &AuthResult{User: user, TokenPair: pair}, nil
}

// generateCode возвращает четырёхзначный код.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
