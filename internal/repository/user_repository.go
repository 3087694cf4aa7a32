package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vyvozim/hauling-backend/internal/models"
)

// Ошибки уровня репозитория.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrExecutorNotFound = errors.New("executor profile not found")
	ErrSMSCodeNotFound  = errors.New("sms code not found")
)

// UserRepository отвечает за работу с таблицами users, client_profiles,
// executor_profiles, executor_documents, sessions и sms_codes.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя с набором ролей.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (phone_number, name, roles)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		user.PhoneNumber, user.Name, pq.Array([]string(user.Roles)),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: create %w", err)
	}
	return nil
}

// GetByPhone возвращает пользователя по номеру телефона.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, phone_number, name, roles, is_blocked, is_deleted, created_at, updated_at
		FROM users
		WHERE phone_number = $1 AND NOT is_deleted
	`
	if err := r.db.GetContext(ctx, &user, query, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by phone %w", err)
	}
	return &user, nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, phone_number, name, roles, is_blocked, is_deleted, created_at, updated_at
		FROM users
		WHERE id = $1 AND NOT is_deleted
	`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by id %w", err)
	}
	return &user, nil
}

// UpdateName обновляет имя пользователя.
func (r *UserRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $2, updated_at = NOW() WHERE id = $1 AND NOT is_deleted`, id, name)
	if err != nil {
		return fmt.Errorf("user repository: update name %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AddRole добавляет роль пользователю, если её ещё нет.
func (r *UserRepository) AddRole(ctx context.Context, id uuid.UUID, role string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET roles = array_append(roles, $2), updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted AND NOT ($2 = ANY(roles))
	`, id, role)
	if err != nil {
		return fmt.Errorf("user repository: add role %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Anonymize помечает аккаунт удалённым и затирает контактные данные.
// Телефон освобождается для повторной регистрации.
func (r *UserRepository) Anonymize(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET phone_number = 'deleted_' || id::text,
		    name = 'Удалённый пользователь',
		    is_deleted = TRUE,
		    updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted
	`, id)
	if err != nil {
		return fmt.Errorf("user repository: anonymize %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpsertClientProfile создаёт или обновляет адрес клиента.
func (r *UserRepository) UpsertClientProfile(ctx context.Context, profile *models.ClientProfile) error {
	query := `
		INSERT INTO client_profiles (user_id, city, street, house_number, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET city = EXCLUDED.city,
			street = EXCLUDED.street,
			house_number = EXCLUDED.house_number,
			updated_at = NOW()
		RETURNING updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		profile.UserID, profile.City, profile.Street, profile.HouseNumber,
	).Scan(&profile.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: upsert client profile %w", err)
	}
	return nil
}

// GetClientProfile возвращает адрес клиента.
func (r *UserRepository) GetClientProfile(ctx context.Context, userID uuid.UUID) (*models.ClientProfile, error) {
	var profile models.ClientProfile
	query := `
		SELECT user_id, city, street, house_number, updated_at
		FROM client_profiles
		WHERE user_id = $1
	`
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get client profile %w", err)
	}
	return &profile, nil
}

// CreateExecutorProfile создаёт профиль исполнителя с нулевым балансом.
func (r *UserRepository) CreateExecutorProfile(ctx context.Context, profile *models.ExecutorProfile) error {
	query := `
		INSERT INTO executor_profiles (user_id, vehicle_number, vehicle_capacity)
		VALUES ($1, $2, $3)
		RETURNING balance, is_verified, is_working, rating, completed_orders, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		profile.UserID, profile.VehicleNumber, profile.VehicleCapacity,
	).Scan(
		&profile.Balance, &profile.IsVerified, &profile.IsWorking,
		&profile.Rating, &profile.CompletedOrders, &profile.UpdatedAt,
	); err != nil {
		return fmt.Errorf("user repository: create executor profile %w", err)
	}
	return nil
}

// GetExecutorProfile возвращает профиль исполнителя.
func (r *UserRepository) GetExecutorProfile(ctx context.Context, userID uuid.UUID) (*models.ExecutorProfile, error) {
	var profile models.ExecutorProfile
	query := `
		SELECT user_id, vehicle_number, vehicle_capacity, is_verified, is_working,
		       balance, rating, completed_orders, last_activity_at, updated_at
		FROM executor_profiles
		WHERE user_id = $1
	`
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutorNotFound
		}
		return nil, fmt.Errorf("user repository: get executor profile %w", err)
	}
	return &profile, nil
}

// UpdateExecutorVehicle обновляет данные машины исполнителя.
func (r *UserRepository) UpdateExecutorVehicle(ctx context.Context, userID uuid.UUID, vehicleNumber string, capacity int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE executor_profiles
		SET vehicle_number = $2, vehicle_capacity = $3, updated_at = NOW()
		WHERE user_id = $1
	`, userID, vehicleNumber, capacity)
	if err != nil {
		return fmt.Errorf("user repository: update executor vehicle %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrExecutorNotFound
	}
	return nil
}

// SetWorking выставляет флаг смены и штампует активность.
func (r *UserRepository) SetWorking(ctx context.Context, userID uuid.UUID, working bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE executor_profiles
		SET is_working = $2,
		    last_activity_at = CASE WHEN $2 THEN NOW() ELSE last_activity_at END,
		    updated_at = NOW()
		WHERE user_id = $1
	`, userID, working)
	if err != nil {
		return fmt.Errorf("user repository: set working %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrExecutorNotFound
	}
	return nil
}

// TouchActivity обновляет отметку активности работающего исполнителя.
func (r *UserRepository) TouchActivity(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE executor_profiles
		SET last_activity_at = NOW()
		WHERE user_id = $1 AND is_working
	`, userID)
	if err != nil {
		return fmt.Errorf("user repository: touch activity %w", err)
	}
	return nil
}

// ExpireIdleExecutors снимает со смены исполнителей без активности дольше окна
// и возвращает их идентификаторы для уведомлений.
func (r *UserRepository) ExpireIdleExecutors(ctx context.Context, idleFor time.Duration) ([]uuid.UUID, error) {
	rows, err := r.db.QueryxContext(ctx, `
		UPDATE executor_profiles
		SET is_working = FALSE, updated_at = NOW()
		WHERE is_working AND last_activity_at < NOW() - make_interval(secs => $1)
		RETURNING user_id
	`, idleFor.Seconds())
	if err != nil {
		return nil, fmt.Errorf("user repository: expire idle executors %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("user repository: scan expired executor %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListWorkingExecutorIDs возвращает идентификаторы исполнителей на смене.
func (r *UserRepository) ListWorkingExecutorIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM executor_profiles WHERE is_working`); err != nil {
		return nil, fmt.Errorf("user repository: list working executors %w", err)
	}
	return ids, nil
}

// AddExecutorDocument сохраняет ссылку на документ для верификации.
func (r *UserRepository) AddExecutorDocument(ctx context.Context, doc *models.ExecutorDocument) error {
	query := `
		INSERT INTO executor_documents (user_id, kind, file_path)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query, doc.UserID, doc.Kind, doc.FilePath).
		Scan(&doc.ID, &doc.CreatedAt); err != nil {
		return fmt.Errorf("user repository: add executor document %w", err)
	}
	return nil
}

// ListExecutorDocuments возвращает документы исполнителя.
func (r *UserRepository) ListExecutorDocuments(ctx context.Context, userID uuid.UUID) ([]models.ExecutorDocument, error) {
	var docs []models.ExecutorDocument
	query := `
		SELECT id, user_id, kind, file_path, created_at
		FROM executor_documents
		WHERE user_id = $1
		ORDER BY created_at
	`
	if err := r.db.SelectContext(ctx, &docs, query, userID); err != nil {
		return nil, fmt.Errorf("user repository: list executor documents %w", err)
	}
	return docs, nil
}

// CreateSession сохраняет сессию с refresh токеном.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (user_id, active_role, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		session.UserID, session.ActiveRole, session.RefreshToken,
		session.UserAgent, session.IPAddress, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create session %w", err)
	}
	return nil
}

// GetSessionByRefreshToken возвращает живую сессию по refresh токену.
func (r *UserRepository) GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	var session models.Session
	query := `
		SELECT id, user_id, active_role, refresh_token, user_agent, ip_address, expires_at, created_at
		FROM sessions
		WHERE refresh_token = $1 AND expires_at > NOW()
	`
	if err := r.db.GetContext(ctx, &session, query, refreshToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get session %w", err)
	}
	return &session, nil
}

// DeleteSession удаляет сессию по refresh токену.
func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE refresh_token = $1`, refreshToken); err != nil {
		return fmt.Errorf("user repository: delete session %w", err)
	}
	return nil
}

// DeleteUserSessions удаляет все сессии пользователя.
func (r *UserRepository) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("user repository: delete user sessions %w", err)
	}
	return nil
}

// SaveSMSCode сохраняет хеш одноразового кода, вытесняя предыдущий для номера.
func (r *UserRepository) SaveSMSCode(ctx context.Context, code *models.SMSCode) error {
	query := `
		INSERT INTO sms_codes (phone, code_hash, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE
		SET code_hash = EXCLUDED.code_hash,
			expires_at = EXCLUDED.expires_at,
			verified_at = NULL,
			created_at = NOW()
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query, code.Phone, code.CodeHash, code.ExpiresAt).
		Scan(&code.ID, &code.CreatedAt); err != nil {
		return fmt.Errorf("user repository: save sms code %w", err)
	}
	return nil
}

// GetSMSCode возвращает непросроченный код для номера.
func (r *UserRepository) GetSMSCode(ctx context.Context, phone string) (*models.SMSCode, error) {
	var code models.SMSCode
	query := `
		SELECT id, phone, code_hash, verified_at, expires_at, created_at
		FROM sms_codes
		WHERE phone = $1 AND expires_at > NOW()
	`
	if err := r.db.GetContext(ctx, &code, query, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSMSCodeNotFound
		}
		return nil, fmt.Errorf("user repository: get sms code %w", err)
	}
	return &code, nil
}

// MarkSMSCodeVerified отмечает код подтверждённым для последующей регистрации.
func (r *UserRepository) MarkSMSCodeVerified(ctx context.Context, phone string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE sms_codes SET verified_at = NOW() WHERE phone = $1`, phone); err != nil {
		return fmt.Errorf("user repository: mark sms code verified %w", err)
	}
	return nil
}

// DeleteSMSCode удаляет использованный код.
func (r *UserRepository) DeleteSMSCode(ctx context.Context, phone string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM sms_codes WHERE phone = $1`, phone); err != nil {
		return fmt.Errorf("user repository: delete sms code %w", err)
	}
	return nil
}
