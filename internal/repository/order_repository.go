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

// Ошибки уровня репозитория.
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderStateStale = errors.New("order state changed concurrently")
	ErrOrderAlreadySet = errors.New("order already has executor")
)

const orderColumns = `
	id, client_id, executor_id, status, vehicle_capacity, city, street, house_number,
	scheduled_date, scheduled_time, comment, is_urgent, price, cancel_reason, cancelled_by,
	created_at, accepted_at, completed_at, paid_at, updated_at
`

// OrderRepository отвечает за работу с таблицей orders.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository создаёт новый экземпляр.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create сохраняет новый заказ со статусом pending.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (client_id, status, vehicle_capacity, city, street, house_number,
		                    scheduled_date, scheduled_time, comment, is_urgent, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		order.ClientID, order.Status, order.VehicleCapacity,
		order.City, order.Street, order.HouseNumber,
		order.ScheduledDate, order.ScheduledTime, order.Comment,
		order.IsUrgent, order.Price,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("order repository: create %w", err)
	}
	return nil
}

// GetByID возвращает заказ по идентификатору.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("order repository: get by id %w", err)
	}
	return &order, nil
}

// ListPendingUnassigned возвращает заказы, доступные для принятия.
func (r *OrderRepository) ListPendingUnassigned(ctx context.Context, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1 AND executor_id IS NULL
		ORDER BY is_urgent DESC, created_at
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &orders, query, models.OrderStatusPending, limit, offset); err != nil {
		return nil, fmt.Errorf("order repository: list pending %w", err)
	}
	return orders, nil
}

// ListByClient возвращает заказы клиента, свежие первыми.
func (r *OrderRepository) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &orders, query, clientID, limit, offset); err != nil {
		return nil, fmt.Errorf("order repository: list by client %w", err)
	}
	return orders, nil
}

// ListActiveByExecutor возвращает незавершённые заказы исполнителя.
func (r *OrderRepository) ListActiveByExecutor(ctx context.Context, executorID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE executor_id = $1 AND status IN ($2, $3, $4)
		ORDER BY accepted_at
	`
	if err := r.db.SelectContext(ctx, &orders, query, executorID,
		models.OrderStatusAccepted, models.OrderStatusInProgress, models.OrderStatusAwaitingPayment); err != nil {
		return nil, fmt.Errorf("order repository: list active by executor %w", err)
	}
	return orders, nil
}

// ListHistoryByExecutor возвращает завершённые и отменённые заказы исполнителя.
func (r *OrderRepository) ListHistoryByExecutor(ctx context.Context, executorID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE executor_id = $1 AND status IN ($2, $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	if err := r.db.SelectContext(ctx, &orders, query, executorID,
		models.OrderStatusPaid, models.OrderStatusCancelled, limit, offset); err != nil {
		return nil, fmt.Errorf("order repository: list history by executor %w", err)
	}
	return orders, nil
}

// Accept атомарно назначает исполнителя на заказ. Условие по статусу pending
// и пустому executor_id гарантирует не более одного победителя: проигравшие
// конкурентные запросы не находят строку и получают ErrOrderAlreadySet.
func (r *OrderRepository) Accept(ctx context.Context, orderID, executorID uuid.UUID) (*models.Order, error) {
	var order models.Order
	query := `
		UPDATE orders
		SET status = $3, executor_id = $2, accepted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $4 AND executor_id IS NULL
		RETURNING ` + orderColumns + `
	`
	err := r.db.GetContext(ctx, &order, query, orderID, executorID,
		models.OrderStatusAccepted, models.OrderStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Либо заказа нет, либо его уже забрали.
			if _, getErr := r.GetByID(ctx, orderID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrOrderAlreadySet
		}
		return nil, fmt.Errorf("order repository: accept %w", err)
	}
	return &order, nil
}

// UpdateStatus выполняет условный переход статуса from -> to.
// Возвращает ErrOrderStateStale, если заказ уже не в ожидаемом статусе.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus) (*models.Order, error) {
	var order models.Order
	query := `
		UPDATE orders
		SET status = $3,
		    completed_at = CASE WHEN $3 = 'awaiting_payment' THEN NOW() ELSE completed_at END,
		    paid_at = CASE WHEN $3 = 'paid' THEN NOW() ELSE paid_at END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + orderColumns + `
	`
	err := r.db.GetContext(ctx, &order, query, orderID, from, to)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, orderID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrOrderStateStale
		}
		return nil, fmt.Errorf("order repository: update status %w", err)
	}
	return &order, nil
}

// Cancel переводит заказ в cancelled из любого нетерминального статуса.
func (r *OrderRepository) Cancel(ctx context.Context, orderID, actorID uuid.UUID, reason string) (*models.Order, error) {
	var order models.Order
	query := `
		UPDATE orders
		SET status = $4, cancel_reason = $3, cancelled_by = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($5, $6)
		RETURNING ` + orderColumns + `
	`
	err := r.db.GetContext(ctx, &order, query, orderID, actorID, reason,
		models.OrderStatusCancelled, models.OrderStatusPaid, models.OrderStatusCancelled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, orderID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrOrderStateStale
		}
		return nil, fmt.Errorf("order repository: cancel %w", err)
	}
	return &order, nil
}

// CancelOpenByClient отменяет все незавершённые заказы клиента (удаление аккаунта).
func (r *OrderRepository) CancelOpenByClient(ctx context.Context, clientID uuid.UUID, reason string) ([]models.Order, error) {
	rows, err := r.db.QueryxContext(ctx, `
		UPDATE orders
		SET status = $3, cancel_reason = $2, cancelled_by = client_id, updated_at = NOW()
		WHERE client_id = $1 AND status NOT IN ($4, $5)
		RETURNING `+orderColumns+`
	`, clientID, reason, models.OrderStatusCancelled, models.OrderStatusPaid, models.OrderStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("order repository: cancel open by client %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		if err := rows.StructScan(&order); err != nil {
			return nil, fmt.Errorf("order repository: scan cancelled order %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// CancelOpenByExecutor отменяет все незавершённые заказы, закреплённые за исполнителем.
func (r *OrderRepository) CancelOpenByExecutor(ctx context.Context, executorID uuid.UUID, reason string) ([]models.Order, error) {
	rows, err := r.db.QueryxContext(ctx, `
		UPDATE orders
		SET status = $3, cancel_reason = $2, cancelled_by = executor_id, updated_at = NOW()
		WHERE executor_id = $1 AND status NOT IN ($4, $5)
		RETURNING `+orderColumns+`
	`, executorID, reason, models.OrderStatusCancelled, models.OrderStatusPaid, models.OrderStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("order repository: cancel open by executor %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		if err := rows.StructScan(&order); err != nil {
			return nil, fmt.Errorf("order repository: scan cancelled order %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
