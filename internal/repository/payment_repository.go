package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/vyvozim/hauling-backend/internal/models"
)

// Ошибки уровня репозитория.
var (
	ErrPaymentExists     = errors.New("payment already recorded for order")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDepositNotFound   = errors.New("deposit not found")
)

// PaymentRepository отвечает за платежи, журнал баланса, пополнения и выводы.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository создаёт новый экземпляр.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// SettleOrderPayment записывает платёж и проводит расчёт с исполнителем в одной
// транзакции. Уникальный индекс payments(order_id) даёт идемпотентность:
// повторная оплата того же заказа завершается ErrPaymentExists без второго
// движения по балансу. delta может быть отрицательной (комиссия при наличных).
func (r *PaymentRepository) SettleOrderPayment(
	ctx context.Context,
	payment *models.Payment,
	executorID uuid.UUID,
	delta decimal.Decimal,
	description string,
) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("payment repository: begin tx %w", err)
	}
	defer tx.Rollback()

	// Платёж. Конфликт по order_id означает повторную оплату.
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO payments (order_id, client_id, amount, method, status, completed_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at, completed_at
	`, payment.OrderID, payment.ClientID, payment.Amount, payment.Method, models.PaymentStatusCompleted).
		Scan(&payment.ID, &payment.CreatedAt, &payment.CompletedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrPaymentExists
		}
		return fmt.Errorf("payment repository: insert payment %w", err)
	}

	// Переводим заказ в paid условным обновлением.
	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $2, paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, payment.OrderID, models.OrderStatusPaid, models.OrderStatusAwaitingPayment)
	if err != nil {
		return fmt.Errorf("payment repository: mark order paid %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderStateToPaid
	}

	// Единственное атомарное движение по балансу на событие оплаты.
	if _, err := tx.ExecContext(ctx, `
		UPDATE executor_profiles
		SET balance = balance + $2, completed_orders = completed_orders + 1, updated_at = NOW()
		WHERE user_id = $1
	`, executorID, delta); err != nil {
		return fmt.Errorf("payment repository: settle balance %w", err)
	}

	txType := models.TransactionTypeSettlement
	if delta.IsNegative() {
		txType = models.TransactionTypeCommission
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balance_transactions (user_id, order_id, type, amount, description)
		VALUES ($1, $2, $3, $4, $5)
	`, executorID, payment.OrderID, txType, delta, description); err != nil {
		return fmt.Errorf("payment repository: insert balance transaction %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("payment repository: commit %w", err)
	}
	return nil
}

// ErrOrderStateToPaid возвращается, когда заказ оплачивают не из awaiting_payment.
var ErrOrderStateToPaid = errors.New("order is not awaiting payment")

// GetPaymentByOrder возвращает платёж по заказу.
func (r *PaymentRepository) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	query := `
		SELECT id, order_id, client_id, amount, method, status, created_at, completed_at
		FROM payments
		WHERE order_id = $1
	`
	if err := r.db.GetContext(ctx, &payment, query, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("payment repository: get by order %w", err)
	}
	return &payment, nil
}

// CreateDeposit создаёт пополнение в статусе pending.
func (r *PaymentRepository) CreateDeposit(ctx context.Context, deposit *models.Deposit) error {
	query := `
		INSERT INTO deposits (user_id, amount, status, gateway_ref)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		deposit.UserID, deposit.Amount, models.DepositStatusPending, deposit.GatewayRef).
		Scan(&deposit.ID, &deposit.CreatedAt); err != nil {
		return fmt.Errorf("payment repository: create deposit %w", err)
	}
	return nil
}

// ConfirmDeposit подтверждает пополнение и зачисляет баланс. Условие по
// статусу pending делает подтверждение идемпотентным к повторным вебхукам.
func (r *PaymentRepository) ConfirmDeposit(ctx context.Context, gatewayRef string) (*models.Deposit, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("payment repository: begin tx %w", err)
	}
	defer tx.Rollback()

	var deposit models.Deposit
	err = tx.QueryRowxContext(ctx, `
		UPDATE deposits
		SET status = $2, confirmed_at = NOW()
		WHERE gateway_ref = $1 AND status = $3
		RETURNING id, user_id, amount, status, gateway_ref, created_at, confirmed_at
	`, gatewayRef, models.DepositStatusConfirmed, models.DepositStatusPending).
		StructScan(&deposit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDepositNotFound
		}
		return nil, fmt.Errorf("payment repository: confirm deposit %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE executor_profiles SET balance = balance + $2, updated_at = NOW()
		WHERE user_id = $1
	`, deposit.UserID, deposit.Amount); err != nil {
		return nil, fmt.Errorf("payment repository: credit deposit %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balance_transactions (user_id, type, amount, description)
		VALUES ($1, $2, $3, 'Пополнение баланса')
	`, deposit.UserID, models.TransactionTypeDeposit, deposit.Amount); err != nil {
		return nil, fmt.Errorf("payment repository: insert deposit transaction %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("payment repository: commit %w", err)
	}
	return &deposit, nil
}

// CreateWithdrawal списывает баланс и создаёт заявку на вывод.
// Баланс блокируется FOR UPDATE, чтобы исключить двойное списание.
func (r *PaymentRepository) CreateWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, cardLast4 *string) (*models.Withdrawal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("payment repository: begin tx %w", err)
	}
	defer tx.Rollback()

	var balance decimal.Decimal
	err = tx.GetContext(ctx, &balance,
		`SELECT balance FROM executor_profiles WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutorNotFound
		}
		return nil, fmt.Errorf("payment repository: lock balance %w", err)
	}
	if balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE executor_profiles SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount); err != nil {
		return nil, fmt.Errorf("payment repository: debit balance %w", err)
	}

	var withdrawal models.Withdrawal
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO withdrawals (user_id, amount, status, card_last4)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, amount, status, card_last4, rejection_reason, created_at, processed_at
	`, userID, amount, models.WithdrawalStatusPending, cardLast4).
		StructScan(&withdrawal)
	if err != nil {
		return nil, fmt.Errorf("payment repository: create withdrawal %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balance_transactions (user_id, type, amount, description)
		VALUES ($1, $2, $3, 'Вывод средств')
	`, userID, models.TransactionTypeWithdrawal, amount.Neg()); err != nil {
		return nil, fmt.Errorf("payment repository: insert withdrawal transaction %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("payment repository: commit %w", err)
	}
	return &withdrawal, nil
}

// ListTransactions возвращает журнал движения средств исполнителя.
func (r *PaymentRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BalanceTransaction, error) {
	var txns []models.BalanceTransaction
	query := `
		SELECT id, user_id, order_id, type, amount, description, created_at
		FROM balance_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &txns, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("payment repository: list transactions %w", err)
	}
	return txns, nil
}

// ListWithdrawals возвращает заявки на вывод исполнителя.
func (r *PaymentRepository) ListWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	var ws []models.Withdrawal
	query := `
		SELECT id, user_id, amount, status, card_last4, rejection_reason, created_at, processed_at
		FROM withdrawals
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &ws, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("payment repository: list withdrawals %w", err)
	}
	return ws, nil
}
