package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode стабильный машинный код ошибки для клиента.
type ErrorCode string

const (
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden           ErrorCode = "FORBIDDEN"
	ErrCodeValidation          ErrorCode = "VALIDATION_ERROR"
	ErrCodeConflict            ErrorCode = "CONFLICT"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
	ErrCodeOrderAlreadyTaken   ErrorCode = "ORDER_ALREADY_TAKEN"
	ErrCodeInvalidOrderState   ErrorCode = "INVALID_ORDER_STATE"
	ErrCodeAlreadyPaid         ErrorCode = "ALREADY_PAID"
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeInsufficientFunds   ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeNotOnDuty           ErrorCode = "NOT_ON_DUTY"
	ErrCodeNotVerified         ErrorCode = "NOT_VERIFIED"
	ErrCodeRoleNotGranted      ErrorCode = "ROLE_NOT_GRANTED"
	ErrCodeAlreadyRegistered   ErrorCode = "ALREADY_REGISTERED"
	ErrCodeDuplicateAccount    ErrorCode = "DUPLICATE_ACCOUNT"
	ErrCodeInvalidCode         ErrorCode = "INVALID_CODE"
	ErrCodeTicketClosed        ErrorCode = "TICKET_CLOSED"
)

// AppError структурированная ошибка с кодом и человекочитаемым сообщением.
type AppError struct {
	Code       ErrorCode
	Message    string
	Details    map[string]string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is позволяет сравнивать AppError по коду через errors.Is.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !errors.As(target, &appErr) {
		return false
	}
	return e.Code == appErr.Code
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation возвращает ошибку валидации со списком полей.
func Validation(message string, details map[string]string) *AppError {
	err := New(ErrCodeValidation, message)
	err.Details = details
	return err
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeRoleNotGranted, ErrCodeNotVerified:
		return http.StatusForbidden
	case ErrCodeValidation, ErrCodeInvalidCode:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeOrderAlreadyTaken, ErrCodeInvalidOrderState,
		ErrCodeAlreadyPaid, ErrCodeAlreadyRegistered, ErrCodeDuplicateAccount,
		ErrCodeTicketClosed:
		return http.StatusConflict
	case ErrCodeInsufficientBalance, ErrCodeInsufficientFunds, ErrCodeNotOnDuty:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// AsAppError извлекает AppError из цепочки ошибок.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == ErrCodeNotFound
}

func IsValidation(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == ErrCodeValidation
}

// Сентинельные ошибки доменного уровня.
var (
	ErrUserNotFound     = New(ErrCodeNotFound, "пользователь не найден")
	ErrOrderNotFound    = New(ErrCodeNotFound, "заказ не найден")
	ErrTicketNotFound   = New(ErrCodeNotFound, "тикет не найден")
	ErrExecutorNotFound = New(ErrCodeNotFound, "профиль исполнителя не найден")
	ErrUnauthorized     = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden        = New(ErrCodeForbidden, "недостаточно прав")

	ErrOrderAlreadyTaken   = New(ErrCodeOrderAlreadyTaken, "заказ уже принят другим исполнителем")
	ErrInvalidOrderState   = New(ErrCodeInvalidOrderState, "операция недоступна в текущем статусе заказа")
	ErrNotAssignedExecutor = New(ErrCodeForbidden, "заказ назначен другому исполнителю")
	ErrAlreadyPaid         = New(ErrCodeAlreadyPaid, "заказ уже оплачен")
	ErrInsufficientBalance = New(ErrCodeInsufficientBalance, "недостаточный баланс для начала работы")
	ErrInsufficientFunds   = New(ErrCodeInsufficientFunds, "недостаточно средств на балансе")
	ErrNotOnDuty           = New(ErrCodeNotOnDuty, "исполнитель не на смене")
	ErrNotVerified         = New(ErrCodeNotVerified, "аккаунт исполнителя не прошёл проверку")
	ErrRoleNotGranted      = New(ErrCodeRoleNotGranted, "роль не выдана пользователю")
	ErrAlreadyRegistered   = New(ErrCodeAlreadyRegistered, "роль уже выдана пользователю")
	ErrDuplicateAccount    = New(ErrCodeDuplicateAccount, "номер телефона уже зарегистрирован для этой роли")
	ErrInvalidCode         = New(ErrCodeInvalidCode, "неверный код подтверждения")
	ErrTicketClosed        = New(ErrCodeTicketClosed, "тикет закрыт, новые сообщения недоступны")
)
