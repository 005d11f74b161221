package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Коды денежного ядра и машин состояний.
	ErrCodeInsufficientFunds        ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeInvalidState             ErrorCode = "INVALID_STATE"
	ErrCodeDuplicateInteraction     ErrorCode = "DUPLICATE_INTERACTION"
	ErrCodeSelfInteractionForbidden ErrorCode = "SELF_INTERACTION_FORBIDDEN"
	ErrCodeUnknownReference         ErrorCode = "UNKNOWN_REFERENCE"
)

type AppError struct {
	Code       ErrorCode
	Message    string
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

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound, ErrCodeUnknownReference:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeSelfInteractionForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidState, ErrCodeDuplicateInteraction:
		return http.StatusConflict
	case ErrCodeInsufficientFunds:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или пустую строку для не-AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	return CodeOf(err) == ErrCodeForbidden
}

func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

func IsInsufficientFunds(err error) bool {
	return CodeOf(err) == ErrCodeInsufficientFunds
}

func IsInvalidState(err error) bool {
	return CodeOf(err) == ErrCodeInvalidState
}

func IsDuplicateInteraction(err error) bool {
	return CodeOf(err) == ErrCodeDuplicateInteraction
}

func IsSelfInteraction(err error) bool {
	return CodeOf(err) == ErrCodeSelfInteractionForbidden
}

func IsUnknownReference(err error) bool {
	return CodeOf(err) == ErrCodeUnknownReference
}

var (
	ErrUnauthorized  = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden     = New(ErrCodeForbidden, "недостаточно прав")
	ErrInvalidAmount = New(ErrCodeValidation, "сумма должна быть положительной")

	ErrWalletNotFound      = New(ErrCodeNotFound, "кошелёк не найден")
	ErrHoldNotFound        = New(ErrCodeNotFound, "escrow не найден")
	ErrInteractionNotFound = New(ErrCodeNotFound, "отклик не найден")
	ErrSubjectNotFound     = New(ErrCodeNotFound, "объявление не найдено")
	ErrAssignmentNotFound  = New(ErrCodeNotFound, "работа не найдена")
	ErrInvoiceNotFound     = New(ErrCodeNotFound, "счёт не найден")

	ErrInsufficientFunds        = New(ErrCodeInsufficientFunds, "недостаточно средств на балансе")
	ErrDuplicateInteraction     = New(ErrCodeDuplicateInteraction, "вы уже откликнулись на это объявление")
	ErrSelfInteractionForbidden = New(ErrCodeSelfInteractionForbidden, "нельзя откликнуться на собственное объявление")
	ErrUnknownReference         = New(ErrCodeUnknownReference, "транзакция с такой ссылкой не найдена")
)

// InvalidState формирует ошибку недопустимого перехода.
func InvalidState(message string) *AppError {
	return New(ErrCodeInvalidState, message)
}
