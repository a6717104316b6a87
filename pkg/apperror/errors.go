package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

// Validation returns a generic field/amount validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrBelowMinPayout(min int64) *AppError {
	return New("VAL_002", fmt.Sprintf("Payout amount is below the minimum of %d", min), http.StatusBadRequest)
}

// ---- Wallet (WAL) ----

func ErrInsufficientBalance() *AppError {
	return New("WAL_001", "Insufficient available balance", http.StatusUnprocessableEntity)
}

func ErrWalletNotFound() *AppError {
	return New("WAL_002", "Wallet not found", http.StatusNotFound)
}

// ---- Payout workflow (PAYOUT) ----

func ErrInvalidStateTransition(current string) *AppError {
	return New("PAYOUT_001", fmt.Sprintf("Request is %s and cannot be modified", current), http.StatusConflict)
}

func ErrOutstandingPayoutExists() *AppError {
	return New("PAYOUT_002", "An outstanding payout request already exists", http.StatusConflict)
}

func ErrRejectionReasonRequired() *AppError {
	return New("PAYOUT_003", "Rejection reason is required", http.StatusBadRequest)
}

// ---- Revenue & refunds (REV) ----

func ErrAlreadyRefunded() *AppError {
	return New("REV_001", "Revenue record has already been refunded", http.StatusConflict)
}

// ---- Not found / authorization ----

func ErrNotFound(entity string) *AppError {
	return New("LED_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrUnauthorized() *AppError {
	return New("AUTH_001", "Not allowed to access this resource", http.StatusForbidden)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("AUTH_003", "Invalid webhook signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("AUTH_004", "Request timestamp expired", http.StatusForbidden)
}

// ---- Rate limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_002", "Internal database error", http.StatusInternalServerError, err)
}
