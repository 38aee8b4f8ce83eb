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

// ---- Transfer Business Logic (TRF) ----

// ErrInvalidTransfer covers structural violations of a transfer request,
// such as a self-transfer or a non-positive amount.
func ErrInvalidTransfer(reason string) *AppError {
	return New("TRF_001", fmt.Sprintf("Invalid transfer: %s", reason), http.StatusUnprocessableEntity)
}

func ErrInsufficientFunds() *AppError {
	return New("TRF_002", "Insufficient funds in source account", http.StatusPaymentRequired)
}

func ErrNotFound(entity string) *AppError {
	return New("TRF_003", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrForbidden() *AppError {
	return New("TRF_004", "Caller is not authorized for this account", http.StatusForbidden)
}

func ErrInvalidTransition() *AppError {
	return New("TRF_005", "Transfer is not in a state that permits this change", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrStorageUnavailable signals that the durable store could not be reached.
// Unlike SYS_001 it is retriable by the caller.
func ErrStorageUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Storage temporarily unavailable", http.StatusServiceUnavailable, err)
}

// Validation returns a request-validation error.
func Validation(message string) *AppError {
	return New("TRF_001", message, http.StatusBadRequest)
}
