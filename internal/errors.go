package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeForbidden  ErrorType = "FORBIDDEN"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeIntegrity  ErrorType = "INTEGRITY_ERROR"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidDate      ErrorCode = "INVALID_DATE"
	ErrCodeInvalidEnum      ErrorCode = "INVALID_ENUM_VALUE"
	ErrCodePaymentPairing   ErrorCode = "INVALID_PAYMENT_METHOD_PAIRING"

	ErrCodeEntryNotFound      ErrorCode = "ENTRY_NOT_FOUND"
	ErrCodeInvalidEntryType   ErrorCode = "INVALID_ENTRY_TYPE"
	ErrCodeAlreadySettled     ErrorCode = "ALREADY_SETTLED"
	ErrCodeExceedsOutstanding ErrorCode = "EXCEEDS_OUTSTANDING"
	ErrCodeEntryImmutable     ErrorCode = "ENTRY_IMMUTABLE"
	ErrCodeHasSettlements     ErrorCode = "ENTRY_HAS_SETTLEMENTS"
	ErrCodeOrphanedSettlement ErrorCode = "ORPHANED_SETTLEMENT"

	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"

	ErrCodeStoreFailure ErrorCode = "STORE_FAILURE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewIntegrityError flags a data-integrity anomaly (e.g. a settlement row
// whose source entry can no longer be resolved). Distinct from plain
// validation so callers can alert on it.
func NewIntegrityError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeIntegrity,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewStoreError wraps a persistence/transaction failure. Never swallowed,
// potentially retryable by the caller.
func NewStoreError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeStoreFailure,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrEntryNotFound = NewNotFoundError("Entry not found", ErrCodeEntryNotFound)

	ErrInvalidEntryType   = NewValidationError("only Credit and Advance entries can be settled", ErrCodeInvalidEntryType)
	ErrAlreadySettled     = NewValidationError("entry is already fully settled", ErrCodeAlreadySettled)
	ErrInvalidAmount      = NewValidationError("settlement amount must be positive", ErrCodeInvalidAmount)
	ErrExceedsOutstanding = NewValidationError("settlement amount exceeds outstanding balance", ErrCodeExceedsOutstanding)

	ErrOrphanedSettlement = NewIntegrityError("settlement entry has no resolvable source entry", ErrCodeOrphanedSettlement)

	ErrEntryImmutable  = NewValidationError("entry cannot be modified once settled", ErrCodeEntryImmutable)
	ErrHasSettlements  = NewConflictError("entry has settlement entries; reverse them first", ErrCodeHasSettlements)
	ErrNotARealization = NewValidationError("entry is not a settlement-generated entry", ErrCodeInvalidEntryType)
	ErrIsRealization   = NewValidationError("settlement entries must be deleted via settlement reversal", ErrCodeInvalidEntryType)

	ErrInvalidToken = &AppError{Type: ErrorTypeForbidden, Code: ErrCodeInvalidToken, Message: "Invalid token", StatusCode: http.StatusUnauthorized}
	ErrTokenExpired = &AppError{Type: ErrorTypeForbidden, Code: ErrCodeTokenExpired, Message: "Token has expired", StatusCode: http.StatusUnauthorized}
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
