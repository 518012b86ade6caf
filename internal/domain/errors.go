package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrChargeNotFound       = errors.New("charge not found")
	ErrRefundNotFound       = errors.New("refund not found")
	ErrAccountNotFound      = errors.New("gateway account not found")
	ErrVersionConflict      = errors.New("version conflict")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrRefundNotAvailable   = errors.New("refund amount not available")
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInvalidTransition     = "INVALID_TRANSITION"
	ErrCodeChargeNotFound        = "CHARGE_NOT_FOUND"
	ErrCodeRefundNotFound        = "REFUND_NOT_FOUND"
	ErrCodeAccountNotFound       = "ACCOUNT_NOT_FOUND"
	ErrCodeVersionConflict       = "VERSION_CONFLICT"
	ErrCodeInvalidAmount         = "INVALID_AMOUNT"
	ErrCodeMissingRequiredField  = "MISSING_REQUIRED_FIELD"
	ErrCodeTransactionIDMismatch = "TRANSACTION_ID_MISMATCH"
	ErrCodeRefundNotAvailable    = "REFUND_NOT_AVAILABLE"
)

// InvalidStateTransitionError carries both ends of a rejected transition.
type InvalidStateTransitionError struct {
	From ChargeStatus
	To   ChargeStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("charge state transition [%s] -> [%s] not allowed", e.From, e.To)
}

func (e *InvalidStateTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
		Err:     ErrMissingRequiredField,
	}
}

func NewInvalidAmountError(amount int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %d", amount),
		Err:     ErrInvalidAmount,
	}
}

func NewChargeNotFoundError(externalID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeChargeNotFound,
		Message: fmt.Sprintf("charge with id %s not found", externalID),
		Err:     ErrChargeNotFound,
	}
}

func NewRefundNotFoundError(reference string) *DomainError {
	return &DomainError{
		Code:    ErrCodeRefundNotFound,
		Message: fmt.Sprintf("refund %s not found", reference),
		Err:     ErrRefundNotFound,
	}
}

func NewAccountNotFoundError(accountID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeAccountNotFound,
		Message: fmt.Sprintf("gateway account %s not found", accountID),
		Err:     ErrAccountNotFound,
	}
}

func NewVersionConflictError(externalID string, expected int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeVersionConflict,
		Message: fmt.Sprintf("charge %s was modified concurrently (expected version %d)", externalID, expected),
		Err:     ErrVersionConflict,
	}
}

func NewTransactionIDMismatchError(existing, received string) *DomainError {
	return &DomainError{
		Code:    ErrCodeTransactionIDMismatch,
		Message: fmt.Sprintf("gateway transaction id already set to %s, refusing %s", existing, received),
	}
}

func NewRefundNotAvailableError(requested, available int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeRefundNotAvailable,
		Message: fmt.Sprintf("refund of %d requested but only %d is available", requested, available),
		Err:     ErrRefundNotAvailable,
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
