package application

import (
	"errors"
	"fmt"
	"net/http"
)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeOperationInProgress  = "OPERATION_ALREADY_IN_PROGRESS"
	ErrCodeOperationConflict    = "OPERATION_CONFLICT"
	ErrCodeGateway              = "GATEWAY_ERROR"
	ErrCodeChargeNotFound       = "CHARGE_NOT_FOUND"
	ErrCodeUnsupportedOperation = "UNSUPPORTED_OPERATION"
	ErrCodeRefundNotAvailable   = "REFUND_NOT_AVAILABLE"
	ErrCodeInternal             = "INTERNAL_ERROR"
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeInvalidState         = "INVALID_STATE"
)

// NewOperationInProgressError signals that another request holds the charge.
// It is an expected concurrency outcome, not a failure.
func NewOperationInProgressError(operation, externalID string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeOperationInProgress,
		Message:    fmt.Sprintf("%s for charge already in progress, %s", operation, externalID),
		HTTPStatus: http.StatusAccepted,
	}
}

func NewOperationConflictError(externalID string, err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeOperationConflict,
		Message:    fmt.Sprintf("Operation for charge conflicting, %s", externalID),
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

// NewGatewayError hides provider diagnostics from the caller; they stay in Err
// for logging.
func NewGatewayError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeGateway,
		Message:    "There was an error processing the payment with the gateway",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewChargeNotFoundError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeChargeNotFound,
		Message:    "Charge not found",
		HTTPStatus: http.StatusNotFound,
		Err:        err,
	}
}

func NewUnsupportedOperationError(operation string, gateway string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeUnsupportedOperation,
		Message:    fmt.Sprintf("%s is not supported by %s", operation, gateway),
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewRefundNotAvailableError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeRefundNotAvailable,
		Message:    "Refund amount not available",
		HTTPStatus: http.StatusPreconditionFailed,
		Err:        err,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewInvalidTransitionError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidState,
		Message:    "Invalid transition",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
