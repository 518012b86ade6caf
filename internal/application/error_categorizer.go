package application

import (
	"context"
	"errors"
	"net/http"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

// ErrorCategory represents the nature of an error for retry logic
type ErrorCategory string

const (
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryPermanent      ErrorCategory = "PERMANENT"
	CategoryBusinessRule   ErrorCategory = "BUSINESS_RULE"
	CategoryClientError    ErrorCategory = "CLIENT_ERROR"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
	CategoryConcurrency    ErrorCategory = "CONCURRENCY"
)

// CategorizeError determines error category for retry and logging purposes
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	// Gateway errors are checked before service errors because a ServiceError
	// wraps the gateway error that caused it.
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		switch gwErr.Kind {
		case gateway.KindTransport:
			return CategoryTransient
		case gateway.KindUnsupported:
			return CategoryClientError
		default:
			return CategoryPermanent
		}
	}

	if errors.Is(err, domain.ErrVersionConflict) {
		return CategoryConcurrency
	}

	if errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrRefundNotAvailable) {
		return CategoryBusinessRule
	}

	if errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrMissingRequiredField) ||
		errors.Is(err, domain.ErrChargeNotFound) ||
		errors.Is(err, domain.ErrAccountNotFound) {
		return CategoryClientError
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeOperationInProgress, ErrCodeOperationConflict:
			return CategoryConcurrency
		case ErrCodeInvalidInput, ErrCodeChargeNotFound, ErrCodeUnsupportedOperation:
			return CategoryClientError
		case ErrCodeRefundNotAvailable, ErrCodeInvalidState:
			return CategoryBusinessRule
		case ErrCodeInternal:
			return CategoryInfrastructure
		case ErrCodeGateway:
			return CategoryPermanent
		}
	}

	return CategoryTransient
}

// IsRetryable returns true if the error category suggests retry
func IsRetryable(err error) bool {
	switch CategorizeError(err) {
	case CategoryTransient, CategoryInfrastructure, CategoryConcurrency:
		return true
	}
	return false
}

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrMissingRequiredField),
		errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRefundNotAvailable):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrChargeNotFound),
		errors.Is(err, domain.ErrRefundNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		if gwErr.Kind == gateway.KindUnsupported {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

// ToErrorCode clear error code for API responses
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		return domain.ErrCodeInvalidTransition
	}

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		if gwErr.Kind == gateway.KindUnsupported {
			return ErrCodeUnsupportedOperation
		}
		return ErrCodeGateway
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}

	return ErrCodeInternal
}
