package domain

import "fmt"

// ChargeStatus is the fine-grained internal status of a charge.
type ChargeStatus string

const (
	StatusCreated                  ChargeStatus = "CREATED"
	StatusEnteringCardDetails      ChargeStatus = "ENTERING_CARD_DETAILS"
	StatusAuthorisationReady       ChargeStatus = "AUTHORISATION_READY"
	StatusAuthorisationSubmitted   ChargeStatus = "AUTHORISATION_SUBMITTED"
	StatusAuthorisationSuccess     ChargeStatus = "AUTHORISATION_SUCCESS"
	StatusAuthorisationRejected    ChargeStatus = "AUTHORISATION_REJECTED"
	StatusAuthorisationError       ChargeStatus = "AUTHORISATION_ERROR"
	StatusAuthorisation3DSRequired ChargeStatus = "AUTHORISATION_3DS_REQUIRED"
	StatusAuthorisation3DSReady    ChargeStatus = "AUTHORISATION_3DS_READY"
	StatusCaptureApproved          ChargeStatus = "CAPTURE_APPROVED"
	StatusCaptureApprovedRetry     ChargeStatus = "CAPTURE_APPROVED_RETRY"
	StatusCaptureReady             ChargeStatus = "CAPTURE_READY"
	StatusCaptureSubmitted         ChargeStatus = "CAPTURE_SUBMITTED"
	StatusCaptured                 ChargeStatus = "CAPTURED"
	StatusCaptureError             ChargeStatus = "CAPTURE_ERROR"
	StatusExpireCancelReady        ChargeStatus = "EXPIRE_CANCEL_READY"
	StatusExpireCancelFailed       ChargeStatus = "EXPIRE_CANCEL_FAILED"
	StatusExpired                  ChargeStatus = "EXPIRED"
	StatusSystemCancelReady        ChargeStatus = "SYSTEM_CANCEL_READY"
	StatusSystemCancelled          ChargeStatus = "SYSTEM_CANCELLED"
	StatusUserCancelReady          ChargeStatus = "USER_CANCEL_READY"
	StatusUserCancelled            ChargeStatus = "USER_CANCELLED"
	StatusCancelError              ChargeStatus = "CANCEL_ERROR"
)

// ExternalState is the coarse status shown to callers that do not need the internal granularity.
type ExternalState string

const (
	ExternalCreated   ExternalState = "CREATED"
	ExternalStarted   ExternalState = "STARTED"
	ExternalSubmitted ExternalState = "SUBMITTED"
	ExternalSuccess   ExternalState = "SUCCESS"
	ExternalFailed    ExternalState = "FAILED"
	ExternalCancelled ExternalState = "CANCELLED"
	ExternalError     ExternalState = "ERROR"
)

var externalStates = map[ChargeStatus]ExternalState{
	StatusCreated:                  ExternalCreated,
	StatusEnteringCardDetails:      ExternalStarted,
	StatusAuthorisationReady:       ExternalStarted,
	StatusAuthorisationSubmitted:   ExternalStarted,
	StatusAuthorisation3DSRequired: ExternalStarted,
	StatusAuthorisation3DSReady:    ExternalStarted,
	StatusAuthorisationSuccess:     ExternalSubmitted,
	StatusAuthorisationRejected:    ExternalFailed,
	StatusAuthorisationError:       ExternalError,
	StatusCaptureApproved:          ExternalSuccess,
	StatusCaptureApprovedRetry:     ExternalSuccess,
	StatusCaptureReady:             ExternalSuccess,
	StatusCaptureSubmitted:         ExternalSuccess,
	StatusCaptured:                 ExternalSuccess,
	StatusCaptureError:             ExternalError,
	StatusExpireCancelReady:        ExternalFailed,
	StatusExpireCancelFailed:       ExternalFailed,
	StatusExpired:                  ExternalFailed,
	StatusSystemCancelReady:        ExternalCancelled,
	StatusSystemCancelled:          ExternalCancelled,
	StatusUserCancelReady:          ExternalFailed,
	StatusUserCancelled:            ExternalFailed,
	StatusCancelError:              ExternalError,
}

// AllChargeStatuses lists the full vocabulary in lifecycle order.
func AllChargeStatuses() []ChargeStatus {
	return []ChargeStatus{
		StatusCreated, StatusEnteringCardDetails,
		StatusAuthorisationReady, StatusAuthorisationSubmitted, StatusAuthorisationSuccess,
		StatusAuthorisationRejected, StatusAuthorisationError,
		StatusAuthorisation3DSRequired, StatusAuthorisation3DSReady,
		StatusCaptureApproved, StatusCaptureApprovedRetry, StatusCaptureReady,
		StatusCaptureSubmitted, StatusCaptured, StatusCaptureError,
		StatusExpireCancelReady, StatusExpireCancelFailed, StatusExpired,
		StatusSystemCancelReady, StatusSystemCancelled,
		StatusUserCancelReady, StatusUserCancelled, StatusCancelError,
	}
}

func (s ChargeStatus) IsValid() bool {
	_, ok := externalStates[s]
	return ok
}

func (s ChargeStatus) ExternalState() ExternalState {
	return externalStates[s]
}

func (s ChargeStatus) String() string {
	return string(s)
}

// ParseChargeStatus converts a stored or received status string into the vocabulary.
func ParseChargeStatus(raw string) (ChargeStatus, error) {
	s := ChargeStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown charge status %q", raw)
	}
	return s, nil
}
