package domain

import "slices"

// transitions is the adjacency table of legal (from, to) pairs. A status missing
// from the keys is terminal.
var transitions = map[ChargeStatus][]ChargeStatus{
	StatusCreated: {
		StatusEnteringCardDetails, StatusAuthorisationReady, StatusExpired, StatusSystemCancelled,
	},
	StatusEnteringCardDetails: {
		StatusAuthorisationReady, StatusExpired, StatusUserCancelled, StatusSystemCancelled,
	},
	StatusAuthorisationReady: {
		StatusAuthorisationSuccess, StatusAuthorisationRejected, StatusAuthorisationError,
		StatusAuthorisation3DSRequired, StatusAuthorisationSubmitted,
	},
	StatusAuthorisationSubmitted: {
		StatusAuthorisationSuccess, StatusAuthorisationRejected, StatusAuthorisationError,
		StatusAuthorisation3DSRequired,
	},
	StatusAuthorisation3DSRequired: {
		StatusAuthorisation3DSReady, StatusUserCancelled, StatusSystemCancelled, StatusExpired,
	},
	StatusAuthorisation3DSReady: {
		StatusAuthorisationSuccess, StatusAuthorisationRejected, StatusAuthorisationError,
	},
	StatusAuthorisationSuccess: {
		StatusCaptureApproved, StatusSystemCancelReady, StatusUserCancelReady, StatusExpireCancelReady,
	},
	StatusCaptureApproved:      {StatusCaptureReady, StatusCaptureError},
	StatusCaptureApprovedRetry: {StatusCaptureReady, StatusCaptureError},
	StatusCaptureReady: {
		StatusCaptureSubmitted, StatusCaptured, StatusCaptureApprovedRetry, StatusCaptureError,
	},
	StatusCaptureSubmitted:  {StatusCaptured, StatusCaptureError},
	StatusExpireCancelReady: {StatusExpired, StatusExpireCancelFailed},
	StatusSystemCancelReady: {StatusSystemCancelled, StatusCancelError},
	StatusUserCancelReady:   {StatusUserCancelled, StatusCancelError},
}

// Transition reports whether moving from one status to another is legal. It holds
// no state and never touches a charge.
func Transition(from, to ChargeStatus) error {
	if !from.IsValid() || !to.IsValid() {
		return &InvalidStateTransitionError{From: from, To: to}
	}
	if slices.Contains(transitions[from], to) {
		return nil
	}
	return &InvalidStateTransitionError{From: from, To: to}
}

// CanTransition is the boolean form of Transition.
func CanTransition(from, to ChargeStatus) bool {
	return Transition(from, to) == nil
}

// AllowedTransitions returns a copy of the legal targets for a status.
func AllowedTransitions(from ChargeStatus) []ChargeStatus {
	return slices.Clone(transitions[from])
}

func (s ChargeStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}
