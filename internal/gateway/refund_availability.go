package gateway

import "github.com/DanielPopoola/pay-connector/internal/domain"

// RefundAvailabilityCalculator decides how much of a charge can still be refunded.
type RefundAvailabilityCalculator interface {
	Calculate(charge *domain.Charge, refunds []domain.Refund) domain.RefundAvailability
}

var captureInFlight = []domain.ChargeStatus{
	domain.StatusCaptureApproved,
	domain.StatusCaptureApprovedRetry,
	domain.StatusCaptureReady,
}

// DefaultRefundAvailability allows refunds once the gateway has accepted the capture.
type DefaultRefundAvailability struct{}

func (DefaultRefundAvailability) Calculate(charge *domain.Charge, refunds []domain.Refund) domain.RefundAvailability {
	if charge.HasStatus(domain.StatusCaptureSubmitted, domain.StatusCaptured) {
		return domain.AvailabilityFromRefunds(charge, refunds)
	}
	if charge.HasStatus(captureInFlight...) {
		return domain.RefundAvailability{Status: domain.RefundAvailabilityPending}
	}
	switch charge.ExternalState() {
	case domain.ExternalCreated, domain.ExternalStarted, domain.ExternalSubmitted:
		return domain.RefundAvailability{Status: domain.RefundAvailabilityPending}
	}
	return domain.RefundAvailability{Status: domain.RefundAvailabilityNone}
}

// SettledCaptureRefundAvailability waits for the capture to be confirmed, for
// gateways that reject refunds against a capture they have not settled.
type SettledCaptureRefundAvailability struct{}

func (SettledCaptureRefundAvailability) Calculate(charge *domain.Charge, refunds []domain.Refund) domain.RefundAvailability {
	if charge.HasStatus(domain.StatusCaptureSubmitted) {
		return domain.RefundAvailability{Status: domain.RefundAvailabilityPending}
	}
	return DefaultRefundAvailability{}.Calculate(charge, refunds)
}

// ExternalLedgerRefundAvailability is for gateways whose refunds are managed
// outside the connector.
type ExternalLedgerRefundAvailability struct{}

func (ExternalLedgerRefundAvailability) Calculate(charge *domain.Charge, _ []domain.Refund) domain.RefundAvailability {
	if charge.HasStatus(domain.StatusCaptured, domain.StatusCaptureSubmitted) {
		return domain.RefundAvailability{Status: domain.RefundAvailabilityExternal}
	}
	return DefaultRefundAvailability{}.Calculate(charge, nil)
}
