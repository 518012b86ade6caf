package services

import (
	"context"

	"github.com/DanielPopoola/pay-connector/internal/application"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

var (
	captureApprovalOp = operation{
		name:       "Capture",
		order:      gateway.OrderCapture,
		from:       []domain.ChargeStatus{domain.StatusAuthorisationSuccess},
		lockStatus: domain.StatusCaptureApproved,
		busy:       []domain.ChargeStatus{domain.StatusCaptureApprovedRetry, domain.StatusCaptureReady},
	}
	captureOp = operation{
		name:       "Capture",
		order:      gateway.OrderCapture,
		from:       []domain.ChargeStatus{domain.StatusCaptureApproved, domain.StatusCaptureApprovedRetry},
		lockStatus: domain.StatusCaptureReady,
	}
)

// Capture approves an authorised charge for capture. The gateway call is made
// later by ExecuteCapture, driven by the capture sweep.
func (c *OperationCoordinator) Capture(ctx context.Context, externalID string) (_ *domain.Charge, err error) {
	ctx, span := c.startSpan(ctx, "capture_approve", externalID)
	defer func() { endSpan(span, err) }()

	s, err := c.begin(ctx, captureApprovalOp, externalID)
	if err != nil {
		return nil, err
	}
	defer s.release()

	c.logger.Info("capture approved",
		"charge_external_id", s.charge.ExternalID,
		"gateway", s.charge.GatewayName,
	)
	return s.charge, nil
}

// ExecuteCapture sends an approved capture to the gateway. A failed attempt
// puts the charge back in CAPTURE_APPROVED_RETRY until the retry allowance is
// used up, after which the charge lands in CAPTURE_ERROR.
func (c *OperationCoordinator) ExecuteCapture(ctx context.Context, externalID string) (_ *domain.Charge, err error) {
	ctx, span := c.startSpan(ctx, "capture", externalID)
	defer func() { endSpan(span, err) }()

	s, err := c.begin(ctx, captureOp, externalID)
	if err != nil {
		return nil, err
	}
	defer s.release()
	charge := s.charge

	resp := s.provider.Capture(ctx, gateway.CaptureRequest{Charge: *charge, Account: *s.account})
	if !resp.IsSuccessful() {
		return charge, c.captureFailed(ctx, charge, resp.Err())
	}

	result := resp.Value()
	if err := charge.AssignTransactionID(result.TransactionID); err != nil {
		c.logger.Warn("capture response carried a different transaction id",
			"charge_external_id", charge.ExternalID,
			"error", err,
		)
	}

	target := domain.StatusCaptureSubmitted
	if result.State == gateway.CaptureComplete {
		target = domain.StatusCaptured
	}

	c.logger.Info("capture completed",
		"charge_external_id", charge.ExternalID,
		"gateway", charge.GatewayName,
		"status", target,
	)
	return charge, c.commit(ctx, charge, target)
}

// captureFailed applies the retry policy. Every failed attempt counts,
// transport failures included, since the sweep is the only retry path.
func (c *OperationCoordinator) captureFailed(ctx context.Context, charge *domain.Charge, gwErr *gateway.Error) error {
	retries, err := c.events.CountByStatus(ctx, charge.ID, domain.StatusCaptureApprovedRetry)
	if err != nil {
		return application.NewInternalError(err)
	}

	target := domain.StatusCaptureApprovedRetry
	if retries >= c.maxCaptureRetries {
		target = domain.StatusCaptureError
	}

	c.logger.Warn("capture attempt failed",
		"charge_external_id", charge.ExternalID,
		"gateway", charge.GatewayName,
		"retries", retries,
		"status", target,
		"error", gwErr,
	)
	if err := c.commit(ctx, charge, target); err != nil {
		return err
	}
	return application.NewGatewayError(gwErr)
}
