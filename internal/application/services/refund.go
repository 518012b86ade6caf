package services

import (
	"context"

	"github.com/DanielPopoola/pay-connector/internal/application"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

const refundOpName = "Refund"

// Refund submits a refund against a captured charge. Refunds do not move the
// charge; they are serialised by the charge lock and bounded by the provider's
// refund availability.
func (c *OperationCoordinator) Refund(ctx context.Context, cmd RefundCommand) (_ *domain.Refund, err error) {
	ctx, span := c.startSpan(ctx, "refund", cmd.ExternalID)
	defer func() { endSpan(span, err) }()

	s, err := c.lock(ctx, refundOpName, cmd.ExternalID)
	if err != nil {
		return nil, err
	}
	defer s.release()
	charge := s.charge

	if err := c.resolve(ctx, s); err != nil {
		return nil, err
	}
	if !s.provider.Capabilities().Refund {
		return nil, application.NewUnsupportedOperationError(refundOpName, string(charge.GatewayName))
	}

	refunds, err := c.refunds.FindByChargeID(ctx, charge.ID)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	availability := s.provider.ExternalChargeRefundAvailability(charge, refunds)
	if !availability.Allows(cmd.Amount) {
		return nil, application.NewRefundNotAvailableError(
			domain.NewRefundNotAvailableError(cmd.Amount, availability.Remaining),
		)
	}

	refund, err := domain.NewRefund(charge, cmd.Amount, cmd.SubmittedBy, c.clock.Now())
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}
	if err := c.refunds.Create(ctx, refund); err != nil {
		return nil, application.NewInternalError(err)
	}

	logger := c.logger.With(
		"charge_external_id", charge.ExternalID,
		"gateway", charge.GatewayName,
		"refund_external_id", refund.ExternalID,
	)

	resp := s.provider.Refund(ctx, gateway.RefundRequest{
		Charge:  *charge,
		Account: *s.account,
		Refund:  *refund,
	})
	if !resp.IsSuccessful() {
		gwErr := resp.Err()
		if gwErr.Kind == gateway.KindTransport {
			logger.Error("MANUAL_RECONCILIATION_REQUIRED: refund outcome unknown", "error", gwErr)
			return refund, application.NewGatewayError(gwErr)
		}

		logger.Warn("refund failed", "error", gwErr)
		if err := c.moveRefund(ctx, refund, domain.RefundError); err != nil {
			return refund, err
		}
		return refund, application.NewGatewayError(gwErr)
	}

	result := resp.Value()
	refund.Reference = result.Reference
	target := domain.RefundSubmitted
	if result.State == gateway.CaptureComplete {
		target = domain.RefundSucceeded
	}

	logger.Info("refund submitted", "status", target, "reference", refund.Reference)
	return refund, c.moveRefund(ctx, refund, target)
}

func (c *OperationCoordinator) moveRefund(ctx context.Context, refund *domain.Refund, target domain.RefundStatus) error {
	if err := refund.TransitionTo(target, c.clock.Now()); err != nil {
		return application.NewInvalidTransitionError(err)
	}
	if err := c.refunds.Update(ctx, refund); err != nil {
		return application.NewInternalError(err)
	}
	return nil
}

// RefundAvailability reports how much of the charge can still be refunded.
func (c *OperationCoordinator) RefundAvailability(ctx context.Context, externalID string) (domain.RefundAvailability, error) {
	charge, err := c.loadCharge(ctx, externalID)
	if err != nil {
		return domain.RefundAvailability{}, err
	}

	provider, err := c.registry.ByName(charge.GatewayName)
	if err != nil {
		return domain.RefundAvailability{}, application.NewInternalError(err)
	}

	refunds, err := c.refunds.FindByChargeID(ctx, charge.ID)
	if err != nil {
		return domain.RefundAvailability{}, application.NewInternalError(err)
	}
	return provider.ExternalChargeRefundAvailability(charge, refunds), nil
}

// Refunds lists the refunds taken against a charge.
func (c *OperationCoordinator) Refunds(ctx context.Context, externalID string) ([]domain.Refund, error) {
	charge, err := c.loadCharge(ctx, externalID)
	if err != nil {
		return nil, err
	}
	refunds, err := c.refunds.FindByChargeID(ctx, charge.ID)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	return refunds, nil
}
