package services

import (
	"context"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

// cancellation is one flavour of cancel. Charges that can move straight to
// done never reached the gateway and are cancelled locally.
type cancellation struct {
	op     operation
	done   domain.ChargeStatus
	failed domain.ChargeStatus
}

var (
	systemCancellation = cancellation{
		op: operation{
			name:       "Cancellation",
			order:      gateway.OrderCancel,
			from:       []domain.ChargeStatus{domain.StatusAuthorisationSuccess},
			lockStatus: domain.StatusSystemCancelReady,
		},
		done:   domain.StatusSystemCancelled,
		failed: domain.StatusCancelError,
	}
	userCancellation = cancellation{
		op: operation{
			name:       "Cancellation",
			order:      gateway.OrderCancel,
			from:       []domain.ChargeStatus{domain.StatusAuthorisationSuccess},
			lockStatus: domain.StatusUserCancelReady,
		},
		done:   domain.StatusUserCancelled,
		failed: domain.StatusCancelError,
	}
	expiryCancellation = cancellation{
		op: operation{
			name:       "Expiration",
			order:      gateway.OrderCancel,
			from:       []domain.ChargeStatus{domain.StatusAuthorisationSuccess},
			lockStatus: domain.StatusExpireCancelReady,
		},
		done:   domain.StatusExpired,
		failed: domain.StatusExpireCancelFailed,
	}
)

// Cancel is a cancellation requested by the service that owns the charge.
func (c *OperationCoordinator) Cancel(ctx context.Context, externalID string) (*domain.Charge, error) {
	return c.cancel(ctx, "cancel", systemCancellation, externalID)
}

// UserCancel is a cancellation requested by the payer.
func (c *OperationCoordinator) UserCancel(ctx context.Context, externalID string) (*domain.Charge, error) {
	return c.cancel(ctx, "user_cancel", userCancellation, externalID)
}

// Expire ends a charge that outlived the charge window.
func (c *OperationCoordinator) Expire(ctx context.Context, externalID string) (*domain.Charge, error) {
	return c.cancel(ctx, "expire", expiryCancellation, externalID)
}

func (c *OperationCoordinator) cancel(ctx context.Context, spanName string, kind cancellation, externalID string) (_ *domain.Charge, err error) {
	ctx, span := c.startSpan(ctx, spanName, externalID)
	defer func() { endSpan(span, err) }()

	s, err := c.lock(ctx, kind.op.name, externalID)
	if err != nil {
		return nil, err
	}
	defer s.release()
	charge := s.charge

	if domain.CanTransition(charge.Status, kind.done) {
		if err := c.commit(ctx, charge, kind.done); err != nil {
			return nil, err
		}
		c.logger.Info("charge cancelled locally",
			"charge_external_id", charge.ExternalID,
			"status", charge.Status,
		)
		return charge, nil
	}

	if err := c.precheck(ctx, s, kind.op); err != nil {
		return nil, err
	}

	resp := s.provider.Cancel(ctx, gateway.CancelRequest{Charge: *charge, Account: *s.account})
	if !resp.IsSuccessful() {
		return charge, c.gatewayFailed(ctx, charge, kind.op.name, resp.Err(), kind.failed)
	}

	c.logger.Info("charge cancelled at gateway",
		"charge_external_id", charge.ExternalID,
		"gateway", charge.GatewayName,
		"status", kind.done,
	)
	return charge, c.commit(ctx, charge, kind.done)
}
