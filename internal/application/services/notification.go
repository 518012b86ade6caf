package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DanielPopoola/pay-connector/internal/application"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

// NotificationOutcome is what the HTTP layer returns to the gateway. Rejected
// notifications failed the source check and get no acknowledgement.
type NotificationOutcome struct {
	Acknowledgement string
	Rejected        bool
	Applied         int
	Skipped         int
}

// NotificationProcessor applies asynchronous gateway status updates. It does
// not take the charge lock; the version check on save guards against
// concurrent coordinator operations.
type NotificationProcessor struct {
	charges  application.ChargeRepository
	events   application.EventRepository
	refunds  application.RefundRepository
	accounts application.AccountRepository
	registry *gateway.Registry
	clock    application.Clock
	metrics  *NotificationMetrics
	logger   *slog.Logger
}

func NewNotificationProcessor(
	repos Repositories,
	registry *gateway.Registry,
	clock application.Clock,
	metrics *NotificationMetrics,
	logger *slog.Logger,
) *NotificationProcessor {
	return &NotificationProcessor{
		charges:  repos.Charges,
		events:   repos.Events,
		refunds:  repos.Refunds,
		accounts: repos.Accounts,
		registry: registry,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle verifies, parses and applies one inbound notification. The only error
// returned is for an unknown gateway name; everything past that is
// acknowledged so the gateway stops redelivering.
func (p *NotificationProcessor) Handle(
	ctx context.Context,
	gatewayName domain.GatewayName,
	in gateway.InboundNotification,
) (NotificationOutcome, error) {
	provider, err := p.registry.ByName(gatewayName)
	if err != nil {
		return NotificationOutcome{}, application.NewInvalidInputError(err)
	}
	name := string(gatewayName)
	logger := p.logger.With("gateway", gatewayName)

	if !provider.VerifyNotificationSource(ctx, in) {
		logger.Warn("notification rejected by source check", "source_ip", in.SourceIP)
		p.metrics.record(name, outcomeRejected)
		return NotificationOutcome{Rejected: true}, nil
	}

	outcome := NotificationOutcome{Acknowledgement: provider.NotificationAcknowledgement()}

	notifications, err := provider.ParseNotification(in)
	if err != nil {
		logger.Error("failed to parse notification", "error", err, "payload", string(in.Payload))
		p.metrics.record(name, outcomeMalformed)
		return outcome, nil
	}

	for _, n := range notifications {
		result := p.apply(ctx, provider, n, logger)
		p.metrics.record(name, result)
		if result == outcomeApplied {
			outcome.Applied++
		} else {
			outcome.Skipped++
		}
	}
	return outcome, nil
}

// apply handles one (transaction, status) pair and reports its outcome. A
// failing pair never aborts the rest of the batch.
func (p *NotificationProcessor) apply(
	ctx context.Context,
	provider gateway.PaymentProvider,
	n gateway.Notification,
	logger *slog.Logger,
) string {
	logger = logger.With("transaction_id", n.TransactionID, "status", n.Status)

	charge, err := p.charges.FindByGatewayTransactionID(ctx, provider.Name(), n.TransactionID)
	if err != nil {
		if errors.Is(err, domain.ErrChargeNotFound) {
			logger.Info("notification for unknown charge skipped")
			return outcomeUnknownCharge
		}
		logger.Error("failed to load charge for notification", "error", err)
		return outcomeFailed
	}
	logger = logger.With("charge_external_id", charge.ExternalID)

	account, err := p.accounts.FindByID(ctx, charge.GatewayAccountID)
	if err != nil {
		logger.Error("failed to load gateway account for notification", "error", err)
		return outcomeFailed
	}
	if !provider.VerifyNotification(n, *account) {
		logger.Warn("notification failed account verification")
		return outcomeUnverified
	}
	if confirmer, ok := provider.(gateway.StatusConfirmer); ok {
		resp := confirmer.ConfirmNotification(ctx, n, *account)
		if !resp.IsSuccessful() {
			logger.Error("could not confirm notification status with gateway", "error", resp.Err())
			return outcomeUnconfirmed
		}
		n = resp.Value()
		logger = logger.With("confirmed_status", n.Status)
	}

	mapped := provider.StatusMapper().Map(n.Status)
	switch mapped.Kind {
	case gateway.MappingIgnored:
		logger.Debug("notification status ignored")
		return outcomeIgnored
	case gateway.MappingCharge:
		return p.applyCharge(ctx, charge, mapped.ChargeStatus, logger)
	case gateway.MappingRefund:
		return p.applyRefund(ctx, charge, n.Reference, mapped.RefundStatus, logger)
	default:
		logger.Warn("notification status not mapped")
		return outcomeUnmapped
	}
}

func (p *NotificationProcessor) applyCharge(
	ctx context.Context,
	charge *domain.Charge,
	target domain.ChargeStatus,
	logger *slog.Logger,
) string {
	from := charge.Status
	expected := charge.Version
	event, err := charge.TransitionTo(target, p.clock.Now())
	if err != nil {
		logger.Info("notification transition not allowed, skipped",
			"from", from,
			"to", target,
		)
		return outcomeIllegalTransition
	}

	if err := p.charges.Save(ctx, charge, expected); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			logger.Warn("charge changed while applying notification, skipped", "error", err)
			return outcomeConflict
		}
		logger.Error("failed to save charge from notification", "error", err)
		return outcomeFailed
	}
	if err := p.events.Append(ctx, event); err != nil {
		logger.Error("failed to append charge event", "error", err)
		return outcomeFailed
	}

	logger.Info("charge updated from notification", "from", from, "to", target)
	return outcomeApplied
}

func (p *NotificationProcessor) applyRefund(
	ctx context.Context,
	charge *domain.Charge,
	reference string,
	target domain.RefundStatus,
	logger *slog.Logger,
) string {
	logger = logger.With("refund_reference", reference)

	refund, err := p.refunds.FindByReference(ctx, charge.ID, reference)
	if err != nil {
		if errors.Is(err, domain.ErrRefundNotFound) {
			logger.Info("notification for unknown refund skipped")
			return outcomeUnknownCharge
		}
		logger.Error("failed to load refund for notification", "error", err)
		return outcomeFailed
	}

	if err := refund.TransitionTo(target, p.clock.Now()); err != nil {
		logger.Info("refund transition not allowed, skipped", "from", refund.Status, "to", target)
		return outcomeIllegalTransition
	}
	if err := p.refunds.Update(ctx, refund); err != nil {
		logger.Error("failed to save refund from notification", "error", err)
		return outcomeFailed
	}

	logger.Info("refund updated from notification", "to", target)
	return outcomeApplied
}
