// Package services drives charge operations against the payment gateways.
//
// Every operation that reaches a gateway follows the same sequence: take the
// charge-scoped lock, move the charge into the operation's READY status under
// an optimistic version check, call the provider, then commit the outcome.
// The lock is released on every path.
package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DanielPopoola/pay-connector/internal/application"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/DanielPopoola/pay-connector/internal/application/services"

// Repositories groups the persistence ports the coordinator writes through.
type Repositories struct {
	Charges  application.ChargeRepository
	Events   application.EventRepository
	Refunds  application.RefundRepository
	Accounts application.AccountRepository
}

type OperationCoordinator struct {
	charges           application.ChargeRepository
	events            application.EventRepository
	refunds           application.RefundRepository
	accounts          application.AccountRepository
	registry          *gateway.Registry
	locker            application.ChargeLocker
	clock             application.Clock
	tracer            trace.Tracer
	maxCaptureRetries int
	logger            *slog.Logger
}

func NewOperationCoordinator(
	repos Repositories,
	registry *gateway.Registry,
	locker application.ChargeLocker,
	clock application.Clock,
	maxCaptureRetries int,
	logger *slog.Logger,
) *OperationCoordinator {
	return &OperationCoordinator{
		charges:           repos.Charges,
		events:            repos.Events,
		refunds:           repos.Refunds,
		accounts:          repos.Accounts,
		registry:          registry,
		locker:            locker,
		clock:             clock,
		tracer:            otel.Tracer(tracerName),
		maxCaptureRetries: maxCaptureRetries,
		logger:            logger,
	}
}

// operation describes the pre-check of one gateway-calling operation. order is
// the gateway capability it needs, empty for purely local operations. busy
// lists statuses other than lockStatus meaning the operation is already
// underway.
type operation struct {
	name       string
	order      gateway.OrderType
	from       []domain.ChargeStatus
	lockStatus domain.ChargeStatus
	busy       []domain.ChargeStatus
}

// session is a locked charge together with what is needed to reach its gateway.
type session struct {
	charge   *domain.Charge
	account  *domain.GatewayAccount
	provider gateway.PaymentProvider
	release  func()
}

func (c *OperationCoordinator) startSpan(ctx context.Context, name, externalID string) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, "coordinator."+name)
	span.SetAttributes(attribute.String("charge.external_id", externalID))
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, application.ToErrorCode(err))
	}
	span.End()
}

// lock takes the charge-scoped lock and loads the charge. The caller owns
// session.release on success.
func (c *OperationCoordinator) lock(ctx context.Context, opName, externalID string) (*session, error) {
	release, acquired, err := c.locker.TryLock(ctx, externalID)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	if !acquired {
		return nil, application.NewOperationInProgressError(opName, externalID)
	}

	charge, err := c.loadCharge(ctx, externalID)
	if err != nil {
		release()
		return nil, err
	}

	return &session{charge: charge, release: release}, nil
}

// begin runs lock and pre-check for op. On success the charge is persisted in
// op.lockStatus and the caller must release the session.
func (c *OperationCoordinator) begin(ctx context.Context, op operation, externalID string) (*session, error) {
	s, err := c.lock(ctx, op.name, externalID)
	if err != nil {
		return nil, err
	}

	if err := c.precheck(ctx, s, op); err != nil {
		s.release()
		return nil, err
	}
	return s, nil
}

func (c *OperationCoordinator) precheck(ctx context.Context, s *session, op operation) error {
	charge := s.charge
	if charge.Status == op.lockStatus || charge.HasStatus(op.busy...) {
		return application.NewOperationInProgressError(op.name, charge.ExternalID)
	}
	if !charge.HasStatus(op.from...) {
		return application.NewOperationConflictError(
			charge.ExternalID,
			&domain.InvalidStateTransitionError{From: charge.Status, To: op.lockStatus},
		)
	}

	if err := c.resolve(ctx, s); err != nil {
		return err
	}
	if op.order != "" && !s.provider.Capabilities().Supports(op.order) {
		return application.NewUnsupportedOperationError(op.name, string(charge.GatewayName))
	}

	return c.commit(ctx, charge, op.lockStatus)
}

// resolve loads the gateway account and provider for the session's charge.
func (c *OperationCoordinator) resolve(ctx context.Context, s *session) error {
	account, err := c.accounts.FindByID(ctx, s.charge.GatewayAccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return application.NewInvalidInputError(err)
		}
		return application.NewInternalError(err)
	}

	provider, err := c.registry.ByName(s.charge.GatewayName)
	if err != nil {
		return application.NewInternalError(err)
	}

	s.account = account
	s.provider = provider
	return nil
}

// commit applies a transition and persists it with the charge's loaded version
// as the expected version, then appends the event.
func (c *OperationCoordinator) commit(ctx context.Context, charge *domain.Charge, target domain.ChargeStatus) error {
	expected := charge.Version
	event, err := charge.TransitionTo(target, c.clock.Now())
	if err != nil {
		return application.NewInvalidTransitionError(err)
	}

	if err := c.charges.Save(ctx, charge, expected); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return application.NewOperationConflictError(charge.ExternalID, err)
		}
		return application.NewInternalError(err)
	}

	if err := c.events.Append(ctx, event); err != nil {
		return application.NewInternalError(err)
	}
	return nil
}

// gatewayFailed reconciles a failed gateway call. A transport failure has an
// unknown outcome, so the charge stays in its READY status for manual
// reconciliation. Any other failure is definitive and moves the charge to
// failedStatus.
func (c *OperationCoordinator) gatewayFailed(
	ctx context.Context,
	charge *domain.Charge,
	opName string,
	gwErr *gateway.Error,
	failedStatus domain.ChargeStatus,
) error {
	logger := c.logger.With(
		"charge_external_id", charge.ExternalID,
		"gateway", charge.GatewayName,
		"operation", opName,
		"error", gwErr,
	)

	if gwErr.Kind == gateway.KindTransport {
		logger.Error("MANUAL_RECONCILIATION_REQUIRED: gateway outcome unknown",
			"status", charge.Status,
		)
		return application.NewGatewayError(gwErr)
	}

	logger.Warn("gateway operation failed", "status", failedStatus)
	if err := c.commit(ctx, charge, failedStatus); err != nil {
		return err
	}
	return application.NewGatewayError(gwErr)
}

func (c *OperationCoordinator) loadCharge(ctx context.Context, externalID string) (*domain.Charge, error) {
	charge, err := c.charges.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrChargeNotFound) {
			return nil, application.NewChargeNotFoundError(err)
		}
		return nil, application.NewInternalError(err)
	}
	return charge, nil
}

// CreateCharge opens a charge against a gateway account.
func (c *OperationCoordinator) CreateCharge(ctx context.Context, cmd CreateChargeCommand) (*domain.Charge, error) {
	account, err := c.accounts.FindByID(ctx, cmd.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, application.NewInvalidInputError(err)
		}
		return nil, application.NewInternalError(err)
	}
	if _, err := c.registry.ByName(account.GatewayName); err != nil {
		return nil, application.NewInvalidInputError(err)
	}

	now := c.clock.Now()
	charge, err := domain.NewCharge(domain.NewChargeParams{
		Account:     *account,
		Amount:      cmd.Amount,
		Description: cmd.Description,
		Reference:   cmd.Reference,
		ReturnURL:   cmd.ReturnURL,
		Email:       cmd.Email,
	}, now)
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}

	if err := c.charges.Create(ctx, charge); err != nil {
		return nil, application.NewInternalError(err)
	}
	if err := c.events.Append(ctx, domain.ChargeEvent{
		ChargeID:  charge.ID,
		Status:    charge.Status,
		UpdatedAt: now,
	}); err != nil {
		return nil, application.NewInternalError(err)
	}

	c.logger.Info("charge created",
		"charge_external_id", charge.ExternalID,
		"gateway", charge.GatewayName,
	)
	return charge, nil
}

func (c *OperationCoordinator) GetCharge(ctx context.Context, externalID string) (*domain.Charge, error) {
	return c.loadCharge(ctx, externalID)
}

// StartCardEntry records that the payer reached the card details page.
func (c *OperationCoordinator) StartCardEntry(ctx context.Context, externalID string) (*domain.Charge, error) {
	s, err := c.lock(ctx, "Card entry", externalID)
	if err != nil {
		return nil, err
	}
	defer s.release()

	if s.charge.Status == domain.StatusEnteringCardDetails {
		return s.charge, nil
	}
	if err := c.commit(ctx, s.charge, domain.StatusEnteringCardDetails); err != nil {
		return nil, err
	}
	return s.charge, nil
}
