package services

import (
	"context"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

var (
	authoriseOp = operation{
		name:       "Authorisation",
		order:      gateway.OrderAuthorise,
		from:       []domain.ChargeStatus{domain.StatusCreated, domain.StatusEnteringCardDetails},
		lockStatus: domain.StatusAuthorisationReady,
	}
	authorise3DSOp = operation{
		name:       "3DS authentication",
		order:      gateway.OrderAuthorise3DS,
		from:       []domain.ChargeStatus{domain.StatusAuthorisation3DSRequired},
		lockStatus: domain.StatusAuthorisation3DSReady,
	}
)

// Authorise sends the card details to the charge's gateway. The card is
// passed through and never stored.
func (c *OperationCoordinator) Authorise(ctx context.Context, cmd AuthoriseCommand) (_ *domain.Charge, err error) {
	ctx, span := c.startSpan(ctx, "authorise", cmd.ExternalID)
	defer func() { endSpan(span, err) }()

	s, err := c.lock(ctx, authoriseOp.name, cmd.ExternalID)
	if err != nil {
		return nil, err
	}
	defer s.release()

	// Gateways that cannot issue their own order code get one from us, persisted
	// with the lock status so a lost response can still be traced. The gateway
	// may answer with an id of its own, which then replaces ours.
	var provisionalID string
	if s.charge.HasStatus(authoriseOp.from...) {
		if p, perr := c.registry.ByName(s.charge.GatewayName); perr == nil {
			if id, ok := p.GenerateTransactionID(); ok && s.charge.GatewayTransactionID == "" {
				s.charge.GatewayTransactionID = id
				provisionalID = id
			}
		}
	}

	if err := c.precheck(ctx, s, authoriseOp); err != nil {
		return nil, err
	}
	charge := s.charge

	resp := s.provider.Authorise(ctx, gateway.AuthorisationRequest{
		Charge:  *charge,
		Account: *s.account,
		Card:    cmd.Card,
	})
	if !resp.IsSuccessful() {
		return charge, c.gatewayFailed(ctx, charge, authoriseOp.name, resp.Err(), domain.StatusAuthorisationError)
	}

	if provisionalID != "" && resp.Value().TransactionID != "" {
		charge.GatewayTransactionID = ""
	}
	return charge, c.applyAuthorisation(ctx, s, resp, c.frictionlessAllowed(s))
}

// frictionlessAllowed reports whether an authorisation may succeed without a
// 3DS challenge. Accounts that require 3DS only refuse it when their gateway
// can actually run the challenge.
func (c *OperationCoordinator) frictionlessAllowed(s *session) bool {
	return !s.account.Requires3DS || !s.provider.Capabilities().Authorise3DS
}

// Authorise3DS completes an authorisation after the payer's issuer challenge.
func (c *OperationCoordinator) Authorise3DS(ctx context.Context, cmd Authorise3DSCommand) (_ *domain.Charge, err error) {
	ctx, span := c.startSpan(ctx, "authorise_3ds", cmd.ExternalID)
	defer func() { endSpan(span, err) }()

	s, err := c.begin(ctx, authorise3DSOp, cmd.ExternalID)
	if err != nil {
		return nil, err
	}
	defer s.release()
	charge := s.charge

	c.logger.Info("3DS authentication result received",
		"charge_external_id", charge.ExternalID,
		"gateway", charge.GatewayName,
		"result", cmd.Result.Result,
		"pa_response", cmd.Result.TruncatedPaResponse(),
	)

	resp := s.provider.Authorise3DSResponse(ctx, gateway.Auth3DSRequest{
		Charge:  *charge,
		Account: *s.account,
		Result:  cmd.Result,
	})
	if !resp.IsSuccessful() {
		return charge, c.gatewayFailed(ctx, charge, authorise3DSOp.name, resp.Err(), domain.StatusAuthorisationError)
	}

	return charge, c.applyAuthorisation(ctx, s, resp, true)
}

func (c *OperationCoordinator) applyAuthorisation(
	ctx context.Context,
	s *session,
	resp gateway.Response[gateway.AuthorisationResult],
	frictionless bool,
) error {
	charge := s.charge
	result := resp.Value()
	logger := c.logger.With(
		"charge_external_id", charge.ExternalID,
		"gateway", charge.GatewayName,
	)

	target := result.Status.ChargeStatus()
	if target == domain.StatusAuthorisationSuccess && !frictionless {
		logger.Error("authorised without 3DS on an account that requires it",
			"gateway_account_id", s.account.ID,
		)
		target = domain.StatusAuthorisationError
	}
	if err := charge.AssignTransactionID(result.TransactionID); err != nil {
		logger.Error("gateway returned a different transaction id", "error", err)
		target = domain.StatusAuthorisationError
	}
	if id := resp.SessionIdentifier(); id != "" {
		charge.ProviderSessionID = id
	}
	if result.Auth3DS != nil {
		charge.Auth3DS = result.Auth3DS
	}

	if !domain.CanTransition(charge.Status, target) {
		logger.Warn("unexpected authorisation outcome",
			"status", charge.Status,
			"outcome", result.Status,
		)
		target = domain.StatusAuthorisationError
	}

	logger.Info("authorisation completed",
		"status", target,
		"decline_code", result.DeclineCode,
	)
	return c.commit(ctx, charge, target)
}
