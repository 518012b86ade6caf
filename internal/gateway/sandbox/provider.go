// Package sandbox is an in-process gateway for test accounts. Magic card
// numbers select the authorisation outcome.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
	"github.com/google/uuid"
)

const Acknowledgement = "OK"

var (
	authorisedCards = []string{
		"4242424242424242", "4444333322221111", "4917610000000000003",
		"5105105105105100", "5200828282828210", "371449635398431",
		"3566002020360505", "6011000990139424", "36148900647913",
	}
	declinedCard        = "4000000000000002"
	expiredCard         = "4000000000000069"
	processingErrorCard = "4000000000000119"
	threeDSCard         = "4000000000003063"
)

type Provider struct {
	mapper  *gateway.StatusMapper
	refunds gateway.RefundAvailabilityCalculator
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Provider {
	mapper := gateway.NewStatusMapper().
		MapRefund("REFUND_SUCCEEDED", domain.RefundSucceeded).
		MapRefund("REFUND_ERROR", domain.RefundError)
	for _, s := range domain.AllChargeStatuses() {
		mapper.MapCharge(string(s), s)
	}

	return &Provider{
		mapper:  mapper,
		refunds: gateway.DefaultRefundAvailability{},
		logger:  logger.With("gateway", domain.GatewaySandbox),
	}
}

func (p *Provider) Name() domain.GatewayName {
	return domain.GatewaySandbox
}

func (p *Provider) Capabilities() gateway.Capabilities {
	return gateway.Capabilities{
		Authorise:     true,
		Authorise3DS:  true,
		Capture:       true,
		Cancel:        true,
		Refund:        true,
		Notifications: true,
	}
}

func (p *Provider) GenerateTransactionID() (string, bool) {
	return uuid.NewString(), true
}

func (p *Provider) Authorise(_ context.Context, req gateway.AuthorisationRequest) gateway.Response[gateway.AuthorisationResult] {
	txID := req.Charge.GatewayTransactionID
	card := req.Card.CardNumber

	switch {
	case slices.Contains(authorisedCards, card):
		return gateway.Success(gateway.AuthorisationResult{
			Status:        gateway.AuthoriseAuthorised,
			TransactionID: txID,
		})
	case card == declinedCard:
		return gateway.Success(gateway.AuthorisationResult{
			Status:        gateway.AuthoriseRejected,
			TransactionID: txID,
			DeclineCode:   "card_declined",
		})
	case card == expiredCard:
		return gateway.Success(gateway.AuthorisationResult{
			Status:        gateway.AuthoriseRejected,
			TransactionID: txID,
			DeclineCode:   "expired_card",
		})
	case card == processingErrorCard:
		return gateway.Failure[gateway.AuthorisationResult](
			gateway.GatewayError("processing_error", "This transaction could be not be processed."))
	case card == threeDSCard:
		return gateway.Success(gateway.AuthorisationResult{
			Status:        gateway.AuthoriseRequires3DS,
			TransactionID: txID,
			Auth3DS: &domain.Auth3DSDetails{
				IssuerURL: "https://sandbox.invalid/3ds",
				PaRequest: "sandbox-pa-request",
				MD:        txID,
			},
		})
	}
	return gateway.Failure[gateway.AuthorisationResult](
		gateway.GatewayError("unsupported_card", "Unsupported card details."))
}

func (p *Provider) Authorise3DSResponse(_ context.Context, req gateway.Auth3DSRequest) gateway.Response[gateway.AuthorisationResult] {
	status := gateway.AuthoriseError
	switch req.Result.Result {
	case domain.Auth3DSAuthorised:
		status = gateway.AuthoriseAuthorised
	case domain.Auth3DSDeclined:
		status = gateway.AuthoriseRejected
	}
	return gateway.Success(gateway.AuthorisationResult{
		Status:        status,
		TransactionID: req.Charge.GatewayTransactionID,
	})
}

func (p *Provider) Capture(_ context.Context, req gateway.CaptureRequest) gateway.Response[gateway.CaptureResult] {
	return gateway.Success(gateway.CaptureResult{
		TransactionID: req.Charge.GatewayTransactionID,
		State:         gateway.CaptureComplete,
	})
}

func (p *Provider) Cancel(_ context.Context, req gateway.CancelRequest) gateway.Response[gateway.CancelResult] {
	return gateway.Success(gateway.CancelResult{TransactionID: req.Charge.GatewayTransactionID})
}

func (p *Provider) Refund(_ context.Context, req gateway.RefundRequest) gateway.Response[gateway.RefundResult] {
	return gateway.Success(gateway.RefundResult{
		Reference: req.Refund.ExternalID,
		State:     gateway.CaptureComplete,
	})
}

func (p *Provider) VerifyNotificationSource(context.Context, gateway.InboundNotification) bool {
	return true
}

type notificationPayload struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Reference     string `json:"reference,omitempty"`
}

func (p *Provider) ParseNotification(in gateway.InboundNotification) ([]gateway.Notification, error) {
	var payload notificationPayload
	if err := json.Unmarshal(in.Payload, &payload); err != nil {
		return nil, fmt.Errorf("parsing sandbox notification: %w", err)
	}
	if payload.TransactionID == "" || payload.Status == "" {
		return nil, fmt.Errorf("sandbox notification requires transaction_id and status")
	}
	return []gateway.Notification{{
		TransactionID: payload.TransactionID,
		Status:        payload.Status,
		Reference:     payload.Reference,
	}}, nil
}

func (p *Provider) VerifyNotification(gateway.Notification, domain.GatewayAccount) bool {
	return true
}

func (p *Provider) NotificationAcknowledgement() string {
	return Acknowledgement
}

func (p *Provider) StatusMapper() *gateway.StatusMapper {
	return p.mapper
}

func (p *Provider) ExternalChargeRefundAvailability(charge *domain.Charge, refunds []domain.Refund) domain.RefundAvailability {
	return p.refunds.Calculate(charge, refunds)
}
