// Package stripe integrates the Stripe charges API. Only authorisation is
// supported; captures, cancels and refunds are managed on the Stripe side.
package stripe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/pay-connector/internal/config"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
	"github.com/google/uuid"
)

type Provider struct {
	authoriseClient *gateway.Client
	apiVersion      string

	mapper  *gateway.StatusMapper
	refunds gateway.RefundAvailabilityCalculator
	logger  *slog.Logger
}

func New(cfg config.StripeConfig, factory *gateway.ClientFactory, logger *slog.Logger) *Provider {
	return &Provider{
		authoriseClient: factory.Create(domain.GatewayStripe, gateway.OrderAuthorise, cfg.URLs, gateway.NoSession),
		apiVersion:      cfg.APIVersion,
		mapper:          gateway.NewStatusMapper(),
		refunds:         gateway.ExternalLedgerRefundAvailability{},
		logger:          logger.With("gateway", domain.GatewayStripe),
	}
}

func (p *Provider) Name() domain.GatewayName {
	return domain.GatewayStripe
}

func (p *Provider) Capabilities() gateway.Capabilities {
	return gateway.Capabilities{Authorise: true}
}

// GenerateTransactionID returns a provisional id. The charge id assigned by
// the API replaces it once the charge is created.
func (p *Provider) GenerateTransactionID() (string, bool) {
	return uuid.NewString(), true
}

// Authorise tokenises the card and then creates a charge against the token.
// Stripe captures the charge itself.
func (p *Provider) Authorise(ctx context.Context, req gateway.AuthorisationRequest) gateway.Response[gateway.AuthorisationResult] {
	token := p.createToken(ctx, req)
	if !token.IsSuccessful() {
		return gateway.Failure[gateway.AuthorisationResult](token.Err())
	}

	payload, err := buildChargeOrder(req.Charge, token.Value())
	if err != nil {
		return gateway.Failure[gateway.AuthorisationResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	r, gwErr := send[chargeResponse](ctx, p, req.Account, routeCharges, payload)
	if gwErr != nil {
		return gateway.Failure[gateway.AuthorisationResult](gwErr)
	}
	return gateway.FromWire(r, toAuthorisationResult)
}

func (p *Provider) createToken(ctx context.Context, req gateway.AuthorisationRequest) gateway.Response[string] {
	payload, err := buildTokenOrder(req.Card)
	if err != nil {
		return gateway.Failure[string](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	r, gwErr := send[tokenResponse](ctx, p, req.Account, routeTokens, payload)
	if gwErr != nil {
		return gateway.Failure[string](gwErr)
	}
	return gateway.FromWire(r, func(r tokenResponse) string { return r.ID })
}

// send posts a form and decodes the JSON body. Error bodies are decoded too so
// the caller's error predicate sees them.
func send[W any](ctx context.Context, p *Provider, account domain.GatewayAccount, route string, payload []byte) (W, *gateway.Error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+account.Credential(domain.CredentialAPIKey))
	if p.apiVersion != "" {
		header.Set("Stripe-Version", p.apiVersion)
	}

	var zero W
	raw, gwErr := p.authoriseClient.Send(ctx, account, gateway.Order{
		Type:      gateway.OrderAuthorise,
		Route:     route,
		MediaType: formMediaType,
		Payload:   payload,
		Header:    header,
	})
	if gwErr != nil {
		return zero, gwErr
	}
	if raw.StatusCode >= http.StatusInternalServerError {
		return zero, gateway.UnexpectedStatusError(raw.StatusCode)
	}
	out, gwErr := gateway.Unmarshal[W](p.logger, raw, gateway.MediaTypeJSON)
	if gwErr != nil && !raw.Successful() {
		return zero, gateway.UnexpectedStatusError(raw.StatusCode)
	}
	return out, gwErr
}

func (p *Provider) Authorise3DSResponse(context.Context, gateway.Auth3DSRequest) gateway.Response[gateway.AuthorisationResult] {
	return gateway.Failure[gateway.AuthorisationResult](gateway.UnsupportedOperation(gateway.OrderAuthorise3DS))
}

func (p *Provider) Capture(context.Context, gateway.CaptureRequest) gateway.Response[gateway.CaptureResult] {
	return gateway.Failure[gateway.CaptureResult](gateway.UnsupportedOperation(gateway.OrderCapture))
}

func (p *Provider) Cancel(context.Context, gateway.CancelRequest) gateway.Response[gateway.CancelResult] {
	return gateway.Failure[gateway.CancelResult](gateway.UnsupportedOperation(gateway.OrderCancel))
}

func (p *Provider) Refund(context.Context, gateway.RefundRequest) gateway.Response[gateway.RefundResult] {
	return gateway.Failure[gateway.RefundResult](gateway.UnsupportedOperation(gateway.OrderRefund))
}

// Notifications are not accepted for this gateway; every check fails closed.

func (p *Provider) VerifyNotificationSource(context.Context, gateway.InboundNotification) bool {
	return false
}

func (p *Provider) ParseNotification(gateway.InboundNotification) ([]gateway.Notification, error) {
	return nil, fmt.Errorf("%s notifications are not supported", domain.GatewayStripe)
}

func (p *Provider) VerifyNotification(gateway.Notification, domain.GatewayAccount) bool {
	return false
}

func (p *Provider) NotificationAcknowledgement() string {
	return ""
}

func (p *Provider) StatusMapper() *gateway.StatusMapper {
	return p.mapper
}

func (p *Provider) ExternalChargeRefundAvailability(charge *domain.Charge, refunds []domain.Refund) domain.RefundAvailability {
	return p.refunds.Calculate(charge, refunds)
}
