// Package smartpay integrates the Smartpay (Adyen) JSON payment API.
package smartpay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/DanielPopoola/pay-connector/internal/config"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

const Acknowledgement = "[accepted]"

type Provider struct {
	authoriseClient *gateway.Client
	auth3dsClient   *gateway.Client
	captureClient   *gateway.Client
	cancelClient    *gateway.Client
	refundClient    *gateway.Client

	mapper  *gateway.StatusMapper
	refunds gateway.RefundAvailabilityCalculator
	logger  *slog.Logger
}

func New(cfg config.GatewayConfig, factory *gateway.ClientFactory, logger *slog.Logger) *Provider {
	name := domain.GatewaySmartpay
	return &Provider{
		authoriseClient: factory.Create(name, gateway.OrderAuthorise, cfg.URLs, gateway.NoSession),
		auth3dsClient:   factory.Create(name, gateway.OrderAuthorise3DS, cfg.URLs, gateway.NoSession),
		captureClient:   factory.Create(name, gateway.OrderCapture, cfg.URLs, gateway.NoSession),
		cancelClient:    factory.Create(name, gateway.OrderCancel, cfg.URLs, gateway.NoSession),
		refundClient:    factory.Create(name, gateway.OrderRefund, cfg.URLs, gateway.NoSession),
		mapper:          newStatusMapper(),
		refunds:         gateway.DefaultRefundAvailability{},
		logger:          logger.With("gateway", name),
	}
}

// Notification status codes are "<eventCode>:<success>".
func newStatusMapper() *gateway.StatusMapper {
	return gateway.NewStatusMapper().
		MapCharge("CAPTURE:true", domain.StatusCaptured).
		MapCharge("CAPTURE:false", domain.StatusCaptureError).
		MapRefund("REFUND:true", domain.RefundSucceeded).
		MapRefund("REFUND:false", domain.RefundError).
		MapRefund("REFUND_FAILED:true", domain.RefundError).
		Ignore("AUTHORISATION:true", "AUTHORISATION:false",
			"CANCELLATION:true", "CANCELLATION:false",
			"CANCEL_OR_REFUND:true", "CANCEL_OR_REFUND:false",
			"REPORT_AVAILABLE:true")
}

func (p *Provider) Name() domain.GatewayName {
	return domain.GatewaySmartpay
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

// GenerateTransactionID reports false: the gateway assigns the pspReference.
func (p *Provider) GenerateTransactionID() (string, bool) {
	return "", false
}

func (p *Provider) Authorise(ctx context.Context, req gateway.AuthorisationRequest) gateway.Response[gateway.AuthorisationResult] {
	payload, err := buildAuthoriseOrder(req)
	if err != nil {
		return gateway.Failure[gateway.AuthorisationResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	r, gwErr := p.send(ctx, p.authoriseClient, req.Account, routeAuthorise, gateway.OrderAuthorise, payload)
	if gwErr != nil {
		return gateway.Failure[gateway.AuthorisationResult](gwErr)
	}
	return gateway.FromWire(r, toAuthorisationResult)
}

func (p *Provider) Authorise3DSResponse(ctx context.Context, req gateway.Auth3DSRequest) gateway.Response[gateway.AuthorisationResult] {
	payload, err := buildAuthorise3DSOrder(req)
	if err != nil {
		return gateway.Failure[gateway.AuthorisationResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	r, gwErr := p.send(ctx, p.auth3dsClient, req.Account, routeAuthorise3D, gateway.OrderAuthorise3DS, payload)
	if gwErr != nil {
		return gateway.Failure[gateway.AuthorisationResult](gwErr)
	}
	return gateway.FromWire(r, func(r paymentResponse) gateway.AuthorisationResult {
		result := toAuthorisationResult(r)
		if result.TransactionID == "" {
			result.TransactionID = req.Charge.GatewayTransactionID
		}
		return result
	})
}

func (p *Provider) Capture(ctx context.Context, req gateway.CaptureRequest) gateway.Response[gateway.CaptureResult] {
	payload, err := buildCaptureOrder(req)
	if err != nil {
		return gateway.Failure[gateway.CaptureResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	r, gwErr := p.send(ctx, p.captureClient, req.Account, routeCapture, gateway.OrderCapture, payload)
	if gwErr != nil {
		return gateway.Failure[gateway.CaptureResult](gwErr)
	}
	if gwErr := acknowledged(r, captureReceived); gwErr != nil {
		return gateway.Failure[gateway.CaptureResult](gwErr)
	}
	return gateway.FromWire(r, func(r paymentResponse) gateway.CaptureResult {
		return gateway.CaptureResult{TransactionID: r.PSPReference, State: gateway.CapturePending}
	})
}

func (p *Provider) Cancel(ctx context.Context, req gateway.CancelRequest) gateway.Response[gateway.CancelResult] {
	payload, err := buildCancelOrder(req)
	if err != nil {
		return gateway.Failure[gateway.CancelResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	r, gwErr := p.send(ctx, p.cancelClient, req.Account, routeCancel, gateway.OrderCancel, payload)
	if gwErr != nil {
		return gateway.Failure[gateway.CancelResult](gwErr)
	}
	if gwErr := acknowledged(r, cancelReceived); gwErr != nil {
		return gateway.Failure[gateway.CancelResult](gwErr)
	}
	return gateway.FromWire(r, func(r paymentResponse) gateway.CancelResult {
		return gateway.CancelResult{TransactionID: r.PSPReference}
	})
}

func (p *Provider) Refund(ctx context.Context, req gateway.RefundRequest) gateway.Response[gateway.RefundResult] {
	payload, err := buildRefundOrder(req)
	if err != nil {
		return gateway.Failure[gateway.RefundResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	r, gwErr := p.send(ctx, p.refundClient, req.Account, routeRefund, gateway.OrderRefund, payload)
	if gwErr != nil {
		return gateway.Failure[gateway.RefundResult](gwErr)
	}
	if gwErr := acknowledged(r, refundReceived); gwErr != nil {
		return gateway.Failure[gateway.RefundResult](gwErr)
	}
	return gateway.FromWire(r, func(r paymentResponse) gateway.RefundResult {
		return gateway.RefundResult{Reference: r.PSPReference, State: gateway.CapturePending}
	})
}

// acknowledged checks a modification reply carries the expected response
// literal. Replies carrying an error are left to FromWire.
func acknowledged(r paymentResponse, want string) *gateway.Error {
	if r.Code != "" || r.Message != "" || r.Response == want {
		return nil
	}
	return gateway.GatewayError("UNEXPECTED_RESPONSE", "expected "+want+" but got "+r.Response)
}

func (p *Provider) send(ctx context.Context, client *gateway.Client, account domain.GatewayAccount, route string, op gateway.OrderType, payload []byte) (paymentResponse, *gateway.Error) {
	order := gateway.Order{
		Type:      op,
		Route:     route,
		MediaType: gateway.MediaTypeJSON,
		Payload:   payload,
		Header: gateway.BasicAuth(
			account.Credential(domain.CredentialUsername),
			account.Credential(domain.CredentialPassword),
		),
	}
	raw, gwErr := client.Send(ctx, account, order)
	if gwErr != nil {
		return paymentResponse{}, gwErr
	}
	if !raw.Successful() {
		// Validation failures come back as non-2xx with a JSON error body.
		var r paymentResponse
		if err := json.Unmarshal(raw.Body, &r); err == nil && r.Code != "" {
			return paymentResponse{}, gateway.GatewayError(r.Code, r.Message)
		}
		return paymentResponse{}, gateway.UnexpectedStatusError(raw.StatusCode)
	}
	return gateway.Unmarshal[paymentResponse](p.logger, raw, gateway.MediaTypeJSON)
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
