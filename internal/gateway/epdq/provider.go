// Package epdq integrates the ePDQ DirectLink form API. Every request and
// notification is signed with SHA-512 over the sorted form fields.
package epdq

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/pay-connector/internal/config"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

const Acknowledgement = "[OK]"

var formMediaType = gateway.FormMediaType("UTF-8")

type Provider struct {
	authoriseClient *gateway.Client
	captureClient   *gateway.Client
	cancelClient    *gateway.Client
	refundClient    *gateway.Client

	mapper  *gateway.StatusMapper
	refunds gateway.RefundAvailabilityCalculator
	logger  *slog.Logger
}

func New(cfg config.GatewayConfig, factory *gateway.ClientFactory, logger *slog.Logger) *Provider {
	name := domain.GatewayEpdq
	return &Provider{
		authoriseClient: factory.Create(name, gateway.OrderAuthorise, cfg.URLs, gateway.NoSession),
		captureClient:   factory.Create(name, gateway.OrderCapture, cfg.URLs, gateway.NoSession),
		cancelClient:    factory.Create(name, gateway.OrderCancel, cfg.URLs, gateway.NoSession),
		refundClient:    factory.Create(name, gateway.OrderRefund, cfg.URLs, gateway.NoSession),
		mapper:          newStatusMapper(),
		refunds:         gateway.SettledCaptureRefundAvailability{},
		logger:          logger.With("gateway", name),
	}
}

func newStatusMapper() *gateway.StatusMapper {
	return gateway.NewStatusMapper().
		MapCharge(statusCaptured, domain.StatusCaptured).
		MapCharge(statusCaptureRefused, domain.StatusCaptureError).
		MapRefund(statusRefunded, domain.RefundSucceeded).
		MapRefund(statusRefundByMerchant, domain.RefundSucceeded).
		MapRefund(statusRefundDeclined, domain.RefundError).
		Ignore(statusInvalid, statusRefused, statusAuthorised, statusCancelled, statusCancelPending,
			statusCapturePending, statusRefundPending, statusAuthWaiting, statusAuthUncertain)
}

func (p *Provider) Name() domain.GatewayName {
	return domain.GatewayEpdq
}

func (p *Provider) Capabilities() gateway.Capabilities {
	return gateway.Capabilities{
		Authorise:     true,
		Capture:       true,
		Cancel:        true,
		Refund:        true,
		Notifications: true,
	}
}

// GenerateTransactionID reports false: the gateway's PAYID is the transaction id.
func (p *Provider) GenerateTransactionID() (string, bool) {
	return "", false
}

func (p *Provider) Authorise(ctx context.Context, req gateway.AuthorisationRequest) gateway.Response[gateway.AuthorisationResult] {
	payload, err := buildAuthoriseOrder(req)
	if err != nil {
		return gateway.Failure[gateway.AuthorisationResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	r, gwErr := p.send(ctx, p.authoriseClient, req.Account, routeNewOrder, gateway.OrderAuthorise, payload)
	if gwErr != nil {
		return gateway.Failure[gateway.AuthorisationResult](gwErr)
	}
	return gateway.FromWire(r, toAuthorisationResult)
}

func (p *Provider) Authorise3DSResponse(context.Context, gateway.Auth3DSRequest) gateway.Response[gateway.AuthorisationResult] {
	return gateway.Failure[gateway.AuthorisationResult](gateway.UnsupportedOperation(gateway.OrderAuthorise3DS))
}

func (p *Provider) Capture(ctx context.Context, req gateway.CaptureRequest) gateway.Response[gateway.CaptureResult] {
	payload, err := buildCaptureOrder(req)
	if err != nil {
		return gateway.Failure[gateway.CaptureResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	r, gwErr := p.send(ctx, p.captureClient, req.Account, routeMaintenance, gateway.OrderCapture, payload)
	if gwErr != nil {
		return gateway.Failure[gateway.CaptureResult](gwErr)
	}
	return gateway.FromWire(r, toCaptureResult)
}

func (p *Provider) Cancel(ctx context.Context, req gateway.CancelRequest) gateway.Response[gateway.CancelResult] {
	payload, err := buildCancelOrder(req)
	if err != nil {
		return gateway.Failure[gateway.CancelResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	r, gwErr := p.send(ctx, p.cancelClient, req.Account, routeMaintenance, gateway.OrderCancel, payload)
	if gwErr != nil {
		return gateway.Failure[gateway.CancelResult](gwErr)
	}
	return gateway.FromWire(r, func(r ncResponse) gateway.CancelResult {
		return gateway.CancelResult{TransactionID: r.PayID}
	})
}

func (p *Provider) Refund(ctx context.Context, req gateway.RefundRequest) gateway.Response[gateway.RefundResult] {
	payload, err := buildRefundOrder(req)
	if err != nil {
		return gateway.Failure[gateway.RefundResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	r, gwErr := p.send(ctx, p.refundClient, req.Account, routeMaintenance, gateway.OrderRefund, payload)
	if gwErr != nil {
		return gateway.Failure[gateway.RefundResult](gwErr)
	}
	return gateway.FromWire(r, toRefundResult)
}

func (p *Provider) send(ctx context.Context, client *gateway.Client, account domain.GatewayAccount, route string, op gateway.OrderType, payload []byte) (ncResponse, *gateway.Error) {
	raw, gwErr := client.Send(ctx, account, gateway.Order{
		Type:      op,
		Route:     route,
		MediaType: formMediaType,
		Payload:   payload,
	})
	if gwErr != nil {
		return ncResponse{}, gwErr
	}
	if !raw.Successful() {
		return ncResponse{}, gateway.UnexpectedStatusError(raw.StatusCode)
	}
	return gateway.Unmarshal[ncResponse](p.logger, raw, gateway.MediaTypeXML)
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
