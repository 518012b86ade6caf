// Package worldpay integrates the Worldpay XML order API.
package worldpay

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/config"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
	"github.com/google/uuid"
)

const (
	Acknowledgement = "[OK]"
	sessionCookie   = "machine"
)

// Resolver is the reverse DNS lookup used to check notification senders.
type Resolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

type Option func(*Provider)

func WithResolver(r Resolver) Option {
	return func(p *Provider) { p.resolver = r }
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

type Provider struct {
	authoriseClient *gateway.Client
	auth3dsClient   *gateway.Client
	captureClient   *gateway.Client
	cancelClient    *gateway.Client
	refundClient    *gateway.Client
	inquiryClient   *gateway.Client

	secureNotifications bool
	notificationDomain  string
	resolver            Resolver

	mapper  *gateway.StatusMapper
	refunds gateway.RefundAvailabilityCalculator
	now     func() time.Time
	logger  *slog.Logger
}

func New(cfg config.WorldpayConfig, factory *gateway.ClientFactory, logger *slog.Logger, opts ...Option) *Provider {
	name := domain.GatewayWorldpay
	p := &Provider{
		authoriseClient:     factory.Create(name, gateway.OrderAuthorise, cfg.URLs, gateway.NoSession),
		auth3dsClient:       factory.Create(name, gateway.OrderAuthorise3DS, cfg.URLs, includeSessionIdentifier),
		captureClient:       factory.Create(name, gateway.OrderCapture, cfg.URLs, gateway.NoSession),
		cancelClient:        factory.Create(name, gateway.OrderCancel, cfg.URLs, gateway.NoSession),
		refundClient:        factory.Create(name, gateway.OrderRefund, cfg.URLs, gateway.NoSession),
		inquiryClient:       factory.Create(name, gateway.OrderInquiry, cfg.URLs, gateway.NoSession),
		secureNotifications: cfg.SecureNotificationEnabled,
		notificationDomain:  strings.TrimPrefix(cfg.NotificationDomain, "."),
		resolver:            net.DefaultResolver,
		mapper:              newStatusMapper(),
		refunds:             gateway.DefaultRefundAvailability{},
		now:                 time.Now,
		logger:              logger.With("gateway", name),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func newStatusMapper() *gateway.StatusMapper {
	return gateway.NewStatusMapper().
		MapCharge("CAPTURED", domain.StatusCaptured).
		MapRefund("REFUNDED", domain.RefundSucceeded).
		MapRefund("REFUNDED_BY_MERCHANT", domain.RefundSucceeded).
		MapRefund("REFUND_FAILED", domain.RefundError).
		Ignore("AUTHORISED", "CANCELLED", "EXPIRED", "REFUSED", "SENT_FOR_AUTHORISATION",
			"SETTLED", "SETTLED_BY_MERCHANT", "SENT_FOR_REFUND")
}

// includeSessionIdentifier pins the 3DS completion to the machine that handled
// the original authorisation.
func includeSessionIdentifier(order gateway.Order, req *http.Request) {
	if order.ProviderSessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: order.ProviderSessionID})
	}
}

func (p *Provider) Name() domain.GatewayName {
	return domain.GatewayWorldpay
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

func (p *Provider) Authorise(ctx context.Context, req gateway.AuthorisationRequest) gateway.Response[gateway.AuthorisationResult] {
	payload, err := buildAuthoriseOrder(req)
	if err != nil {
		return gateway.Failure[gateway.AuthorisationResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	raw, gwErr := p.authoriseClient.Send(ctx, req.Account, p.order(gateway.OrderAuthorise, payload, req.Account, ""))
	if gwErr != nil {
		return gateway.Failure[gateway.AuthorisationResult](gwErr)
	}
	return p.authorisationResponse(raw)
}

func (p *Provider) Authorise3DSResponse(ctx context.Context, req gateway.Auth3DSRequest) gateway.Response[gateway.AuthorisationResult] {
	payload, err := buildAuthorise3DSOrder(req)
	if err != nil {
		return gateway.Failure[gateway.AuthorisationResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	order := p.order(gateway.OrderAuthorise3DS, payload, req.Account, req.Charge.ProviderSessionID)
	raw, gwErr := p.auth3dsClient.Send(ctx, req.Account, order)
	if gwErr != nil {
		return gateway.Failure[gateway.AuthorisationResult](gwErr)
	}
	return p.authorisationResponse(raw)
}

func (p *Provider) authorisationResponse(raw *gateway.RawResponse) gateway.Response[gateway.AuthorisationResult] {
	r, gwErr := p.decode(raw)
	if gwErr != nil {
		return gateway.Failure[gateway.AuthorisationResult](gwErr)
	}
	return gateway.FromWire(r, toAuthorisationResult).
		WithSessionIdentifier(raw.Cookie(sessionCookie))
}

func (p *Provider) Capture(ctx context.Context, req gateway.CaptureRequest) gateway.Response[gateway.CaptureResult] {
	payload, err := buildCaptureOrder(req, p.now().UTC())
	if err != nil {
		return gateway.Failure[gateway.CaptureResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	raw, gwErr := p.captureClient.Send(ctx, req.Account, p.order(gateway.OrderCapture, payload, req.Account, ""))
	if gwErr != nil {
		return gateway.Failure[gateway.CaptureResult](gwErr)
	}
	r, gwErr := p.decode(raw)
	if gwErr != nil {
		return gateway.Failure[gateway.CaptureResult](gwErr)
	}
	if r.ErrorCode() == "" && (r.Reply.OK == nil || r.Reply.OK.CaptureReceived == nil) {
		return gateway.Failure[gateway.CaptureResult](gateway.GatewayError("UNEXPECTED_RESPONSE", "capture was not acknowledged"))
	}
	return gateway.FromWire(r, toCaptureResult)
}

func (p *Provider) Cancel(ctx context.Context, req gateway.CancelRequest) gateway.Response[gateway.CancelResult] {
	payload, err := buildCancelOrder(req)
	if err != nil {
		return gateway.Failure[gateway.CancelResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	raw, gwErr := p.cancelClient.Send(ctx, req.Account, p.order(gateway.OrderCancel, payload, req.Account, ""))
	if gwErr != nil {
		return gateway.Failure[gateway.CancelResult](gwErr)
	}
	r, gwErr := p.decode(raw)
	if gwErr != nil {
		return gateway.Failure[gateway.CancelResult](gwErr)
	}
	if r.ErrorCode() == "" && (r.Reply.OK == nil || r.Reply.OK.CancelReceived == nil) {
		return gateway.Failure[gateway.CancelResult](gateway.GatewayError("UNEXPECTED_RESPONSE", "cancel was not acknowledged"))
	}
	return gateway.FromWire(r, toCancelResult)
}

func (p *Provider) Refund(ctx context.Context, req gateway.RefundRequest) gateway.Response[gateway.RefundResult] {
	payload, err := buildRefundOrder(req)
	if err != nil {
		return gateway.Failure[gateway.RefundResult](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	raw, gwErr := p.refundClient.Send(ctx, req.Account, p.order(gateway.OrderRefund, payload, req.Account, ""))
	if gwErr != nil {
		return gateway.Failure[gateway.RefundResult](gwErr)
	}
	r, gwErr := p.decode(raw)
	if gwErr != nil {
		return gateway.Failure[gateway.RefundResult](gwErr)
	}
	if r.ErrorCode() == "" && (r.Reply.OK == nil || r.Reply.OK.RefundReceived == nil) {
		return gateway.Failure[gateway.RefundResult](gateway.GatewayError("UNEXPECTED_RESPONSE", "refund was not acknowledged"))
	}
	return gateway.FromWire(r, func(reply) gateway.RefundResult {
		return gateway.RefundResult{Reference: req.Refund.ExternalID, State: gateway.CapturePending}
	})
}

func (p *Provider) order(op gateway.OrderType, payload []byte, account domain.GatewayAccount, sessionID string) gateway.Order {
	auth := gateway.BasicAuth(
		account.Credential(domain.CredentialUsername),
		account.Credential(domain.CredentialPassword),
	)
	return gateway.Order{
		Type:              op,
		MediaType:         gateway.MediaTypeXML,
		Payload:           payload,
		Header:            auth,
		ProviderSessionID: sessionID,
	}
}

func (p *Provider) decode(raw *gateway.RawResponse) (reply, *gateway.Error) {
	if !raw.Successful() {
		return reply{}, gateway.UnexpectedStatusError(raw.StatusCode)
	}
	return gateway.Unmarshal[reply](p.logger, raw, gateway.MediaTypeXML)
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
