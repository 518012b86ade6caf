// Package gateway defines the contract every payment gateway integration
// implements, plus the transport and encoding helpers they share.
package gateway

import (
	"context"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/domain"
)

// OrderType names an outbound gateway operation.
type OrderType string

const (
	OrderAuthorise    OrderType = "authorise"
	OrderAuthorise3DS OrderType = "authorise_3ds"
	OrderCapture      OrderType = "capture"
	OrderCancel       OrderType = "cancel"
	OrderRefund       OrderType = "refund"
	OrderInquiry      OrderType = "inquiry"
)

// Capabilities declares which operations a provider implements. Callers use it
// to detect gaps before attempting an operation.
type Capabilities struct {
	Authorise     bool
	Authorise3DS  bool
	Capture       bool
	Cancel        bool
	Refund        bool
	Notifications bool
}

func (c Capabilities) Supports(op OrderType) bool {
	switch op {
	case OrderAuthorise:
		return c.Authorise
	case OrderAuthorise3DS:
		return c.Authorise3DS
	case OrderCapture:
		return c.Capture
	case OrderCancel:
		return c.Cancel
	case OrderRefund:
		return c.Refund
	}
	return false
}

type AuthoriseStatus string

const (
	AuthoriseAuthorised  AuthoriseStatus = "AUTHORISED"
	AuthoriseRejected    AuthoriseStatus = "REJECTED"
	AuthoriseError       AuthoriseStatus = "ERROR"
	AuthoriseRequires3DS AuthoriseStatus = "REQUIRES_3DS"
	AuthoriseSubmitted   AuthoriseStatus = "SUBMITTED"
)

// ChargeStatus maps an authorisation outcome onto the charge vocabulary.
func (s AuthoriseStatus) ChargeStatus() domain.ChargeStatus {
	switch s {
	case AuthoriseAuthorised:
		return domain.StatusAuthorisationSuccess
	case AuthoriseRejected:
		return domain.StatusAuthorisationRejected
	case AuthoriseRequires3DS:
		return domain.StatusAuthorisation3DSRequired
	case AuthoriseSubmitted:
		return domain.StatusAuthorisationSubmitted
	default:
		return domain.StatusAuthorisationError
	}
}

// CaptureState tells whether the gateway settled the capture synchronously.
type CaptureState string

const (
	CapturePending  CaptureState = "PENDING"
	CaptureComplete CaptureState = "COMPLETE"
)

type AuthorisationRequest struct {
	Charge  domain.Charge
	Account domain.GatewayAccount
	Card    domain.CardDetails
}

type Auth3DSRequest struct {
	Charge  domain.Charge
	Account domain.GatewayAccount
	Result  domain.Auth3DSResult
}

type CaptureRequest struct {
	Charge  domain.Charge
	Account domain.GatewayAccount
}

type CancelRequest struct {
	Charge  domain.Charge
	Account domain.GatewayAccount
}

type RefundRequest struct {
	Charge  domain.Charge
	Account domain.GatewayAccount
	Refund  domain.Refund
}

type AuthorisationResult struct {
	Status        AuthoriseStatus
	TransactionID string
	Auth3DS       *domain.Auth3DSDetails
	DeclineCode   string
}

type CaptureResult struct {
	TransactionID string
	State         CaptureState
}

type CancelResult struct {
	TransactionID string
}

type RefundResult struct {
	Reference string
	State     CaptureState
}

// InboundNotification is a raw notification as received by the HTTP layer.
type InboundNotification struct {
	Payload      []byte
	ContentType  string
	SourceIP     string
	AuthUsername string
	AuthPassword string
}

// Notification is one (transaction, status) pair parsed out of a notification.
type Notification struct {
	TransactionID string
	// Reference identifies the refund for refund notifications.
	Reference string
	Status    string
	EventDate time.Time
	// Signature fields carried for per-account verification.
	Fields       map[string]string
	Signature    string
	AuthUsername string
	AuthPassword string
}

// StatusConfirmer is implemented by gateways whose notifications only say that
// an order changed. The returned notification carries the status reported by
// the gateway itself and replaces the parsed one.
type StatusConfirmer interface {
	ConfirmNotification(ctx context.Context, n Notification, account domain.GatewayAccount) Response[Notification]
}

// PaymentProvider is the capability set implemented by every gateway variant.
// Operations a gateway does not support return an UNSUPPORTED_OPERATION error.
type PaymentProvider interface {
	Name() domain.GatewayName
	Capabilities() Capabilities
	// GenerateTransactionID returns an id when the caller must assign one before
	// authorising.
	GenerateTransactionID() (string, bool)

	Authorise(ctx context.Context, req AuthorisationRequest) Response[AuthorisationResult]
	Authorise3DSResponse(ctx context.Context, req Auth3DSRequest) Response[AuthorisationResult]
	Capture(ctx context.Context, req CaptureRequest) Response[CaptureResult]
	Cancel(ctx context.Context, req CancelRequest) Response[CancelResult]
	Refund(ctx context.Context, req RefundRequest) Response[RefundResult]

	VerifyNotificationSource(ctx context.Context, in InboundNotification) bool
	ParseNotification(in InboundNotification) ([]Notification, error)
	VerifyNotification(n Notification, account domain.GatewayAccount) bool
	NotificationAcknowledgement() string
	StatusMapper() *StatusMapper

	ExternalChargeRefundAvailability(charge *domain.Charge, refunds []domain.Refund) domain.RefundAvailability
}
