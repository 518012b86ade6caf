package worldpay

import (
	"encoding/xml"
	"strings"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

type replyError struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

type orderStatus struct {
	OrderCode string      `xml:"orderCode,attr"`
	Error     *replyError `xml:"error"`
	Payment   *struct {
		LastEvent string `xml:"lastEvent"`
	} `xml:"payment"`
	Request3DSecure *struct {
		PaRequest string `xml:"paRequest"`
		IssuerURL string `xml:"issuerURL"`
	} `xml:"requestInfo>request3DSecure"`
	EchoData string `xml:"echoData"`
}

type modificationReceived struct {
	OrderCode string `xml:"orderCode,attr"`
}

// reply covers every synchronous response body the gateway sends back.
type reply struct {
	XMLName xml.Name `xml:"paymentService"`
	Reply   struct {
		Error       *replyError  `xml:"error"`
		OrderStatus *orderStatus `xml:"orderStatus"`
		OK          *struct {
			CaptureReceived *modificationReceived `xml:"captureReceived"`
			CancelReceived  *modificationReceived `xml:"cancelReceived"`
			RefundReceived  *modificationReceived `xml:"refundReceived"`
		} `xml:"ok"`
	} `xml:"reply"`
}

func (r reply) firstError() *replyError {
	if r.Reply.Error != nil {
		return r.Reply.Error
	}
	if r.Reply.OrderStatus != nil {
		return r.Reply.OrderStatus.Error
	}
	return nil
}

func (r reply) ErrorCode() string {
	if e := r.firstError(); e != nil {
		return e.Code
	}
	return ""
}

func (r reply) ErrorMessage() string {
	if e := r.firstError(); e != nil {
		return strings.TrimSpace(e.Message)
	}
	return ""
}

func (r reply) lastEvent() string {
	if os := r.Reply.OrderStatus; os != nil && os.Payment != nil {
		return strings.TrimSpace(os.Payment.LastEvent)
	}
	return ""
}

func (r reply) orderCode() string {
	if os := r.Reply.OrderStatus; os != nil {
		return os.OrderCode
	}
	return ""
}

func toAuthorisationResult(r reply) gateway.AuthorisationResult {
	result := gateway.AuthorisationResult{TransactionID: r.orderCode()}

	if os := r.Reply.OrderStatus; os != nil && os.Request3DSecure != nil {
		result.Status = gateway.AuthoriseRequires3DS
		result.Auth3DS = &domain.Auth3DSDetails{
			PaRequest: os.Request3DSecure.PaRequest,
			IssuerURL: os.Request3DSecure.IssuerURL,
			MD:        os.EchoData,
		}
		return result
	}

	switch r.lastEvent() {
	case "AUTHORISED":
		result.Status = gateway.AuthoriseAuthorised
	case "REFUSED":
		result.Status = gateway.AuthoriseRejected
		result.DeclineCode = "REFUSED"
	case "SENT_FOR_AUTHORISATION":
		result.Status = gateway.AuthoriseSubmitted
	default:
		result.Status = gateway.AuthoriseError
	}
	return result
}

func toCaptureResult(r reply) gateway.CaptureResult {
	result := gateway.CaptureResult{State: gateway.CapturePending}
	if r.Reply.OK != nil && r.Reply.OK.CaptureReceived != nil {
		result.TransactionID = r.Reply.OK.CaptureReceived.OrderCode
	}
	return result
}

func toCancelResult(r reply) gateway.CancelResult {
	result := gateway.CancelResult{}
	if r.Reply.OK != nil && r.Reply.OK.CancelReceived != nil {
		result.TransactionID = r.Reply.OK.CancelReceived.OrderCode
	}
	return result
}
