package epdq

import (
	"encoding/xml"
	"strings"

	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

// Transaction status codes shared by responses and notifications.
const (
	statusInvalid          = "0"
	statusRefused          = "2"
	statusAuthorised       = "5"
	statusCancelled        = "6"
	statusCancelPending    = "61"
	statusRefunded         = "8"
	statusRefundPending    = "81"
	statusRefundByMerchant = "85"
	statusCaptured         = "9"
	statusCaptureRefused   = "93"
	statusCapturePending   = "91"
	statusRefundDeclined   = "94"
	statusAuthWaiting      = "51"
	statusAuthUncertain    = "52"
)

type ncResponse struct {
	XMLName     xml.Name `xml:"ncresponse"`
	OrderID     string   `xml:"orderID,attr"`
	PayID       string   `xml:"PAYID,attr"`
	PayIDSub    string   `xml:"PAYIDSUB,attr"`
	NCStatus    string   `xml:"NCSTATUS,attr"`
	NCError     string   `xml:"NCERROR,attr"`
	NCErrorPlus string   `xml:"NCERRORPLUS,attr"`
	Acceptance  string   `xml:"ACCEPTANCE,attr"`
	Status      string   `xml:"STATUS,attr"`
}

func (r ncResponse) failed() bool {
	code := strings.TrimSpace(r.NCError)
	return code != "" && code != "0"
}

func (r ncResponse) ErrorCode() string {
	if r.failed() {
		return r.NCError
	}
	return ""
}

func (r ncResponse) ErrorMessage() string {
	if r.failed() {
		return r.NCErrorPlus
	}
	return ""
}

func toAuthorisationResult(r ncResponse) gateway.AuthorisationResult {
	result := gateway.AuthorisationResult{TransactionID: r.PayID}
	switch r.Status {
	case statusAuthorised:
		result.Status = gateway.AuthoriseAuthorised
	case statusRefused:
		result.Status = gateway.AuthoriseRejected
		result.DeclineCode = r.Status
	case statusAuthWaiting, statusAuthUncertain:
		result.Status = gateway.AuthoriseSubmitted
	default:
		result.Status = gateway.AuthoriseError
	}
	return result
}

func toCaptureResult(r ncResponse) gateway.CaptureResult {
	state := gateway.CapturePending
	if r.Status == statusCaptured {
		state = gateway.CaptureComplete
	}
	return gateway.CaptureResult{TransactionID: r.PayID, State: state}
}

func refundReference(payID, payIDSub string) string {
	if payIDSub == "" {
		return payID
	}
	return payID + "/" + payIDSub
}

func toRefundResult(r ncResponse) gateway.RefundResult {
	state := gateway.CapturePending
	if r.Status == statusRefunded {
		state = gateway.CaptureComplete
	}
	return gateway.RefundResult{Reference: refundReference(r.PayID, r.PayIDSub), State: state}
}
