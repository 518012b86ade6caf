package smartpay

import (
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

const (
	captureReceived = "[capture-received]"
	cancelReceived  = "[cancel-received]"
	refundReceived  = "[refund-received]"
)

// paymentResponse is the body of every synchronous reply, successful or not.
type paymentResponse struct {
	PSPReference  string `json:"pspReference"`
	ResultCode    string `json:"resultCode"`
	RefusalReason string `json:"refusalReason"`
	PaRequest     string `json:"paRequest"`
	IssuerURL     string `json:"issuerUrl"`
	MD            string `json:"md"`
	Response      string `json:"response"`

	Status  int    `json:"status"`
	Code    string `json:"errorCode"`
	Message string `json:"message"`
	Type    string `json:"errorType"`
}

func (r paymentResponse) ErrorCode() string {
	return r.Code
}

func (r paymentResponse) ErrorMessage() string {
	return r.Message
}

func toAuthorisationResult(r paymentResponse) gateway.AuthorisationResult {
	result := gateway.AuthorisationResult{TransactionID: r.PSPReference}
	switch r.ResultCode {
	case "Authorised":
		result.Status = gateway.AuthoriseAuthorised
	case "Refused":
		result.Status = gateway.AuthoriseRejected
		result.DeclineCode = r.RefusalReason
	case "RedirectShopper":
		result.Status = gateway.AuthoriseRequires3DS
		result.Auth3DS = &domain.Auth3DSDetails{
			PaRequest: r.PaRequest,
			IssuerURL: r.IssuerURL,
			MD:        r.MD,
		}
	case "Received", "Pending":
		result.Status = gateway.AuthoriseSubmitted
	default:
		result.Status = gateway.AuthoriseError
	}
	return result
}
