package stripe

import "github.com/DanielPopoola/pay-connector/internal/gateway"

const cardError = "card_error"

// apiError is the error object the API returns with any non-2xx status.
type apiError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
}

type tokenResponse struct {
	ID    string    `json:"id"`
	Error *apiError `json:"error"`
}

func (r tokenResponse) ErrorCode() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

func (r tokenResponse) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Message
}

type chargeResponse struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	Captured       bool      `json:"captured"`
	FailureCode    string    `json:"failure_code"`
	FailureMessage string    `json:"failure_message"`
	Error          *apiError `json:"error"`
}

// declined reports a card decline, which the API signals as an error but which
// is an authorisation outcome rather than a gateway failure.
func (r chargeResponse) declined() bool {
	return r.Error != nil && r.Error.Type == cardError
}

func (r chargeResponse) ErrorCode() string {
	if r.Error == nil || r.declined() {
		return ""
	}
	return r.Error.Code
}

func (r chargeResponse) ErrorMessage() string {
	if r.Error == nil || r.declined() {
		return ""
	}
	if r.Error.Message == "" {
		return r.Error.Type
	}
	return r.Error.Message
}

func toAuthorisationResult(r chargeResponse) gateway.AuthorisationResult {
	result := gateway.AuthorisationResult{TransactionID: r.ID}
	switch {
	case r.declined():
		result.Status = gateway.AuthoriseRejected
		result.DeclineCode = r.Error.DeclineCode
		if result.DeclineCode == "" {
			result.DeclineCode = r.Error.Code
		}
	case r.Status == "succeeded":
		result.Status = gateway.AuthoriseAuthorised
	case r.Status == "pending":
		result.Status = gateway.AuthoriseSubmitted
	case r.Status == "failed":
		result.Status = gateway.AuthoriseRejected
		result.DeclineCode = r.FailureCode
	default:
		result.Status = gateway.AuthoriseError
	}
	return result
}
