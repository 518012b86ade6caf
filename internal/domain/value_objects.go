package domain

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultCurrency is the only currency the connected gateways are configured for.
const DefaultCurrency = "GBP"

// NewExternalID returns an unguessable identifier safe to expose to callers.
func NewExternalID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CardDetails is what the frontend collects for an authorisation. It is passed
// through to the gateway and never persisted.
type CardDetails struct {
	CardNumber     string
	CVC            string
	EndDate        string // MM/YY
	CardholderName string
	CardBrand      string
	Address        *Address
}

// ExpiryMonthYear splits the MM/YY end date.
func (c CardDetails) ExpiryMonthYear() (month, year string) {
	month, year, _ = strings.Cut(c.EndDate, "/")
	return month, year
}

type Address struct {
	Line1    string
	Line2    string
	City     string
	Postcode string
	Country  string
}

// Auth3DSDetails holds the issuer challenge returned by the gateway.
type Auth3DSDetails struct {
	PaRequest string
	IssuerURL string
	MD        string
}

// Auth3DSResultStatus is the outcome reported by the frontend after the issuer challenge.
type Auth3DSResultStatus string

const (
	Auth3DSAuthorised Auth3DSResultStatus = "AUTHORISED"
	Auth3DSDeclined   Auth3DSResultStatus = "DECLINED"
	Auth3DSError      Auth3DSResultStatus = "ERROR"
	Auth3DSCanceled   Auth3DSResultStatus = "CANCELED"
)

// Auth3DSResult is what the issuer handed back to the browser.
type Auth3DSResult struct {
	PaResponse string
	MD         string
	Result     Auth3DSResultStatus
}

const paResponseLogChars = 50

// TruncatedPaResponse shortens PaRes values longer than 50 characters to their
// first and last 50 for logs. The two ends overlap for values under 100.
func (r Auth3DSResult) TruncatedPaResponse() string {
	pa := r.PaResponse
	if len(pa) <= paResponseLogChars {
		return pa
	}
	return pa[:paResponseLogChars] + "..." + pa[len(pa)-paResponseLogChars:]
}
