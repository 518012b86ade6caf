package smartpay

import (
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

const (
	routeAuthorise   = "/authorise"
	routeAuthorise3D = "/authorise3d"
	routeCapture     = "/capture"
	routeCancel      = "/cancel"
	routeRefund      = "/refund"
)

type amount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

type billingAddress struct {
	Street            string `json:"street"`
	HouseNumberOrName string `json:"houseNumberOrName"`
	City              string `json:"city"`
	PostalCode        string `json:"postalCode"`
	Country           string `json:"country"`
}

type card struct {
	Number         string          `json:"number"`
	ExpiryMonth    string          `json:"expiryMonth"`
	ExpiryYear     string          `json:"expiryYear"`
	CVC            string          `json:"cvc"`
	HolderName     string          `json:"holderName"`
	BillingAddress *billingAddress `json:"billingAddress,omitempty"`
}

type authoriseRequest struct {
	MerchantAccount    string `json:"merchantAccount"`
	Reference          string `json:"reference"`
	Amount             amount `json:"amount"`
	Card               card   `json:"card"`
	ShopperInteraction string `json:"shopperInteraction"`
	ShopperStatement   string `json:"shopperStatement,omitempty"`
}

type authorise3DRequest struct {
	MerchantAccount string `json:"merchantAccount"`
	MD              string `json:"md"`
	PaResponse      string `json:"paResponse"`
}

type modificationRequest struct {
	MerchantAccount    string  `json:"merchantAccount"`
	OriginalReference  string  `json:"originalReference"`
	ModificationAmount *amount `json:"modificationAmount,omitempty"`
	Reference          string  `json:"reference,omitempty"`
}

func gbp(minorUnits int64) amount {
	return amount{Value: minorUnits, Currency: domain.DefaultCurrency}
}

func merchantAccount(account domain.GatewayAccount) string {
	return account.Credential(domain.CredentialMerchantID)
}

func buildAuthoriseOrder(req gateway.AuthorisationRequest) ([]byte, error) {
	month, year := req.Card.ExpiryMonthYear()
	if len(year) == 2 {
		year = "20" + year
	}
	c := card{
		Number:      req.Card.CardNumber,
		ExpiryMonth: month,
		ExpiryYear:  year,
		CVC:         req.Card.CVC,
		HolderName:  req.Card.CardholderName,
	}
	if a := req.Card.Address; a != nil {
		c.BillingAddress = &billingAddress{
			Street:            a.Line2,
			HouseNumberOrName: a.Line1,
			City:              a.City,
			PostalCode:        a.Postcode,
			Country:           a.Country,
		}
	}
	return gateway.EncodeJSON(authoriseRequest{
		MerchantAccount:    merchantAccount(req.Account),
		Reference:          req.Charge.ExternalID,
		Amount:             gbp(req.Charge.Amount),
		Card:               c,
		ShopperInteraction: "Ecommerce",
		ShopperStatement:   req.Charge.Description,
	})
}

func buildAuthorise3DSOrder(req gateway.Auth3DSRequest) ([]byte, error) {
	md := req.Result.MD
	if md == "" && req.Charge.Auth3DS != nil {
		md = req.Charge.Auth3DS.MD
	}
	return gateway.EncodeJSON(authorise3DRequest{
		MerchantAccount: merchantAccount(req.Account),
		MD:              md,
		PaResponse:      req.Result.PaResponse,
	})
}

func buildCaptureOrder(req gateway.CaptureRequest) ([]byte, error) {
	return gateway.EncodeJSON(modificationRequest{
		MerchantAccount:    merchantAccount(req.Account),
		OriginalReference:  req.Charge.GatewayTransactionID,
		ModificationAmount: &amount{Value: req.Charge.Amount, Currency: domain.DefaultCurrency},
	})
}

func buildCancelOrder(req gateway.CancelRequest) ([]byte, error) {
	return gateway.EncodeJSON(modificationRequest{
		MerchantAccount:   merchantAccount(req.Account),
		OriginalReference: req.Charge.GatewayTransactionID,
	})
}

func buildRefundOrder(req gateway.RefundRequest) ([]byte, error) {
	refundAmount := gbp(req.Refund.Amount)
	return gateway.EncodeJSON(modificationRequest{
		MerchantAccount:    merchantAccount(req.Account),
		OriginalReference:  req.Charge.GatewayTransactionID,
		ModificationAmount: &refundAmount,
		Reference:          req.Refund.ExternalID,
	})
}
