package worldpay

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

const (
	serviceVersion = "1.4"
	doctype        = `<!DOCTYPE paymentService PUBLIC "-//WorldPay//DTD WorldPay PaymentService v1//EN" "http://dtd.worldpay.com/paymentService_v1.dtd">`
)

type paymentService struct {
	XMLName      xml.Name `xml:"paymentService"`
	Version      string   `xml:"version,attr"`
	MerchantCode string   `xml:"merchantCode,attr"`
	Submit       *submit  `xml:"submit,omitempty"`
	Modify       *modify  `xml:"modify,omitempty"`
	Inquiry      *inquiry `xml:"inquiry,omitempty"`
}

type submit struct {
	Order order `xml:"order"`
}

type order struct {
	OrderCode      string          `xml:"orderCode,attr"`
	Description    string          `xml:"description,omitempty"`
	Amount         *amount         `xml:"amount,omitempty"`
	PaymentDetails *paymentDetails `xml:"paymentDetails,omitempty"`
	Info3DSecure   *info3DSecure   `xml:"info3DSecure,omitempty"`
	Session        *session        `xml:"session,omitempty"`
}

type amount struct {
	CurrencyCode string `xml:"currencyCode,attr"`
	Exponent     string `xml:"exponent,attr"`
	Value        string `xml:"value,attr"`
}

type paymentDetails struct {
	Card    card    `xml:"CARD-SSL"`
	Session session `xml:"session"`
}

type card struct {
	CardNumber     string       `xml:"cardNumber"`
	ExpiryDate     expiryDate   `xml:"expiryDate"`
	CardHolderName string       `xml:"cardHolderName"`
	CVC            string       `xml:"cvc"`
	CardAddress    *cardAddress `xml:"cardAddress,omitempty"`
}

type expiryDate struct {
	Date struct {
		Month string `xml:"month,attr"`
		Year  string `xml:"year,attr"`
	} `xml:"date"`
}

type cardAddress struct {
	Address1    string `xml:"address>address1"`
	Address2    string `xml:"address>address2,omitempty"`
	PostalCode  string `xml:"address>postalCode"`
	City        string `xml:"address>city"`
	CountryCode string `xml:"address>countryCode"`
}

type session struct {
	ID string `xml:"id,attr"`
}

type info3DSecure struct {
	PaResponse string `xml:"paResponse"`
}

type modify struct {
	OrderModification orderModification `xml:"orderModification"`
}

type orderModification struct {
	OrderCode string         `xml:"orderCode,attr"`
	Capture   *captureModify `xml:"capture,omitempty"`
	Cancel    *struct{}      `xml:"cancel,omitempty"`
	Refund    *refundModify  `xml:"refund,omitempty"`
}

type captureModify struct {
	Date struct {
		DayOfMonth string `xml:"dayOfMonth,attr"`
		Month      string `xml:"month,attr"`
		Year       string `xml:"year,attr"`
	} `xml:"date"`
	Amount amount `xml:"amount"`
}

type inquiry struct {
	OrderInquiry struct {
		OrderCode string `xml:"orderCode,attr"`
	} `xml:"orderInquiry"`
}

type refundModify struct {
	Reference string `xml:"reference,attr"`
	Amount    amount `xml:"amount"`
}

func gbp(minorUnits int64) amount {
	return amount{CurrencyCode: domain.DefaultCurrency, Exponent: "2", Value: strconv.FormatInt(minorUnits, 10)}
}

func envelope(account domain.GatewayAccount) paymentService {
	return paymentService{
		Version:      serviceVersion,
		MerchantCode: account.Credential(domain.CredentialMerchantID),
	}
}

func buildAuthoriseOrder(req gateway.AuthorisationRequest) ([]byte, error) {
	month, year := req.Card.ExpiryMonthYear()
	if len(year) == 2 {
		year = "20" + year
	}

	c := card{
		CardNumber:     req.Card.CardNumber,
		CardHolderName: req.Card.CardholderName,
		CVC:            req.Card.CVC,
	}
	c.ExpiryDate.Date.Month = month
	c.ExpiryDate.Date.Year = year
	if a := req.Card.Address; a != nil {
		c.CardAddress = &cardAddress{
			Address1:    a.Line1,
			Address2:    a.Line2,
			PostalCode:  a.Postcode,
			City:        a.City,
			CountryCode: a.Country,
		}
	}

	ps := envelope(req.Account)
	ps.Submit = &submit{Order: order{
		OrderCode:   req.Charge.GatewayTransactionID,
		Description: req.Charge.Description,
		Amount:      ptr(gbp(req.Charge.Amount)),
		PaymentDetails: &paymentDetails{
			Card:    c,
			Session: session{ID: req.Charge.ExternalID},
		},
	}}
	return gateway.EncodeXML(ps, doctype)
}

func buildAuthorise3DSOrder(req gateway.Auth3DSRequest) ([]byte, error) {
	ps := envelope(req.Account)
	ps.Submit = &submit{Order: order{
		OrderCode:    req.Charge.GatewayTransactionID,
		Info3DSecure: &info3DSecure{PaResponse: req.Result.PaResponse},
		Session:      &session{ID: req.Charge.ExternalID},
	}}
	return gateway.EncodeXML(ps, doctype)
}

func buildCaptureOrder(req gateway.CaptureRequest, captureDate time.Time) ([]byte, error) {
	capture := &captureModify{Amount: gbp(req.Charge.Amount)}
	capture.Date.DayOfMonth = fmt.Sprintf("%02d", captureDate.Day())
	capture.Date.Month = fmt.Sprintf("%02d", int(captureDate.Month()))
	capture.Date.Year = strconv.Itoa(captureDate.Year())

	ps := envelope(req.Account)
	ps.Modify = &modify{OrderModification: orderModification{
		OrderCode: req.Charge.GatewayTransactionID,
		Capture:   capture,
	}}
	return gateway.EncodeXML(ps, doctype)
}

func buildCancelOrder(req gateway.CancelRequest) ([]byte, error) {
	ps := envelope(req.Account)
	ps.Modify = &modify{OrderModification: orderModification{
		OrderCode: req.Charge.GatewayTransactionID,
		Cancel:    &struct{}{},
	}}
	return gateway.EncodeXML(ps, doctype)
}

func buildRefundOrder(req gateway.RefundRequest) ([]byte, error) {
	ps := envelope(req.Account)
	ps.Modify = &modify{OrderModification: orderModification{
		OrderCode: req.Charge.GatewayTransactionID,
		Refund: &refundModify{
			Reference: req.Refund.ExternalID,
			Amount:    gbp(req.Refund.Amount),
		},
	}}
	return gateway.EncodeXML(ps, doctype)
}

func buildInquiryOrder(account domain.GatewayAccount, orderCode string) ([]byte, error) {
	ps := envelope(account)
	ps.Inquiry = &inquiry{}
	ps.Inquiry.OrderInquiry.OrderCode = orderCode
	return gateway.EncodeXML(ps, doctype)
}

func ptr[T any](v T) *T {
	return &v
}
