package epdq

import (
	"strconv"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

const (
	routeNewOrder    = "/orderdirect.asp"
	routeMaintenance = "/maintenancedirect.asp"

	operationAuthorise = "RES"
	operationCapture   = "SAS"
	operationCancel    = "DES"
	operationRefund    = "RFD"
)

func credentials(fields gateway.Fields, account domain.GatewayAccount) gateway.Fields {
	return fields.
		With("PSPID", account.Credential(domain.CredentialMerchantID)).
		With("PSWD", account.Credential(domain.CredentialPassword)).
		With("USERID", account.Credential(domain.CredentialUsername))
}

func signed(fields gateway.Fields, account domain.GatewayAccount) ([]byte, error) {
	fields = fields.With(signatureKey, signIn(fields, account.Credential(domain.CredentialSHAInPassphrase)))
	return gateway.EncodeForm(fields, nil)
}

func buildAuthoriseOrder(req gateway.AuthorisationRequest) ([]byte, error) {
	fields := gateway.Fields{}.
		With("AMOUNT", strconv.FormatInt(req.Charge.Amount, 10)).
		With("CARDNO", req.Card.CardNumber).
		With("CN", req.Card.CardholderName).
		WithOptional("COM", req.Charge.Description).
		With("CURRENCY", domain.DefaultCurrency).
		With("CVC", req.Card.CVC).
		With("ED", req.Card.EndDate).
		With("OPERATION", operationAuthorise).
		With("ORDERID", req.Charge.ExternalID)
	if a := req.Card.Address; a != nil {
		street := a.Line1
		if a.Line2 != "" {
			street += ", " + a.Line2
		}
		fields = fields.
			With("OWNERADDRESS", street).
			With("OWNERCTY", a.Country).
			With("OWNERTOWN", a.City).
			With("OWNERZIP", a.Postcode)
	}
	return signed(credentials(fields, req.Account), req.Account)
}

func maintenance(operation string, payID string, amount int64, account domain.GatewayAccount) ([]byte, error) {
	fields := gateway.Fields{}
	if amount > 0 {
		fields = fields.With("AMOUNT", strconv.FormatInt(amount, 10))
	}
	fields = fields.
		With("OPERATION", operation).
		With("PAYID", payID)
	return signed(credentials(fields, account), account)
}

func buildCaptureOrder(req gateway.CaptureRequest) ([]byte, error) {
	return maintenance(operationCapture, req.Charge.GatewayTransactionID, 0, req.Account)
}

func buildCancelOrder(req gateway.CancelRequest) ([]byte, error) {
	return maintenance(operationCancel, req.Charge.GatewayTransactionID, 0, req.Account)
}

func buildRefundOrder(req gateway.RefundRequest) ([]byte, error) {
	return maintenance(operationRefund, req.Charge.GatewayTransactionID, req.Refund.Amount, req.Account)
}
