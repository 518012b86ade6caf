package stripe

import (
	"strconv"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
	"golang.org/x/text/encoding/charmap"
)

const (
	routeTokens  = "/tokens"
	routeCharges = "/charges"

	formCharset = "windows-1252"
)

var formMediaType = gateway.FormMediaType(formCharset)

// Both field lists are kept in alphabetical order.

func buildTokenOrder(card domain.CardDetails) ([]byte, error) {
	month, year := card.ExpiryMonthYear()
	fields := gateway.Fields{}.
		With("card[cvc]", card.CVC).
		With("card[exp_month]", month).
		With("card[exp_year]", year).
		With("card[number]", card.CardNumber)
	return gateway.EncodeForm(fields, charmap.Windows1252)
}

func buildChargeOrder(charge domain.Charge, token string) ([]byte, error) {
	fields := gateway.Fields{}.
		With("amount", strconv.FormatInt(charge.Amount, 10)).
		With("currency", domain.DefaultCurrency).
		With("description", charge.Description).
		With("source", token)
	return gateway.EncodeForm(fields, charmap.Windows1252)
}
