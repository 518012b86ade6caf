package epdq

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

func fieldValue(fields gateway.Fields, key string) string {
	for _, f := range fields {
		if strings.EqualFold(f.Key, key) {
			return f.Value
		}
	}
	return ""
}

// VerifyNotificationSource rejects unsigned payloads. The signature itself is
// checked per account in VerifyNotification.
func (p *Provider) VerifyNotificationSource(_ context.Context, in gateway.InboundNotification) bool {
	fields, err := gateway.ParseForm(in.Payload)
	if err != nil {
		return false
	}
	if fieldValue(fields, signatureKey) == "" {
		p.logger.Warn("unsigned notification", "source_ip", in.SourceIP)
		return false
	}
	return true
}

func (p *Provider) ParseNotification(in gateway.InboundNotification) ([]gateway.Notification, error) {
	fields, err := gateway.ParseForm(in.Payload)
	if err != nil {
		return nil, fmt.Errorf("parsing epdq notification: %w", err)
	}
	payID := fieldValue(fields, "PAYID")
	status := fieldValue(fields, "STATUS")
	if payID == "" || status == "" {
		return nil, fmt.Errorf("epdq notification is missing PAYID or STATUS")
	}

	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f.Key] = f.Value
	}
	return []gateway.Notification{{
		TransactionID: payID,
		Reference:     refundReference(payID, fieldValue(fields, "PAYIDSUB")),
		Status:        status,
		Fields:        values,
		Signature:     fieldValue(fields, signatureKey),
	}}, nil
}

// VerifyNotification recomputes the SHA-OUT signature with the account's passphrase.
func (p *Provider) VerifyNotification(n gateway.Notification, account domain.GatewayAccount) bool {
	passphrase := account.Credential(domain.CredentialSHAOutPassphrase)
	if passphrase == "" || n.Signature == "" {
		return false
	}
	fields := make(gateway.Fields, 0, len(n.Fields))
	for k, v := range n.Fields {
		fields = append(fields, gateway.Field{Key: k, Value: v})
	}
	expected := signOut(fields, passphrase)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToUpper(n.Signature))) == 1
}
