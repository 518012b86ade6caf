package sandbox_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
	"github.com/DanielPopoola/pay-connector/internal/gateway/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider() *sandbox.Provider {
	return sandbox.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func authRequest(card string) gateway.AuthorisationRequest {
	return gateway.AuthorisationRequest{
		Charge: domain.Charge{ExternalID: "ext-1", Amount: 500, GatewayTransactionID: "tx-1"},
		Card:   domain.CardDetails{CardNumber: card, CVC: "123", EndDate: "12/30"},
	}
}

func TestAuthorise(t *testing.T) {
	tests := []struct {
		name       string
		card       string
		successful bool
		status     gateway.AuthoriseStatus
	}{
		{"authorised card", "4242424242424242", true, gateway.AuthoriseAuthorised},
		{"declined card", "4000000000000002", true, gateway.AuthoriseRejected},
		{"expired card", "4000000000000069", true, gateway.AuthoriseRejected},
		{"3ds card", "4000000000003063", true, gateway.AuthoriseRequires3DS},
		{"processing error card", "4000000000000119", false, ""},
		{"unknown card", "1111222233334444", false, ""},
	}

	p := newProvider()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := p.Authorise(context.Background(), authRequest(tt.card))

			require.Equal(t, tt.successful, resp.IsSuccessful())
			if !tt.successful {
				assert.Equal(t, gateway.KindGateway, resp.Err().Kind)
				return
			}
			assert.Equal(t, tt.status, resp.Value().Status)
			assert.Equal(t, "tx-1", resp.Value().TransactionID)
		})
	}
}

func TestAuthorise3DSResponse(t *testing.T) {
	p := newProvider()

	resp := p.Authorise3DSResponse(context.Background(), gateway.Auth3DSRequest{
		Charge: domain.Charge{GatewayTransactionID: "tx-1"},
		Result: domain.Auth3DSResult{Result: domain.Auth3DSAuthorised},
	})
	require.True(t, resp.IsSuccessful())
	assert.Equal(t, gateway.AuthoriseAuthorised, resp.Value().Status)

	resp = p.Authorise3DSResponse(context.Background(), gateway.Auth3DSRequest{
		Result: domain.Auth3DSResult{Result: domain.Auth3DSCanceled},
	})
	assert.Equal(t, gateway.AuthoriseError, resp.Value().Status)
}

func TestCaptureCompletesImmediately(t *testing.T) {
	resp := newProvider().Capture(context.Background(), gateway.CaptureRequest{
		Charge: domain.Charge{GatewayTransactionID: "tx-1"},
	})

	require.True(t, resp.IsSuccessful())
	assert.Equal(t, gateway.CaptureComplete, resp.Value().State)
}

func TestParseNotification(t *testing.T) {
	p := newProvider()

	t.Run("parses transaction and status", func(t *testing.T) {
		notifications, err := p.ParseNotification(gateway.InboundNotification{
			Payload: []byte(`{"transaction_id":"tx-1","status":"CAPTURED","extra":"ignored"}`),
		})

		require.NoError(t, err)
		require.Len(t, notifications, 1)
		assert.Equal(t, "tx-1", notifications[0].TransactionID)
		assert.Equal(t, "CAPTURED", notifications[0].Status)
	})

	t.Run("rejects malformed payload", func(t *testing.T) {
		_, err := p.ParseNotification(gateway.InboundNotification{Payload: []byte(`not json`)})
		assert.Error(t, err)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := p.ParseNotification(gateway.InboundNotification{Payload: []byte(`{"status":"CAPTURED"}`)})
		assert.Error(t, err)
	})
}

func TestStatusMapper(t *testing.T) {
	mapper := newProvider().StatusMapper()

	mapped := mapper.Map("CAPTURED")
	assert.Equal(t, gateway.MappingCharge, mapped.Kind)
	assert.Equal(t, domain.StatusCaptured, mapped.ChargeStatus)

	mapped = mapper.Map("REFUND_SUCCEEDED")
	assert.Equal(t, gateway.MappingRefund, mapped.Kind)
	assert.Equal(t, domain.RefundSucceeded, mapped.RefundStatus)

	assert.Equal(t, gateway.MappingUnknown, mapper.Map("WHATEVER").Kind)
}

func TestTransactionIDIsPreAssigned(t *testing.T) {
	id, ok := newProvider().GenerateTransactionID()
	assert.True(t, ok)
	assert.NotEmpty(t, id)
}
