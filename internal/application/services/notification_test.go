package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/application/services"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
	"github.com/DanielPopoola/pay-connector/internal/gateway/sandbox"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notificationHarness struct {
	charges   *fakeCharges
	events    *fakeEvents
	refunds   *fakeRefunds
	provider  *fakeProvider
	registry  *prometheus.Registry
	processor *services.NotificationProcessor
}

func newNotificationHarness(t *testing.T) *notificationHarness {
	t.Helper()
	h := &notificationHarness{
		charges:  newFakeCharges(),
		events:   &fakeEvents{},
		refunds:  &fakeRefunds{},
		provider: newFakeProvider(),
		registry: prometheus.NewRegistry(),
	}
	accounts := &fakeAccounts{accounts: map[string]domain.GatewayAccount{
		testAccountID: {ID: testAccountID, GatewayName: domain.GatewaySandbox},
	}}
	registry, err := gateway.NewRegistry(h.provider)
	require.NoError(t, err)

	h.processor = services.NewNotificationProcessor(
		services.Repositories{Charges: h.charges, Events: h.events, Refunds: h.refunds, Accounts: accounts},
		registry,
		fixedClock{now: time.Date(2024, 2, 7, 10, 0, 0, 0, time.UTC)},
		services.NewNotificationMetrics(h.registry),
		discardLogger(),
	)
	return h
}

func (h *notificationHarness) seed(t *testing.T, status domain.ChargeStatus) *domain.Charge {
	t.Helper()
	charge := &domain.Charge{
		ID:                   "charge-1",
		ExternalID:           "ext-1",
		Amount:               1000,
		Status:               status,
		GatewayName:          domain.GatewaySandbox,
		GatewayAccountID:     testAccountID,
		GatewayTransactionID: "tx-1",
	}
	require.NoError(t, h.charges.Create(context.Background(), charge))
	return charge
}

func (h *notificationHarness) handle(t *testing.T, payload string) services.NotificationOutcome {
	t.Helper()
	outcome, err := h.processor.Handle(context.Background(), domain.GatewaySandbox, gateway.InboundNotification{
		Payload:     []byte(payload),
		ContentType: "application/json",
	})
	require.NoError(t, err)
	return outcome
}

func (h *notificationHarness) assertOutcomes(t *testing.T, lines ...string) {
	t.Helper()
	expected := "# HELP connector_notifications_processed_total Inbound gateway notifications by outcome.\n" +
		"# TYPE connector_notifications_processed_total counter\n" +
		strings.Join(lines, "\n") + "\n"
	assert.NoError(t, testutil.GatherAndCompare(h.registry, strings.NewReader(expected),
		"connector_notifications_processed_total"))
}

func TestNotificationProcessor_AppliesChargeStatus(t *testing.T) {
	h := newNotificationHarness(t)
	charge := h.seed(t, domain.StatusCaptureSubmitted)

	outcome := h.handle(t, `{"transaction_id":"tx-1","status":"CAPTURED"}`)

	assert.Equal(t, sandbox.Acknowledgement, outcome.Acknowledgement)
	assert.Equal(t, 1, outcome.Applied)
	assert.Equal(t, domain.StatusCaptured, h.charges.status(charge.ExternalID))
	assert.Equal(t, []domain.ChargeStatus{domain.StatusCaptured}, h.events.statuses(charge.ID))
}

func TestNotificationProcessor_DuplicateIsNoOp(t *testing.T) {
	h := newNotificationHarness(t)
	charge := h.seed(t, domain.StatusCaptureSubmitted)
	payload := `{"transaction_id":"tx-1","status":"CAPTURED"}`

	first := h.handle(t, payload)
	second := h.handle(t, payload)

	assert.Equal(t, 1, first.Applied)
	assert.Equal(t, 0, second.Applied)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, sandbox.Acknowledgement, second.Acknowledgement)
	assert.Len(t, h.events.statuses(charge.ID), 1)

	h.assertOutcomes(t,
		`connector_notifications_processed_total{gateway="sandbox",outcome="applied"} 1`,
		`connector_notifications_processed_total{gateway="sandbox",outcome="illegal_transition"} 1`,
	)
}

func TestNotificationProcessor_Skips(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		outcome string
	}{
		{"unknown transaction", `{"transaction_id":"tx-unknown","status":"CAPTURED"}`, "unknown_charge"},
		{"unmapped status", `{"transaction_id":"tx-1","status":"SETTLED_ELSEWHERE"}`, "unmapped"},
		{"illegal transition", `{"transaction_id":"tx-1","status":"AUTHORISATION_SUCCESS"}`, "illegal_transition"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newNotificationHarness(t)
			charge := h.seed(t, domain.StatusCaptureSubmitted)

			outcome := h.handle(t, tt.payload)

			assert.Equal(t, sandbox.Acknowledgement, outcome.Acknowledgement)
			assert.Equal(t, 0, outcome.Applied)
			assert.Equal(t, 1, outcome.Skipped)
			assert.Equal(t, domain.StatusCaptureSubmitted, h.charges.status(charge.ExternalID))
			h.assertOutcomes(t,
				`connector_notifications_processed_total{gateway="sandbox",outcome="`+tt.outcome+`"} 1`,
			)
		})
	}
}

func TestNotificationProcessor_VersionConflictSkipped(t *testing.T) {
	h := newNotificationHarness(t)
	charge := h.seed(t, domain.StatusCaptureSubmitted)
	h.charges.saveFn = func(c *domain.Charge) error {
		return domain.NewVersionConflictError(c.ExternalID, c.Version)
	}

	outcome := h.handle(t, `{"transaction_id":"tx-1","status":"CAPTURED"}`)

	assert.Equal(t, 1, outcome.Skipped)
	assert.Empty(t, h.events.statuses(charge.ID))
	h.assertOutcomes(t, `connector_notifications_processed_total{gateway="sandbox",outcome="conflict"} 1`)
}

func TestNotificationProcessor_RefundStatus(t *testing.T) {
	h := newNotificationHarness(t)
	charge := h.seed(t, domain.StatusCaptured)
	refund := domain.Refund{
		ID:        "refund-1",
		ChargeID:  charge.ID,
		Amount:    400,
		Status:    domain.RefundSubmitted,
		Reference: "ref-1",
	}
	require.NoError(t, h.refunds.Create(context.Background(), &refund))

	outcome := h.handle(t, `{"transaction_id":"tx-1","status":"REFUND_SUCCEEDED","reference":"ref-1"}`)
	assert.Equal(t, 1, outcome.Applied)

	refunds, _ := h.refunds.FindByChargeID(context.Background(), charge.ID)
	require.Len(t, refunds, 1)
	assert.Equal(t, domain.RefundSucceeded, refunds[0].Status)
	assert.Equal(t, domain.StatusCaptured, h.charges.status(charge.ExternalID))
}

func TestNotificationProcessor_MalformedPayloadAcknowledged(t *testing.T) {
	h := newNotificationHarness(t)

	outcome := h.handle(t, `not json`)

	assert.Equal(t, sandbox.Acknowledgement, outcome.Acknowledgement)
	assert.False(t, outcome.Rejected)
	h.assertOutcomes(t, `connector_notifications_processed_total{gateway="sandbox",outcome="malformed"} 1`)
}

func TestNotificationProcessor_SourceRejected(t *testing.T) {
	h := newNotificationHarness(t)
	charge := h.seed(t, domain.StatusCaptureSubmitted)
	h.provider.rejectSource = true

	outcome := h.handle(t, `{"transaction_id":"tx-1","status":"CAPTURED"}`)

	assert.True(t, outcome.Rejected)
	assert.Empty(t, outcome.Acknowledgement)
	assert.Equal(t, domain.StatusCaptureSubmitted, h.charges.status(charge.ExternalID))
}

func TestNotificationProcessor_UnknownGateway(t *testing.T) {
	h := newNotificationHarness(t)

	_, err := h.processor.Handle(context.Background(), "nobody", gateway.InboundNotification{Payload: []byte(`{}`)})
	assert.Error(t, err)
}

// confirmingProvider confirms notifications the way gateways with an order
// enquiry do.
type confirmingProvider struct {
	*fakeProvider
	confirmFn func(n gateway.Notification) gateway.Response[gateway.Notification]
}

func (p *confirmingProvider) ConfirmNotification(
	_ context.Context,
	n gateway.Notification,
	_ domain.GatewayAccount,
) gateway.Response[gateway.Notification] {
	return p.confirmFn(n)
}

func newConfirmingHarness(t *testing.T, confirmFn func(gateway.Notification) gateway.Response[gateway.Notification]) *notificationHarness {
	t.Helper()
	h := newNotificationHarness(t)
	provider := &confirmingProvider{fakeProvider: h.provider, confirmFn: confirmFn}
	registry, err := gateway.NewRegistry(provider)
	require.NoError(t, err)

	h.registry = prometheus.NewRegistry()
	h.processor = services.NewNotificationProcessor(
		services.Repositories{
			Charges:  h.charges,
			Events:   h.events,
			Refunds:  h.refunds,
			Accounts: &fakeAccounts{accounts: map[string]domain.GatewayAccount{testAccountID: {ID: testAccountID, GatewayName: domain.GatewaySandbox}}},
		},
		registry,
		fixedClock{now: time.Date(2024, 2, 7, 10, 0, 0, 0, time.UTC)},
		services.NewNotificationMetrics(h.registry),
		discardLogger(),
	)
	return h
}

func TestNotificationProcessor_AppliesConfirmedStatus(t *testing.T) {
	var asked string
	h := newConfirmingHarness(t, func(n gateway.Notification) gateway.Response[gateway.Notification] {
		asked = n.TransactionID
		n.Status = "CAPTURED"
		return gateway.Success(n)
	})
	charge := h.seed(t, domain.StatusCaptureSubmitted)

	outcome := h.handle(t, `{"transaction_id":"tx-1","status":"SETTLED_ELSEWHERE"}`)

	assert.Equal(t, "tx-1", asked)
	assert.Equal(t, 1, outcome.Applied)
	assert.Equal(t, domain.StatusCaptured, h.charges.status(charge.ExternalID))
}

func TestNotificationProcessor_UnconfirmedStatusSkipped(t *testing.T) {
	h := newConfirmingHarness(t, func(gateway.Notification) gateway.Response[gateway.Notification] {
		return gateway.Failure[gateway.Notification](gateway.GatewayError("5", "Order not found"))
	})
	charge := h.seed(t, domain.StatusCaptureSubmitted)

	outcome := h.handle(t, `{"transaction_id":"tx-1","status":"CAPTURED"}`)

	assert.Equal(t, sandbox.Acknowledgement, outcome.Acknowledgement)
	assert.Equal(t, 1, outcome.Skipped)
	assert.Equal(t, domain.StatusCaptureSubmitted, h.charges.status(charge.ExternalID))
	assert.Empty(t, h.events.statuses(charge.ID))
	h.assertOutcomes(t, `connector_notifications_processed_total{gateway="sandbox",outcome="unconfirmed"} 1`)
}
