package domain_test

import (
	"testing"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refundOf(amount int64, status domain.RefundStatus) domain.Refund {
	return domain.Refund{Amount: amount, Status: status}
}

func TestAvailabilityFromRefunds(t *testing.T) {
	charge := &domain.Charge{Amount: 1000, Status: domain.StatusCaptured}

	tests := []struct {
		name      string
		refunds   []domain.Refund
		status    domain.RefundAvailabilityStatus
		remaining int64
	}{
		{"no refunds", nil, domain.RefundAvailabilityFull, 1000},
		{"partial refund", []domain.Refund{refundOf(400, domain.RefundSucceeded)}, domain.RefundAvailabilityPartial, 600},
		{"fully refunded", []domain.Refund{refundOf(1000, domain.RefundSucceeded)}, domain.RefundAvailabilityNone, 0},
		{"submitted refunds count", []domain.Refund{refundOf(300, domain.RefundSubmitted), refundOf(200, domain.RefundSucceeded)}, domain.RefundAvailabilityPartial, 500},
		{"in-flight refunds count", []domain.Refund{refundOf(250, domain.RefundCreated)}, domain.RefundAvailabilityPartial, 750},
		{"errored refunds ignored", []domain.Refund{refundOf(1000, domain.RefundError)}, domain.RefundAvailabilityFull, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.AvailabilityFromRefunds(charge, tt.refunds)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.remaining, got.Remaining)
		})
	}
}

func TestRefundAvailability_Allows(t *testing.T) {
	partial := domain.RefundAvailability{Status: domain.RefundAvailabilityPartial, Remaining: 600}
	assert.True(t, partial.Allows(600))
	assert.False(t, partial.Allows(601))
	assert.False(t, partial.Allows(0))

	pending := domain.RefundAvailability{Status: domain.RefundAvailabilityPending}
	assert.False(t, pending.Allows(1))
}

func TestRefund_TransitionTo(t *testing.T) {
	charge := &domain.Charge{ID: "charge-1", Amount: 1000}
	refund, err := domain.NewRefund(charge, 500, "user-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.RefundCreated, refund.Status)
	assert.Equal(t, "charge-1", refund.ChargeID)

	require.NoError(t, refund.TransitionTo(domain.RefundSubmitted, time.Now()))
	require.NoError(t, refund.TransitionTo(domain.RefundSucceeded, time.Now()))

	err = refund.TransitionTo(domain.RefundSucceeded, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = domain.NewRefund(charge, 0, "user-1", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}
