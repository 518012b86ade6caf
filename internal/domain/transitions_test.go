package domain_test

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_ExhaustiveTable(t *testing.T) {
	all := domain.AllChargeStatuses()

	for _, from := range all {
		allowed := domain.AllowedTransitions(from)
		for _, to := range all {
			err := domain.Transition(from, to)
			if slices.Contains(allowed, to) {
				assert.NoError(t, err, "%s -> %s should be legal", from, to)
				continue
			}

			require.Error(t, err, "%s -> %s should be rejected", from, to)
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)

			var transitionErr *domain.InvalidStateTransitionError
			require.True(t, errors.As(err, &transitionErr))
			assert.Equal(t, from, transitionErr.From)
			assert.Equal(t, to, transitionErr.To)
		}
	}
}

func TestTransition_UnknownStatus(t *testing.T) {
	err := domain.Transition("NOT_A_STATUS", domain.StatusCreated)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	err = domain.Transition(domain.StatusCreated, "NOT_A_STATUS")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransition_NoSelfLoops(t *testing.T) {
	for _, s := range domain.AllChargeStatuses() {
		assert.False(t, domain.CanTransition(s, s), "%s must not transition to itself", s)
	}
}

func TestExternalState_CoversVocabulary(t *testing.T) {
	for _, s := range domain.AllChargeStatuses() {
		assert.NotEmpty(t, s.ExternalState(), "%s has no external state", s)
	}

	assert.Equal(t, domain.ExternalStarted, domain.StatusAuthorisationReady.ExternalState())
	assert.Equal(t, domain.ExternalSuccess, domain.StatusCaptured.ExternalState())
	assert.Equal(t, domain.ExternalCancelled, domain.StatusSystemCancelled.ExternalState())
	assert.Equal(t, domain.ExternalFailed, domain.StatusExpired.ExternalState())
	assert.Equal(t, domain.ExternalError, domain.StatusCaptureError.ExternalState())
}

func TestCharge_TransitionTo(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("applies a legal transition and returns its event", func(t *testing.T) {
		charge := newTestCharge(t)

		event, err := charge.TransitionTo(domain.StatusAuthorisationReady, now)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusAuthorisationReady, charge.Status)
		assert.Equal(t, charge.ID, event.ChargeID)
		assert.Equal(t, domain.StatusAuthorisationReady, event.Status)
		assert.Equal(t, now, event.UpdatedAt)
	})

	t.Run("leaves status unchanged on illegal transition", func(t *testing.T) {
		charge := newTestCharge(t)

		_, err := charge.TransitionTo(domain.StatusCaptured, now)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, domain.StatusCreated, charge.Status)
	})

	t.Run("duplicate transition succeeds once", func(t *testing.T) {
		charge := newTestCharge(t)
		charge.Status = domain.StatusCaptureSubmitted

		_, err := charge.TransitionTo(domain.StatusCaptured, now)
		require.NoError(t, err)

		_, err = charge.TransitionTo(domain.StatusCaptured, now)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, domain.StatusCaptured, charge.Status)
	})
}

func TestTerminalStatuses(t *testing.T) {
	terminal := []domain.ChargeStatus{
		domain.StatusCaptured,
		domain.StatusCaptureError,
		domain.StatusExpired,
		domain.StatusSystemCancelled,
		domain.StatusUserCancelled,
		domain.StatusAuthorisationRejected,
		domain.StatusAuthorisationError,
		domain.StatusCancelError,
	}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}
	assert.False(t, domain.StatusCaptureApprovedRetry.IsTerminal())
}
