package worker_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/application"
	"github.com/DanielPopoola/pay-connector/internal/config"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 2, 7, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// stubCharges answers Find with a fixed batch and records the query.
type stubCharges struct {
	application.ChargeRepository
	mu      sync.Mutex
	found   []*domain.Charge
	findErr error
	queries []domain.ChargeQuery
}

func (s *stubCharges) Find(_ context.Context, q domain.ChargeQuery) ([]*domain.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	return s.found, s.findErr
}

func chargesWithIDs(ids ...string) []*domain.Charge {
	out := make([]*domain.Charge, len(ids))
	for i, id := range ids {
		out[i] = &domain.Charge{ExternalID: id}
	}
	return out
}

var captureConfig = config.CaptureProcessConfig{
	Interval:           time.Minute,
	BatchSize:          50,
	RetryFailuresEvery: time.Hour,
	MaximumRetries:     3,
	ConcurrentCaptures: 2,
}

func TestCaptureSweeper_SelectsDueCharges(t *testing.T) {
	charges := &stubCharges{}
	sweeper := worker.NewCaptureSweeper(charges, nil, fixedClock{now}, captureConfig, nil, discardLogger())

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, worker.Result{}, result)

	require.Len(t, charges.queries, 1)
	assert.Equal(t, domain.ChargeQuery{
		Statuses:      []domain.ChargeStatus{domain.StatusCaptureApproved, domain.StatusCaptureApprovedRetry},
		NoEventStatus: domain.StatusCaptureApprovedRetry,
		NoEventSince:  now.Add(-time.Hour),
		Limit:         50,
	}, charges.queries[0])
}

func TestCaptureSweeper_ClassifiesOutcomes(t *testing.T) {
	charges := &stubCharges{found: chargesWithIDs("ok", "busy", "race", "gateway", "unsupported", "broken")}
	capture := func(_ context.Context, externalID string) (*domain.Charge, error) {
		switch externalID {
		case "busy":
			return nil, application.NewOperationInProgressError("Capture", externalID)
		case "race":
			return nil, application.NewOperationConflictError(externalID, domain.ErrVersionConflict)
		case "gateway":
			return nil, application.NewGatewayError(errors.New("declined"))
		case "unsupported":
			return nil, application.NewUnsupportedOperationError("capture", "stripe")
		case "broken":
			return nil, errors.New("database unavailable")
		}
		return &domain.Charge{ExternalID: externalID, Status: domain.StatusCaptured}, nil
	}
	reg := prometheus.NewRegistry()
	sweeper := worker.NewCaptureSweeper(charges, capture, fixedClock{now}, captureConfig, worker.NewMetrics(reg), discardLogger())

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, worker.Result{Selected: 6, Succeeded: 1, Skipped: 2, Failed: 3}, result)
	expected := `
# HELP connector_sweep_charges_total Charges processed by background sweeps, by outcome.
# TYPE connector_sweep_charges_total counter
connector_sweep_charges_total{outcome="failed",sweep="capture"} 1
connector_sweep_charges_total{outcome="gateway_error",sweep="capture"} 1
connector_sweep_charges_total{outcome="skipped",sweep="capture"} 2
connector_sweep_charges_total{outcome="succeeded",sweep="capture"} 1
connector_sweep_charges_total{outcome="unsupported",sweep="capture"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "connector_sweep_charges_total"))

	selected := `
# HELP connector_sweep_last_selected Charges selected by the most recent run of each sweep.
# TYPE connector_sweep_last_selected gauge
connector_sweep_last_selected{sweep="capture"} 6
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(selected), "connector_sweep_last_selected"))
}

func TestCaptureSweeper_RespectsConcurrencyLimit(t *testing.T) {
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = fmt.Sprintf("charge-%d", i)
	}
	charges := &stubCharges{found: chargesWithIDs(ids...)}

	var inFlight, peak atomic.Int32
	capture := func(_ context.Context, externalID string) (*domain.Charge, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return &domain.Charge{ExternalID: externalID}, nil
	}
	sweeper := worker.NewCaptureSweeper(charges, capture, fixedClock{now}, captureConfig, nil, discardLogger())

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8, result.Succeeded)
	assert.LessOrEqual(t, peak.Load(), int32(captureConfig.ConcurrentCaptures))
}

func TestCaptureSweeper_FindError(t *testing.T) {
	charges := &stubCharges{findErr: errors.New("connection refused")}
	sweeper := worker.NewCaptureSweeper(charges, nil, fixedClock{now}, captureConfig, nil, discardLogger())

	_, err := sweeper.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestExpirySweeper_SelectsStaleCharges(t *testing.T) {
	charges := &stubCharges{found: chargesWithIDs("old-1", "old-2")}
	var expired []string
	var mu sync.Mutex
	expire := func(_ context.Context, externalID string) (*domain.Charge, error) {
		mu.Lock()
		defer mu.Unlock()
		expired = append(expired, externalID)
		return &domain.Charge{ExternalID: externalID, Status: domain.StatusExpired}, nil
	}
	cfg := config.ExpiryConfig{Interval: time.Minute, ChargeWindow: 90 * time.Minute, BatchSize: 10}
	sweeper := worker.NewExpirySweeper(charges, expire, fixedClock{now}, cfg, nil, discardLogger())

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, worker.Result{Selected: 2, Succeeded: 2}, result)
	assert.ElementsMatch(t, []string{"old-1", "old-2"}, expired)
	require.Len(t, charges.queries, 1)
	assert.Equal(t, now.Add(-90*time.Minute), charges.queries[0].CreatedBefore)
	assert.ElementsMatch(t, []domain.ChargeStatus{
		domain.StatusCreated,
		domain.StatusEnteringCardDetails,
		domain.StatusAuthorisation3DSRequired,
		domain.StatusAuthorisationSuccess,
	}, charges.queries[0].Statuses)
}

func TestSweeper_StartStopsWithContext(t *testing.T) {
	charges := &stubCharges{}
	cfg := captureConfig
	cfg.Interval = time.Millisecond
	sweeper := worker.NewCaptureSweeper(charges, nil, fixedClock{now}, cfg, nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		charges.mu.Lock()
		defer charges.mu.Unlock()
		return len(charges.queries) >= 2
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
