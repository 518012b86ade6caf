// Package worker runs the background sweeps: capture execution with retries
// and expiry of abandoned charges.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/application"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ChargeFunc runs one coordinated operation against a charge.
type ChargeFunc func(ctx context.Context, externalID string) (*domain.Charge, error)

// Result counts what one sweep did with the charges it selected.
type Result struct {
	Selected  int
	Succeeded int
	Skipped   int
	Failed    int
}

type sweep struct {
	name        string
	concurrency int
	metrics     *Metrics
	logger      *slog.Logger
}

// process applies fn to every charge, at most concurrency at a time. Failures
// are logged and counted, never returned, so one bad charge does not stop the
// batch.
func (s sweep) process(ctx context.Context, charges []*domain.Charge, fn ChargeFunc) Result {
	var mu sync.Mutex
	result := Result{Selected: len(charges)}
	record := func(outcome string) {
		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case OutcomeSucceeded:
			result.Succeeded++
		case OutcomeSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
		s.metrics.charge(s.name, outcome)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.concurrency, 1))
	for _, charge := range charges {
		externalID := charge.ExternalID
		g.Go(func() error {
			updated, err := fn(gctx, externalID)
			if err != nil {
				outcome := classify(err)
				level := slog.LevelError
				if outcome == OutcomeSkipped {
					level = slog.LevelInfo
				}
				s.logger.Log(gctx, level, "sweep operation did not complete",
					"sweep", s.name,
					"charge_external_id", externalID,
					"outcome", outcome,
					"error", err)
				record(outcome)
				return nil
			}
			s.logger.Debug("sweep operation completed",
				"sweep", s.name,
				"charge_external_id", externalID,
				"status", updated.Status)
			record(OutcomeSucceeded)
			return nil
		})
	}
	_ = g.Wait()
	return result
}

// classify separates expected concurrency signals from real failures.
func classify(err error) string {
	svcErr, ok := application.IsServiceError(err)
	if !ok {
		return OutcomeFailed
	}
	switch svcErr.Code {
	case application.ErrCodeOperationInProgress, application.ErrCodeOperationConflict:
		return OutcomeSkipped
	case application.ErrCodeUnsupportedOperation:
		return OutcomeUnsupported
	case application.ErrCodeGateway:
		return OutcomeGatewayError
	default:
		return OutcomeFailed
	}
}

// loop runs fn on every tick until ctx is done.
func loop(ctx context.Context, name string, interval time.Duration, logger *slog.Logger, fn func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("starting sweep", "sweep", name, "interval", interval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping sweep", "sweep", name)
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
