package worker

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/pay-connector/internal/application"
	"github.com/DanielPopoola/pay-connector/internal/config"
	"github.com/DanielPopoola/pay-connector/internal/domain"
)

const captureSweep = "capture"

// CaptureSweeper executes approved captures. A charge in CAPTURE_APPROVED_RETRY
// waits RetryFailuresEvery after its last failed attempt before it is selected
// again.
type CaptureSweeper struct {
	charges application.ChargeRepository
	capture ChargeFunc
	clock   application.Clock
	cfg     config.CaptureProcessConfig
	sweep   sweep
}

func NewCaptureSweeper(
	charges application.ChargeRepository,
	capture ChargeFunc,
	clock application.Clock,
	cfg config.CaptureProcessConfig,
	metrics *Metrics,
	logger *slog.Logger,
) *CaptureSweeper {
	return &CaptureSweeper{
		charges: charges,
		capture: capture,
		clock:   clock,
		cfg:     cfg,
		sweep: sweep{
			name:        captureSweep,
			concurrency: cfg.ConcurrentCaptures,
			metrics:     metrics,
			logger:      logger,
		},
	}
}

func (s *CaptureSweeper) Start(ctx context.Context) {
	loop(ctx, captureSweep, s.cfg.Interval, s.sweep.logger, func(ctx context.Context) {
		_, _ = s.RunOnce(ctx)
	})
}

// RunOnce selects one batch of due charges and captures them.
func (s *CaptureSweeper) RunOnce(ctx context.Context) (Result, error) {
	due, err := s.charges.Find(ctx, domain.ChargeQuery{
		Statuses:      []domain.ChargeStatus{domain.StatusCaptureApproved, domain.StatusCaptureApprovedRetry},
		NoEventStatus: domain.StatusCaptureApprovedRetry,
		NoEventSince:  s.clock.Now().Add(-s.cfg.RetryFailuresEvery),
		Limit:         s.cfg.BatchSize,
	})
	if err != nil {
		s.sweep.logger.Error("failed to select charges for capture", "error", err)
		return Result{}, err
	}
	s.sweep.metrics.ran(captureSweep, len(due))
	if len(due) == 0 {
		return Result{}, nil
	}

	result := s.sweep.process(ctx, due, s.capture)
	s.sweep.logger.Info("capture sweep finished",
		"selected", result.Selected,
		"succeeded", result.Succeeded,
		"skipped", result.Skipped,
		"failed", result.Failed)
	return result, nil
}
