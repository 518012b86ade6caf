package worker

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/pay-connector/internal/application"
	"github.com/DanielPopoola/pay-connector/internal/config"
	"github.com/DanielPopoola/pay-connector/internal/domain"
)

const expirySweep = "expiry"

// expirable charges are abandoned before capture was approved.
var expirable = []domain.ChargeStatus{
	domain.StatusCreated,
	domain.StatusEnteringCardDetails,
	domain.StatusAuthorisation3DSRequired,
	domain.StatusAuthorisationSuccess,
}

type ExpirySweeper struct {
	charges application.ChargeRepository
	expire  ChargeFunc
	clock   application.Clock
	cfg     config.ExpiryConfig
	sweep   sweep
}

func NewExpirySweeper(
	charges application.ChargeRepository,
	expire ChargeFunc,
	clock application.Clock,
	cfg config.ExpiryConfig,
	metrics *Metrics,
	logger *slog.Logger,
) *ExpirySweeper {
	return &ExpirySweeper{
		charges: charges,
		expire:  expire,
		clock:   clock,
		cfg:     cfg,
		sweep: sweep{
			name:        expirySweep,
			concurrency: 1,
			metrics:     metrics,
			logger:      logger,
		},
	}
}

func (s *ExpirySweeper) Start(ctx context.Context) {
	loop(ctx, expirySweep, s.cfg.Interval, s.sweep.logger, func(ctx context.Context) {
		_, _ = s.RunOnce(ctx)
	})
}

// RunOnce expires one batch of charges older than the charge window.
func (s *ExpirySweeper) RunOnce(ctx context.Context) (Result, error) {
	stale, err := s.charges.Find(ctx, domain.ChargeQuery{
		Statuses:      expirable,
		CreatedBefore: s.clock.Now().Add(-s.cfg.ChargeWindow),
		Limit:         s.cfg.BatchSize,
	})
	if err != nil {
		s.sweep.logger.Error("failed to select charges for expiry", "error", err)
		return Result{}, err
	}
	s.sweep.metrics.ran(expirySweep, len(stale))
	if len(stale) == 0 {
		return Result{}, nil
	}

	result := s.sweep.process(ctx, stale, s.expire)
	s.sweep.logger.Info("processed expiration check",
		"processed", result.Selected,
		"marked_expired", result.Succeeded,
		"failed", result.Failed)
	return result, nil
}
