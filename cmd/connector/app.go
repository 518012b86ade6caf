package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/pay-connector/internal/application"
	"github.com/DanielPopoola/pay-connector/internal/application/services"
	"github.com/DanielPopoola/pay-connector/internal/config"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
	"github.com/DanielPopoola/pay-connector/internal/gateway/epdq"
	"github.com/DanielPopoola/pay-connector/internal/gateway/sandbox"
	"github.com/DanielPopoola/pay-connector/internal/gateway/smartpay"
	"github.com/DanielPopoola/pay-connector/internal/gateway/stripe"
	"github.com/DanielPopoola/pay-connector/internal/gateway/worldpay"
	"github.com/DanielPopoola/pay-connector/internal/infrastructure/lock"
	"github.com/DanielPopoola/pay-connector/internal/infrastructure/persistence"
	"github.com/DanielPopoola/pay-connector/internal/infrastructure/persistence/bolt"
	"github.com/DanielPopoola/pay-connector/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/pay-connector/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds the wired connector. close releases the storage it opened.
type app struct {
	cfg           *config.Config
	logger        *slog.Logger
	metrics       *prometheus.Registry
	repos         services.Repositories
	coordinator   *services.OperationCoordinator
	notifications *services.NotificationProcessor
	captures      *worker.CaptureSweeper
	expiries      *worker.ExpirySweeper
	close         func()
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: prometheus.NewRegistry(),
		close:   func() {},
	}
	a.metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	locker, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	factory := gateway.NewClientFactory(cfg.GatewayClient, gateway.NewMetrics(a.metrics), logger)
	registry, err := gateway.NewRegistry(
		worldpay.New(cfg.Worldpay, factory, logger),
		smartpay.New(cfg.Smartpay, factory, logger),
		epdq.New(cfg.Epdq, factory, logger),
		stripe.New(cfg.Stripe, factory, logger),
		sandbox.New(logger),
	)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("build gateway registry: %w", err)
	}

	clock := application.SystemClock{}
	a.coordinator = services.NewOperationCoordinator(a.repos, registry, locker, clock, cfg.CaptureProcess.MaximumRetries, logger)
	a.notifications = services.NewNotificationProcessor(a.repos, registry, clock, services.NewNotificationMetrics(a.metrics), logger)

	sweepMetrics := worker.NewMetrics(a.metrics)
	a.captures = worker.NewCaptureSweeper(a.repos.Charges, a.coordinator.ExecuteCapture, clock, cfg.CaptureProcess, sweepMetrics, logger)
	a.expiries = worker.NewExpirySweeper(a.repos.Charges, a.coordinator.Expire, clock, cfg.Expiry, sweepMetrics, logger)
	return a, nil
}

// openStorage wires the repositories for the configured driver and returns
// the charge locker to use with them.
func (a *app) openStorage(ctx context.Context) (application.ChargeLocker, error) {
	switch a.cfg.Storage.Driver {
	case config.StorageDriverBolt:
		if a.cfg.Locking.Driver == config.LockingDriverPostgres {
			return nil, fmt.Errorf("locking driver %q requires the postgres storage driver", a.cfg.Locking.Driver)
		}
		store, err := bolt.Open(a.cfg.Storage.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		a.logger.Info("using bolt storage", "path", a.cfg.Storage.BoltPath)
		a.repos = services.Repositories{
			Charges:  bolt.NewChargeRepository(store),
			Events:   bolt.NewEventRepository(store),
			Refunds:  bolt.NewRefundRepository(store),
			Accounts: bolt.NewAccountRepository(store),
		}
		a.close = func() {
			if err := store.Close(); err != nil {
				a.logger.Error("failed to close bolt store", "error", err)
			}
		}
		return lock.NewKeyedLocker(), nil

	default:
		database, err := persistence.Connect(ctx, &a.cfg.Database, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.repos = services.Repositories{
			Charges:  postgres.NewChargeRepository(database),
			Events:   postgres.NewEventRepository(database),
			Refunds:  postgres.NewRefundRepository(database),
			Accounts: postgres.NewAccountRepository(database),
		}
		a.close = database.Close
		if a.cfg.Locking.Driver == config.LockingDriverPostgres {
			return postgres.NewAdvisoryLocker(database, a.logger), nil
		}
		return lock.NewKeyedLocker(), nil
	}
}
