package application

import (
	"context"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/domain"
)

// ChargeRepository is the persistence port for charges. Save is the optimistic
// concurrency backstop: it fails with domain.ErrVersionConflict when the stored
// version differs from expectedVersion, and bumps charge.Version on success.
type ChargeRepository interface {
	Create(ctx context.Context, charge *domain.Charge) error
	FindByExternalID(ctx context.Context, externalID string) (*domain.Charge, error)
	FindByGatewayTransactionID(ctx context.Context, gatewayName domain.GatewayName, transactionID string) (*domain.Charge, error)
	Save(ctx context.Context, charge *domain.Charge, expectedVersion int64) error
	Find(ctx context.Context, q domain.ChargeQuery) ([]*domain.Charge, error)
}

// EventRepository is the append-only audit trail of charge statuses.
type EventRepository interface {
	Append(ctx context.Context, event domain.ChargeEvent) error
	ListByCharge(ctx context.Context, chargeID string) ([]domain.ChargeEvent, error)
	CountByStatus(ctx context.Context, chargeID string, status domain.ChargeStatus) (int, error)
}

type RefundRepository interface {
	Create(ctx context.Context, refund *domain.Refund) error
	Update(ctx context.Context, refund *domain.Refund) error
	FindByChargeID(ctx context.Context, chargeID string) ([]domain.Refund, error)
	FindByReference(ctx context.Context, chargeID, reference string) (*domain.Refund, error)
}

// AccountRepository is read-only for the connector core; Save exists for
// provisioning tools.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*domain.GatewayAccount, error)
	Save(ctx context.Context, account *domain.GatewayAccount) error
}

// ChargeLocker hands out charge-scoped exclusive locks. TryLock never waits:
// acquired is false when another holder has the key.
type ChargeLocker interface {
	TryLock(ctx context.Context, key string) (release func(), acquired bool, err error)
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
