package services_test

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
	"github.com/DanielPopoola/pay-connector/internal/gateway/sandbox"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeCharges struct {
	mu      sync.Mutex
	charges map[string]domain.Charge
	saveFn  func(charge *domain.Charge) error
}

func newFakeCharges() *fakeCharges {
	return &fakeCharges{charges: make(map[string]domain.Charge)}
}

func (f *fakeCharges) Create(_ context.Context, charge *domain.Charge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charges[charge.ExternalID] = *charge
	return nil
}

func (f *fakeCharges) FindByExternalID(_ context.Context, externalID string) (*domain.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.charges[externalID]
	if !ok {
		return nil, domain.NewChargeNotFoundError(externalID)
	}
	return &c, nil
}

func (f *fakeCharges) FindByGatewayTransactionID(_ context.Context, name domain.GatewayName, txID string) (*domain.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.charges {
		if c.GatewayName == name && c.GatewayTransactionID == txID {
			return &c, nil
		}
	}
	return nil, domain.NewChargeNotFoundError(txID)
}

func (f *fakeCharges) Save(_ context.Context, charge *domain.Charge, expectedVersion int64) error {
	if f.saveFn != nil {
		if err := f.saveFn(charge); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.charges[charge.ExternalID]
	if !ok {
		return domain.NewChargeNotFoundError(charge.ExternalID)
	}
	if stored.Version != expectedVersion {
		return domain.NewVersionConflictError(charge.ExternalID, expectedVersion)
	}
	charge.Version = expectedVersion + 1
	f.charges[charge.ExternalID] = *charge
	return nil
}

func (f *fakeCharges) Find(_ context.Context, q domain.ChargeQuery) ([]*domain.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Charge
	for _, c := range f.charges {
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, c.Status) {
			continue
		}
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeCharges) status(externalID string) domain.ChargeStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.charges[externalID].Status
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.ChargeEvent
}

func (f *fakeEvents) Append(_ context.Context, event domain.ChargeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEvents) ListByCharge(_ context.Context, chargeID string) ([]domain.ChargeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ChargeEvent
	for _, e := range f.events {
		if e.ChargeID == chargeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEvents) CountByStatus(ctx context.Context, chargeID string, status domain.ChargeStatus) (int, error) {
	events, _ := f.ListByCharge(ctx, chargeID)
	n := 0
	for _, e := range events {
		if e.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeEvents) statuses(chargeID string) []domain.ChargeStatus {
	events, _ := f.ListByCharge(context.Background(), chargeID)
	out := make([]domain.ChargeStatus, 0, len(events))
	for _, e := range events {
		out = append(out, e.Status)
	}
	return out
}

type fakeRefunds struct {
	mu      sync.Mutex
	refunds []domain.Refund
}

func (f *fakeRefunds) Create(_ context.Context, refund *domain.Refund) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, *refund)
	return nil
}

func (f *fakeRefunds) Update(_ context.Context, refund *domain.Refund) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.refunds {
		if f.refunds[i].ID == refund.ID {
			f.refunds[i] = *refund
			return nil
		}
	}
	return domain.NewRefundNotFoundError(refund.ExternalID)
}

func (f *fakeRefunds) FindByChargeID(_ context.Context, chargeID string) ([]domain.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Refund
	for _, r := range f.refunds {
		if r.ChargeID == chargeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRefunds) FindByReference(_ context.Context, chargeID, reference string) (*domain.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.refunds {
		if r.ChargeID == chargeID && r.Reference == reference {
			return &r, nil
		}
	}
	return nil, domain.NewRefundNotFoundError(reference)
}

type fakeAccounts struct {
	accounts map[string]domain.GatewayAccount
}

func (f *fakeAccounts) FindByID(_ context.Context, id string) (*domain.GatewayAccount, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, domain.NewAccountNotFoundError(id)
	}
	return &a, nil
}

func (f *fakeAccounts) Save(_ context.Context, account *domain.GatewayAccount) error {
	f.accounts[account.ID] = *account
	return nil
}

// fakeProvider is the sandbox gateway with overridable operations.
type fakeProvider struct {
	*sandbox.Provider

	capabilities *gateway.Capabilities
	rejectSource bool

	authoriseFn func(req gateway.AuthorisationRequest) gateway.Response[gateway.AuthorisationResult]
	captureFn   func(ctx context.Context, req gateway.CaptureRequest) gateway.Response[gateway.CaptureResult]
	cancelFn    func(req gateway.CancelRequest) gateway.Response[gateway.CancelResult]
	refundFn    func(req gateway.RefundRequest) gateway.Response[gateway.RefundResult]

	captureCalls atomic.Int32
	cancelCalls  atomic.Int32
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{Provider: sandbox.New(discardLogger())}
}

func (p *fakeProvider) Capabilities() gateway.Capabilities {
	if p.capabilities != nil {
		return *p.capabilities
	}
	return p.Provider.Capabilities()
}

func (p *fakeProvider) Authorise(ctx context.Context, req gateway.AuthorisationRequest) gateway.Response[gateway.AuthorisationResult] {
	if p.authoriseFn != nil {
		return p.authoriseFn(req)
	}
	return p.Provider.Authorise(ctx, req)
}

func (p *fakeProvider) Capture(ctx context.Context, req gateway.CaptureRequest) gateway.Response[gateway.CaptureResult] {
	p.captureCalls.Add(1)
	if p.captureFn != nil {
		return p.captureFn(ctx, req)
	}
	return p.Provider.Capture(ctx, req)
}

func (p *fakeProvider) Cancel(ctx context.Context, req gateway.CancelRequest) gateway.Response[gateway.CancelResult] {
	p.cancelCalls.Add(1)
	if p.cancelFn != nil {
		return p.cancelFn(req)
	}
	return p.Provider.Cancel(ctx, req)
}

func (p *fakeProvider) Refund(ctx context.Context, req gateway.RefundRequest) gateway.Response[gateway.RefundResult] {
	if p.refundFn != nil {
		return p.refundFn(req)
	}
	return p.Provider.Refund(ctx, req)
}

func (p *fakeProvider) VerifyNotificationSource(ctx context.Context, in gateway.InboundNotification) bool {
	if p.rejectSource {
		return false
	}
	return p.Provider.VerifyNotificationSource(ctx, in)
}
