package postgres

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
)

// EventRepository is append-only; there is no update or delete.
type EventRepository struct {
	q persistence.Executor
}

func NewEventRepository(db *persistence.DB) *EventRepository {
	return &EventRepository{q: db.Pool}
}

func (r *EventRepository) Append(ctx context.Context, event domain.ChargeEvent) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO charge_events (charge_id, status, updated_at) VALUES ($1, $2, $3)`,
		event.ChargeID, string(event.Status), event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append charge event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListByCharge(ctx context.Context, chargeID string) ([]domain.ChargeEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT charge_id, status, updated_at
		FROM charge_events
		WHERE charge_id = $1
		ORDER BY updated_at ASC, id ASC`, chargeID)
	if err != nil {
		return nil, fmt.Errorf("query charge events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ChargeEvent, error) {
		var (
			e      domain.ChargeEvent
			status string
		)
		err := row.Scan(&e.ChargeID, &status, &e.UpdatedAt)
		e.Status = domain.ChargeStatus(status)
		e.UpdatedAt = e.UpdatedAt.UTC()
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan charge events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) CountByStatus(ctx context.Context, chargeID string, status domain.ChargeStatus) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM charge_events WHERE charge_id = $1 AND status = $2`,
		chargeID, string(status),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count charge events: %w", err)
	}
	return n, nil
}
