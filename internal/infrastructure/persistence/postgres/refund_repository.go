package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
)

const refundColumns = `
	id, external_id, charge_id, amount, status,
	COALESCE(reference, ''), COALESCE(submitted_by, ''), created_at, updated_at`

type RefundRepository struct {
	q persistence.Executor
}

func NewRefundRepository(db *persistence.DB) *RefundRepository {
	return &RefundRepository{q: db.Pool}
}

func (r *RefundRepository) Create(ctx context.Context, refund *domain.Refund) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO refunds (
			id, external_id, charge_id, amount, status, reference, submitted_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9)`,
		refund.ID,
		refund.ExternalID,
		refund.ChargeID,
		refund.Amount,
		string(refund.Status),
		refund.Reference,
		refund.SubmittedBy,
		refund.CreatedAt,
		refund.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create refund: %w", err)
	}
	return nil
}

func (r *RefundRepository) Update(ctx context.Context, refund *domain.Refund) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE refunds
		SET status = $1, reference = NULLIF($2, ''), updated_at = $3
		WHERE id = $4`,
		string(refund.Status), refund.Reference, refund.UpdatedAt, refund.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update refund: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewRefundNotFoundError(refund.ExternalID)
	}
	return nil
}

func (r *RefundRepository) FindByChargeID(ctx context.Context, chargeID string) ([]domain.Refund, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE charge_id = $1 ORDER BY created_at ASC`, chargeID)
	if err != nil {
		return nil, fmt.Errorf("query refunds: %w", err)
	}

	refunds, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Refund, error) {
		refund, err := scanRefund(row, "")
		if err != nil {
			return domain.Refund{}, err
		}
		return *refund, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan refunds: %w", err)
	}
	return refunds, nil
}

func (r *RefundRepository) FindByReference(ctx context.Context, chargeID, reference string) (*domain.Refund, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE charge_id = $1 AND reference = $2`,
		chargeID, reference,
	)
	return scanRefund(row, reference)
}

func scanRefund(row pgx.Row, lookup string) (*domain.Refund, error) {
	var (
		refund domain.Refund
		status string
	)
	err := row.Scan(
		&refund.ID, &refund.ExternalID, &refund.ChargeID, &refund.Amount, &status,
		&refund.Reference, &refund.SubmittedBy, &refund.CreatedAt, &refund.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewRefundNotFoundError(lookup)
		}
		return nil, fmt.Errorf("failed to scan refund: %w", err)
	}

	refund.Status = domain.RefundStatus(status)
	refund.CreatedAt = refund.CreatedAt.UTC()
	refund.UpdatedAt = refund.UpdatedAt.UTC()
	return &refund, nil
}
