// Package postgres implements the repository ports and the charge lock on
// PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
)

// chargeColumns selects from charges aliased as c.
const chargeColumns = `
	c.id, c.external_id, c.amount, c.status, c.gateway_name, c.gateway_account_id,
	COALESCE(c.gateway_transaction_id, ''), COALESCE(c.provider_session_id, ''),
	c.return_url, c.description, c.reference, COALESCE(c.email, ''),
	c.pa_request, c.issuer_url, c.md, c.created_at, c.version`

type ChargeRepository struct {
	q persistence.Executor
}

func NewChargeRepository(db *persistence.DB) *ChargeRepository {
	return &ChargeRepository{q: db.Pool}
}

func (r *ChargeRepository) Create(ctx context.Context, charge *domain.Charge) error {
	query := `
		INSERT INTO charges (
			id, external_id, amount, status, gateway_name, gateway_account_id,
			gateway_transaction_id, provider_session_id, return_url, description,
			reference, email, pa_request, issuer_url, md, created_at, version
		) VALUES (
			$1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10,
			$11, NULLIF($12, ''), $13, $14, $15, $16, $17
		)`

	paRequest, issuerURL, md := auth3DSColumns(charge.Auth3DS)
	_, err := r.q.Exec(ctx, query,
		charge.ID,
		charge.ExternalID,
		charge.Amount,
		string(charge.Status),
		string(charge.GatewayName),
		charge.GatewayAccountID,
		charge.GatewayTransactionID,
		charge.ProviderSessionID,
		charge.ReturnURL,
		charge.Description,
		charge.Reference,
		charge.Email,
		paRequest,
		issuerURL,
		md,
		charge.CreatedAt,
		charge.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create charge: %w", err)
	}
	return nil
}

func (r *ChargeRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Charge, error) {
	row := r.q.QueryRow(ctx, `SELECT `+chargeColumns+` FROM charges c WHERE c.external_id = $1`, externalID)
	return scanCharge(row, externalID)
}

func (r *ChargeRepository) FindByGatewayTransactionID(ctx context.Context, gatewayName domain.GatewayName, transactionID string) (*domain.Charge, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+chargeColumns+` FROM charges c WHERE c.gateway_name = $1 AND c.gateway_transaction_id = $2`,
		string(gatewayName), transactionID,
	)
	return scanCharge(row, transactionID)
}

// Save writes the mutable charge fields when the stored version still equals
// expectedVersion, and bumps the version.
func (r *ChargeRepository) Save(ctx context.Context, charge *domain.Charge, expectedVersion int64) error {
	query := `
		UPDATE charges
		SET status = $1,
			gateway_transaction_id = NULLIF($2, ''),
			provider_session_id = NULLIF($3, ''),
			pa_request = $4, issuer_url = $5, md = $6,
			version = version + 1
		WHERE external_id = $7 AND version = $8`

	paRequest, issuerURL, md := auth3DSColumns(charge.Auth3DS)
	tag, err := r.q.Exec(ctx, query,
		string(charge.Status),
		charge.GatewayTransactionID,
		charge.ProviderSessionID,
		paRequest,
		issuerURL,
		md,
		charge.ExternalID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update charge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewVersionConflictError(charge.ExternalID, expectedVersion)
	}

	charge.Version = expectedVersion + 1
	return nil
}

// Find selects charges for the sweeps, oldest first.
func (r *ChargeRepository) Find(ctx context.Context, q domain.ChargeQuery) ([]*domain.Charge, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, "c.status = ANY("+arg(statuses)+")")
	}
	if q.GatewayName != "" {
		where = append(where, "c.gateway_name = "+arg(string(q.GatewayName)))
	}
	if !q.CreatedBefore.IsZero() {
		where = append(where, "c.created_at < "+arg(q.CreatedBefore))
	}
	if q.NoEventStatus != "" {
		where = append(where, `NOT EXISTS (
			SELECT 1 FROM charge_events e
			WHERE e.charge_id = c.id
			  AND e.status = `+arg(string(q.NoEventStatus))+`
			  AND e.updated_at >= `+arg(q.NoEventSince)+`)`)
	}

	query := `SELECT ` + chargeColumns + ` FROM charges c`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.created_at ASC"
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query charges: %w", err)
	}
	charges, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Charge, error) {
		return scanCharge(row, "")
	})
	if err != nil {
		return nil, fmt.Errorf("scan charges: %w", err)
	}
	return charges, nil
}

func auth3DSColumns(d *domain.Auth3DSDetails) (paRequest, issuerURL, md *string) {
	if d == nil {
		return nil, nil, nil
	}
	return &d.PaRequest, &d.IssuerURL, &d.MD
}

// scanCharge maps a row to a Charge. Returns a CHARGE_NOT_FOUND domain error
// for a missing row.
func scanCharge(row pgx.Row, lookup string) (*domain.Charge, error) {
	var (
		c                        domain.Charge
		status, gatewayName      string
		paRequest, issuerURL, md *string
	)
	err := row.Scan(
		&c.ID, &c.ExternalID, &c.Amount, &status, &gatewayName, &c.GatewayAccountID,
		&c.GatewayTransactionID, &c.ProviderSessionID,
		&c.ReturnURL, &c.Description, &c.Reference, &c.Email,
		&paRequest, &issuerURL, &md, &c.CreatedAt, &c.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewChargeNotFoundError(lookup)
		}
		return nil, fmt.Errorf("failed to scan charge: %w", err)
	}

	c.Status = domain.ChargeStatus(status)
	c.GatewayName = domain.GatewayName(gatewayName)
	if paRequest != nil || issuerURL != nil || md != nil {
		c.Auth3DS = &domain.Auth3DSDetails{
			PaRequest: deref(paRequest),
			IssuerURL: deref(issuerURL),
			MD:        deref(md),
		}
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
