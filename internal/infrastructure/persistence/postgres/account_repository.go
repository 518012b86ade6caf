package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
)

type AccountRepository struct {
	q persistence.Executor
}

func NewAccountRepository(db *persistence.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.GatewayAccount, error) {
	var (
		account                    domain.GatewayAccount
		gatewayName, accountType   string
		notifyUser, notifyPassword *string
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, gateway_name, type, description, credentials, requires_3ds,
		       notification_username, notification_password
		FROM gateway_accounts WHERE id = $1`, id,
	).Scan(
		&account.ID, &gatewayName, &accountType, &account.Description,
		&account.Credentials, &account.Requires3DS, &notifyUser, &notifyPassword,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewAccountNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to scan gateway account: %w", err)
	}

	account.GatewayName = domain.GatewayName(gatewayName)
	account.Type = domain.AccountType(accountType)
	if notifyUser != nil {
		account.NotificationCredentials = &domain.NotificationCredentials{
			Username: *notifyUser,
			Password: deref(notifyPassword),
		}
	}
	return &account, nil
}

// Save inserts or replaces a gateway account.
func (r *AccountRepository) Save(ctx context.Context, account *domain.GatewayAccount) error {
	var notifyUser, notifyPassword *string
	if nc := account.NotificationCredentials; nc != nil {
		notifyUser, notifyPassword = &nc.Username, &nc.Password
	}
	credentials := account.Credentials
	if credentials == nil {
		credentials = map[string]string{}
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO gateway_accounts (
			id, gateway_name, type, description, credentials, requires_3ds,
			notification_username, notification_password
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			gateway_name = EXCLUDED.gateway_name,
			type = EXCLUDED.type,
			description = EXCLUDED.description,
			credentials = EXCLUDED.credentials,
			requires_3ds = EXCLUDED.requires_3ds,
			notification_username = EXCLUDED.notification_username,
			notification_password = EXCLUDED.notification_password`,
		account.ID,
		string(account.GatewayName),
		string(account.Type),
		account.Description,
		credentials,
		account.Requires3DS,
		notifyUser,
		notifyPassword,
	)
	if err != nil {
		return fmt.Errorf("failed to save gateway account: %w", err)
	}
	return nil
}
