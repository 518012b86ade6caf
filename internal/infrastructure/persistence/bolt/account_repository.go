package bolt

import (
	"context"
	"encoding/json"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	bolt "github.com/boltdb/bolt"
)

type AccountRepository struct {
	s *Store
}

func NewAccountRepository(s *Store) *AccountRepository {
	return &AccountRepository{s: s}
}

func (r *AccountRepository) FindByID(_ context.Context, id string) (*domain.GatewayAccount, error) {
	var account domain.GatewayAccount
	err := r.s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketAccounts).Get([]byte(id))
		if v == nil {
			return domain.NewAccountNotFoundError(id)
		}
		return json.Unmarshal(v, &account)
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Save inserts or replaces a gateway account.
func (r *AccountRepository) Save(_ context.Context, account *domain.GatewayAccount) error {
	return r.s.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(bucketAccounts), []byte(account.ID), account)
	})
}
