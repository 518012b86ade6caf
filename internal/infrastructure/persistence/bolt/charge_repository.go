package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	bolt "github.com/boltdb/bolt"
	"github.com/samber/lo"
)

type ChargeRepository struct {
	s *Store
}

func NewChargeRepository(s *Store) *ChargeRepository {
	return &ChargeRepository{s: s}
}

func txKey(gatewayName domain.GatewayName, transactionID string) []byte {
	return []byte(string(gatewayName) + "/" + transactionID)
}

func (r *ChargeRepository) Create(_ context.Context, charge *domain.Charge) error {
	return r.s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCharges)
		if b.Get([]byte(charge.ExternalID)) != nil {
			return fmt.Errorf("charge %s already exists", charge.ExternalID)
		}
		if err := indexTransaction(tx, charge); err != nil {
			return err
		}
		return put(b, []byte(charge.ExternalID), charge)
	})
}

func (r *ChargeRepository) FindByExternalID(_ context.Context, externalID string) (*domain.Charge, error) {
	var charge *domain.Charge
	err := r.s.db.View(func(tx *bolt.Tx) error {
		var err error
		charge, err = getCharge(tx, externalID)
		return err
	})
	return charge, err
}

func (r *ChargeRepository) FindByGatewayTransactionID(_ context.Context, gatewayName domain.GatewayName, transactionID string) (*domain.Charge, error) {
	var charge *domain.Charge
	err := r.s.db.View(func(tx *bolt.Tx) error {
		externalID := tx.Bucket(bucketTxIndex).Get(txKey(gatewayName, transactionID))
		if externalID == nil {
			return domain.NewChargeNotFoundError(transactionID)
		}
		var err error
		charge, err = getCharge(tx, string(externalID))
		return err
	})
	return charge, err
}

// Save replaces the stored charge when its version still equals
// expectedVersion. Bolt serialises writers, so the check and the write are
// atomic.
func (r *ChargeRepository) Save(_ context.Context, charge *domain.Charge, expectedVersion int64) error {
	err := r.s.db.Update(func(tx *bolt.Tx) error {
		stored, err := getCharge(tx, charge.ExternalID)
		if err != nil {
			return err
		}
		if stored.Version != expectedVersion {
			return domain.NewVersionConflictError(charge.ExternalID, expectedVersion)
		}
		if err := indexTransaction(tx, charge); err != nil {
			return err
		}

		next := *charge
		next.Version = expectedVersion + 1
		return put(tx.Bucket(bucketCharges), []byte(charge.ExternalID), &next)
	})
	if err != nil {
		return err
	}
	charge.Version = expectedVersion + 1
	return nil
}

func (r *ChargeRepository) Find(_ context.Context, q domain.ChargeQuery) ([]*domain.Charge, error) {
	var charges []*domain.Charge
	err := r.s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCharges).ForEach(func(_, v []byte) error {
			var c domain.Charge
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			if matches(tx, &c, q) {
				charges = append(charges, &c)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("scan charges: %w", err)
	}

	sort.SliceStable(charges, func(i, j int) bool {
		return charges[i].CreatedAt.Before(charges[j].CreatedAt)
	})
	if q.Limit > 0 && len(charges) > q.Limit {
		charges = charges[:q.Limit]
	}
	return charges, nil
}

func matches(tx *bolt.Tx, c *domain.Charge, q domain.ChargeQuery) bool {
	if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, c.Status) {
		return false
	}
	if q.GatewayName != "" && c.GatewayName != q.GatewayName {
		return false
	}
	if !q.CreatedBefore.IsZero() && !c.CreatedAt.Before(q.CreatedBefore) {
		return false
	}
	if q.NoEventStatus != "" {
		events, err := listEvents(tx, c.ID)
		if err != nil {
			return false
		}
		recent := lo.ContainsBy(events, func(e domain.ChargeEvent) bool {
			return e.Status == q.NoEventStatus && !e.UpdatedAt.Before(q.NoEventSince)
		})
		if recent {
			return false
		}
	}
	return true
}

func getCharge(tx *bolt.Tx, externalID string) (*domain.Charge, error) {
	v := tx.Bucket(bucketCharges).Get([]byte(externalID))
	if v == nil {
		return nil, domain.NewChargeNotFoundError(externalID)
	}
	var c domain.Charge
	if err := json.Unmarshal(v, &c); err != nil {
		return nil, fmt.Errorf("failed to decode charge: %w", err)
	}
	return &c, nil
}

// indexTransaction keeps gateway transaction ids unique per gateway.
func indexTransaction(tx *bolt.Tx, charge *domain.Charge) error {
	if charge.GatewayTransactionID == "" {
		return nil
	}
	idx := tx.Bucket(bucketTxIndex)
	key := txKey(charge.GatewayName, charge.GatewayTransactionID)
	if owner := idx.Get(key); owner != nil && string(owner) != charge.ExternalID {
		return fmt.Errorf("gateway transaction id %s already belongs to charge %s", charge.GatewayTransactionID, owner)
	}
	return idx.Put(key, []byte(charge.ExternalID))
}
