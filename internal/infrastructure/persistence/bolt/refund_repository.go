package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	bolt "github.com/boltdb/bolt"
)

type RefundRepository struct {
	s *Store
}

func NewRefundRepository(s *Store) *RefundRepository {
	return &RefundRepository{s: s}
}

func (r *RefundRepository) Create(_ context.Context, refund *domain.Refund) error {
	return r.s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bucketRefunds).CreateBucketIfNotExists([]byte(refund.ChargeID))
		if err != nil {
			return err
		}
		if b.Get([]byte(refund.ID)) != nil {
			return fmt.Errorf("refund %s already exists", refund.ExternalID)
		}
		return put(b, []byte(refund.ID), refund)
	})
}

func (r *RefundRepository) Update(_ context.Context, refund *domain.Refund) error {
	return r.s.db.Update(func(tx *bolt.Tx) error {
		b := chargeBucket(tx, bucketRefunds, refund.ChargeID)
		if b == nil || b.Get([]byte(refund.ID)) == nil {
			return domain.NewRefundNotFoundError(refund.ExternalID)
		}
		return put(b, []byte(refund.ID), refund)
	})
}

// FindByChargeID returns the charge's refunds in creation order.
func (r *RefundRepository) FindByChargeID(_ context.Context, chargeID string) ([]domain.Refund, error) {
	var refunds []domain.Refund
	err := r.s.db.View(func(tx *bolt.Tx) error {
		var err error
		refunds, err = listRefunds(tx, chargeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return refunds, nil
}

func (r *RefundRepository) FindByReference(ctx context.Context, chargeID, reference string) (*domain.Refund, error) {
	refunds, err := r.FindByChargeID(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	for i := range refunds {
		if refunds[i].Reference == reference {
			return &refunds[i], nil
		}
	}
	return nil, domain.NewRefundNotFoundError(reference)
}

func listRefunds(tx *bolt.Tx, chargeID string) ([]domain.Refund, error) {
	b := chargeBucket(tx, bucketRefunds, chargeID)
	if b == nil {
		return nil, nil
	}
	var refunds []domain.Refund
	err := b.ForEach(func(_, v []byte) error {
		var refund domain.Refund
		if err := json.Unmarshal(v, &refund); err != nil {
			return err
		}
		refunds = append(refunds, refund)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(refunds, func(i, j int) bool {
		return refunds[i].CreatedAt.Before(refunds[j].CreatedAt)
	})
	return refunds, nil
}
