package bolt

import (
	"context"
	"encoding/json"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	bolt "github.com/boltdb/bolt"
)

type EventRepository struct {
	s *Store
}

func NewEventRepository(s *Store) *EventRepository {
	return &EventRepository{s: s}
}

func (r *EventRepository) Append(_ context.Context, event domain.ChargeEvent) error {
	return r.s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bucketEvents).CreateBucketIfNotExists([]byte(event.ChargeID))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return put(b, itob(seq), event)
	})
}

func (r *EventRepository) ListByCharge(_ context.Context, chargeID string) ([]domain.ChargeEvent, error) {
	var events []domain.ChargeEvent
	err := r.s.db.View(func(tx *bolt.Tx) error {
		var err error
		events, err = listEvents(tx, chargeID)
		return err
	})
	return events, err
}

func (r *EventRepository) CountByStatus(ctx context.Context, chargeID string, status domain.ChargeStatus) (int, error) {
	events, err := r.ListByCharge(ctx, chargeID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range events {
		if e.Status == status {
			n++
		}
	}
	return n, nil
}

func listEvents(tx *bolt.Tx, chargeID string) ([]domain.ChargeEvent, error) {
	b := chargeBucket(tx, bucketEvents, chargeID)
	if b == nil {
		return nil, nil
	}
	var events []domain.ChargeEvent
	err := b.ForEach(func(_, v []byte) error {
		var e domain.ChargeEvent
		if err := json.Unmarshal(v, &e); err != nil {
			return err
		}
		events = append(events, e)
		return nil
	})
	return events, err
}
