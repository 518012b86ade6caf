// Package bolt stores charges, events, refunds and gateway accounts in a
// single BoltDB file, for deployments that run one connector process without
// PostgreSQL.
//
// Values are JSON. Events and refunds live in a nested bucket per charge so a
// charge's history is read with one cursor.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
)

var (
	bucketCharges  = []byte("charges")
	bucketTxIndex  = []byte("charge_transactions")
	bucketEvents   = []byte("charge_events")
	bucketRefunds  = []byte("refunds")
	bucketAccounts = []byte("gateway_accounts")
)

type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path and ensures the buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketCharges, bucketTxIndex, bucketEvents, bucketRefunds, bucketAccounts} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bolt buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func put(b *bolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

// itob encodes a sequence so keys sort in insertion order.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// chargeBucket returns the nested bucket for chargeID under parent, or nil.
func chargeBucket(tx *bolt.Tx, parent []byte, chargeID string) *bolt.Bucket {
	return tx.Bucket(parent).Bucket([]byte(chargeID))
}
