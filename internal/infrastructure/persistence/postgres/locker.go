package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdvisoryLocker implements the charge lock with session-level Postgres
// advisory locks, so it holds across connector replicas. Each held lock pins
// one pool connection until released. Keys are hashed to the full bigint lock
// space; a 32-bit hash would let unrelated charges block each other.
type AdvisoryLocker struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewAdvisoryLocker(db *persistence.DB, logger *slog.Logger) *AdvisoryLocker {
	return &AdvisoryLocker{pool: db.Pool, logger: logger}
}

func (l *AdvisoryLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection for lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtextextended($1, 0))`, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, key); err != nil {
				// The lock dies with the session; drop the connection rather
				// than return it to the pool still holding the lock.
				l.logger.Error("failed to release advisory lock", "key", key, "error", err)
				conn.Hijack().Close(ctx) //nolint:errcheck
				return
			}
			conn.Release()
		})
	}
	return release, true, nil
}
