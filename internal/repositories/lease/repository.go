// Package lease guards sync passes with a per-collection lease so two passes
// never interleave their clear and write phases on the same collection.
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// ErrLeaseHeld is returned when an unexpired lease is held by someone else.
var ErrLeaseHeld = errors.New("sync lease already held")

// An expired lease is stealable, so a crashed pass never wedges its
// collection. The insert either creates the sentinel row or takes over an
// expired one; zero rows affected means a live holder exists.
const acquireQuery = `
INSERT INTO sync_leases (collection, holder, acquired_at, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (collection) DO UPDATE
SET holder = EXCLUDED.holder,
    acquired_at = EXCLUDED.acquired_at,
    expires_at = EXCLUDED.expires_at
WHERE sync_leases.expires_at < EXCLUDED.acquired_at`

const releaseQuery = `
DELETE FROM sync_leases WHERE collection = $1 AND holder = $2`

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Lease is a held lease. Release it when the pass finishes.
type Lease struct {
	Collection string
	Holder     string
	ExpiresAt  time.Time

	repo *Repository
}

// Acquire takes the lease for a collection. ErrLeaseHeld is returned when an
// unexpired lease belongs to another holder.
func (r *Repository) Acquire(ctx context.Context, collection string, ttl time.Duration) (*Lease, error) {
	ctx, span := tracing.StartSpan(ctx, "LeaseRepository.Acquire")
	defer span.End()

	holder := uuid.New().String()
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	result, err := r.db.ExecContext(ctx, acquireQuery, collection, holder, now, expiresAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"collection": collection,
		}).Error("error acquiring sync lease")
		return nil, fmt.Errorf("error acquiring sync lease for %s: %w", collection, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error acquiring sync lease for %s: %w", collection, err)
	}
	if rows == 0 {
		return nil, ErrLeaseHeld
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"collection": collection,
		"holder":     holder,
		"expires_at": expiresAt,
	}).Info("acquired sync lease")

	return &Lease{
		Collection: collection,
		Holder:     holder,
		ExpiresAt:  expiresAt,
		repo:       r,
	}, nil
}

// Release drops the lease. Releasing a lease that expired and was stolen is
// a no-op.
func (l *Lease) Release(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "Lease.Release")
	defer span.End()

	if _, err := l.repo.db.ExecContext(ctx, releaseQuery, l.Collection, l.Holder); err != nil {
		l.repo.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"collection": l.Collection,
			"holder":     l.Holder,
		}).Error("error releasing sync lease")
		return fmt.Errorf("error releasing sync lease for %s: %w", l.Collection, err)
	}
	return nil
}
