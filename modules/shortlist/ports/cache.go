// Package ports declares the Shortlist Cache's storage contracts.
// The entry store persists one ShortlistCacheEntry per (company, role);
// the lease manager serialises concurrent builds per fingerprint. Both
// are interfaces so the service's TTL/back-off policy can be tested
// without Postgres or Redis.
package ports

import (
	"context"
	"time"

	"github.com/talentcurate/pipeline/modules/shortlist/model"
)

// EntryStore persists ShortlistCacheEntry rows. Get returns whatever is
// stored regardless of freshness; the freshness policy belongs to the
// service layer, mirroring the enrichment module's raw-accessor/TTL-policy
// split.
type EntryStore interface {
	// Get returns the stored entry for (companyID, roleID), or nil if
	// none exists.
	Get(ctx context.Context, companyID, roleID string) (*model.ShortlistCacheEntry, error)

	// Upsert writes entry atomically, replacing any prior entry for the
	// same fingerprint.
	Upsert(ctx context.Context, entry *model.ShortlistCacheEntry) error
}

// FailureMarker records a fatal build failure per fingerprint for the
// back-off window. Kept separate from EntryStore so
// marking a failure never destroys the last good entry — stale-on-error
// serves that entry after the very failure that was just marked.
type FailureMarker interface {
	// MarkFailed records reason for (companyID, roleID); the marker
	// expires on its own after ttl, allowing retry.
	MarkFailed(ctx context.Context, companyID, roleID, reason string, ttl time.Duration) error

	// Failure returns the recorded failure reason, if the marker has not
	// yet expired.
	Failure(ctx context.Context, companyID, roleID string) (string, bool, error)
}

// LeaseManager grants the exclusive permission to build one fingerprint's
// shortlist. A lease expires on its TTL; a holder refreshes it
// while the build progresses, and an expired lease may be reclaimed.
type LeaseManager interface {
	// Acquire attempts to take the fingerprint's lease for holder. It
	// returns false if another live holder has it.
	Acquire(ctx context.Context, companyID, roleID, holder string, ttl time.Duration) (bool, error)

	// Refresh extends a held lease's TTL, returning false if holder no
	// longer owns it (expired and reclaimed).
	Refresh(ctx context.Context, companyID, roleID, holder string, ttl time.Duration) (bool, error)

	// Release gives the lease up early so the next attempt does not wait
	// out the TTL. Releasing a lease the caller lost is a no-op.
	Release(ctx context.Context, companyID, roleID, holder string) error

	// Holder reports the fingerprint's current lease holder, if any; used
	// by cache_status to report a `building` state.
	Holder(ctx context.Context, companyID, roleID string) (string, bool, error)
}
