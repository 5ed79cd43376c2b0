package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	platformRedis "github.com/talentcurate/pipeline/internal/platform/redis"
)

// LeaseRepository implements ports.LeaseManager against Redis. The lease
// key carries the holder's token as its value, so a crashed holder is
// detected by TTL expiry and a live holder never releases a lease it has
// already lost.
type LeaseRepository struct {
	client *platformRedis.Client
}

// NewLeaseRepository creates a Redis-backed LeaseRepository.
func NewLeaseRepository(client *platformRedis.Client) *LeaseRepository {
	return &LeaseRepository{client: client}
}

func leaseKey(companyID, roleID string) string {
	return fmt.Sprintf("shortlist:lease:%s:%s", companyID, roleID)
}

func failureKey(companyID, roleID string) string {
	return fmt.Sprintf("shortlist:failed:%s:%s", companyID, roleID)
}

// Acquire attempts to take the fingerprint's lease for holder.
func (r *LeaseRepository) Acquire(ctx context.Context, companyID, roleID, holder string, ttl time.Duration) (bool, error) {
	ok, err := r.client.AcquireLease(ctx, leaseKey(companyID, roleID), holder, ttl)
	if err != nil {
		return false, errTransient(err)
	}
	return ok, nil
}

// Refresh extends a held lease's TTL while the build progresses.
func (r *LeaseRepository) Refresh(ctx context.Context, companyID, roleID, holder string, ttl time.Duration) (bool, error) {
	ok, err := r.client.RefreshLease(ctx, leaseKey(companyID, roleID), holder, ttl)
	if err != nil {
		return false, errTransient(err)
	}
	return ok, nil
}

// Release gives the lease up early.
func (r *LeaseRepository) Release(ctx context.Context, companyID, roleID, holder string) error {
	if err := r.client.ReleaseLease(ctx, leaseKey(companyID, roleID), holder); err != nil {
		return errTransient(err)
	}
	return nil
}

// MarkFailed records a fatal build failure for the back-off window; the
// key's TTL is what makes the failed status expire to allow retry.
func (r *LeaseRepository) MarkFailed(ctx context.Context, companyID, roleID, reason string, ttl time.Duration) error {
	if err := r.client.Set(ctx, failureKey(companyID, roleID), reason, ttl).Err(); err != nil {
		return errTransient(err)
	}
	return nil
}

// Failure returns the recorded failure reason while the marker lives.
func (r *LeaseRepository) Failure(ctx context.Context, companyID, roleID string) (string, bool, error) {
	reason, err := r.client.Get(ctx, failureKey(companyID, roleID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errTransient(err)
	}
	return reason, true, nil
}

// Holder reports the fingerprint's current lease holder, if any.
func (r *LeaseRepository) Holder(ctx context.Context, companyID, roleID string) (string, bool, error) {
	holder, held, err := r.client.LeaseHolder(ctx, leaseKey(companyID, roleID))
	if err != nil {
		return "", false, errTransient(err)
	}
	return holder, held, nil
}
