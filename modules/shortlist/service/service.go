// Package service implements the Shortlist Cache: the TTL policy
// over the entry store, the failed-status back-off, lease serialisation
// of concurrent builds, and the per-role status view backing
// cache_status.
package service

import (
	"context"
	"time"

	"github.com/talentcurate/pipeline/modules/shortlist/model"
	"github.com/talentcurate/pipeline/modules/shortlist/ports"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
)

// Config holds the cache's named TTLs. This is the days-window cache;
// the hour-window reasoning cache lives in modules/reasoning/cache.
type Config struct {
	TTL           time.Duration // default 7 days
	LeaseTTL      time.Duration // default 2 minutes
	FailedBackoff time.Duration // default 5 minutes
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TTL:           7 * 24 * time.Hour,
		LeaseTTL:      2 * time.Minute,
		FailedBackoff: 5 * time.Minute,
	}
}

// Service is the Shortlist Cache.
type Service struct {
	entries  ports.EntryStore
	leases   ports.LeaseManager
	failures ports.FailureMarker
	cfg      Config
}

// New creates a Service. leases and failures are usually the same
// Redis-backed repository.
func New(entries ports.EntryStore, leases ports.LeaseManager, failures ports.FailureMarker, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 2 * time.Minute
	}
	if cfg.FailedBackoff <= 0 {
		cfg.FailedBackoff = 5 * time.Minute
	}
	return &Service{entries: entries, leases: leases, failures: failures, cfg: cfg}
}

// LeaseTTL reports the configured lease TTL, for the engine's refresh loop.
func (s *Service) LeaseTTL() time.Duration { return s.cfg.LeaseTTL }

// GetFresh returns the fingerprint's entry iff it is ready and its
// expires-at is in the future. An expired or failed
// entry is treated as absent here.
func (s *Service) GetFresh(ctx context.Context, companyID, roleID string) (*model.ShortlistCacheEntry, error) {
	e, err := s.entries.Get(ctx, companyID, roleID)
	if err != nil {
		return nil, err
	}
	if e == nil || e.Status != model.StatusReady || !e.IsFresh(time.Now()) {
		return nil, nil
	}
	return e, nil
}

// GetStale returns an expired ready entry if one exists, for the engine's
// stale-on-error path. A fresh entry is returned too — the caller
// only reaches for this after a failed build, when either is better than
// nothing.
func (s *Service) GetStale(ctx context.Context, companyID, roleID string) (*model.ShortlistCacheEntry, error) {
	e, err := s.entries.Get(ctx, companyID, roleID)
	if err != nil {
		return nil, err
	}
	if e == nil || e.Status != model.StatusReady {
		return nil, nil
	}
	return e, nil
}

// GetFailed reports the fingerprint's failed status while its back-off
// has not yet elapsed, so waiters observe the same failure instead of
// immediately re-triggering a doomed build. Once the back-off
// expires the failure is treated as absent, allowing retry.
func (s *Service) GetFailed(ctx context.Context, companyID, roleID string) (*model.ShortlistCacheEntry, error) {
	reason, found, err := s.failures.Failure(ctx, companyID, roleID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &model.ShortlistCacheEntry{
		CompanyID:     companyID,
		RoleID:        roleID,
		Status:        model.StatusFailed,
		FailureReason: reason,
	}, nil
}

// Write persists a completed build's entry, stamping generated-at and the
// cache TTL. Atomic per fingerprint; any concurrent reader sees either
// the previous entry or this one.
func (s *Service) Write(ctx context.Context, entry *model.ShortlistCacheEntry) error {
	now := time.Now().UTC()
	entry.GeneratedAt = now
	entry.ExpiresAt = now.Add(s.cfg.TTL)
	entry.Status = model.StatusReady
	return s.entries.Upsert(ctx, entry)
}

// MarkFailed records a fatal build failure for the fingerprint. The
// failed status expires after the configured back-off to allow
// retry. The last good entry is left untouched so stale-on-error can
// still serve it.
func (s *Service) MarkFailed(ctx context.Context, companyID, roleID, reason string) error {
	return s.failures.MarkFailed(ctx, companyID, roleID, reason, s.cfg.FailedBackoff)
}

// AcquireLease attempts to take the fingerprint's build lease.
func (s *Service) AcquireLease(ctx context.Context, companyID, roleID, holder string) (bool, error) {
	return s.leases.Acquire(ctx, companyID, roleID, holder, s.cfg.LeaseTTL)
}

// RefreshLease extends a held lease while the build progresses.
func (s *Service) RefreshLease(ctx context.Context, companyID, roleID, holder string) (bool, error) {
	return s.leases.Refresh(ctx, companyID, roleID, holder, s.cfg.LeaseTTL)
}

// ReleaseLease gives a held lease up early.
func (s *Service) ReleaseLease(ctx context.Context, companyID, roleID, holder string) error {
	return s.leases.Release(ctx, companyID, roleID, holder)
}

// RoleStatus is one row of the cache_status view, plus the last
// build's warnings.
type RoleStatus struct {
	RoleID       string
	Title        string
	Status       string // ready, building, stale, missing, failed
	LastBuiltAt  *time.Time
	ExpiresAt    *time.Time
	LastWarnings []string
}

// Status derives each role's cache state: building while a lease is
// held, otherwise ready/stale/failed from the stored entry, missing when
// nothing is stored.
func (s *Service) Status(ctx context.Context, companyID string, roles []*talentModel.Role) ([]RoleStatus, error) {
	now := time.Now()
	out := make([]RoleStatus, 0, len(roles))
	for _, role := range roles {
		st := RoleStatus{RoleID: role.ID, Title: role.Title, Status: "missing"}

		if _, held, err := s.leases.Holder(ctx, companyID, role.ID); err != nil {
			return nil, err
		} else if held {
			st.Status = "building"
			out = append(out, st)
			continue
		}

		e, err := s.entries.Get(ctx, companyID, role.ID)
		if err != nil {
			return nil, err
		}
		_, failed, err := s.failures.Failure(ctx, companyID, role.ID)
		if err != nil {
			return nil, err
		}

		if e != nil {
			generatedAt, expiresAt := e.GeneratedAt, e.ExpiresAt
			st.LastBuiltAt = &generatedAt
			st.ExpiresAt = &expiresAt
			st.LastWarnings = e.Warnings
		}
		switch {
		case e != nil && e.IsFresh(now):
			st.Status = "ready"
		case failed:
			st.Status = "failed"
		case e != nil:
			st.Status = "stale"
		}
		out = append(out, st)
	}
	return out, nil
}
