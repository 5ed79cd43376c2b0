// Package cache implements the Enrichment Cache: a TTL policy
// wrapped around the Talent Store's get_enrichment/put_enrichment pair.
// Caching happens at the person level, not the role level, which is what
// bounds enrichment spend as a tenant's role catalogue grows.
package cache

import (
	"context"
	"time"

	"github.com/talentcurate/pipeline/modules/enrichment/model"
	"github.com/talentcurate/pipeline/modules/talent/ports"
)

// DefaultTTL is the default freshness window.
const DefaultTTL = 30 * 24 * time.Hour

// Cache wraps ports.Store with the TTL freshness policy.
type Cache struct {
	store ports.Store
	ttl   time.Duration
}

// New creates a Cache with the given freshness window.
func New(store ports.Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl}
}

// Lookup returns (rec, true) if the stored record is fresh, (rec, false)
// if it is stale, (nil, false) if none is stored, or (nil, false) with a
// non-nil error on a store failure. Callers distinguish "absent" from
// "stale" by whether rec is nil; in the curation pipeline a stale record
// is treated the same as absent (the caller decides whether to re-fetch).
func (c *Cache) Lookup(ctx context.Context, personID string) (rec *model.EnrichmentRecord, fresh bool, err error) {
	rec, err = c.store.GetEnrichment(ctx, personID)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, nil
	}
	if !rec.IsFresh(time.Now(), c.ttl) {
		return rec, false, nil
	}
	return rec, true, nil
}

// Store writes rec unconditionally, overwriting any prior record for the
// same person.
func (c *Cache) Store(ctx context.Context, rec *model.EnrichmentRecord) error {
	return c.store.PutEnrichment(ctx, rec)
}
