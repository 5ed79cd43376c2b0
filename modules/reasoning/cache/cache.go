// Package cache is the Reasoning Cache: a short-TTL Redis-backed cache
// of ensemble verdicts, keyed by (person, role, reasoning version) so a
// prompt edit transparently invalidates every previously cached verdict
// without a manual flush.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/talentcurate/pipeline/modules/reasoning/model"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is the Reasoning Cache's default entry lifetime.
const DefaultTTL = time.Hour

// redisClient is the narrow slice of *redis.Client (or our wrapper) this
// cache needs, kept small so fakes stay trivial in tests.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd
}

// Cache is the Reasoning Cache.
type Cache struct {
	client  redisClient
	ttl     time.Duration
	version string
}

// New creates a Cache bound to reasoningVersion; entries written under one
// version are invisible to lookups under another.
func New(client redisClient, reasoningVersion string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl, version: reasoningVersion}
}

type entry struct {
	AggregateScore float64                                `json:"aggregate_score"`
	Confidence     float64                                `json:"confidence"`
	Degraded       bool                                   `json:"degraded"`
	AgentResults   map[model.AgentName]model.AgentResult `json:"agent_results"`
}

func (c *Cache) key(personID, roleID string) string {
	return fmt.Sprintf("reasoning:%s:%s:%s", c.version, roleID, personID)
}

// Lookup returns a cached verdict for (personID, roleID) under the
// cache's bound reasoning version, if present.
func (c *Cache) Lookup(ctx context.Context, personID, roleID string) (*model.ReasonedCandidate, bool, error) {
	raw, err := c.client.Get(ctx, c.key(personID, roleID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reasoning cache: get: %w", err)
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false, fmt.Errorf("reasoning cache: decode: %w", err)
	}

	return &model.ReasonedCandidate{
		AgentResults:   e.AgentResults,
		AggregateScore: e.AggregateScore,
		Confidence:     e.Confidence,
		Degraded:       e.Degraded,
	}, true, nil
}

// Store writes rc's verdict under (personID, roleID) with the cache's TTL.
func (c *Cache) Store(ctx context.Context, personID, roleID string, rc *model.ReasonedCandidate) error {
	e := entry{
		AggregateScore: rc.AggregateScore,
		Confidence:     rc.Confidence,
		Degraded:       rc.Degraded,
		AgentResults:   rc.AgentResults,
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("reasoning cache: encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(personID, roleID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("reasoning cache: set: %w", err)
	}
	return nil
}
