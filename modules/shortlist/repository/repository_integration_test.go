package repository

import (
	"context"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/talentcurate/pipeline/internal/config"
	platformRedis "github.com/talentcurate/pipeline/internal/platform/redis"
	"github.com/talentcurate/pipeline/modules/shortlist/model"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
)

// These tests need Docker; `go test -short` skips them.

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("curation"),
		tcpostgres.WithUsername("curator"),
		tcpostgres.WithPassword("curator"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "000001_init.up.sql"))
	require.NoError(t, err)
	// pgx's extended protocol takes one statement per Exec.
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err = pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}

	return pool
}

func startRedis(t *testing.T) *platformRedis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("could not start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	u, err := url.Parse(uri)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)

	client, err := platformRedis.New(ctx, config.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestIntegration_EntryRepository_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	pool := startPostgres(t)
	repo := NewEntryRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	entry := &model.ShortlistCacheEntry{
		CompanyID:   "c-1",
		RoleID:      "r-1",
		GeneratedAt: now,
		ExpiresAt:   now.Add(7 * 24 * time.Hour),
		Candidates: []model.CuratedCandidate{
			{Person: &talentModel.Person{ID: "p-1", Name: "Ada"}, MatchScore: 91, Confidence: 0.8},
			{Person: &talentModel.Person{ID: "p-2", Name: "Grace"}, MatchScore: 75, Confidence: 0.7},
		},
		Summary:            model.Summary{TotalSearched: 40, EnrichedCount: 5, AverageScore: 52.5},
		Status:             model.StatusReady,
		Degraded:           true,
		Warnings:           []string{"enrichment: 1 failure"},
		DecisionConfidence: model.ConfidenceMedium,
	}

	require.NoError(t, repo.Upsert(ctx, entry))

	got, err := repo.Get(ctx, "c-1", "r-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.Summary, got.Summary)
	assert.Equal(t, entry.Warnings, got.Warnings)
	assert.True(t, got.Degraded)
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "Ada", got.Candidates[0].Person.Name)
	assert.Equal(t, 91.0, got.Candidates[0].MatchScore)

	// Upsert replaces wholesale.
	entry.Candidates = entry.Candidates[:1]
	entry.Warnings = nil
	entry.Degraded = false
	require.NoError(t, repo.Upsert(ctx, entry))

	got, err = repo.Get(ctx, "c-1", "r-1")
	require.NoError(t, err)
	require.Len(t, got.Candidates, 1)
	assert.False(t, got.Degraded)

	absent, err := repo.Get(ctx, "c-1", "r-other")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestIntegration_LeaseRepository_Contention(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	client := startRedis(t)
	repo := NewLeaseRepository(client)
	ctx := context.Background()

	// Concurrent acquisition: exactly one winner.
	var wins int32
	var wg sync.WaitGroup
	holders := []string{"h-0", "h-1", "h-2", "h-3", "h-4", "h-5", "h-6", "h-7"}
	for _, h := range holders {
		wg.Add(1)
		go func(h string) {
			defer wg.Done()
			ok, err := repo.Acquire(ctx, "c-1", "r-1", h, time.Minute)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}(h)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins, "the lease is exclusive under contention")

	holder, held, err := repo.Holder(ctx, "c-1", "r-1")
	require.NoError(t, err)
	require.True(t, held)

	// Only the holder refreshes or releases.
	still, err := repo.Refresh(ctx, "c-1", "r-1", holder, time.Minute)
	require.NoError(t, err)
	assert.True(t, still)
	still, err = repo.Refresh(ctx, "c-1", "r-1", "someone-else", time.Minute)
	require.NoError(t, err)
	assert.False(t, still)

	require.NoError(t, repo.Release(ctx, "c-1", "r-1", "someone-else"))
	_, held, err = repo.Holder(ctx, "c-1", "r-1")
	require.NoError(t, err)
	assert.True(t, held, "a non-holder release is a no-op")

	require.NoError(t, repo.Release(ctx, "c-1", "r-1", holder))
	_, held, err = repo.Holder(ctx, "c-1", "r-1")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestIntegration_LeaseRepository_ExpiryReclaim(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	client := startRedis(t)
	repo := NewLeaseRepository(client)
	ctx := context.Background()

	ok, err := repo.Acquire(ctx, "c-2", "r-2", "crashed-holder", 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(300 * time.Millisecond)

	ok, err = repo.Acquire(ctx, "c-2", "r-2", "next-holder", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "an abandoned lease is reclaimable after its TTL")

	still, err := repo.Refresh(ctx, "c-2", "r-2", "crashed-holder", time.Minute)
	require.NoError(t, err)
	assert.False(t, still, "the ousted holder cannot refresh")
}

func TestIntegration_FailureMarker_Expires(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	client := startRedis(t)
	repo := NewLeaseRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.MarkFailed(ctx, "c-3", "r-3", "deadline", 300*time.Millisecond))

	reason, found, err := repo.Failure(ctx, "c-3", "r-3")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "deadline", reason)

	time.Sleep(400 * time.Millisecond)

	_, found, err = repo.Failure(ctx, "c-3", "r-3")
	require.NoError(t, err)
	assert.False(t, found, "the failed status expires to allow retry")
}
