package engine

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentcurate/pipeline/internal/platform/logger"
	curationModel "github.com/talentcurate/pipeline/modules/curation/model"
	enrichModel "github.com/talentcurate/pipeline/modules/enrichment/model"
	enrichService "github.com/talentcurate/pipeline/modules/enrichment/service"
	reasoningModel "github.com/talentcurate/pipeline/modules/reasoning/model"
	researchModel "github.com/talentcurate/pipeline/modules/research/model"
	scoringModel "github.com/talentcurate/pipeline/modules/scoring/model"
	shortlistModel "github.com/talentcurate/pipeline/modules/shortlist/model"
	shortlistService "github.com/talentcurate/pipeline/modules/shortlist/service"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
)

// eventLog records stage events in arrival order, for the stage-ordering
// invariant.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// fakeStore is an in-memory ports.Store.
type fakeStore struct {
	mu              sync.Mutex
	company         *talentModel.Company
	roles           map[string]*talentModel.Role
	people          []*talentModel.Person
	listPeopleCalls int
	listDelay       time.Duration
}

func (s *fakeStore) ListPeople(ctx context.Context, companyID string) ([]*talentModel.Person, error) {
	s.mu.Lock()
	s.listPeopleCalls++
	delay := s.listDelay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return s.people, nil
}

func (s *fakeStore) GetRole(ctx context.Context, roleID string) (*talentModel.Role, error) {
	role, ok := s.roles[roleID]
	if !ok {
		return nil, talentModel.ErrRoleNotFound
	}
	cp := *role
	return &cp, nil
}

func (s *fakeStore) GetCompany(ctx context.Context, companyID string) (*talentModel.Company, error) {
	if s.company == nil || s.company.ID != companyID {
		return nil, talentModel.ErrCompanyNotFound
	}
	cp := *s.company
	return &cp, nil
}

func (s *fakeStore) ListRoles(ctx context.Context, companyID string) ([]*talentModel.Role, error) {
	var out []*talentModel.Role
	for _, r := range s.roles {
		out = append(out, r)
	}
	return out, nil
}

func (s *fakeStore) GetEnrichment(ctx context.Context, personID string) (*enrichModel.EnrichmentRecord, error) {
	return nil, nil
}
func (s *fakeStore) PutEnrichment(ctx context.Context, rec *enrichModel.EnrichmentRecord) error {
	return nil
}

// fakeEnricher honours the per-build budget the way the real enrichment
// service does, so the budget invariant is observable at the engine level.
type fakeEnricher struct {
	mu    sync.Mutex
	calls int
	errs  map[string]error // person ID -> forced failure
	delay time.Duration
	log   *eventLog
}

func (f *fakeEnricher) Enrich(ctx context.Context, person *talentModel.Person, budget *enrichService.Budget) (*enrichModel.EnrichmentRecord, error) {
	if !budget.TryConsume() {
		return nil, enrichModel.ErrBudgetExceeded
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, enrichModel.ErrProviderError
		case <-time.After(f.delay):
		}
	}
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.log != nil {
		f.log.add("enrich:" + person.ID)
	}
	if err, ok := f.errs[person.ID]; ok {
		return nil, err
	}
	return &enrichModel.EnrichmentRecord{
		PersonID:  person.ID,
		Provider:  "pdl",
		FetchedAt: time.Now().UTC(),
		Payload:   enrichModel.EnrichmentPayload{Skills: person.Skills},
		Quality:   0.9,
	}, nil
}

// fakeReasoner returns a fixed aggregate per person with all four agents
// succeeding unless failedAgents says otherwise.
type fakeReasoner struct {
	mu           sync.Mutex
	calls        int
	aggregates   map[string]float64
	failedAgents map[reasoningModel.AgentName]bool
	log          *eventLog
}

func (f *fakeReasoner) Reason(ctx context.Context, candidate scoringModel.ScoredCandidate, role *talentModel.Role, company *talentModel.Company, enrichment *enrichModel.EnrichmentRecord) (*reasoningModel.ReasonedCandidate, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.log != nil {
		f.log.add("reason:" + candidate.Person.ID)
	}

	aggregate := f.aggregates[candidate.Person.ID]
	results := make(map[reasoningModel.AgentName]reasoningModel.AgentResult, 4)
	for _, name := range agentWarningOrder {
		if f.failedAgents[name] {
			results[name] = reasoningModel.AgentResult{Agent: name, Failed: true}
			continue
		}
		results[name] = reasoningModel.AgentResult{Agent: name, Score: aggregate, Rationale: "steady signal"}
	}

	return &reasoningModel.ReasonedCandidate{
		ScoredCandidate: candidate,
		AgentResults:    results,
		AggregateScore:  aggregate,
		Confidence:      0.8,
	}, nil
}

// fakeReasoningCache is a plain in-memory verdict cache.
type fakeReasoningCache struct {
	mu      sync.Mutex
	entries map[string]*reasoningModel.ReasonedCandidate
}

func newFakeReasoningCache() *fakeReasoningCache {
	return &fakeReasoningCache{entries: map[string]*reasoningModel.ReasonedCandidate{}}
}

func (c *fakeReasoningCache) Lookup(ctx context.Context, personID, roleID string) (*reasoningModel.ReasonedCandidate, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rc, ok := c.entries[personID+"|"+roleID]
	if !ok {
		return nil, false, nil
	}
	cp := *rc
	return &cp, true, nil
}

func (c *fakeReasoningCache) Store(ctx context.Context, personID, roleID string, rc *reasoningModel.ReasonedCandidate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[personID+"|"+roleID] = rc
	return nil
}

type fakeResearcher struct {
	enabled bool
	log     *eventLog
}

func (f *fakeResearcher) Enabled() bool { return f.enabled }

func (f *fakeResearcher) Research(ctx context.Context, person *talentModel.Person, role *talentModel.Role) ([]researchModel.Highlight, error) {
	if f.log != nil {
		f.log.add("research:" + person.ID)
	}
	return []researchModel.Highlight{{Type: researchModel.HighlightGitHub, Description: "active OSS contributor"}}, nil
}

// fakeShortlist mimics the shortlist service's TTL stamping and lease
// semantics in memory.
type fakeShortlist struct {
	mu         sync.Mutex
	entries    map[string]*shortlistModel.ShortlistCacheEntry
	failures   map[string]string
	leases     map[string]string
	ttl        time.Duration
	writeCalls int
}

func newFakeShortlist() *fakeShortlist {
	return &fakeShortlist{
		entries:  map[string]*shortlistModel.ShortlistCacheEntry{},
		failures: map[string]string{},
		leases:   map[string]string{},
		ttl:      time.Hour,
	}
}

func (s *fakeShortlist) key(companyID, roleID string) string { return companyID + "|" + roleID }

func (s *fakeShortlist) GetFresh(ctx context.Context, companyID, roleID string) (*shortlistModel.ShortlistCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[s.key(companyID, roleID)]
	if e == nil || e.Status != shortlistModel.StatusReady || !e.IsFresh(time.Now()) {
		return nil, nil
	}
	return e, nil
}

func (s *fakeShortlist) GetStale(ctx context.Context, companyID, roleID string) (*shortlistModel.ShortlistCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[s.key(companyID, roleID)]
	if e == nil || e.Status != shortlistModel.StatusReady {
		return nil, nil
	}
	return e, nil
}

func (s *fakeShortlist) GetFailed(ctx context.Context, companyID, roleID string) (*shortlistModel.ShortlistCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reason, ok := s.failures[s.key(companyID, roleID)]
	if !ok {
		return nil, nil
	}
	return &shortlistModel.ShortlistCacheEntry{
		CompanyID: companyID, RoleID: roleID,
		Status: shortlistModel.StatusFailed, FailureReason: reason,
	}, nil
}

func (s *fakeShortlist) Write(ctx context.Context, entry *shortlistModel.ShortlistCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	entry.GeneratedAt = now
	entry.ExpiresAt = now.Add(s.ttl)
	entry.Status = shortlistModel.StatusReady
	s.entries[s.key(entry.CompanyID, entry.RoleID)] = entry
	s.writeCalls++
	return nil
}

func (s *fakeShortlist) MarkFailed(ctx context.Context, companyID, roleID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[s.key(companyID, roleID)] = reason
	return nil
}

func (s *fakeShortlist) AcquireLease(ctx context.Context, companyID, roleID, holder string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(companyID, roleID)
	if _, held := s.leases[k]; held {
		return false, nil
	}
	s.leases[k] = holder
	return true, nil
}

func (s *fakeShortlist) RefreshLease(ctx context.Context, companyID, roleID, holder string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leases[s.key(companyID, roleID)] == holder, nil
}

func (s *fakeShortlist) ReleaseLease(ctx context.Context, companyID, roleID, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(companyID, roleID)
	if s.leases[k] == holder {
		delete(s.leases, k)
	}
	return nil
}

func (s *fakeShortlist) Status(ctx context.Context, companyID string, roles []*talentModel.Role) ([]shortlistService.RoleStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var out []shortlistService.RoleStatus
	for _, role := range roles {
		st := shortlistService.RoleStatus{RoleID: role.ID, Title: role.Title, Status: "missing"}
		_, held := s.leases[s.key(companyID, role.ID)]
		_, failed := s.failures[s.key(companyID, role.ID)]
		e := s.entries[s.key(companyID, role.ID)]
		switch {
		case held:
			st.Status = "building"
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

// ── fixtures ─────────────────────────────────────────────────────────────────

const (
	companyID = "c-1"
	roleID    = "r-1"
)

func testFixtures() *fakeStore {
	zero := 0
	return &fakeStore{
		company: &talentModel.Company{ID: companyID, Name: "Acme"},
		roles: map[string]*talentModel.Role{
			roleID: {
				ID:                 roleID,
				Title:              "Backend Engineer",
				Company:            companyID,
				RequiredSkills:     []string{"python", "fastapi"},
				MinYearsExperience: &zero,
				Status:             talentModel.RoleStatusOpen,
			},
		},
		people: []*talentModel.Person{
			{ID: "p-a", Name: "A", Skills: []string{"python", "fastapi"}},
			{ID: "p-b", Name: "B", Skills: []string{"python"}},
			{ID: "p-d", Name: "D", Skills: []string{"go"}},
		},
	}
}

type testDeps struct {
	store     *fakeStore
	enricher  *fakeEnricher
	reasoner  *fakeReasoner
	rcache    *fakeReasoningCache
	research  *fakeResearcher
	shortlist *fakeShortlist
}

func newTestEngine(t *testing.T, deps testDeps, mutate func(*Config)) (*Engine, testDeps) {
	t.Helper()
	if deps.store == nil {
		deps.store = testFixtures()
	}
	if deps.enricher == nil {
		deps.enricher = &fakeEnricher{}
	}
	if deps.reasoner == nil {
		deps.reasoner = &fakeReasoner{aggregates: map[string]float64{"p-a": 90, "p-b": 60}}
	}
	if deps.rcache == nil {
		deps.rcache = newFakeReasoningCache()
	}
	if deps.research == nil {
		deps.research = &fakeResearcher{}
	}
	if deps.shortlist == nil {
		deps.shortlist = newFakeShortlist()
	}

	log, err := logger.New("error", "console")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.EnrichmentSliceSize = 2
	cfg.MaxEnrichmentsPerBuild = 2
	cfg.WholeBuildDeadline = 5 * time.Second
	cfg.WaitPollInterval = 10 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	eng := New(deps.store, deps.enricher, deps.reasoner, deps.rcache, deps.research, deps.shortlist, log, cfg)
	return eng, deps
}

func curate(t *testing.T, eng *Engine, req curationModel.CurateRequest) *curationModel.ShortlistResponse {
	t.Helper()
	resp, err := eng.Curate(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func candidateIDs(resp *curationModel.ShortlistResponse) []string {
	ids := make([]string, 0, len(resp.Candidates))
	for i := range resp.Candidates {
		ids = append(ids, resp.Candidates[i].Person.ID)
	}
	return ids
}

// ── scenarios ────────────────────────────────────────────────────────────────

func TestCurate_HappyPath(t *testing.T) {
	eng, deps := newTestEngine(t, testDeps{}, nil)

	resp := curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 2})

	assert.Equal(t, []string{"p-a", "p-b"}, candidateIDs(resp), "limit truncates after the full ranking")
	assert.Equal(t, 90.0, resp.Candidates[0].MatchScore, "enriched candidates carry the aggregate reasoning score")
	assert.Equal(t, 60.0, resp.Candidates[1].MatchScore)
	assert.False(t, resp.FromCache)
	assert.False(t, resp.Degraded)
	assert.Empty(t, resp.Warnings)
	assert.Equal(t, shortlistModel.ConfidenceHigh, resp.DecisionConfidence)
	assert.Equal(t, 3, resp.Summary.TotalSearched)
	assert.Equal(t, 2, resp.Summary.EnrichedCount)
	assert.Equal(t, 2, deps.enricher.calls)
	assert.Equal(t, 2, deps.reasoner.calls, "every enriched candidate is reasoned about")
}

func TestCurate_TailKeepsRuleScore(t *testing.T) {
	eng, _ := newTestEngine(t, testDeps{}, nil)

	resp := curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 10})

	require.Len(t, resp.Candidates, 3)
	assert.Equal(t, "p-d", resp.Candidates[2].Person.ID)
	assert.Equal(t, []string{"manual"}, resp.Candidates[2].EnrichmentSources, "tail candidates never consulted a provider")
	assert.Empty(t, resp.Candidates[2].ReasoningBreakdown)
}

func TestCurate_CacheHit_NoUpstreamCalls(t *testing.T) {
	eng, deps := newTestEngine(t, testDeps{}, nil)

	first := curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 2})
	require.False(t, first.FromCache)

	enrichCalls, reasonCalls, listCalls := deps.enricher.calls, deps.reasoner.calls, deps.store.listPeopleCalls

	second := curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 2})
	assert.True(t, second.FromCache)
	assert.Equal(t, candidateIDs(first), candidateIDs(second))
	assert.Equal(t, enrichCalls, deps.enricher.calls, "cache hit must not enrich")
	assert.Equal(t, reasonCalls, deps.reasoner.calls, "cache hit must not reason")
	assert.Equal(t, listCalls, deps.store.listPeopleCalls, "cache hit must not touch the talent store")
}

func TestCurate_EnrichmentPartialFailure(t *testing.T) {
	enricher := &fakeEnricher{errs: map[string]error{"p-b": enrichModel.ErrProviderError}}
	eng, _ := newTestEngine(t, testDeps{enricher: enricher}, nil)

	resp := curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 2})

	assert.True(t, resp.Degraded)
	assert.Contains(t, resp.Warnings, "enrichment: 1 failure")
	assert.Equal(t, shortlistModel.ConfidenceMedium, resp.DecisionConfidence)

	require.Equal(t, "p-b", resp.Candidates[1].Person.ID)
	assert.Equal(t, 60.0, resp.Candidates[1].MatchScore, "reasoning proceeds on the un-enriched record")
	assert.InDelta(t, 0.6, resp.Candidates[1].Confidence, 1e-9, "confidence reduced for the failed enrichment")
	assert.InDelta(t, 0.8, resp.Candidates[0].Confidence, 1e-9)
	assert.Equal(t, 1, resp.Summary.EnrichedCount)
}

func TestCurate_ReasoningAgentFailureWarning(t *testing.T) {
	reasoner := &fakeReasoner{
		aggregates:   map[string]float64{"p-a": 80, "p-b": 55},
		failedAgents: map[reasoningModel.AgentName]bool{reasoningModel.AgentTiming: true},
	}
	eng, _ := newTestEngine(t, testDeps{reasoner: reasoner}, nil)

	resp := curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 2})

	assert.Contains(t, resp.Warnings, "reasoning: timing agent unavailable")
	assert.True(t, resp.Degraded)
	assert.Equal(t, shortlistModel.ConfidenceMedium, resp.DecisionConfidence)
	for _, a := range resp.Candidates[0].ReasoningBreakdown {
		assert.NotEqual(t, "timing", a.Agent, "failed agents are omitted from the breakdown")
	}
}

func TestCurate_SingleFlight(t *testing.T) {
	enricher := &fakeEnricher{delay: 50 * time.Millisecond}
	eng, deps := newTestEngine(t, testDeps{enricher: enricher}, nil)

	const n = 10
	responses := make([]*curationModel.ShortlistResponse, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			responses[i], errs[i] = eng.Curate(context.Background(), curationModel.CurateRequest{
				CompanyID: companyID, RoleID: roleID, Limit: 2, ForceRefresh: true,
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}
	assert.Equal(t, 1, deps.store.listPeopleCalls, "exactly one build runs")
	assert.Equal(t, 1, deps.shortlist.writeCalls)
	for i := 1; i < n; i++ {
		assert.True(t, reflect.DeepEqual(responses[0], responses[i]), "all concurrent callers observe the same result")
	}
}

func TestCurate_StaleOnError_Deadline(t *testing.T) {
	store := testFixtures()
	store.listDelay = time.Second

	shortlist := newFakeShortlist()
	expired := &shortlistModel.ShortlistCacheEntry{
		CompanyID: companyID,
		RoleID:    roleID,
		Status:    shortlistModel.StatusReady,
		Candidates: []shortlistModel.CuratedCandidate{
			{Person: &talentModel.Person{ID: "p-a", Name: "A"}, MatchScore: 88},
		},
		GeneratedAt: time.Now().Add(-10 * 24 * time.Hour),
		ExpiresAt:   time.Now().Add(-3 * 24 * time.Hour),
	}
	shortlist.entries[shortlist.key(companyID, roleID)] = expired

	eng, _ := newTestEngine(t, testDeps{store: store, shortlist: shortlist}, func(cfg *Config) {
		cfg.WholeBuildDeadline = 50 * time.Millisecond
	})

	resp, err := eng.Curate(context.Background(), curationModel.CurateRequest{
		CompanyID: companyID, RoleID: roleID, Limit: 5, ForceRefresh: true,
	})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	assert.Equal(t, []string{"build timed out; serving cached result"}, resp.Warnings)
	assert.Equal(t, shortlistModel.ConfidenceLow, resp.DecisionConfidence)
	assert.Equal(t, []string{"p-a"}, candidateIDs(resp))

	failed, err := shortlist.GetFailed(context.Background(), companyID, roleID)
	require.NoError(t, err)
	require.NotNil(t, failed, "the failure is marked so waiters observe the same outcome")
}

func TestCurate_StaleOnError_DisabledPerRequest(t *testing.T) {
	store := testFixtures()
	store.listDelay = time.Second

	shortlist := newFakeShortlist()
	shortlist.entries[shortlist.key(companyID, roleID)] = &shortlistModel.ShortlistCacheEntry{
		CompanyID: companyID, RoleID: roleID, Status: shortlistModel.StatusReady,
		ExpiresAt: time.Now().Add(-time.Hour),
	}

	eng, _ := newTestEngine(t, testDeps{store: store, shortlist: shortlist}, func(cfg *Config) {
		cfg.WholeBuildDeadline = 50 * time.Millisecond
	})

	_, err := eng.Curate(context.Background(), curationModel.CurateRequest{
		CompanyID: companyID, RoleID: roleID, ForceRefresh: true, DisableStaleOnError: true,
	})
	require.ErrorIs(t, err, curationModel.ErrDeadline)
}

// ── universal properties ─────────────────────────────────────────────────────

func TestCurate_Determinism(t *testing.T) {
	eng, _ := newTestEngine(t, testDeps{}, nil)

	first := curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 3, ForceRefresh: true})
	second := curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 3, ForceRefresh: true})

	assert.Equal(t, candidateIDs(first), candidateIDs(second))
	for i := range first.Candidates {
		assert.Equal(t, first.Candidates[i].MatchScore, second.Candidates[i].MatchScore)
		assert.Equal(t, first.Candidates[i].Context, second.Candidates[i].Context)
	}
}

func TestCurate_EnrichmentBudgetInvariant(t *testing.T) {
	enricher := &fakeEnricher{}
	eng, deps := newTestEngine(t, testDeps{enricher: enricher}, func(cfg *Config) {
		cfg.EnrichmentSliceSize = 3
		cfg.MaxEnrichmentsPerBuild = 2
	})

	resp := curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 3})

	assert.LessOrEqual(t, deps.enricher.calls, 2, "provider calls never exceed max_enrichments_per_build")
	assert.Contains(t, resp.Warnings, "enrichment: budget exhausted, 1 skipped")
	assert.True(t, resp.Degraded)
}

func TestCurate_StageOrderingInvariant(t *testing.T) {
	log := &eventLog{}
	enricher := &fakeEnricher{log: log}
	reasoner := &fakeReasoner{aggregates: map[string]float64{"p-a": 90, "p-b": 60}, log: log}
	research := &fakeResearcher{enabled: true, log: log}
	eng, _ := newTestEngine(t, testDeps{enricher: enricher, reasoner: reasoner, research: research}, nil)

	curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 3})

	events := log.snapshot()
	lastEnrich, firstReason, lastReason, firstResearch := -1, -1, -1, -1
	for i, ev := range events {
		switch ev[:2] {
		case "en":
			lastEnrich = i
		case "re":
			if ev[:6] == "reason" {
				if firstReason == -1 {
					firstReason = i
				}
				lastReason = i
			} else {
				if firstResearch == -1 {
					firstResearch = i
				}
			}
		}
	}
	require.GreaterOrEqual(t, lastEnrich, 0)
	require.GreaterOrEqual(t, firstReason, 0)
	require.GreaterOrEqual(t, firstResearch, 0)
	assert.Less(t, lastEnrich, firstReason, "no reasoning before every enrichment settled")
	assert.Less(t, lastReason, firstResearch, "no research before every reasoning pass completed")
}

func TestCurate_LimitClamping(t *testing.T) {
	eng, _ := newTestEngine(t, testDeps{}, nil)

	resp := curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 1})
	assert.Len(t, resp.Candidates, 1)

	resp = curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 500})
	assert.Len(t, resp.Candidates, 3, "a clamped limit larger than the pool returns everything")
}

func TestCurate_RoleNotFound(t *testing.T) {
	eng, _ := newTestEngine(t, testDeps{}, nil)

	_, err := eng.Curate(context.Background(), curationModel.CurateRequest{CompanyID: companyID, RoleID: "nope"})
	require.ErrorIs(t, err, talentModel.ErrRoleNotFound)
}

func TestCurate_WaiterGetsOtherHoldersResult(t *testing.T) {
	shortlist := newFakeShortlist()
	shortlist.leases[shortlist.key(companyID, roleID)] = "other-holder"
	eng, _ := newTestEngine(t, testDeps{shortlist: shortlist}, nil)

	type outcome struct {
		resp *curationModel.ShortlistResponse
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := eng.Curate(context.Background(), curationModel.CurateRequest{
			CompanyID: companyID, RoleID: roleID, Limit: 5, ForceRefresh: true,
		})
		done <- outcome{resp: resp, err: err}
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, shortlist.Write(context.Background(), &shortlistModel.ShortlistCacheEntry{
		CompanyID: companyID, RoleID: roleID,
		Candidates: []shortlistModel.CuratedCandidate{
			{Person: &talentModel.Person{ID: "p-x"}, MatchScore: 42},
		},
		DecisionConfidence: shortlistModel.ConfidenceHigh,
	}))

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, []string{"p-x"}, candidateIDs(res.resp), "the waiter returns the other holder's shortlist")
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never observed the other holder's build")
	}
}

func TestCurate_ReasoningCacheHitSkipsEnsemble(t *testing.T) {
	rcache := newFakeReasoningCache()
	eng, deps := newTestEngine(t, testDeps{rcache: rcache}, nil)

	curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 2})
	firstCalls := deps.reasoner.calls

	resp := curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 2, ForceRefresh: true})
	assert.Equal(t, firstCalls, deps.reasoner.calls, "cached verdicts skip the ensemble within the window")
	assert.Equal(t, 90.0, resp.Candidates[0].MatchScore)
}

func TestCacheStatus(t *testing.T) {
	eng, _ := newTestEngine(t, testDeps{}, nil)

	statuses, err := eng.CacheStatus(context.Background(), companyID)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "missing", statuses[0].Status)

	curate(t, eng, curationModel.CurateRequest{CompanyID: companyID, RoleID: roleID, Limit: 2})

	statuses, err = eng.CacheStatus(context.Background(), companyID)
	require.NoError(t, err)
	assert.Equal(t, "ready", statuses[0].Status)
}

func TestCacheStatus_CompanyNotFound(t *testing.T) {
	eng, _ := newTestEngine(t, testDeps{}, nil)

	_, err := eng.CacheStatus(context.Background(), "nope")
	require.ErrorIs(t, err, talentModel.ErrCompanyNotFound)
}

func TestResponseFromEntry_DoesNotMutateEntry(t *testing.T) {
	entry := &shortlistModel.ShortlistCacheEntry{
		Candidates: []shortlistModel.CuratedCandidate{
			{Person: &talentModel.Person{ID: "1"}},
			{Person: &talentModel.Person{ID: "2"}},
			{Person: &talentModel.Person{ID: "3"}},
		},
	}
	resp := responseFromEntry(entry, 2, true)
	assert.Len(t, resp.Candidates, 2)
	assert.Len(t, entry.Candidates, 3)
	assert.True(t, resp.FromCache)
}

func TestBuildFailureError_PreservesDeadline(t *testing.T) {
	err := buildFailureError(curationModel.ErrDeadline.Error())
	assert.ErrorIs(t, err, curationModel.ErrDeadline)

	err = buildFailureError("enrichment provider melted")
	assert.ErrorIs(t, err, curationModel.ErrBuildFailed)
	assert.Contains(t, err.Error(), "enrichment provider melted")
}
