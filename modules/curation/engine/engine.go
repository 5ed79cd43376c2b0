// Package engine implements the Curation Engine: the per-build
// coordinator that ranks, slices, enriches, reasons, researches, builds
// context and persists, with single-flight guarantees per (company,
// role) fingerprint and stale-on-error fallback.
//
// One coordinator goroutine owns a build end to end; each expensive
// stage fans out with a bounded errgroup and merges back into the rule
// ranker's canonical order before the next stage begins. In-process
// concurrent curate calls collapse through singleflight before touching
// the Redis lease; the lease is what holds the single-flight property
// across processes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	httpPlatform "github.com/talentcurate/pipeline/internal/platform/http"
	"github.com/talentcurate/pipeline/internal/platform/logger"
	"github.com/talentcurate/pipeline/internal/platform/observability"
	contextBuilder "github.com/talentcurate/pipeline/modules/context"
	curationModel "github.com/talentcurate/pipeline/modules/curation/model"
	enrichModel "github.com/talentcurate/pipeline/modules/enrichment/model"
	enrichService "github.com/talentcurate/pipeline/modules/enrichment/service"
	reasoningModel "github.com/talentcurate/pipeline/modules/reasoning/model"
	researchModel "github.com/talentcurate/pipeline/modules/research/model"
	"github.com/talentcurate/pipeline/modules/scoring"
	scoringModel "github.com/talentcurate/pipeline/modules/scoring/model"
	shortlistModel "github.com/talentcurate/pipeline/modules/shortlist/model"
	shortlistService "github.com/talentcurate/pipeline/modules/shortlist/service"
	"github.com/talentcurate/pipeline/modules/talent/ports"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
)

// enricher is the Enrichment Client surface the engine drives.
type enricher interface {
	Enrich(ctx context.Context, person *talentModel.Person, budget *enrichService.Budget) (*enrichModel.EnrichmentRecord, error)
}

// reasoner is the Reasoning Ensemble surface the engine drives.
type reasoner interface {
	Reason(ctx context.Context, candidate scoringModel.ScoredCandidate, role *talentModel.Role, company *talentModel.Company, enrichment *enrichModel.EnrichmentRecord) (*reasoningModel.ReasonedCandidate, error)
}

// reasoningCache is the hour-window verdict cache.
type reasoningCache interface {
	Lookup(ctx context.Context, personID, roleID string) (*reasoningModel.ReasonedCandidate, bool, error)
	Store(ctx context.Context, personID, roleID string, rc *reasoningModel.ReasonedCandidate) error
}

// researcher is the optional Research Client surface.
type researcher interface {
	Enabled() bool
	Research(ctx context.Context, person *talentModel.Person, role *talentModel.Role) ([]researchModel.Highlight, error)
}

// shortlistCache is the Shortlist Cache surface.
type shortlistCache interface {
	GetFresh(ctx context.Context, companyID, roleID string) (*shortlistModel.ShortlistCacheEntry, error)
	GetStale(ctx context.Context, companyID, roleID string) (*shortlistModel.ShortlistCacheEntry, error)
	GetFailed(ctx context.Context, companyID, roleID string) (*shortlistModel.ShortlistCacheEntry, error)
	Write(ctx context.Context, entry *shortlistModel.ShortlistCacheEntry) error
	MarkFailed(ctx context.Context, companyID, roleID, reason string) error
	AcquireLease(ctx context.Context, companyID, roleID, holder string) (bool, error)
	RefreshLease(ctx context.Context, companyID, roleID, holder string) (bool, error)
	ReleaseLease(ctx context.Context, companyID, roleID, holder string) error
	Status(ctx context.Context, companyID string, roles []*talentModel.Role) ([]shortlistService.RoleStatus, error)
}

// Config tunes the engine.
type Config struct {
	EnrichmentSliceSize    int
	MaxEnrichmentsPerBuild int
	ResearchSliceSize      int
	MinCandidatesToReason  int

	DefaultLimit int
	MinLimit     int
	MaxLimit     int

	WholeBuildDeadline   time.Duration
	LeaseRefreshInterval time.Duration
	StaleOnErrorDefault  bool

	// StageConcurrency bounds the fan-out within the enrichment,
	// reasoning and research stages.
	StageConcurrency int

	// WaitPollInterval is how often a lease-blocked waiter re-reads the
	// cache for the other holder's result.
	WaitPollInterval time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		EnrichmentSliceSize:    5,
		MaxEnrichmentsPerBuild: 5,
		ResearchSliceSize:      5,
		MinCandidatesToReason:  1,
		DefaultLimit:           15,
		MinLimit:               1,
		MaxLimit:               50,
		WholeBuildDeadline:     5 * time.Minute,
		LeaseRefreshInterval:   30 * time.Second,
		StaleOnErrorDefault:    true,
		StageConcurrency:       5,
		WaitPollInterval:       250 * time.Millisecond,
	}
}

// Engine orchestrates the curation pipeline.
type Engine struct {
	store     ports.Store
	enricher  enricher
	reasoner  reasoner
	rcache    reasoningCache
	research  researcher
	shortlist shortlistCache
	log       *logger.Logger
	cfg       Config

	// sf collapses concurrent curate calls for the same fingerprint into
	// one in-flight build before they reach the Redis lease.
	sf singleflight.Group
}

// New creates an Engine.
func New(store ports.Store, enr enricher, rsn reasoner, rcache reasoningCache, rsch researcher, sl shortlistCache, log *logger.Logger, cfg Config) *Engine {
	if cfg.EnrichmentSliceSize <= 0 {
		cfg.EnrichmentSliceSize = 5
	}
	if cfg.MaxEnrichmentsPerBuild <= 0 {
		cfg.MaxEnrichmentsPerBuild = cfg.EnrichmentSliceSize
	}
	if cfg.ResearchSliceSize <= 0 {
		cfg.ResearchSliceSize = 5
	}
	if cfg.MinCandidatesToReason <= 0 {
		cfg.MinCandidatesToReason = 1
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 15
	}
	if cfg.MinLimit <= 0 {
		cfg.MinLimit = 1
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 50
	}
	if cfg.WholeBuildDeadline <= 0 {
		cfg.WholeBuildDeadline = 5 * time.Minute
	}
	if cfg.LeaseRefreshInterval <= 0 {
		cfg.LeaseRefreshInterval = 30 * time.Second
	}
	if cfg.StageConcurrency <= 0 {
		cfg.StageConcurrency = 5
	}
	if cfg.WaitPollInterval <= 0 {
		cfg.WaitPollInterval = 250 * time.Millisecond
	}
	return &Engine{
		store:     store,
		enricher:  enr,
		reasoner:  rsn,
		rcache:    rcache,
		research:  rsch,
		shortlist: sl,
		log:       log,
		cfg:       cfg,
	}
}

func fingerprint(companyID, roleID string) string {
	return companyID + "|" + roleID
}

// Curate runs the curate operation: cache hit, or a single-flight
// build shared with every concurrent caller for the same fingerprint.
func (e *Engine) Curate(ctx context.Context, req curationModel.CurateRequest) (*curationModel.ShortlistResponse, error) {
	limit := httpPlatform.ClampLimit(req.Limit, e.cfg.DefaultLimit, e.cfg.MinLimit, e.cfg.MaxLimit)
	log := e.log.WithFingerprint(req.CompanyID, req.RoleID)

	if !req.ForceRefresh {
		entry, err := retryTransient(ctx, func(ctx context.Context) (*shortlistModel.ShortlistCacheEntry, error) {
			return e.shortlist.GetFresh(ctx, req.CompanyID, req.RoleID)
		})
		if err != nil {
			return nil, err
		}
		if entry != nil {
			log.Debug("shortlist cache hit")
			return responseFromEntry(entry, limit, true), nil
		}

		// A failed entry still in its back-off window means a recent build
		// is known-broken: waiters observe the same outcome rather than
		// re-triggering it.
		failed, err := e.shortlist.GetFailed(ctx, req.CompanyID, req.RoleID)
		if err != nil {
			return nil, err
		}
		if failed != nil {
			return e.staleOrError(ctx, req, limit, buildFailureError(failed.FailureReason))
		}
	}

	ch := e.sf.DoChan(fingerprint(req.CompanyID, req.RoleID), func() (interface{}, error) {
		return e.buildOrWait(req)
	})

	select {
	case <-ctx.Done():
		// A cancelled curate detaches; the underlying build keeps running
		// for the other waiters.
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return e.staleOrError(ctx, req, limit, res.Err)
		}
		entry := res.Val.(*shortlistModel.ShortlistCacheEntry)
		return responseFromEntry(entry, limit, false), nil
	}
}

// CacheStatus reports each of the company's roles' cache state.
func (e *Engine) CacheStatus(ctx context.Context, companyID string) ([]shortlistService.RoleStatus, error) {
	if _, err := e.store.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}
	roles, err := e.store.ListRoles(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return e.shortlist.Status(ctx, companyID, roles)
}

// buildOrWait acquires the build lease and runs the pipeline, or waits on
// the current holder's outcome. Detached from any caller's context: a
// build is cancellable only by lease expiry or the whole-build deadline.
func (e *Engine) buildOrWait(req curationModel.CurateRequest) (*shortlistModel.ShortlistCacheEntry, error) {
	buildCtx, cancel := context.WithTimeout(context.Background(), e.cfg.WholeBuildDeadline)
	defer cancel()

	holder := uuid.New().String()
	log := e.log.WithFingerprint(req.CompanyID, req.RoleID)

	acquired, err := retryTransient(buildCtx, func(ctx context.Context) (bool, error) {
		return e.shortlist.AcquireLease(ctx, req.CompanyID, req.RoleID, holder)
	})
	if err != nil {
		return nil, err
	}
	if !acquired {
		log.Info("build lease held elsewhere, waiting")
		return e.waitForOther(buildCtx, req)
	}

	defer func() {
		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer releaseCancel()
		if err := e.shortlist.ReleaseLease(releaseCtx, req.CompanyID, req.RoleID, holder); err != nil {
			log.Warn("failed to release build lease", zap.Error(err))
		}
	}()

	// Refresh the lease every interval while the build progresses.
	// Losing the lease means another holder reclaimed it after TTL expiry;
	// this build is abandoned.
	stopRefresh := make(chan struct{})
	defer close(stopRefresh)
	go func() {
		ticker := time.NewTicker(e.cfg.LeaseRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopRefresh:
				return
			case <-buildCtx.Done():
				return
			case <-ticker.C:
				still, err := e.shortlist.RefreshLease(buildCtx, req.CompanyID, req.RoleID, holder)
				if err == nil && !still {
					log.Warn("build lease lost, abandoning build")
					cancel()
					return
				}
			}
		}
	}()

	entry, err := e.build(buildCtx, req, log)
	if err != nil {
		if errors.Is(err, talentModel.ErrRoleNotFound) || errors.Is(err, talentModel.ErrCompanyNotFound) {
			// NotFound is the caller's mistake, not a build failure; nothing
			// to mark in the cache.
			return nil, err
		}
		if buildCtx.Err() == context.DeadlineExceeded {
			err = curationModel.ErrDeadline
		}
		log.Error("build failed", zap.Error(err))
		observability.CaptureBuildFailure(buildCtx, req.CompanyID, req.RoleID, "build", err)

		markCtx, markCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer markCancel()
		if markErr := e.shortlist.MarkFailed(markCtx, req.CompanyID, req.RoleID, err.Error()); markErr != nil {
			log.Warn("failed to mark build failed", zap.Error(markErr))
		}
		return nil, err
	}

	if err := retryTransientErr(buildCtx, func(ctx context.Context) error {
		return e.shortlist.Write(ctx, entry)
	}); err != nil {
		log.Error("failed to persist shortlist", zap.Error(err))
		observability.CaptureBuildFailure(buildCtx, req.CompanyID, req.RoleID, "persist", err)
		return nil, err
	}

	log.Info("build complete",
		zap.Int("total_searched", entry.Summary.TotalSearched),
		zap.Int("enriched", entry.Summary.EnrichedCount),
		zap.Int("warnings", len(entry.Warnings)),
	)
	return entry, nil
}

// waitForOther polls the cache until the current lease holder's build
// lands (ready or failed), propagating whichever outcome it observes.
func (e *Engine) waitForOther(ctx context.Context, req curationModel.CurateRequest) (*shortlistModel.ShortlistCacheEntry, error) {
	ticker := time.NewTicker(e.cfg.WaitPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, curationModel.ErrDeadline
		case <-ticker.C:
			entry, err := e.shortlist.GetFresh(ctx, req.CompanyID, req.RoleID)
			if err == nil && entry != nil {
				return entry, nil
			}
			failed, err := e.shortlist.GetFailed(ctx, req.CompanyID, req.RoleID)
			if err == nil && failed != nil {
				return nil, buildFailureError(failed.FailureReason)
			}
		}
	}
}

// staleOrError applies the stale-on-error policy: after a failed
// build, an expired ready entry MAY be served tagged degraded with the
// failure named in warnings. On by default, disabled per-request.
func (e *Engine) staleOrError(ctx context.Context, req curationModel.CurateRequest, limit int, buildErr error) (*curationModel.ShortlistResponse, error) {
	if !e.cfg.StaleOnErrorDefault || req.DisableStaleOnError {
		return nil, buildErr
	}
	if errors.Is(buildErr, talentModel.ErrRoleNotFound) || errors.Is(buildErr, talentModel.ErrCompanyNotFound) {
		// A vanished role or company invalidates any prior entry.
		return nil, buildErr
	}
	stale, err := e.shortlist.GetStale(ctx, req.CompanyID, req.RoleID)
	if err != nil || stale == nil {
		return nil, buildErr
	}

	warning := "build failed; serving cached result"
	if errors.Is(buildErr, curationModel.ErrDeadline) {
		warning = "build timed out; serving cached result"
	}

	resp := responseFromEntry(stale, limit, true)
	resp.Degraded = true
	resp.Warnings = []string{warning}
	resp.DecisionConfidence = shortlistModel.ConfidenceLow
	return resp, nil
}

// buildFailureError wraps a persisted failure reason, preserving the
// Deadline classification so stale-on-error picks the right warning.
func buildFailureError(reason string) error {
	if reason == curationModel.ErrDeadline.Error() {
		return curationModel.ErrDeadline
	}
	return fmt.Errorf("%w: %s", curationModel.ErrBuildFailed, reason)
}

// warningsCollector accumulates per-stage warnings in a deterministic
// order regardless of fan-out interleaving.
type warningsCollector struct {
	mu sync.Mutex

	enrichFailures  int
	enrichSkipped   int
	failedAgents    map[reasoningModel.AgentName]bool
	reasoningFell   bool
	reasoningSkip   bool
	researchFailures int
}

func newWarningsCollector() *warningsCollector {
	return &warningsCollector{failedAgents: make(map[reasoningModel.AgentName]bool)}
}

var agentWarningOrder = []reasoningModel.AgentName{
	reasoningModel.AgentSkills,
	reasoningModel.AgentTrajectory,
	reasoningModel.AgentFit,
	reasoningModel.AgentTiming,
}

func (w *warningsCollector) list() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []string
	if w.enrichFailures == 1 {
		out = append(out, "enrichment: 1 failure")
	} else if w.enrichFailures > 1 {
		out = append(out, fmt.Sprintf("enrichment: %d failures", w.enrichFailures))
	}
	if w.enrichSkipped > 0 {
		out = append(out, fmt.Sprintf("enrichment: budget exhausted, %d skipped", w.enrichSkipped))
	}
	for _, name := range agentWarningOrder {
		if w.failedAgents[name] {
			out = append(out, fmt.Sprintf("reasoning: %s agent unavailable", name))
		}
	}
	if w.reasoningSkip {
		out = append(out, "reasoning: skipped, too few candidates")
	} else if w.reasoningFell {
		out = append(out, "reasoning: fell back to rule scoring")
	}
	if w.researchFailures == 1 {
		out = append(out, "research: 1 failure")
	} else if w.researchFailures > 1 {
		out = append(out, fmt.Sprintf("research: %d failures", w.researchFailures))
	}
	return out
}

func (w *warningsCollector) lowConfidence() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reasoningSkip || w.reasoningFell
}

// build runs the pipeline stages in their fixed order: load → rank →
// slice → enrich → reason → research → context → assemble. The
// caller persists the result.
func (e *Engine) build(ctx context.Context, req curationModel.CurateRequest, log *logger.Logger) (*shortlistModel.ShortlistCacheEntry, error) {
	// Load.
	role, err := retryTransient(ctx, func(ctx context.Context) (*talentModel.Role, error) {
		return e.store.GetRole(ctx, req.RoleID)
	})
	if err != nil {
		return nil, err
	}
	company, err := retryTransient(ctx, func(ctx context.Context) (*talentModel.Company, error) {
		return e.store.GetCompany(ctx, req.CompanyID)
	})
	if err != nil {
		return nil, err
	}
	role.NormalizeSkills()
	company.NormalizeSkills()

	people, err := retryTransient(ctx, func(ctx context.Context) ([]*talentModel.Person, error) {
		return e.store.ListPeople(ctx, req.CompanyID)
	})
	if err != nil {
		return nil, err
	}

	// Rank.
	scored := make([]scoringModel.ScoredCandidate, 0, len(people))
	for _, p := range people {
		p.NormalizeSkills()
		scored = append(scored, scoring.Score(p, role, company))
	}
	scoring.Rank(scored)

	// Slice.
	sliceSize := e.cfg.EnrichmentSliceSize
	if sliceSize > len(scored) {
		sliceSize = len(scored)
	}
	slice := scored[:sliceSize]

	warnings := newWarningsCollector()

	// Enrich: bounded fan-out, merged back into canonical order.
	outcomes := e.enrichStage(ctx, slice, warnings, log)

	// Reason: every candidate that entered the enrichment slice is
	// reasoned about, enriched or not; enrichment must have fully
	// settled first — outcomes is complete before this line runs.
	var reasoned []*reasoningModel.ReasonedCandidate
	if len(slice) < e.cfg.MinCandidatesToReason {
		warnings.mu.Lock()
		warnings.reasoningSkip = true
		warnings.mu.Unlock()
		reasoned = make([]*reasoningModel.ReasonedCandidate, len(slice))
	} else {
		reasoned = e.reasonStage(ctx, req, slice, outcomes, role, company, warnings, log)
	}

	// Research: on the reasoning-ranked top slice, post-reasoning.
	highlights := e.researchStage(ctx, slice, reasoned, role, warnings, log)

	// Context + assemble.
	entry := e.assemble(req, people, slice, scored, outcomes, reasoned, highlights, role, company, warnings)
	return entry, nil
}

// enrichStage enriches the slice concurrently under the shared budget.
// Index i of the result corresponds to slice[i]; fan-out order never
// leaks into stage output.
func (e *Engine) enrichStage(ctx context.Context, slice []scoringModel.ScoredCandidate, warnings *warningsCollector, log *logger.Logger) []enrichModel.Outcome {
	outcomes := make([]enrichModel.Outcome, len(slice))
	budget := enrichService.NewBudget(e.cfg.MaxEnrichmentsPerBuild)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.StageConcurrency)
	for i := range slice {
		i := i
		g.Go(func() error {
			rec, err := e.enricher.Enrich(gctx, slice[i].Person, budget)
			switch {
			case err == nil && rec != nil:
				outcomes[i] = enrichModel.Outcome{Record: rec}
			case errors.Is(err, enrichModel.ErrNoMatch):
				outcomes[i] = enrichModel.Outcome{Miss: true}
			case errors.Is(err, enrichModel.ErrBudgetExceeded):
				outcomes[i] = enrichModel.Outcome{Err: err}
				warnings.mu.Lock()
				warnings.enrichSkipped++
				warnings.mu.Unlock()
			case err != nil:
				outcomes[i] = enrichModel.Outcome{Err: err}
				warnings.mu.Lock()
				warnings.enrichFailures++
				warnings.mu.Unlock()
			default:
				outcomes[i] = enrichModel.Outcome{Miss: true}
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// reasonStage runs the ensemble over the slice concurrently, consulting
// the reasoning cache first. A cache failure is treated as a miss;
// the verdict cache is an optimisation, never a correctness dependency.
func (e *Engine) reasonStage(ctx context.Context, req curationModel.CurateRequest, slice []scoringModel.ScoredCandidate, outcomes []enrichModel.Outcome, role *talentModel.Role, company *talentModel.Company, warnings *warningsCollector, log *logger.Logger) []*reasoningModel.ReasonedCandidate {
	reasoned := make([]*reasoningModel.ReasonedCandidate, len(slice))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.StageConcurrency)
	for i := range slice {
		i := i
		g.Go(func() error {
			personID := slice[i].Person.ID

			if cached, hit, err := e.rcache.Lookup(gctx, personID, req.RoleID); err == nil && hit {
				cached.ScoredCandidate = slice[i]
				reasoned[i] = cached
			} else {
				rc, err := e.reasoner.Reason(gctx, slice[i], role, company, outcomes[i].Record)
				if err != nil || rc == nil {
					warnings.mu.Lock()
					warnings.reasoningFell = true
					warnings.mu.Unlock()
					return nil
				}
				reasoned[i] = rc
				if err := e.rcache.Store(gctx, personID, req.RoleID, rc); err != nil {
					log.Debug("reasoning cache store failed", zap.Error(err))
				}
			}

			rc := reasoned[i]
			warnings.mu.Lock()
			for name, result := range rc.AgentResults {
				if result.Failed {
					warnings.failedAgents[name] = true
				}
			}
			if rc.Degraded {
				warnings.reasoningFell = true
			}
			warnings.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return reasoned
}

// researchStage researches the reasoning-ranked top slice. It runs only
// after reasonStage has completed for every candidate; the ranking that
// selects the research slice needs every aggregate score.
func (e *Engine) researchStage(ctx context.Context, slice []scoringModel.ScoredCandidate, reasoned []*reasoningModel.ReasonedCandidate, role *talentModel.Role, warnings *warningsCollector, log *logger.Logger) [][]researchModel.Highlight {
	highlights := make([][]researchModel.Highlight, len(slice))
	if e.research == nil || !e.research.Enabled() || len(slice) == 0 {
		return highlights
	}

	// Reasoning-ranked order: aggregate score descending, canonical rule
	// order (the slice's existing order) as the tie-break.
	indices := make([]int, len(slice))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return finalScore(slice[indices[a]], reasoned[indices[a]]) > finalScore(slice[indices[b]], reasoned[indices[b]])
	})
	if len(indices) > e.cfg.ResearchSliceSize {
		indices = indices[:e.cfg.ResearchSliceSize]
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.StageConcurrency)
	for _, idx := range indices {
		idx := idx
		g.Go(func() error {
			hs, err := e.research.Research(gctx, slice[idx].Person, role)
			if err != nil {
				warnings.mu.Lock()
				warnings.researchFailures++
				warnings.mu.Unlock()
				return nil
			}
			highlights[idx] = hs
			return nil
		})
	}
	_ = g.Wait()
	return highlights
}

// enrichmentMissPenalty is subtracted from a candidate's confidence when
// their enrichment attempt errored and reasoning proceeded on the
// un-enriched record.
const enrichmentMissPenalty = 0.2

// finalScore is the aggregate reasoning score when the ensemble returned
// a usable verdict, otherwise the rule score.
func finalScore(c scoringModel.ScoredCandidate, rc *reasoningModel.ReasonedCandidate) float64 {
	if rc != nil && !rc.Degraded {
		return rc.AggregateScore
	}
	return c.Score
}

// assemble builds the persisted entry: context per candidate, canonical
// final ordering, summary statistics and the response-level tags.
func (e *Engine) assemble(req curationModel.CurateRequest, people []*talentModel.Person, slice []scoringModel.ScoredCandidate, scored []scoringModel.ScoredCandidate, outcomes []enrichModel.Outcome, reasoned []*reasoningModel.ReasonedCandidate, highlights [][]researchModel.Highlight, role *talentModel.Role, company *talentModel.Company, warnings *warningsCollector) *shortlistModel.ShortlistCacheEntry {
	curated := make([]shortlistModel.CuratedCandidate, 0, len(scored))
	enrichedCount := 0

	for i := range scored {
		c := scored[i]

		var rc *reasoningModel.ReasonedCandidate
		var rec *enrichModel.EnrichmentRecord
		var hs []researchModel.Highlight
		var enrichErred bool
		if i < len(slice) {
			rc = reasoned[i]
			rec = outcomes[i].Record
			hs = highlights[i]
			enrichErred = outcomes[i].Err != nil
			if rec != nil {
				enrichedCount++
			}
		}

		rcForContext := rc
		if rcForContext == nil {
			rcForContext = &reasoningModel.ReasonedCandidate{
				ScoredCandidate: c,
				AggregateScore:  c.Score,
				Confidence:      c.Confidence,
				Degraded:        true,
			}
		}

		confidence := rcForContext.Confidence
		if enrichErred {
			confidence = math.Max(0, confidence-enrichmentMissPenalty)
		}

		ctxRecord := contextBuilder.Build(contextBuilder.Inputs{
			Reasoned:   rcForContext,
			Role:       role,
			Company:    company,
			Enrichment: rec,
			Highlights: hs,
		})

		curated = append(curated, shortlistModel.CuratedCandidate{
			Person:             c.Person,
			MatchScore:         finalScore(c, rc),
			Confidence:         confidence,
			DataCompleteness:   c.Person.Completeness(),
			EnrichmentSources:  ctxRecord.EnrichmentDetails.Sources,
			ReasoningBreakdown: breakdownFor(rc),
			Context:            ctxRecord,
		})
	}

	// Final canonical order: match score desc, completeness desc, stable
	// id asc — the same tie-breaking discipline the rule ranker uses.
	sort.SliceStable(curated, func(a, b int) bool {
		ca, cb := curated[a], curated[b]
		if ca.MatchScore != cb.MatchScore {
			return ca.MatchScore > cb.MatchScore
		}
		if ca.DataCompleteness != cb.DataCompleteness {
			return ca.DataCompleteness > cb.DataCompleteness
		}
		return ca.Person.ID < cb.Person.ID
	})

	var avg float64
	for i := range curated {
		avg += curated[i].MatchScore
	}
	if len(curated) > 0 {
		avg /= float64(len(curated))
	}

	warningList := warnings.list()
	confidence := shortlistModel.ConfidenceHigh
	switch {
	case warnings.lowConfidence():
		confidence = shortlistModel.ConfidenceLow
	case len(warningList) > 0:
		confidence = shortlistModel.ConfidenceMedium
	}

	return &shortlistModel.ShortlistCacheEntry{
		CompanyID:  req.CompanyID,
		RoleID:     req.RoleID,
		Candidates: curated,
		Summary: shortlistModel.Summary{
			TotalSearched: len(people),
			EnrichedCount: enrichedCount,
			AverageScore:  avg,
		},
		Degraded:           len(warningList) > 0,
		Warnings:           warningList,
		DecisionConfidence: confidence,
	}
}

// breakdownFor flattens the returning agents' verdicts in a fixed order.
func breakdownFor(rc *reasoningModel.ReasonedCandidate) []shortlistModel.AgentScore {
	if rc == nil {
		return nil
	}
	var out []shortlistModel.AgentScore
	for _, name := range agentWarningOrder {
		r, ok := rc.AgentResults[name]
		if !ok || r.Failed {
			continue
		}
		out = append(out, shortlistModel.AgentScore{
			Agent:     string(name),
			Score:     r.Score,
			Rationale: r.Rationale,
		})
	}
	return out
}

// responseFromEntry projects a cache entry onto the curate response,
// truncating to the caller's limit without mutating the shared entry.
func responseFromEntry(e *shortlistModel.ShortlistCacheEntry, limit int, fromCache bool) *curationModel.ShortlistResponse {
	candidates := e.Candidates
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return &curationModel.ShortlistResponse{
		Candidates:         candidates,
		Summary:            e.Summary,
		FromCache:          fromCache,
		Degraded:           e.Degraded,
		DecisionConfidence: e.DecisionConfidence,
		Warnings:           e.Warnings,
	}
}

// transientRetryBackoff is the single back-off before the one retry
// Transient failures get.
const transientRetryBackoff = 250 * time.Millisecond

func isTransient(err error) bool {
	return errors.Is(err, talentModel.ErrTransient) || errors.Is(err, shortlistModel.ErrTransient)
}

// retryTransient calls fn, retrying exactly once after a short back-off
// when the failure is Transient.
func retryTransient[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err == nil || !isTransient(err) {
		return v, err
	}
	select {
	case <-ctx.Done():
		return v, err
	case <-time.After(transientRetryBackoff):
	}
	return fn(ctx)
}

// retryTransientErr is retryTransient for error-only calls.
func retryTransientErr(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := retryTransient(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
