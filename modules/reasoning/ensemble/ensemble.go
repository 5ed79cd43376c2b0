// Package ensemble implements the Reasoning Ensemble: four
// single-responsibility LLM agents re-scoring the enriched top slice,
// aggregated under a deterministic, independently testable weighting
// scheme.
package ensemble

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/talentcurate/pipeline/internal/platform/breaker"
	"github.com/talentcurate/pipeline/internal/platform/ratelimit"
	"github.com/talentcurate/pipeline/modules/enrichment/model"
	reasoningClient "github.com/talentcurate/pipeline/modules/reasoning/client"
	reasoningModel "github.com/talentcurate/pipeline/modules/reasoning/model"
	"github.com/talentcurate/pipeline/modules/reasoning/prompts"
	scoringModel "github.com/talentcurate/pipeline/modules/scoring/model"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
	"golang.org/x/sync/errgroup"
)

// baseWeights are the agents' nominal weights before any redistribution.
// Their sum is exactly 1.
var baseWeights = map[reasoningModel.AgentName]float64{
	reasoningModel.AgentSkills:     0.40,
	reasoningModel.AgentTrajectory: 0.30,
	reasoningModel.AgentFit:        0.20,
	reasoningModel.AgentTiming:     0.10,
}

// messenger is the narrow surface of reasoningClient.Client this package
// depends on, so tests can substitute a fake without constructing an SDK
// client.
type messenger interface {
	CreateMessage(ctx context.Context, req reasoningClient.MessageRequest) (*reasoningClient.MessageResponse, error)
}

// Config configures the Ensemble's LLM calls.
type Config struct {
	Model       string
	MaxTokens   int64
	Temperature *float64
}

// DefaultConfig matches the model this pipeline budgets for by default.
func DefaultConfig() Config {
	return Config{Model: "claude-haiku-4-5-20251001", MaxTokens: 512}
}

// Ensemble runs the four reasoning agents over one candidate at a time.
type Ensemble struct {
	client  messenger
	prompts *prompts.Set
	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	timeout time.Duration
	cfg     Config
}

// New creates an Ensemble. promptSet's Version is the reasoning-version
// consumers should key their cache entries on.
func New(client messenger, promptSet *prompts.Set, limiter *ratelimit.Limiter, br *breaker.Breaker, perAgentTimeout time.Duration, cfg Config) *Ensemble {
	return &Ensemble{client: client, prompts: promptSet, limiter: limiter, breaker: br, timeout: perAgentTimeout, cfg: cfg}
}

// Version reports the reasoning-version this ensemble's loaded prompts
// correspond to.
func (e *Ensemble) Version() string { return e.prompts.Version }

// Reason runs all four agents concurrently against candidate and
// aggregates their verdicts under the weight-redistribution and
// confidence-degradation rules.
func (e *Ensemble) Reason(ctx context.Context, candidate scoringModel.ScoredCandidate, role *talentModel.Role, company *talentModel.Company, enrichment *model.EnrichmentRecord) (*reasoningModel.ReasonedCandidate, error) {
	vars := buildVars(candidate, role, company, enrichment)

	results := make(map[reasoningModel.AgentName]reasoningModel.AgentResult, len(e.prompts.Agents))
	g, gctx := errgroup.WithContext(ctx)

	type outcome struct {
		name   reasoningModel.AgentName
		result reasoningModel.AgentResult
	}
	out := make(chan outcome, len(e.prompts.Agents))

	for name, agent := range e.prompts.Agents {
		name, agent := name, agent
		g.Go(func() error {
			out <- outcome{name: name, result: e.runAgent(gctx, name, agent, vars)}
			return nil
		})
	}

	_ = g.Wait()
	close(out)
	for o := range out {
		results[o.name] = o.result
	}

	return aggregate(candidate, results), nil
}

// runAgent executes one agent call under the ensemble's rate limiter,
// circuit breaker, and per-agent timeout, translating any failure into a
// Failed AgentResult rather than propagating an error — one agent's
// failure must never abort the others.
func (e *Ensemble) runAgent(parentCtx context.Context, name reasoningModel.AgentName, agent *prompts.Agent, vars prompts.Vars) reasoningModel.AgentResult {
	if !e.limiter.Allow() {
		return reasoningModel.AgentResult{Agent: name, Failed: true}
	}

	callCtx, cancel := context.WithTimeout(parentCtx, e.timeout)
	defer cancel()

	userMsg, err := agent.Render(vars)
	if err != nil {
		return reasoningModel.AgentResult{Agent: name, Failed: true}
	}

	var resp *reasoningClient.MessageResponse
	execErr := e.breaker.Execute(callCtx, func(ctx context.Context) error {
		r, err := e.client.CreateMessage(ctx, reasoningClient.MessageRequest{
			Model:       e.cfg.Model,
			MaxTokens:   e.cfg.MaxTokens,
			System:      agent.System,
			UserMessage: userMsg,
			Temperature: e.cfg.Temperature,
		})
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if execErr != nil {
		return reasoningModel.AgentResult{Agent: name, Failed: true}
	}

	score, rationale, confidence, parseErr := parseVerdict(resp.Text)
	if parseErr != nil {
		return reasoningModel.AgentResult{Agent: name, Failed: true}
	}

	return reasoningModel.AgentResult{Agent: name, Score: score, Rationale: rationale, Confidence: confidence}
}

type verdict struct {
	Score      float64 `json:"score"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

// parseVerdict extracts the JSON verdict object from the model's reply,
// tolerating surrounding prose by locating the outermost braces.
func parseVerdict(text string) (float64, string, float64, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < 0 || end < start {
		return 0, "", 0, fmt.Errorf("ensemble: no JSON object in agent reply")
	}
	var v verdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return 0, "", 0, fmt.Errorf("ensemble: decode agent reply: %w", err)
	}
	if v.Score < 0 {
		v.Score = 0
	}
	if v.Score > 100 {
		v.Score = 100
	}
	return v.Score, v.Rationale, v.Confidence, nil
}

// aggregate implements the ensemble's aggregation, weight-redistribution,
// and confidence-degradation rules.
func aggregate(candidate scoringModel.ScoredCandidate, results map[reasoningModel.AgentName]reasoningModel.AgentResult) *reasoningModel.ReasonedCandidate {
	returning := 0
	for _, r := range results {
		if !r.Failed {
			returning++
		}
	}

	rc := &reasoningModel.ReasonedCandidate{
		ScoredCandidate: candidate,
		AgentResults:    results,
	}

	if returning < 2 {
		// Degraded: too few agents returned to trust an aggregate at all.
		rc.Degraded = true
		rc.AggregateScore = candidate.Score
		rc.Confidence = candidate.Confidence
		return rc
	}

	weight, sumWeight := redistributedWeights(results)

	var aggregate float64
	var confidenceSum float64
	var confidenceReports int
	for name, r := range results {
		if r.Failed {
			continue
		}
		aggregate += (weight[name] / sumWeight) * r.Score
		if r.Confidence > 0 {
			confidenceSum += r.Confidence
			confidenceReports++
		}
	}

	rc.AggregateScore = math.Round(aggregate)

	if confidenceReports > 0 {
		rc.Confidence = confidenceSum / float64(confidenceReports)
	} else {
		failed := len(results) - returning
		rc.Confidence = 0.8 - 0.2*float64(failed)
		if rc.Confidence < 0 {
			rc.Confidence = 0
		}
	}

	return rc
}

// redistributedWeights returns each returning agent's base weight and the
// sum of returning agents' base weights; a caller divides the former by
// the latter to get the renormalised weight.
func redistributedWeights(results map[reasoningModel.AgentName]reasoningModel.AgentResult) (map[reasoningModel.AgentName]float64, float64) {
	weight := make(map[reasoningModel.AgentName]float64, len(baseWeights))
	var sum float64
	for name, base := range baseWeights {
		r, ok := results[name]
		if !ok || r.Failed {
			continue
		}
		weight[name] = base
		sum += base
	}
	return weight, sum
}

func buildVars(candidate scoringModel.ScoredCandidate, role *talentModel.Role, company *talentModel.Company, enrichment *model.EnrichmentRecord) prompts.Vars {
	person := candidate.Person

	var experienceParts []string
	for _, e := range person.Experience {
		end := "present"
		if e.EndDate != nil {
			end = e.EndDate.Format("2006-01")
		}
		experienceParts = append(experienceParts, fmt.Sprintf("%s at %s (%s to %s)", e.Title, e.Company, e.StartDate.Format("2006-01"), end))
	}

	enrichmentSummary := "none"
	if enrichment != nil {
		enrichmentSummary = fmt.Sprintf("provider=%s quality=%.2f skills=%s", enrichment.Provider, enrichment.Quality, strings.Join(enrichment.Payload.Skills, ", "))
	}

	return prompts.Vars{
		CandidateName:     person.Name,
		RoleTitle:         role.Title,
		CompanyName:       company.Name,
		SkillsSummary:     strings.Join(person.Skills, ", "),
		ExperienceSummary: strings.Join(experienceParts, "; "),
		RuleScoreSummary:  fmt.Sprintf("matched=%v missing=%v", candidate.SkillMatch.Matched, candidate.SkillMatch.Missing),
		EnrichmentSummary: enrichmentSummary,
	}
}
