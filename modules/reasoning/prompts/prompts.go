// Package prompts loads the reasoning ensemble's versioned agent prompt
// templates from an embedded YAML file, so the prompt set ships with the
// binary and its hash can serve as the reasoning version.
package prompts

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"fmt"
	"sort"
	"text/template"

	reasoningModel "github.com/talentcurate/pipeline/modules/reasoning/model"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var raw []byte

// Agent is one agent's loaded, parsed prompt.
type Agent struct {
	Name         reasoningModel.AgentName
	System       string
	UserTemplate *template.Template
}

// Vars fills an agent's user_template.
type Vars struct {
	CandidateName     string
	RoleTitle         string
	CompanyName       string
	SkillsSummary     string
	ExperienceSummary string
	RuleScoreSummary  string
	EnrichmentSummary string
}

type fileFormat struct {
	Agents map[string]struct {
		System       string `yaml:"system"`
		UserTemplate string `yaml:"user_template"`
	} `yaml:"agents"`
}

// Set holds every agent's loaded prompt plus a deterministic version tag.
type Set struct {
	Agents  map[reasoningModel.AgentName]*Agent
	Version string
}

var agentOrder = []reasoningModel.AgentName{
	reasoningModel.AgentSkills,
	reasoningModel.AgentTrajectory,
	reasoningModel.AgentFit,
	reasoningModel.AgentTiming,
}

// Load parses the embedded prompts.yaml and compiles each agent's user
// template, deriving a reasoning version from the template bodies.
func Load() (*Set, error) {
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("prompts: parse embedded yaml: %w", err)
	}

	set := &Set{Agents: make(map[reasoningModel.AgentName]*Agent, len(agentOrder))}
	var bodies []string

	for _, name := range agentOrder {
		entry, ok := f.Agents[string(name)]
		if !ok {
			return nil, fmt.Errorf("prompts: missing agent %q in embedded yaml", name)
		}
		tmpl, err := template.New(string(name)).Parse(entry.UserTemplate)
		if err != nil {
			return nil, fmt.Errorf("prompts: parse template for agent %q: %w", name, err)
		}
		set.Agents[name] = &Agent{
			Name:         name,
			System:       entry.System,
			UserTemplate: tmpl,
		}
		bodies = append(bodies, entry.System+"\n"+entry.UserTemplate)
	}

	set.Version = reasoningVersion(bodies)
	return set, nil
}

// reasoningVersion derives a short, deterministic identifier for the
// currently loaded prompt set: the first 8 hex characters of a SHA-256
// over the concatenated, sorted prompt template bodies. Any edit to any
// agent's prompt changes the version, which invalidates the reasoning
// cache without requiring a manual bump.
func reasoningVersion(bodies []string) string {
	sorted := append([]string(nil), bodies...)
	sort.Strings(sorted)
	h := sha256.New()
	for _, b := range sorted {
		h.Write([]byte(b))
	}
	sum := h.Sum(nil)
	return fmt.Sprintf("%x", sum)[:8]
}

// Render executes the agent's user template against vars.
func (a *Agent) Render(vars Vars) (string, error) {
	var buf bytes.Buffer
	if err := a.UserTemplate.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("prompts: render agent %q: %w", a.Name, err)
	}
	return buf.String(), nil
}
