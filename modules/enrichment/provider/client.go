// Package provider is the HTTP client for the upstream bulk-enrichment
// provider ("pdl" in the Context Builder's provenance list): explicit
// timeout, x-api-key header, typed request/response structs, and
// 5xx/network failures folded into one sentinel error so the enrichment
// service can classify them.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talentcurate/pipeline/modules/enrichment/model"
)

// Config configures the Client.
type Config struct {
	APIKey  string
	BaseURL string // default: https://api.peopledatalabs.com/v5
	Timeout time.Duration
}

// Client matches candidates against the bulk-enrichment provider.
type Client struct {
	cfg    Config
	client *http.Client
}

// New creates a Client. An empty APIKey is allowed — the enrichment
// service decides whether to call at all.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.peopledatalabs.com/v5"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// MatchRequest is the candidate-matching input: by LinkedIn reference
// when present, else by (full name, current company).
type MatchRequest struct {
	LinkedInURL string
	FullName    string
	CurrentCo   string
}

type enrichRequest struct {
	LinkedInURL string `json:"linkedin_url,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	Company     string `json:"company,omitempty"`
}

type enrichResponse struct {
	Matched bool `json:"matched"`
	Data    struct {
		Skills     []string `json:"skills"`
		Experience []struct {
			Title     string     `json:"title"`
			Company   string     `json:"company"`
			StartDate *time.Time `json:"start_date"`
			EndDate   *time.Time `json:"end_date"`
		} `json:"experience"`
		Education []struct {
			Institution string     `json:"institution"`
			Degree      string     `json:"degree"`
			Field       string     `json:"field"`
			EndDate     *time.Time `json:"end_date"`
		} `json:"education"`
		Likelihood float64 `json:"likelihood"`
	} `json:"data"`
}

// Match calls the provider and returns the matched payload and a quality
// estimate in [0,1], model.ErrNoMatch if the provider matched nothing, or
// model.ErrProviderError on network failure / non-2xx status.
func (c *Client) Match(ctx context.Context, req MatchRequest) (model.EnrichmentPayload, float64, error) {
	body, err := json.Marshal(enrichRequest{
		LinkedInURL: req.LinkedInURL,
		FullName:    req.FullName,
		Company:     req.CurrentCo,
	})
	if err != nil {
		return model.EnrichmentPayload{}, 0, fmt.Errorf("%w: marshal request: %v", model.ErrProviderError, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/person/match", bytes.NewReader(body))
	if err != nil {
		return model.EnrichmentPayload{}, 0, fmt.Errorf("%w: build request: %v", model.ErrProviderError, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return model.EnrichmentPayload{}, 0, fmt.Errorf("%w: %v", model.ErrProviderError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		b, _ := io.ReadAll(resp.Body)
		return model.EnrichmentPayload{}, 0, fmt.Errorf("%w: status %d: %s", model.ErrProviderError, resp.StatusCode, string(b))
	}
	if resp.StatusCode == http.StatusNotFound {
		return model.EnrichmentPayload{}, 0, model.ErrNoMatch
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return model.EnrichmentPayload{}, 0, fmt.Errorf("%w: status %d: %s", model.ErrProviderError, resp.StatusCode, string(b))
	}

	var parsed enrichResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return model.EnrichmentPayload{}, 0, fmt.Errorf("%w: decode response: %v", model.ErrProviderError, err)
	}
	if !parsed.Matched {
		return model.EnrichmentPayload{}, 0, model.ErrNoMatch
	}

	payload := model.EnrichmentPayload{Skills: parsed.Data.Skills}
	for _, e := range parsed.Data.Experience {
		var start time.Time
		if e.StartDate != nil {
			start = *e.StartDate
		}
		payload.Experience = append(payload.Experience, model.Experience{
			Title: e.Title, Company: e.Company, StartDate: start, EndDate: e.EndDate,
		})
	}
	for _, e := range parsed.Data.Education {
		payload.Education = append(payload.Education, model.Education{
			Institution: e.Institution, Degree: e.Degree, Field: e.Field, EndDate: e.EndDate,
		})
	}
	return payload, parsed.Data.Likelihood, nil
}
