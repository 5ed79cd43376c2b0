// Package provider is the HTTP client for the optional web-research
// provider ("perplexity" in the Context Builder's provenance list),
// shaped the same way as modules/enrichment/provider.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talentcurate/pipeline/modules/research/model"
)

// Config configures the Client.
type Config struct {
	APIKey  string
	BaseURL string // default: https://api.perplexity.ai
	Timeout time.Duration
}

// Client calls the web-research provider for a single candidate.
type Client struct {
	cfg    Config
	client *http.Client
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.perplexity.ai"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// ResearchRequest describes the subject of the research call.
type ResearchRequest struct {
	FullName    string
	CompanyName string
	RoleTitle   string
	GitHubURL   string
}

type researchRequest struct {
	Query string `json:"query"`
}

type researchResponse struct {
	Highlights []struct {
		Type        string `json:"type"`
		Description string `json:"description"`
		URL         string `json:"url"`
	} `json:"highlights"`
}

// Research calls the provider and returns the structured highlights it
// found, or ErrProviderError on network/non-2xx failure.
func (c *Client) Research(ctx context.Context, req ResearchRequest) ([]model.Highlight, error) {
	query := fmt.Sprintf("%s, considered for %s at %s", req.FullName, req.RoleTitle, req.CompanyName)
	body, err := json.Marshal(researchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrProviderError, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/research", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrProviderError, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderError, resp.StatusCode, string(b))
	}

	var parsed researchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProviderError, err)
	}

	highlights := make([]model.Highlight, 0, len(parsed.Highlights))
	for _, h := range parsed.Highlights {
		highlights = append(highlights, model.Highlight{
			Type:        model.HighlightType(h.Type),
			Description: h.Description,
			URL:         h.URL,
		})
	}
	return highlights, nil
}
