package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultSerpAPIBaseURL is the SerpAPI host.
const DefaultSerpAPIBaseURL = "https://serpapi.com"

const maxKeywords = 8

const suggestTimeout = 30 * time.Second

// KeywordClient suggests SEO keywords for a query via SerpAPI. A failure
// here is never fatal to the caption flow; callers degrade to a
// diagnostic placeholder.
type KeywordClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewKeywordClient(baseURL, apiKey string) *KeywordClient {
	return &KeywordClient{
		httpClient: &http.Client{},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type serpResponse struct {
	RelatedSearches []struct {
		Query string `json:"query"`
	} `json:"related_searches"`
	OrganicResults []struct {
		Title string `json:"title"`
	} `json:"organic_results"`
}

// Suggest returns up to 8 deduplicated keyword suggestions: related
// searches first, then organic result titles.
func (k *KeywordClient) Suggest(ctx context.Context, query string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, suggestTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", k.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create keyword request: %w", err)
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keyword request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("keyword service error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var serp serpResponse
	if err := json.Unmarshal(body, &serp); err != nil {
		return nil, fmt.Errorf("failed to decode keyword response: %w", err)
	}

	seen := make(map[string]bool)
	var keywords []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] || len(keywords) >= maxKeywords {
			return
		}
		seen[s] = true
		keywords = append(keywords, s)
	}

	for _, rs := range serp.RelatedSearches {
		add(rs.Query)
	}
	for _, or := range serp.OrganicResults {
		add(or.Title)
	}

	return keywords, nil
}
