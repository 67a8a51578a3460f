// Package verify checks that extracted citations refer to authorities that
// actually exist, against one to three external search endpoints.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxErrorBodyBytes = 8 * 1024

var ErrMissingAPIKey = errors.New("verification api key is not configured")

type APIError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Source, e.StatusCode, e.Body)
}

type SearchResult struct {
	URL     string
	Title   string
	Snippet string
}

// SourceClient talks to one configured search endpoint.
type SourceClient struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewSourceClient(name, baseURL, apiKey string, httpClient *http.Client) SourceClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return SourceClient{
		name:       strings.TrimSpace(name),
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}
}

func (c SourceClient) Name() string {
	return c.name
}

func (c SourceClient) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	trimmedQuery := strings.TrimSpace(query)
	if trimmedQuery == "" {
		return nil, nil
	}
	if count <= 0 {
		count = 5
	}

	endpoint, err := url.Parse(c.baseURL + "/web/search")
	if err != nil {
		return nil, fmt.Errorf("parse %s endpoint: %w", c.name, err)
	}

	params := endpoint.Query()
	params.Set("q", trimmedQuery)
	params.Set("count", fmt.Sprintf("%d", count))
	endpoint.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.name, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, APIError{
			Source:     c.name,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var parsed searchAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", c.name, err)
	}

	rawResults := parsed.Web.Results
	if len(rawResults) == 0 {
		rawResults = parsed.Results
	}

	results := make([]SearchResult, 0, len(rawResults))
	for _, item := range rawResults {
		rawURL := strings.TrimSpace(item.URL)
		if rawURL == "" {
			continue
		}
		results = append(results, SearchResult{
			URL:     rawURL,
			Title:   strings.TrimSpace(item.Title),
			Snippet: strings.TrimSpace(item.Description),
		})
		if len(results) >= count {
			break
		}
	}

	return results, nil
}

type searchAPIResponse struct {
	Web struct {
		Results []searchAPIResult `json:"results"`
	} `json:"web"`
	Results []searchAPIResult `json:"results"`
}

type searchAPIResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}
